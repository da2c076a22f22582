// Package palette picks random colors that stay readable against a fixed
// background, using the WCAG relative-luminance contrast ratio.
package palette

import (
	"math"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

// Defaults for Config.
const (
	DefaultThreshold   = 2.5
	DefaultMaxAttempts = 1000
)

// Linearize converts one sRGB channel in [0,1] to linear light.
func Linearize(c float64) float64 {
	if c <= 0.03928 {
		return c / 12.92
	}
	return math.Pow((c+0.055)/1.055, 2.4)
}

// RelativeLuminance returns the WCAG relative luminance of c.
func RelativeLuminance(c colorful.Color) float64 {
	return 0.2126*Linearize(c.R) + 0.7152*Linearize(c.G) + 0.0722*Linearize(c.B)
}

// ContrastRatio returns the WCAG contrast ratio between a and b, in [1, 21].
func ContrastRatio(a, b colorful.Color) float64 {
	ya, yb := RelativeLuminance(a), RelativeLuminance(b)
	if ya < yb {
		ya, yb = yb, ya
	}
	return (ya + 0.05) / (yb + 0.05)
}

// Config configures a Sampler.
type Config struct {
	Reference   colorful.Color // Background the colors must stand out from
	Threshold   float64        // Minimum contrast ratio
	MaxAttempts int            // Draws before giving up and using the fallback
}

// DefaultConfig returns the light-gray background setup.
func DefaultConfig() Config {
	return Config{
		Reference:   colorful.Color{R: 0.8, G: 0.8, B: 0.8},
		Threshold:   DefaultThreshold,
		MaxAttempts: DefaultMaxAttempts,
	}
}

// Sampler draws uniform random RGB colors and keeps the first one whose
// contrast against the reference meets the threshold.
//
// A Sampler is not safe for concurrent use.
type Sampler struct {
	cfg      Config
	rng      *rand.Rand
	fallback colorful.Color

	fallbacks int
}

// NewSampler creates a Sampler. A nil src seeds from the runtime.
func NewSampler(cfg Config, src rand.Source) *Sampler {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	var rng *rand.Rand
	if src != nil {
		rng = rand.New(src)
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Sampler{
		cfg:      cfg,
		rng:      rng,
		fallback: Fallback(cfg.Reference),
	}
}

// Next returns a color with at least the configured contrast. ok is false
// when MaxAttempts draws all failed and the fallback color was returned.
func (s *Sampler) Next() (c colorful.Color, ok bool) {
	for i := 0; i < s.cfg.MaxAttempts; i++ {
		c = colorful.Color{R: s.rng.Float64(), G: s.rng.Float64(), B: s.rng.Float64()}
		if ContrastRatio(c, s.cfg.Reference) >= s.cfg.Threshold {
			return c, true
		}
	}
	s.fallbacks++
	return s.fallback, false
}

// Fallbacks returns how many times Next gave up.
func (s *Sampler) Fallbacks() int {
	return s.fallbacks
}

// Config returns the sampler configuration.
func (s *Sampler) Config() Config {
	return s.cfg
}

// Fallback returns black or white, whichever contrasts more with ref.
func Fallback(ref colorful.Color) colorful.Color {
	black := colorful.Color{R: 0, G: 0, B: 0}
	white := colorful.Color{R: 1, G: 1, B: 1}
	if ContrastRatio(black, ref) >= ContrastRatio(white, ref) {
		return black
	}
	return white
}
