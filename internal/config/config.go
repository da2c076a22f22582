package config

import (
	"fmt"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// Config is the root configuration for a viewer instance.
type Config struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Connection ConnectionConfig `yaml:"connection"`
	Scene      SceneConfig      `yaml:"scene"`
	Journal    JournalConfig    `yaml:"journal"`
	Health     HealthConfig     `yaml:"health"`
}

// InstanceConfig identifies this viewer.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// ConnectionConfig holds geometry source connection settings.
type ConnectionConfig struct {
	URL               string        `yaml:"url"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"` // Fixed, no backoff
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	PingInterval      time.Duration `yaml:"ping_interval"`
	PingTimeout       time.Duration `yaml:"ping_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
	BufferSize        int           `yaml:"buffer_size"`
}

// SceneConfig holds rendering and update settings.
type SceneConfig struct {
	ClearColor        string  `yaml:"clear_color"`    // Hex, also the contrast reference
	MeshColor         string  `yaml:"mesh_color"`     // Hex
	SpecularColor     string  `yaml:"specular_color"` // Hex
	ContrastThreshold float64 `yaml:"contrast_threshold"`
	MaxColorAttempts  int     `yaml:"max_color_attempts"`
	UnknownKind       string  `yaml:"unknown_kind"` // "mesh" or "reject"
}

// SceneColors are the parsed scene colors.
type SceneColors struct {
	Clear    colorful.Color
	Mesh     colorful.Color
	Specular colorful.Color
}

// Colors parses the hex colors.
func (s SceneConfig) Colors() (SceneColors, error) {
	var c SceneColors
	var err error
	if c.Clear, err = colorful.Hex(s.ClearColor); err != nil {
		return c, fmt.Errorf("scene.clear_color: %w", err)
	}
	if c.Mesh, err = colorful.Hex(s.MeshColor); err != nil {
		return c, fmt.Errorf("scene.mesh_color: %w", err)
	}
	if c.Specular, err = colorful.Hex(s.SpecularColor); err != nil {
		return c, fmt.Errorf("scene.specular_color: %w", err)
	}
	return c, nil
}

// JournalConfig holds the optional update journal settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Database      DBConfig      `yaml:"database"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`     // Initial queue capacity
	MaxBufferSize int           `yaml:"max_buffer_size"` // Oldest records dropped beyond this
	SkipPayload   bool          `yaml:"skip_payload"`    // Record counts only, not raw JSON
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// HealthConfig holds the health and debug HTTP server settings.
type HealthConfig struct {
	Port int `yaml:"port"`
}
