package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rickgao/meshview/internal/geometry"
)

var (
	samplePattern string
	sampleFrame   int
)

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print one encoded frame",
	Long:  "Print the JSON a viewer would receive for the given frame, with its bounds on stderr.",
	RunE:  runSample,
}

func init() {
	sampleCmd.Flags().StringVar(&samplePattern, "pattern", patternAlternate, "alternate, mesh or lines")
	sampleCmd.Flags().IntVar(&sampleFrame, "frame", 0, "frame number")
	rootCmd.AddCommand(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) error {
	u, err := frameAt(samplePattern, sampleFrame)
	if err != nil {
		return err
	}
	data, err := geometry.Encode(u)
	if err != nil {
		return err
	}

	var flat []float32
	switch v := u.(type) {
	case geometry.Mesh:
		flat = v.Vertices
	case geometry.Lines:
		for _, l := range v.Polylines {
			flat = append(flat, l...)
		}
	}
	pts, err := geometry.Points(flat)
	if err != nil {
		return err
	}
	box := geometry.Bounds(pts)

	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	fmt.Fprintf(cmd.ErrOrStderr(), "kind=%s points=%d min=%v max=%v\n", u.Kind(), len(pts), box.Min, box.Max)
	return nil
}
