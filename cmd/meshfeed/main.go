// meshfeed serves demo geometry updates over WebSocket for local viewer runs.
// Usage: go run ./cmd/meshfeed serve --addr :9223
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rickgao/meshview/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "meshfeed",
	Short: "Demo geometry source for meshview",
	Long: `meshfeed streams mesh and polyline updates in the meshview wire format.
Point a viewer at ws://localhost:9223 to watch the scene change.`,
	Version: version.String(),
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
