package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/philipparndt/voxmesh/version"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "voxmesh",
	Short: "A CLI tool for turning voxel volumes into clean triangle meshes",
	Long: `voxmesh extracts the isosurface of a scalar or labeled voxel volume with
marching cubes, repairs and simplifies the resulting mesh, and writes it as
STL or PLY. It also inspects and measures existing STL and PLY meshes.`,
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Pipeline config file (.toml, .yaml or .yml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log at debug level")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
