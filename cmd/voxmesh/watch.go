package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/philipparndt/voxmesh/internal/config"
	"github.com/philipparndt/voxmesh/internal/pipeline"
	"github.com/philipparndt/voxmesh/pkg/watcher"
	"github.com/spf13/cobra"
)

var (
	watchFlags    pipelineFlags
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [volume]",
	Short: "Re-run extraction whenever the volume or config changes",
	Long: `Run the extraction pipeline once, then again every time the volume file or
the config file is written. Failed runs are logged and the previous output is
left in place. Stop with Ctrl+C.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchFlags.register(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Quiet period before a change triggers a run")
}

func watchConfig(cmd *cobra.Command, args []string) (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, err
	}
	if len(args) == 1 {
		cfg.Input.Path = args[0]
	}
	if err := watchFlags.apply(cmd, &cfg); err != nil {
		return config.Config{}, err
	}
	if cfg.Input.Path == "" || cfg.Output.Path == "" {
		return config.Config{}, errors.New("watch needs an input volume and an output path")
	}
	return cfg, nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := watchConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	p, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	fw, err := watcher.NewFileWatcher(watchDebounce, logger)
	if err != nil {
		return err
	}
	defer fw.Close()

	changes := make(chan string, 1)
	notify := func(path string) {
		select {
		case changes <- path:
		default:
		}
	}

	files := []string{cfg.Input.Path}
	var absConfig string
	if configPath != "" {
		if absConfig, err = filepath.Abs(configPath); err != nil {
			return fmt.Errorf("failed to resolve path %s: %w", configPath, err)
		}
		files = append(files, configPath)
	}
	if err := fw.Watch(files, notify); err != nil {
		return err
	}

	ctx := cmd.Context()
	errc := make(chan error, 1)
	go func() { errc <- fw.Run(ctx) }()

	out := cmd.OutOrStdout()
	run := func() {
		result, err := p.Run(ctx)
		if err != nil {
			logger.Error("pipeline run failed", "error", err)
			return
		}
		printResult(out, result)
	}

	run()
	fmt.Fprintf(out, "Watching %d file(s) for changes\n", len(files))
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		case path := <-changes:
			logger.Info("file changed", "path", path)
			if path == absConfig {
				next, err := reloadPipeline(cmd, args)
				if err != nil {
					logger.Error("config reload failed", "error", err)
					continue
				}
				logger.Info("config reloaded", "path", configPath)
				if err := fw.Watch([]string{next.Config().Input.Path}, notify); err != nil {
					logger.Error("failed to watch new input", "error", err)
					continue
				}
				p = next
			}
			run()
		}
	}
}

func reloadPipeline(cmd *cobra.Command, args []string) (*pipeline.Pipeline, error) {
	cfg, err := watchConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.New(cfg, logger)
}
