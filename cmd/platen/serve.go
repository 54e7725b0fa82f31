package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"platen/internal/daemon"
	"platen/internal/history"
	"platen/internal/logging"
	"platen/internal/orchestrator"
	"platen/internal/pipeline"
	"platen/internal/preflight"
	"platen/internal/services"
	"platen/internal/stages"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the conversion daemon in the foreground",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ctx, skipPreflight)
		},
	}
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip startup environment checks")
	return cmd
}

func runServe(cmd *cobra.Command, ctx *commandContext, skipPreflight bool) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	if !skipPreflight {
		results := preflight.Run(cfg)
		colorize := shouldColorize(cmd.OutOrStdout())
		for _, result := range results {
			kind := statusOK
			if !result.Passed {
				kind = statusError
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderStatusLine(result.Name, kind, result.Detail, colorize))
		}
		if failed := preflight.Failed(results); len(failed) > 0 {
			return fmt.Errorf("preflight failed: %v", failed)
		}
	}

	logPath := filepath.Join(cfg.Paths.LogDir, "platen.log")
	logger, err := logging.New(logging.Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stdout", logPath},
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	pidPath := filepath.Join(cfg.Paths.LogDir, "platen.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	collabs := stages.NewCollaborators(cfg, services.NewCommandRunner(), logger)
	exec, err := pipeline.NewExecutor(cfg, logger, collabs)
	if err != nil {
		return fmt.Errorf("create executor: %w", err)
	}

	var opts []orchestrator.Option
	var archive *history.Store
	if cfg.History.Enabled {
		archive, err = history.Open(cfg.History.Path)
		if err != nil {
			logger.Warn("history archive unavailable", logging.Error(err))
		} else {
			opts = append(opts, orchestrator.WithHistory(archive))
		}
	}

	orch, err := orchestrator.New(cfg, exec, logger, opts...)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	d, err := daemon.New(cfg, orch, archive, logger)
	if err != nil {
		return fmt.Errorf("create daemon: %w", err)
	}
	defer d.Close()

	if err := d.Start(signalCtx); err != nil {
		return err
	}

	<-signalCtx.Done()
	logger.Info("platen daemon shutting down")
	return nil
}

func writePIDFile(path string) error {
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
}
