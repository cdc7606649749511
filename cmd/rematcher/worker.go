package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the workflow and indexing workers without the HTTP API",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.openQueue(ctx, true); err != nil {
		return err
	}
	if err := a.queue.Start(ctx); err != nil {
		return fmt.Errorf("failed to start workers: %w", err)
	}
	a.logger.Info("workers started",
		zap.Int("workflow_workers", a.cfg.WorkflowWorkers),
		zap.Int("indexing_workers", a.cfg.IndexingWorkers))

	<-ctx.Done()
	a.logger.Info("stopping workers")
	return a.queue.Shutdown(ctx)
}
