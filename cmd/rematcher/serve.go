package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-rematcher/internal/server"
	"github.com/jonathan/job-rematcher/internal/server/ratelimit"
)

var (
	servePort      int
	serveNoWorkers bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server and queue workers",
	Long: `Start an HTTP server that accepts re-matching requests and exposes execution status.
Unless --no-workers is given, the same process also runs the workflow and indexing workers.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (defaults to the configured HTTP port)")
	serveCmd.Flags().BoolVar(&serveNoWorkers, "no-workers", false, "Only serve the API; jobs are processed by separate worker processes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.openQueue(ctx, !serveNoWorkers); err != nil {
		return err
	}

	rlConfig, err := ratelimit.LoadConfig()
	if err != nil {
		return err
	}
	limiter := ratelimit.NewLimiter(rlConfig)

	port := a.cfg.HTTPPort
	if servePort > 0 {
		port = servePort
	}
	srv := server.New(server.Config{Port: port}, a.service, a.db, a.recorder.Handler(), limiter, a.logger)

	g, gctx := errgroup.WithContext(ctx)
	if !serveNoWorkers {
		if err := a.queue.Start(gctx); err != nil {
			return fmt.Errorf("failed to start workers: %w", err)
		}
		g.Go(func() error {
			<-gctx.Done()
			a.logger.Info("stopping workers")
			return a.queue.Shutdown(gctx)
		})
	}
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if err := g.Wait(); err != nil {
		a.logger.Error("serve stopped with error", zap.Error(err))
		return err
	}
	return nil
}
