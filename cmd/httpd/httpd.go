// Package httpd implements the HTTP server command for the exploration
// service.
package httpd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/siteatlas/cmd/common"
	"github.com/jonesrussell/siteatlas/internal/api"
	"github.com/jonesrussell/siteatlas/internal/queue"
)

const shutdownTimeout = 30 * time.Second

// Command returns the httpd command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "httpd",
		Short: "Run the exploration HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
			deps, err := common.New(cfgPath)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close() }()

			return run(cmd.Context(), deps)
		},
	}
}

func run(ctx context.Context, deps *common.Deps) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(
		deps.Manager,
		deps.Store,
		deps.Vectors,
		deps.Analyzer,
		deps.Sitemaps,
		api.JobDefaults{
			MaxDepth: deps.Config.Explorer.MaxDepth,
			MaxPages: deps.Config.Explorer.MaxPages,
		},
		deps.Config.Vector.SearchTopK,
		deps.Logger,
	)

	httpServer := &http.Server{
		Addr:         deps.Config.Server.Address,
		Handler:      server.SetupRouter(),
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	if deps.Redis != nil {
		startQueueWorker(ctx, deps)
	}

	errCh := make(chan error, 1)
	go func() {
		deps.Logger.Info("HTTP server starting", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	deps.Logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// startQueueWorker consumes queued exploration requests in the background
// when Redis is configured.
func startQueueWorker(ctx context.Context, deps *common.Deps) {
	client := queue.NewStreamsClientFromRedis(deps.Redis, deps.Config.Redis.Prefix)
	consumer, err := queue.NewConsumer(client, queue.ConsumerConfig{
		ConsumerID: fmt.Sprintf("httpd-%d", time.Now().UnixNano()),
	})
	if err != nil {
		deps.Logger.Error("Failed to create queue consumer", "error", err)
		return
	}

	worker := queue.NewWorker(consumer, deps.Manager, deps.Logger)
	go func() {
		if err := worker.Run(ctx); err != nil {
			deps.Logger.Error("Queue worker stopped", "error", err)
		}
	}()
}
