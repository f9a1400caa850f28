package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tgienger/todochat/internal/logging"
	"github.com/tgienger/todochat/internal/mockapi"
)

var (
	mockAddr   string
	mockSecret string
)

// mockServerCmd runs the in-memory backend for local use
var mockServerCmd = &cobra.Command{
	Use:   "mock-server",
	Short: "Run an in-memory todo backend",
	Long: `Serves the todo and chat HTTP API from memory. Nothing is persisted;
stopping the server forgets every account and task.`,
	Args: cobra.NoArgs,
	RunE: runMockServer,
}

func init() {
	mockServerCmd.Flags().StringVar(&mockAddr, "addr", ":8000", "Listen address")
	mockServerCmd.Flags().StringVar(&mockSecret, "secret", "", "Token signing secret")
}

func runMockServer(cmd *cobra.Command, args []string) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	logger, err := logging.Console(level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	opts := []mockapi.Option{mockapi.WithLogger(logger)}
	if mockSecret != "" {
		opts = append(opts, mockapi.WithSecret(mockSecret))
	}

	srv := &http.Server{
		Addr:              mockAddr,
		Handler:           mockapi.New(opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("mock backend listening", zap.String("addr", mockAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("mock server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
