package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/topescape/internal/api"
	"github.com/quantlab/topescape/internal/api/handlers"
	"github.com/quantlab/topescape/internal/pipeline"
	"github.com/quantlab/topescape/pkg/config"
	"github.com/quantlab/topescape/pkg/logger"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Computes the index from the configured sources and serves it
over HTTP.

Endpoints:
  GET  /health                - Health check
  GET  /api/index/latest      - Most recent defined index value
  GET  /api/index/history     - Full composite series
  GET  /api/index/signals     - Days on which the index fired
  POST /api/index/recompute   - Reload sources and rebuild

Example:
  go run ./cmd/topescape serve
  go run ./cmd/topescape serve --port 8086`,
	RunE: runServe,
}

var servePort string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&servePort, "port", "", "API server port (default: PORT env)")
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Escape Index API Server ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if servePort != "" {
		cfg.Port = servePort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Compute the first snapshot
	profile, err := loadProfile()
	if err != nil {
		return err
	}
	svc := pipeline.NewService(pipeline.New(profile, log))
	if err := svc.Refresh(); err != nil {
		// Serve anyway; a recompute can succeed once the data lands.
		log.WithError(err).Warn("Initial index computation failed")
	}

	// 4. Build router and server
	indexHandler := handlers.NewIndexHandler(svc, log)
	router := api.NewRouter(indexHandler, log)
	server := api.New(cfg, log, router)

	// 5. Start with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("🚀 Listening on :%s\n", cfg.Port)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		fmt.Printf("\n🛑 Received %s, shutting down...\n", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return err
	}

	PrintSuccess("Server stopped")
	return nil
}
