package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgelink/forgelink/internal/rest"
	"github.com/forgelink/forgelink/internal/setup"
	"go.uber.org/zap"
)

// RESTLogDir specifies where REST server log files are stored.
const RESTLogDir = "logs/rest_logs"

// Server timeouts.
const (
	ReadTimeout     = 5 * time.Second
	ShutdownTimeout = 30 * time.Second
)

func main() {
	// Initialize application with required dependencies
	app, err := setup.InitializeApp(context.Background(), RESTLogDir)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.Cleanup(context.Background())

	// Create server
	handler, err := rest.NewServer(
		app.Service, app.DB.Models().User(), app.DB.Models().Profile(), app.Invalidator, app.Logger,
	)
	if err != nil {
		app.Logger.Fatal("Failed to create REST server", zap.Error(err))
	}

	// Create HTTP server with timeouts. The write timeout leaves room for a
	// synchronous regeneration on a cache miss.
	srv := &http.Server{
		Addr:         app.Config.API.ListenAddr,
		Handler:      handler,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: time.Duration(app.Config.API.RequestTimeout) * time.Millisecond,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("REST server started on %s", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.Logger.Error("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	app.Logger.Info("Shutting down REST server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	// Attempt graceful shutdown
	if err := srv.Shutdown(ctx); err != nil {
		app.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	app.Logger.Info("Server gracefully stopped")
}
