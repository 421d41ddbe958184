package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/johnrirwin/devicedeck/internal/app"
	"github.com/johnrirwin/devicedeck/internal/config"
	"github.com/johnrirwin/devicedeck/internal/logging"
)

func main() {
	cfg := config.Load()

	application, err := app.New(cfg)
	if err != nil {
		logging.New(logging.LevelError).Error("Failed to initialize", logging.WithField("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		application.Logger.Info("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		application.Shutdown(shutdownCtx)
	}()

	err = application.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		application.Logger.Error("Server error", logging.WithField("error", err.Error()))
		os.Exit(1)
	}
}
