package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"

	"depsweep-go/internal/config"
	"depsweep-go/internal/handler"
	"depsweep-go/internal/service"
	"depsweep-go/pkg/logger"
)

type Application struct {
	configPath string
	debug      bool
}

func main() {
	app := &Application{}

	flag.StringVar(&app.configPath, "config", "", "Configuration file path")
	flag.BoolVar(&app.debug, "debug", false, "Enable debug mode")
	flag.Parse()

	if err := app.Run(); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

func (app *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.NewManager().Load(app.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if app.debug {
		cfg.Logger.Level = "debug"
	}

	logger.SetLogger(logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		TimeFormat: cfg.Logger.TimeFormat,
	}))
	appLog := logger.GetLogger().WithField("component", "server")

	svc := service.New(cfg)
	ctrl := handler.NewController(svc, svc)

	server := fiber.New(fiber.Config{
		AppName:      "depsweep-go",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Minute,
	})
	ctrl.Register(server)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		appLog.WithField("addr", addr).Info("Server starting")
		errChan <- server.Listen(addr)
	}()

	select {
	case err := <-errChan:
		return err
	case <-sigChan:
		appLog.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	if err := server.ShutdownWithTimeout(5 * time.Second); err != nil {
		appLog.WithError(err).Warn("Server did not shut down cleanly")
		return err
	}

	appLog.Info("Server stopped")
	return nil
}
