package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/config"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/core"
)

var (
	configPath = flag.String("config", "/etc/azure_devops_connector/config.yaml", "Путь к файлу с конфигурацией")
)

func main() {
	flag.Parse()
	bootLogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgMgr, err := config.NewManager(*configPath, bootLogger)
	if err != nil {
		bootLogger.Error("Failed to init config manager", "error", err)
		os.Exit(1)
	}

	// Уровень и файл журнала применяются только при запуске.
	logger, logCloser := config.NewLogger(cfgMgr.Current().Logging)
	defer logCloser.Close()

	app := core.NewApp(ctx, logger)

	if err := app.ApplyConfig(cfgMgr.Current()); err != nil {
		logger.Error("Failed to apply initial config", "error", err)
		os.Exit(1)
	}

	cfgMgr.OnChange(func(newCfg config.Config) {
		if err := app.ApplyConfig(newCfg); err != nil {
			logger.Error("Failed to apply new config", "error", err)
		}
	})

	<-ctx.Done()
	logger.Info("Shutdown requested", "reason", ctx.Err())

	app.Shutdown()
	logger.Info("Shutdown complete")
}
