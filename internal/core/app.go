package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/config"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/connector"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/server"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/services"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/storage"
)

// App представляет основное приложение, управляющее сервисами.
type App struct {
	logger  *slog.Logger
	rootCtx context.Context

	mu             sync.Mutex
	users          *storage.UserDirectory
	connector      *connector.Connector
	reports        *services.ReportService
	dailyJob       *services.DailyJobService
	adminSrv       *server.AdminServer
	servicesCancel context.CancelFunc
}

// NewApp создает новый экземпляр приложения с заданным логгером и корневым контекстом.
func NewApp(ctx context.Context, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return &App{
		logger:  logger,
		rootCtx: ctx,
	}
}

// NewUserLookup выбирает стратегию сопоставления исполнителей по настройке user_lookup.
func NewUserLookup(kind string, dir services.FullNameUserProvider, logger *slog.Logger) services.UserLookup {
	if kind == config.UserLookupFullName {
		return services.NewFullNameUserLookup(dir, logger)
	}
	return services.NewBasicUserLookup(dir, logger)
}

// ApplyConfig применяет конфигурацию к приложению, инициализируя/переинициализируя сервисы.
func (a *App) ApplyConfig(cfg config.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()

	ctx, cancel := context.WithCancel(a.rootCtx)

	users, err := storage.NewUserDirectory(cfg.Storage.Path, a.logger)
	if err != nil {
		cancel()
		return fmt.Errorf("open user directory: %w", err)
	}

	conn := connector.New(NewUserLookup(cfg.UserLookup, users, a.logger), a.logger)

	reports, err := services.NewReportService(cfg.Report, cfg.Connector, conn, users, a.logger)
	if err != nil {
		cancel()
		users.Close()
		return fmt.Errorf("init report service: %w", err)
	}

	var sender services.FileSender
	if cfg.TelegramBot.Enabled {
		tg, err := services.NewTelegramBot(cfg.TelegramBot, a.logger)
		if err != nil {
			cancel()
			users.Close()
			return fmt.Errorf("init telegram bot: %w", err)
		}
		sender = tg
	}

	var dailyJob *services.DailyJobService
	if cfg.DailyJob.Enabled {
		dailyJob, err = services.NewDailyJobService(reports, sender, cfg.DailyJob, a.logger)
		if err != nil {
			cancel()
			users.Close()
			return fmt.Errorf("init daily job: %w", err)
		}
		go dailyJob.Start(ctx)
	}

	adminSrv := server.NewAdminHandler(a.logger, conn, reports, cfg.Connector, &cfg.HttpServer)
	go func() {
		if err := adminSrv.Start(ctx); err != nil {
			a.logger.Error("Admin server exited with error", "error", err)
		}
	}()

	if msg := conn.TestConnection(ctx, cfg.Connector); msg != "" {
		a.logger.Warn("Azure DevOps connection check failed", "error", msg)
	}

	a.users = users
	a.connector = conn
	a.reports = reports
	a.dailyJob = dailyJob
	a.adminSrv = adminSrv
	a.servicesCancel = cancel

	a.logger.Info("Services reinitialized successfully with configuration",
		"user_lookup", cfg.UserLookup,
		"daily_job", cfg.DailyJob.Enabled,
		"telegram", cfg.TelegramBot.Enabled)
	return nil
}

// Shutdown останавливает все запущенные сервисы приложения.
func (a *App) Shutdown() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.logger.Info("Stopping services on shutdown")
	a.stopLocked()
}

func (a *App) stopLocked() {
	if a.servicesCancel != nil {
		a.logger.Info("Stopping previous services")
		a.servicesCancel()
		a.servicesCancel = nil
	}
	if a.users != nil {
		if err := a.users.Close(); err != nil {
			a.logger.Error("Close user directory", "error", err)
		}
		a.users = nil
	}
}
