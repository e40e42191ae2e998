package services

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"
)

// DailyJobOpts время ежедневной выгрузки плана работ.
type DailyJobOpts struct {
	Enabled bool `mapstructure:"enabled"`
	Hour    int  `mapstructure:"hour" validate:"min=0,max=23"`
	Minute  int  `mapstructure:"minute" validate:"min=0,max=59"`
}

// ReportGenerator создаёт файл отчёта и возвращает путь к нему.
type ReportGenerator interface {
	GenerateExcelReport(ctx context.Context) (string, error)
}

// FileSender доставляет готовый файл получателям.
type FileSender interface {
	SendFile(ctx context.Context, path, caption string) error
}

// DailyJobService каждый день строит отчёт и отправляет его, если задан отправитель.
type DailyJobService struct {
	reports  ReportGenerator
	sender   FileSender
	hour     int
	minute   int
	timezone *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewDailyJobService создаёт сервис ежедневной выгрузки. sender может быть nil.
func NewDailyJobService(
	reports ReportGenerator,
	sender FileSender,
	opts DailyJobOpts,
	logger *slog.Logger,
) (*DailyJobService, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if reports == nil {
		return nil, fmt.Errorf("report service is required")
	}

	logger.Info("Daily job configured",
		"hour", opts.Hour,
		"minute", opts.Minute,
		"timezone", time.Local.String(),
		"send", sender != nil)

	return &DailyJobService{
		reports:  reports,
		sender:   sender,
		hour:     opts.Hour,
		minute:   opts.Minute,
		timezone: time.Local,
		now:      time.Now,
		logger:   logger,
	}, nil
}

// Start запускает цикл выгрузки.
func (d *DailyJobService) Start(ctx context.Context) {
	nextRun := d.nextRunTime()
	timer := time.NewTimer(time.Until(nextRun))
	d.logger.Info("Next run scheduled", "at", nextRun.Format(time.RFC3339))

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Shutdown requested")
			timer.Stop()
			return
		case <-timer.C:
			if err := d.RunOnce(ctx); err != nil {
				d.logger.Error("Daily report failed", "error", err)
			} else {
				d.logger.Info("Daily report completed")
			}

			nextRun = d.nextRunTime()
			timer.Reset(time.Until(nextRun))
			d.logger.Info("Next run scheduled", "at", nextRun.Format(time.RFC3339))
		}
	}
}

// RunOnce строит отчёт и отправляет его.
func (d *DailyJobService) RunOnce(ctx context.Context) error {
	path, err := d.reports.GenerateExcelReport(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}
	if d.sender == nil {
		d.logger.Info("Report saved, sending disabled", "path", path)
		return nil
	}

	caption := fmt.Sprintf("%s на %s", filepath.Base(path), d.now().In(d.timezone).Format("02.01.2006"))
	if err := d.sender.SendFile(ctx, path, caption); err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	return nil
}

// nextRunTime вычисляет ближайшее время
func (d *DailyJobService) nextRunTime() time.Time {
	now := d.now().In(d.timezone)
	today := time.Date(now.Year(), now.Month(), now.Day(), d.hour, d.minute, 0, 0, d.timezone)

	if now.After(today) {
		return today.AddDate(0, 0, 1)
	}
	return today
}
