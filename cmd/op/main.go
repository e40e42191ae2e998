package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/config"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/connector"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/core"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/services"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/storage"
)

type opFlags struct {
	configPath string
	project    string
	root       string
	outDir     string
}

func parseFlags(args []string) (opFlags, error) {
	var f opFlags
	flagSet := flag.NewFlagSet("op", flag.ContinueOnError)

	flagSet.StringVarP(&f.configPath, "config", "c", "config.yaml", "Путь к файлу с конфигурацией")
	flagSet.StringVarP(&f.project, "project", "p", "", "Проект Azure DevOps, по умолчанию connector.wpProject")
	flagSet.StringVar(&f.root, "root", "", "ID корневого рабочего элемента, по умолчанию connector.wpEpic")
	flagSet.StringVarP(&f.outDir, "out", "o", "", "Каталог для выгрузки, по умолчанию report.save_dir")

	if err := flagSet.Parse(args); err != nil {
		return opFlags{}, err
	}
	return f, nil
}

// Разовая выгрузка плана работ проекта в xlsx.
func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		logger.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		logger.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	values := overrideValues(cfg.Connector, map[string]string{
		models.KeyWPProject: flags.project,
		models.KeyWPEpic:    flags.root,
	})
	if flags.outDir != "" {
		cfg.Report.SaveDir = flags.outDir
	}

	users, err := storage.NewUserDirectory(cfg.Storage.Path, logger)
	if err != nil {
		logger.Error("Failed to open user directory", "error", err)
		os.Exit(1)
	}
	defer users.Close()

	conn := connector.New(core.NewUserLookup(cfg.UserLookup, users, logger), logger)

	if msg := conn.TestConnection(ctx, values); msg != "" {
		logger.Error("Azure DevOps is not reachable", "error", msg)
		os.Exit(1)
	}

	reports, err := services.NewReportService(cfg.Report, values, conn, users, logger)
	if err != nil {
		logger.Error("Failed to init report service", "error", err)
		os.Exit(1)
	}

	resPath, err := reports.GenerateExcelReport(ctx)
	if err != nil {
		logger.Error("Failed to generate report", "error", err)
		os.Exit(1)
	}

	logger.Info("Excel report successfully created", "path", resPath, "project", values.Get(models.KeyWPProject))
}

// overrideValues заменяет ключи конфигурации непустыми значениями флагов.
func overrideValues(values models.ValueSet, overrides map[string]string) models.ValueSet {
	out := make(models.ValueSet, len(values))
	for k, v := range values {
		out[k] = v
	}
	for key, val := range overrides {
		if strings.TrimSpace(val) == "" {
			continue
		}
		for k := range out {
			if strings.EqualFold(k, key) {
				delete(out, k)
			}
		}
		out[key] = val
	}
	return out
}
