package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/natefinch/atomic"
	"github.com/xuri/excelize/v2"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
)

const (
	tasksSheet     = "План работ"
	resourcesSheet = "Ресурсы"

	defaultReportFileName = "work_plan.xlsx"
	excelDateLayout       = "02.01.2006"
)

// ReportOpts параметры выгрузки плана работ в Excel.
type ReportOpts struct {
	SaveDir  string `mapstructure:"save_dir" validate:"required"`
	FileName string `mapstructure:"file_name"`
}

// WorkPlanProvider строит план работ по конфигурации коннектора.
type WorkPlanProvider interface {
	ExternalWorkPlan(ctx context.Context, values models.ValueSet, hostProjectID *int64) (*models.ExternalWorkPlan, error)
}

// UserLister источник имён исполнителей для листа ресурсов.
type UserLister interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

// ReportService выгружает план работ в xlsx.
type ReportService struct {
	opts   ReportOpts
	values models.ValueSet
	plans  WorkPlanProvider
	users  UserLister
	logger *slog.Logger
}

// NewReportService создаёт сервис отчётов. users может быть nil.
func NewReportService(opts ReportOpts, values models.ValueSet, plans WorkPlanProvider, users UserLister, logger *slog.Logger) (*ReportService, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if plans == nil {
		return nil, fmt.Errorf("work plan provider is required")
	}
	if opts.SaveDir == "" {
		return nil, fmt.Errorf("report save dir is required")
	}
	if opts.FileName == "" {
		opts.FileName = defaultReportFileName
	}
	return &ReportService{
		opts:   opts,
		values: values,
		plans:  plans,
		users:  users,
		logger: logger,
	}, nil
}

// GenerateExcelReport строит план и сохраняет его в файл. Возвращает путь к файлу.
func (s *ReportService) GenerateExcelReport(ctx context.Context) (string, error) {
	plan, err := s.plans.ExternalWorkPlan(ctx, s.values, nil)
	if err != nil {
		return "", fmt.Errorf("build work plan: %w", err)
	}

	names := map[int64]string{models.UnassignedResourceID: "Не назначено"}
	if s.users != nil {
		users, err := s.users.ListUsers(ctx)
		if err != nil {
			s.logger.Warn("Failed to load user names for report", "error", err)
		}
		for _, u := range users {
			names[u.UserID] = u.FullName
		}
	}

	if err := os.MkdirAll(s.opts.SaveDir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	path := filepath.Join(s.opts.SaveDir, s.opts.FileName)

	stats := CalculateResourceStats(plan, names)
	s.logger.Info("Creating Excel file", "path", path, "roots", len(plan.RootTasks), "resources", len(stats))

	if err := WriteWorkPlanXLSX(path, plan, stats); err != nil {
		return "", err
	}
	return path, nil
}

// CalculateResourceStats суммирует фактические данные листовых задач по исполнителям.
// Суммарные задачи пропускаются, их трудоёмкость уже учтена листом [Work].
func CalculateResourceStats(plan *models.ExternalWorkPlan, names map[int64]string) []models.ResourceStats {
	byResource := make(map[int64]*models.ResourceStats)

	plan.Walk(func(t *models.ExternalTask, _ int) {
		if len(t.Children) > 0 || (t.Kind != models.TaskKindWorkItem && t.Kind != models.TaskKindWorkLeaf) {
			return
		}
		for _, a := range t.Actuals {
			st, ok := byResource[a.ResourceID]
			if !ok {
				name := names[a.ResourceID]
				if name == "" {
					name = fmt.Sprintf("#%d", a.ResourceID)
				}
				st = &models.ResourceStats{ResourceID: a.ResourceID, Name: name}
				byResource[a.ResourceID] = st
			}

			st.Tasks++
			switch t.Status {
			case models.TaskStatusInProgress:
				st.InProgress++
			case models.TaskStatusCompleted:
				st.Completed++
			}
			st.ScheduledEffort += a.ScheduledEffort
			st.ActualEffort += a.ActualEffort
			st.RemainingEffort += a.EstimatedRemainingEffort
		}
	})

	stats := make([]models.ResourceStats, 0, len(byResource))
	for _, st := range byResource {
		stats = append(stats, *st)
	}
	sort.Slice(stats, func(i, j int) bool {
		return strings.ToLower(stats[i].Name) < strings.ToLower(stats[j].Name)
	})
	return stats
}

// WriteWorkPlanXLSX создаёт файл с двумя листами: дерево задач и сводка по ресурсам.
func WriteWorkPlanXLSX(path string, plan *models.ExternalWorkPlan, stats []models.ResourceStats) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(tasksSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	headers := []string{
		"ID", "Название", "Вид", "Статус", "Дата начала", "Дата окончания",
		"Трудоёмкость", "% выполнения", "Факт", "Осталось",
	}
	setHeaders(f, tasksSheet, headers)

	row := 2
	plan.Walk(func(t *models.ExternalTask, depth int) {
		var pc, actual, remaining float64
		for _, a := range t.Actuals {
			pc = a.PercentComplete
			actual += a.ActualEffort
			remaining += a.EstimatedRemainingEffort
		}

		values := []any{
			t.ID,
			strings.Repeat("    ", depth) + t.Name,
			string(t.Kind),
			string(t.Status),
			formatDateForExcel(t.ScheduledStart),
			formatDateForExcel(t.ScheduledFinish),
			t.Effort,
			pc,
			actual,
			remaining,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			f.SetCellValue(tasksSheet, cell, v)
		}
		row++
	})
	setWidths(f, tasksSheet, len(headers), 18)
	f.SetColWidth(tasksSheet, "B", "B", 60)

	resourcesIndex, err := f.NewSheet(resourcesSheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	resourceHeaders := []string{"Исполнитель", "Задач", "В работе", "Завершено", "План", "Факт", "Осталось"}
	setHeaders(f, resourcesSheet, resourceHeaders)

	for i, st := range stats {
		rowNum := i + 2
		f.SetCellValue(resourcesSheet, fmt.Sprintf("A%d", rowNum), st.Name)
		f.SetCellValue(resourcesSheet, fmt.Sprintf("B%d", rowNum), st.Tasks)
		f.SetCellValue(resourcesSheet, fmt.Sprintf("C%d", rowNum), st.InProgress)
		f.SetCellValue(resourcesSheet, fmt.Sprintf("D%d", rowNum), st.Completed)
		f.SetCellValue(resourcesSheet, fmt.Sprintf("E%d", rowNum), st.ScheduledEffort)
		f.SetCellValue(resourcesSheet, fmt.Sprintf("F%d", rowNum), st.ActualEffort)
		f.SetCellValue(resourcesSheet, fmt.Sprintf("G%d", rowNum), st.RemainingEffort)
	}
	setWidths(f, resourcesSheet, len(resourceHeaders), 20)

	f.SetActiveSheet(resourcesIndex)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("render xlsx: %w", err)
	}
	// Читатели отчёта не должны видеть недописанный файл.
	if err := atomic.WriteFile(path, buf); err != nil {
		return fmt.Errorf("save xlsx %q: %w", path, err)
	}
	return nil
}

func setHeaders(f *excelize.File, sheet string, headers []string) {
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}
}

func setWidths(f *excelize.File, sheet string, columns int, width float64) {
	for i := 0; i < columns; i++ {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, colName, colName, width)
	}
}

func formatDateForExcel(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(excelDateLayout)
}
