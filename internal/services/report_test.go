package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
)

type staticPlan struct {
	plan *models.ExternalWorkPlan
	err  error
}

func (p staticPlan) ExternalWorkPlan(context.Context, models.ValueSet, *int64) (*models.ExternalWorkPlan, error) {
	return p.plan, p.err
}

type staticUserList []models.User

func (l staticUserList) ListUsers(context.Context) ([]models.User, error) {
	return l, nil
}

func samplePlan() *models.ExternalWorkPlan {
	start := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	finish := time.Date(2024, 3, 14, 23, 0, 0, 0, time.UTC)

	return &models.ExternalWorkPlan{RootTasks: []*models.ExternalTask{
		{
			Kind:            models.TaskKindWorkItem,
			ID:              "1",
			Name:            "[Feature] Checkout",
			Status:          models.TaskStatusInProgress,
			ScheduledStart:  &start,
			ScheduledFinish: &finish,
			Children: []*models.ExternalTask{
				{
					Kind:    models.TaskKindWorkLeaf,
					ID:      "1",
					Name:    "[Work] Checkout",
					Status:  models.TaskStatusInProgress,
					Effort:  4,
					Actuals: []models.Actuals{{ResourceID: 1, ScheduledEffort: 4, ActualEffort: 1, EstimatedRemainingEffort: 3, PercentComplete: 25}},
				},
				{
					Kind:   models.TaskKindWorkItem,
					ID:     "2",
					Name:   "[Task] Payment form",
					Status: models.TaskStatusCompleted,
					Effort: 6,
					Actuals: []models.Actuals{
						{ResourceID: 1, ScheduledEffort: 3, ActualEffort: 3, PercentComplete: 99},
						{ResourceID: 2, ScheduledEffort: 3, ActualEffort: 3, PercentComplete: 99},
					},
				},
			},
		},
		{
			Kind:    models.TaskKindWorkItem,
			ID:      "3",
			Name:    "[Bug] Typo",
			Status:  models.TaskStatusReady,
			Effort:  2,
			Actuals: []models.Actuals{{ResourceID: models.UnassignedResourceID, ScheduledEffort: 2, EstimatedRemainingEffort: 2}},
		},
	}}
}

func TestCalculateResourceStats(t *testing.T) {
	names := map[int64]string{1: "Ann", 2: "Bob", models.UnassignedResourceID: "Не назначено"}

	got := CalculateResourceStats(samplePlan(), names)

	want := []models.ResourceStats{
		{ResourceID: 1, Name: "Ann", Tasks: 2, InProgress: 1, Completed: 1, ScheduledEffort: 7, ActualEffort: 4, RemainingEffort: 3},
		{ResourceID: 2, Name: "Bob", Tasks: 1, Completed: 1, ScheduledEffort: 3, ActualEffort: 3},
		{ResourceID: models.UnassignedResourceID, Name: "Не назначено", Tasks: 1, ScheduledEffort: 2, RemainingEffort: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("resource stats mismatch (-want +got):\n%s", diff)
	}
}

func TestCalculateResourceStats_UnknownName(t *testing.T) {
	got := CalculateResourceStats(samplePlan(), nil)
	require.Len(t, got, 3)
	assert.Equal(t, "#-1", got[0].Name)
	assert.Equal(t, "#1", got[1].Name)
	assert.Equal(t, "#2", got[2].Name)
}

func TestReportService_GenerateExcelReport(t *testing.T) {
	dir := t.TempDir()
	svc, err := NewReportService(
		ReportOpts{SaveDir: dir},
		models.ValueSet{},
		staticPlan{plan: samplePlan()},
		staticUserList{{UserID: 1, FullName: "Ann"}, {UserID: 2, FullName: "Bob"}},
		discardLogger(),
	)
	require.NoError(t, err)

	path, err := svc.GenerateExcelReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, defaultReportFileName), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{tasksSheet, resourcesSheet}, f.GetSheetList())

	rows, err := f.GetRows(tasksSheet)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "[Feature] Checkout", rows[1][1])
	assert.Equal(t, "01.03.2024", rows[1][4])
	assert.Equal(t, "14.03.2024", rows[1][5])
	assert.Equal(t, "    [Work] Checkout", rows[2][1])
	assert.Equal(t, "    [Task] Payment form", rows[3][1])
	assert.Equal(t, "[Bug] Typo", rows[4][1])

	resources, err := f.GetRows(resourcesSheet)
	require.NoError(t, err)
	require.Len(t, resources, 4)
	assert.Equal(t, "Ann", resources[1][0])
	assert.Equal(t, "2", resources[1][1])
	assert.Equal(t, "Bob", resources[2][0])
	assert.Equal(t, "Не назначено", resources[3][0])
}

func TestReportService_PlanError(t *testing.T) {
	svc, err := NewReportService(ReportOpts{SaveDir: t.TempDir()}, nil, staticPlan{err: errors.New("boom")}, nil, discardLogger())
	require.NoError(t, err)

	_, err = svc.GenerateExcelReport(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestNewReportService_Validation(t *testing.T) {
	_, err := NewReportService(ReportOpts{SaveDir: t.TempDir()}, nil, nil, nil, nil)
	assert.Error(t, err)

	_, err = NewReportService(ReportOpts{}, nil, staticPlan{}, nil, nil)
	assert.Error(t, err)
}
