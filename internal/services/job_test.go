package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReports struct {
	path  string
	err   error
	calls int
}

func (f *fakeReports) GenerateExcelReport(context.Context) (string, error) {
	f.calls++
	return f.path, f.err
}

type sentFile struct {
	path    string
	caption string
}

type fakeSender struct {
	sent []sentFile
	err  error
}

func (f *fakeSender) SendFile(_ context.Context, path, caption string) error {
	f.sent = append(f.sent, sentFile{path: path, caption: caption})
	return f.err
}

func newTestJob(t *testing.T, reports ReportGenerator, sender FileSender, now time.Time) *DailyJobService {
	t.Helper()
	job, err := NewDailyJobService(reports, sender, DailyJobOpts{Hour: 9, Minute: 30}, discardLogger())
	require.NoError(t, err)
	job.timezone = time.UTC
	job.now = func() time.Time { return now }
	return job
}

func TestDailyJob_NextRunTime(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "before run time",
			now:  time.Date(2024, 3, 15, 8, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "after run time",
			now:  time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 16, 9, 30, 0, 0, time.UTC),
		},
		{
			name: "end of month",
			now:  time.Date(2024, 2, 29, 23, 0, 0, 0, time.UTC),
			want: time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := newTestJob(t, &fakeReports{}, nil, tt.now)
			assert.Equal(t, tt.want, job.nextRunTime())
		})
	}
}

func TestDailyJob_RunOnceSendsReport(t *testing.T) {
	reports := &fakeReports{path: "/tmp/reports/work_plan.xlsx"}
	sender := &fakeSender{}
	job := newTestJob(t, reports, sender, time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC))

	require.NoError(t, job.RunOnce(context.Background()))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "/tmp/reports/work_plan.xlsx", sender.sent[0].path)
	assert.Equal(t, "work_plan.xlsx на 15.03.2024", sender.sent[0].caption)
}

func TestDailyJob_RunOnceWithoutSender(t *testing.T) {
	reports := &fakeReports{path: "/tmp/report.xlsx"}
	job := newTestJob(t, reports, nil, time.Now())

	require.NoError(t, job.RunOnce(context.Background()))
	assert.Equal(t, 1, reports.calls)
}

func TestDailyJob_RunOnceErrors(t *testing.T) {
	job := newTestJob(t, &fakeReports{err: errors.New("no plan")}, &fakeSender{}, time.Now())
	err := job.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate report")

	sender := &fakeSender{err: errors.New("chat not found")}
	job = newTestJob(t, &fakeReports{path: "/tmp/report.xlsx"}, sender, time.Now())
	err = job.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send report")
}

func TestNewDailyJobService_RequiresReports(t *testing.T) {
	_, err := NewDailyJobService(nil, nil, DailyJobOpts{}, nil)
	assert.Error(t, err)
}

func TestJoinCaption(t *testing.T) {
	assert.Equal(t, "Отчёт\nwork_plan.xlsx", joinCaption("Отчёт ", "work_plan.xlsx"))
	assert.Equal(t, "work_plan.xlsx", joinCaption("", "work_plan.xlsx"))
	assert.Empty(t, joinCaption("  ", ""))
}
