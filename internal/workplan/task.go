package workplan

import (
	"context"
	"fmt"
	"time"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/services"
)

const workLeafPrefix = "[Work] "

// attributes вычисленные свойства рабочего элемента, общие для задачи и её листа [Work].
type attributes struct {
	iteration *models.Iteration
	assignees []models.User
	resolved  bool

	status      models.TaskStatus
	hasStatus   bool
	start       *time.Time
	finish      *time.Time
	hasSchedule bool
}

// task обёртка рабочего элемента при построении дерева.
type task struct {
	item     *models.WorkItem
	attrs    *attributes
	leaf     bool
	children []*task
}

func newTask(item *models.WorkItem) *task {
	return &task{item: item, attrs: &attributes{}}
}

// workLeaf лист с той же трудоёмкостью, что и у суммарной задачи.
func (t *task) workLeaf() *task {
	return &task{item: t.item, attrs: t.attrs, leaf: true}
}

func (t *task) id() string {
	return t.item.IDString()
}

func (t *task) name() string {
	if t.leaf {
		return workLeafPrefix + t.item.Title()
	}
	return "[" + t.item.Type() + "] " + t.item.Title()
}

func (t *task) iterationPath() string {
	if t.attrs.iteration == nil {
		return ""
	}
	return t.attrs.iteration.Path
}

// resolve загружает итерацию и исполнителей. Повторные вызовы ничего не делают.
func (t *task) resolve(ctx context.Context, e *Engine) error {
	if t.attrs.resolved {
		return nil
	}

	if path, ok := t.item.StringField(models.FieldIterationPath); ok && path != "" {
		it, err := e.iterations.GetIteration(ctx, path)
		if err != nil {
			return fmt.Errorf("resolve iteration of work item %s: %w", t.id(), err)
		}
		t.attrs.iteration = it
	}

	t.attrs.assignees = services.ResolveUsers(ctx, e.users, t.item.Fields[models.FieldAssignedTo], e.opts.HostProjectID, e.logger)
	t.attrs.resolved = true
	return nil
}

func (t *task) status(c StatusClassifier) models.TaskStatus {
	if !t.attrs.hasStatus {
		t.attrs.status = c.Classify(t.item.State())
		t.attrs.hasStatus = true
	}
	return t.attrs.status
}

func (t *task) effort() float64 {
	v, _ := t.item.NumberField(models.FieldEffort)
	return v
}

// schedule даты из полей элемента, иначе из итерации, иначе текущий день с 01:00 до 23:00.
func (t *task) schedule(now time.Time) (*time.Time, *time.Time) {
	if t.attrs.hasSchedule {
		return t.attrs.start, t.attrs.finish
	}

	start := t.item.DateField(models.FieldStartDate)
	if start == nil {
		start = t.attrs.iteration.StartDate()
	}
	if start == nil {
		d := dayAt(now, 1)
		start = &d
	}

	finish := t.item.DateField(models.FieldTargetDate)
	if finish == nil {
		finish = t.attrs.iteration.FinishDate()
	}
	if finish == nil {
		d := dayAt(now, 23)
		finish = &d
	}

	t.attrs.start, t.attrs.finish, t.attrs.hasSchedule = start, finish, true
	return start, finish
}

// actuals по одной записи на исполнителя, трудоёмкость делится поровну.
func (t *task) actuals(c StatusClassifier, now time.Time) []models.Actuals {
	start, finish := t.schedule(now)
	status := t.status(c)

	var effort, remaining *float64
	if v := t.effort(); v > 0 {
		effort = &v
	}
	if v, ok := t.item.NumberField(models.FieldRemainingWork); ok {
		remaining = &v
	}

	if len(t.attrs.assignees) == 0 {
		return []models.Actuals{ComputeActuals(ActualsInput{
			ResourceID:      models.UnassignedResourceID,
			Status:          status,
			ScheduledEffort: effort,
			RemainingEffort: remaining,
			ScheduledStart:  start,
			ScheduledFinish: finish,
		})}
	}

	n := float64(len(t.attrs.assignees))
	result := make([]models.Actuals, 0, len(t.attrs.assignees))
	for _, u := range t.attrs.assignees {
		result = append(result, ComputeActuals(ActualsInput{
			ResourceID:      u.UserID,
			Status:          status,
			ScheduledEffort: share(effort, n),
			RemainingEffort: share(remaining, n),
			ScheduledStart:  start,
			ScheduledFinish: finish,
		}))
	}
	return result
}

func share(v *float64, n float64) *float64 {
	if v == nil {
		return nil
	}
	s := *v / n
	return &s
}

func dayAt(now time.Time, hour int) time.Time {
	local := now.Local()
	return time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, time.Local)
}
