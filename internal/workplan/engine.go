// Package workplan строит дерево задач плана работ из плоского списка рабочих элементов.
package workplan

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/services"
)

const (
	noIterationTaskID   = "no-iteration-task"
	noIterationTaskName = "No Sprint/Iteration"
)

// IterationSource поиск итерации по пути.
type IterationSource interface {
	GetIteration(ctx context.Context, iterationPath string) (*models.Iteration, error)
}

// Opts параметры построения плана.
type Opts struct {
	// ProjectID выбранный проект; родитель из другого проекта не связывается с ребёнком.
	ProjectID          string
	Grouping           string
	InProgressStatuses []string
	ClosedStatuses     []string
	// HostProjectID проект хост-системы для поиска исполнителей по полному имени.
	HostProjectID *int64
	Now           func() time.Time
}

// OptsFromValues собирает параметры из конфигурации хоста.
func OptsFromValues(values models.ValueSet) Opts {
	return Opts{
		ProjectID:          values.Get(models.KeyWPProject),
		Grouping:           values.Get(models.KeyImportGroups),
		InProgressStatuses: models.SplitList(values.GetOrDefault(models.KeyWPInProgressStatuses, models.DefaultInProgressStatuses)),
		ClosedStatuses:     models.SplitList(values.GetOrDefault(models.KeyWPClosedStatuses, models.DefaultClosedStatuses)),
	}
}

// Engine строит план работ. Один экземпляр на один проход синхронизации, не реентерабелен.
type Engine struct {
	iterations IterationSource
	users      services.UserLookup
	opts       Opts
	classifier StatusClassifier
	logger     *slog.Logger
}

// NewEngine создаёт построитель плана.
func NewEngine(iterations IterationSource, users services.UserLookup, opts Opts, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{
		iterations: iterations,
		users:      users,
		opts:       opts,
		classifier: NewStatusClassifier(opts.InProgressStatuses, opts.ClosedStatuses),
		logger:     logger,
	}
}

// Build группирует элементы выбранным способом и возвращает корневые задачи.
func (e *Engine) Build(ctx context.Context, items []models.WorkItem) (*models.ExternalWorkPlan, error) {
	tasks := make([]*task, 0, len(items))
	for i := range items {
		t := newTask(&items[i])
		if err := t.resolve(ctx, e); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}

	var roots []*models.ExternalTask
	switch e.opts.Grouping {
	case models.GroupStatus:
		roots = e.groupByStatus(tasks)
	case models.GroupSprint:
		roots = e.groupBySprint(tasks)
	default:
		roots = e.renderAll(e.groupByStructure(tasks))
	}

	e.logger.Debug("Work plan built", "items", len(items), "roots", len(roots), "grouping", e.opts.Grouping)
	return &models.ExternalWorkPlan{RootTasks: roots}, nil
}

// groupByStructure связывает элементы с родителями из того же набора и того же проекта.
// Элемент с отсутствующим в наборе родителем становится корнем.
func (e *Engine) groupByStructure(tasks []*task) []*task {
	byID := make(map[string]*task, len(tasks))
	for _, t := range tasks {
		byID[t.id()] = t
	}

	var roots []*task
	for _, t := range tasks {
		parent, ok := byID[t.item.ParentWorkItemID()]
		if ok && parent != t && e.sameProject(t, parent) {
			parent.children = append(parent.children, t)
			continue
		}
		roots = append(roots, t)
	}

	for _, t := range tasks {
		if len(t.children) > 0 && t.effort() > 0 {
			t.children = append([]*task{t.workLeaf()}, t.children...)
		}
	}
	return roots
}

func (e *Engine) sameProject(child, parent *task) bool {
	parentProject := child.item.ParentProjectID()
	if parentProject == "" {
		parentProject = parent.item.ProjectID()
	}

	expected := e.opts.ProjectID
	if expected == "" {
		expected = child.item.ProjectID()
	}
	return strings.EqualFold(parentProject, expected)
}

// groupBySprint одна корневая задача на итерацию по возрастанию даты начала,
// итерации без даты первыми, элементы без итерации в последней группе.
func (e *Engine) groupBySprint(tasks []*task) []*models.ExternalTask {
	var (
		iterations  []*models.Iteration
		byPath      = make(map[string][]*task)
		noIteration []*task
	)
	for _, t := range tasks {
		path := t.iterationPath()
		if path == "" {
			noIteration = append(noIteration, t)
			continue
		}
		if _, seen := byPath[path]; !seen {
			iterations = append(iterations, t.attrs.iteration)
		}
		byPath[path] = append(byPath[path], t)
	}

	sort.SliceStable(iterations, func(i, j int) bool {
		return startsBefore(iterations[i].StartDate(), iterations[j].StartDate())
	})

	roots := make([]*models.ExternalTask, 0, len(iterations)+1)
	for _, it := range iterations {
		roots = append(roots, &models.ExternalTask{
			Kind:            models.TaskKindIteration,
			ID:              it.Path,
			Name:            it.Name,
			ScheduledStart:  it.StartDate(),
			ScheduledFinish: it.FinishDate(),
			Children:        e.renderAll(e.groupByStructure(byPath[it.Path])),
		})
	}

	if len(noIteration) > 0 {
		roots = append(roots, &models.ExternalTask{
			Kind:     models.TaskKindNoIteration,
			ID:       noIterationTaskID,
			Name:     noIterationTaskName,
			Children: e.renderAll(e.groupByStructure(noIteration)),
		})
	}
	return roots
}

func startsBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	default:
		return a.Before(*b)
	}
}

// groupByStatus одна корневая задача на состояние в порядке первого появления.
func (e *Engine) groupByStatus(tasks []*task) []*models.ExternalTask {
	var (
		states  []string
		byState = make(map[string][]*task)
	)
	for _, t := range tasks {
		state := t.item.State()
		if _, seen := byState[state]; !seen {
			states = append(states, state)
		}
		byState[state] = append(byState[state], t)
	}

	roots := make([]*models.ExternalTask, 0, len(states))
	for _, state := range states {
		roots = append(roots, &models.ExternalTask{
			Kind:     models.TaskKindStatus,
			ID:       state,
			Name:     state,
			Children: e.renderAll(e.groupByStructure(byState[state])),
		})
	}
	return roots
}

func (e *Engine) renderAll(tasks []*task) []*models.ExternalTask {
	out := make([]*models.ExternalTask, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, e.render(t))
	}
	return out
}

func (e *Engine) render(t *task) *models.ExternalTask {
	now := e.opts.Now()
	start, finish := t.schedule(now)

	kind := models.TaskKindWorkItem
	if t.leaf {
		kind = models.TaskKindWorkLeaf
	}

	return &models.ExternalTask{
		Kind:            kind,
		ID:              t.id(),
		Name:            t.name(),
		Status:          t.status(e.classifier),
		ScheduledStart:  start,
		ScheduledFinish: finish,
		Effort:          t.effort(),
		Actuals:         t.actuals(e.classifier, now),
		Children:        e.renderAll(t.children),
	}
}
