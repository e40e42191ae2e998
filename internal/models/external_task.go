package models

import "time"

// TaskStatus статус задачи плана.
type TaskStatus string

const (
	TaskStatusReady      TaskStatus = "READY"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
)

// TaskKind вид задачи плана.
type TaskKind string

const (
	// TaskKindWorkItem задача, построенная из рабочего элемента.
	TaskKindWorkItem TaskKind = "work_item"
	// TaskKindWorkLeaf синтетический лист с собственной трудоёмкостью суммарной задачи.
	TaskKindWorkLeaf TaskKind = "work_leaf"
	// TaskKindIteration группирующая задача итерации.
	TaskKindIteration TaskKind = "iteration"
	// TaskKindNoIteration группа элементов без итерации.
	TaskKindNoIteration TaskKind = "no_iteration"
	// TaskKindStatus группирующая задача по статусу.
	TaskKindStatus TaskKind = "status"
)

// ExternalTask задача импортируемого плана работ.
type ExternalTask struct {
	Kind            TaskKind        `json:"kind"`
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Status          TaskStatus      `json:"status,omitempty"`
	ScheduledStart  *time.Time      `json:"scheduledStart,omitempty"`
	ScheduledFinish *time.Time      `json:"scheduledFinish,omitempty"`
	Effort          float64         `json:"effort"`
	Actuals         []Actuals       `json:"actuals,omitempty"`
	Children        []*ExternalTask `json:"children,omitempty"`
}

// Actuals фактические данные задачи для одного ресурса.
type Actuals struct {
	ResourceID               int64      `json:"resourceId"`
	ScheduledEffort          float64    `json:"scheduledEffort"`
	EstimatedRemainingEffort float64    `json:"estimatedRemainingEffort"`
	PercentComplete          float64    `json:"percentComplete"`
	ActualEffort             float64    `json:"actualEffort"`
	ActualStart              *time.Time `json:"actualStart,omitempty"`
	ActualFinish             *time.Time `json:"actualFinish,omitempty"`
}

// UnassignedResourceID ресурс для трудоёмкости без исполнителя.
const UnassignedResourceID int64 = -1

// ExternalWorkPlan результат импорта плана работ.
type ExternalWorkPlan struct {
	RootTasks []*ExternalTask `json:"rootTasks"`
}

// Walk обходит дерево задач в глубину, передавая уровень вложенности.
func (p *ExternalWorkPlan) Walk(fn func(task *ExternalTask, depth int)) {
	var walk func(tasks []*ExternalTask, depth int)
	walk = func(tasks []*ExternalTask, depth int) {
		for _, t := range tasks {
			fn(t, depth)
			walk(t.Children, depth+1)
		}
	}
	walk(p.RootTasks, 0)
}
