package models

// ResourceStats сводка плана работ по исполнителю
type ResourceStats struct {
	ResourceID      int64
	Name            string
	Tasks           int
	InProgress      int
	Completed       int
	ScheduledEffort float64
	ActualEffort    float64
	RemainingEffort float64
}
