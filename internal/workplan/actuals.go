package workplan

import (
	"math"
	"time"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
)

const maxInProgressPercent = 99

// ActualsInput исходные данные для расчёта фактических данных одного ресурса.
// Нулевой указатель означает, что значение неизвестно.
type ActualsInput struct {
	ResourceID      int64
	Status          models.TaskStatus
	ScheduledEffort *float64
	RemainingEffort *float64
	ScheduledStart  *time.Time
	ScheduledFinish *time.Time
}

// ComputeActuals согласует плановую и оставшуюся трудоёмкость с процентом выполнения так,
// чтобы ActualEffort = ScheduledEffort * PercentComplete / 100 и
// EstimatedRemainingEffort = ScheduledEffort - ActualEffort.
func ComputeActuals(in ActualsInput) models.Actuals {
	se, seKnown := known(in.ScheduledEffort)
	re, reKnown := known(in.RemainingEffort)

	a := models.Actuals{ResourceID: in.ResourceID}

	switch in.Status {
	case models.TaskStatusCompleted:
		a.ScheduledEffort = se
		a.PercentComplete = 100
		a.ActualEffort = se
		a.EstimatedRemainingEffort = 0

	case models.TaskStatusInProgress:
		switch {
		case seKnown && reKnown:
			ae := math.Max(se-re, 0)
			a.ScheduledEffort = se
			a.EstimatedRemainingEffort = re
			a.ActualEffort = ae
			switch {
			case ae == 0:
				a.PercentComplete = 1
			default:
				a.PercentComplete = math.Min(100*ae/(ae+re), maxInProgressPercent)
			}
		case reKnown:
			a.ScheduledEffort = 2 * re
			a.EstimatedRemainingEffort = re
			a.ActualEffort = re
			a.PercentComplete = 50
		case seKnown:
			a.ScheduledEffort = se
			a.EstimatedRemainingEffort = se / 2
			a.ActualEffort = se / 2
			a.PercentComplete = 50
		default:
			a.PercentComplete = 50
		}

	default:
		a.ScheduledEffort = se
		a.EstimatedRemainingEffort = se
		if reKnown {
			a.EstimatedRemainingEffort = re
			if !seKnown {
				a.ScheduledEffort = re
			}
		}
	}

	if in.Status != models.TaskStatusReady {
		a.ActualStart = in.ScheduledStart
	}
	if in.Status == models.TaskStatusCompleted {
		a.ActualFinish = in.ScheduledFinish
	}
	return a
}

func known(v *float64) (float64, bool) {
	if v == nil {
		return 0, false
	}
	return *v, true
}
