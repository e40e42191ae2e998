package workplan

import (
	"strings"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
)

// StatusClassifier относит состояние Azure DevOps к статусу задачи плана.
type StatusClassifier struct {
	inProgress map[string]struct{}
	closed     map[string]struct{}
}

// NewStatusClassifier создаёт классификатор. Сравнение без учёта регистра.
func NewStatusClassifier(inProgress, closed []string) StatusClassifier {
	return StatusClassifier{
		inProgress: lowerSet(inProgress),
		closed:     lowerSet(closed),
	}
}

// Classify возвращает статус. Если состояние есть в обоих списках, побеждает "в работе".
func (c StatusClassifier) Classify(state string) models.TaskStatus {
	key := strings.ToLower(strings.TrimSpace(state))
	if _, ok := c.inProgress[key]; ok {
		return models.TaskStatusInProgress
	}
	if _, ok := c.closed[key]; ok {
		return models.TaskStatusCompleted
	}
	return models.TaskStatusReady
}

func lowerSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return set
}
