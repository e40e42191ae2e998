package workplan

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
)

func TestStatusClassifier(t *testing.T) {
	c := NewStatusClassifier([]string{"Active", " Doing", "Resolved"}, []string{"Closed", "Resolved"})

	assert.Equal(t, models.TaskStatusInProgress, c.Classify("active"))
	assert.Equal(t, models.TaskStatusInProgress, c.Classify("DOING"))
	assert.Equal(t, models.TaskStatusCompleted, c.Classify("closed"))
	assert.Equal(t, models.TaskStatusInProgress, c.Classify("Resolved"))
	assert.Equal(t, models.TaskStatusReady, c.Classify("New"))
	assert.Equal(t, models.TaskStatusReady, c.Classify(""))
}
