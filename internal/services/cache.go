package services

import "github.com/DevN0mad/AzureDevOpsConnector/internal/models"

// MetadataCache кэш метаданных на время жизни одного экземпляра сервиса.
//
// Записи никогда не инвалидируются, поэтому кэш нельзя делать глобальным
// или разделять между вызовами и горутинами: новый проход синхронизации
// должен создавать новый кэш.
type MetadataCache struct {
	workItemTypes map[string][]models.WorkItemType
	iterations    map[string][]models.Iteration
	fields        map[string][]models.Field
}

// NewMetadataCache создаёт пустой кэш.
func NewMetadataCache() *MetadataCache {
	return &MetadataCache{
		workItemTypes: make(map[string][]models.WorkItemType),
		iterations:    make(map[string][]models.Iteration),
		fields:        make(map[string][]models.Field),
	}
}

func (c *MetadataCache) WorkItemTypes(projectID string) ([]models.WorkItemType, bool) {
	v, ok := c.workItemTypes[projectID]
	return v, ok
}

func (c *MetadataCache) SetWorkItemTypes(projectID string, types []models.WorkItemType) {
	c.workItemTypes[projectID] = types
}

// Iterations итерации по ключу проекта (первый сегмент пути итерации).
func (c *MetadataCache) Iterations(projectKey string) ([]models.Iteration, bool) {
	v, ok := c.iterations[projectKey]
	return v, ok
}

func (c *MetadataCache) SetIterations(projectKey string, iterations []models.Iteration) {
	c.iterations[projectKey] = iterations
}

// Fields поля типа элемента в проекте.
func (c *MetadataCache) Fields(projectID, workItemType string) ([]models.Field, bool) {
	v, ok := c.fields[fieldsKey(projectID, workItemType)]
	return v, ok
}

func (c *MetadataCache) SetFields(projectID, workItemType string, fields []models.Field) {
	c.fields[fieldsKey(projectID, workItemType)] = fields
}

func fieldsKey(projectID, workItemType string) string {
	return projectID + "_" + workItemType
}
