package connector

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/services"
)

// EntityTypes типы рабочих элементов проекта. Имя типа служит и идентификатором.
func (c *Connector) EntityTypes(ctx context.Context, values models.ValueSet, projectID string) ([]models.AgileEntityInfo, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}

	wits, err := svc.GetWorkItemTypesForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	result := make([]models.AgileEntityInfo, 0, len(wits))
	for _, wit := range wits {
		result = append(result, models.AgileEntityInfo{Name: wit.Name, Type: wit.Name})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return lessFold(result[i].Name, result[j].Name)
	})
	return result, nil
}

// EntityFields поля, доступные для сопоставления, по алфавиту.
func (c *Connector) EntityFields(ctx context.Context, values models.ValueSet, projectID, entityType string) ([]models.AgileEntityFieldInfo, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}

	fields, err := svc.GetFieldsDetails(ctx, projectID, entityType)
	if err != nil {
		return nil, err
	}

	result := make([]models.AgileEntityFieldInfo, 0, len(fields))
	for _, f := range fields {
		if !services.IsMappableField(f) {
			continue
		}
		result = append(result, models.AgileEntityFieldInfo{
			ID:        f.ReferenceName,
			Label:     f.Name,
			FieldType: services.AgileFieldType(f),
			ListType:  f.HasAllowedValues(),
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return lessFold(result[i].Label, result[j].Label)
	})
	return result, nil
}

// FieldAllowedValues допустимые значения поля или пустой список, если поле не найдено.
func (c *Connector) FieldAllowedValues(ctx context.Context, values models.ValueSet, projectID, entityType, fieldName string) ([]models.AgileEntityFieldValue, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}

	fields, err := svc.GetFieldsDetails(ctx, projectID, entityType)
	if err != nil {
		return nil, err
	}

	result := []models.AgileEntityFieldValue{}
	for _, f := range fields {
		if f.ReferenceName != fieldName {
			continue
		}
		for _, v := range f.AllowedValues {
			result = append(result, models.AgileEntityFieldValue{ID: v, Name: v})
		}
		break
	}
	return result, nil
}

// GetEntity возвращает сущность или nil для пустого идентификатора.
func (c *Connector) GetEntity(ctx context.Context, values models.ValueSet, projectID, entityType, entityID string) (*models.AgileEntity, error) {
	if strings.TrimSpace(entityID) == "" {
		return nil, nil
	}

	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}

	wi, err := svc.GetSingleWorkItem(ctx, entityID)
	if err != nil {
		return nil, err
	}

	fields, err := svc.GetFieldsDetails(ctx, projectID, entityType)
	if err != nil {
		return nil, err
	}
	return svc.WorkItemToAgileEntity(ctx, wi, fields)
}

// GetEntities возвращает сущности из ids, изменённые после modifiedSince (если задано).
func (c *Connector) GetEntities(ctx context.Context, values models.ValueSet, projectID, entityType string, ids []string, modifiedSince *time.Time) ([]models.AgileEntity, error) {
	if len(ids) == 0 {
		return []models.AgileEntity{}, nil
	}

	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}

	fields, err := svc.GetFieldsDetails(ctx, projectID, entityType)
	if err != nil {
		return nil, err
	}

	entities := make([]models.AgileEntity, 0, len(ids))
	for start := 0; start < len(ids); start += services.BatchSize {
		end := min(start+services.BatchSize, len(ids))

		items, err := svc.GetWorkItemsModifiedSince(ctx, projectID, entityType, ids[start:end], modifiedSince)
		if err != nil {
			return nil, err
		}

		for i := range items {
			ae, err := svc.WorkItemToAgileEntity(ctx, &items[i], fields)
			if err != nil {
				return nil, err
			}
			entities = append(entities, *ae)
		}
	}
	return entities, nil
}

// CreateEntity создаёт элемент и заполняет его поля. Возвращает только id, адрес и дату изменения.
func (c *Connector) CreateEntity(ctx context.Context, values models.ValueSet, projectID, entityType string, entity *models.AgileEntity) (*models.AgileEntity, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}

	wi, err := svc.CreateWorkItem(ctx, projectID, entityType)
	if err != nil {
		return nil, err
	}
	entity.ID = wi.IDString()

	return c.updateEntity(ctx, svc, projectID, entity)
}

// UpdateEntity обновляет поля элемента. Возвращает только id, адрес и дату изменения.
func (c *Connector) UpdateEntity(ctx context.Context, values models.ValueSet, projectID string, entity *models.AgileEntity) (*models.AgileEntity, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}
	return c.updateEntity(ctx, svc, projectID, entity)
}

func (c *Connector) updateEntity(ctx context.Context, svc *services.AzureDevopsService, projectID string, entity *models.AgileEntity) (*models.AgileEntity, error) {
	wi, err := svc.UpdateWorkItem(ctx, projectID, entity.ID, entity.Fields)
	if err != nil {
		return nil, err
	}

	lastUpdate, err := wi.LastUpdateTime()
	if err != nil {
		return nil, fmt.Errorf("update entity: %w", err)
	}

	return &models.AgileEntity{
		ID:             wi.IDString(),
		EntityURL:      svc.WorkItemURL(wi.IDString()),
		LastUpdateTime: lastUpdate,
	}, nil
}

// EntityIDsCreatedSince все элементы типа, созданные после since. Какие из них уже
// сопоставлены в хост-системе, определить нельзя, поэтому возвращаются все.
func (c *Connector) EntityIDsCreatedSince(ctx context.Context, values models.ValueSet, projectID, entityType string, since *time.Time) ([]models.AgileEntityIDProjectDate, error) {
	if projectID == "" || entityType == "" {
		return []models.AgileEntityIDProjectDate{}, nil
	}

	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}
	return svc.GetAgileEntityIDsCreatedSince(ctx, projectID, entityType, since)
}

// CandidateEntities пары id/имя элементов типа для связывания с запросами хост-системы.
func (c *Connector) CandidateEntities(ctx context.Context, values models.ValueSet, projectID, entityType string) ([]models.AgileEntityIDName, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}
	return svc.GetAgileEntityIDsAndNames(ctx, projectID, entityType)
}
