package connector

import (
	"context"
	"strings"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/workplan"
)

// ExternalWorkPlan строит план работ выбранного проекта.
// hostProjectID проект хост-системы для поиска исполнителей по полному имени, может быть nil.
func (c *Connector) ExternalWorkPlan(ctx context.Context, values models.ValueSet, hostProjectID *int64) (*models.ExternalWorkPlan, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}

	projectID := values.Get(models.KeyWPProject)
	excluded := StatusesToIgnore(values)
	types := ImportedWorkItemTypes(values)

	var items []models.WorkItem
	if rootID := strings.TrimSpace(values.Get(models.KeyWPEpic)); rootID != "" {
		items, err = svc.GetProjectWorkItemAndChildren(ctx, projectID, rootID, types, excluded...)
	} else {
		items, err = svc.GetProjectWorkItems(ctx, projectID, types, excluded...)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info("Work items fetched", "project_id", projectID, "count", len(items), "types", types)

	opts := workplan.OptsFromValues(values)
	opts.HostProjectID = hostProjectID

	return workplan.NewEngine(svc, c.users, opts, c.logger).Build(ctx, items)
}

// StatusesToIgnore закрытые состояния (если закрытые не включены) и игнорируемые состояния.
func StatusesToIgnore(values models.ValueSet) []string {
	var statuses []string
	if !values.GetBool(models.KeyWPIncludeClosed, false) {
		statuses = append(statuses, models.SplitList(values.GetOrDefault(models.KeyWPClosedStatuses, models.DefaultClosedStatuses))...)
	}
	return append(statuses, models.SplitList(values.GetOrDefault(models.KeyWPIgnoredStatuses, models.DefaultIgnoredStatuses))...)
}

// ImportedWorkItemTypes типы, отмеченные флагами WP_WIT_*, иначе список импортируемых типов.
func ImportedWorkItemTypes(values models.ValueSet) []string {
	if selected := values.SelectedWorkItemTypes(); len(selected) > 0 {
		return selected
	}
	return models.SplitList(values.GetOrDefault(models.KeyWPImportableWorkItemTypes, models.DefaultImportableWorkItemTypes))
}

// EnabledWorkItemTypes импортируемые типы, включённые в процессе проекта.
func (c *Connector) EnabledWorkItemTypes(ctx context.Context, values models.ValueSet, projectID string) ([]string, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}

	wits, err := svc.GetWorkItemTypesForProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	enabled := make(map[string]struct{}, len(wits))
	for _, wit := range wits {
		if !wit.IsDisabled {
			enabled[strings.ToLower(wit.Name)] = struct{}{}
		}
	}

	result := []string{}
	for _, t := range models.SplitList(values.GetOrDefault(models.KeyWPImportableWorkItemTypes, models.DefaultImportableWorkItemTypes)) {
		if _, ok := enabled[strings.ToLower(t)]; ok {
			result = append(result, t)
		}
	}
	return result, nil
}

// AllWorkItemsInfo облегчённый список элементов проекта: id, тип, состояние и заголовок.
func (c *Connector) AllWorkItemsInfo(ctx context.Context, values models.ValueSet, projectID string, types []string, excluded ...string) ([]models.WorkItem, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}
	return svc.GetAllWorkItemsInfoFromProject(ctx, projectID, types, excluded...)
}

// AgileEntityInfoFromMappingConfiguration сведения о сущности, с которой связан план.
func (c *Connector) AgileEntityInfoFromMappingConfiguration(values models.ValueSet) models.LinkedTaskAgileEntityInfo {
	return models.LinkedTaskAgileEntityInfo{ProjectID: values.Get(models.KeyWPProject)}
}
