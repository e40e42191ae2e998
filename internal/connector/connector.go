// Package connector точки входа, которые вызывает хост-система.
//
// Каждый вызов создаёт собственный сервис с новым кэшем метаданных,
// поэтому методы не разделяют состояние между вызовами.
package connector

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/services"
)

// Descriptor сведения о коннекторе для хост-системы.
type Descriptor struct {
	ExternalApplicationName                     string `json:"externalApplicationName"`
	ExternalApplicationVersionIndication        string `json:"externalApplicationVersionIndication"`
	ConnectorVersion                            string `json:"connectorVersion"`
	SupportsTimesheetingAgainstExternalWorkPlan bool   `json:"supportsTimesheetingAgainstExternalWorkPlan"`
	SupportsAgileEntityToNewRequestSync         bool   `json:"supportsAgileEntityToNewRequestSync"`
	SupportsRequestToExistingAgileEntitySync    bool   `json:"supportsRequestToExistingAgileEntitySync"`
}

// ServiceFactory создаёт сервис Azure DevOps по конфигурации хоста.
type ServiceFactory func(values models.ValueSet, users services.UserLookup, logger *slog.Logger) (*services.AzureDevopsService, error)

// Connector фасад синхронизации.
type Connector struct {
	users      services.UserLookup
	newService ServiceFactory
	logger     *slog.Logger
}

// New создаёт фасад. users выбирается встраивающей стороной.
func New(users services.UserLookup, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		users:      users,
		newService: services.NewServiceFromConfig,
		logger:     logger,
	}
}

// Descriptor возвращает сведения о коннекторе.
func (c *Connector) Descriptor() Descriptor {
	return Descriptor{
		ExternalApplicationName:                     "Azure Devops",
		ExternalApplicationVersionIndication:        "2023+",
		ConnectorVersion:                            "0.3",
		SupportsTimesheetingAgainstExternalWorkPlan: true,
		SupportsAgileEntityToNewRequestSync:         true,
		SupportsRequestToExistingAgileEntitySync:    true,
	}
}

func (c *Connector) service(values models.ValueSet) (*services.AzureDevopsService, error) {
	return c.newService(values, c.users, c.logger)
}

// TestConnection возвращает текст ошибки подключения или пустую строку.
func (c *Connector) TestConnection(ctx context.Context, values models.ValueSet) string {
	svc, err := c.service(values)
	if err != nil {
		return err.Error()
	}
	return svc.TestConnection(ctx)
}

// ListProjects возвращает проекты организации, отсортированные по имени.
func (c *Connector) ListProjects(ctx context.Context, values models.ValueSet) ([]models.AgileProject, error) {
	svc, err := c.service(values)
	if err != nil {
		return nil, err
	}

	projects, err := svc.GetAllAvailableProjects(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.AgileProject, 0, len(projects))
	for _, p := range projects {
		result = append(result, models.AgileProject{Value: p.ID, DisplayName: p.Name})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return lessFold(result[i].DisplayName, result[j].DisplayName)
	})
	return result, nil
}

func lessFold(a, b string) bool {
	return strings.ToLower(a) < strings.ToLower(b)
}
