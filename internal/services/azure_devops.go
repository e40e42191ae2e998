package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
	"github.com/DevN0mad/AzureDevOpsConnector/internal/wiql"
)

// RestGateway транспорт к REST API Azure DevOps.
type RestGateway interface {
	Get(ctx context.Context, uri string) ([]byte, error)
	Post(ctx context.Context, uri string, payload []byte) ([]byte, error)
	PostPatch(ctx context.Context, uri string, payload []byte) ([]byte, error)
	Patch(ctx context.Context, uri string, payload []byte) ([]byte, error)
	BaseURL() string
}

// Query запрос WIQL.
type Query interface {
	Build() string
	NeedsTime() bool
}

// AzureDevopsService выполняет вызовы REST API Azure DevOps.
//
// Сервис содержит кэш метаданных, который никогда не инвалидируется, поэтому
// на каждый вызов хост-системы создаётся новый экземпляр. Не потокобезопасен.
type AzureDevopsService struct {
	rest   RestGateway
	cache  *MetadataCache
	users  UserLookup
	logger *slog.Logger
}

// NewAzureDevopsService создаёт сервис. Пустой cache заменяется новым.
func NewAzureDevopsService(rest RestGateway, cache *MetadataCache, users UserLookup, logger *slog.Logger) *AzureDevopsService {
	if logger == nil {
		logger = slog.Default()
	}
	if cache == nil {
		cache = NewMetadataCache()
	}
	return &AzureDevopsService{
		rest:   rest,
		cache:  cache,
		users:  users,
		logger: logger,
	}
}

// Users стратегия сопоставления пользователей.
func (s *AzureDevopsService) Users() UserLookup {
	return s.users
}

// Cache кэш метаданных экземпляра.
func (s *AzureDevopsService) Cache() *MetadataCache {
	return s.cache
}

// GetAllAvailableProjects возвращает проекты организации.
func (s *AzureDevopsService) GetAllAvailableProjects(ctx context.Context) ([]models.Project, error) {
	body, err := s.rest.Get(ctx, apiProjectsURL)
	if err != nil {
		return nil, fmt.Errorf("get projects: %w", err)
	}
	return decodeList[models.Project](body)
}

// TestConnection проверяет подключение. Возвращает текст ошибки или пустую строку.
func (s *AzureDevopsService) TestConnection(ctx context.Context) string {
	body, err := s.rest.Get(ctx, apiConnectionDataURL)
	if err == nil {
		var data models.ConnectionData
		err = json.Unmarshal(body, &data)
	}
	if err != nil {
		s.logger.Error("Connection test failed", "error", err)
		return err.Error()
	}
	return ""
}

// RunQuery выполняет WIQL в проекте и возвращает идентификаторы в порядке ответа.
// Проект обязателен: он помогает не превысить лимит в 20000 элементов.
func (s *AzureDevopsService) RunQuery(ctx context.Context, q Query, projectID string) ([]int64, error) {
	uri := "/" + url.PathEscape(projectID) + apiWIQLURL
	if q.NeedsTime() {
		uri += "&timePrecision=true"
	}

	payload, err := json.Marshal(struct {
		Query string `json:"query"`
	}{Query: q.Build()})
	if err != nil {
		return nil, fmt.Errorf("marshal wiql: %w", err)
	}

	body, err := s.rest.Post(ctx, uri, payload)
	if err != nil {
		return nil, fmt.Errorf("run wiql: %w", err)
	}

	var resp wiqlResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse wiql response: %w", err)
	}

	ids := make([]int64, 0, len(resp.WorkItems)+len(resp.WorkItemRelations))
	for _, wi := range resp.WorkItems {
		ids = append(ids, wi.ID)
	}
	for _, rel := range resp.WorkItemRelations {
		if rel.Target == nil {
			continue
		}
		ids = append(ids, rel.Target.ID)
	}

	s.logger.Debug("WIQL executed", "project_id", projectID, "count", len(ids))
	return ids, nil
}

type wiqlReference struct {
	ID  int64  `json:"id"`
	URL string `json:"url"`
}

type wiqlResponse struct {
	WorkItems         []wiqlReference `json:"workItems"`
	WorkItemRelations []struct {
		Rel    string         `json:"rel"`
		Source *wiqlReference `json:"source"`
		Target *wiqlReference `json:"target"`
	} `json:"workItemRelations"`
}

// GetWorkItemsByIDs получает рабочие элементы пачками по BatchSize с сохранением порядка.
// Без fields связи раскрываются; API не позволяет одновременно задать поля и раскрыть связи.
func (s *AzureDevopsService) GetWorkItemsByIDs(ctx context.Context, ids []int64, projectID string, fields ...string) ([]models.WorkItem, error) {
	if len(ids) == 0 {
		return []models.WorkItem{}, nil
	}

	workItems := make([]models.WorkItem, 0, len(ids))
	for start := 0; start < len(ids); start += BatchSize {
		end := min(start+BatchSize, len(ids))

		batch, err := s.getWorkItemsBatch(ctx, ids[start:end], projectID, fields)
		if err != nil {
			return nil, err
		}
		workItems = append(workItems, batch...)
	}

	return workItems, nil
}

func (s *AzureDevopsService) getWorkItemsBatch(ctx context.Context, ids []int64, projectID string, fields []string) ([]models.WorkItem, error) {
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = strconv.FormatInt(id, 10)
	}

	uri := apiWorkItemsURL + "&ids=" + strings.Join(strIDs, ",")
	if projectID != "" {
		uri = "/" + url.PathEscape(projectID) + uri
	}
	if len(fields) > 0 {
		uri += "&fields=" + strings.Join(fields, ",")
	} else {
		uri += "&$expand=relations"
	}

	body, err := s.rest.Get(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("get work items: %w", err)
	}
	return decodeList[models.WorkItem](body)
}

// GetSingleWorkItem возвращает элемент по идентификатору или nil.
func (s *AzureDevopsService) GetSingleWorkItem(ctx context.Context, id string) (*models.WorkItem, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}

	numID, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid work item id %q: %w", id, err)
	}

	items, err := s.GetWorkItemsByIDs(ctx, []int64{numID}, "")
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// GetProjectWorkItems возвращает элементы проекта заданных типов, исключая состояния.
func (s *AzureDevopsService) GetProjectWorkItems(ctx context.Context, projectID string, workItemTypes []string, statusesToExclude ...string) ([]models.WorkItem, error) {
	q := newQuery().ExcludeStatuses(statusesToExclude...).WorkItemTypes(workItemTypes...)

	ids, err := s.RunQuery(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	return s.GetWorkItemsByIDs(ctx, ids, "")
}

// GetAllWorkItemsInfoFromProject облегчённая выборка: только заголовок, тип и состояние.
func (s *AzureDevopsService) GetAllWorkItemsInfoFromProject(ctx context.Context, projectID string, workItemTypes []string, statusesToExclude ...string) ([]models.WorkItem, error) {
	q := newQuery().ExcludeStatuses(statusesToExclude...).WorkItemTypes(workItemTypes...)

	ids, err := s.RunQuery(ctx, q, projectID)
	if err != nil {
		return nil, err
	}

	items, err := s.GetWorkItemsByIDs(ctx, ids, "", models.FieldTitle, models.FieldWorkItemType, models.FieldState)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].Name = items[i].Title()
	}
	return items, nil
}

// GetProjectWorkItemAndChildren возвращает элемент rootID и всех его потомков рекурсивно.
func (s *AzureDevopsService) GetProjectWorkItemAndChildren(ctx context.Context, projectID, rootID string, workItemTypes []string, statusesToExclude ...string) ([]models.WorkItem, error) {
	q := newLinksQuery(rootID).ExcludeStatuses(statusesToExclude...).WorkItemTypes(workItemTypes...)

	ids, err := s.RunQuery(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	return s.GetWorkItemsByIDs(ctx, dedupeIDs(ids), "")
}

// GetWorkItemsModifiedSince возвращает элементы из ids, изменённые после since.
func (s *AzureDevopsService) GetWorkItemsModifiedSince(ctx context.Context, projectID, workItemType string, ids []string, since *time.Time) ([]models.WorkItem, error) {
	q := newQuery().WorkItemTypes(workItemType).ModifiedAfter(since).IDs(ids...)

	validIDs, err := s.RunQuery(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	return s.GetWorkItemsByIDs(ctx, validIDs, "")
}

// GetAgileEntityIDsCreatedSince возвращает элементы типа, созданные после since.
func (s *AzureDevopsService) GetAgileEntityIDsCreatedSince(ctx context.Context, projectID, workItemType string, since *time.Time) ([]models.AgileEntityIDProjectDate, error) {
	q := newQuery().WorkItemTypes(workItemType).CreatedAfter(since)

	ids, err := s.RunQuery(ctx, q, projectID)
	if err != nil {
		return nil, err
	}

	items, err := s.GetWorkItemsByIDs(ctx, ids, "", models.FieldCreatedDate)
	if err != nil {
		return nil, err
	}

	result := make([]models.AgileEntityIDProjectDate, 0, len(items))
	for i := range items {
		result = append(result, models.AgileEntityIDProjectDate{
			ID:        items[i].IDString(),
			ProjectID: projectID,
			Date:      items[i].DateField(models.FieldCreatedDate),
		})
	}
	return result, nil
}

// GetAgileEntityIDsAndNames возвращает идентификаторы и заголовки элементов типа.
func (s *AzureDevopsService) GetAgileEntityIDsAndNames(ctx context.Context, projectID, workItemType string) ([]models.AgileEntityIDName, error) {
	ids, err := s.RunQuery(ctx, newQuery().WorkItemTypes(workItemType), projectID)
	if err != nil {
		return nil, err
	}

	items, err := s.GetWorkItemsByIDs(ctx, ids, "", models.FieldTitle)
	if err != nil {
		return nil, err
	}

	result := make([]models.AgileEntityIDName, 0, len(items))
	for i := range items {
		result = append(result, models.AgileEntityIDName{ID: items[i].IDString(), Name: items[i].Title()})
	}
	return result, nil
}

// CreateWorkItem создаёт элемент с минимальным заголовком, остальные поля задаются обновлением.
func (s *AzureDevopsService) CreateWorkItem(ctx context.Context, projectID, workItemType string) (*models.WorkItem, error) {
	uri := "/" + url.PathEscape(projectID) + apiWorkItemsEndpoint + "/$" + url.PathEscape(workItemType) +
		apiVersionSuffix + "&bypassRules=true"

	payload, err := json.Marshal([]patchOperation{{
		Op:    "add",
		Path:  "/fields/" + models.FieldTitle,
		Value: createdWorkItemTitle,
	}})
	if err != nil {
		return nil, fmt.Errorf("marshal create payload: %w", err)
	}

	body, err := s.rest.PostPatch(ctx, uri, payload)
	if err != nil {
		return nil, fmt.Errorf("create work item: %w", err)
	}
	return decodeOne[models.WorkItem](body)
}

type patchOperation struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

// UpdateWorkItem отправляет по одной операции JSON Patch на поле:
// remove для пустого значения, иначе replace. Правила процесса не проверяются.
func (s *AzureDevopsService) UpdateWorkItem(ctx context.Context, projectID, workItemID string, fields map[string]*models.DataField) (*models.WorkItem, error) {
	uri := "/" + url.PathEscape(projectID) + apiWorkItemsEndpoint + "/" + url.PathEscape(workItemID) +
		apiVersionSuffix + "&$expand=relations&bypassRules=true"

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ops := make([]patchOperation, 0, len(keys))
	for _, key := range keys {
		op := patchOperation{Path: "/fields/" + key}
		if f := fields[key]; f.IsEmpty() {
			op.Op = "remove"
		} else {
			op.Op = "replace"
			op.Value = patchValue(f)
		}
		ops = append(ops, op)
	}

	payload, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("marshal update payload: %w", err)
	}

	body, err := s.rest.Patch(ctx, uri, payload)
	if err != nil {
		return nil, fmt.Errorf("update work item %s: %w", workItemID, err)
	}
	return decodeOne[models.WorkItem](body)
}

// patchValue пользователи передаются полными именами через ';'.
func patchValue(f *models.DataField) any {
	switch v := f.Value.(type) {
	case models.User:
		return v.FullName
	case *models.User:
		return v.FullName
	case []models.User:
		names := make([]string, len(v))
		for i, u := range v {
			names[i] = u.FullName
		}
		return strings.Join(names, ";")
	case float64, float32, int, int64, int32:
		return v
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// GetWorkItemTypesForProject возвращает типы элементов проекта (с кэшированием).
func (s *AzureDevopsService) GetWorkItemTypesForProject(ctx context.Context, projectID string) ([]models.WorkItemType, error) {
	if strings.TrimSpace(projectID) == "" {
		// Проект ещё не выбран на экране настройки.
		return []models.WorkItemType{}, nil
	}

	if wits, ok := s.cache.WorkItemTypes(projectID); ok {
		return wits, nil
	}

	body, err := s.rest.Get(ctx, "/"+url.PathEscape(projectID)+apiWorkItemTypesURL)
	if err != nil {
		return nil, fmt.Errorf("get work item types: %w", err)
	}

	wits, err := decodeList[models.WorkItemType](body)
	if err != nil {
		return nil, err
	}

	s.cache.SetWorkItemTypes(projectID, wits)
	return wits, nil
}

// GetIteration ищет итерацию по пути. Путь без '\' или неизвестная итерация дают nil.
func (s *AzureDevopsService) GetIteration(ctx context.Context, iterationPath string) (*models.Iteration, error) {
	idx := strings.Index(iterationPath, `\`)
	if strings.TrimSpace(iterationPath) == "" || idx < 0 {
		return nil, nil
	}

	projectKey := iterationPath[:idx]

	iterations, ok := s.cache.Iterations(projectKey)
	if !ok {
		body, err := s.rest.Get(ctx, "/"+url.PathEscape(projectKey)+apiIterationsURL)
		if err != nil {
			return nil, fmt.Errorf("get iterations of %q: %w", projectKey, err)
		}

		iterations, err = decodeList[models.Iteration](body)
		if err != nil {
			return nil, err
		}
		s.cache.SetIterations(projectKey, iterations)
	}

	for i := range iterations {
		if strings.EqualFold(iterationPath, iterations[i].Path) {
			return &iterations[i], nil
		}
	}
	return nil, nil
}

// GetFieldsDetails возвращает поля типа элемента. Нужны два вызова: поля типа
// (с допустимыми значениями) и поля проекта (с типом). Тип берётся из второго.
func (s *AzureDevopsService) GetFieldsDetails(ctx context.Context, projectID, workItemType string) ([]models.Field, error) {
	if fields, ok := s.cache.Fields(projectID, workItemType); ok {
		return fields, nil
	}

	project := "/" + url.PathEscape(projectID)

	body, err := s.rest.Get(ctx, project+apiWorkItemTypesEndpt+"/"+url.PathEscape(workItemType)+"/fields"+apiVersionSuffix+"&$expand=allowedValues")
	if err != nil {
		return nil, fmt.Errorf("get work item type fields: %w", err)
	}
	witFields, err := decodeList[models.Field](body)
	if err != nil {
		return nil, err
	}

	body, err = s.rest.Get(ctx, project+apiFieldsURL)
	if err != nil {
		return nil, fmt.Errorf("get fields: %w", err)
	}
	detailed, err := decodeList[models.Field](body)
	if err != nil {
		return nil, err
	}

	typeByRef := make(map[string]string, len(detailed))
	for _, f := range detailed {
		typeByRef[f.ReferenceName] = f.Type
	}
	for i := range witFields {
		if t, ok := typeByRef[witFields[i].ReferenceName]; ok {
			witFields[i].Type = t
		}
	}

	s.cache.SetFields(projectID, workItemType, witFields)
	return witFields, nil
}

// WorkItemURL адрес элемента в веб-интерфейсе. Проект не нужен: Azure DevOps перенаправит сам.
func (s *AzureDevopsService) WorkItemURL(id string) string {
	return s.rest.BaseURL() + workItemEditPath + id
}

// WorkItemToAgileEntity переводит элемент в сущность хост-системы по списку полей.
func (s *AzureDevopsService) WorkItemToAgileEntity(ctx context.Context, wi *models.WorkItem, fields []models.Field) (*models.AgileEntity, error) {
	if wi == nil {
		return nil, nil
	}

	lastUpdate, err := wi.LastUpdateTime()
	if err != nil {
		return nil, err
	}

	ae := &models.AgileEntity{
		ID:             wi.IDString(),
		EntityURL:      s.WorkItemURL(wi.IDString()),
		LastUpdateTime: lastUpdate,
	}
	for _, f := range fields {
		ae.AddField(f.ReferenceName, DataFieldFromWorkItem(ctx, wi, f, s.users, s.logger))
	}
	return ae, nil
}

func decodeList[T any](body []byte) ([]T, error) {
	var resp struct {
		Value []T `json:"value"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse list response: %w", err)
	}
	if resp.Value == nil {
		return []T{}, nil
	}
	return resp.Value, nil
}

func decodeOne[T any](body []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &v, nil
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func newQuery() *wiql.Builder {
	return wiql.NewBuilder()
}

func newLinksQuery(rootID string) *wiql.LinksBuilder {
	return wiql.NewLinksBuilder(rootID)
}
