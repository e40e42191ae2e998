package services

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/DevN0mad/AzureDevOpsConnector/internal/models"
)

// Поля-пользователи объявлены в API как строки, поэтому распознаются по ссылочному имени.
var (
	userFieldPrefixes = []string{
		"Microsoft.VSTS.CMMI.ActualAttendee",
		"Microsoft.VSTS.CMMI.OptionalAttendee",
		"Microsoft.VSTS.CMMI.RequiredAttendee",
		"Microsoft.VSTS.CMMI.SubjectMatterExpert",
	}
	userFieldNames = map[string]struct{}{
		"Microsoft.VSTS.CodeReview.AcceptedBy":   {},
		"Microsoft.VSTS.Common.ActivatedBy":      {},
		"System.AssignedTo":                      {},
		"Microsoft.VSTS.CodeReview.ContextOwner": {},
		"System.AuthorizedAs":                    {},
		"Microsoft.VSTS.CMMI.CalledBy":           {},
		"System.ChangedBy":                       {},
		"Microsoft.VSTS.Common.ClosedBy":         {},
		"System.CreatedBy":                       {},
		"Microsoft.VSTS.Common.ResolvedBy":       {},
		"Microsoft.VSTS.Common.ReviewedBy":       {},
	}
)

// AgileFieldType определяет тип данных поля в модели хост-системы.
func AgileFieldType(f models.Field) models.DataType {
	if isUserField(f.ReferenceName) {
		return models.DataTypeUser
	}

	switch f.Type {
	case "integer", "picklistInteger":
		return models.DataTypeInteger
	case "double", "picklistDouble":
		return models.DataTypeFloat
	case "html":
		return models.DataTypeRichText
	default:
		// Всё остальное, включая даты, передаётся строкой.
		return models.DataTypeString
	}
}

func isUserField(referenceName string) bool {
	if referenceName == "" {
		return false
	}
	if _, ok := userFieldNames[referenceName]; ok {
		return true
	}
	for _, prefix := range userFieldPrefixes {
		if strings.HasPrefix(referenceName, prefix) {
			return true
		}
	}
	return false
}

// IsMappableField сообщает, можно ли сопоставлять поле в хост-системе.
func IsMappableField(f models.Field) bool {
	t := strings.TrimSpace(f.Type)
	return t != "" && t != "identity" && t != "history"
}

// ResolveUsers сопоставляет значение поля-пользователя пользователям хост-системы.
// Несопоставленные исполнители пропускаются, дубликаты подавляются.
func ResolveUsers(ctx context.Context, lookup UserLookup, raw any, projectID *int64, logger *slog.Logger) []models.User {
	if lookup == nil || raw == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	elements, isArray := raw.([]any)
	if !isArray {
		elements = []any{raw}
	}

	var users []models.User
	seen := make(map[int64]struct{})
	for _, el := range elements {
		identifier := userIdentifier(el)
		fullName, hasDisplayName := userDisplayName(el)

		// Поиск по полному имени только для объектов с displayName и элементов массива.
		if !isArray && !hasDisplayName {
			fullName = ""
		}

		u := lookup.Lookup(ctx, identifier, fullName, projectID)
		if u == nil {
			logger.Debug("No matching user, skipping", "identifier", identifier, "full_name", fullName)
			continue
		}
		if _, dup := seen[u.UserID]; dup {
			continue
		}
		seen[u.UserID] = struct{}{}
		users = append(users, *u)
	}
	return users
}

// userIdentifier предпочитает uniqueName (обычно email), затем name.
func userIdentifier(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		if s, ok := val["uniqueName"].(string); ok {
			return s
		}
		if s, ok := val["name"].(string); ok {
			return s
		}
	}
	return ""
}

// userDisplayName возвращает displayName объекта или саму строку.
// Второй результат true только при наличии свойства displayName.
func userDisplayName(v any) (string, bool) {
	switch val := v.(type) {
	case string:
		return val, false
	case map[string]any:
		if s, ok := val["displayName"].(string); ok {
			return s, true
		}
	}
	return "", false
}

// DataFieldFromWorkItem извлекает значение поля рабочего элемента в модели хост-системы.
func DataFieldFromWorkItem(ctx context.Context, wi *models.WorkItem, f models.Field, lookup UserLookup, logger *slog.Logger) *models.DataField {
	ref := f.ReferenceName

	switch AgileFieldType(f) {
	case models.DataTypeUser:
		users := ResolveUsers(ctx, lookup, wi.Fields[ref], nil, logger)
		switch len(users) {
		case 0:
			return &models.DataField{Type: models.DataTypeUser}
		case 1:
			return models.NewUserField(users[0])
		default:
			return &models.DataField{Type: models.DataTypeUser, Value: users}
		}
	case models.DataTypeInteger:
		v, ok := wi.NumberField(ref)
		if !ok {
			return &models.DataField{Type: models.DataTypeInteger}
		}
		return &models.DataField{Type: models.DataTypeInteger, Value: int64(math.Round(v))}
	case models.DataTypeFloat:
		v, ok := wi.NumberField(ref)
		if !ok {
			return &models.DataField{Type: models.DataTypeFloat}
		}
		return &models.DataField{Type: models.DataTypeFloat, Value: v}
	default:
		s, ok := wi.StringField(ref)
		if !ok {
			return &models.DataField{Type: models.DataTypeString}
		}
		return models.NewStringField(s)
	}
}
