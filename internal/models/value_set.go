package models

import (
	"sort"
	"strconv"
	"strings"
)

// Ключи конфигурации коннектора.
const (
	KeyProxyHost                 = "proxyHost"
	KeyProxyPort                 = "proxyPort"
	KeyPersonalAccessToken       = "personalAccessToken"
	KeyOrganizationURL           = "organizationUrl"
	KeyWPProject                 = "wpProject"
	KeyWPEpic                    = "wpEpic"
	KeyWPImportableWorkItemTypes = "wpImportableWorkItemTypes"
	KeyWPInProgressStatuses      = "wpInProgressStatuses"
	KeyWPClosedStatuses          = "wpClosedStatuses"
	KeyWPIgnoredStatuses         = "wpIgnoredStatuses"
	KeyWPIncludeClosed           = "wpIncludeClosed"
	KeyImportGroups              = "importGroups"

	// WorkItemTypeKeyPrefix префикс флагов импорта по типам элементов.
	WorkItemTypeKeyPrefix = "WP_WIT_"
)

// Режимы группировки плана.
const (
	GroupStructure = "groupStructure"
	GroupSprint    = "groupSprint"
	GroupStatus    = "groupStatus"
)

// Значения по умолчанию из конфигурации драйвера.
const (
	DefaultImportableWorkItemTypes = "Epic;Feature;User Story;Task"
	DefaultInProgressStatuses      = "Active;In Progress;Committed;Open;Doing"
	DefaultClosedStatuses          = "Done;Closed;Inactive;Completed;Resolved"
	DefaultIgnoredStatuses         = "Removed"
)

// ValueSet конфигурация, передаваемая хост-системой. Поиск ключей без учёта регистра.
type ValueSet map[string]string

// Get возвращает значение по ключу.
func (v ValueSet) Get(key string) string {
	if val, ok := v[key]; ok {
		return val
	}
	for k, val := range v {
		if strings.EqualFold(k, key) {
			return val
		}
	}
	return ""
}

// GetOrDefault возвращает значение или def для пустого значения.
func (v ValueSet) GetOrDefault(key, def string) string {
	if val := strings.TrimSpace(v.Get(key)); val != "" {
		return val
	}
	return def
}

// GetBool возвращает булево значение по ключу.
func (v ValueSet) GetBool(key string, def bool) bool {
	val := strings.TrimSpace(v.Get(key))
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return strings.EqualFold(val, "y") || strings.EqualFold(val, "yes")
	}
	return b
}

// StringList разбирает список, разделённый ';' или ','.
func (v ValueSet) StringList(key string) []string {
	return SplitList(v.Get(key))
}

// SplitList разбивает строку по ';' и ',' и отбрасывает пустые элементы.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' }) {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// WorkItemTypeKey ключ флага импорта для типа элемента.
func WorkItemTypeKey(workItemType string) string {
	return WorkItemTypeKeyPrefix + strings.ReplaceAll(workItemType, " ", "__")
}

// SelectedWorkItemTypes возвращает типы элементов, отмеченные для импорта.
func (v ValueSet) SelectedWorkItemTypes() []string {
	var types []string
	for key := range v {
		if len(key) <= len(WorkItemTypeKeyPrefix) || !strings.EqualFold(key[:len(WorkItemTypeKeyPrefix)], WorkItemTypeKeyPrefix) {
			continue
		}
		if v.GetBool(key, false) {
			types = append(types, strings.ReplaceAll(key[len(WorkItemTypeKeyPrefix):], "__", " "))
		}
	}
	sort.Strings(types)
	return types
}
