package wiql

import (
	"strings"
)

// LinksBuilder строит рекурсивный запрос по связям родитель-потомок
// и выбирает всех потомков одного корневого элемента.
type LinksBuilder struct {
	rootID           string
	workItemTypes    []string
	excludedStatuses []string
}

// NewLinksBuilder создаёт запрос потомков элемента rootID.
func NewLinksBuilder(rootID string) *LinksBuilder {
	return &LinksBuilder{rootID: strings.TrimSpace(rootID)}
}

// WorkItemTypes ограничивает типы элементов на стороне потомка.
func (b *LinksBuilder) WorkItemTypes(types ...string) *LinksBuilder {
	for _, t := range types {
		b.workItemTypes = appendUnique(b.workItemTypes, t)
	}
	return b
}

// ExcludeStatuses исключает состояния на стороне потомка.
func (b *LinksBuilder) ExcludeStatuses(statuses ...string) *LinksBuilder {
	for _, s := range statuses {
		b.excludedStatuses = appendUnique(b.excludedStatuses, s)
	}
	return b
}

// NeedsTime всегда false: в запросе по связям нет сравнений с датами.
func (b *LinksBuilder) NeedsTime() bool {
	return false
}

// Build возвращает текст запроса.
func (b *LinksBuilder) Build() string {
	where := []string{
		"[System.Links.LinkType] = 'System.LinkTypes.Hierarchy-Forward'",
		"Source.[System.Id] = " + joinIDs([]string{b.rootID}),
	}
	if len(b.excludedStatuses) > 0 {
		where = append(where, "("+excludedStatusesClause("Target.", b.excludedStatuses)+")")
	}
	if len(b.workItemTypes) > 0 {
		where = append(where, workItemTypesClause("Target.", b.workItemTypes))
	}

	return "SELECT [System.Id] FROM WorkItemLinks WHERE (" + strings.Join(where, " AND ") + ") MODE (Recursive)"
}
