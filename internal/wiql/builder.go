// Package wiql собирает запросы на языке WIQL (Work Item Query Language).
//
// Детали рабочих элементов можно получить только по идентификаторам и пачками
// не более 200 штук, поэтому сначала запросом WIQL выбираются идентификаторы.
package wiql

import (
	"strconv"
	"strings"
	"time"
)

// Builder строит плоский запрос по рабочим элементам. По умолчанию выбирается
// только [System.Id] в текущем проекте, сортировка не задаётся.
type Builder struct {
	columns          []string
	workItemTypes    []string
	excludedStatuses []string
	crossProjects    bool
	modifiedSince    *time.Time
	createdSince     *time.Time
	ids              []string
}

// NewBuilder создаёт построитель с колонкой идентификатора.
func NewBuilder() *Builder {
	return &Builder{columns: []string{"System.Id"}}
}

// AddColumn добавляет колонку без квадратных скобок, например System.Title.
func (b *Builder) AddColumn(column string) *Builder {
	b.columns = appendUnique(b.columns, column)
	return b
}

// WorkItemTypes ограничивает выборку типами элементов. Можно вызывать повторно.
func (b *Builder) WorkItemTypes(types ...string) *Builder {
	for _, t := range types {
		b.workItemTypes = appendUnique(b.workItemTypes, t)
	}
	return b
}

// ExcludeStatuses исключает элементы с указанными состояниями.
func (b *Builder) ExcludeStatuses(statuses ...string) *Builder {
	for _, s := range statuses {
		b.excludedStatuses = appendUnique(b.excludedStatuses, s)
	}
	return b
}

// CrossProjects отключает ограничение текущим проектом.
func (b *Builder) CrossProjects(cross bool) *Builder {
	b.crossProjects = cross
	return b
}

// ModifiedAfter оставляет элементы, изменённые начиная с since.
func (b *Builder) ModifiedAfter(since *time.Time) *Builder {
	b.modifiedSince = since
	return b
}

// CreatedAfter оставляет элементы, созданные начиная с since.
func (b *Builder) CreatedAfter(since *time.Time) *Builder {
	b.createdSince = since
	return b
}

// IDs ограничивает выборку явным списком идентификаторов.
func (b *Builder) IDs(ids ...string) *Builder {
	b.ids = append(b.ids, ids...)
	return b
}

// NeedsTime сообщает, что в запросе есть сравнение с моментом времени
// и к запросу нужно добавить timePrecision=true.
func (b *Builder) NeedsTime() bool {
	return b.modifiedSince != nil || b.createdSince != nil
}

// Build возвращает текст запроса.
func (b *Builder) Build() string {
	cols := make([]string, len(b.columns))
	for i, c := range b.columns {
		cols[i] = "[" + c + "]"
	}

	var where []string
	if !b.crossProjects {
		where = append(where, "[System.TeamProject] = @project")
	}
	if len(b.excludedStatuses) > 0 {
		where = append(where, excludedStatusesClause("", b.excludedStatuses))
	}
	if len(b.workItemTypes) > 0 {
		where = append(where, workItemTypesClause("", b.workItemTypes))
	}
	if b.modifiedSince != nil {
		where = append(where, "[System.ChangedDate] >= "+quote(formatInstant(*b.modifiedSince)))
	}
	if b.createdSince != nil {
		where = append(where, "[System.CreatedDate] >= "+quote(formatInstant(*b.createdSince)))
	}
	if len(b.ids) > 0 {
		where = append(where, "[System.Id] IN ("+joinIDs(b.ids)+")")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(strings.Join(cols, ", "))
	sb.WriteString(" FROM workitems")
	if len(where) > 0 {
		sb.WriteString(" WHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}
	return sb.String()
}

func excludedStatusesClause(side string, statuses []string) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = side + "[State] <> " + quote(s)
	}
	return strings.Join(parts, " AND ")
}

func workItemTypesClause(side string, types []string) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = side + "[System.WorkItemType] = " + quote(t)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// quote экранирует строковый литерал WIQL.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatInstant(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// joinIDs оставляет только числовые идентификаторы, чтобы в запрос не попал произвольный текст.
func joinIDs(ids []string) string {
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, err := strconv.ParseInt(id, 10, 64); err == nil {
			valid = append(valid, id)
		}
	}
	return strings.Join(valid, ",")
}

func appendUnique(list []string, v string) []string {
	if strings.TrimSpace(v) == "" {
		return list
	}
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
