package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// RelationParent тип связи, указывающей на родителя.
	RelationParent = "System.LinkTypes.Hierarchy-Reverse"

	apisURLPart = "/_apis/"
)

// Ссылочные имена полей, которые используются коннектором.
const (
	FieldTitle         = "System.Title"
	FieldState         = "System.State"
	FieldWorkItemType  = "System.WorkItemType"
	FieldAssignedTo    = "System.AssignedTo"
	FieldIterationPath = "System.IterationPath"
	FieldChangedDate   = "System.ChangedDate"
	FieldCreatedDate   = "System.CreatedDate"
	FieldEffort        = "Microsoft.VSTS.Scheduling.Effort"
	FieldRemainingWork = "Microsoft.VSTS.Scheduling.RemainingWork"
	FieldStartDate     = "Microsoft.VSTS.Scheduling.StartDate"
	FieldTargetDate    = "Microsoft.VSTS.Scheduling.TargetDate"
)

// ErrMissingChangedDate рабочий элемент без даты последнего изменения.
var ErrMissingChangedDate = errors.New("System.ChangedDate field cannot be retrieved on this work item")

// WorkItem рабочий элемент Azure DevOps.
type WorkItem struct {
	ID        json.Number    `json:"id"`
	Rev       int            `json:"rev"`
	URL       string         `json:"url"`
	Fields    map[string]any `json:"fields"`
	Relations []Relation     `json:"relations"`

	// Name отображаемое имя, заполняется локально при облегчённой выборке.
	Name string `json:"-"`

	projectID string
}

// Relation связь рабочего элемента.
type Relation struct {
	Rel        string         `json:"rel"`
	URL        string         `json:"url"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// IDString возвращает идентификатор в виде строки.
func (w *WorkItem) IDString() string {
	return w.ID.String()
}

// ProjectID извлекает идентификатор проекта из собственной ссылки элемента.
func (w *WorkItem) ProjectID() string {
	if w.projectID == "" {
		w.projectID = projectIDFromURL(w.URL)
	}
	return w.projectID
}

// ParentWorkItemID возвращает идентификатор родителя или пустую строку.
func (w *WorkItem) ParentWorkItemID() string {
	parentURL := w.parentURL()
	if parentURL == "" {
		return ""
	}
	return parentURL[strings.LastIndex(parentURL, "/")+1:]
}

// ParentProjectID возвращает проект родителя, извлечённый из ссылки на него.
func (w *WorkItem) ParentProjectID() string {
	return projectIDFromURL(w.parentURL())
}

func (w *WorkItem) parentURL() string {
	for _, r := range w.Relations {
		if r.Rel == RelationParent {
			return r.URL
		}
	}
	return ""
}

// projectIDFromURL берёт последний сегмент пути перед /_apis/.
func projectIDFromURL(u string) string {
	idx := strings.Index(u, apisURLPart)
	if idx < 0 {
		return ""
	}
	prefix := u[:idx]
	return prefix[strings.LastIndex(prefix, "/")+1:]
}

// StringField возвращает скалярное значение поля в виде строки.
func (w *WorkItem) StringField(name string) (string, bool) {
	v, ok := w.Fields[name]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	default:
		return "", false
	}
}

// NumberField возвращает числовое значение поля.
func (w *WorkItem) NumberField(name string) (float64, bool) {
	v, ok := w.Fields[name]
	if !ok || v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// DateField возвращает дату из поля или nil.
func (w *WorkItem) DateField(name string) *time.Time {
	s, ok := w.StringField(name)
	if !ok {
		return nil
	}
	return ParseDate(s)
}

// LastUpdateTime дата последнего изменения, без неё инкрементальная синхронизация невозможна.
func (w *WorkItem) LastUpdateTime() (time.Time, error) {
	t := w.DateField(FieldChangedDate)
	if t == nil {
		return time.Time{}, fmt.Errorf("work item %s: %w", w.IDString(), ErrMissingChangedDate)
	}
	return *t, nil
}

// Title заголовок элемента.
func (w *WorkItem) Title() string {
	s, _ := w.StringField(FieldTitle)
	return s
}

// Type имя типа элемента.
func (w *WorkItem) Type() string {
	s, _ := w.StringField(FieldWorkItemType)
	return s
}

// State состояние элемента, по умолчанию "New".
func (w *WorkItem) State() string {
	s, ok := w.StringField(FieldState)
	if !ok {
		return "New"
	}
	return s
}
