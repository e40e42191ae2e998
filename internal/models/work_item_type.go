package models

// WorkItemType тип рабочего элемента. Имя одновременно служит идентификатором.
type WorkItemType struct {
	Name           string  `json:"name"`
	ReferenceName  string  `json:"referenceName"`
	Description    string  `json:"description"`
	IsDisabled     bool    `json:"isDisabled"`
	URL            string  `json:"url"`
	Fields         []Field `json:"fields"`
	FieldInstances []Field `json:"fieldInstances"`
}
