package models

import "time"

// DataType тип данных поля в модели хост-системы.
type DataType string

const (
	DataTypeUser     DataType = "USER"
	DataTypeInteger  DataType = "INTEGER"
	DataTypeFloat    DataType = "FLOAT"
	DataTypeRichText DataType = "RICH_TEXT"
	DataTypeString   DataType = "STRING"
)

// DataField значение поля сущности.
// Value: string, int64, float64, User или []User; nil означает отсутствие значения.
type DataField struct {
	Type  DataType `json:"type"`
	Value any      `json:"value"`
}

// IsEmpty сообщает, что значение отсутствует.
func (f *DataField) IsEmpty() bool {
	return f == nil || f.Value == nil
}

// NewStringField создаёт строковое поле.
func NewStringField(v string) *DataField {
	return &DataField{Type: DataTypeString, Value: v}
}

// NewUserField создаёт поле-пользователя.
func NewUserField(u User) *DataField {
	return &DataField{Type: DataTypeUser, Value: u}
}

// AgileEntity сущность в общей модели хост-системы.
type AgileEntity struct {
	ID             string                `json:"id"`
	EntityURL      string                `json:"entityUrl"`
	LastUpdateTime time.Time             `json:"lastUpdateTime"`
	Fields         map[string]*DataField `json:"fields,omitempty"`
}

// AddField добавляет поле к сущности.
func (e *AgileEntity) AddField(key string, f *DataField) {
	if e.Fields == nil {
		e.Fields = make(map[string]*DataField)
	}
	e.Fields[key] = f
}

// AgileEntityInfo тип сущности, доступный для синхронизации.
type AgileEntityInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// AgileEntityFieldInfo описание поля для экрана сопоставления.
type AgileEntityFieldInfo struct {
	ID         string   `json:"id"`
	Label      string   `json:"label"`
	FieldType  DataType `json:"fieldType"`
	ListType   bool     `json:"listType"`
	MultiValue bool     `json:"multiValue"`
}

// AgileEntityFieldValue допустимое значение поля.
type AgileEntityFieldValue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AgileEntityIDProjectDate идентификатор созданной сущности с проектом и датой создания.
type AgileEntityIDProjectDate struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"projectId"`
	Date      *time.Time `json:"date"`
}

// AgileEntityIDName пара идентификатор/имя.
type AgileEntityIDName struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// AgileProject проект, доступный для выбора в хост-системе.
type AgileProject struct {
	Value       string `json:"value"`
	DisplayName string `json:"displayName"`
}

// LinkedTaskAgileEntityInfo информация о связанной с планом сущности.
type LinkedTaskAgileEntityInfo struct {
	ProjectID string `json:"projectId"`
}
