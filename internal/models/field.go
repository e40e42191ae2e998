package models

// Field описание поля типа рабочего элемента.
//
// Одно и то же поле приходит из двух эндпоинтов: поля типа (с допустимыми значениями)
// и глобальные поля проекта (с типом). Type всегда берётся из глобального описания.
type Field struct {
	ReferenceName  string   `json:"referenceName"`
	Name           string   `json:"name"`
	Type           string   `json:"type"`
	HelpText       string   `json:"helpText"`
	AlwaysRequired bool     `json:"alwaysRequired"`
	AllowedValues  []string `json:"allowedValues"`
	URL            string   `json:"url"`
}

// HasAllowedValues сообщает, является ли поле списком значений.
func (f Field) HasAllowedValues() bool {
	return len(f.AllowedValues) > 0
}
