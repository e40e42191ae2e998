package models

import "time"

// Iteration представляет итерацию (спринт) команды.
type Iteration struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	Path       string              `json:"path"`
	URL        string              `json:"url"`
	Attributes *IterationAttributes `json:"attributes"`
}

// IterationAttributes даты итерации в том виде, в каком их возвращает API.
type IterationAttributes struct {
	StartDate  string `json:"startDate"`
	FinishDate string `json:"finishDate"`
	TimeFrame  string `json:"timeFrame"`
}

// StartDate возвращает дату начала итерации или nil.
func (i *Iteration) StartDate() *time.Time {
	if i == nil || i.Attributes == nil {
		return nil
	}
	return ParseDate(i.Attributes.StartDate)
}

// FinishDate возвращает дату окончания итерации или nil.
func (i *Iteration) FinishDate() *time.Time {
	if i == nil || i.Attributes == nil {
		return nil
	}
	return ParseDate(i.Attributes.FinishDate)
}
