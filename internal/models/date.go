package models

import (
	"log/slog"
	"strings"
	"time"
)

const shortDateLayout = "2006-01-02"

var longDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02T15:04:05.999999999-07",
	"2006-01-02T15:04:05.999999999",
}

// ParseDate парсит дату в коротком (2006-01-02) или длинном ISO-8601 формате.
// Пустая строка, "null" и нераспознанные значения дают nil.
func ParseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}

	if !strings.Contains(s, "T") {
		t, err := time.ParseInLocation(shortDateLayout, s, time.Local)
		if err != nil {
			slog.Warn("Failed to parse date, ignoring", "value", s, "error", err)
			return nil
		}
		return &t
	}

	for _, layout := range longDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}

	slog.Warn("Failed to parse date, ignoring", "value", s)
	return nil
}
