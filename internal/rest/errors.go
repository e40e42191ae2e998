package rest

import (
	"fmt"
	"strings"
)

// Error ответ REST API с неожиданным кодом статуса.
type Error struct {
	StatusCode int
	Verb       string
	URL        string
	Payload    string
	Response   string
}

func (e *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "unexpected HTTP response status code %d for %s uri %s, expected 200", e.StatusCode, e.Verb, e.URL)
	if e.Payload != "" {
		sb.WriteString("\n\n# Sent Payload:\n")
		sb.WriteString(e.Payload)
	}
	if strings.TrimSpace(e.Response) != "" {
		sb.WriteString("\n\n# Received Response:\n")
		sb.WriteString(e.Response)
	}
	return sb.String()
}
