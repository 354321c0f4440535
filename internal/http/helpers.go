package http

import (
	"strings"

	"finanzas/internal/core"
)

// sanitizeInput removes control characters other than tab and newlines and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// sanitizeRecord cleans every free-text field a client can send.
func sanitizeRecord(r core.Record) core.Record {
	r.Name = sanitizeInput(r.Name)
	r.Category = sanitizeInput(r.Category)
	r.Source = sanitizeInput(r.Source)
	for i := range r.Items {
		r.Items[i].Name = sanitizeInput(r.Items[i].Name)
	}
	return r
}
