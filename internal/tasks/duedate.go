package tasks

import (
	"math"
	"strings"
	"time"

	"github.com/teemow/todoagent/internal/apperrors"
)

// Layouts accepted for due dates, tried in order. Layouts without an offset
// are interpreted in the store's location.
var dueDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDueDate parses value as an absolute instant. A date without a time is
// local midnight of that day. The result is in UTC.
func (s *Store) ParseDueDate(value string) (time.Time, error) {
	return s.ParseDueDateIn(value, s.loc)
}

// ParseDueDateIn is ParseDueDate with offset-less values read in loc.
func (s *Store) ParseDueDateIn(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = s.loc
	}
	value = strings.TrimSpace(value)
	for _, layout := range dueDateLayouts {
		var (
			t   time.Time
			err error
		)
		if layout == time.RFC3339Nano {
			t, err = time.Parse(layout, value)
		} else {
			t, err = time.ParseInLocation(layout, value, loc)
		}
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.Validationf("dueDate", "Fecha inválida %q: usa formato ISO 8601 (YYYY-MM-DD o YYYY-MM-DDTHH:MM)", value)
}

// parseFutureDueDate parses value and requires it to be strictly after now.
func (s *Store) parseFutureDueDate(value string, now time.Time) (time.Time, error) {
	due, err := s.ParseDueDate(value)
	if err != nil {
		return time.Time{}, err
	}
	if !due.After(now) {
		days := int(math.Ceil(now.Sub(due).Hours() / 24))
		if days < 1 {
			return time.Time{}, apperrors.Validationf("dueDate",
				"La fecha de vencimiento debe ser futura: %s ya pasó (hoy es %s)",
				due.In(s.loc).Format("2006-01-02 15:04"), now.In(s.loc).Format("2006-01-02 15:04"))
		}
		return time.Time{}, apperrors.Validationf("dueDate",
			"La fecha de vencimiento debe ser futura: %s es %d día(s) en el pasado (hoy es %s)",
			due.In(s.loc).Format("2006-01-02"), days, now.In(s.loc).Format("2006-01-02"))
	}
	return due, nil
}
