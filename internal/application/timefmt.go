package application

import (
	"fmt"
	"strings"
	"time"
)

// timestampLayouts are tried in order. The remote API emits local timestamps
// without an offset, the dashboard posts RFC3339.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp interprets a wire timestamp. Values without an offset are
// read in loc (UTC when loc is nil).
func ParseTimestamp(value string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

var spanishMonths = [...]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}

// FormatLongDate renders "1 de marzo de 2025".
func FormatLongDate(t time.Time) string {
	return fmt.Sprintf("%d de %s de %d", t.Day(), spanishMonths[t.Month()-1], t.Year())
}

// FormatDisplayDateTime renders "1 de marzo, 2025 a las 10:00".
func FormatDisplayDateTime(t time.Time) string {
	return fmt.Sprintf("%d de %s, %d a las %s", t.Day(), spanishMonths[t.Month()-1], t.Year(), t.Format("15:04"))
}

// FormatShortDate renders "01/03/2025 10:00" for tabular output.
func FormatShortDate(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}
