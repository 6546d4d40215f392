package application

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// FilterAll disables the status and technician filters.
const FilterAll = "all"

// DateBucket is a calendar range relative to the current time.
type DateBucket string

const (
	BucketAll   DateBucket = "all"
	BucketToday DateBucket = "today"
	BucketWeek  DateBucket = "week"
	BucketMonth DateBucket = "month"
)

// ParseDateBucket maps query values to a bucket; empty means all.
func ParseDateBucket(value string) (DateBucket, error) {
	switch DateBucket(strings.ToLower(strings.TrimSpace(value))) {
	case "", BucketAll:
		return BucketAll, nil
	case BucketToday:
		return BucketToday, nil
	case BucketWeek:
		return BucketWeek, nil
	case BucketMonth:
		return BucketMonth, nil
	}
	return "", fmt.Errorf("invalid date bucket %q", value)
}

// VisitFilter combines the predicates of a visit search. Empty Status and
// Technician behave like FilterAll.
type VisitFilter struct {
	Search     string
	Status     string
	Technician string
	Bucket     DateBucket
}

// FilterVisits returns the visits matching every predicate of filter, keeping
// their order. Visits whose scheduled date cannot be parsed never match a
// concrete date bucket.
func FilterVisits(visits []Visit, filter VisitFilter, now time.Time, loc *time.Location) []Visit {
	if loc == nil {
		loc = time.UTC
	}
	// Casers keep state and are not shared between calls.
	folder := cases.Fold()
	term := folder.String(strings.TrimSpace(filter.Search))
	status := strings.TrimSpace(filter.Status)
	technician := strings.TrimSpace(filter.Technician)
	start, end, bounded := bucketRange(filter.Bucket, now.In(loc))

	out := make([]Visit, 0, len(visits))
	for _, v := range visits {
		if term != "" && !matchesSearch(folder, v, term) {
			continue
		}
		if status != "" && status != FilterAll && strconv.Itoa(int(v.Status)) != status {
			continue
		}
		if technician != "" && technician != FilterAll && v.TechnicianID != technician {
			continue
		}
		if bounded {
			scheduled, err := v.ScheduledTime(loc)
			if err != nil || scheduled.Before(start) || !scheduled.Before(end) {
				continue
			}
		}
		out = append(out, v)
	}
	return out
}

func matchesSearch(folder cases.Caser, v Visit, term string) bool {
	for _, field := range []string{v.ClientName, v.TechnicianName, v.StatusLabel(), v.TypeLabel()} {
		if strings.Contains(folder.String(field), term) {
			return true
		}
	}
	return false
}

// bucketRange returns the half-open [start, end) range of bucket around now.
func bucketRange(bucket DateBucket, now time.Time) (time.Time, time.Time, bool) {
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch bucket {
	case BucketToday:
		return day, day.AddDate(0, 0, 1), true
	case BucketWeek:
		offset := (int(day.Weekday()) + 6) % 7
		monday := day.AddDate(0, 0, -offset)
		return monday, monday.AddDate(0, 0, 7), true
	case BucketMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return first, first.AddDate(0, 1, 0), true
	}
	return time.Time{}, time.Time{}, false
}

// Describe renders the active filters as a sentence for report subtitles, or
// "" when no filter is active.
func (f VisitFilter) Describe(technicianName string) string {
	var parts []string
	if s := strings.TrimSpace(f.Search); s != "" {
		parts = append(parts, fmt.Sprintf("búsqueda \"%s\"", s))
	}
	if s := strings.TrimSpace(f.Status); s != "" && s != FilterAll {
		if status, err := ParseVisitStatus(s); err == nil {
			parts = append(parts, "estado "+status.Label())
		}
	}
	if t := strings.TrimSpace(f.Technician); t != "" && t != FilterAll {
		name := technicianName
		if name == "" {
			name = t
		}
		parts = append(parts, "técnico "+name)
	}
	switch f.Bucket {
	case BucketToday:
		parts = append(parts, "fecha hoy")
	case BucketWeek:
		parts = append(parts, "fecha esta semana")
	case BucketMonth:
		parts = append(parts, "fecha este mes")
	}
	if len(parts) == 0 {
		return ""
	}
	return "Filtros aplicados: " + strings.Join(parts, ", ")
}
