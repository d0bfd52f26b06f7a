package buses

import (
	"fmt"
	"sort"
	"time"

	"github.com/parcelhub/parcelhub/internal/platform/httpx"
)

var (
	ErrNotFound = fmt.Errorf("%w: bus not found", httpx.ErrNotFound)
	// ErrNumberTaken means another bus already uses the registration number.
	ErrNumberTaken = fmt.Errorf("%w: bus number already registered", httpx.ErrDuplicate)
	// ErrInvalidDay means a preferred day is outside 1..7.
	ErrInvalidDay = fmt.Errorf("%w: preferred days must be between 1 (Monday) and 7 (Sunday)", httpx.ErrValidation)
)

// Bus is a vehicle that usually runs on fixed weekdays.
type Bus struct {
	Slug        string
	BusNumber   string
	Description string
	// PreferredDays are ISO weekdays, Monday=1 through Sunday=7.
	PreferredDays []int
	CreatedAt     time.Time
}

// RunsOn reports whether day falls on one of the bus's preferred weekdays.
func (b Bus) RunsOn(day time.Time) bool {
	wd := ISOWeekday(day)
	for _, d := range b.PreferredDays {
		if d == wd {
			return true
		}
	}
	return false
}

// ISOWeekday maps time.Weekday onto Monday=1 through Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// normalizeDays validates, dedupes and sorts preferred days.
func normalizeDays(days []int) ([]int, error) {
	seen := make(map[int]struct{}, len(days))
	out := make([]int, 0, len(days))
	for _, d := range days {
		if d < 1 || d > 7 {
			return nil, ErrInvalidDay
		}
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Ints(out)
	return out, nil
}
