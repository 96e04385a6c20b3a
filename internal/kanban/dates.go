package kanban

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseLocalDate parses a "YYYY-MM-DD" string into a time.Time in the
// local timezone. Parsing the string with an RFC 3339 layout would treat
// it as UTC midnight, which shifts the calendar day for negative UTC
// offsets when formatted back locally. Constructing the date explicitly
// avoids that.
func ParseLocalDate(isoDate string) (time.Time, error) {
	parts := strings.Split(isoDate, "-")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", isoDate)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid year in %q: %w", isoDate, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month in %q: %w", isoDate, err)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day in %q: %w", isoDate, err)
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local), nil
}

// FormatLocalDate renders a "YYYY-MM-DD" string as a localized
// "DD/MM/YYYY" date. An empty input renders empty.
func FormatLocalDate(isoDate string) string {
	if isoDate == "" {
		return ""
	}
	date, err := ParseLocalDate(isoDate)
	if err != nil {
		return isoDate
	}
	return date.Format("02/01/2006")
}
