package model

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDurationRe = regexp.MustCompile(
	`^P(?:(\d+(?:\.\d+)?)Y)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)W)?(?:(\d+(?:\.\d+)?)D)?` +
		`(?:T(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

var isoDurationUnits = [...]float64{
	365 * 24 * 3600, // years
	30 * 24 * 3600,  // months
	7 * 24 * 3600,   // weeks
	24 * 3600,       // days
	3600,            // hours
	60,              // minutes
	1,               // seconds
}

// DurationSeconds converts an ISO-8601 duration ("PT45M", "P1D", ...) to
// whole seconds. Months count as 30 days and years as 365.
func DurationSeconds(iso string) (int64, error) {
	m := isoDurationRe.FindStringSubmatch(iso)
	if m == nil || iso == "P" || iso == "" {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", iso)
	}
	var total float64
	var seen bool
	for i, group := range m[1:] {
		if group == "" {
			continue
		}
		v, err := strconv.ParseFloat(group, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", iso, err)
		}
		total += v * isoDurationUnits[i]
		seen = true
	}
	if !seen {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q", iso)
	}
	return int64(total), nil
}
