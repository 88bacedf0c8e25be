package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ─── Duration Strings ───────────────────────────────────────────────────────
// Ban lengths and cooldowns are written as "<int><unit>":
//
//	m  → minutes
//	h  → hours
//	d  → days
//	w  → weeks
//	mo → months (fixed at 30 days)

// ParseDuration parses a duration string like "5m", "1h", "3d", "2w", "2mo".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) < 2 {
		return 0, fmt.Errorf("%w: %q (use like 5m, 1h, 3d, 2w, 2mo)", ErrBadDuration, s)
	}

	var unit time.Duration
	var digits string
	switch {
	case strings.HasSuffix(s, "mo"):
		unit = 30 * 24 * time.Hour
		digits = s[:len(s)-2]
	case strings.HasSuffix(s, "m"):
		unit = time.Minute
		digits = s[:len(s)-1]
	case strings.HasSuffix(s, "h"):
		unit = time.Hour
		digits = s[:len(s)-1]
	case strings.HasSuffix(s, "d"):
		unit = 24 * time.Hour
		digits = s[:len(s)-1]
	case strings.HasSuffix(s, "w"):
		unit = 7 * 24 * time.Hour
		digits = s[:len(s)-1]
	default:
		return 0, fmt.Errorf("%w: %q (unit must be m, h, d, w, or mo)", ErrBadDuration, s)
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadDuration, s)
	}
	return time.Duration(n) * unit, nil
}

// FormatRemaining renders a duration as "1 day, 2 hours, 5 minutes" for
// ban and cooldown notices. Sub-minute remainders round to the friendly
// "less than a minute".
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "less than a minute"
	}
	total := int(d.Seconds())
	days := total / 86400
	hours := (total % 86400) / 3600
	minutes := (total % 3600) / 60

	var parts []string
	if days > 0 {
		parts = append(parts, plural(days, "day"))
	}
	if hours > 0 {
		parts = append(parts, plural(hours, "hour"))
	}
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if len(parts) == 0 {
		return "less than a minute"
	}
	return strings.Join(parts, ", ")
}

// FormatSeconds renders a short cooldown as "3 minutes, 20 seconds".
func FormatSeconds(d time.Duration) string {
	total := int(d.Seconds())
	minutes := total / 60
	seconds := total % 60

	var parts []string
	if minutes > 0 {
		parts = append(parts, plural(minutes, "minute"))
	}
	if seconds > 0 {
		parts = append(parts, plural(seconds, "second"))
	}
	if len(parts) == 0 {
		return "less than a second"
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
