package ical

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FormatTrigger renders a reminder lead time as a VALARM TRIGGER value,
// e.g. 15 minutes before the event becomes "-PT15M".
func FormatTrigger(minutesBefore int) string {
	if minutesBefore < 0 {
		minutesBefore = -minutesBefore
	}
	return fmt.Sprintf("-PT%dM", minutesBefore)
}

// ParseDuration parses an iCalendar duration value such as "-PT15M",
// "PT1H30M" or "-P0DT0H5M0S". Weeks and days are folded into the result.
func ParseDuration(value string) (time.Duration, error) {
	s := strings.TrimSpace(value)
	negative := false
	switch {
	case strings.HasPrefix(s, "-"):
		negative = true
		s = s[1:]
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	if !strings.HasPrefix(s, "P") {
		return 0, fmt.Errorf("malformed duration %q", value)
	}
	s = s[1:]

	var result time.Duration
	inTime := false
	seen := false
	num := ""
	for _, r := range s {
		if r >= '0' && r <= '9' {
			num += string(r)
			continue
		}
		if r == 'T' {
			inTime = true
			continue
		}
		if num == "" {
			return 0, fmt.Errorf("malformed duration %q", value)
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return 0, fmt.Errorf("malformed duration %q: %w", value, err)
		}
		num = ""
		seen = true
		switch {
		case r == 'W':
			result += time.Duration(n) * 7 * 24 * time.Hour
		case r == 'D':
			result += time.Duration(n) * 24 * time.Hour
		case r == 'H' && inTime:
			result += time.Duration(n) * time.Hour
		case r == 'M' && inTime:
			result += time.Duration(n) * time.Minute
		case r == 'S' && inTime:
			result += time.Duration(n) * time.Second
		default:
			return 0, fmt.Errorf("unexpected designator %q in duration %q", string(r), value)
		}
	}
	if num != "" || !seen {
		return 0, fmt.Errorf("malformed duration %q", value)
	}

	if negative {
		result = -result
	}
	return result, nil
}
