package ical

import (
	"fmt"
	"strings"

	"github.com/teambition/rrule-go"

	"caldav-mcp/internal/errs"
	"caldav-mcp/internal/models"
)

const (
	rruleUntilDateTimeLayout = "20060102T150405Z"
	rruleUntilDateLayout     = "20060102"
)

// FormatRRule renders a recurrence into its RRULE string. A rule that
// carries a Raw value is passed back unchanged: Raw may hold parts the
// structured fields cannot express (multi-valued BYMONTHDAY, BYSETPOS,
// WKST), and re-deriving the rule from the partial fields would drop
// them. Locally built rules without Raw are rendered canonically: FREQ,
// then INTERVAL (when above 1), COUNT, UNTIL, BYDAY, BYMONTHDAY and
// BYMONTH. UNTIL uses the DATE form only for all-day events, matching
// the value type of DTSTART.
func FormatRRule(r *models.Recurrence, allDay bool) (string, error) {
	if r == nil {
		return "", nil
	}

	if r.Raw != "" {
		return r.Raw, nil
	}

	freq := strings.ToUpper(strings.TrimSpace(r.Frequency))
	if !models.ValidFrequency(freq) {
		return "", errs.Validationf("invalid recurrence frequency: %q", r.Frequency)
	}

	parts := []string{"FREQ=" + freq}

	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", r.Count))
	}
	if !r.Until.IsZero() {
		until := r.Until.UTC().Format(rruleUntilDateTimeLayout)
		if allDay {
			until = r.Until.Format(rruleUntilDateLayout)
		}
		parts = append(parts, "UNTIL="+until)
	}
	if r.ByDay != "" {
		parts = append(parts, "BYDAY="+strings.ToUpper(r.ByDay))
	}
	if r.ByMonthDay != 0 {
		parts = append(parts, fmt.Sprintf("BYMONTHDAY=%d", r.ByMonthDay))
	}
	if r.ByMonth != 0 {
		parts = append(parts, fmt.Sprintf("BYMONTH=%d", r.ByMonth))
	}

	return strings.Join(parts, ";"), nil
}

// ParseRRule extracts a structured recurrence from an RRULE value. Rules
// that rrule-go cannot parse are preserved in the Raw field rather than
// reported as an error, since the server side of a calendar may emit
// richer rules than this client generates.
func ParseRRule(value string) *models.Recurrence {
	value = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(value), "RRULE:"))
	if value == "" {
		return nil
	}

	rec := &models.Recurrence{Raw: value}

	opt, err := rrule.StrToROption(value)
	if err != nil {
		return rec
	}

	switch opt.Freq {
	case rrule.DAILY:
		rec.Frequency = models.FreqDaily
	case rrule.WEEKLY:
		rec.Frequency = models.FreqWeekly
	case rrule.MONTHLY:
		rec.Frequency = models.FreqMonthly
	case rrule.YEARLY:
		rec.Frequency = models.FreqYearly
	default:
		// Sub-daily frequencies stay raw-only.
		return rec
	}

	if opt.Interval > 1 {
		rec.Interval = opt.Interval
	}
	rec.Count = opt.Count
	if !opt.Until.IsZero() {
		rec.Until = opt.Until
	}
	if len(opt.Byweekday) > 0 {
		days := make([]string, 0, len(opt.Byweekday))
		for _, wd := range opt.Byweekday {
			days = append(days, wd.String())
		}
		rec.ByDay = strings.Join(days, ",")
	}
	if len(opt.Bymonthday) > 0 {
		rec.ByMonthDay = opt.Bymonthday[0]
	}
	if len(opt.Bymonth) > 0 {
		rec.ByMonth = opt.Bymonth[0]
	}

	return rec
}
