package mcp

import (
	"strings"
	"time"

	"caldav-mcp/internal/errs"
	"caldav-mcp/internal/models"
)

// Argument layouts accepted for date/time inputs. A value with an explicit
// offset stays timezone-aware; one without is treated as floating local
// time; a bare date selects the all-day form.
const (
	layoutDateTimeLocal = "2006-01-02T15:04:05"
	layoutDate          = "2006-01-02"
)

// parsedTime carries what the caller's date string implied beyond the
// instant itself.
type parsedTime struct {
	t        time.Time
	floating bool
	dateOnly bool
}

func parseDateTime(name, value string) (parsedTime, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return parsedTime{t: t}, nil
	}
	if t, err := time.ParseInLocation(layoutDateTimeLocal, value, time.Local); err == nil {
		return parsedTime{t: t, floating: true}, nil
	}
	if t, err := time.ParseInLocation(layoutDate, value, time.Local); err == nil {
		return parsedTime{t: t, floating: true, dateOnly: true}, nil
	}
	return parsedTime{}, errs.Validationf(
		"invalid %s %q: expected YYYY-MM-DD, YYYY-MM-DDTHH:MM:SS or RFC 3339", name, value)
}

func argString(args map[string]interface{}, key string) (string, bool) {
	v, ok := args[key].(string)
	return v, ok
}

func argInt(args map[string]interface{}, key string, def int) int {
	// JSON numbers arrive as float64.
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}

func argFloat(args map[string]interface{}, key string, def float64) float64 {
	if v, ok := args[key].(float64); ok {
		return v
	}
	return def
}

func argBool(args map[string]interface{}, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

func argStringSlice(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	var out []string
	for _, item := range raw {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}

// argAttendees accepts either bare email strings or objects with email,
// status and name keys.
func argAttendees(args map[string]interface{}, key string) []models.Attendee {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	var out []models.Attendee
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				out = append(out, models.Attendee{Email: strings.TrimSpace(v)})
			}
		case map[string]interface{}:
			email, _ := v["email"].(string)
			if strings.TrimSpace(email) == "" {
				continue
			}
			status, _ := v["status"].(string)
			name, _ := v["name"].(string)
			out = append(out, models.Attendee{
				Email:  strings.TrimSpace(email),
				Name:   strings.TrimSpace(name),
				Status: strings.ToUpper(strings.TrimSpace(status)),
			})
		}
	}
	return out
}

func argReminders(args map[string]interface{}, key string) []models.Reminder {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	var out []models.Reminder
	for _, item := range raw {
		v, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		reminder := models.Reminder{MinutesBefore: 15}
		if mins, ok := v["minutes_before"].(float64); ok {
			reminder.MinutesBefore = int(mins)
		}
		if action, ok := v["action"].(string); ok {
			reminder.Action = strings.ToUpper(strings.TrimSpace(action))
		}
		if desc, ok := v["description"].(string); ok {
			reminder.Description = desc
		}
		if to, ok := v["email_to"].(string); ok {
			reminder.EmailTo = strings.TrimSpace(to)
		}
		out = append(out, reminder)
	}
	return out
}

func argRecurrence(args map[string]interface{}, key string) (*models.Recurrence, error) {
	raw, ok := args[key].(map[string]interface{})
	if !ok {
		return nil, nil
	}

	rec := &models.Recurrence{}
	if freq, ok := raw["frequency"].(string); ok {
		rec.Frequency = strings.ToUpper(strings.TrimSpace(freq))
	}
	if v, ok := raw["interval"].(float64); ok {
		rec.Interval = int(v)
	}
	if v, ok := raw["count"].(float64); ok {
		rec.Count = int(v)
	}
	if until, ok := raw["until"].(string); ok && until != "" {
		parsed, err := parseDateTime("until", until)
		if err != nil {
			return nil, err
		}
		rec.Until = parsed.t
	}
	if v, ok := raw["byday"].(string); ok {
		rec.ByDay = strings.ToUpper(strings.TrimSpace(v))
	}
	if v, ok := raw["bymonthday"].(float64); ok {
		rec.ByMonthDay = int(v)
	}
	if v, ok := raw["bymonth"].(float64); ok {
		rec.ByMonth = int(v)
	}

	if !models.ValidFrequency(rec.Frequency) {
		return nil, errs.Validationf("invalid recurrence frequency: %q", rec.Frequency)
	}
	return rec, nil
}
