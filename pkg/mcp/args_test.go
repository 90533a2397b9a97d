package mcp

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"caldav-mcp/internal/errs"
	"caldav-mcp/internal/models"
)

func TestParseDateTime(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Time
		floating bool
		dateOnly bool
		wantErr  bool
	}{
		{
			name:     "rfc3339 stays aware",
			input:    "2025-07-14T10:00:00Z",
			expected: time.Date(2025, 7, 14, 10, 0, 0, 0, time.UTC),
		},
		{
			name:     "rfc3339 with offset",
			input:    "2025-07-14T10:00:00+02:00",
			expected: time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC),
		},
		{
			name:     "naive local is floating",
			input:    "2025-07-14T10:00:00",
			expected: time.Date(2025, 7, 14, 10, 0, 0, 0, time.Local),
			floating: true,
		},
		{
			name:     "bare date is all-day",
			input:    "2025-07-14",
			expected: time.Date(2025, 7, 14, 0, 0, 0, 0, time.Local),
			floating: true,
			dateOnly: true,
		},
		{
			name:     "surrounding whitespace trimmed",
			input:    "  2025-07-14  ",
			expected: time.Date(2025, 7, 14, 0, 0, 0, 0, time.Local),
			floating: true,
			dateOnly: true,
		},
		{name: "garbage", input: "next tuesday", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDateTime("start_time", tt.input)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseDateTime(%q) expected error", tt.input)
				}
				var validationErr *errs.ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("parseDateTime(%q) error = %v, want ValidationError", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDateTime(%q) unexpected error: %v", tt.input, err)
			}
			if !got.t.Equal(tt.expected) {
				t.Errorf("parseDateTime(%q) = %v, want %v", tt.input, got.t, tt.expected)
			}
			if got.floating != tt.floating {
				t.Errorf("parseDateTime(%q) floating = %v, want %v", tt.input, got.floating, tt.floating)
			}
			if got.dateOnly != tt.dateOnly {
				t.Errorf("parseDateTime(%q) dateOnly = %v, want %v", tt.input, got.dateOnly, tt.dateOnly)
			}
		})
	}
}

func TestArgScalars(t *testing.T) {
	args := map[string]interface{}{
		"title":    "Standup",
		"count":    float64(3),
		"hours":    1.5,
		"all_day":  true,
		"wrongtyp": 42,
	}

	if v, ok := argString(args, "title"); !ok || v != "Standup" {
		t.Errorf("argString = %q, %v", v, ok)
	}
	if _, ok := argString(args, "missing"); ok {
		t.Error("argString on missing key should report absent")
	}
	if _, ok := argString(args, "wrongtyp"); ok {
		t.Error("argString on non-string should report absent")
	}

	if got := argInt(args, "count", 0); got != 3 {
		t.Errorf("argInt = %d, want 3", got)
	}
	if got := argInt(args, "missing", 7); got != 7 {
		t.Errorf("argInt default = %d, want 7", got)
	}

	if got := argFloat(args, "hours", 0); got != 1.5 {
		t.Errorf("argFloat = %v, want 1.5", got)
	}
	if got := argBool(args, "all_day", false); !got {
		t.Error("argBool = false, want true")
	}
	if got := argBool(args, "missing", true); !got {
		t.Error("argBool default = false, want true")
	}
}

func TestArgStringSlice(t *testing.T) {
	args := map[string]interface{}{
		"categories": []interface{}{"work", "  personal  ", "", 42},
		"scalar":     "oops",
	}

	want := []string{"work", "personal"}
	if got := argStringSlice(args, "categories"); !reflect.DeepEqual(got, want) {
		t.Errorf("argStringSlice = %v, want %v", got, want)
	}
	if got := argStringSlice(args, "scalar"); got != nil {
		t.Errorf("argStringSlice on non-array = %v, want nil", got)
	}
	if got := argStringSlice(args, "missing"); got != nil {
		t.Errorf("argStringSlice on missing key = %v, want nil", got)
	}
}

func TestArgAttendees(t *testing.T) {
	args := map[string]interface{}{
		"attendees": []interface{}{
			"alice@example.com",
			map[string]interface{}{
				"email":  "bob@example.com",
				"name":   "Bob",
				"status": "accepted",
			},
			map[string]interface{}{"name": "no email"},
			"   ",
		},
	}

	want := []models.Attendee{
		{Email: "alice@example.com"},
		{Email: "bob@example.com", Name: "Bob", Status: models.StatusAccepted},
	}
	if got := argAttendees(args, "attendees"); !reflect.DeepEqual(got, want) {
		t.Errorf("argAttendees = %+v, want %+v", got, want)
	}
}

func TestArgReminders(t *testing.T) {
	args := map[string]interface{}{
		"reminders": []interface{}{
			map[string]interface{}{},
			map[string]interface{}{
				"minutes_before": float64(60),
				"action":         "email",
				"description":    "Ping ops",
				"email_to":       "ops@example.com",
			},
			"not a reminder",
		},
	}

	want := []models.Reminder{
		{MinutesBefore: 15},
		{MinutesBefore: 60, Action: models.ActionEmail, Description: "Ping ops", EmailTo: "ops@example.com"},
	}
	if got := argReminders(args, "reminders"); !reflect.DeepEqual(got, want) {
		t.Errorf("argReminders = %+v, want %+v", got, want)
	}
}

func TestArgRecurrence(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		rec, err := argRecurrence(map[string]interface{}{}, "recurrence")
		if err != nil || rec != nil {
			t.Errorf("argRecurrence = %+v, %v, want nil, nil", rec, err)
		}
	})

	t.Run("full rule", func(t *testing.T) {
		args := map[string]interface{}{
			"recurrence": map[string]interface{}{
				"frequency":  "weekly",
				"interval":   float64(2),
				"count":      float64(10),
				"byday":      "mo,fr",
				"bymonthday": float64(15),
				"bymonth":    float64(6),
			},
		}
		rec, err := argRecurrence(args, "recurrence")
		if err != nil {
			t.Fatalf("argRecurrence failed: %v", err)
		}
		want := &models.Recurrence{
			Frequency:  models.FreqWeekly,
			Interval:   2,
			Count:      10,
			ByDay:      "MO,FR",
			ByMonthDay: 15,
			ByMonth:    6,
		}
		if !reflect.DeepEqual(rec, want) {
			t.Errorf("argRecurrence = %+v, want %+v", rec, want)
		}
	})

	t.Run("until parsed", func(t *testing.T) {
		args := map[string]interface{}{
			"recurrence": map[string]interface{}{
				"frequency": "DAILY",
				"until":     "2025-12-31",
			},
		}
		rec, err := argRecurrence(args, "recurrence")
		if err != nil {
			t.Fatalf("argRecurrence failed: %v", err)
		}
		want := time.Date(2025, 12, 31, 0, 0, 0, 0, time.Local)
		if !rec.Until.Equal(want) {
			t.Errorf("Until = %v, want %v", rec.Until, want)
		}
	})

	t.Run("invalid frequency", func(t *testing.T) {
		args := map[string]interface{}{
			"recurrence": map[string]interface{}{"frequency": "HOURLY"},
		}
		_, err := argRecurrence(args, "recurrence")
		if err == nil {
			t.Fatal("argRecurrence expected error")
		}
		var validationErr *errs.ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("error = %v, want ValidationError", err)
		}
	})

	t.Run("missing frequency", func(t *testing.T) {
		args := map[string]interface{}{
			"recurrence": map[string]interface{}{"interval": float64(2)},
		}
		if _, err := argRecurrence(args, "recurrence"); err == nil {
			t.Fatal("argRecurrence expected error for missing frequency")
		}
	})
}
