package ical

import (
	"errors"
	"testing"
	"time"

	"caldav-mcp/internal/errs"
	"caldav-mcp/internal/models"
)

func TestFormatRRule(t *testing.T) {
	tests := []struct {
		name     string
		rec      *models.Recurrence
		allDay   bool
		expected string
		wantErr  bool
	}{
		{
			name:     "nil rule",
			rec:      nil,
			expected: "",
		},
		{
			name:     "daily",
			rec:      &models.Recurrence{Frequency: "DAILY"},
			expected: "FREQ=DAILY",
		},
		{
			name:     "lowercase frequency accepted",
			rec:      &models.Recurrence{Frequency: "weekly"},
			expected: "FREQ=WEEKLY",
		},
		{
			name:     "interval of one omitted",
			rec:      &models.Recurrence{Frequency: "DAILY", Interval: 1},
			expected: "FREQ=DAILY",
		},
		{
			name:     "interval above one kept",
			rec:      &models.Recurrence{Frequency: "WEEKLY", Interval: 2},
			expected: "FREQ=WEEKLY;INTERVAL=2",
		},
		{
			name:     "count",
			rec:      &models.Recurrence{Frequency: "DAILY", Count: 10},
			expected: "FREQ=DAILY;COUNT=10",
		},
		{
			name: "until for all-day event uses date form",
			rec: &models.Recurrence{
				Frequency: "MONTHLY",
				Until:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			},
			allDay:   true,
			expected: "FREQ=MONTHLY;UNTIL=20250630",
		},
		{
			name: "until for timed event stays datetime even at midnight",
			rec: &models.Recurrence{
				Frequency: "MONTHLY",
				Until:     time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			},
			expected: "FREQ=MONTHLY;UNTIL=20250630T000000Z",
		},
		{
			name: "until rendered in UTC",
			rec: &models.Recurrence{
				Frequency: "DAILY",
				Until:     time.Date(2025, 6, 30, 17, 30, 0, 0, time.UTC),
			},
			expected: "FREQ=DAILY;UNTIL=20250630T173000Z",
		},
		{
			name:     "byday",
			rec:      &models.Recurrence{Frequency: "WEEKLY", ByDay: "mo,we,fr"},
			expected: "FREQ=WEEKLY;BYDAY=MO,WE,FR",
		},
		{
			name:     "bymonthday and bymonth",
			rec:      &models.Recurrence{Frequency: "YEARLY", ByMonthDay: 24, ByMonth: 12},
			expected: "FREQ=YEARLY;BYMONTHDAY=24;BYMONTH=12",
		},
		{
			name: "canonical part order",
			rec: &models.Recurrence{
				Frequency: "WEEKLY",
				Interval:  2,
				Count:     5,
				ByDay:     "TU",
			},
			expected: "FREQ=WEEKLY;INTERVAL=2;COUNT=5;BYDAY=TU",
		},
		{
			name:    "missing frequency",
			rec:     &models.Recurrence{},
			wantErr: true,
		},
		{
			name:    "unknown frequency",
			rec:     &models.Recurrence{Frequency: "HOURLY"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatRRule(tt.rec, tt.allDay)

			if tt.wantErr {
				if err == nil {
					t.Fatalf("FormatRRule() expected error, got %q", got)
				}
				var validationErr *errs.ValidationError
				if !errors.As(err, &validationErr) {
					t.Errorf("FormatRRule() error = %v, want ValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FormatRRule() unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("FormatRRule() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// Rules parsed off the wire can carry parts the structured fields cannot
// hold. The raw string is authoritative on re-encode so none of them are
// lost.
func TestFormatRRulePreservesRawRule(t *testing.T) {
	rules := []string{
		"FREQ=HOURLY;INTERVAL=6",
		"FREQ=MONTHLY;BYMONTHDAY=1,15",
		"FREQ=MONTHLY;BYDAY=FR;BYSETPOS=-1",
		"FREQ=WEEKLY;WKST=SU;BYDAY=TU,TH",
	}

	for _, rule := range rules {
		t.Run(rule, func(t *testing.T) {
			rec := ParseRRule(rule)
			if rec == nil {
				t.Fatalf("ParseRRule(%q) returned nil", rule)
			}
			got, err := FormatRRule(rec, false)
			if err != nil {
				t.Fatalf("FormatRRule() unexpected error: %v", err)
			}
			if got != rule {
				t.Errorf("FormatRRule() = %q, want original rule %q", got, rule)
			}
		})
	}
}

func TestParseRRule(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(t *testing.T, rec *models.Recurrence)
	}{
		{
			name:  "empty",
			input: "",
			check: func(t *testing.T, rec *models.Recurrence) {
				if rec != nil {
					t.Errorf("expected nil recurrence, got %+v", rec)
				}
			},
		},
		{
			name:  "weekly with byday",
			input: "FREQ=WEEKLY;BYDAY=MO,WE,FR",
			check: func(t *testing.T, rec *models.Recurrence) {
				if rec.Frequency != models.FreqWeekly {
					t.Errorf("Frequency = %q, want WEEKLY", rec.Frequency)
				}
				if rec.ByDay != "MO,WE,FR" {
					t.Errorf("ByDay = %q, want MO,WE,FR", rec.ByDay)
				}
			},
		},
		{
			name:  "rrule prefix stripped",
			input: "RRULE:FREQ=DAILY;COUNT=3",
			check: func(t *testing.T, rec *models.Recurrence) {
				if rec.Frequency != models.FreqDaily || rec.Count != 3 {
					t.Errorf("got %+v, want daily count 3", rec)
				}
			},
		},
		{
			name:  "interval",
			input: "FREQ=MONTHLY;INTERVAL=3;BYMONTHDAY=15",
			check: func(t *testing.T, rec *models.Recurrence) {
				if rec.Interval != 3 {
					t.Errorf("Interval = %d, want 3", rec.Interval)
				}
				if rec.ByMonthDay != 15 {
					t.Errorf("ByMonthDay = %d, want 15", rec.ByMonthDay)
				}
			},
		},
		{
			name:  "unparseable rule kept raw",
			input: "FREQ=BOGUS;WAT=1",
			check: func(t *testing.T, rec *models.Recurrence) {
				if rec == nil {
					t.Fatal("expected raw-only recurrence, got nil")
				}
				if rec.Frequency != "" {
					t.Errorf("Frequency = %q, want empty", rec.Frequency)
				}
				if rec.Raw != "FREQ=BOGUS;WAT=1" {
					t.Errorf("Raw = %q", rec.Raw)
				}
			},
		},
		{
			name:  "raw always recorded",
			input: "FREQ=YEARLY;BYMONTH=12",
			check: func(t *testing.T, rec *models.Recurrence) {
				if rec.Raw != "FREQ=YEARLY;BYMONTH=12" {
					t.Errorf("Raw = %q", rec.Raw)
				}
				if rec.ByMonth != 12 {
					t.Errorf("ByMonth = %d, want 12", rec.ByMonth)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, ParseRRule(tt.input))
		})
	}
}

func TestRRuleRoundTrip(t *testing.T) {
	rules := []*models.Recurrence{
		{Frequency: "DAILY"},
		{Frequency: "WEEKLY", Interval: 2, ByDay: "MO,FR"},
		{Frequency: "MONTHLY", ByMonthDay: 1, Count: 12},
		{Frequency: "YEARLY", ByMonth: 7},
	}

	for _, rec := range rules {
		formatted, err := FormatRRule(rec, false)
		if err != nil {
			t.Fatalf("FormatRRule(%+v) failed: %v", rec, err)
		}
		parsed := ParseRRule(formatted)
		if parsed == nil {
			t.Fatalf("ParseRRule(%q) returned nil", formatted)
		}
		if parsed.Frequency != rec.Frequency ||
			parsed.Interval != rec.Interval ||
			parsed.Count != rec.Count ||
			parsed.ByDay != rec.ByDay ||
			parsed.ByMonthDay != rec.ByMonthDay ||
			parsed.ByMonth != rec.ByMonth {
			t.Errorf("round trip of %+v via %q = %+v", rec, formatted, parsed)
		}
	}
}
