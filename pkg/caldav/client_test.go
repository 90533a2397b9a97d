package caldav

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"caldav-mcp/internal/errs"
	"caldav-mcp/internal/models"
)

func TestNewClientValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "complete settings",
			cfg:  Config{URL: "https://caldav.example.com/", Username: "u", Password: "p"},
		},
		{
			name:    "missing url",
			cfg:     Config{Username: "u", Password: "p"},
			wantErr: true,
		},
		{
			name:    "missing username",
			cfg:     Config{URL: "https://caldav.example.com/", Password: "p"},
			wantErr: true,
		},
		{
			name:    "missing password",
			cfg:     Config{URL: "https://caldav.example.com/", Username: "u"},
			wantErr: true,
		},
		{
			name:    "everything missing",
			cfg:     Config{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.cfg, slog.Default())

			if tt.wantErr {
				if err == nil {
					t.Fatal("NewClient() expected error")
				}
				var confErr *errs.ConfigurationError
				if !errors.As(err, &confErr) {
					t.Errorf("NewClient() error = %v, want ConfigurationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewClient() unexpected error: %v", err)
			}
			if client == nil {
				t.Fatal("NewClient() returned nil client")
			}
		})
	}
}

func TestDetectQuirks(t *testing.T) {
	tests := []struct {
		url      string
		provider string
		timeout  time.Duration
	}{
		{url: "https://caldav.yandex.ru/", provider: "yandex", timeout: 90 * time.Second},
		{url: "https://caldav.yandex.com/calendars/", provider: "yandex", timeout: 90 * time.Second},
		{url: "https://CALDAV.YANDEX.RU/", provider: "yandex", timeout: 90 * time.Second},
		{url: "https://dav.example.com/", provider: "generic", timeout: 30 * time.Second},
		{url: "https://nextcloud.example.com/remote.php/dav/", provider: "generic", timeout: 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			q := DetectQuirks(tt.url)
			if q.Name() != tt.provider {
				t.Errorf("DetectQuirks(%q).Name() = %q, want %q", tt.url, q.Name(), tt.provider)
			}
			if q.HTTPTimeout() != tt.timeout {
				t.Errorf("DetectQuirks(%q).HTTPTimeout() = %v, want %v", tt.url, q.HTTPTimeout(), tt.timeout)
			}
		})
	}
}

func TestFindEventByUID(t *testing.T) {
	events := []*models.Event{
		{UID: "first"},
		{UID: "second"},
	}

	t.Run("found", func(t *testing.T) {
		ev, err := findEventByUID(events, "second")
		if err != nil {
			t.Fatalf("findEventByUID() failed: %v", err)
		}
		if ev.UID != "second" {
			t.Errorf("UID = %q, want second", ev.UID)
		}
	})

	t.Run("absent", func(t *testing.T) {
		_, err := findEventByUID(events, "missing")
		if err == nil {
			t.Fatal("findEventByUID() expected error")
		}
		var notFoundErr *errs.NotFoundError
		if !errors.As(err, &notFoundErr) {
			t.Errorf("findEventByUID() error = %v, want NotFoundError", err)
		}
	})

	t.Run("empty scan", func(t *testing.T) {
		_, err := findEventByUID(nil, "anything")
		var notFoundErr *errs.NotFoundError
		if !errors.As(err, &notFoundErr) {
			t.Errorf("findEventByUID() error = %v, want NotFoundError", err)
		}
	})
}

func TestBuildEventDefaults(t *testing.T) {
	now := time.Date(2025, 7, 14, 9, 30, 0, 0, time.Local)

	t.Run("title only", func(t *testing.T) {
		event := buildEvent(CreateEventOptions{Title: "Standup"}, now)

		if event.UID == "" {
			t.Error("UID must be generated")
		}
		if event.Title != "Standup" {
			t.Errorf("Title = %q", event.Title)
		}
		wantStart := time.Date(2025, 7, 15, 14, 0, 0, 0, time.Local)
		if !event.Start.Equal(wantStart) {
			t.Errorf("Start = %v, want tomorrow 14:00 local %v", event.Start, wantStart)
		}
		if !event.Floating {
			t.Error("a defaulted start must be floating")
		}
		if !event.End.Equal(wantStart.Add(time.Hour)) {
			t.Errorf("End = %v, want start + 1h", event.End)
		}
		if event.Sequence != 0 {
			t.Errorf("Sequence = %d, want 0", event.Sequence)
		}
		if event.Priority != 0 {
			t.Errorf("Priority = %d, want 0", event.Priority)
		}
		if !event.DTStamp.Equal(now) || event.DTStamp.Location() != time.UTC {
			t.Errorf("DTStamp = %v, want %v in UTC", event.DTStamp, now)
		}
	})

	t.Run("empty title defaults", func(t *testing.T) {
		event := buildEvent(CreateEventOptions{}, now)
		if event.Title != "Event" {
			t.Errorf("Title = %q, want Event", event.Title)
		}
	})

	t.Run("duration hours", func(t *testing.T) {
		start := time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)
		event := buildEvent(CreateEventOptions{
			Title:         "Workshop",
			Start:         start,
			DurationHours: 2.5,
		}, now)

		if !event.Start.Equal(start) {
			t.Errorf("Start = %v, want %v", event.Start, start)
		}
		if event.Floating {
			t.Error("an explicit start must keep its floating flag")
		}
		if want := start.Add(150 * time.Minute); !event.End.Equal(want) {
			t.Errorf("End = %v, want %v", event.End, want)
		}
	})

	t.Run("explicit end wins over duration", func(t *testing.T) {
		start := time.Date(2025, 7, 20, 10, 0, 0, 0, time.UTC)
		end := start.Add(45 * time.Minute)
		event := buildEvent(CreateEventOptions{
			Title:         "Short",
			Start:         start,
			End:           end,
			DurationHours: 3,
		}, now)

		if !event.End.Equal(end) {
			t.Errorf("End = %v, want explicit %v", event.End, end)
		}
	})

	t.Run("all-day end is exclusive next day", func(t *testing.T) {
		start := time.Date(2025, 7, 20, 0, 0, 0, 0, time.Local)
		event := buildEvent(CreateEventOptions{
			Title:  "Conference",
			Start:  start,
			AllDay: true,
		}, now)

		if !event.AllDay {
			t.Error("AllDay = false, want true")
		}
		if want := start.AddDate(0, 0, 1); !event.End.Equal(want) {
			t.Errorf("End = %v, want %v", event.End, want)
		}
	})

	t.Run("unique uids", func(t *testing.T) {
		a := buildEvent(CreateEventOptions{Title: "a"}, now)
		b := buildEvent(CreateEventOptions{Title: "b"}, now)
		if a.UID == b.UID {
			t.Errorf("both events got UID %q", a.UID)
		}
	})
}

func TestUIDSearchWindow(t *testing.T) {
	now := time.Date(2025, 7, 14, 12, 0, 0, 0, time.UTC)
	from, to := uidSearchWindow(now)

	if want := now.AddDate(0, 0, -365); !from.Equal(want) {
		t.Errorf("window start = %v, want %v", from, want)
	}
	if want := now.AddDate(0, 0, 365); !to.Equal(want) {
		t.Errorf("window end = %v, want %v", to, want)
	}
}

func TestDefaultStart(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Vienna")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	now := time.Date(2025, 7, 14, 23, 45, 0, 0, loc)
	got := defaultStart(now)
	want := time.Date(2025, 7, 15, 14, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("defaultStart(%v) = %v, want %v", now, got, want)
	}
	if got.Location() != loc {
		t.Errorf("defaultStart location = %v, want %v", got.Location(), loc)
	}

	// Month rollover.
	now = time.Date(2025, 7, 31, 8, 0, 0, 0, time.UTC)
	got = defaultStart(now)
	want = time.Date(2025, 8, 1, 14, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("defaultStart(%v) = %v, want %v", now, got, want)
	}
}

func TestStartOfDay(t *testing.T) {
	in := time.Date(2025, 7, 14, 18, 30, 45, 123, time.Local)
	got := startOfDay(in)
	want := time.Date(2025, 7, 14, 0, 0, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("startOfDay(%v) = %v, want %v", in, got, want)
	}
}
