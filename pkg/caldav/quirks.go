package caldav

import (
	"log/slog"
	"strings"
	"time"
)

// Quirks captures provider-specific behavior selected once at connection
// time, so individual operations stay free of provider conditionals.
type Quirks interface {
	// Name returns the provider identifier ("generic", "yandex", ...)
	Name() string

	// HTTPTimeout returns the per-request timeout for this provider
	HTTPTimeout() time.Duration

	// WarnOnConnect logs any provider caveats the caller should know about
	WarnOnConnect(logger *slog.Logger)
}

// DetectQuirks selects the quirks strategy for a server URL
func DetectQuirks(rawURL string) Quirks {
	lower := strings.ToLower(rawURL)
	if strings.Contains(lower, "yandex.ru") || strings.Contains(lower, "yandex.com") {
		return yandexQuirks{}
	}
	return genericQuirks{}
}

type genericQuirks struct{}

func (genericQuirks) Name() string               { return "generic" }
func (genericQuirks) HTTPTimeout() time.Duration { return 30 * time.Second }
func (genericQuirks) WarnOnConnect(*slog.Logger) {}

// yandexQuirks covers Yandex Calendar, which throttles WebDAV writes
// (60 seconds per MB since 2021) and frequently answers with 504s under
// that throttle. Requests get a longer timeout; pacing is left to the
// caller.
type yandexQuirks struct{}

func (yandexQuirks) Name() string               { return "yandex" }
func (yandexQuirks) HTTPTimeout() time.Duration { return 90 * time.Second }

func (yandexQuirks) WarnOnConnect(logger *slog.Logger) {
	logger.Warn("Yandex Calendar rate-limits WebDAV operations; expect slow writes and occasional 504 timeouts",
		"provider", "yandex")
}
