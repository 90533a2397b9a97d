package ical

import "strings"

// EscapeText escapes the RFC 5545 reserved characters (backslash, newline,
// comma, semicolon) so that free text cannot corrupt the surrounding
// structure or inject additional properties.
func EscapeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case ',':
			sb.WriteString(`\,`)
		case ';':
			sb.WriteString(`\;`)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// UnescapeText reverses EscapeText. Unknown escape sequences keep the
// escaped character as-is, since third-party calendar software is not
// always strict about what it escapes.
func UnescapeText(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	escaped := false
	for _, r := range s {
		if escaped {
			switch r {
			case 'n', 'N':
				sb.WriteRune('\n')
			default:
				sb.WriteRune(r)
			}
			escaped = false
			continue
		}
		if r == '\\' {
			escaped = true
			continue
		}
		sb.WriteRune(r)
	}
	if escaped {
		sb.WriteRune('\\')
	}
	return sb.String()
}

// SplitUnescaped splits s on every occurrence of sep that is not preceded
// by a backslash. The separators inside escaped sequences are kept intact
// for UnescapeText to resolve.
func SplitUnescaped(s string, sep rune) []string {
	var parts []string
	var sb strings.Builder
	escaped := false
	for _, r := range s {
		if escaped {
			sb.WriteRune('\\')
			sb.WriteRune(r)
			escaped = false
			continue
		}
		switch r {
		case '\\':
			escaped = true
		case sep:
			parts = append(parts, sb.String())
			sb.Reset()
		default:
			sb.WriteRune(r)
		}
	}
	if escaped {
		sb.WriteRune('\\')
	}
	parts = append(parts, sb.String())
	return parts
}
