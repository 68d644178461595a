package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces sensitive values in log output.
const RedactedValue = "[REDACTED]"

// Keys that are safe to print as-is. Anything else passed
// through MaskField is redacted.
var plainKeys = map[string]bool{
	"handle":  true,
	"phase":   true,
	"txid":    true,
	"route":   true,
	"tipper":  true,
	"creator": true,
	"agent":   true,
	"amount":  true,
}

// MaskField returns key=value, redacting non-empty values unless key is one of
// the plain keys.
func MaskField(key, value string) slog.Attr {
	if value == "" || plainKeys[strings.ToLower(key)] {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}
