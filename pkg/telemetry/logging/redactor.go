package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces the value of a redacted attribute.
const Redacted = "[REDACTED]"

var ssnPattern = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)

// Redactor masks protected health information in log attributes.
type Redactor struct {
	keys map[string]bool
}

// NewRedactor creates a redactor for the given attribute keys. Keys are
// matched case-insensitively.
func NewRedactor(keys []string) *Redactor {
	r := &Redactor{keys: make(map[string]bool, len(keys))}
	for _, k := range keys {
		r.keys[strings.ToLower(k)] = true
	}
	return r
}

// IsSensitiveKey reports whether values logged under key are redacted.
func (r *Redactor) IsSensitiveKey(key string) bool {
	return r.keys[strings.ToLower(key)]
}

// RedactString masks social security numbers in s.
func (r *Redactor) RedactString(s string) string {
	return ssnPattern.ReplaceAllString(s, "***-**-****")
}

// ReplaceAttr implements slog.HandlerOptions.ReplaceAttr. Group members are
// visited individually by the handler, so nested keys are matched too.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if r.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}

	v := a.Value.Resolve()
	if v.Kind() == slog.KindString {
		if s := v.String(); ssnPattern.MatchString(s) {
			return slog.String(a.Key, r.RedactString(s))
		}
	}
	return a
}
