package middleware

import (
	"regexp"
	"strings"
)

// RedactOptions configures what Logger scrubs from request metadata.
//
// MaskHeaders adds header names (case-insensitive) whose values are replaced
// with "[REDACTED]" on top of Authorization, Cookie, Set-Cookie, and
// Idempotency-Key.
type RedactOptions struct {
	MaskHeaders []string
}

var (
	emailRE = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Compact JWS: three base64url segments, the first starting with "eyJ".
	jwtRE = regexp.MustCompile(`\beyJ[A-Za-z0-9_\-]*\.[A-Za-z0-9_\-]+\.[A-Za-z0-9_\-]*`)
	// token-ish query parameters: access_token=..., refresh_token=..., code=...
	secretParamRE = regexp.MustCompile(`(?i)\b((?:access_token|refresh_token|id_token|code|state)=)[^&]*`)
)

type redactor struct {
	masked map[string]struct{}
}

func newRedactor(opts RedactOptions) *redactor {
	r := &redactor{masked: map[string]struct{}{
		"authorization":   {},
		"cookie":          {},
		"set-cookie":      {},
		"idempotency-key": {},
	}}
	for _, h := range opts.MaskHeaders {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.masked[h] = struct{}{}
		}
	}
	return r
}

// text scrubs free-form values such as the raw query string.
func (r *redactor) text(s string) string {
	if s == "" {
		return s
	}
	s = secretParamRE.ReplaceAllString(s, "${1}[REDACTED]")
	s = jwtRE.ReplaceAllString(s, "[REDACTED:jwt]")
	return emailRE.ReplaceAllString(s, "[REDACTED:email]")
}

// headers returns a flattened, scrubbed copy of h.
func (r *redactor) headers(h map[string][]string) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = "[REDACTED]"
			continue
		}
		out[k] = r.text(strings.Join(vv, ", "))
	}
	return out
}
