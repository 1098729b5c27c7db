package geko

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/gosimple/slug"
)

var (
	nonDigitRe = regexp.MustCompile(`\D`)
	domainRe   = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)+$`)
	scriptRe   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
)

// ValidateEAN strips non-digits and accepts lengths 8, 12, 13 and 14. For
// 13-digit codes the EAN-13 check digit is recomputed and mismatches are
// rejected. Invalid codes come back nil, never an error.
func ValidateEAN(raw string) *string {
	digits := nonDigitRe.ReplaceAllString(raw, "")
	switch len(digits) {
	case 8, 12, 14:
		return &digits
	case 13:
		if ean13CheckDigit(digits[:12]) != int(digits[12]-'0') {
			return nil
		}
		return &digits
	default:
		return nil
	}
}

// ean13CheckDigit computes the alternating x1/x3 weighted sum mod 10 over the
// first 12 digits.
func ean13CheckDigit(first12 string) int {
	sum := 0
	for i, r := range first12 {
		d := int(r - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10
}

// NormalizeURL trims the input, defaults the scheme to https and checks the
// host looks like a domain. Invalid URLs come back nil. A syntactically valid
// non-HTTPS URL is accepted but reported through the warning return.
func NormalizeURL(raw string) (normalized *string, warning string) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, ""
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	parsed, err := url.Parse(trimmed)
	if err != nil || parsed.Host == "" {
		return nil, ""
	}
	host := parsed.Hostname()
	if !domainRe.MatchString(host) {
		return nil, ""
	}
	if parsed.Scheme != "https" {
		warning = "non-HTTPS URL accepted: " + trimmed
	}
	return &trimmed, warning
}

// ParseNumber coerces feed scalars to float64, accepting both comma and dot
// decimal separators. Empty or unparseable values come back nil.
func ParseNumber(v any) *float64 {
	switch val := v.(type) {
	case nil:
		return nil
	case float64:
		return &val
	case int:
		f := float64(val)
		return &f
	case string:
		s := strings.TrimSpace(strings.ReplaceAll(val, ",", "."))
		if s == "" {
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	case map[string]any:
		// Elements with attributes keep their text under "#text".
		return ParseNumber(val["#text"])
	default:
		return nil
	}
}

// ParseBool reads the feed's assorted truthy spellings.
func ParseBool(v any) bool {
	s := strings.ToLower(strings.TrimSpace(asString(v)))
	switch s {
	case "1", "true", "yes", "y", "tak":
		return true
	}
	return false
}

// StripScripts removes <script> blocks from HTML descriptions before storage.
// It is a denylist sanitizer only; the feed is trusted for everything else.
func StripScripts(s string) string {
	return scriptRe.ReplaceAllString(s, "")
}

// SlugifyPath builds the deterministic category id for a path prefix. The
// segments are space-joined and slugged, so "Tools/Power Tools" becomes
// "tools-power-tools" on every run.
func SlugifyPath(segments []string) string {
	return slug.Make(strings.Join(segments, " "))
}

func asString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case map[string]any:
		// Elements with attributes keep their text under "#text".
		if text, ok := val["#text"].(string); ok {
			return text
		}
		return ""
	case nil:
		return ""
	default:
		return ""
	}
}
