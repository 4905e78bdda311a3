// Package urlutil extracts and normalizes http(s) URLs from pasted text.
package urlutil

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://\S+`)

// ExtractURLs finds http(s) URLs in arbitrary text (multi-paste, prose,
// markdown), trims common trailing punctuation, normalizes each URL, and
// de-duplicates while preserving the original order. Non-http(s) schemes are
// ignored to match engine usage.
func ExtractURLs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})

	for _, raw := range urlPattern.FindAllString(text, -1) {
		cleaned := trimTrailingPunct(raw)
		if cleaned == "" {
			continue
		}
		normalized, ok := Normalize(cleaned)
		if !ok {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}

	return out
}

// ContainsMultipleURLs reports whether text holds more than one candidate
// URL; convenience for UI confirm dialogs.
func ContainsMultipleURLs(text string) bool {
	return len(ExtractURLs(text)) > 1
}

// Normalize validates an http(s) URL and canonicalizes it: scheme and host
// lowercased, fragment stripped, default ports removed. Path and query are
// preserved as-is.
func Normalize(input string) (string, bool) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", false
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}

	switch u.Scheme {
	case "http", "https":
	default:
		return "", false
	}

	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)

	host := u.Hostname()
	if host == "" {
		return "", false
	}
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		u.Host = strings.ToLower(host) + ":" + port
	} else {
		u.Host = strings.ToLower(host)
	}

	return u.String(), true
}

// trimTrailingPunct peels delimiters that commonly trail URLs in prose,
// e.g. "https://example.com/foo)," -> "https://example.com/foo".
func trimTrailingPunct(s string) string {
	return strings.TrimRight(s, `)]}>,.;:!?"'`)
}
