package scraper

import (
	"net/url"
	"strings"
)

// Tracking query parameters stripped during normalization
var trackingParams = map[string]bool{
	"ref":      true,
	"source":   true,
	"fbclid":   true,
	"gclid":    true,
	"mc_cid":   true,
	"mc_eid":   true,
	"igshid":   true,
	"referrer": true,
}

// NormalizeURL canonicalizes a URL for comparison: scheme and host are
// lowercased, the trailing slash is stripped, fragments and tracking query
// parameters are removed. Returns "" for relative or non-HTTP URLs.
func NormalizeURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)

	// Handle protocol-relative URLs
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}

	if !strings.Contains(rawURL, "://") {
		return "" // Skip relative URLs
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return ""
	}
	parsed.Scheme = scheme
	parsed.Host = strings.ToLower(parsed.Host)
	parsed.Fragment = ""

	if parsed.RawQuery != "" {
		query := parsed.Query()
		for key := range query {
			if trackingParams[key] || strings.HasPrefix(strings.ToLower(key), "utm_") {
				query.Del(key)
			}
		}
		parsed.RawQuery = query.Encode()
	}

	normalized := parsed.String()
	normalized = strings.TrimSuffix(normalized, "/")
	return normalized
}

// ExtractHost extracts the lowercased hostname from a URL string, without a
// leading www prefix. Returns "" when the URL has no usable host.
func ExtractHost(rawURL string) string {
	if strings.HasPrefix(rawURL, "//") {
		rawURL = "https:" + rawURL
	}
	if !strings.Contains(rawURL, "://") {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}
