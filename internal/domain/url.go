package domain

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidURL = errors.New("invalid url")

// NormalizeURL repairs and validates a candidate URL.
//
// Missing schemes are inferred as https. Only http and https are accepted
// and a host is required. Scheme and host are lower-cased; path, query and
// fragment are kept verbatim.
func NormalizeURL(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	if strings.ContainsAny(s, " \t\r\n") {
		return "", fmt.Errorf("%w: contains whitespace", ErrInvalidURL)
	}

	switch {
	case strings.HasPrefix(s, "//"):
		s = "https:" + s
	case !strings.Contains(s, "://"):
		if scheme, ok := opaqueScheme(s); ok {
			return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, scheme)
		}
		s = "https://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return "", fmt.Errorf("%w: missing host", ErrInvalidURL)
	}
	u.Host = strings.ToLower(u.Host)

	return u.String(), nil
}

// opaqueScheme detects "mailto:x" or "javascript:x" style input, while
// letting "localhost:3000/path" through as host:port.
func opaqueScheme(s string) (string, bool) {
	i := strings.IndexByte(s, ':')
	if i <= 0 {
		return "", false
	}
	scheme := s[:i]
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "", false
		}
	}

	rest := s[i+1:]
	if j := strings.IndexAny(rest, "/?#"); j >= 0 {
		rest = rest[:j]
	}
	if rest != "" && strings.Trim(rest, "0123456789") == "" {
		return "", false
	}
	return strings.ToLower(scheme), true
}

// DedupKey is the comparison form of a URL: normalized, default port
// stripped, fragment dropped and trailing path slash removed.
// Two URLs with the same key are the same link.
func DedupKey(raw string) (string, error) {
	n, err := NormalizeURL(raw)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(n)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = host + ":" + port
	}
	if strings.Contains(u.Hostname(), ":") {
		// IPv6 literal
		host = "[" + u.Hostname() + "]"
		if port != "" {
			host += ":" + port
		}
	}

	u.Host = host
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = strings.TrimRight(u.RawPath, "/")

	return u.String(), nil
}
