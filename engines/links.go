// Package engines holds the parsing strategies of the supported search
// engines. Importing it registers every engine with package search.
package engines

import (
	"encoding/base64"
	"net/url"
	"strings"
)

// absolute resolves raw against base and keeps only http(s) links.
func absolute(base, raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(strings.ToLower(raw), "javascript:") {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	u, err := b.Parse(raw)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}

// queryTarget returns the value of param when link is a redirect wrapper
// carrying the destination in its query string.
func queryTarget(link, param string) (string, bool) {
	u, err := url.Parse(link)
	if err != nil {
		return "", false
	}
	v := u.Query().Get(param)
	if v == "" {
		return "", false
	}
	return v, true
}

// yahooTarget unwraps r.search.yahoo.com links, which carry the escaped
// destination between "/RU=" and "/RK=".
func yahooTarget(link string) (string, bool) {
	start := strings.Index(link, "/RU=")
	if start < 0 {
		return "", false
	}
	rest := link[start+len("/RU="):]
	if end := strings.Index(rest, "/R"); end >= 0 {
		rest = rest[:end]
	}
	target, err := url.QueryUnescape(rest)
	if err != nil || target == "" {
		return "", false
	}
	return target, true
}

// bingTarget unwraps bing.com/ck/a links whose "u" parameter is "a1"
// followed by the base64url encoded destination.
func bingTarget(link string) (string, bool) {
	u, ok := queryTarget(link, "u")
	if !ok || !strings.HasPrefix(u, "a1") {
		return "", false
	}
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(u[2:], "="))
	if err != nil {
		return "", false
	}
	return string(decoded), true
}
