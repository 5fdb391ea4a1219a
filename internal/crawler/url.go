package crawler

import (
	"net/url"
	"strings"
)

// EncodeURL percent-encodes path segments that carry non-ASCII runes. Some
// upstream links embed unescaped Vietnamese slugs, which trip strict HTTP
// clients; ASCII-only segments are left untouched.
func EncodeURL(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return raw
	}
	segments := strings.Split(parsed.Path, "/")
	changed := false
	for i, segment := range segments {
		if segment == "" || isASCII(segment) {
			continue
		}
		segments[i] = url.PathEscape(segment)
		changed = true
	}
	if !changed {
		return raw
	}
	parsed.RawPath = strings.Join(segments, "/")
	unescaped, err := url.PathUnescape(parsed.RawPath)
	if err != nil {
		return raw
	}
	parsed.Path = unescaped
	return parsed.String()
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7f {
			return false
		}
	}
	return true
}
