package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const prefix = "wbd:fc"

// Collection builds the cache key for one dataset served by one endpoint.
// The readable part is for operators; the hash keeps endpoints apart.
func Collection(endpoint, dataset string) string {
	ep := strings.TrimRight(strings.TrimSpace(endpoint), "/")
	ds := strings.TrimSpace(dataset)
	sum := xxhash.Sum64String(ep + "|" + ds)
	return fmt.Sprintf("%s:%s:%016x", prefix, sanitize(ds), sum)
}

func sanitize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case r == '/':
			out = ':'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		unicode.IsDigit(r)
}
