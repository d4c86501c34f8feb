package docache

import (
	"fmt"
	"strings"

	"github.com/docache/docache/backend"
)

// Key identifies a cache entry and its place in a hierarchical namespace:
// an ordered sequence of string segments. Clearing a key also clears every
// key nested under it.
//
// Segments may contain any bytes, including the separator; Encode escapes
// them so that no two distinct keys share a storage id.
type Key []string

// segment escaping: '%' and the separator are percent-encoded so that the
// joined id splits back into the original segments unambiguously.
var segmentEscaper = strings.NewReplacer("%", "%25", backend.Sep, "%2F")

// Encode joins the escaped segments with backend.Sep. It is injective over
// non-empty keys: Encode(k1) == Encode(k2) implies k1 == k2.
func (k Key) Encode() string {
	switch len(k) {
	case 0:
		return ""
	case 1:
		return segmentEscaper.Replace(k[0])
	}
	parts := make([]string, len(k))
	for i, s := range k {
		parts[i] = segmentEscaper.Replace(s)
	}
	return strings.Join(parts, backend.Sep)
}

// DecodeKey inverts Encode for ids produced by it:
// Key.Encode(DecodeKey(id)) == id for every well-formed id.
func DecodeKey(id string) (Key, error) {
	parts := strings.Split(id, backend.Sep)
	k := make(Key, len(parts))
	for i, p := range parts {
		seg, err := unescapeSegment(p)
		if err != nil {
			return nil, fmt.Errorf("docache: malformed id %q: %w", id, err)
		}
		k[i] = seg
	}
	return k, nil
}

func unescapeSegment(s string) (string, error) {
	if !strings.ContainsRune(s, '%') {
		return s, nil
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if i+3 > len(s) {
			return "", fmt.Errorf("truncated escape at %d", i)
		}
		// only the canonical (uppercase) escapes decode, so distinct ids
		// never alias one key
		switch s[i+1 : i+3] {
		case "25":
			b.WriteByte('%')
		case "2F":
			b.WriteByte(backend.Sep[0])
		default:
			return "", fmt.Errorf("unknown escape %q at %d", s[i:i+3], i)
		}
		i += 2
	}
	return b.String(), nil
}
