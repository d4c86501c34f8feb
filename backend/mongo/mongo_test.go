package mongo

import (
	"regexp"
	"testing"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

func TestNewValidatesConfig(t *testing.T) {
	if _, err := New(Config{Database: "cache"}); err != ErrNilClient {
		t.Fatalf("New(nil client) error = %v, want ErrNilClient", err)
	}
	if _, err := New(Config{Client: &mongo.Client{}}); err != ErrNoDatabase {
		t.Fatalf("New(no database) error = %v, want ErrNoDatabase", err)
	}
}

// Segment content may contain any byte, so the tree-delete pattern must hold
// for ids with embedded or trailing newlines: an id-final newline must not
// turn a sibling into a match, and a newline inside a descendant must not
// hide it from the sweep.
func TestTreePattern(t *testing.T) {
	cases := []struct {
		id    string
		cand  string
		match bool
	}{
		{"ns/a", "ns/a", true},
		{"ns/a", "ns/a/b", true},
		{"ns/a", "ns/a/b/c", true},
		{"ns/a", "ns/ab", false},
		{"ns/a", "ns/a\n", false},     // newline sibling
		{"ns/a", "ns/a/b\nc", true},   // newline descendant
		{"ns/a", "ns/a/b\nc/d", true}, // deeper newline descendant
		{"ns/a\n", "ns/a\n", true},    // subtree rooted at a newline id
		{"ns/a\n", "ns/a\n/b", true},
		{"ns/a\n", "ns/a", false},
		{"ns/x.y", "ns/x.y", true},
		{"ns/x.y", "ns/xay", false}, // quoted metacharacter
	}
	for _, tc := range cases {
		re, err := regexp.Compile(treePattern(tc.id))
		if err != nil {
			t.Fatalf("treePattern(%q) does not compile: %v", tc.id, err)
		}
		if got := re.MatchString(tc.cand); got != tc.match {
			t.Fatalf("treePattern(%q) match %q = %v, want %v", tc.id, tc.cand, got, tc.match)
		}
	}
}
