package redis

import "testing"

func TestNewRequiresClient(t *testing.T) {
	if _, err := New(Config{}); err != ErrNilClient {
		t.Fatalf("New(nil client) error = %v, want ErrNilClient", err)
	}
}

func TestGlobEscape(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a*b", `a\*b`},
		{"a?b", `a\?b`},
		{"a[b]c", `a\[b\]c`},
		{`a\b`, `a\\b`},
		{"ns/seg*?", `ns/seg\*\?`},
	}
	for _, tc := range cases {
		if got := globEscape(tc.in); got != tc.want {
			t.Fatalf("globEscape(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
