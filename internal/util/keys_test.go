package util

import "testing"

func TestJoinKey(t *testing.T) {
	cases := []struct {
		name  string
		parts []any
		want  string
	}{
		{"empty", nil, ""},
		{"single string", []any{"user:1"}, "user:1"},
		{"composite", []any{"user", 1, true}, "user,1,true"},
		{"nested", []any{"todos", []int{1, 2}}, "todos,[1 2]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := JoinKey(tc.parts); got != tc.want {
				t.Fatalf("JoinKey(%v) = %q, want %q", tc.parts, got, tc.want)
			}
		})
	}
}

func TestSuffixMatchesJoinKey(t *testing.T) {
	base := JoinKey([]any{"user", 1})
	if got, want := Suffix(base, "infinite"), JoinKey([]any{"user", 1, "infinite"}); got != want {
		t.Fatalf("Suffix = %q, want %q", got, want)
	}
	if got := Suffix(base); got != base {
		t.Fatalf("Suffix with no parts = %q, want %q", got, base)
	}
}
