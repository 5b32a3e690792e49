package blog

import "testing"

func TestNormalizeQuery(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"":                    "",
		"   \t\n ":            "",
		"hello":               "hello",
		"  red   fox  ":       "red fox",
		"tabs\tand\nnewlines": "tabs and newlines",
	}

	for input, want := range cases {
		if got := NormalizeQuery(input); got != want {
			t.Fatalf("NormalizeQuery(%q) = %q, want %q", input, got, want)
		}
	}
}
