package blog

import "testing"

func TestMatchExpression(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		query string
		want  string
	}{
		{name: "empty", query: "", want: ""},
		{name: "single token", query: "hello", want: `"hello"`},
		{name: "every token required", query: "red fox", want: `"red" "fox"`},
		{name: "operators quoted", query: "cats NOT dogs", want: `"cats" "NOT" "dogs"`},
		{name: "punctuation only dropped", query: "!!! ? hello", want: `"hello"`},
		{name: "quotes stripped", query: `"cats`, want: `"cats"`},
		{name: "prefix marker stripped", query: "cats*", want: `"cats"`},
		{name: "inner punctuation splits phrase", query: "don't", want: `"don t"`},
		{name: "unicode letters kept", query: "café", want: `"café"`},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := matchExpression(tc.query); got != tc.want {
				t.Fatalf("matchExpression(%q) = %q, want %q", tc.query, got, tc.want)
			}
		})
	}
}
