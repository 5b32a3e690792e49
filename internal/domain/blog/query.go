package blog

import "strings"

// NormalizeQuery splits text on whitespace, drops empty tokens and joins the rest with
// single spaces. A blank query normalises to the empty string.
func NormalizeQuery(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
