package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// fold canonicalizes s for caseless comparison. A Caser is stateful, so a
// fresh one is created per call.
func fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(s)))
}

// containsFold reports whether needle occurs in haystack ignoring case
func containsFold(haystack, needle string) bool {
	return strings.Contains(fold(haystack), fold(needle))
}

// foldAll folds every element of in
func foldAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, fold(s))
	}
	return out
}
