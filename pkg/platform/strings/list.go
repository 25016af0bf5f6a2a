// Package strings parses list-valued settings such as KAFKA_BROKERS.
package strings

import "strings"

// SplitFoldList splits v on sep and returns the trimmed, lowercased items
// with blanks and repeats dropped. Order of first occurrence is kept and an
// empty v yields nil. Suited to case-insensitive items such as host names.
func SplitFoldList(v, sep string) []string {
	return dedupe(strings.Split(v, sep), func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
}

func dedupe(items []string, normalize func(string) string) []string {
	var out []string
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		item = normalize(item)
		if item == "" {
			continue
		}
		if _, dup := seen[item]; dup {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
