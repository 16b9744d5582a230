package helpers

import "strings"

func StringTrim(s string) string {
	return strings.TrimSpace(s)
}

// RemoveDuplicates returns the slice with duplicates dropped, preserving the
// first occurrence order.
func RemoveDuplicates(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}
