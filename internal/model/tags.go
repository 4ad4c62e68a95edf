package model

import "strings"

// ParseTags splits a comma-separated tag string into trimmed, lowercased,
// non-empty tags. Duplicates are kept; order follows the input.
func ParseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var tags []string
	for _, raw := range strings.Split(s, ",") {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
