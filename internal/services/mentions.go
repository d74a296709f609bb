package services

import (
	"regexp"
)

// "@" followed by word characters (letters, digits, underscore in any script)
var mentionRe = regexp.MustCompile(`@([\p{L}\p{N}_]+)`)

// ExtractMentions returns the handles mentioned in body, in order, without
// the leading "@". Repeated mentions are kept.
func ExtractMentions(body string) []string {
	matches := mentionRe.FindAllStringSubmatch(body, -1)
	if len(matches) == 0 {
		return nil
	}
	handles := make([]string, 0, len(matches))
	for _, m := range matches {
		handles = append(handles, m[1])
	}
	return handles
}

// uniqueHandles drops repeats, keeping first occurrences in order.
func uniqueHandles(handles []string) []string {
	seen := make(map[string]struct{}, len(handles))
	out := handles[:0:0]
	for _, h := range handles {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}
