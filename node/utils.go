package node

import "strings"

// mapChars replaces every byte of from found in s with the byte at the same
// index in to.
func mapChars(s, from, to string) string {
	for i := 0; i < len(from); i++ {
		s = strings.ReplaceAll(s, string(from[i]), string(to[i]))
	}
	return s
}
