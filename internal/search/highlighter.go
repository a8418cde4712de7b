package search

import "strings"

// Highlights returns, for each distinct token found in content
// (case-insensitive), the text within window runes around its first
// occurrence. At most limit snippets are returned.
func Highlights(content string, tokens []string, window, limit int) []string {
	if limit <= 0 || content == "" {
		return nil
	}
	orig := []rune(content)
	lower := []rune(strings.ToLower(content))
	// Lowercasing can change the rune count for a few scripts; cut from the
	// lowered text in that case so offsets stay valid.
	src := orig
	if len(lower) != len(orig) {
		src = lower
	}

	var out []string
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		at := runeIndex(lower, []rune(tok))
		if at < 0 {
			continue
		}
		start := max(at-window, 0)
		end := min(len(src), at+len([]rune(tok))+window)
		out = append(out, string(src[start:end]))
		if len(out) == limit {
			break
		}
	}
	return out
}

func runeIndex(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
outer:
	for i := 0; i+len(needle) <= len(haystack); i++ {
		for j, r := range needle {
			if haystack[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}
