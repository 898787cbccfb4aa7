// Package phone normalizes contact numbers used as notification recipients.
package phone

import "strings"

// Normalize strips spacing and punctuation from a dialable number, keeping a
// leading '+'. Returns "" when no digits remain.
func Normalize(number string) string {
	number = strings.TrimSpace(number)
	var b strings.Builder
	b.Grow(len(number))
	for i, r := range number {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if strings.TrimPrefix(out, "+") == "" {
		return ""
	}
	return out
}

// DedupeList normalizes each number and drops empties and duplicates.
// Order is preserved.
func DedupeList(numbers []string) []string {
	if len(numbers) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(numbers))
	result := make([]string, 0, len(numbers))
	for _, n := range numbers {
		normalized := Normalize(n)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
	}
	return result
}
