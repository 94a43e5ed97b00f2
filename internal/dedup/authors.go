// Package dedup merges candidates that refer to the same work. Matching runs
// in three passes: exact on normalized DOI, exact on normalized PMID, then
// fuzzy on normalized title plus first-author surname similarity. Metadata
// conflicts are resolved by an explicit source priority table.
package dedup

import (
	"strings"
	"unicode"

	"github.com/clindex/research-pipeline-service/internal/domain"
)

// NormalizeName normalizes an author name for comparison:
//   - Converts to lowercase
//   - Reorders "Last, First" format to "First Last"
//   - Removes all non-letter, non-space characters
//   - Collapses runs of whitespace to a single space
func NormalizeName(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		return ""
	}

	if idx := strings.Index(name, ","); idx >= 0 {
		last := strings.TrimSpace(name[:idx])
		first := strings.TrimSpace(name[idx+1:])
		if first != "" {
			name = first + " " + last
		} else {
			name = last
		}
	}

	var sb strings.Builder
	sb.Grow(len(name))
	prevSpace := false
	for _, r := range name {
		switch {
		case unicode.IsLetter(r):
			sb.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteRune(' ')
				prevSpace = true
			}
		}
	}

	return strings.TrimRight(sb.String(), " ")
}

// FirstAuthorSimilarity compares the first authors of two candidates and
// returns a similarity score in [0, 1]. Candidates without authors score 1:
// a missing author list should not block an otherwise identical title match.
//
// Sources disagree on name order ("Linh Nguyen" vs "Nguyen L"), so the
// comparison also tries the token-reversed form of each name and keeps the
// best score.
func FirstAuthorSimilarity(a, b []domain.Author) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 1.0
	}

	nameA := NormalizeName(a[0].Name)
	nameB := NormalizeName(b[0].Name)

	best := nameSimilarity(nameA, nameB)
	if s := nameSimilarity(nameA, reverseTokens(nameB)); s > best {
		best = s
	}
	if s := nameSimilarity(reverseTokens(nameA), nameB); s > best {
		best = s
	}
	return best
}

// reverseTokens reverses the token order of a normalized name.
func reverseTokens(name string) string {
	parts := strings.Fields(name)
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " ")
}

// nameSimilarity compares two normalized author names.
//
// Scoring rules:
//   - Exact match: 1.0
//   - Same last name, same first name: 1.0
//   - Same last name, matching initial: 0.9
//   - Same last name, one or both last-name-only: 0.7
//   - Same last name, different first names: 0.3
//   - Different last names: 0.0
func nameSimilarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	partsA := strings.Fields(a)
	partsB := strings.Fields(b)

	lastA := partsA[len(partsA)-1]
	lastB := partsB[len(partsB)-1]
	if lastA != lastB {
		return 0.0
	}

	firstA := partsA[:len(partsA)-1]
	firstB := partsB[:len(partsB)-1]
	if len(firstA) == 0 || len(firstB) == 0 {
		return 0.7
	}

	if strings.Join(firstA, " ") == strings.Join(firstB, " ") {
		return 1.0
	}

	if isInitialMatch(firstA[0], firstB[0]) {
		return 0.9
	}

	return 0.3
}

// isInitialMatch reports whether one token is a single-character initial
// matching the first character of the other.
func isInitialMatch(a, b string) bool {
	if len(a) == 1 && len(b) > 1 && a[0] == b[0] {
		return true
	}
	if len(b) == 1 && len(a) > 1 && b[0] == a[0] {
		return true
	}
	return false
}
