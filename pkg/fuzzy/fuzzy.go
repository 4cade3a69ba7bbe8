package fuzzy

import (
	"strings"
)

// LevenshteinDistance calculates the edit distance between two strings:
// how many single-character insertions, deletions, or substitutions are
// required to change one into the other.
func LevenshteinDistance(s1, s2 string) int {
	s1 = normalizeString(s1)
	s2 = normalizeString(s2)

	if len(s1) == 0 {
		return len(s2)
	}
	if len(s2) == 0 {
		return len(s1)
	}

	r1 := []rune(s1)
	r2 := []rune(s2)
	m := len(r1)
	n := len(r2)

	d := make([][]int, m+1)
	for i := range d {
		d[i] = make([]int, n+1)
	}
	for i := 0; i <= m; i++ {
		d[i][0] = i
	}
	for j := 0; j <= n; j++ {
		d[0][j] = j
	}

	for i := 1; i <= m; i++ {
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			d[i][j] = min3(
				d[i-1][j]+1,      // deletion
				d[i][j-1]+1,      // insertion
				d[i-1][j-1]+cost, // substitution
			)
		}
	}

	return d[m][n]
}

// Match reports whether query fuzzy-matches text within the given maximum
// edit distance. Substring containment and word prefixes always match.
func Match(query, text string, threshold int) bool {
	query = normalizeString(query)
	text = normalizeString(text)

	if strings.Contains(text, query) {
		return true
	}

	for _, word := range strings.Fields(text) {
		if LevenshteinDistance(query, word) <= threshold {
			return true
		}
		if strings.HasPrefix(word, query) {
			return true
		}
	}

	return false
}

// Score rates how relevant a message is to a query. Subject matches weigh
// more than sender matches, which weigh more than snippet matches. Zero
// means no match.
func Score(query, subject, from, fromName, snippet string) float64 {
	query = normalizeString(query)
	score := 0.0

	subjectNorm := normalizeString(subject)
	if strings.Contains(subjectNorm, query) {
		score += 100.0
		if containsWord(subjectNorm, query) {
			score += 50.0
		}
	} else {
		for _, word := range strings.Fields(subjectNorm) {
			dist := LevenshteinDistance(query, word)
			if dist <= 2 {
				score += 50.0 - float64(dist)*15
			}
			if strings.HasPrefix(word, query) {
				score += 40.0
			}
		}
	}

	fromNameNorm := normalizeString(fromName)
	if strings.Contains(fromNameNorm, query) {
		score += 80.0
		if containsWord(fromNameNorm, query) {
			score += 30.0
		}
	} else {
		for _, word := range strings.Fields(fromNameNorm) {
			dist := LevenshteinDistance(query, word)
			if dist <= 2 {
				score += 40.0 - float64(dist)*12
			}
			if strings.HasPrefix(word, query) {
				score += 35.0
			}
		}
	}

	fromNorm := normalizeString(from)
	if strings.Contains(fromNorm, query) {
		score += 60.0
	} else {
		localPart := fromNorm
		if idx := strings.Index(fromNorm, "@"); idx > 0 {
			localPart = fromNorm[:idx]
		}
		if strings.HasPrefix(localPart, query) {
			score += 30.0
		}
	}

	snippetNorm := normalizeString(snippet)
	if strings.Contains(snippetNorm, query) {
		score += 40.0
		if containsWord(snippetNorm, query) {
			score += 15.0
		}
	} else {
		for _, word := range strings.Fields(snippetNorm) {
			if LevenshteinDistance(query, word) <= 1 {
				score += 15.0
			}
		}
	}

	return score
}

// MatchMessage reports whether a message matches the query in any searched
// field, with typo tolerance scaled to the query length.
func MatchMessage(query, subject, from, fromName, snippet string) bool {
	threshold := 2
	if len(query) <= 3 {
		threshold = 1
	} else if len(query) >= 8 {
		threshold = 3
	}

	if Match(query, subject, threshold) {
		return true
	}
	if Match(query, fromName, threshold) {
		return true
	}
	if Match(query, from, threshold) {
		return true
	}
	return Match(query, snippet, threshold)
}

func min3(a, b, c int) int {
	if a < b {
		if a < c {
			return a
		}
		return c
	}
	if b < c {
		return b
	}
	return c
}

func normalizeString(s string) string {
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

func containsWord(text, query string) bool {
	for _, word := range strings.Fields(text) {
		if word == query {
			return true
		}
	}
	return false
}
