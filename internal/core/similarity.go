package core

import (
	"strings"
)

var legalSuffixes = []string{
	"limited", "ltd", "incorporated", "inc", "llc", "llp", "plc",
	"corporation", "corp", "company", "co", "gmbh", "sa", "bv", "pty",
}

// NormalizeBusinessName reduces a company name to its distinctive core:
// lowercase, legal-form suffixes stripped, punctuation removed, whitespace
// collapsed. "Acme Ltd." and "ACME LIMITED" both normalize to "acme".
func NormalizeBusinessName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	for len(words) > 1 {
		last := words[len(words)-1]
		stripped := false
		for _, suffix := range legalSuffixes {
			if last == suffix {
				words = words[:len(words)-1]
				stripped = true
				break
			}
		}
		if !stripped {
			break
		}
	}
	return strings.Join(words, " ")
}

// NameSimilarity scores how alike two business names are, in [0, 1]. It takes
// the better of the raw comparison and the normalized comparison, so "Acme
// Ltd" vs "Acme Limited" scores as a near-exact match.
func NameSimilarity(a, b string) float64 {
	direct := similarityRatio(strings.ToLower(a), strings.ToLower(b))
	normalized := similarityRatio(NormalizeBusinessName(a), NormalizeBusinessName(b))
	if normalized > direct {
		return normalized
	}
	return direct
}

// similarityRatio is 1 - editDistance/maxLen over the two strings.
func similarityRatio(a, b string) float64 {
	if a == b {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	longest := len(ra)
	if len(rb) > longest {
		longest = len(rb)
	}
	if longest == 0 {
		return 1
	}
	return 1 - float64(editDistance(ra, rb))/float64(longest)
}

// editDistance is the Levenshtein distance with a single rolling row.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur := prev[0]
		prev[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			next := min3(prev[j]+1, prev[j-1]+1, cur+cost)
			cur = prev[j]
			prev[j] = next
		}
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
