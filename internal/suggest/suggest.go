// Package suggest computes "did you mean" corrections for unknown
// identifiers, using Levenshtein distance against a candidate set.
package suggest

import "github.com/sh2lang/sh2c/internal/token"

// threshold returns max(1, min(2, len(offender)/2)).
func threshold(offender string) int {
	t := len([]rune(offender)) / 2
	if t > 2 {
		t = 2
	}
	if t < 1 {
		t = 1
	}
	return t
}

// distance computes Levenshtein edit distance between two strings.
func distance(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	m, n := len(ra), len(rb)
	prev := make([]int, n+1)
	cur := make([]int, n+1)
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= m; i++ {
		cur[0] = i
		for j := 1; j <= n; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			best := del
			if ins < best {
				best = ins
			}
			if sub < best {
				best = sub
			}
			cur[j] = best
		}
		prev, cur = cur, prev
	}
	return prev[n]
}

// Best returns the closest candidate to offender within the distance
// threshold, or "" if none qualifies. Ties break lexicographically.
func Best(offender string, candidates []string) string {
	th := threshold(offender)
	best := ""
	bestDist := th + 1
	for _, c := range candidates {
		if c == offender {
			continue
		}
		d := distance(offender, c)
		if d > th {
			continue
		}
		if d < bestDist || (d == bestDist && c < best) {
			best = c
			bestDist = d
		}
	}
	return best
}

// ForKeyword suggests the closest reserved word to offender, if any.
func ForKeyword(offender string) string {
	return Best(offender, token.AllKeywords())
}

// ForName suggests the closest name (function, variable, option) to
// offender from the given candidate set.
func ForName(offender string, candidates []string) string {
	return Best(offender, candidates)
}
