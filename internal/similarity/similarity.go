// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package similarity scores how alike two titles or two author strings are,
// on a 0 to 100 scale. All functions are pure.
package similarity

import (
	"sort"
	"strings"

	"github.com/pdiddy/citeverify/internal/normalize"
)

// minTokenLen is the shortest token, in bytes, that counts toward Jaccard
// overlap. Shorter tokens are mostly noise after stopword removal.
const minTokenLen = 3

// partialCredit is awarded to a pair of distinct tokens that look like a
// typo or abbreviation of each other.
const partialCredit = 0.5

// TitleSimilarity compares two titles after normalization. Equal titles
// score 100. When one normalized title contains the other the score is the
// length ratio. Otherwise it is token Jaccard overlap with partial credit
// for near-matching tokens. Either title normalizing to "" scores 0.
func TitleSimilarity(a, b string) float64 {
	na, nb := normalize.NormalizeTitle(a), normalize.NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 100
	}

	short, long := na, nb
	if len(short) > len(long) {
		short, long = long, short
	}
	if strings.Contains(long, short) {
		return 100 * float64(len(short)) / float64(len(long))
	}

	ta, tb := tokenSet(na), tokenSet(nb)
	union := len(ta)
	var inter int
	for tok := range tb {
		if _, ok := ta[tok]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}

	partial := pairPartials(difference(ta, tb), difference(tb, ta))
	score := (float64(inter) + partialCredit*float64(partial)) / float64(union) * 100
	if score > 100 {
		score = 100
	}
	return score
}

// AuthorSimilarity is the Jaccard overlap of the surname sets of two author
// strings. Either side having no usable surname scores 0.
func AuthorSimilarity(a, b string) float64 {
	sa, sb := normalize.Surnames(a), normalize.Surnames(b)
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(sa))
	for _, s := range sa {
		set[s] = struct{}{}
	}
	union := len(set)
	var inter int
	for _, s := range sb {
		if _, ok := set[s]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union) * 100
}

func tokenSet(normalized string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(normalized) {
		if len(tok) >= minTokenLen {
			set[tok] = struct{}{}
		}
	}
	return set
}

// difference returns the sorted tokens of a that are not in b.
func difference(a, b map[string]struct{}) []string {
	var out []string
	for tok := range a {
		if _, ok := b[tok]; !ok {
			out = append(out, tok)
		}
	}
	sort.Strings(out)
	return out
}

// pairPartials greedily pairs near-matching tokens, each used at most once,
// and returns the number of pairs.
func pairPartials(as, bs []string) int {
	used := make([]bool, len(bs))
	var pairs int
	for _, a := range as {
		for j, b := range bs {
			if used[j] || !nearMatch(a, b) {
				continue
			}
			used[j] = true
			pairs++
			break
		}
	}
	return pairs
}

// nearMatch reports whether one token abbreviates the other ("optim" in
// "optimization") or the two differ by a single edit ("netwrok", "network").
func nearMatch(a, b string) bool {
	short, long := a, b
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) >= 4 && strings.Contains(long, short) {
		return true
	}
	return len(short) >= 5 && levenshtein([]rune(a), []rune(b)) <= 1
}

// levenshtein is the edit distance between two rune slices using two rows.
func levenshtein(s1, s2 []rune) int {
	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}
	m, n := len(s1), len(s2)
	if m == 0 {
		return n
	}

	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for i := 0; i <= m; i++ {
		prev[i] = i
	}
	for j := 1; j <= n; j++ {
		curr[0] = j
		for i := 1; i <= m; i++ {
			cost := 1
			if s1[i-1] == s2[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[m]
}
