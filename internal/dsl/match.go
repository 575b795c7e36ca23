package dsl

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/wagiedev/host-bridge-go/internal/errors"
)

const (
	// MinConfidence is the lowest fuzzy score accepted as a match.
	MinConfidence = 0.6

	// TieMargin is how close a runner-up may score to the best candidate
	// before the reference is reported as ambiguous.
	TieMargin = 0.05

	// maxCandidates bounds the candidates listed in an ambiguity error.
	maxCandidates = 3

	substringConfidence = 0.9
)

type scored struct {
	index int
	name  string
	score float64
}

// Match selects the single name that expr refers to. It returns the index
// into names and the match confidence.
//
// An exact case-insensitive match wins, then a unique substring match, then
// the best fuzzy score at or above MinConfidence. Candidates scoring within
// TieMargin of the winner make the reference ambiguous.
func Match(kind Kind, expr string, names []string) (int, float64, error) {
	needle := strings.ToLower(strings.TrimSpace(expr))
	if needle == "" {
		return -1, 0, &errors.NotFoundError{Kind: string(kind), Expr: expr}
	}

	var exact, substr []int

	for i, name := range names {
		lower := strings.ToLower(strings.TrimSpace(name))

		switch {
		case lower == needle:
			exact = append(exact, i)
		case strings.Contains(lower, needle):
			substr = append(substr, i)
		}
	}

	switch {
	case len(exact) == 1:
		return exact[0], 1, nil
	case len(exact) > 1:
		return -1, 0, ambiguous(kind, expr, names, exact)
	case len(substr) == 1:
		return substr[0], substringConfidence, nil
	case len(substr) > 1:
		best, err := pick(kind, expr, rank(needle, names, substr), 0)
		if err != nil {
			return -1, 0, err
		}

		return best.index, substringConfidence, nil
	}

	all := make([]int, len(names))
	for i := range names {
		all[i] = i
	}

	best, err := pick(kind, expr, rank(needle, names, all), MinConfidence)
	if err != nil {
		return -1, 0, err
	}

	return best.index, best.score, nil
}

func rank(needle string, names []string, indices []int) []scored {
	out := make([]scored, 0, len(indices))
	for _, i := range indices {
		out = append(out, scored{index: i, name: names[i], score: Score(needle, names[i])})
	}

	sort.SliceStable(out, func(a, b int) bool { return out[a].score > out[b].score })

	return out
}

// pick returns the top candidate if it clears floor and no other candidate
// is within TieMargin of it.
func pick(kind Kind, expr string, ranked []scored, floor float64) (scored, error) {
	if len(ranked) == 0 || ranked[0].score < floor {
		return scored{}, &errors.NotFoundError{Kind: string(kind), Expr: expr}
	}

	best := ranked[0]

	tied := []scored{best}
	for _, c := range ranked[1:] {
		if c.score >= floor && best.score-c.score < TieMargin {
			tied = append(tied, c)
		}
	}

	if len(tied) > 1 {
		names := make([]string, 0, maxCandidates)
		for _, c := range tied[:min(len(tied), maxCandidates)] {
			names = append(names, c.name)
		}

		return scored{}, &errors.AmbiguousError{Kind: string(kind), Expr: expr, Candidates: names}
	}

	return best, nil
}

func ambiguous(kind Kind, expr string, names []string, indices []int) error {
	candidates := make([]string, 0, maxCandidates)
	for _, i := range indices[:min(len(indices), maxCandidates)] {
		candidates = append(candidates, names[i])
	}

	return &errors.AmbiguousError{Kind: string(kind), Expr: expr, Candidates: candidates}
}

// Score rates how well expr matches name, from 0 to 1. It averages the
// whole-string edit similarity with a per-token similarity that credits
// abbreviations ("gtr" for "guitar").
func Score(expr, name string) float64 {
	a := strings.ToLower(strings.TrimSpace(expr))
	b := strings.ToLower(strings.TrimSpace(name))

	if a == "" || b == "" {
		return 0
	}

	return 0.5*editRatio(a, b) + 0.5*tokenOverlap(tokens(a), tokens(b))
}

// tokenOverlap averages, over the tokens of a, the best similarity to any
// token of b.
func tokenOverlap(a, b []string) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	total := 0.0

	for _, ta := range a {
		best := 0.0
		for _, tb := range b {
			best = max(best, tokenSimilarity(ta, tb))
		}

		total += best
	}

	return total / float64(len(a))
}

func tokenSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}

	ra, rb := []rune(a), []rune(b)
	if len(ra) >= 2 && len(ra) < len(rb) && isSubsequence(ra, rb) {
		return 0.5 + 0.5*float64(len(ra))/float64(len(rb))
	}

	return editRatio(a, b)
}

// isSubsequence reports whether a's runes appear in b in order, starting
// with b's first rune.
func isSubsequence(a, b []rune) bool {
	if a[0] != b[0] {
		return false
	}

	j := 0
	for _, r := range b {
		if j < len(a) && a[j] == r {
			j++
		}
	}

	return j == len(a)
}

func tokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// editRatio is 1 - levenshtein(a, b) / max(len(a), len(b)), in runes.
func editRatio(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}

	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}
