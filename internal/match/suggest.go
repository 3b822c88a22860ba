package match

import (
	"cmp"
	"slices"
)

// Candidate is a name scored against a target.
type Candidate struct {
	Name  string
	Score float64 // IdentSimilarity to the target (0-1)
}

// Rank scores every name against target, best first. Ties keep the
// alphabetical order so results are deterministic.
func Rank(target string, names []string) []Candidate {
	out := make([]Candidate, 0, len(names))
	for _, name := range names {
		out = append(out, Candidate{Name: name, Score: IdentSimilarity(target, name)})
	}

	slices.SortFunc(out, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		return cmp.Compare(a.Name, b.Name)
	})

	return out
}

// Suggest returns up to n names scoring at least minScore against target.
// The target itself is never suggested.
func Suggest(target string, names []string, minScore float64, n int) []string {
	var out []string
	for _, c := range Rank(target, names) {
		if len(out) == n || c.Score < minScore {
			break
		}

		if c.Name == target {
			continue
		}

		out = append(out, c.Name)
	}

	return out
}
