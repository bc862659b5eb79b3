// internal/cards/cards.go
package cards

import (
	"fmt"
	"strings"
)

// Rules describes how a card id maps onto its features. A card id is read as a
// FeatureCount-digit number in base FeatureSize; digit i is the value of feature i.
type Rules struct {
	FeatureSize  int `json:"featureSize"`  // number of values each feature can take
	FeatureCount int `json:"featureCount"` // number of features per card
}

// StandardRules returns the classic 81-card layout: 4 features with 3 values each
// (number, color, shading, shape).
func StandardRules() Rules {
	return Rules{FeatureSize: 3, FeatureCount: 4}
}

// DeckSize is the number of distinct cards the rules can describe.
func (r Rules) DeckSize() int {
	n := 1
	for i := 0; i < r.FeatureCount; i++ {
		n *= r.FeatureSize
	}
	return n
}

// Features decodes a card id into its feature values, least significant feature first.
func (r Rules) Features(card int) []int {
	features := make([]int, r.FeatureCount)
	for i := 0; i < r.FeatureCount; i++ {
		features[i] = card % r.FeatureSize
		card /= r.FeatureSize
	}
	return features
}

// IsValidSet reports whether three distinct cards form a set: for every feature the three
// values are either all equal or pairwise different.
func (r Rules) IsValidSet(a, b, c int) bool {
	if a == b || b == c || a == c {
		return false
	}
	fa, fb, fc := r.Features(a), r.Features(b), r.Features(c)
	for i := range fa {
		allSame := fa[i] == fb[i] && fb[i] == fc[i]
		allDiff := fa[i] != fb[i] && fb[i] != fc[i] && fa[i] != fc[i]
		if !allSame && !allDiff {
			return false
		}
	}
	return true
}

// FindSets returns up to limit sets found among cards, in the order the triplets are
// enumerated. A limit <= 0 returns every set.
func (r Rules) FindSets(cards []int, limit int) [][3]int {
	var sets [][3]int
	for i := 0; i < len(cards); i++ {
		for j := i + 1; j < len(cards); j++ {
			for k := j + 1; k < len(cards); k++ {
				if !r.IsValidSet(cards[i], cards[j], cards[k]) {
					continue
				}
				sets = append(sets, [3]int{cards[i], cards[j], cards[k]})
				if limit > 0 && len(sets) >= limit {
					return sets
				}
			}
		}
	}
	return sets
}

// Describe renders a card as its feature digits, e.g. "0120".
func (r Rules) Describe(card int) string {
	var sb strings.Builder
	for _, f := range r.Features(card) {
		fmt.Fprintf(&sb, "%d", f)
	}
	return sb.String()
}
