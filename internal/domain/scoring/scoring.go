// Package scoring defines the evaluation criteria and the closed set of
// scores an evaluator may give for each of them.
package scoring

import (
	"fmt"
	"strconv"
)

// Score is one of 0, 0.5 or 1.
type Score float64

// The only valid scores.
const (
	Zero Score = 0
	Half Score = 0.5
	Full Score = 1
)

// Values lists the valid scores in the order they are offered.
var Values = []Score{Zero, Half, Full}

// ParseToken decodes the wire token of a score: "0", "05" or "1".
func ParseToken(tok string) (Score, error) {
	switch tok {
	case "0":
		return Zero, nil
	case "05":
		return Half, nil
	case "1":
		return Full, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidToken, tok)
}

// Token is the wire encoding of s.
func (s Score) Token() string {
	switch s {
	case Half:
		return "05"
	case Full:
		return "1"
	default:
		return "0"
	}
}

// Valid reports whether s belongs to the closed score set.
func (s Score) Valid() bool {
	return s == Zero || s == Half || s == Full
}

// String renders the score for humans (0, 0.5, 1).
func (s Score) String() string {
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

// Criterion is one of the four evaluated aspects, in the order they are asked.
type Criterion int

// Criteria in asking order.
const (
	ProductValue Criterion = iota
	Scalability
	UX
	Presentation
)

// Count is the number of criteria on a score card.
const Count = 4

// Criteria lists all criteria in asking order.
var Criteria = [Count]Criterion{ProductValue, Scalability, UX, Presentation}

var (
	prefixes = [Count]string{"prod", "scal", "ux", "pres"}
	titles   = [Count]string{
		"Product value",
		"Realism and scalability",
		"User experience (UX)",
		"Presentation and communication",
	}
	labels = [Count]string{"Product value", "Scalability", "UX", "Presentation"}
)

// Prefix is the callback token prefix of the criterion.
func (c Criterion) Prefix() string {
	if !c.valid() {
		return ""
	}
	return prefixes[c]
}

// Title is the prompt title of the criterion.
func (c Criterion) Title() string {
	if !c.valid() {
		return ""
	}
	return titles[c]
}

// Label is the short name used in summaries.
func (c Criterion) Label() string {
	if !c.valid() {
		return ""
	}
	return labels[c]
}

func (c Criterion) String() string { return c.Prefix() }

func (c Criterion) valid() bool { return c >= 0 && c < Count }

// ByPrefix looks a criterion up by its token prefix.
func ByPrefix(prefix string) (Criterion, bool) {
	for i, p := range prefixes {
		if p == prefix {
			return Criterion(i), true
		}
	}
	return 0, false
}

// Card is a complete set of scores indexed by Criterion.
type Card [Count]Score

// NewCard builds a card from scores answered in asking order.
// It fails unless exactly Count valid scores are given.
func NewCard(answered []Score) (Card, error) {
	var c Card
	if len(answered) != Count {
		return c, fmt.Errorf("%w: have %d of %d scores", ErrIncomplete, len(answered), Count)
	}
	for i, s := range answered {
		if !s.Valid() {
			return c, fmt.Errorf("%w: %v for %s", ErrInvalidScore, float64(s), Criterion(i).Prefix())
		}
		c[i] = s
	}
	return c, nil
}

// Get returns the score of one criterion.
func (c Card) Get(cr Criterion) Score { return c[cr] }
