// Package selection picks the next item to show via weighted random
// sampling over the unlocked pool.
package selection

import (
	"errors"
	"math/rand"
	"time"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
)

// ErrEmptyPool is returned when no candidate remains after filtering.
var ErrEmptyPool = errors.New("selection: empty pool")

// UnmasteredBias is the probability of preferring the unmastered bucket.
const UnmasteredBias = 0.7

// Candidate pairs an item with the snapshot the selector samples from:
// its current weight and its live mastered status.
type Candidate struct {
	Item     *item.Item
	Weight   float64
	Mastered bool
}

// Selector performs the bucketed weighted draw. The random source is
// injected so tests can seed it deterministically.
type Selector struct {
	rng *rand.Rand
}

// New creates a Selector. A nil rng falls back to a time-seeded source.
func New(rng *rand.Rand) *Selector {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{rng: rng}
}

// Next picks one candidate from the pool. The immediately previous item
// (excludeID) is filtered out unless it is the only candidate. The draw
// prefers the unmastered bucket with probability UnmasteredBias, falls
// back to the other bucket when the preferred one is empty, and samples
// within the chosen bucket proportionally to weight.
func (s *Selector) Next(pool []Candidate, excludeID string) (*Candidate, error) {
	if len(pool) == 0 {
		return nil, ErrEmptyPool
	}

	candidates := pool
	if excludeID != "" && len(pool) > 1 {
		filtered := make([]Candidate, 0, len(pool))
		for _, c := range pool {
			if c.Item.ID != excludeID {
				filtered = append(filtered, c)
			}
		}
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	var unmastered, mastered []Candidate
	for _, c := range candidates {
		if c.Mastered {
			mastered = append(mastered, c)
		} else {
			unmastered = append(unmastered, c)
		}
	}

	bucket := unmastered
	other := mastered
	if s.rng.Float64() >= UnmasteredBias {
		bucket, other = mastered, unmastered
	}
	if len(bucket) == 0 {
		bucket = other
	}

	return s.pickWeighted(bucket), nil
}

// pickWeighted draws one candidate proportionally to weight, falling
// back to a uniform draw when every weight in the bucket is zero.
func (s *Selector) pickWeighted(bucket []Candidate) *Candidate {
	total := 0.0
	for _, c := range bucket {
		total += c.Weight
	}
	if total <= 0 {
		return &bucket[s.rng.Intn(len(bucket))]
	}

	r := s.rng.Float64() * total
	cumulative := 0.0
	for i := range bucket {
		cumulative += bucket[i].Weight
		if r < cumulative {
			return &bucket[i]
		}
	}
	// Floating point edge: r landed on the far boundary.
	return &bucket[len(bucket)-1]
}
