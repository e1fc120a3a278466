package item

import "github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/id"

// UnseenWeight is the selection weight assigned to items that have never
// been answered, and to items with too few attempts to trust their stats.
const UnseenWeight = 25.0

// Item is a single answerable unit: a question, a geography fact, or one
// entry of a "name N of M" list. Items are created at import time and
// mutated only through attempt recording.
type Item struct {
	ID          string
	Prompt      string
	Answer      string
	Chunk       int      // ordering key used for progressive pool gating
	Category    string   // content category, e.g. "geography" or "history"
	GroupID     string   // multi-part or list group membership; empty for standalone items
	Part        int      // 1-based stage for multi-part groups; 0 otherwise
	Distractors []string // wrong-answer candidates for option rendering

	TimesAnswered int
	TimesCorrect  int
	Weight        float64
	// Mastered is a display snapshot refreshed on every write. The live
	// predicate in the mastery package is the source of truth; this flag
	// is never read back to drive selection.
	Mastered bool
}

// New creates an unanswered item with the unseen default weight.
func New(prompt, answer string, chunk int) *Item {
	return &Item{
		ID:     id.New(),
		Prompt: prompt,
		Answer: answer,
		Chunk:  chunk,
		Weight: UnseenWeight,
	}
}

// LifetimeRate is the all-time success rate, 0.0 for unanswered items.
func (it *Item) LifetimeRate() float64 {
	if it.TimesAnswered == 0 {
		return 0.0
	}
	return float64(it.TimesCorrect) / float64(it.TimesAnswered)
}
