package store

import (
	"context"
	"errors"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/progress"
)

var ErrNotFound = errors.New("not found")

// Outcome is the full effect of one recorded answer: the attempt row,
// the answered item's new stats, and the sibling weight bumps. The store
// applies all of it in a single transaction so a concurrent read never
// observes a partial update.
type Outcome struct {
	Correct  bool
	Weight   float64
	Mastered bool
	// KeepWeight leaves the answered item's weight untouched (linear
	// policy on an incorrect answer).
	KeepWeight bool
	// SiblingDelta, when non-zero, is added to the weight of every item
	// in SiblingIDs.
	SiblingDelta float64
	SiblingIDs   []string
}

// AttemptView exposes transaction-scoped reads to an outcome decision.
// Everything the weight policy and the mastery predicate need is read
// from the same transaction that writes the result, so two concurrent
// attempts on one item cannot both decide from the same pre-state.
type AttemptView interface {
	// Item is the answered item as read inside the transaction.
	Item() *item.Item
	RecentAttempts(itemID string, n int) ([]bool, error)
	ItemsByChunk(chunk int) ([]*item.Item, error)
}

// OutcomeFunc decides the outcome of one attempt from the pre-attempt
// state. Returning an error aborts the transaction.
type OutcomeFunc func(view AttemptView) (Outcome, error)

// Store is the persistence surface of the quiz engine. Storage failures
// propagate unmodified; the store performs no retries.
type Store interface {
	SaveItem(ctx context.Context, it *item.Item) error
	GetItem(ctx context.Context, id string) (*item.Item, error)
	ListItems(ctx context.Context) ([]*item.Item, error)
	ListItemsWithChunkAtMost(ctx context.Context, chunk int) ([]*item.Item, error)
	ListItemsByChunk(ctx context.Context, chunk int) ([]*item.Item, error)
	ListItemsByGroup(ctx context.Context, groupID string) ([]*item.Item, error)
	ListItemsByCategory(ctx context.Context, category string) ([]*item.Item, error)
	CountItems(ctx context.Context) (int, error)
	MaxChunkAvailable(ctx context.Context) (int, error)
	DeleteItem(ctx context.Context, id string) error

	RecentAttempts(ctx context.Context, itemID string, n int) ([]bool, error)
	ApplyOutcome(ctx context.Context, itemID string, decide OutcomeFunc) error
	UpdateItemWeight(ctx context.Context, itemID string, weight float64) error

	Progress(ctx context.Context) (progress.State, error)
	SaveProgress(ctx context.Context, st progress.State) error
	ResetProgress(ctx context.Context) error

	Close() error
}
