// Package progress owns the chunk-unlock ratchet: the active item pool
// expands only once every unlocked item is mastered, and it never
// contracts. Mastery loss affects sampling weight, never re-locks content.
package progress

import (
	"context"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
)

const (
	StartChunk   = 1
	StartSetSize = 10
	SetSizeStep  = 10
	// MaxSetSize caps the active set; the effective cap is the total
	// item count when that is smaller.
	MaxSetSize = 147
)

// State is the singleton learner progress record. MaxUnlockedChunk is
// monotonically non-decreasing for the learner's lifetime.
type State struct {
	MaxUnlockedChunk int
	ActiveSetSize    int
}

// InitialState is where a fresh learner starts.
func InitialState() State {
	return State{MaxUnlockedChunk: StartChunk, ActiveSetSize: StartSetSize}
}

// Store is the persistence surface the tracker needs.
type Store interface {
	Progress(ctx context.Context) (State, error)
	SaveProgress(ctx context.Context, st State) error
	ListItemsWithChunkAtMost(ctx context.Context, chunk int) ([]*item.Item, error)
	MaxChunkAvailable(ctx context.Context) (int, error)
	CountItems(ctx context.Context) (int, error)
}

// MasteryFunc reports the live mastered status of an item.
type MasteryFunc func(ctx context.Context, itemID string) (bool, error)

// Tracker evaluates the unlock condition eagerly on every pool read.
type Tracker struct {
	store    Store
	mastered MasteryFunc
}

func NewTracker(store Store, mastered MasteryFunc) *Tracker {
	return &Tracker{store: store, mastered: mastered}
}

// CurrentPool runs the ratchet check and returns the up-to-date state
// together with the unlocked item pool. The chunk advances exactly once
// per call, and only when every in-scope item is mastered and a higher
// chunk exists in content.
func (t *Tracker) CurrentPool(ctx context.Context) (State, []*item.Item, error) {
	state, err := t.store.Progress(ctx)
	if err != nil {
		return State{}, nil, err
	}

	pool, err := t.store.ListItemsWithChunkAtMost(ctx, state.MaxUnlockedChunk)
	if err != nil {
		return State{}, nil, err
	}
	if len(pool) == 0 {
		return state, pool, nil
	}

	allMastered := true
	for _, it := range pool {
		ok, err := t.mastered(ctx, it.ID)
		if err != nil {
			return State{}, nil, err
		}
		if !ok {
			allMastered = false
			break
		}
	}
	if !allMastered {
		return state, pool, nil
	}

	highest, err := t.store.MaxChunkAvailable(ctx)
	if err != nil {
		return State{}, nil, err
	}
	if highest <= state.MaxUnlockedChunk {
		// Terminal: everything is unlocked already.
		return state, pool, nil
	}

	total, err := t.store.CountItems(ctx)
	if err != nil {
		return State{}, nil, err
	}
	cap := MaxSetSize
	if total < cap {
		cap = total
	}

	state.MaxUnlockedChunk++
	state.ActiveSetSize = min(state.ActiveSetSize+SetSizeStep, cap)

	if err := t.store.SaveProgress(ctx, state); err != nil {
		return State{}, nil, err
	}

	pool, err = t.store.ListItemsWithChunkAtMost(ctx, state.MaxUnlockedChunk)
	if err != nil {
		return State{}, nil, err
	}
	return state, pool, nil
}
