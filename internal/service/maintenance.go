package service

import (
	"context"
	"fmt"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/session"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/mastery"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/weighting"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/worker"
)

const recalcWorkers = 4

// RecalculateWeights recomputes every item's weight from its rolling
// statistics using the exponential formula, the only policy whose
// weights are derivable from stats alone (linear weights are event
// history). Reads fan out over a worker pool; writes are applied
// serially. Returns the number of items updated.
func (s *QuizService) RecalculateWeights(ctx context.Context) (int, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	policy := weighting.NewExponentialPolicy()

	type recalc struct {
		weight float64
		err    error
	}

	pool := worker.NewPool[recalc](recalcWorkers, len(items))
	for _, it := range items {
		it := it
		pool.Submit(it.ID, func() recalc {
			if it.TimesAnswered == 0 {
				// Unanswered items go back to the unseen default,
				// shedding any sibling bumps accrued meanwhile.
				return recalc{weight: item.UnseenWeight}
			}
			recent, err := s.store.RecentAttempts(ctx, it.ID, mastery.Window)
			if err != nil {
				return recalc{err: err}
			}
			rate, sample := mastery.Rate(recent)
			return recalc{weight: policy.Weight(rate, sample, it.TimesAnswered)}
		})
	}
	pool.Close()

	weights := make(map[string]float64, len(items))
	for res := range pool.Results() {
		if res.Output.err != nil {
			return 0, fmt.Errorf("recalculate weight for item %s: %w", res.JobID, res.Output.err)
		}
		weights[res.JobID] = res.Output.weight
	}

	updated := 0
	for id, w := range weights {
		if err := s.store.UpdateItemWeight(ctx, id, w); err != nil {
			return updated, err
		}
		updated++
	}

	s.logger.Info("weights recalculated", "items", updated)
	return updated, nil
}

// ResetProgress wipes all learning statistics and open sessions while
// preserving content. Explicit curation only; nothing calls this on the
// learner's behalf.
func (s *QuizService) ResetProgress(ctx context.Context) error {
	if err := s.store.ResetProgress(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	s.lastShown = make(map[string]string)
	s.lists = make(map[string]*session.List)
	s.multiparts = make(map[string]*session.MultiPart)
	s.mu.Unlock()

	s.logger.Info("progress reset")
	return nil
}
