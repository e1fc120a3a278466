// Package simulation drives the engine end to end with synthetic
// correct answers, useful for seeding progress before a demo or for
// exercising the unlock ratchet without a learner.
package simulation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/service"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/store"
)

// Result summarizes one simulation run.
type Result struct {
	Items    int
	Attempts int
}

// CorrectAnswers records numAttempts correct answers for each of the
// first numItems items (chunk order). Every answer goes through the
// real outcome path so weights, mastery snapshots, and the attempt log
// all update exactly as they would for a live learner.
func CorrectAnswers(ctx context.Context, svc *service.QuizService, st store.Store, numItems, numAttempts int, logger *slog.Logger) (*Result, error) {
	if numItems < 1 || numAttempts < 1 {
		return nil, fmt.Errorf("simulation: items and attempts must be at least 1")
	}

	items, err := st.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, service.ErrNoItems
	}
	if numItems > len(items) {
		logger.Warn("fewer items than requested", "requested", numItems, "available", len(items))
		numItems = len(items)
	}

	total := 0
	for i, it := range items[:numItems] {
		for a := 0; a < numAttempts; a++ {
			if err := svc.RecordOutcome(ctx, it.ID, true); err != nil {
				return nil, fmt.Errorf("simulate answer for item %s: %w", it.ID, err)
			}
			total++
		}
		if (i+1)%10 == 0 {
			logger.Info("simulation progress", "items_done", i+1, "of", numItems)
		}
	}

	return &Result{Items: numItems, Attempts: total}, nil
}
