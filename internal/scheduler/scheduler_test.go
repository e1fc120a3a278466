package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/scheduler"
)

type countingRecalculator struct {
	calls atomic.Int64
}

func (c *countingRecalculator) RecalculateWeights(context.Context) (int, error) {
	c.calls.Add(1)
	return 0, nil
}

func TestScheduler_RunsRecalculation(t *testing.T) {
	rec := &countingRecalculator{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := scheduler.New(rec, logger, 20*time.Millisecond)
	s.Start()
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for rec.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("recalculation never ran")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
