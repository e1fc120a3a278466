package service_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/mastery"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/selection"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/service"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/store"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/weighting"
)

func newService(t *testing.T, policy weighting.Policy) (*service.QuizService, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "quiz.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(st, policy, selection.New(rand.New(rand.NewSource(1))), logger)
	return svc, st
}

func seedItem(t *testing.T, st *store.SQLiteStore, id string, chunk int) *item.Item {
	t.Helper()
	it := item.New("prompt-"+id, "answer-"+id, chunk)
	it.ID = id
	it.Distractors = []string{"wrong1", "wrong2", "wrong3"}
	if err := st.SaveItem(context.Background(), it); err != nil {
		t.Fatalf("seed item %s: %v", id, err)
	}
	return it
}

func TestNextQuestion_EmptyDatabase(t *testing.T) {
	svc, _ := newService(t, weighting.NewLinearPolicy())

	if _, err := svc.NextQuestion(context.Background(), ""); !errors.Is(err, service.ErrNoItems) {
		t.Fatalf("expected ErrNoItems, got %v", err)
	}
}

func TestNextQuestion_RendersOptions(t *testing.T) {
	svc, st := newService(t, weighting.NewLinearPolicy())
	seedItem(t, st, "a", 1)

	q, err := svc.NextQuestion(context.Background(), "")
	if err != nil {
		t.Fatalf("next question: %v", err)
	}
	if q.ItemID != "a" {
		t.Errorf("expected item a, got %q", q.ItemID)
	}
	if len(q.Options) != selection.DistractorCount+2 {
		t.Fatalf("expected %d options, got %v", selection.DistractorCount+2, q.Options)
	}
	if q.Options[len(q.Options)-1] != selection.FallbackOption {
		t.Errorf("catch-all option not last: %v", q.Options)
	}
	found := false
	for _, o := range q.Options {
		if o == q.Answer {
			found = true
		}
	}
	if !found {
		t.Errorf("correct answer missing from options: %v", q.Options)
	}
	if q.Progress == nil {
		t.Fatal("expected a progress summary attached to the question")
	}
	if q.Progress.TotalInPool != 1 {
		t.Errorf("expected pool of 1, got %d", q.Progress.TotalInPool)
	}
}

func TestNextForToken_NeverRepeatsImmediately(t *testing.T) {
	svc, st := newService(t, weighting.NewLinearPolicy())
	seedItem(t, st, "a", 1)
	seedItem(t, st, "b", 1)

	last := ""
	for i := 0; i < 20; i++ {
		q, err := svc.NextForToken(context.Background(), "learner-1")
		if err != nil {
			t.Fatalf("next for token: %v", err)
		}
		if q.ItemID == last {
			t.Fatalf("item %q repeated back to back on turn %d", q.ItemID, i)
		}
		last = q.ItemID
	}
}

func TestRecordOutcome_UnknownItem(t *testing.T) {
	svc, _ := newService(t, weighting.NewLinearPolicy())

	err := svc.RecordOutcome(context.Background(), "missing", true)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected store.ErrNotFound, got %v", err)
	}
}

func TestRecordOutcome_LinearCorrectResetsAndBumpsSibling(t *testing.T) {
	svc, st := newService(t, weighting.NewLinearPolicy())
	seedItem(t, st, "a", 1)
	seedItem(t, st, "b", 1)
	ctx := context.Background()

	if err := svc.RecordOutcome(ctx, "a", true); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	a, err := st.GetItem(ctx, "a")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	if a.Weight != 0.0 {
		t.Errorf("answered item weight = %v, want 0.0", a.Weight)
	}
	if a.TimesAnswered != 1 || a.TimesCorrect != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", a.TimesAnswered, a.TimesCorrect)
	}

	b, err := st.GetItem(ctx, "b")
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	if b.Weight != item.UnseenWeight+weighting.SiblingIncrement {
		t.Errorf("sibling weight = %v, want %v", b.Weight, item.UnseenWeight+weighting.SiblingIncrement)
	}
}

func TestRecordOutcome_LinearIncorrectKeepsWeight(t *testing.T) {
	svc, st := newService(t, weighting.NewLinearPolicy())
	seedItem(t, st, "a", 1)
	seedItem(t, st, "b", 1)
	ctx := context.Background()

	if err := svc.RecordOutcome(ctx, "a", false); err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	a, err := st.GetItem(ctx, "a")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	if a.Weight != item.UnseenWeight {
		t.Errorf("weight moved on an incorrect answer: %v", a.Weight)
	}
	if a.TimesAnswered != 1 || a.TimesCorrect != 0 {
		t.Errorf("counters = (%d, %d), want (1, 0)", a.TimesAnswered, a.TimesCorrect)
	}

	b, err := st.GetItem(ctx, "b")
	if err != nil {
		t.Fatalf("get b: %v", err)
	}
	if b.Weight != item.UnseenWeight {
		t.Errorf("sibling bumped on an incorrect answer: %v", b.Weight)
	}
}

func TestRecordOutcome_LinearMasteredItemRestsAtOne(t *testing.T) {
	svc, st := newService(t, weighting.NewLinearPolicy())
	seedItem(t, st, "a", 1)
	ctx := context.Background()

	// Three corrects establish mastery; the fourth answer sees a
	// mastered item and rests it at weight 1.0 instead of 0.0.
	for i := 0; i < 3; i++ {
		if err := svc.RecordOutcome(ctx, "a", true); err != nil {
			t.Fatalf("record outcome %d: %v", i, err)
		}
	}
	a, err := st.GetItem(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.Weight != 0.0 {
		t.Fatalf("pre-mastery correct should reset to 0.0, got %v", a.Weight)
	}

	if err := svc.RecordOutcome(ctx, "a", true); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	a, err = st.GetItem(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.Weight != weighting.MasteredRestWeight {
		t.Errorf("mastered correct weight = %v, want %v", a.Weight, weighting.MasteredRestWeight)
	}
}

func TestRecordOutcome_ConcurrentAttemptsSerialize(t *testing.T) {
	svc, st := newService(t, weighting.NewLinearPolicy())
	seedItem(t, st, "a", 1)
	ctx := context.Background()

	// Five concurrent corrects on one item. Each outcome decides inside
	// its own storage transaction, so the attempts serialize: three
	// pre-mastery corrects reset the weight to 0.0, then the remaining
	// two see a mastered item and rest it at 1.0. No interleaving can
	// lose an attempt or decide from a stale window.
	const attempts = 5
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.RecordOutcome(ctx, "a", true)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("record outcome: %v", err)
		}
	}

	a, err := st.GetItem(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.TimesAnswered != attempts || a.TimesCorrect != attempts {
		t.Errorf("counters = (%d, %d), want (%d, %d)", a.TimesAnswered, a.TimesCorrect, attempts, attempts)
	}
	if a.Weight != weighting.MasteredRestWeight {
		t.Errorf("weight = %v, want %v", a.Weight, weighting.MasteredRestWeight)
	}

	recent, err := st.RecentAttempts(ctx, "a", mastery.Window)
	if err != nil {
		t.Fatalf("recent attempts: %v", err)
	}
	if len(recent) != attempts {
		t.Fatalf("window holds %d attempts, want %d", len(recent), attempts)
	}
	for _, ok := range recent {
		if !ok {
			t.Fatalf("lost a correct attempt: %v", recent)
		}
	}
}

func TestRecordOutcome_ExponentialWeightDropsWithEvidence(t *testing.T) {
	svc, st := newService(t, weighting.NewExponentialPolicy())
	seedItem(t, st, "a", 1)
	ctx := context.Background()

	// First two answers leave the weight at the unseen default: the
	// lifetime sample is still too thin to trust.
	for i := 0; i < 2; i++ {
		if err := svc.RecordOutcome(ctx, "a", true); err != nil {
			t.Fatalf("record outcome %d: %v", i, err)
		}
		a, err := st.GetItem(ctx, "a")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if a.Weight != item.UnseenWeight {
			t.Fatalf("after %d attempts: weight = %v, want unseen default", i+1, a.Weight)
		}
	}

	// Third correct crosses the confidence threshold and collapses the
	// weight toward the floor.
	if err := svc.RecordOutcome(ctx, "a", true); err != nil {
		t.Fatalf("record outcome: %v", err)
	}
	a, err := st.GetItem(ctx, "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if a.Weight < 0.2 || a.Weight > 2.0 {
		t.Errorf("weight after 3/3 correct = %v, want near the floor", a.Weight)
	}
}

func TestItemStats_LiveMasteryAndOrdering(t *testing.T) {
	svc, st := newService(t, weighting.NewLinearPolicy())
	seedItem(t, st, "strong", 1)
	seedItem(t, st, "fresh", 1)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := svc.RecordOutcome(ctx, "strong", true); err != nil {
			t.Fatalf("record outcome: %v", err)
		}
	}

	stats, err := svc.ItemStats(ctx)
	if err != nil {
		t.Fatalf("item stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("expected 2 stats, got %d", len(stats))
	}
	// The answered item reset to 0.0; the untouched one carries the
	// bumped unseen weight and must sort first.
	if stats[0].ItemID != "fresh" {
		t.Errorf("expected heaviest item first, got %q", stats[0].ItemID)
	}

	for _, s := range stats {
		switch s.ItemID {
		case "strong":
			if !s.Mastered {
				t.Error("strong item should report live mastery")
			}
			if s.RollingRate != 1.0 {
				t.Errorf("strong rolling rate = %v, want 1.0", s.RollingRate)
			}
		case "fresh":
			if s.Mastered {
				t.Error("fresh item cannot be mastered")
			}
			if s.TimesAnswered != 0 {
				t.Errorf("fresh item has %d attempts", s.TimesAnswered)
			}
		}
	}
}

func TestProgressSummary_UnlocksNextChunkWhenAllMastered(t *testing.T) {
	svc, st := newService(t, weighting.NewLinearPolicy())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		seedItem(t, st, fmt.Sprintf("c1-%d", i), 1)
	}
	seedItem(t, st, "c2-0", 2)
	seedItem(t, st, "c2-1", 2)

	summary, err := svc.ProgressSummary(ctx)
	if err != nil {
		t.Fatalf("progress summary: %v", err)
	}
	if summary.MaxUnlockedChunk != 1 || summary.TotalInPool != 10 {
		t.Fatalf("unexpected starting summary: %+v", summary)
	}
	if summary.TotalChunks != 2 {
		t.Errorf("expected 2 chunks of content, got %d", summary.TotalChunks)
	}

	// Master every chunk-1 item.
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("c1-%d", i)
		for j := 0; j < 3; j++ {
			if err := svc.RecordOutcome(ctx, id, true); err != nil {
				t.Fatalf("record outcome: %v", err)
			}
		}
	}

	summary, err = svc.ProgressSummary(ctx)
	if err != nil {
		t.Fatalf("progress summary: %v", err)
	}
	if summary.MaxUnlockedChunk != 2 {
		t.Errorf("expected chunk 2 unlocked, got %d", summary.MaxUnlockedChunk)
	}
	// The +10 step clamps to the 12 items that exist.
	if summary.ActiveSetSize != 12 {
		t.Errorf("expected active set size 12, got %d", summary.ActiveSetSize)
	}
	if summary.TotalInPool != 12 {
		t.Errorf("expected widened pool of 12, got %d", summary.TotalInPool)
	}
	if summary.MasteredCount != 10 {
		t.Errorf("expected 10 mastered, got %d", summary.MasteredCount)
	}
	if summary.AverageSuccessRate != 1.0 {
		t.Errorf("expected average success rate 1.0, got %v", summary.AverageSuccessRate)
	}
}

func TestProgressSummary_NoUnlockWithUnmasteredItem(t *testing.T) {
	svc, st := newService(t, weighting.NewLinearPolicy())
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		seedItem(t, st, fmt.Sprintf("c1-%d", i), 1)
	}
	seedItem(t, st, "c2-0", 2)

	// Nine of ten mastered.
	for i := 0; i < 9; i++ {
		id := fmt.Sprintf("c1-%d", i)
		for j := 0; j < 3; j++ {
			if err := svc.RecordOutcome(ctx, id, true); err != nil {
				t.Fatalf("record outcome: %v", err)
			}
		}
	}

	summary, err := svc.ProgressSummary(ctx)
	if err != nil {
		t.Fatalf("progress summary: %v", err)
	}
	if summary.MaxUnlockedChunk != 1 {
		t.Errorf("chunk unlocked with an unmastered item in scope: %+v", summary)
	}
	if summary.MasteredCount != 9 {
		t.Errorf("expected 9 mastered, got %d", summary.MasteredCount)
	}
}
