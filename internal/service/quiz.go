// Package service wires the engine together and exposes its public
// surface: next-question selection, outcome recording, progress and
// diagnostics, and the multi-turn session flows.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/session"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/mastery"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/progress"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/selection"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/store"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/weighting"
)

// ErrNoItems signals that no eligible item exists. Callers present a
// clear "nothing to show" state; the engine never fabricates a fallback
// item.
var ErrNoItems = errors.New("no items available")

// QuizService is the engine facade. Last-shown tracking is keyed by a
// caller-supplied session token, never ambient global state, so
// concurrent learners cannot cross-contaminate each other.
type QuizService struct {
	store    store.Store
	eval     *mastery.Evaluator
	policy   weighting.Policy
	selector *selection.Selector
	tracker  *progress.Tracker
	logger   *slog.Logger

	mu         sync.Mutex
	lastShown  map[string]string // session token → last item id
	lists      map[string]*session.List
	multiparts map[string]*session.MultiPart
}

func New(st store.Store, policy weighting.Policy, sel *selection.Selector, logger *slog.Logger) *QuizService {
	eval := mastery.NewEvaluator(st)
	return &QuizService{
		store:      st,
		eval:       eval,
		policy:     policy,
		selector:   sel,
		tracker:    progress.NewTracker(st, eval.IsMastered),
		logger:     logger,
		lastShown:  make(map[string]string),
		lists:      make(map[string]*session.List),
		multiparts: make(map[string]*session.MultiPart),
	}
}

// Question is one rendered quiz turn: the chosen item plus its shuffled
// options, with the catch-all choice last.
type Question struct {
	ItemID   string
	Prompt   string
	Answer   string
	Options  []string
	Progress *Summary
}

// Summary describes the learner's overall progress.
type Summary struct {
	MaxUnlockedChunk   int
	TotalChunks        int
	ActiveSetSize      int
	MasteredCount      int
	TotalInPool        int
	AverageSuccessRate float64
}

// NextQuestion runs the unlock ratchet, selects the next item from the
// unlocked pool, and renders its options. excludeID filters out the
// immediately previous item unless it is the only candidate.
func (s *QuizService) NextQuestion(ctx context.Context, excludeID string) (*Question, error) {
	state, pool, err := s.tracker.CurrentPool(ctx)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, ErrNoItems
	}

	candidates, err := s.candidates(ctx, pool)
	if err != nil {
		return nil, err
	}

	chosen, err := s.selector.Next(candidates, excludeID)
	if err != nil {
		if errors.Is(err, selection.ErrEmptyPool) {
			return nil, ErrNoItems
		}
		return nil, err
	}

	summary, err := s.summarize(ctx, state, candidates)
	if err != nil {
		return nil, err
	}

	return s.render(chosen.Item, chosen.Item.Distractors, summary), nil
}

// NextForToken is NextQuestion with per-token last-shown tracking: the
// item returned for a token becomes the exclusion for its next call.
func (s *QuizService) NextForToken(ctx context.Context, token string) (*Question, error) {
	s.mu.Lock()
	last := s.lastShown[token]
	s.mu.Unlock()

	q, err := s.NextQuestion(ctx, last)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.lastShown[token] = q.ItemID
	s.mu.Unlock()
	return q, nil
}

// RecordOutcome appends the attempt and applies the configured weight
// policy. The rolling window, the mastery bucket, and the sibling scope
// are all read inside the same storage transaction that writes the
// result, so concurrent attempts on one item serialize instead of
// deciding from the same pre-state. Unknown item ids report
// store.ErrNotFound; no statistics are silently created.
func (s *QuizService) RecordOutcome(ctx context.Context, itemID string, correct bool) error {
	var rate float64
	err := s.store.ApplyOutcome(ctx, itemID, func(view store.AttemptView) (store.Outcome, error) {
		it := view.Item()
		preRecent, err := view.RecentAttempts(it.ID, mastery.Window)
		if err != nil {
			return store.Outcome{}, err
		}
		preMastered := mastery.Mastered(preRecent)

		recent := prependAttempt(correct, preRecent)
		var sample int
		rate, sample = mastery.Rate(recent)

		upd := s.policy.OnAnswer(weighting.Answer{
			Correct:     correct,
			RollingRate: rate,
			SampleCount: sample,
			Lifetime:    it.TimesAnswered + 1,
			Mastered:    preMastered,
		})

		outcome := store.Outcome{
			Correct:    correct,
			Weight:     upd.Weight,
			KeepWeight: upd.KeepWeight,
			Mastered:   mastery.Mastered(recent),
		}
		if upd.SiblingDelta != 0 {
			siblings, err := siblingIDs(view, it, preMastered)
			if err != nil {
				return store.Outcome{}, err
			}
			outcome.SiblingDelta = upd.SiblingDelta
			outcome.SiblingIDs = siblings
		}
		return outcome, nil
	})
	if err != nil {
		return err
	}

	s.logger.Debug("outcome recorded",
		"item_id", itemID,
		"correct", correct,
		"rolling_rate", rate,
		"policy", s.policy.Name(),
	)
	return nil
}

// ProgressSummary runs the ratchet check and reports overall progress.
func (s *QuizService) ProgressSummary(ctx context.Context) (*Summary, error) {
	state, pool, err := s.tracker.CurrentPool(ctx)
	if err != nil {
		return nil, err
	}
	candidates, err := s.candidates(ctx, pool)
	if err != nil {
		return nil, err
	}
	return s.summarize(ctx, state, candidates)
}

// ItemStat is a diagnostic view of one item's learning state.
type ItemStat struct {
	ItemID        string
	Prompt        string
	TimesAnswered int
	TimesCorrect  int
	LifetimeRate  float64
	RollingRate   float64
	Weight        float64
	Mastered      bool
}

// ItemStats returns every item's statistics, heaviest weight first.
// Rolling rate and mastered status are computed live from the attempt
// log, not read from the stored snapshot.
func (s *QuizService) ItemStats(ctx context.Context) ([]ItemStat, error) {
	items, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	stats := make([]ItemStat, 0, len(items))
	for _, it := range items {
		recent, err := s.store.RecentAttempts(ctx, it.ID, mastery.Window)
		if err != nil {
			return nil, err
		}
		rate, _ := mastery.Rate(recent)
		stats = append(stats, ItemStat{
			ItemID:        it.ID,
			Prompt:        it.Prompt,
			TimesAnswered: it.TimesAnswered,
			TimesCorrect:  it.TimesCorrect,
			LifetimeRate:  it.LifetimeRate(),
			RollingRate:   rate,
			Weight:        it.Weight,
			Mastered:      mastery.Mastered(recent),
		})
	}

	sort.Slice(stats, func(i, j int) bool { return stats[i].Weight > stats[j].Weight })
	return stats, nil
}

// ── Internals ───────────────────────────────────────────────────────────

// candidates pairs each pool item with its weight and live mastered status.
func (s *QuizService) candidates(ctx context.Context, pool []*item.Item) ([]selection.Candidate, error) {
	candidates := make([]selection.Candidate, 0, len(pool))
	for _, it := range pool {
		mastered, err := s.eval.IsMastered(ctx, it.ID)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, selection.Candidate{
			Item:     it,
			Weight:   it.Weight,
			Mastered: mastered,
		})
	}
	return candidates, nil
}

func (s *QuizService) summarize(ctx context.Context, state progress.State, candidates []selection.Candidate) (*Summary, error) {
	totalChunks, err := s.store.MaxChunkAvailable(ctx)
	if err != nil {
		return nil, err
	}

	mastered := 0
	rated := 0
	rateSum := 0.0
	for _, c := range candidates {
		if c.Mastered {
			mastered++
		}
		if c.Item.TimesAnswered >= mastery.MinAttempts {
			rated++
			rateSum += c.Item.LifetimeRate()
		}
	}
	avg := 0.0
	if rated > 0 {
		avg = rateSum / float64(rated)
	}

	return &Summary{
		MaxUnlockedChunk:   state.MaxUnlockedChunk,
		TotalChunks:        totalChunks,
		ActiveSetSize:      state.ActiveSetSize,
		MasteredCount:      mastered,
		TotalInPool:        len(candidates),
		AverageSuccessRate: avg,
	}, nil
}

// siblingIDs resolves the linear policy's bump scope within the outcome
// transaction: every other item with the same category key (chunk scope
// and mastery bucket).
func siblingIDs(view store.AttemptView, it *item.Item, mastered bool) ([]string, error) {
	key := weighting.CategoryKey(it.Chunk, mastered)
	chunkmates, err := view.ItemsByChunk(it.Chunk)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, sib := range chunkmates {
		if sib.ID == it.ID {
			continue
		}
		recent, err := view.RecentAttempts(sib.ID, mastery.Window)
		if err != nil {
			return nil, err
		}
		if weighting.CategoryKey(sib.Chunk, mastery.Mastered(recent)) == key {
			ids = append(ids, sib.ID)
		}
	}
	return ids, nil
}

// render draws the distractors, shuffles the options, and attaches the
// progress summary.
func (s *QuizService) render(it *item.Item, distractorPool []string, summary *Summary) *Question {
	distractors := s.selector.Distractors(distractorPool, selection.DistractorCount)
	return &Question{
		ItemID:   it.ID,
		Prompt:   it.Prompt,
		Answer:   it.Answer,
		Options:  s.selector.BuildOptions(it.Answer, distractors),
		Progress: summary,
	}
}

// prependAttempt produces the rolling window as it stands after the new
// attempt, newest first.
func prependAttempt(correct bool, recent []bool) []bool {
	window := make([]bool, 0, len(recent)+1)
	window = append(window, correct)
	window = append(window, recent...)
	if len(window) > mastery.Window {
		window = window[:mastery.Window]
	}
	return window
}
