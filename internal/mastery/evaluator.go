// Package mastery derives an item's mastered status from its rolling
// attempt window. The window is deliberately short so that a once-weak
// item regains mastered status quickly, and a previously mastered item
// relapses after a short run of misses.
package mastery

import "context"

const (
	// Window is how many recent attempts feed the rolling success rate.
	Window = 5
	// MinAttempts is the minimum rolling sample before an item can be
	// considered mastered.
	MinAttempts = 3
	// MasteryRate is the rolling success rate required for mastery.
	MasteryRate = 0.8
)

// AttemptSource reads the rolling attempt window for an item, newest first.
type AttemptSource interface {
	RecentAttempts(ctx context.Context, itemID string, n int) ([]bool, error)
}

// Evaluator computes rolling statistics from an attempt log. The mastered
// predicate is recomputed live on every call; nothing here is cached.
type Evaluator struct {
	attempts AttemptSource
}

func NewEvaluator(attempts AttemptSource) *Evaluator {
	return &Evaluator{attempts: attempts}
}

// RollingRate returns the success rate over the item's last Window
// attempts and the number of attempts in that window. Items with no
// attempts report (0.0, 0).
func (e *Evaluator) RollingRate(ctx context.Context, itemID string) (float64, int, error) {
	recent, err := e.attempts.RecentAttempts(ctx, itemID, Window)
	if err != nil {
		return 0, 0, err
	}
	rate, n := Rate(recent)
	return rate, n, nil
}

// IsMastered reports whether the item's rolling window satisfies the
// mastery predicate.
func (e *Evaluator) IsMastered(ctx context.Context, itemID string) (bool, error) {
	recent, err := e.attempts.RecentAttempts(ctx, itemID, Window)
	if err != nil {
		return false, err
	}
	return Mastered(recent), nil
}

// Rate computes the success rate over a rolling window slice. Slices
// longer than Window are truncated to the newest Window entries.
func Rate(recent []bool) (float64, int) {
	if len(recent) > Window {
		recent = recent[:Window]
	}
	if len(recent) == 0 {
		return 0.0, 0
	}
	correct := 0
	for _, ok := range recent {
		if ok {
			correct++
		}
	}
	return float64(correct) / float64(len(recent)), len(recent)
}

// Mastered applies the mastery predicate to a rolling window slice:
// at least MinAttempts samples and a rate of at least MasteryRate.
func Mastered(recent []bool) bool {
	rate, n := Rate(recent)
	return n >= MinAttempts && rate >= MasteryRate
}
