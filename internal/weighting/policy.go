// Package weighting maintains the per-item selection weights. Two
// interchangeable policies exist: an exponential confidence-scaled
// formula driven by the rolling success rate, and a linear
// increment/reset scheme that ages unseen siblings upward.
package weighting

import "fmt"

// Answer describes a just-recorded outcome. Rolling statistics include
// the new attempt; Mastered is the item's bucket at answer time and
// determines both the sibling scope and the rest weight under the
// linear policy.
type Answer struct {
	Correct     bool
	RollingRate float64
	SampleCount int
	Lifetime    int // total attempts including this one
	Mastered    bool
}

// Update is a policy's verdict for one answer. When KeepWeight is set
// the answered item's weight is left untouched; SiblingDelta, when
// non-zero, is added to every item in the same category scope.
type Update struct {
	Weight       float64
	KeepWeight   bool
	SiblingDelta float64
}

// Policy decides how an answer changes selection weights. Policies must
// never produce a negative weight.
type Policy interface {
	Name() string
	OnAnswer(ans Answer) Update
}

// FromName resolves a policy by its configuration name.
func FromName(name string) (Policy, error) {
	switch name {
	case PolicyExponential:
		return NewExponentialPolicy(), nil
	case PolicyLinear:
		return NewLinearPolicy(), nil
	default:
		return nil, fmt.Errorf("weighting: unknown policy %q", name)
	}
}

// CategoryKey identifies the sibling scope for linear weight bumps:
// items sharing a chunk and a mastery bucket age together.
func CategoryKey(chunk int, mastered bool) string {
	bucket := "learning"
	if mastered {
		bucket = "mastered"
	}
	return fmt.Sprintf("chunk%03d/%s", chunk, bucket)
}
