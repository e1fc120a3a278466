package weighting

import (
	"math"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
)

// PolicyExponential is the configuration name for ExponentialPolicy.
const PolicyExponential = "exponential"

const (
	// MaxSuccessRateCap bounds the success rate fed into the formula so
	// a 100% item still carries a little weight.
	MaxSuccessRateCap = 0.98
	// ConfidenceThreshold is how many attempts it takes to fully trust
	// an item's statistics.
	ConfidenceThreshold = 3

	baseFloor          = 0.2
	baseScale          = 25.0
	confidenceBoost    = 2.5
	// DefaultWeightCap keeps computed weights at or below the unseen
	// default. LegacyWeightCap reproduces the earlier generation that
	// allowed more aggressive separation.
	DefaultWeightCap = 25.0
	LegacyWeightCap  = 50.0
)

// ExponentialPolicy maps the rolling success rate through a steep
// exponential: near-0% success pushes the weight toward the cap, while
// 98%+ success collapses it toward the 0.2 floor. A confidence
// multiplier inflates the weight while the rolling sample is thin, so a
// miss on a low-sample item is punished harder than on an established one.
type ExponentialPolicy struct {
	Cap float64
}

func NewExponentialPolicy() *ExponentialPolicy {
	return &ExponentialPolicy{Cap: DefaultWeightCap}
}

func (p *ExponentialPolicy) Name() string { return PolicyExponential }

func (p *ExponentialPolicy) OnAnswer(ans Answer) Update {
	return Update{Weight: p.Weight(ans.RollingRate, ans.SampleCount, ans.Lifetime)}
}

// Weight computes the exponential weight directly from rolling
// statistics; it is also used by the batch recalculation path.
func (p *ExponentialPolicy) Weight(rollingRate float64, sampleCount, lifetime int) float64 {
	if lifetime < ConfidenceThreshold {
		// Not enough data yet: treat like an unseen item.
		return item.UnseenWeight
	}

	confidence := math.Min(float64(sampleCount)/ConfidenceThreshold, 1.0)
	effectiveRate := math.Min(rollingRate, MaxSuccessRateCap)

	base := baseFloor + baseScale*(math.Pow(5.0, 1.0-effectiveRate)-1.0)
	multiplier := 1.0 + (1.0-confidence)*confidenceBoost

	return math.Min(base*multiplier, p.Cap)
}
