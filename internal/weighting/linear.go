package weighting

// PolicyLinear is the configuration name for LinearPolicy.
const PolicyLinear = "linear"

const (
	// SiblingIncrement is added to every same-category sibling when an
	// item is answered correctly. Items not seen in a while accumulate
	// weight monotonically until picked, an aging bias that needs no
	// timestamps.
	SiblingIncrement = 0.1
	// MasteredRestWeight is the reset weight for mastered items. Zero
	// would starve the refresher pool.
	MasteredRestWeight = 1.0
)

// LinearPolicy resets a correctly answered item to zero weight (one for
// mastered items) and nudges every sibling in the same category scope
// upward. Incorrect answers change nothing: a lapse raises selection
// probability through mastery loss, not through a separate bump.
type LinearPolicy struct{}

func NewLinearPolicy() *LinearPolicy { return &LinearPolicy{} }

func (p *LinearPolicy) Name() string { return PolicyLinear }

func (p *LinearPolicy) OnAnswer(ans Answer) Update {
	if !ans.Correct {
		return Update{KeepWeight: true}
	}
	weight := 0.0
	if ans.Mastered {
		weight = MasteredRestWeight
	}
	return Update{Weight: weight, SiblingDelta: SiblingIncrement}
}
