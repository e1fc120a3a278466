package session

import (
	"math"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/id"
)

// List tracks a progressive "name N of M" flow over a question group.
// Each turn presents one not-yet-seen member; a wrong answer fails the
// session with whatever partial credit was accrued, and reaching the
// required-correct threshold completes it. Each member's own weight and
// mastery are updated independently as it is presented, regardless of
// the overall session outcome.
type List struct {
	ID        string
	GroupID   string
	Members   []string // item ids in the group
	Presented []string // already shown, in presentation order
	Score     int      // consecutive correct answers so far
	Required  int
	Status    Status
}

func NewList(groupID string, memberIDs []string) *List {
	return &List{
		ID:       id.New(),
		GroupID:  groupID,
		Members:  memberIDs,
		Required: RequiredCorrect(len(memberIDs)),
		Status:   StatusActive,
	}
}

// RequiredCorrect is the completion threshold for a list of n members:
// every member for short lists, 80% rounded to nearest for longer ones.
func RequiredCorrect(n int) int {
	if n <= 5 {
		return n
	}
	return int(math.Round(0.8 * float64(n)))
}

// Remaining returns the member ids not yet presented.
func (l *List) Remaining() []string {
	seen := make(map[string]bool, len(l.Presented))
	for _, id := range l.Presented {
		seen[id] = true
	}
	var rest []string
	for _, id := range l.Members {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	return rest
}

// Record marks one member as presented and answered, returning the
// resulting session status.
func (l *List) Record(memberID string, correct bool) Status {
	if l.Status != StatusActive {
		return l.Status
	}
	l.Presented = append(l.Presented, memberID)
	if !correct {
		l.Status = StatusFailed
		return l.Status
	}
	l.Score++
	if l.Score >= l.Required {
		l.Status = StatusCompleted
	}
	return l.Status
}
