package session

import "github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/id"

// MultiPart tracks a dependent-stage question group, e.g. "identify X,
// then identify a property of X". A wrong answer at any part ends the
// unit immediately; only answering every part correctly completes it.
// The group is not scored for mastery or weight purposes until it
// resolves, and only a completed session counts as a correct outcome.
type MultiPart struct {
	ID       string
	GroupID  string
	Parts    int // required parts
	Answered int // parts answered correctly so far
	Status   Status
}

func NewMultiPart(groupID string, parts int) *MultiPart {
	return &MultiPart{
		ID:      id.New(),
		GroupID: groupID,
		Parts:   parts,
		Status:  StatusActive,
	}
}

// CurrentPart is the 1-based part awaiting an answer.
func (m *MultiPart) CurrentPart() int {
	return m.Answered + 1
}

// Answer advances the state machine by one part and returns the
// resulting status. Answers after resolution are ignored.
func (m *MultiPart) Answer(correct bool) Status {
	if m.Status != StatusActive {
		return m.Status
	}
	if !correct {
		m.Status = StatusFailed
		return m.Status
	}
	m.Answered++
	if m.Answered >= m.Parts {
		m.Status = StatusCompleted
	}
	return m.Status
}

// Resolved reports whether the session has reached a terminal state.
func (m *MultiPart) Resolved() bool {
	return m.Status != StatusActive
}
