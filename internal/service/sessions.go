package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/session"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/store"
)

// ErrSessionNotFound signals an unknown or already-finalized session id.
var ErrSessionNotFound = errors.New("session not found")

// Session methods hold s.mu for their whole read-check-record sequence,
// not just the map lookup: the session state machines themselves are not
// safe for concurrent mutation.

// ── Progressive list flow ───────────────────────────────────────────────

// StartListSession opens a "name N of M" flow over a question group.
func (s *QuizService) StartListSession(ctx context.Context, groupID string) (*session.List, error) {
	members, err := s.store.ListItemsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, store.ErrNotFound
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	l := session.NewList(groupID, ids)

	s.mu.Lock()
	s.lists[l.ID] = l
	s.mu.Unlock()
	return l, nil
}

// NextListQuestion draws one not-yet-presented list member, weighted as
// usual but scoped to the group. Distractors come from sibling groups in
// the same category since every group member is itself a right answer.
func (s *QuizService) NextListQuestion(ctx context.Context, sessionID string) (*Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	remaining := l.Remaining()
	if len(remaining) == 0 {
		return nil, ErrNoItems
	}

	pool := make([]*item.Item, 0, len(remaining))
	for _, id := range remaining {
		it, err := s.store.GetItem(ctx, id)
		if err != nil {
			return nil, err
		}
		pool = append(pool, it)
	}

	candidates, err := s.candidates(ctx, pool)
	if err != nil {
		return nil, err
	}
	chosen, err := s.selector.Next(candidates, "")
	if err != nil {
		return nil, err
	}

	distractorPool, err := s.siblingGroupAnswers(ctx, chosen.Item)
	if err != nil {
		return nil, err
	}
	return s.render(chosen.Item, distractorPool, nil), nil
}

// AnswerListItem scores one presented list member. The member's own
// weight and mastery update independently of the session outcome; the
// session fails on the first wrong answer, keeping its partial score.
func (s *QuizService) AnswerListItem(ctx context.Context, sessionID, itemID string, correct bool) (*session.List, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lists[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	member := false
	for _, id := range l.Remaining() {
		if id == itemID {
			member = true
			break
		}
	}
	if !member {
		return nil, fmt.Errorf("item %s is not an unanswered member of session %s: %w", itemID, sessionID, store.ErrNotFound)
	}

	if err := s.RecordOutcome(ctx, itemID, correct); err != nil {
		return nil, err
	}

	if l.Record(itemID, correct) != session.StatusActive {
		delete(s.lists, sessionID)
	}
	return l, nil
}

// siblingGroupAnswers collects answers from other groups in the same
// category to serve as distractors for a list member.
func (s *QuizService) siblingGroupAnswers(ctx context.Context, it *item.Item) ([]string, error) {
	categorymates, err := s.store.ListItemsByCategory(ctx, it.Category)
	if err != nil {
		return nil, err
	}
	var answers []string
	for _, sib := range categorymates {
		if sib.GroupID != it.GroupID {
			answers = append(answers, sib.Answer)
		}
	}
	return answers, nil
}

// ── Multi-part flow ─────────────────────────────────────────────────────

// StartMultiPartSession opens a dependent-stage flow over a group whose
// items are ordered by part.
func (s *QuizService) StartMultiPartSession(ctx context.Context, groupID string) (*session.MultiPart, error) {
	parts, err := s.store.ListItemsByGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if len(parts) == 0 {
		return nil, store.ErrNotFound
	}

	m := session.NewMultiPart(groupID, len(parts))
	s.mu.Lock()
	s.multiparts[m.ID] = m
	s.mu.Unlock()
	return m, nil
}

// NextPartQuestion renders the part currently awaiting an answer.
func (s *QuizService) NextPartQuestion(ctx context.Context, sessionID string) (*Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.multiparts[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	parts, err := s.store.ListItemsByGroup(ctx, m.GroupID)
	if err != nil {
		return nil, err
	}
	idx := m.CurrentPart() - 1
	if idx >= len(parts) {
		return nil, ErrNoItems
	}
	it := parts[idx]
	return s.render(it, it.Distractors, nil), nil
}

// AnswerPart advances the multi-part state machine. The group is scored
// only when the session resolves: completed counts as one correct
// outcome against the group's first part, failed as one incorrect.
func (s *QuizService) AnswerPart(ctx context.Context, sessionID string, correct bool) (*session.MultiPart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.multiparts[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	status := m.Answer(correct)
	if status == session.StatusActive {
		return m, nil
	}

	parts, err := s.store.ListItemsByGroup(ctx, m.GroupID)
	if err != nil {
		return nil, err
	}
	if len(parts) > 0 {
		if err := s.RecordOutcome(ctx, parts[0].ID, status == session.StatusCompleted); err != nil {
			return nil, err
		}
	}

	delete(s.multiparts, sessionID)
	return m, nil
}
