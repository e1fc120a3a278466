package api

import (
	"encoding/json"
	"net/http"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/session"
)

// ── Request / Response types ────────────────────────────────────────────

type StartSessionRequest struct {
	GroupID string `json:"group_id"`
}

type ListSessionResponse struct {
	SessionID string `json:"session_id"`
	GroupID   string `json:"group_id"`
	Status    string `json:"status"`
	Score     int    `json:"score"`
	Required  int    `json:"required"`
	Presented int    `json:"presented"`
	Members   int    `json:"members"`
}

type MultiPartSessionResponse struct {
	SessionID   string `json:"session_id"`
	GroupID     string `json:"group_id"`
	Status      string `json:"status"`
	CurrentPart int    `json:"current_part"`
	Parts       int    `json:"parts"`
}

type SessionAnswerRequest struct {
	ItemID  string `json:"item_id,omitempty"`
	Correct bool   `json:"correct"`
}

func listSessionResponse(l *session.List) ListSessionResponse {
	return ListSessionResponse{
		SessionID: l.ID,
		GroupID:   l.GroupID,
		Status:    string(l.Status),
		Score:     l.Score,
		Required:  l.Required,
		Presented: len(l.Presented),
		Members:   len(l.Members),
	}
}

func multiPartSessionResponse(m *session.MultiPart) MultiPartSessionResponse {
	return MultiPartSessionResponse{
		SessionID:   m.ID,
		GroupID:     m.GroupID,
		Status:      string(m.Status),
		CurrentPart: m.CurrentPart(),
		Parts:       m.Parts,
	}
}

// ── Progressive list sessions ───────────────────────────────────────────

// POST /sessions/list
func (h *Handler) startListSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.GroupID == "" {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return
	}

	l, err := h.quiz.StartListSession(r.Context(), req.GroupID)
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusCreated, listSessionResponse(l))
}

// GET /sessions/list/{sessionID}/next
func (h *Handler) nextListQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.quiz.NextListQuestion(r.Context(), r.PathValue("sessionID"))
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, questionResponse(q))
}

// POST /sessions/list/{sessionID}/answers
func (h *Handler) answerListItem(w http.ResponseWriter, r *http.Request) {
	var req SessionAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ItemID == "" {
		http.Error(w, "item_id is required", http.StatusBadRequest)
		return
	}

	l, err := h.quiz.AnswerListItem(r.Context(), r.PathValue("sessionID"), req.ItemID, req.Correct)
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, listSessionResponse(l))
}

// ── Multi-part sessions ─────────────────────────────────────────────────

// POST /sessions/multipart
func (h *Handler) startMultiPartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.GroupID == "" {
		http.Error(w, "group_id is required", http.StatusBadRequest)
		return
	}

	m, err := h.quiz.StartMultiPartSession(r.Context(), req.GroupID)
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusCreated, multiPartSessionResponse(m))
}

// GET /sessions/multipart/{sessionID}/next
func (h *Handler) nextPartQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.quiz.NextPartQuestion(r.Context(), r.PathValue("sessionID"))
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, questionResponse(q))
}

// POST /sessions/multipart/{sessionID}/answers
func (h *Handler) answerPart(w http.ResponseWriter, r *http.Request) {
	var req SessionAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	m, err := h.quiz.AnswerPart(r.Context(), r.PathValue("sessionID"), req.Correct)
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, multiPartSessionResponse(m))
}
