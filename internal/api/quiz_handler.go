package api

import (
	"encoding/json"
	"net/http"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/service"
)

// ── Request / Response types ────────────────────────────────────────────

type QuestionResponse struct {
	ItemID   string           `json:"item_id"`
	Prompt   string           `json:"prompt"`
	Options  []string         `json:"options"`
	Progress *ProgressSummary `json:"progress,omitempty"`
}

type ProgressSummary struct {
	MaxUnlockedChunk   int     `json:"max_unlocked_chunk"`
	TotalChunks        int     `json:"total_chunks"`
	ActiveSetSize      int     `json:"active_set_size"`
	MasteredCount      int     `json:"mastered_count"`
	TotalInPool        int     `json:"total_in_pool"`
	AverageSuccessRate float64 `json:"average_success_rate"`
}

type RecordAnswerRequest struct {
	ItemID  string `json:"item_id"`
	Correct bool   `json:"correct"`
}

type ItemStatResponse struct {
	ItemID        string  `json:"item_id"`
	Prompt        string  `json:"prompt"`
	TimesAnswered int     `json:"times_answered"`
	TimesCorrect  int     `json:"times_correct"`
	LifetimeRate  float64 `json:"lifetime_rate"`
	RollingRate   float64 `json:"rolling_rate"`
	Weight        float64 `json:"weight"`
	Mastered      bool    `json:"is_mastered"`
}

func questionResponse(q *service.Question) QuestionResponse {
	resp := QuestionResponse{
		ItemID:  q.ItemID,
		Prompt:  q.Prompt,
		Options: q.Options,
	}
	if q.Progress != nil {
		resp.Progress = &ProgressSummary{
			MaxUnlockedChunk:   q.Progress.MaxUnlockedChunk,
			TotalChunks:        q.Progress.TotalChunks,
			ActiveSetSize:      q.Progress.ActiveSetSize,
			MasteredCount:      q.Progress.MasteredCount,
			TotalInPool:        q.Progress.TotalInPool,
			AverageSuccessRate: q.Progress.AverageSuccessRate,
		}
	}
	return resp
}

// ── Handlers ────────────────────────────────────────────────────────────

// GET /quiz/next?session=<token>&exclude=<itemID>
//
// With a session token the server tracks the previously shown item per
// token; otherwise the caller supplies the exclusion itself.
func (h *Handler) nextQuestion(w http.ResponseWriter, r *http.Request) {
	var (
		q   *service.Question
		err error
	)
	if token := r.URL.Query().Get("session"); token != "" {
		q, err = h.quiz.NextForToken(r.Context(), token)
	} else {
		q, err = h.quiz.NextQuestion(r.Context(), r.URL.Query().Get("exclude"))
	}
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, questionResponse(q))
}

// POST /quiz/answers
func (h *Handler) recordAnswer(w http.ResponseWriter, r *http.Request) {
	var req RecordAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if req.ItemID == "" {
		http.Error(w, "item_id is required", http.StatusBadRequest)
		return
	}

	if h.handleServiceError(w, h.quiz.RecordOutcome(r.Context(), req.ItemID, req.Correct)) {
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"recorded": true, "correct": req.Correct})
}

// GET /quiz/progress
func (h *Handler) getProgress(w http.ResponseWriter, r *http.Request) {
	summary, err := h.quiz.ProgressSummary(r.Context())
	if h.handleServiceError(w, err) {
		return
	}
	respondJSON(w, http.StatusOK, ProgressSummary{
		MaxUnlockedChunk:   summary.MaxUnlockedChunk,
		TotalChunks:        summary.TotalChunks,
		ActiveSetSize:      summary.ActiveSetSize,
		MasteredCount:      summary.MasteredCount,
		TotalInPool:        summary.TotalInPool,
		AverageSuccessRate: summary.AverageSuccessRate,
	})
}

// GET /quiz/stats
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.quiz.ItemStats(r.Context())
	if h.handleServiceError(w, err) {
		return
	}

	resp := make([]ItemStatResponse, 0, len(stats))
	for _, st := range stats {
		resp = append(resp, ItemStatResponse{
			ItemID:        st.ItemID,
			Prompt:        st.Prompt,
			TimesAnswered: st.TimesAnswered,
			TimesCorrect:  st.TimesCorrect,
			LifetimeRate:  st.LifetimeRate,
			RollingRate:   st.RollingRate,
			Weight:        st.Weight,
			Mastered:      st.Mastered,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
