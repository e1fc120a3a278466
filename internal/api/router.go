package api

import "net/http"

// RegisterRoutes wires every endpoint onto the mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Quiz loop
	mux.HandleFunc("GET /quiz/next", h.nextQuestion)
	mux.HandleFunc("POST /quiz/answers", h.recordAnswer)

	// Progress & diagnostics
	mux.HandleFunc("GET /quiz/progress", h.getProgress)
	mux.HandleFunc("GET /quiz/stats", h.getStats)

	// Progressive list sessions
	mux.HandleFunc("POST /sessions/list", h.startListSession)
	mux.HandleFunc("GET /sessions/list/{sessionID}/next", h.nextListQuestion)
	mux.HandleFunc("POST /sessions/list/{sessionID}/answers", h.answerListItem)

	// Multi-part sessions
	mux.HandleFunc("POST /sessions/multipart", h.startMultiPartSession)
	mux.HandleFunc("GET /sessions/multipart/{sessionID}/next", h.nextPartQuestion)
	mux.HandleFunc("POST /sessions/multipart/{sessionID}/answers", h.answerPart)
}
