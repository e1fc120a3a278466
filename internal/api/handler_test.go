package api_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/api"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/domain/item"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/selection"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/service"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/store"
	"github.com/AlmostInteractive/Mexico-Naturalization-Study-Tool/internal/weighting"
)

func newTestServer(t *testing.T) (*http.ServeMux, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "quiz.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(st, weighting.NewLinearPolicy(), selection.New(rand.New(rand.NewSource(1))), logger)

	mux := http.NewServeMux()
	api.RegisterRoutes(mux, api.NewHandler(svc, logger))
	return mux, st
}

func seedItem(t *testing.T, st *store.SQLiteStore, id string) {
	t.Helper()
	it := item.New("prompt-"+id, "answer-"+id, 1)
	it.ID = id
	it.Distractors = []string{"w1", "w2", "w3"}
	if err := st.SaveItem(context.Background(), it); err != nil {
		t.Fatalf("seed item: %v", err)
	}
}

func TestGetNextQuestion(t *testing.T) {
	mux, st := newTestServer(t)
	seedItem(t, st, "a")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quiz/next", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var resp api.QuestionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ItemID != "a" {
		t.Errorf("item_id = %q, want %q", resp.ItemID, "a")
	}
	if len(resp.Options) != 5 {
		t.Errorf("expected 5 options, got %v", resp.Options)
	}
	if resp.Options[len(resp.Options)-1] != selection.FallbackOption {
		t.Errorf("catch-all option not last: %v", resp.Options)
	}
	// The answer must never leak in the payload alongside the options.
	if strings.Contains(rec.Body.String(), `"answer"`) {
		t.Errorf("response leaks the answer field: %s", rec.Body.String())
	}
	if resp.Progress == nil {
		t.Error("expected progress attached to the question")
	}
}

func TestGetNextQuestion_EmptyPool(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quiz/next", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRecordAnswer(t *testing.T) {
	mux, st := newTestServer(t)
	seedItem(t, st, "a")

	body := strings.NewReader(`{"item_id": "a", "correct": true}`)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quiz/answers", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	it, err := st.GetItem(context.Background(), "a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if it.TimesAnswered != 1 || it.TimesCorrect != 1 {
		t.Errorf("counters = (%d, %d), want (1, 1)", it.TimesAnswered, it.TimesCorrect)
	}
}

func TestRecordAnswer_Validation(t *testing.T) {
	mux, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quiz/answers", strings.NewReader("{not json")))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed json: status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quiz/answers", strings.NewReader(`{"correct": true}`)))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing item_id: status = %d, want 400", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/quiz/answers", strings.NewReader(`{"item_id": "ghost", "correct": true}`)))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown item: status = %d, want 404", rec.Code)
	}
}

func TestGetProgress(t *testing.T) {
	mux, st := newTestServer(t)
	seedItem(t, st, "a")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quiz/progress", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp api.ProgressSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.MaxUnlockedChunk != 1 || resp.TotalInPool != 1 {
		t.Errorf("unexpected summary: %+v", resp)
	}
}

func TestGetStats(t *testing.T) {
	mux, st := newTestServer(t)
	seedItem(t, st, "a")
	seedItem(t, st, "b")

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/quiz/stats", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp []api.ItemStatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp) != 2 {
		t.Errorf("expected 2 stats, got %d", len(resp))
	}
}

func TestListSessionEndpoints(t *testing.T) {
	mux, st := newTestServer(t)
	for _, id := range []string{"m1", "m2"} {
		it := item.New("prompt-"+id, "answer-"+id, 1)
		it.ID = id
		it.GroupID = "rivers"
		if err := st.SaveItem(context.Background(), it); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/list", strings.NewReader(`{"group_id": "rivers"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	var sess api.ListSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.Members != 2 || sess.Required != 2 {
		t.Errorf("unexpected session: %+v", sess)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/list/"+sess.SessionID+"/next", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("next question: status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	var q api.QuestionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode question: %v", err)
	}

	body := strings.NewReader(`{"item_id": "` + q.ItemID + `", "correct": true}`)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/list/"+sess.SessionID+"/answers", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("answer: status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}

	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.Score != 1 || sess.Status != "active" {
		t.Errorf("unexpected session after answer: %+v", sess)
	}
}

func TestMultiPartSessionEndpoints(t *testing.T) {
	mux, st := newTestServer(t)
	for i, id := range []string{"p1", "p2"} {
		it := item.New("prompt-"+id, "answer-"+id, 1)
		it.ID = id
		it.GroupID = "anthem"
		it.Part = i + 1
		if err := st.SaveItem(context.Background(), it); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/multipart", strings.NewReader(`{"group_id": "anthem"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("start session: status = %d, want 201; body: %s", rec.Code, rec.Body.String())
	}

	var sess api.MultiPartSessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.Parts != 2 || sess.CurrentPart != 1 {
		t.Errorf("unexpected session: %+v", sess)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions/multipart/"+sess.SessionID+"/answers", strings.NewReader(`{"correct": true}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("answer: status = %d, want 200; body: %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sess); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if sess.CurrentPart != 2 || sess.Status != "active" {
		t.Errorf("unexpected session after part 1: %+v", sess)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/multipart/ghost/next", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", rec.Code)
	}
}
