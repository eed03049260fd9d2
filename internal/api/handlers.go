package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/masterypath/internal/engine"
	"github.com/abhisek/masterypath/internal/mastery"
)

type handlers struct {
	svc       Service
	questions QuestionLookup
	log       *slog.Logger
	ready     func(ctx context.Context) error
}

type optionView struct {
	UUID string `json:"uuid"`
	Text string `json:"text"`
}

type questionView struct {
	QuestionUUID string       `json:"question_uuid"`
	Text         string       `json:"text"`
	Options      []optionView `json:"options"`
}

type submitRequest struct {
	QuestionUUID string `json:"question_uuid"`
	OptionUUID   string `json:"option_uuid"`
}

type feedbackView struct {
	IsCorrect      bool    `json:"is_correct"`
	KnowledgeState float64 `json:"knowledge_state"`
	Accuracy       float64 `json:"accuracy"`
	Attempts       int     `json:"attempts"`
	Mastered       bool    `json:"mastered"`
	EverMastered   bool    `json:"ever_mastered"`
}

type historyView struct {
	Date     time.Time `json:"date"`
	Question string    `json:"question"`
	Result   string    `json:"result"`
}

type progressView struct {
	SectionID  string                      `json:"section_id"`
	Objectives []mastery.ObjectiveProgress `json:"objectives"`
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.ready != nil {
		if err := h.ready(r.Context()); err != nil {
			h.log.Warn("readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (h *handlers) nextQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.NextQuestion(r.Context(), userFrom(r), chi.URLParam(r, "objectiveID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	view := questionView{QuestionUUID: q.ID, Text: q.Text, Options: make([]optionView, len(q.Options))}
	for i, o := range q.Options {
		view.Options[i] = optionView{UUID: o.ID, Text: o.Text}
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handlers) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "invalid JSON body: " + err.Error()})
		return
	}
	if req.QuestionUUID == "" || req.OptionUUID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: "question_uuid and option_uuid are required"})
		return
	}

	fb, err := h.svc.SubmitAnswer(r.Context(), userFrom(r), chi.URLParam(r, "objectiveID"), req.QuestionUUID, req.OptionUUID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, feedbackView{
		IsCorrect:      fb.IsCorrect,
		KnowledgeState: fb.Knowledge,
		Accuracy:       fb.Accuracy,
		Attempts:       fb.Attempts,
		Mastered:       fb.Mastered,
		EverMastered:   fb.EverMastered,
	})
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.History(r.Context(), userFrom(r), chi.URLParam(r, "objectiveID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]historyView, len(records))
	for i, rec := range records {
		text := rec.QuestionID
		if h.questions != nil {
			if q, ok := h.questions.Question(rec.QuestionID); ok {
				text = q.Text
			}
		}
		result := "incorrect"
		if rec.Correct {
			result = "correct"
		}
		out[i] = historyView{Date: rec.AnsweredAt.UTC(), Question: text, Result: result}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handlers) progress(w http.ResponseWriter, r *http.Request) {
	sectionID := chi.URLParam(r, "sectionID")
	objectives, err := h.svc.Progress(r.Context(), userFrom(r), sectionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, progressView{SectionID: sectionID, Objectives: objectives})
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// retryAfter is advertised when storage is temporarily unavailable.
const retryAfter = "1"

// statusFor maps an engine error kind to an HTTP status.
func statusFor(kind engine.Kind) int {
	switch kind {
	case engine.KindObjectiveLocked:
		return http.StatusForbidden
	case engine.KindNoQuestionsAvailable, engine.KindUnknownObjective, engine.KindUnknownSection:
		return http.StatusNotFound
	case engine.KindStaleQuestion:
		return http.StatusConflict
	case engine.KindInvalidOption:
		return http.StatusUnprocessableEntity
	case engine.KindStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := engine.KindOf(err)
	if kind == "" && errors.Is(err, context.DeadlineExceeded) {
		kind = engine.KindStorageUnavailable
	}
	status := statusFor(kind)

	body := errorBody{Error: string(kind), Message: err.Error()}
	switch {
	case status == http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", retryAfter)
		body.Message = "storage temporarily unavailable, retry shortly"
	case status == http.StatusInternalServerError:
		body = errorBody{Error: "internal", Message: "internal error"}
	}
	if status >= 500 {
		h.log.Error("request failed",
			"path", r.URL.Path,
			"user", userFrom(r),
			"request_id", requestID(r),
			"error", err,
		)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
