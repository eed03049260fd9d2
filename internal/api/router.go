// Package api exposes the engine over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/abhisek/masterypath/internal/bank"
	"github.com/abhisek/masterypath/internal/engine"
	"github.com/abhisek/masterypath/internal/knowledge"
	"github.com/abhisek/masterypath/internal/mastery"
)

// UserHeader carries the authenticated user id, set by the auth proxy in
// front of this service.
const UserHeader = "X-User-ID"

// Service is the engine surface the handlers use.
type Service interface {
	NextQuestion(ctx context.Context, userID, objectiveID string) (bank.PublicQuestion, error)
	SubmitAnswer(ctx context.Context, userID, objectiveID, questionID, optionID string) (engine.Feedback, error)
	History(ctx context.Context, userID, objectiveID string) ([]knowledge.AnswerRecord, error)
	Progress(ctx context.Context, userID, sectionID string) ([]mastery.ObjectiveProgress, error)
}

// QuestionLookup resolves question ids for history rendering.
// *bank.Catalog implements it.
type QuestionLookup interface {
	Question(id string) (bank.Question, bool)
}

type Deps struct {
	Engine    Service
	Questions QuestionLookup
	Logger    *slog.Logger

	CORSOrigins    []string
	RequestTimeout time.Duration

	// Ready backs /readyz. Nil always reports ready.
	Ready func(ctx context.Context) error
}

// NewRouter builds the HTTP handler.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 15 * time.Second
	}
	h := &handlers{svc: d.Engine, questions: d.Questions, log: d.Logger, ready: d.Ready}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(d.Logger), middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))
	if len(d.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", UserHeader},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	r.Route("/api", func(r chi.Router) {
		r.Use(requireUser)
		r.Route("/objectives/{objectiveID}", func(r chi.Router) {
			r.Get("/next-question", h.nextQuestion)
			r.Post("/submit-answer", h.submitAnswer)
			r.Get("/history", h.history)
		})
		r.Get("/sections/{sectionID}/progress", h.progress)
	})
	return r
}

type userKey struct{}

func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.Header.Get(UserHeader)
		if user == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthenticated", Message: UserHeader + " header is required"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func userFrom(r *http.Request) string {
	u, _ := r.Context().Value(userKey{}).(string)
	return u
}

// requestLogger logs one line per request through slog.
func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"bytes", ww.BytesWritten(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
