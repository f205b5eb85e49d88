package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"starquiz-service/internal/app"
	"starquiz-service/internal/domain"
)

// ContentStore is the admin-facing content CRUD the handlers drive.
type ContentStore interface {
	ListSubjects(ctx context.Context) ([]domain.Subject, error)
	AddSubject(ctx context.Context, title string) (int64, error)
	UpdateSubject(ctx context.Context, id int64, title string) error
	DeleteSubject(ctx context.Context, id int64) error
	QuizzesBySubject(ctx context.Context, subjectID int64) ([]domain.Quiz, error)
	AddQuiz(ctx context.Context, subjectID int64, title string, gemsReward int) (int64, error)
	UpdateQuiz(ctx context.Context, id int64, title string, gemsReward int) error
	DeleteQuiz(ctx context.Context, id int64) error
	QuestionsByQuiz(ctx context.Context, quizID int64) ([]domain.Question, error)
	GetQuestion(ctx context.Context, id int64) (domain.Question, error)
	AddQuestion(ctx context.Context, input domain.QuestionInput) (int64, error)
	UpdateQuestion(ctx context.Context, id int64, input domain.QuestionInput) error
	DeleteQuestion(ctx context.Context, id int64) error
}

// AdminChecker reports whether a user may reach the admin surface.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}

// Handler wires the attempt and economy engines to HTTP.
type Handler struct {
	attempts *app.AttemptService
	economy  *app.EconomyService
	content  ContentStore
	admins   AdminChecker
	auth     *Authenticator
	log      *zap.Logger
}

func NewHandler(attempts *app.AttemptService, economy *app.EconomyService, content ContentStore, admins AdminChecker, auth *Authenticator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{attempts: attempts, economy: economy, content: content, admins: admins, auth: auth, log: log}
}

// Routes builds the service mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	authed := func(fn http.HandlerFunc) http.Handler { return h.auth.Middleware(fn) }
	mux.Handle("GET /home-data", authed(h.homeData))
	mux.Handle("GET /quiz/{id}", authed(h.quizProgress))
	mux.Handle("PUT /quiz/{id}", authed(h.resetQuiz))
	mux.Handle("POST /submit-answer", authed(h.submitAnswer))
	mux.Handle("POST /finish-quiz", authed(h.finishQuiz))
	mux.Handle("POST /buy-stars/{package}", authed(h.buyStars))
	mux.Handle("GET /ws/quiz/{id}", http.HandlerFunc(h.serveWS))

	h.registerAdminRoutes(mux)
	return mux
}

type envelope map[string]interface{}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy to the ok/error wire envelope.
// Taxonomy errors stay HTTP 200 so clients branch on the payload; only
// transient storage pressure and unexpected failures change the status.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status, payload := errorPayload(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, payload)
}

func errorPayload(err error) (int, envelope) {
	var (
		alreadyAnswered  *domain.AlreadyAnsweredError
		notReady         *domain.NotReadyError
		alreadyCompleted *domain.AlreadyCompletedError
		insufficient     *domain.InsufficientGemsError
	)
	switch {
	case errors.As(err, &alreadyAnswered):
		return http.StatusOK, envelope{"ok": false, "error": "already_answered", "correctOptionId": alreadyAnswered.CorrectOptionID}
	case errors.As(err, &notReady):
		return http.StatusOK, envelope{"ok": false, "error": "not_ready", "currentStars": notReady.CurrentStars}
	case errors.As(err, &alreadyCompleted):
		return http.StatusOK, envelope{"ok": false, "error": "already_completed", "scorePercent": alreadyCompleted.ScorePercent, "gemsAwarded": alreadyCompleted.GemsAwarded, "passed": true}
	case errors.As(err, &insufficient):
		return http.StatusOK, envelope{"ok": false, "error": "not_enough_gems", "stars": insufficient.Stars, "gems": insufficient.Gems}
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusOK, envelope{"ok": false, "error": "user_not_found"}
	case errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusOK, envelope{"ok": false, "error": "question_not_found"}
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusOK, envelope{"ok": false, "error": "quiz_not_found"}
	case errors.Is(err, domain.ErrNoAnswers):
		return http.StatusOK, envelope{"ok": false, "error": "no_answers"}
	case errors.Is(err, domain.ErrUserPassed):
		return http.StatusOK, envelope{"ok": false, "error": "user_passed"}
	case errors.Is(err, domain.ErrInvalidPackage):
		return http.StatusOK, envelope{"ok": false, "error": "invalid_package"}
	case errors.Is(err, domain.ErrStorageTransient):
		return http.StatusServiceUnavailable, envelope{"ok": false, "error": "storage_busy"}
	default:
		return http.StatusInternalServerError, envelope{"ok": false, "error": "internal"}
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) homeData(w http.ResponseWriter, r *http.Request) {
	overview, err := h.attempts.Home(r.Context(), UserID(r.Context()))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
		domain.HomeOverview
	}{true, overview})
}

func (h *Handler) quizProgress(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_quiz_id"})
		return
	}
	progress, err := h.attempts.Progress(r.Context(), UserID(r.Context()), quizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
		domain.QuizProgress
	}{true, progress})
}

func (h *Handler) resetQuiz(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_quiz_id"})
		return
	}
	if err := h.attempts.ResetFailedQuiz(r.Context(), UserID(r.Context()), quizID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "message": "answers reset"})
}

type submitAnswerRequest struct {
	QuizID           int64 `json:"quizId"`
	QuestionID       int64 `json:"questionId"`
	SelectedOptionID int64 `json:"selectedOptionId"`
}

func (h *Handler) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_payload"})
		return
	}
	result, err := h.attempts.SubmitAnswer(r.Context(), UserID(r.Context()), req.QuizID, req.QuestionID, req.SelectedOptionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
		domain.SubmissionResult
	}{true, result})
}

type finishQuizRequest struct {
	QuizID int64 `json:"quizId"`
}

func (h *Handler) finishQuiz(w http.ResponseWriter, r *http.Request) {
	var req finishQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_payload"})
		return
	}
	result, err := h.attempts.FinishQuiz(r.Context(), UserID(r.Context()), req.QuizID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
		domain.FinalizationResult
	}{true, result})
}

func (h *Handler) buyStars(w http.ResponseWriter, r *http.Request) {
	result, err := h.economy.BuyStarPackage(r.Context(), UserID(r.Context()), r.PathValue("package"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		OK bool `json:"ok"`
		domain.PurchaseResult
	}{true, result})
}
