package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"starquiz-service/internal/domain"
)

func (h *Handler) registerAdminRoutes(mux *http.ServeMux) {
	admin := func(fn http.HandlerFunc) http.Handler {
		return h.auth.Middleware(h.requireAdmin(fn))
	}
	mux.Handle("GET /admin/subjects", admin(h.listSubjects))
	mux.Handle("POST /admin/subjects", admin(h.createSubject))
	mux.Handle("PUT /admin/subjects/{id}", admin(h.updateSubject))
	mux.Handle("DELETE /admin/subjects/{id}", admin(h.deleteSubject))

	mux.Handle("GET /admin/subjects/{id}/quizzes", admin(h.listQuizzes))
	mux.Handle("POST /admin/quizzes", admin(h.createQuiz))
	mux.Handle("PUT /admin/quizzes/{id}", admin(h.updateQuiz))
	mux.Handle("DELETE /admin/quizzes/{id}", admin(h.deleteQuiz))

	mux.Handle("GET /admin/quizzes/{id}/questions", admin(h.listQuestions))
	mux.Handle("GET /admin/questions/{id}", admin(h.getQuestion))
	mux.Handle("POST /admin/questions", admin(h.createQuestion))
	mux.Handle("PUT /admin/questions/{id}", admin(h.updateQuestion))
	mux.Handle("DELETE /admin/questions/{id}", admin(h.deleteQuestion))
}

func (h *Handler) requireAdmin(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		admin, err := h.admins.IsAdmin(r.Context(), UserID(r.Context()))
		if err != nil || !admin {
			writeJSON(w, http.StatusForbidden, envelope{"ok": false, "error": "admin_required"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeAdminError maps content lookups to 404 and defers everything else
// to the shared taxonomy mapping.
func (h *Handler) writeAdminError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSubjectNotFound),
		errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, envelope{"ok": false, "error": "not_found"})
	default:
		h.writeError(w, err)
	}
}

type subjectRequest struct {
	Title string `json:"title"`
}

func (h *Handler) listSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.content.ListSubjects(r.Context())
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "subjects": subjects})
}

func (h *Handler) createSubject(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_payload"})
		return
	}
	id, err := h.content.AddSubject(r.Context(), req.Title)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "id": id, "title": req.Title})
}

func (h *Handler) updateSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_id"})
		return
	}
	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_payload"})
		return
	}
	if err := h.content.UpdateSubject(r.Context(), id, req.Title); err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "id": id, "title": req.Title})
}

func (h *Handler) deleteSubject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_id"})
		return
	}
	if err := h.content.DeleteSubject(r.Context(), id); err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "id": id})
}

type quizRequest struct {
	SubjectID  int64  `json:"subjectId"`
	Title      string `json:"title"`
	GemsReward int    `json:"gemsReward"`
}

func (h *Handler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	subjectID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_id"})
		return
	}
	quizzes, err := h.content.QuizzesBySubject(r.Context(), subjectID)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "subjectId": subjectID, "quizzes": quizzes})
}

func (h *Handler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_payload"})
		return
	}
	id, err := h.content.AddQuiz(r.Context(), req.SubjectID, req.Title, req.GemsReward)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "id": id, "subjectId": req.SubjectID, "title": req.Title, "gemsReward": req.GemsReward})
}

func (h *Handler) updateQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_id"})
		return
	}
	var req quizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_payload"})
		return
	}
	if err := h.content.UpdateQuiz(r.Context(), id, req.Title, req.GemsReward); err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "id": id, "title": req.Title, "gemsReward": req.GemsReward})
}

func (h *Handler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_id"})
		return
	}
	if err := h.content.DeleteQuiz(r.Context(), id); err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "id": id})
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_id"})
		return
	}
	questions, err := h.content.QuestionsByQuiz(r.Context(), quizID)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "quizId": quizID, "questions": questions})
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_id"})
		return
	}
	question, err := h.content.GetQuestion(r.Context(), id)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "question": question})
}

func validQuestionInput(input domain.QuestionInput) bool {
	if input.Text == "" || len(input.Options) == 0 {
		return false
	}
	if input.Type != "mcq" && input.Type != "ts" {
		return false
	}
	return input.CorrectOptionIndex >= 0 && input.CorrectOptionIndex < len(input.Options)
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var input domain.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || !validQuestionInput(input) {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_payload"})
		return
	}
	if input.StarsReward <= 0 {
		input.StarsReward = 1
	}
	id, err := h.content.AddQuestion(r.Context(), input)
	if err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "id": id, "quizId": input.QuizID})
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_id"})
		return
	}
	var input domain.QuestionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || !validQuestionInput(input) {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_payload"})
		return
	}
	if input.StarsReward <= 0 {
		input.StarsReward = 1
	}
	if err := h.content.UpdateQuestion(r.Context(), id, input); err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "id": id})
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_id"})
		return
	}
	if err := h.content.DeleteQuestion(r.Context(), id); err != nil {
		h.writeAdminError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{"ok": true, "id": id})
}
