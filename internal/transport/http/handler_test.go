package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"starquiz-service/internal/app"
	"starquiz-service/internal/domain"
	"starquiz-service/internal/infra/memory"
)

const testSecret = "test-secret"

type fixture struct {
	store   *memory.Store
	server  *httptest.Server
	userID  int64
	adminID int64
	quizID  int64
	qs      []domain.Question
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	userID := store.AddUser("alice", 10, 5, false)
	adminID := store.AddUser("root", 10, 5, true)

	subjectID, err := store.AddSubject(ctx, "History")
	if err != nil {
		t.Fatalf("add subject: %v", err)
	}
	quizID, err := store.AddQuiz(ctx, subjectID, "Ancient Rome", 10)
	if err != nil {
		t.Fatalf("add quiz: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := store.AddQuestion(ctx, domain.QuestionInput{
			QuizID:             quizID,
			Text:               fmt.Sprintf("question %d", i),
			Type:               "mcq",
			Options:            []string{"a", "b"},
			CorrectOptionIndex: 0,
			StarsReward:        1,
		}); err != nil {
			t.Fatalf("add question: %v", err)
		}
	}
	qs, err := store.QuestionsByQuiz(ctx, quizID)
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}

	auth := NewAuthenticator(testSecret)
	attempts := app.NewAttemptService(store, store, nil)
	economy := app.NewEconomyService(store, nil)
	handler := NewHandler(attempts, economy, store, store, auth, nil)
	server := httptest.NewServer(handler.Routes())
	t.Cleanup(server.Close)

	return &fixture{store: store, server: server, userID: userID, adminID: adminID, quizID: quizID, qs: qs}
}

func signToken(t *testing.T, userID int64) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", userID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func (f *fixture) do(t *testing.T, method, path string, token string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, f.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var payload map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, payload
}

func TestSubmitAnswerEndpoint(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, f.userID)
	q := f.qs[0]

	resp, payload := f.do(t, http.MethodPost, "/submit-answer", token, map[string]interface{}{
		"quizId":           f.quizID,
		"questionId":       q.ID,
		"selectedOptionId": q.CorrectOptionID,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["ok"] != true || payload["isCorrect"] != true {
		t.Fatalf("expected correct answer envelope, got %v", payload)
	}
	if payload["currentStars"].(float64) != 11 {
		t.Fatalf("expected 11 stars, got %v", payload["currentStars"])
	}
}

func TestSubmitAnswerRequiresToken(t *testing.T) {
	f := newFixture(t)
	resp, payload := f.do(t, http.MethodPost, "/submit-answer", "", map[string]interface{}{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if payload["error"] != "unauthorized" {
		t.Fatalf("expected unauthorized error, got %v", payload)
	}
}

func TestSubmitAnswerRejectsForgedToken(t *testing.T) {
	f := newFixture(t)
	claims := jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))}
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	resp, _ := f.do(t, http.MethodPost, "/submit-answer", forged, map[string]interface{}{})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestAlreadyAnsweredEnvelope(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, f.userID)
	q := f.qs[0]
	body := map[string]interface{}{
		"quizId":           f.quizID,
		"questionId":       q.ID,
		"selectedOptionId": q.CorrectOptionID,
	}

	if resp, _ := f.do(t, http.MethodPost, "/submit-answer", token, body); resp.StatusCode != http.StatusOK {
		t.Fatalf("first submit failed with %d", resp.StatusCode)
	}
	resp, payload := f.do(t, http.MethodPost, "/submit-answer", token, body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected taxonomy errors at 200, got %d", resp.StatusCode)
	}
	if payload["ok"] != false || payload["error"] != "already_answered" {
		t.Fatalf("expected already_answered, got %v", payload)
	}
	if int64(payload["correctOptionId"].(float64)) != q.CorrectOptionID {
		t.Fatalf("expected correct option in payload, got %v", payload)
	}
}

func TestFinishQuizEndpoint(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, f.userID)
	for _, q := range f.qs {
		f.do(t, http.MethodPost, "/submit-answer", token, map[string]interface{}{
			"quizId":           f.quizID,
			"questionId":       q.ID,
			"selectedOptionId": q.CorrectOptionID,
		})
	}

	resp, payload := f.do(t, http.MethodPost, "/finish-quiz", token, map[string]interface{}{"quizId": f.quizID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload["ok"] != true || payload["passed"] != true || payload["scorePercent"].(float64) != 100 {
		t.Fatalf("expected full pass, got %v", payload)
	}
	if payload["gemsAwarded"].(float64) != 10 {
		t.Fatalf("expected 10 gems, got %v", payload)
	}
}

func TestFinishQuizNoAnswersEnvelope(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, f.userID)
	resp, payload := f.do(t, http.MethodPost, "/finish-quiz", token, map[string]interface{}{"quizId": f.quizID})
	if resp.StatusCode != http.StatusOK || payload["error"] != "no_answers" {
		t.Fatalf("expected no_answers at 200, got %d %v", resp.StatusCode, payload)
	}
}

func TestQuizProgressEndpoint(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, f.userID)

	resp, payload := f.do(t, http.MethodGet, fmt.Sprintf("/quiz/%d", f.quizID), token, nil)
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("expected progress payload, got %d %v", resp.StatusCode, payload)
	}
	if payload["subject"] != "History" {
		t.Fatalf("expected subject title, got %v", payload["subject"])
	}
	questions := payload["questions"].([]interface{})
	if len(questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(questions))
	}
}

func TestHomeDataEndpoint(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, f.userID)

	resp, payload := f.do(t, http.MethodGet, "/home-data", token, nil)
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("expected home payload, got %d %v", resp.StatusCode, payload)
	}
	if payload["username"] != "alice" || payload["stars"].(float64) != 10 {
		t.Fatalf("expected alice with 10 stars, got %v", payload)
	}
	subjects := payload["subjects"].([]interface{})
	if len(subjects) != 1 {
		t.Fatalf("expected 1 subject, got %d", len(subjects))
	}
}

func TestResetQuizEndpoint(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, f.userID)
	for _, q := range f.qs {
		f.do(t, http.MethodPost, "/submit-answer", token, map[string]interface{}{
			"quizId":           f.quizID,
			"questionId":       q.ID,
			"selectedOptionId": q.Options[1].ID, // wrong on purpose
		})
	}
	f.do(t, http.MethodPost, "/finish-quiz", token, map[string]interface{}{"quizId": f.quizID})

	resp, payload := f.do(t, http.MethodPut, fmt.Sprintf("/quiz/%d", f.quizID), token, nil)
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("expected reset ok, got %d %v", resp.StatusCode, payload)
	}

	// After reset the questions are open again.
	resp, payload = f.do(t, http.MethodPost, "/submit-answer", token, map[string]interface{}{
		"quizId":           f.quizID,
		"questionId":       f.qs[0].ID,
		"selectedOptionId": f.qs[0].CorrectOptionID,
	})
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("expected resubmission accepted, got %d %v", resp.StatusCode, payload)
	}
}

func TestBuyStarsEndpoint(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, f.userID)

	resp, payload := f.do(t, http.MethodPost, "/buy-stars/small", token, nil)
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("expected purchase ok, got %d %v", resp.StatusCode, payload)
	}
	if payload["stars"].(float64) != 12 || payload["gems"].(float64) != 4 {
		t.Fatalf("expected 12 stars and 4 gems after small package, got %v", payload)
	}

	resp, payload = f.do(t, http.MethodPost, "/buy-stars/galactic", token, nil)
	if resp.StatusCode != http.StatusOK || payload["error"] != "invalid_package" {
		t.Fatalf("expected invalid_package, got %d %v", resp.StatusCode, payload)
	}
}

func TestBuyStarsInsufficientGems(t *testing.T) {
	f := newFixture(t)
	token := signToken(t, f.userID)

	resp, payload := f.do(t, http.MethodPost, "/buy-stars/legendary", token, nil)
	if resp.StatusCode != http.StatusOK || payload["error"] != "not_enough_gems" {
		t.Fatalf("expected not_enough_gems, got %d %v", resp.StatusCode, payload)
	}
	if payload["gems"].(float64) != 5 {
		t.Fatalf("expected current gems in payload, got %v", payload)
	}
}

func TestAdminRoutesRequireAdminFlag(t *testing.T) {
	f := newFixture(t)
	userToken := signToken(t, f.userID)
	adminToken := signToken(t, f.adminID)

	resp, payload := f.do(t, http.MethodPost, "/admin/subjects", userToken, map[string]interface{}{"title": "Geography"})
	if resp.StatusCode != http.StatusForbidden || payload["error"] != "admin_required" {
		t.Fatalf("expected 403 for non-admin, got %d %v", resp.StatusCode, payload)
	}

	resp, payload = f.do(t, http.MethodPost, "/admin/subjects", adminToken, map[string]interface{}{"title": "Geography"})
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("expected admin create ok, got %d %v", resp.StatusCode, payload)
	}
}

func TestAdminContentNotFound(t *testing.T) {
	f := newFixture(t)
	adminToken := signToken(t, f.adminID)

	resp, payload := f.do(t, http.MethodDelete, "/admin/subjects/9999", adminToken, nil)
	if resp.StatusCode != http.StatusNotFound || payload["error"] != "not_found" {
		t.Fatalf("expected 404 not_found, got %d %v", resp.StatusCode, payload)
	}
}

func TestAdminQuestionLifecycle(t *testing.T) {
	f := newFixture(t)
	adminToken := signToken(t, f.adminID)

	resp, payload := f.do(t, http.MethodPost, "/admin/questions", adminToken, map[string]interface{}{
		"quizId":             f.quizID,
		"text":               "Who founded Rome?",
		"type":               "mcq",
		"options":            []string{"Romulus", "Caesar"},
		"correctOptionIndex": 0,
		"starsReward":        2,
	})
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("expected question created, got %d %v", resp.StatusCode, payload)
	}
	questionID := int64(payload["id"].(float64))

	resp, payload = f.do(t, http.MethodGet, fmt.Sprintf("/admin/questions/%d", questionID), adminToken, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected question fetch, got %d %v", resp.StatusCode, payload)
	}
	question := payload["question"].(map[string]interface{})
	if question["starsReward"].(float64) != 2 {
		t.Fatalf("expected weight 2, got %v", question)
	}

	resp, payload = f.do(t, http.MethodDelete, fmt.Sprintf("/admin/questions/%d", questionID), adminToken, nil)
	if resp.StatusCode != http.StatusOK || payload["ok"] != true {
		t.Fatalf("expected delete ok, got %d %v", resp.StatusCode, payload)
	}
}
