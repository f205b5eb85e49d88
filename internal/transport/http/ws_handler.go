package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type wsAnswerPayload struct {
	QuestionID       int64 `json:"questionId"`
	SelectedOptionID int64 `json:"selectedOptionId"`
}

// serveWS upgrades the connection and drives a live attempt over it.
// Browsers cannot set an Authorization header on websocket dials, so the
// bearer token rides in the query string instead.
func (h *Handler) serveWS(w http.ResponseWriter, r *http.Request) {
	quizID, ok := pathID(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, envelope{"ok": false, "error": "invalid_quiz_id"})
		return
	}
	userID, err := h.auth.VerifyToken(r.URL.Query().Get("token"))
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, envelope{"ok": false, "error": "unauthorized"})
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	// Single writer goroutine keeps conn writes serialized.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	progress, err := h.attempts.Progress(r.Context(), userID, quizID)
	if err != nil {
		send <- wsErrorMessage(err)
	} else {
		send <- outboundMessage{Type: "progress", Payload: progress}
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload wsAnswerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: envelope{"ok": false, "error": "invalid_payload"}}
				continue
			}
			result, err := h.attempts.SubmitAnswer(r.Context(), userID, quizID, payload.QuestionID, payload.SelectedOptionID)
			if err != nil {
				send <- wsErrorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "answerResult", Payload: result}
		case "finish":
			result, err := h.attempts.FinishQuiz(r.Context(), userID, quizID)
			if err != nil {
				send <- wsErrorMessage(err)
				continue
			}
			send <- outboundMessage{Type: "finished", Payload: result}
		default:
			send <- outboundMessage{Type: "error", Payload: envelope{"ok": false, "error": "unsupported_message_type"}}
		}
	}

	close(send)
	<-writerDone
}

// wsErrorMessage reuses the HTTP error mapping so both transports speak
// the same error vocabulary.
func wsErrorMessage(err error) outboundMessage {
	_, payload := errorPayload(err)
	return outboundMessage{Type: "error", Payload: payload}
}
