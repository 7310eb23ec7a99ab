package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"livechat/internal/models"
	"livechat/internal/services"
)

const testSecret = "test-secret"

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestApp(t *testing.T) (*fiber.App, *env) {
	t.Helper()
	e := newEnv(t)
	app := fiber.New(fiber.Config{
		Immutable:    true,
		ErrorHandler: ErrorHandler(zerolog.Nop()),
	})
	RegisterAPI(app.Group("/api"), API{
		Messages:  e.messages,
		Presence:  e.conns,
		JWTSecret: testSecret,
		Logger:    zerolog.Nop(),
	})
	return app, e
}

func do(t *testing.T, app *fiber.App, method, path, user string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		token, err := services.GenerateToken(testSecret, user, user, time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var out envelope
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode %s %s: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func TestRESTRequiresToken(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := do(t, app, http.MethodGet, "/api/users/online", "", nil)
	if status != http.StatusUnauthorized || body.Success {
		t.Fatalf("status = %d body = %+v", status, body)
	}
}

func TestRESTSendAndHistory(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/messages/send", "alice",
		models.SendMessageRequest{ChatID: "c1", Content: "hello", IV: "iv"})
	if status != http.StatusCreated || !body.Success {
		t.Fatalf("send status = %d body = %+v", status, body)
	}
	var sentMsg models.Message
	if err := json.Unmarshal(body.Data, &sentMsg); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if sentMsg.Sender.ID != "alice" || sentMsg.Content != "hello" {
		t.Fatalf("message = %+v", sentMsg)
	}

	status, body = do(t, app, http.MethodGet, "/api/messages/c1", "bob", nil)
	if status != http.StatusOK {
		t.Fatalf("history status = %d body = %+v", status, body)
	}
	var history []models.Message
	if err := json.Unmarshal(body.Data, &history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 || history[0].ID != sentMsg.ID {
		t.Fatalf("history = %+v", history)
	}
}

func TestRESTRejectsOutsiders(t *testing.T) {
	app, _ := newTestApp(t)

	status, body := do(t, app, http.MethodPost, "/api/messages/send", "carol",
		models.SendMessageRequest{ChatID: "c1", Content: "hi", IV: "iv"})
	if status != http.StatusNotFound || body.Message != "Chat not found or not authorized" {
		t.Fatalf("send status = %d body = %+v", status, body)
	}

	status, _ = do(t, app, http.MethodGet, "/api/messages/c1", "carol", nil)
	if status != http.StatusNotFound {
		t.Fatalf("history status = %d", status)
	}
}

func TestRESTEditAndDelete(t *testing.T) {
	app, _ := newTestApp(t)

	_, body := do(t, app, http.MethodPost, "/api/messages/send", "alice",
		models.SendMessageRequest{ChatID: "c1", Content: "v1", IV: "iv"})
	var msg models.Message
	if err := json.Unmarshal(body.Data, &msg); err != nil {
		t.Fatalf("decode message: %v", err)
	}

	status, body := do(t, app, http.MethodPut, "/api/messages/"+msg.ID, "alice",
		models.EditMessageRequest{NewContent: "v2"})
	if status != http.StatusOK {
		t.Fatalf("edit status = %d body = %+v", status, body)
	}
	var edited models.Message
	if err := json.Unmarshal(body.Data, &edited); err != nil {
		t.Fatalf("decode edited: %v", err)
	}
	if edited.Content != "v2" || !edited.Edited {
		t.Fatalf("edited = %+v", edited)
	}

	status, _ = do(t, app, http.MethodPut, "/api/messages/"+msg.ID, "alice", models.EditMessageRequest{})
	if status != http.StatusBadRequest {
		t.Fatalf("empty edit status = %d", status)
	}

	status, body = do(t, app, http.MethodDelete, "/api/messages/"+msg.ID, "alice", nil)
	if status != http.StatusOK || !body.Success {
		t.Fatalf("delete status = %d body = %+v", status, body)
	}
	status, body = do(t, app, http.MethodDelete, "/api/messages/"+msg.ID, "alice", nil)
	if status != http.StatusNotFound || body.Message != "Message not found" {
		t.Fatalf("second delete status = %d body = %+v", status, body)
	}
}

func TestRESTOnlineUsers(t *testing.T) {
	app, e := newTestApp(t)
	e.socket.HandleMessage("b1", frame(t, "userOnline", 0, "bob"))

	status, body := do(t, app, http.MethodGet, "/api/users/online", "alice", nil)
	if status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	var ids []string
	if err := json.Unmarshal(body.Data, &ids); err != nil || len(ids) != 1 || ids[0] != "bob" {
		t.Fatalf("online = %s (%v)", body.Data, err)
	}
}
