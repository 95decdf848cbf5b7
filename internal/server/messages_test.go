package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/roomflow/roomflow/internal/chat"
	"github.com/roomflow/roomflow/internal/config"
	"github.com/roomflow/roomflow/internal/pipeline"
	"github.com/roomflow/roomflow/internal/registration"
	"github.com/roomflow/roomflow/internal/resolver"
	"github.com/roomflow/roomflow/internal/room"
	"github.com/roomflow/roomflow/internal/storage/memory"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	cfg := &config.Config{}
	cfg.Chat.BotID = "bot"
	cfg.Chat.AllowPrivate = true
	cfg.Chat.PrivateChatWithoutCommand = true
	cfg.Rooms.DefaultPreset = "default"
	cfg.Rooms.DefaultChatMode = "chat"
	cfg.Rooms.NameSuffix = "room"
	cfg.Rooms.CloneNameSuffix = "template-clone room"

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	cache, err := room.NewModelCache(16)
	if err != nil {
		t.Fatalf("cache: %v", err)
	}
	res := resolver.New(store, cache, cfg, logger)

	reg := pipeline.NewRegistry()
	if err := registration.RegisterCoreStages(reg, res, store, cfg); err != nil {
		t.Fatalf("register stages: %v", err)
	}
	if err := reg.Finalize(); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	srvCfg := config.ServerConfig{Port: 0, RequestTimeout: 5 * time.Second}
	return New(srvCfg, pipeline.NewExecutor(reg, logger), logger), store
}

func postMessage(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)
	return w
}

func TestHandleMessage_BadBody(t *testing.T) {
	s, _ := newTestServer(t)

	w := postMessage(t, s, "{not json")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHandleMessage_MissingUserID(t *testing.T) {
	s, _ := newTestServer(t)

	w := postMessage(t, s, `{"user_name":"Alice","direct":true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "user_id is required" {
		t.Errorf("unexpected error %q", resp.Error)
	}
}

func TestHandleMessage_Completed(t *testing.T) {
	s, store := newTestServer(t)

	r := &room.Room{ID: 1, Name: "alice-room", MasterID: "u1", Visibility: room.VisibilityPrivate}
	if err := store.CreateRoom(t.Context(), "u1", r); err != nil {
		t.Fatalf("create room: %v", err)
	}

	body, _ := json.Marshal(messageRequest{
		UserID:   "u1",
		UserName: "Alice",
		Direct:   true,
		Elements: []chat.Element{{Type: chat.ElementText, Text: "hello there"}},
	})
	w := postMessage(t, s, string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp messageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "completed" {
		t.Errorf("expected completed, got %q", resp.Status)
	}
	if resp.Room == nil || resp.Room.ID != 1 {
		t.Errorf("expected room 1 in response, got %+v", resp.Room)
	}

	history, err := store.GetHistory(t.Context(), 1, 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Content != "hello there" {
		t.Errorf("expected message recorded, got %+v", history)
	}
}

func TestHandleMessage_StoppedWithReply(t *testing.T) {
	s, _ := newTestServer(t)

	// No rooms exist for this user, so validation stops the pipeline.
	body, _ := json.Marshal(messageRequest{
		UserID:   "u2",
		UserName: "Bob",
		Direct:   true,
		Elements: []chat.Element{{Type: chat.ElementText, Text: "hi"}},
	})
	w := postMessage(t, s, string(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp messageResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "stopped" {
		t.Errorf("expected stopped, got %q", resp.Status)
	}
	if len(resp.Replies) != 1 || !strings.Contains(resp.Replies[0], "not joined any room") {
		t.Errorf("expected join-first reply, got %v", resp.Replies)
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte(`"ok"`)) {
		t.Errorf("unexpected health body %q", w.Body.String())
	}
}
