package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/roomflow/roomflow/internal/chat"
	"github.com/roomflow/roomflow/internal/pipeline"
	"github.com/roomflow/roomflow/internal/room"
)

// messageRequest is one inbound chat message.
type messageRequest struct {
	UserID    string         `json:"user_id"`
	UserName  string         `json:"user_name"`
	GuildID   string         `json:"guild_id,omitempty"`
	GuildName string         `json:"guild_name,omitempty"`
	Direct    bool           `json:"direct"`
	Elements  []chat.Element `json:"elements"`
	// ReplyURL, when set, additionally delivers replies to a callback.
	ReplyURL string `json:"reply_url,omitempty"`
}

type messageResponse struct {
	Status  string     `json:"status"` // completed, stopped, skipped-through
	Replies []string   `json:"replies"`
	Room    *room.Room `json:"room,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorResponse{Error: "invalid request body"})
		return
	}
	if req.UserID == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(errorResponse{Error: "user_id is required"})
		return
	}

	sess := &chat.Session{
		UserID:    req.UserID,
		UserName:  req.UserName,
		GuildID:   req.GuildID,
		GuildName: req.GuildName,
		Direct:    req.Direct,
		Elements:  req.Elements,
	}

	collector := &chat.Collector{}
	sess.AddReplier(collector)
	if req.ReplyURL != "" {
		sess.AddReplier(chat.NewWebhookReplier(chat.WebhookReplierConfig{
			URL:    req.ReplyURL,
			Logger: s.logger,
		}))
	}

	outcome, err := s.executor.Run(r.Context(), sess)
	if err != nil {
		var stageErr *pipeline.StageExecutionError
		resp := errorResponse{Error: err.Error()}
		if errors.As(err, &stageErr) {
			resp.Stage = stageErr.Stage
		}
		s.logger.Error("pipeline run failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(resp)
		return
	}

	status := "completed"
	if outcome.Signal == pipeline.SignalStop {
		status = "stopped"
	}

	json.NewEncoder(w).Encode(messageResponse{
		Status:  status,
		Replies: collector.Replies(),
		Room:    outcome.Context.Room,
	})
}
