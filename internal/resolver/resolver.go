// Package resolver decides which conversation room services an inbound
// message. It contributes two pipeline stages: resolution, which may adopt,
// switch to, or create a room (or decline and leave the room unset), and
// validation, the authoritative gate that guarantees every stage after it
// sees either a valid joined room or a stopped pipeline.
package resolver

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"

	"github.com/roomflow/roomflow/internal/chat"
	"github.com/roomflow/roomflow/internal/config"
	"github.com/roomflow/roomflow/internal/pipeline"
	"github.com/roomflow/roomflow/internal/room"
	"github.com/roomflow/roomflow/internal/storage"
)

// Resolver holds the dependencies shared by the resolution and validation
// stages.
type Resolver struct {
	store  storage.RoomStore
	cache  *room.ModelCache
	chat   config.ChatConfig
	rooms  config.RoomsConfig
	logger *slog.Logger

	// pick chooses a random index in [0, n); replaced by tests.
	pick func(n int) int
}

// New creates a resolver over the given store and model cache.
func New(store storage.RoomStore, cache *room.ModelCache, cfg *config.Config, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:  store,
		cache:  cache,
		chat:   cfg.Chat,
		rooms:  cfg.Rooms,
		logger: logger,
		pick:   rand.IntN,
	}
}

// triggered reports whether the message may continue through resolution
// without a room-name match: a direct message where private chat is allowed
// without a command, a bot mention with at-reply enabled, or a message
// starting with the bot's name when nickname matching is on. An explicit
// command is checked by the caller.
func (r *Resolver) triggered(sess *chat.Session) bool {
	if sess.Direct && r.chat.AllowPrivate && r.chat.PrivateChatWithoutCommand {
		return true
	}
	if r.chat.AllowAtReply && sess.MentionedBot {
		return true
	}
	if r.chat.IsNickname && r.chat.BotName != "" && strings.HasPrefix(sess.Content, r.chat.BotName) {
		return true
	}
	return false
}

func firstToken(content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Resolve is the resolution stage handler. It walks the adoption cascade:
// name match, joined-room priority pick, public-room fallback, template
// clone, then template resync, and stores the result on the context. It
// may legitimately leave the room unset, deferring to the validation
// stage.
func (r *Resolver) Resolve(ctx context.Context, sess *chat.Session, ec *pipeline.Context) (pipeline.Result, error) {
	var current *room.Room

	// Step 1: chat-by-room-name. When enabled, a message that neither
	// names a joined room nor carries a command or trigger declines here,
	// before the adoption cascade.
	if r.chat.AllowChatWithRoomName {
		if hint := firstToken(sess.Content); hint != "" {
			matched, err := r.store.QueryJoinedRoom(ctx, sess.UserID, hint)
			if err != nil {
				return pipeline.Result{}, fmt.Errorf("query joined room: %w", err)
			}
			current = matched
		}
		if current == nil && ec.Command == "" && !r.triggered(sess) {
			return pipeline.Skip(), nil
		}
	}

	// Step 2: pick from joined rooms by priority.
	if current == nil {
		joined, err := r.store.GetAllJoinedRooms(ctx, sess.UserID)
		if err != nil {
			return pipeline.Result{}, fmt.Errorf("get joined rooms: %w", err)
		}
		if len(joined) > 0 {
			if picked := r.pickJoined(joined, sess.UserID); picked != nil {
				if err := r.adopt(ctx, sess, picked); err != nil {
					return pipeline.Result{}, err
				}
				current = picked
			}
		}
	}

	// Step 3: public room fallback in group chat.
	if current == nil && !sess.Direct && ec.Command == "" && !r.rooms.AutoCreateRoomFromUser {
		public, err := r.store.QueryPublicRoom(ctx, sess.UserID)
		if err != nil {
			return pipeline.Result{}, fmt.Errorf("query public room: %w", err)
		}
		if public != nil {
			if err := r.adopt(ctx, sess, public); err != nil {
				return pipeline.Result{}, err
			}
			current = public
		}
	}

	// Step 4: clone the template room.
	if current == nil && ec.Command == "" {
		created, result, err := r.createFromTemplate(ctx, sess)
		if err != nil {
			return pipeline.Result{}, err
		}
		if created == nil {
			return result, nil
		}
		current = created
	}

	// Step 5: resync template clones against live defaults.
	if current != nil {
		if err := r.resync(ctx, current); err != nil {
			return pipeline.Result{}, err
		}
	}

	// Step 6
	if current != nil {
		ec.Room = current
	}
	return pipeline.Continue(), nil
}

// pickJoined applies the adoption priority: an owned private room, then an
// owned template clone, then (only when auto-create is off) any template
// clone, then a uniformly random joined room. Returns nil when nothing
// qualifies.
func (r *Resolver) pickJoined(joined []*room.Room, userID string) *room.Room {
	for _, rm := range joined {
		if rm.Visibility == room.VisibilityPrivate && rm.MasterID == userID {
			return rm
		}
	}
	for _, rm := range joined {
		if rm.Visibility == room.VisibilityTemplateClone && rm.MasterID == userID {
			return rm
		}
	}
	if !r.rooms.AutoCreateRoomFromUser {
		for _, rm := range joined {
			if rm.Visibility == room.VisibilityTemplateClone {
				return rm
			}
		}
		return joined[r.pick(len(joined))]
	}
	return nil
}

// adopt switches the session's active room pointer and tells the user.
func (r *Resolver) adopt(ctx context.Context, sess *chat.Session, rm *room.Room) error {
	if err := r.store.SwitchActiveRoom(ctx, sess.UserID, rm.ID); err != nil {
		return fmt.Errorf("switch active room: %w", err)
	}
	sess.Send(fmt.Sprintf("Switched to room %q.", rm.Name))
	r.logger.Info("room adopted",
		slog.String("user", sess.UserID),
		slog.Int64("room", rm.ID),
		slog.String("name", rm.Name),
	)
	return nil
}

// createFromTemplate clones the designated template room into a new room
// for this session. When no template room exists it declines with Skipped;
// a later room-requiring stage is expected to complain explicitly.
func (r *Resolver) createFromTemplate(ctx context.Context, sess *chat.Session) (*room.Room, pipeline.Result, error) {
	tmpl, err := r.store.GetTemplateRoom(ctx, r.rooms.TemplateRoomName)
	if err != nil {
		return nil, pipeline.Result{}, fmt.Errorf("get template room: %w", err)
	}
	if tmpl == nil {
		r.logger.Warn("no template room configured", slog.String("name", r.rooms.TemplateRoomName))
		return nil, pipeline.Skip(), nil
	}

	maxID, err := r.store.GetMaxRoomID(ctx)
	if err != nil {
		return nil, pipeline.Result{}, fmt.Errorf("get max room id: %w", err)
	}

	clone := tmpl.Clone()
	clone.ID = maxID + 1
	clone.MasterID = sess.UserID
	if r.rooms.AutoCreateRoomFromUser {
		clone.Visibility = room.VisibilityPrivate
		clone.Name = sess.DisplayName() + " " + r.rooms.NameSuffix
	} else {
		clone.Visibility = room.VisibilityTemplateClone
		clone.Name = sess.DisplayName() + " " + r.rooms.CloneNameSuffix
	}

	if err := r.store.CreateRoom(ctx, sess.UserID, clone); err != nil {
		return nil, pipeline.Result{}, fmt.Errorf("create room: %w", err)
	}
	if err := r.adopt(ctx, sess, clone); err != nil {
		return nil, pipeline.Result{}, err
	}

	return clone, pipeline.Continue(), nil
}

// resync brings an auto-updating template clone in line with the live
// defaults. Preset or chat-mode drift marks the room for persistence; model
// drift additionally invalidates the room's cached computation state before
// the new model is written. A persisted resync clears the room's history:
// it is no longer valid for the new settings.
func (r *Resolver) resync(ctx context.Context, rm *room.Room) error {
	if rm.Visibility != room.VisibilityTemplateClone || !rm.AutoUpdate {
		return nil
	}

	needsPersist := rm.Preset != r.rooms.DefaultPreset || rm.ChatMode != r.rooms.DefaultChatMode
	if rm.Model != r.rooms.DefaultModel && r.cache != nil {
		r.cache.Invalidate(rm.ID)
	}

	rm.Model = r.rooms.DefaultModel
	rm.Preset = r.rooms.DefaultPreset
	rm.ChatMode = r.rooms.DefaultChatMode

	if !needsPersist {
		return nil
	}

	if err := r.store.UpsertRoom(ctx, rm); err != nil {
		return fmt.Errorf("upsert room: %w", err)
	}
	if err := r.store.ClearHistory(ctx, rm.ID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	r.logger.Info("template clone resynced",
		slog.Int64("room", rm.ID),
		slog.String("preset", rm.Preset),
		slog.String("model", rm.Model),
	)
	return nil
}

// Validate is the validation stage handler, the single authoritative gate
// before any stage that requires an active room.
func (r *Resolver) Validate(ctx context.Context, sess *chat.Session, ec *pipeline.Context) (pipeline.Result, error) {
	joined, err := r.store.GetAllJoinedRooms(ctx, sess.UserID)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("get joined rooms: %w", err)
	}

	if ec.Room == nil {
		if len(joined) == 0 {
			return pipeline.ReplyWith("You have not joined any room. Join a room first."), nil
		}
		picked := joined[r.pick(len(joined))]
		if err := r.adopt(ctx, sess, picked); err != nil {
			return pipeline.Result{}, err
		}
		ec.Room = picked
		return pipeline.Continue(), nil
	}

	for _, rm := range joined {
		if rm.Is(ec.Room) {
			return pipeline.Continue(), nil
		}
	}
	return pipeline.ReplyWith(fmt.Sprintf("You have not joined room %q.", ec.Room.Name)), nil
}
