// Package room defines the persistent conversation room record.
package room

import "github.com/google/uuid"

// Visibility controls who a room serves.
type Visibility string

const (
	// VisibilityPrivate is a room owned and used by a single user.
	VisibilityPrivate Visibility = "private"
	// VisibilityPublic is a room any user may adopt.
	VisibilityPublic Visibility = "public"
	// VisibilityTemplateClone is a room cloned from the template room,
	// optionally kept in sync with live defaults via AutoUpdate.
	VisibilityTemplateClone Visibility = "template_clone"
)

// Room is a stateful chat context bound to a model, preset and history.
// IDs are unique and monotonically assigned: the next id is always one past
// the current maximum.
type Room struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	ConversationID string     `json:"conversation_id"`
	MasterID       string     `json:"master_id"`
	Visibility     Visibility `json:"visibility"`
	Preset         string     `json:"preset"`
	Model          string     `json:"model"`
	ChatMode       string     `json:"chat_mode"`
	AutoUpdate     bool       `json:"auto_update"`
}

// Clone deep-copies the room's configuration into a new record with a
// freshly generated conversation id. The template's own conversation id is
// never reused.
func (r *Room) Clone() *Room {
	clone := *r
	clone.ConversationID = uuid.New().String()
	return &clone
}

// Is reports whether the room matches a reference by id or by name.
func (r *Room) Is(other *Room) bool {
	if other == nil {
		return false
	}
	return r.ID == other.ID || r.Name == other.Name
}
