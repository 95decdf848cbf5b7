// Package storage defines the room repository contract the resolver calls.
package storage

import (
	"context"
	"time"

	"github.com/roomflow/roomflow/internal/room"
)

// HistoryEntry is one stored chat message inside a room.
type HistoryEntry struct {
	RoomID    int64
	Role      string
	Content   string
	CreatedAt time.Time
}

// RoomStore is the room repository. Query operations return (nil, nil) when
// no room matches; absence is an expected control path, not an error.
//
// The store is the sole writer of room records and serializes its own
// writes. UpsertRoom must be a single atomic operation: callers never
// read-modify-write across separate calls when racing sessions could
// interleave.
type RoomStore interface {
	// QueryJoinedRoom finds a room the user has joined whose name equals
	// nameHint. An empty hint matches the user's active room, if any.
	QueryJoinedRoom(ctx context.Context, userID, nameHint string) (*room.Room, error)

	// GetAllJoinedRooms returns every room the user has joined.
	GetAllJoinedRooms(ctx context.Context, userID string) ([]*room.Room, error)

	// QueryPublicRoom finds a public room the user could adopt.
	QueryPublicRoom(ctx context.Context, userID string) (*room.Room, error)

	// GetTemplateRoom returns the designated template room by its
	// configured name, if one exists.
	GetTemplateRoom(ctx context.Context, name string) (*room.Room, error)

	// GetMaxRoomID returns the highest assigned room id, 0 when no rooms
	// exist.
	GetMaxRoomID(ctx context.Context) (int64, error)

	// CreateRoom persists a new room and joins the creating user to it.
	CreateRoom(ctx context.Context, userID string, r *room.Room) error

	// SwitchActiveRoom points the user's active-room marker at roomID.
	SwitchActiveRoom(ctx context.Context, userID string, roomID int64) error

	// UpsertRoom writes the room record atomically, inserting or replacing
	// by id.
	UpsertRoom(ctx context.Context, r *room.Room) error

	// AppendHistory adds one message to a room's chat history.
	AppendHistory(ctx context.Context, roomID int64, role, content string) error

	// GetHistory returns up to limit most recent entries, oldest first.
	GetHistory(ctx context.Context, roomID int64, limit int) ([]HistoryEntry, error)

	// ClearHistory erases a room's chat history.
	ClearHistory(ctx context.Context, roomID int64) error

	Close() error
}
