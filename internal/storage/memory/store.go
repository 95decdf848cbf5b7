// Package memory is an in-memory room store used by tests and ephemeral
// deployments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roomflow/roomflow/internal/room"
	"github.com/roomflow/roomflow/internal/storage"
)

// Store is an in-memory implementation of RoomStore.
type Store struct {
	mu      sync.RWMutex
	rooms   map[int64]*room.Room
	members map[int64]map[string]bool
	active  map[string]int64
	history map[int64][]storage.HistoryEntry
}

var _ storage.RoomStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		rooms:   make(map[int64]*room.Room),
		members: make(map[int64]map[string]bool),
		active:  make(map[string]int64),
		history: make(map[int64][]storage.HistoryEntry),
	}
}

// joinedLocked returns the user's joined rooms ordered by id.
func (s *Store) joinedLocked(userID string) []*room.Room {
	var out []*room.Room
	for id, users := range s.members {
		if users[userID] {
			if r, ok := s.rooms[id]; ok {
				out = append(out, r)
			}
		}
	}
	// Deterministic order for callers that index into the result
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyRoom(r *room.Room) *room.Room {
	c := *r
	return &c
}

func (s *Store) QueryJoinedRoom(ctx context.Context, userID, nameHint string) (*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if nameHint == "" {
		id, ok := s.active[userID]
		if !ok {
			return nil, nil
		}
		if r, joined := s.rooms[id], s.members[id][userID]; joined && r != nil {
			return copyRoom(r), nil
		}
		return nil, nil
	}

	for _, r := range s.joinedLocked(userID) {
		if r.Name == nameHint {
			return copyRoom(r), nil
		}
	}
	return nil, nil
}

func (s *Store) GetAllJoinedRooms(ctx context.Context, userID string) ([]*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	joined := s.joinedLocked(userID)
	out := make([]*room.Room, len(joined))
	for i, r := range joined {
		out[i] = copyRoom(r)
	}
	return out, nil
}

func (s *Store) QueryPublicRoom(ctx context.Context, userID string) (*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *room.Room
	for _, r := range s.rooms {
		if r.Visibility != room.VisibilityPublic {
			continue
		}
		if best == nil || r.ID < best.ID {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	return copyRoom(best), nil
}

func (s *Store) GetTemplateRoom(ctx context.Context, name string) (*room.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *room.Room
	for _, r := range s.rooms {
		if r.Name != name {
			continue
		}
		if best == nil || r.ID < best.ID {
			best = r
		}
	}
	if best == nil {
		return nil, nil
	}
	return copyRoom(best), nil
}

func (s *Store) GetMaxRoomID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var max int64
	for id := range s.rooms {
		if id > max {
			max = id
		}
	}
	return max, nil
}

func (s *Store) CreateRoom(ctx context.Context, userID string, r *room.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[r.ID]; exists {
		return fmt.Errorf("room %d already exists", r.ID)
	}

	s.rooms[r.ID] = copyRoom(r)
	s.members[r.ID] = map[string]bool{userID: true}
	return nil
}

// Join adds a user to an existing room. Tests use it to build membership
// fixtures.
func (s *Store) Join(roomID int64, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rooms[roomID]; !exists {
		return fmt.Errorf("room %d not found", roomID)
	}
	if s.members[roomID] == nil {
		s.members[roomID] = make(map[string]bool)
	}
	s.members[roomID][userID] = true
	return nil
}

func (s *Store) SwitchActiveRoom(ctx context.Context, userID string, roomID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.active[userID] = roomID
	return nil
}

// ActiveRoom returns the user's active room id, 0 when unset.
func (s *Store) ActiveRoom(userID string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active[userID]
}

func (s *Store) UpsertRoom(ctx context.Context, r *room.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rooms[r.ID] = copyRoom(r)
	if s.members[r.ID] == nil {
		s.members[r.ID] = make(map[string]bool)
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, roomID int64, role, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[roomID] = append(s.history[roomID], storage.HistoryEntry{
		RoomID:    roomID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	})
	return nil
}

func (s *Store) GetHistory(ctx context.Context, roomID int64, limit int) ([]storage.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[roomID]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]storage.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *Store) ClearHistory(ctx context.Context, roomID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, roomID)
	return nil
}

func (s *Store) Close() error {
	return nil
}
