package memory

import (
	"context"
	"testing"

	"github.com/roomflow/roomflow/internal/room"
)

func TestQueryJoinedRoom_ByName(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateRoom(ctx, "u1", &room.Room{ID: 1, Name: "alpha", MasterID: "u1", Visibility: room.VisibilityPrivate})
	s.CreateRoom(ctx, "u2", &room.Room{ID: 2, Name: "beta", MasterID: "u2", Visibility: room.VisibilityPrivate})

	r, err := s.QueryJoinedRoom(ctx, "u1", "alpha")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if r == nil || r.ID != 1 {
		t.Fatalf("expected room 1, got %+v", r)
	}

	// beta exists but u1 has not joined it
	r, err = s.QueryJoinedRoom(ctx, "u1", "beta")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if r != nil {
		t.Errorf("expected no match for unjoined room, got %+v", r)
	}
}

func TestQueryJoinedRoom_EmptyHintUsesActiveRoom(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateRoom(ctx, "u1", &room.Room{ID: 1, Name: "alpha", MasterID: "u1", Visibility: room.VisibilityPrivate})

	r, err := s.QueryJoinedRoom(ctx, "u1", "")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if r != nil {
		t.Errorf("expected no active room yet, got %+v", r)
	}

	s.SwitchActiveRoom(ctx, "u1", 1)
	r, err = s.QueryJoinedRoom(ctx, "u1", "")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if r == nil || r.ID != 1 {
		t.Fatalf("expected active room 1, got %+v", r)
	}
}

func TestGetAllJoinedRooms_OrderedByID(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateRoom(ctx, "u1", &room.Room{ID: 3, Name: "c", MasterID: "u1", Visibility: room.VisibilityPrivate})
	s.CreateRoom(ctx, "u1", &room.Room{ID: 1, Name: "a", MasterID: "u1", Visibility: room.VisibilityPrivate})
	s.CreateRoom(ctx, "u1", &room.Room{ID: 2, Name: "b", MasterID: "u1", Visibility: room.VisibilityPrivate})

	rooms, err := s.GetAllJoinedRooms(ctx, "u1")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(rooms))
	}
	for i, want := range []int64{1, 2, 3} {
		if rooms[i].ID != want {
			t.Errorf("position %d: expected id %d, got %d", i, want, rooms[i].ID)
		}
	}
}

func TestUpsertRoom_Atomic(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateRoom(ctx, "u1", &room.Room{ID: 1, Name: "a", MasterID: "u1", Visibility: room.VisibilityTemplateClone, Preset: "old"})

	if err := s.UpsertRoom(ctx, &room.Room{ID: 1, Name: "a", MasterID: "u1", Visibility: room.VisibilityTemplateClone, Preset: "new"}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	r, _ := s.QueryJoinedRoom(ctx, "u1", "a")
	if r.Preset != "new" {
		t.Errorf("expected updated preset, got %q", r.Preset)
	}

	// Upsert of an unknown id inserts
	if err := s.UpsertRoom(ctx, &room.Room{ID: 2, Name: "b", MasterID: "u1", Visibility: room.VisibilityPublic}); err != nil {
		t.Fatalf("insert-by-upsert failed: %v", err)
	}
	max, _ := s.GetMaxRoomID(ctx)
	if max != 2 {
		t.Errorf("expected max id 2, got %d", max)
	}
}

func TestHistoryLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateRoom(ctx, "u1", &room.Room{ID: 1, Name: "a", MasterID: "u1", Visibility: room.VisibilityPrivate})

	s.AppendHistory(ctx, 1, "user", "one")
	s.AppendHistory(ctx, 1, "assistant", "two")
	s.AppendHistory(ctx, 1, "user", "three")

	hist, err := s.GetHistory(ctx, 1, 2)
	if err != nil {
		t.Fatalf("get history failed: %v", err)
	}
	if len(hist) != 2 || hist[0].Content != "two" || hist[1].Content != "three" {
		t.Fatalf("expected most recent two entries oldest first, got %+v", hist)
	}

	if err := s.ClearHistory(ctx, 1); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	hist, _ = s.GetHistory(ctx, 1, 10)
	if len(hist) != 0 {
		t.Errorf("expected empty history, got %d entries", len(hist))
	}
}

func TestGetTemplateRoom_LowestID(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateRoom(ctx, "admin", &room.Room{ID: 5, Name: "template", MasterID: "admin", Visibility: room.VisibilityPublic})
	s.CreateRoom(ctx, "admin", &room.Room{ID: 2, Name: "template", MasterID: "admin", Visibility: room.VisibilityPublic})

	r, err := s.GetTemplateRoom(ctx, "template")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if r == nil || r.ID != 2 {
		t.Fatalf("expected lowest-id template, got %+v", r)
	}

	r, err = s.GetTemplateRoom(ctx, "missing")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if r != nil {
		t.Errorf("expected nil for missing template, got %+v", r)
	}
}

func TestQueryPublicRoom(t *testing.T) {
	ctx := context.Background()
	s := New()
	s.CreateRoom(ctx, "u1", &room.Room{ID: 1, Name: "a", MasterID: "u1", Visibility: room.VisibilityPrivate})

	r, err := s.QueryPublicRoom(ctx, "u2")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if r != nil {
		t.Errorf("expected no public room, got %+v", r)
	}

	s.CreateRoom(ctx, "u1", &room.Room{ID: 2, Name: "pub", MasterID: "u1", Visibility: room.VisibilityPublic})
	r, err = s.QueryPublicRoom(ctx, "u2")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if r == nil || r.ID != 2 {
		t.Fatalf("expected public room 2, got %+v", r)
	}
}
