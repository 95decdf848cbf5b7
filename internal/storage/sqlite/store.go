// Package sqlite is the SQLite implementation of the room store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/roomflow/roomflow/internal/room"
	"github.com/roomflow/roomflow/internal/storage"
)

// Store is a SQLite implementation of RoomStore.
type Store struct {
	db *sql.DB
}

var _ storage.RoomStore = (*Store)(nil)

// New opens (or creates) the database at dbPath and initializes the schema.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			master_id TEXT NOT NULL,
			visibility TEXT NOT NULL,
			preset TEXT NOT NULL DEFAULT '',
			model TEXT NOT NULL DEFAULT '',
			chat_mode TEXT NOT NULL DEFAULT '',
			auto_update INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS room_members (
			room_id INTEGER NOT NULL,
			user_id TEXT NOT NULL,
			joined_at TIMESTAMP NOT NULL,
			PRIMARY KEY (room_id, user_id),
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS active_rooms (
			user_id TEXT PRIMARY KEY,
			room_id INTEGER NOT NULL,
			switched_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS room_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (room_id) REFERENCES rooms(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_room_members_user ON room_members(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_room_history_room ON room_history(room_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

const roomColumns = `id, name, conversation_id, master_id, visibility, preset, model, chat_mode, auto_update`

func scanRoom(row interface{ Scan(...any) error }) (*room.Room, error) {
	var r room.Room
	var autoUpdate int
	err := row.Scan(&r.ID, &r.Name, &r.ConversationID, &r.MasterID,
		&r.Visibility, &r.Preset, &r.Model, &r.ChatMode, &autoUpdate)
	if err != nil {
		return nil, err
	}
	r.AutoUpdate = autoUpdate != 0
	return &r, nil
}

// QueryJoinedRoom finds a joined room by name, or the user's active room
// when the hint is empty. Returns (nil, nil) when nothing matches.
func (s *Store) QueryJoinedRoom(ctx context.Context, userID, nameHint string) (*room.Room, error) {
	var query string
	var args []any

	if nameHint != "" {
		query = `SELECT ` + roomColumns + ` FROM rooms
		         JOIN room_members ON room_members.room_id = rooms.id
		         WHERE room_members.user_id = ? AND rooms.name = ?
		         ORDER BY rooms.id LIMIT 1`
		args = []any{userID, nameHint}
	} else {
		query = `SELECT ` + roomColumns + ` FROM rooms
		         JOIN room_members ON room_members.room_id = rooms.id
		         JOIN active_rooms ON active_rooms.room_id = rooms.id
		         WHERE room_members.user_id = ? AND active_rooms.user_id = ?
		         LIMIT 1`
		args = []any{userID, userID}
	}

	r, err := scanRoom(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query joined room: %w", err)
	}
	return r, nil
}

func (s *Store) GetAllJoinedRooms(ctx context.Context, userID string) ([]*room.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms
	          JOIN room_members ON room_members.room_id = rooms.id
	          WHERE room_members.user_id = ?
	          ORDER BY rooms.id ASC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query joined rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*room.Room
	for rows.Next() {
		r, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, r)
	}

	return rooms, rows.Err()
}

func (s *Store) QueryPublicRoom(ctx context.Context, userID string) (*room.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms
	          WHERE visibility = ? ORDER BY id LIMIT 1`

	r, err := scanRoom(s.db.QueryRowContext(ctx, query, string(room.VisibilityPublic)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query public room: %w", err)
	}
	return r, nil
}

// GetTemplateRoom returns the lowest-id room carrying the configured
// template name. Returns (nil, nil) when none exists.
func (s *Store) GetTemplateRoom(ctx context.Context, name string) (*room.Room, error) {
	query := `SELECT ` + roomColumns + ` FROM rooms
	          WHERE name = ? ORDER BY id LIMIT 1`

	r, err := scanRoom(s.db.QueryRowContext(ctx, query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query template room: %w", err)
	}
	return r, nil
}

func (s *Store) GetMaxRoomID(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM rooms`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to query max room id: %w", err)
	}
	return max, nil
}

// CreateRoom inserts the room and joins the creating user to it in one
// transaction.
func (s *Store) CreateRoom(ctx context.Context, userID string, r *room.Room) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.ConversationID, r.MasterID, string(r.Visibility),
		r.Preset, r.Model, r.ChatMode, boolInt(r.AutoUpdate), now, now)
	if err != nil {
		return fmt.Errorf("failed to insert room: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)`,
		r.ID, userID, now)
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	return tx.Commit()
}

func (s *Store) SwitchActiveRoom(ctx context.Context, userID string, roomID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO active_rooms (user_id, room_id, switched_at) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET room_id = excluded.room_id, switched_at = excluded.switched_at`,
		userID, roomID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to switch active room: %w", err)
	}
	return nil
}

// UpsertRoom writes the full room record in a single atomic statement.
func (s *Store) UpsertRoom(ctx context.Context, r *room.Room) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rooms (`+roomColumns+`, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   name = excluded.name,
		   conversation_id = excluded.conversation_id,
		   master_id = excluded.master_id,
		   visibility = excluded.visibility,
		   preset = excluded.preset,
		   model = excluded.model,
		   chat_mode = excluded.chat_mode,
		   auto_update = excluded.auto_update,
		   updated_at = excluded.updated_at`,
		r.ID, r.Name, r.ConversationID, r.MasterID, string(r.Visibility),
		r.Preset, r.Model, r.ChatMode, boolInt(r.AutoUpdate), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert room: %w", err)
	}
	return nil
}

func (s *Store) AppendHistory(ctx context.Context, roomID int64, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO room_history (room_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		roomID, role, content, time.Now())
	if err != nil {
		return fmt.Errorf("failed to append history: %w", err)
	}
	return nil
}

func (s *Store) GetHistory(ctx context.Context, roomID int64, limit int) ([]storage.HistoryEntry, error) {
	query := `SELECT room_id, role, content, created_at FROM (
	            SELECT id, room_id, role, content, created_at FROM room_history
	            WHERE room_id = ? ORDER BY id DESC LIMIT ?
	          ) ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []storage.HistoryEntry
	for rows.Next() {
		var e storage.HistoryEntry
		if err := rows.Scan(&e.RoomID, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

func (s *Store) ClearHistory(ctx context.Context, roomID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM room_history WHERE room_id = ?`, roomID)
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
