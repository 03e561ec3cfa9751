package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"livechat/internal/models"
	"livechat/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS chat_rooms (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	kind       TEXT NOT NULL DEFAULT 'custom',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id              TEXT PRIMARY KEY,
	room_id         TEXT NOT NULL DEFAULT '',
	sender_id       TEXT NOT NULL DEFAULT '',
	recipient_id    TEXT NOT NULL DEFAULT '',
	sender_username TEXT NOT NULL DEFAULT '',
	body            TEXT NOT NULL,
	is_system       BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS chat_messages_room_idx ON chat_messages (room_id, created_at);
CREATE INDEX IF NOT EXISTS chat_messages_pair_idx ON chat_messages (sender_id, recipient_id, created_at);

CREATE TABLE IF NOT EXISTS chat_bans (
	user_id    TEXT PRIMARY KEY,
	reason     TEXT NOT NULL,
	banned_by  TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);`

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(ctx context.Context, databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// Room Repository Implementation
func (db *PostgresDB) EnsureRoom(ctx context.Context, room models.Room) error {
	query := `
		INSERT INTO chat_rooms (id, name, kind, created_at) VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, room.ID, room.Name, string(room.Kind))
	return err
}

func (db *PostgresDB) GetRoom(ctx context.Context, id string) (models.Room, error) {
	query := `SELECT id, name, kind FROM chat_rooms WHERE id = $1`

	var room models.Room
	err := db.pool.QueryRow(ctx, query, id).Scan(&room.ID, &room.Name, &room.Kind)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Room{}, ErrRoomNotFound
	}
	if err != nil {
		return models.Room{}, err
	}
	return room, nil
}

func (db *PostgresDB) ListRooms(ctx context.Context) ([]models.Room, error) {
	query := `
		SELECT id, name, kind FROM chat_rooms
		ORDER BY (id = 'general') DESC, name`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.Kind); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// Message Repository Implementation
func (db *PostgresDB) SaveMessage(ctx context.Context, msg models.Message) error {
	query := `
		INSERT INTO chat_messages (id, room_id, sender_id, recipient_id, sender_username, body, is_system, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := db.pool.Exec(ctx, query,
		msg.ID, msg.RoomID, msg.SenderID, msg.RecipientID, msg.SenderUsername, msg.Text, msg.IsSystem, msg.Timestamp,
	)
	return err
}

func (db *PostgresDB) LoadRecentMessages(ctx context.Context, roomID string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, room_id, sender_id, recipient_id, sender_username, body, is_system, created_at
		FROM chat_messages
		WHERE room_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`

	return db.queryMessages(ctx, query, roomID, limit)
}

func (db *PostgresDB) LoadConversation(ctx context.Context, userA, userB string, limit int) ([]models.Message, error) {
	query := `
		SELECT id, room_id, sender_id, recipient_id, sender_username, body, is_system, created_at
		FROM chat_messages
		WHERE room_id = ''
		  AND ((sender_id = $1 AND recipient_id = $2) OR (sender_id = $2 AND recipient_id = $1))
		ORDER BY created_at DESC, id DESC
		LIMIT $3`

	return db.queryMessages(ctx, query, userA, userB, limit)
}

// queryMessages scans newest-first rows and returns them oldest first.
func (db *PostgresDB) queryMessages(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.SenderID, &m.RecipientID, &m.SenderUsername, &m.Text, &m.IsSystem, &m.Timestamp); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Ban Repository Implementation
func (db *PostgresDB) SaveBan(ctx context.Context, ban models.BanRecord) error {
	query := `
		INSERT INTO chat_bans (user_id, reason, banned_by, created_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, ban.UserID, ban.Reason, ban.BannedBy, ban.CreatedAt)
	return err
}

func (db *PostgresDB) IsBanned(ctx context.Context, userID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM chat_bans WHERE user_id = $1)`

	var exists bool
	err := db.pool.QueryRow(ctx, query, userID).Scan(&exists)
	return exists, err
}
