package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wo-aiml-user/whatsapp-bot/internal/model"
)

// PostgresStore keeps every record in a single messages table keyed by
// the conversation number. seq preserves arrival order within a
// conversation and breaks timestamp ties.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the messages table if it does not exist. There is
// no migration tooling; the schema is append-only and stable.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS messages (
			seq           BIGSERIAL PRIMARY KEY,
			conversation  TEXT NOT NULL,
			message_id    TEXT NOT NULL,
			from_number   TEXT NOT NULL,
			to_number     TEXT NOT NULL,
			ts            TEXT NOT NULL,
			msg_type      TEXT NOT NULL,
			body          TEXT NOT NULL,
			raw           JSONB
		)
	`); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE INDEX IF NOT EXISTS messages_conversation_idx ON messages (conversation)
	`); err != nil {
		return fmt.Errorf("ensure schema index: %w", err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, number string, rec model.Record) error {
	var raw any
	if len(rec.Raw) > 0 {
		raw = []byte(rec.Raw)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (conversation, message_id, from_number, to_number, ts, msg_type, body, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, number, rec.ID, rec.From, rec.To, rec.Timestamp, rec.Type, rec.Body, raw)
	if err != nil {
		return fmt.Errorf("postgres append %s: %w", number, err)
	}
	return nil
}

// Timestamps are epoch-seconds strings, so length-then-lexicographic
// descending order equals numeric descending order.
const newestFirst = `ORDER BY length(ts) DESC, ts DESC, seq DESC`

func (s *PostgresStore) Query(ctx context.Context, number string, limit int) ([]model.Record, error) {
	q := `
		SELECT message_id, from_number, to_number, ts, msg_type, body, raw
		FROM messages
		WHERE conversation = $1
	` + newestFirst
	args := []any{number}
	if limit > 0 {
		q += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query %s: %w", number, err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *PostgresStore) Exists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM messages WHERE conversation = $1)
	`, number).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres exists %s: %w", number, err)
	}
	return exists, nil
}

func (s *PostgresStore) Latest(ctx context.Context, limit int) ([]model.Record, error) {
	q := `
		SELECT message_id, from_number, to_number, ts, msg_type, body, raw
		FROM messages
	` + newestFirst
	var args []any
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres latest: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]model.Record, error) {
	recs := make([]model.Record, 0)
	for rows.Next() {
		var rec model.Record
		var raw []byte

		if err := rows.Scan(
			&rec.ID,
			&rec.From,
			&rec.To,
			&rec.Timestamp,
			&rec.Type,
			&rec.Body,
			&raw,
		); err != nil {
			return nil, err
		}

		if len(raw) > 0 {
			rec.Raw = raw
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
