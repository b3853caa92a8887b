package store

import (
	"context"
	"database/sql"
	"fmt"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) InsertMoveEvent(ctx context.Context, event MoveEvent) (MoveEvent, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO move_events (document_id, gesture_id, depth, parent_position, from_index, to_index, sibling_count, commit_hash, actor)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`,
		event.DocumentID,
		event.GestureID,
		event.Depth,
		event.ParentPosition,
		event.FromIndex,
		event.ToIndex,
		event.SiblingCount,
		event.CommitHash,
		event.Actor,
	).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return MoveEvent{}, fmt.Errorf("insert move event: %w", err)
	}
	return event, nil
}

// ListMoveEvents returns the newest events for a document first.
func (s *PostgresStore) ListMoveEvents(ctx context.Context, documentID string, limit int) ([]MoveEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, gesture_id, depth, parent_position, from_index, to_index, sibling_count, commit_hash, actor, created_at
		FROM move_events
		WHERE document_id=$1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, documentID, limit)
	if err != nil {
		return nil, fmt.Errorf("list move events: %w", err)
	}
	defer rows.Close()

	items := make([]MoveEvent, 0)
	for rows.Next() {
		var item MoveEvent
		if err := rows.Scan(
			&item.ID,
			&item.DocumentID,
			&item.GestureID,
			&item.Depth,
			&item.ParentPosition,
			&item.FromIndex,
			&item.ToIndex,
			&item.SiblingCount,
			&item.CommitHash,
			&item.Actor,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan move event: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate move events: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
