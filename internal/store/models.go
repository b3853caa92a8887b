package store

import "time"

// MoveEvent is one committed reorder, as recorded in move_events.
type MoveEvent struct {
	ID             int64
	DocumentID     string
	GestureID      string
	Depth          int
	ParentPosition int
	FromIndex      int
	ToIndex        int
	SiblingCount   int
	CommitHash     string
	Actor          string
	CreatedAt      time.Time
}

// CommitInfo summarizes a document revision.
type CommitInfo struct {
	Hash      string
	Message   string
	Author    string
	CreatedAt time.Time
}
