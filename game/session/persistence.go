package session

import (
	"time"

	"github.com/wricardo/mcp-training/daifugo/game/engine"
)

// Persistence defines the interface for storing finished session records
type Persistence interface {
	// Save writes a record to storage
	Save(rec *Record) error

	// Load retrieves a record by session ID
	Load(id string) (*Record, error)

	// Delete removes a record from storage
	Delete(id string) error

	// ListAll returns all stored session IDs
	ListAll() ([]string, error)

	// Exists checks if a record exists in storage
	Exists(id string) bool
}

// Record is the JSON shape of a stored session. The transcript can be fed
// back through the decoder and reducer to rebuild State.
type Record struct {
	ID         string       `json:"id"`
	Room       string       `json:"room"`
	Player     string       `json:"player"`
	CreatedAt  time.Time    `json:"created_at"`
	ClosedAt   time.Time    `json:"closed_at"`
	Transcript []Entry      `json:"transcript"`
	State      engine.State `json:"state"`
}
