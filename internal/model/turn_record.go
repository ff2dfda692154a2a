package model

import "time"

// TurnEvent is the message published after a completed chat turn. The turn
// worker consumes it and writes a TurnRecord.
type TurnEvent struct {
	SessionID string   `json:"session_id"`
	Query     string   `json:"query"`
	Answer    string   `json:"answer"`
	Sources   []Source `json:"sources"`
	Casual    bool     `json:"casual"`
}

// TurnRecord is the durable audit copy of a completed chat turn, persisted
// asynchronously by the turn worker.
type TurnRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"size:64;not null;index" json:"session_id"`
	Query     string    `gorm:"type:text;not null" json:"query"`
	Answer    string    `gorm:"type:text;not null" json:"answer"`
	Sources   string    `gorm:"type:text" json:"sources"` // JSON-encoded []Source
	Casual    bool      `gorm:"not null" json:"casual"`
	CreatedAt time.Time `json:"created_at"`
}
