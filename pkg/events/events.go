package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TapEvent - published after a tap was committed
type TapEvent struct {
	ID        string    `json:"id"`
	UID       string    `json:"uid"`
	TapCount  int64     `json:"tap_count"`
	Username  string    `json:"username,omitempty"`
	Inserted  bool      `json:"inserted"`
	ScannedAt time.Time `json:"scanned_at"`
}

// NewTapEvent - TapEvent constructor, assigns a fresh ID
func NewTapEvent(uid string, tapCount int64, username string, inserted bool, scannedAt time.Time) *TapEvent {
	return &TapEvent{
		ID:        uuid.NewString(),
		UID:       uid,
		TapCount:  tapCount,
		Username:  username,
		Inserted:  inserted,
		ScannedAt: scannedAt,
	}
}

// Publisher - tap event sink
type Publisher interface {
	Publish(ctx context.Context, event *TapEvent) error
	Close() error
}

// Nop - discards events
type Nop struct{}

// Publish - does nothing
func (Nop) Publish(context.Context, *TapEvent) error { return nil }

// Close - does nothing
func (Nop) Close() error { return nil }
