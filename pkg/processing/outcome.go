package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/igorvan/rfid-tap/pkg/database"
)

const (
	welcome  = "Hello %s"
	farewell = "Goodbye %s"
	// InsertedMessage - printed for a first scan
	InsertedMessage = "UID inserted into database."
)

// Storage - tag table
type Storage interface {
	Tap(ctx context.Context, uid string) (*database.Tap, error)
}

// Outcome - a committed tap
type Outcome struct {
	UID      string
	TapCount int64
	Username string
	Inserted bool
	// ScannedAt - local time the tap was processed, the stored time comes from the database server
	ScannedAt time.Time
}

// Greeting - alternates on tap_count parity: odd taps are arrivals, even taps departures
func (o *Outcome) Greeting() string {
	if o.TapCount%2 == 0 {
		return fmt.Sprintf(farewell, o.Username)
	}
	return fmt.Sprintf(welcome, o.Username)
}

// Message - console line for the tap
func (o *Outcome) Message() string {
	if o.Inserted {
		return InsertedMessage
	}
	return o.Greeting()
}
