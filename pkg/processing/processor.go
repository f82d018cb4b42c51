package processing

import (
	"context"
	"fmt"
	"time"

	"github.com/igorvan/rfid-tap/pkg/database"
	"github.com/igorvan/rfid-tap/pkg/events"
)

// Processor - records taps in a storage and announces them
type Processor struct {
	storage   Storage
	publisher events.Publisher
	log       database.Logger
	now       func() time.Time
}

// New - Processor constructor, a nil publisher disables events
func New(storage Storage, publisher events.Publisher, log database.Logger) (*Processor, error) {
	if storage == nil {
		return nil, fmt.Errorf("cannot instantiate a Processor, no storage provided")
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Processor{
		storage:   storage,
		publisher: publisher,
		log:       database.NewNullSafeLogger(log),
		now:       time.Now,
	}, nil
}

// Process - records one tap of uid
// in case if storage operation fails - returns an error and nothing is published,
// a publishing failure is only logged because the tap is already committed
func (p *Processor) Process(ctx context.Context, uid string) (*Outcome, error) {
	tap, err := p.storage.Tap(ctx, uid)
	if err != nil {
		return nil, err
	}

	res := &Outcome{
		UID:       tap.UID,
		TapCount:  tap.TapCount,
		Username:  tap.Username,
		Inserted:  tap.Inserted,
		ScannedAt: p.now(),
	}

	event := events.NewTapEvent(res.UID, res.TapCount, res.Username, res.Inserted, res.ScannedAt)
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.log.Error("cannot publish tap event", "uid", uid, "error", err)
	}
	return res, nil
}
