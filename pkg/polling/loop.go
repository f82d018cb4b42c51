package polling

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/igorvan/rfid-tap/pkg/database"
	"github.com/igorvan/rfid-tap/pkg/processing"
	"github.com/igorvan/rfid-tap/pkg/rfid"
)

// Status - what a single iteration did
type Status int

const (
	// Idle - no card, or the serial could not be read
	Idle Status = iota
	// Inserted - first scan of the UID
	Inserted
	// Updated - tap_count of a known UID was incremented
	Updated
	// Failed - the scan was dropped, see Result.Err
	Failed
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Inserted:
		return "inserted"
	case Updated:
		return "updated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Processor - records a tap for a UID
type Processor interface {
	Process(ctx context.Context, uid string) (*processing.Outcome, error)
}

// Result - outcome of one iteration
type Result struct {
	Status  Status
	UID     string
	Outcome *processing.Outcome
	Err     error
}

// Loop - polls a device and hands every card to a Processor
type Loop struct {
	device       rfid.Device
	processor    Processor
	out          io.Writer
	log          database.Logger
	idleInterval time.Duration
	cooldown     time.Duration
}

// New - Loop constructor.
// idleInterval is the pause after a poll without a card, cooldown the pause after a handled card.
func New(device rfid.Device, processor Processor, out io.Writer, log database.Logger,
	idleInterval, cooldown time.Duration) (*Loop, error) {
	if device == nil {
		return nil, fmt.Errorf("cannot instantiate a Loop, no device provided")
	}
	if processor == nil {
		return nil, fmt.Errorf("cannot instantiate a Loop, no processor provided")
	}
	if out == nil {
		out = io.Discard
	}
	return &Loop{
		device:       device,
		processor:    processor,
		out:          out,
		log:          database.NewNullSafeLogger(log),
		idleInterval: idleInterval,
		cooldown:     cooldown,
	}, nil
}

// Step - one poll; prints the UID and the resulting message for a card
func (l *Loop) Step(ctx context.Context) Result {
	if !l.device.CardPresent() || !l.device.ReadSerial() {
		return Result{Status: Idle}
	}

	uid := rfid.EncodeUID(l.device.UID())
	fmt.Fprintf(l.out, "UID: %s\n", uid)

	outcome, err := l.processor.Process(ctx, uid)
	if err != nil {
		return Result{Status: Failed, UID: uid, Err: err}
	}
	fmt.Fprintln(l.out, outcome.Message())

	status := Updated
	if outcome.Inserted {
		status = Inserted
	}
	return Result{Status: status, UID: uid, Outcome: outcome}
}

// Run - polls until ctx is cancelled or a finite device runs out of input.
// Failed iterations are logged and the loop moves on to the next card.
func (l *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		res := l.Step(ctx)
		delay := l.cooldown
		switch res.Status {
		case Idle:
			if f, ok := l.device.(rfid.Finite); ok && f.Exhausted() {
				return nil
			}
			delay = l.idleInterval
		case Failed:
			l.log.Error("tap dropped", "uid", res.UID, "error", res.Err)
		default:
			l.log.Info("tap recorded", "uid", res.UID, "status", res.Status.String(), "tap_count", res.Outcome.TapCount)
		}

		if !sleep(ctx, delay) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
