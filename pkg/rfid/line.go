package rfid

import (
	"bufio"
	"io"
	"sync"
	"time"
)

// Finite - implemented by devices whose input can run out, such as a file of UIDs
type Finite interface {
	Exhausted() bool
}

// LineDevice - Device reading one hex UID per line.
// Keyboard-wedge readers type the UID followed by Enter, so stdin works as a reader too.
type LineDevice struct {
	lines    chan string
	timeout  time.Duration
	line     string
	uid      []byte
	done     bool
	closer   io.Closer
	stop     chan struct{}
	finished chan struct{}
	once     sync.Once
}

// NewLineDevice - starts reading r in the background; CardPresent waits at most timeout for a line
func NewLineDevice(r io.Reader, timeout time.Duration) *LineDevice {
	d := &LineDevice{
		lines:    make(chan string, 16),
		timeout:  timeout,
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	if c, ok := r.(io.Closer); ok {
		d.closer = c
	}
	go func() {
		defer close(d.finished)
		defer close(d.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			if line == "" {
				continue
			}
			select {
			case d.lines <- line:
			case <-d.stop:
				return
			}
		}
	}()
	return d
}

// CardPresent - true when a line arrived within the timeout
func (d *LineDevice) CardPresent() bool {
	timer := time.NewTimer(d.timeout)
	defer timer.Stop()
	select {
	case line, ok := <-d.lines:
		if !ok {
			d.done = true
			return false
		}
		d.line = line
		return true
	case <-timer.C:
		return false
	}
}

// ReadSerial - decodes the pending line, false when it is not a hex UID
func (d *LineDevice) ReadSerial() bool {
	line := d.line
	d.line = ""
	uid, err := DecodeUID(line)
	if err != nil || len(uid) == 0 {
		return false
	}
	d.uid = uid
	return true
}

// UID - last UID read
func (d *LineDevice) UID() []byte {
	return d.uid
}

// Exhausted - the input reached EOF and every line has been consumed
func (d *LineDevice) Exhausted() bool {
	return d.done
}

// Close - stops the background reader and closes the underlying reader when it is closable
func (d *LineDevice) Close() error {
	d.once.Do(func() { close(d.stop) })
	if d.closer == nil {
		return nil
	}
	return d.closer.Close()
}
