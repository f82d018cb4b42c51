package rfid

import (
	"fmt"
	"io"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/mfrc522"
	"periph.io/x/host/v3"
)

// uidReader - the part of *mfrc522.Dev the adapter relies on
type uidReader interface {
	ReadUID(timeout time.Duration) ([]byte, error)
}

// MFRC522 - Device backed by an MFRC522 reader on SPI
type MFRC522 struct {
	dev     uidReader
	port    io.Closer
	timeout time.Duration
	pending []byte
	uid     []byte
}

// OpenMFRC522 - initializes host drivers, opens the SPI port and resets the reader.
// An empty spiPort selects the first available port; pins are GPIO names such as "GPIO25".
func OpenMFRC522(spiPort, resetPin, irqPin string, timeout time.Duration) (*MFRC522, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("cannot initialize host drivers: %w", err)
	}

	reset := gpioreg.ByName(resetPin)
	if reset == nil {
		return nil, fmt.Errorf("reset pin %q not found", resetPin)
	}
	irq := gpioreg.ByName(irqPin)
	if irq == nil {
		return nil, fmt.Errorf("irq pin %q not found", irqPin)
	}

	port, err := spireg.Open(spiPort)
	if err != nil {
		return nil, fmt.Errorf("cannot open SPI port %q: %w", spiPort, err)
	}

	dev, err := mfrc522.NewSPI(port, reset, irq)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("cannot initialize MFRC522: %w", err)
	}

	return newMFRC522(dev, port, timeout), nil
}

func newMFRC522(dev uidReader, port io.Closer, timeout time.Duration) *MFRC522 {
	return &MFRC522{dev: dev, port: port, timeout: timeout}
}

// CardPresent - waits up to the read timeout for a card to answer.
// The driver selects the card in the same exchange, so the UID is kept for ReadSerial.
func (m *MFRC522) CardPresent() bool {
	uid, err := m.dev.ReadUID(m.timeout)
	if err != nil || len(uid) == 0 {
		m.pending = nil
		return false
	}
	m.pending = uid
	return true
}

// ReadSerial - publishes the UID captured by CardPresent
func (m *MFRC522) ReadSerial() bool {
	if len(m.pending) == 0 {
		return false
	}
	m.uid, m.pending = m.pending, nil
	return true
}

// UID - last UID read
func (m *MFRC522) UID() []byte {
	return m.uid
}

// Close - releases the SPI port
func (m *MFRC522) Close() error {
	if m.port == nil {
		return nil
	}
	return m.port.Close()
}
