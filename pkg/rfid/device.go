package rfid

// Device - a poll-based card reader.
// A missing card or an unreadable serial is reported through the boolean results, never as an error.
type Device interface {
	// CardPresent - true when a new card entered the field since the last read
	CardPresent() bool
	// ReadSerial - selects the present card and reads its identifier into UID
	ReadSerial() bool
	// UID - identifier bytes of the last card read
	UID() []byte
	Close() error
}
