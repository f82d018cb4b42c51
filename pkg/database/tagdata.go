package database

import "time"

// TagData - database table data representation
type TagData struct {
	UID          string    `sql:"UID" json:"uid"`
	TapCount     int64     `sql:"tap_count" json:"tap_count"`
	LastScanTime time.Time `sql:"last_scan_time" json:"last_scan_time"`
	Username     string    `sql:"username" json:"username,omitempty"`
}

// Tap - outcome of recording one scan
type Tap struct {
	UID      string
	TapCount int64
	Username string
	// Inserted - the UID was seen for the first time
	Inserted bool
}
