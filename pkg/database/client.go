package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spaolacci/murmur3"

	"github.com/igorvan/rfid-tap/pkg/config"
)

const (
	pingTimeout = 5 * time.Second

	lookupQuery = `SELECT UID, tap_count, username FROM users WHERE UID = ? FOR UPDATE;`
	updateQuery = `UPDATE users SET tap_count = ?, last_scan_time = NOW() WHERE UID = ?;`
	insertQuery = `INSERT INTO users (UID, tap_count, last_scan_time) VALUES (?, 1, NOW());`

	selectColumns = `SELECT UID, tap_count, last_scan_time, username FROM users`
)

// ErrNotFound - no row for the requested UID
var ErrNotFound = errors.New("tag not found")

// Client - DB client wrapper
type Client struct {
	db  *sql.DB
	log Logger
}

// New - Client constructor
func New(db *sql.DB, log Logger) (*Client, error) {
	if db == nil {
		return nil, fmt.Errorf("no database handle provided")
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	err := db.PingContext(ctx)
	if err != nil {
		return nil, err
	}

	return &Client{db, &NullSafeLogger{log}}, nil
}

// Open - connection factory: one MySQL connection held for the client's lifetime
func Open(cfg config.Database, log Logger) (*Client, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	client, err := New(db, log)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cannot connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Schema, err)
	}
	return client, nil
}

// Close - releases the connection
func (c *Client) Close() error {
	return c.db.Close()
}

// Tap - records one scan of uid.
// A known UID gets tap_count+1 and a fresh last_scan_time, an unknown one is inserted with tap_count 1.
// The lookup and the write share a transaction, so a failed statement leaves the row untouched.
func (c *Client) Tap(ctx context.Context, uid string) (res *Tap, err error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			c.log.Error("cannot rollback tap transaction", "uid", uid, "error", rbErr)
		}
	}()

	var (
		tapCount sql.NullInt64
		username sql.NullString
		stored   string
	)
	err = tx.QueryRowContext(ctx, lookupQuery, uid).Scan(&stored, &tapCount, &username)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err = tx.ExecContext(ctx, insertQuery, uid); err != nil {
			return nil, fmt.Errorf("cannot insert %s: %w", uid, err)
		}
		res = &Tap{UID: uid, TapCount: 1, Inserted: true}
	case err != nil:
		return nil, fmt.Errorf("cannot look up %s: %w", uid, err)
	default:
		res = &Tap{UID: uid, TapCount: tapCount.Int64 + 1, Username: username.String}
		if _, err = tx.ExecContext(ctx, updateQuery, res.TapCount, uid); err != nil {
			return nil, fmt.Errorf("cannot update %s: %w", uid, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("cannot commit tap of %s: %w", uid, err)
	}
	return res, nil
}

// Get - a single row by UID, ErrNotFound when the tag was never scanned
func (c *Client) Get(ctx context.Context, uid string) (*TagData, error) {
	tag, err := scanTag(c.db.QueryRowContext(ctx, selectColumns+` WHERE UID = ?;`, uid))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return tag, err
}

// Recent - the most recently scanned rows first, nothing for a non-positive limit
func (c *Client) Recent(ctx context.Context, limit int) ([]*TagData, error) {
	if limit <= 0 {
		return []*TagData{}, nil
	}
	rows, err := c.db.QueryContext(ctx, selectColumns+` ORDER BY last_scan_time DESC LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make([]*TagData, 0, limit)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, tag)
	}
	return res, rows.Err()
}

// GetAll - the whole table keyed by Hash of the UID
func (c *Client) GetAll(ctx context.Context) (map[uint64]*TagData, error) {
	rows, err := c.db.QueryContext(ctx, selectColumns+`;`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	res := make(map[uint64]*TagData)
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		res[Hash(tag.UID)] = tag
	}
	return res, rows.Err()
}

// Hash - stable key of a UID
func Hash(uid string) uint64 {
	return murmur3.Sum64([]byte(uid))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTag(row rowScanner) (*TagData, error) {
	var (
		tag      TagData
		tapCount sql.NullInt64
		lastScan sql.NullTime
		username sql.NullString
	)
	if err := row.Scan(&tag.UID, &tapCount, &lastScan, &username); err != nil {
		return nil, err
	}
	tag.TapCount = tapCount.Int64
	tag.LastScanTime = lastScan.Time
	tag.Username = username.String
	return &tag, nil
}
