package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

const envPrefix = "RFID_"

// ErrInvalid - returned by Validate for unusable configuration
var ErrInvalid = errors.New("invalid configuration")

// Database - MySQL connection parameters
type Database struct {
	Host     string
	Port     int
	User     string
	Password string
	Schema   string
	Timeout  time.Duration
}

// Device - RFID reader settings
type Device struct {
	// Kind - "mfrc522" for the SPI reader, "stdin" for a keyboard-wedge reader or manual input
	Kind        string
	SPIPort     string
	ResetPin    string
	IRQPin      string
	ReadTimeout time.Duration
}

// Polling - loop scheduling policy
type Polling struct {
	IdleInterval time.Duration
	Cooldown     time.Duration
}

// Events - tap event fan-out
type Events struct {
	// Driver - "none", "pubsub" or "nats"
	Driver    string
	ProjectID string
	TopicID   string
	NatsURL   string
	NatsToken string
	Subject   string
}

// Observer - table validation and read-only HTTP view
type Observer struct {
	Interval time.Duration
	Listen   string
}

// Config - everything the binaries need, built once at startup
type Config struct {
	Database  Database
	Device    Device
	Polling   Polling
	Events    Events
	Observer  Observer
	LogFormat string
}

// Default - compiled-in demo settings
func Default() *Config {
	return &Config{
		Database: Database{
			Host:     "127.0.0.1",
			Port:     3307,
			User:     "root",
			Password: "root",
			Schema:   "rfid_database",
			Timeout:  5 * time.Second,
		},
		Device: Device{
			Kind:        "mfrc522",
			SPIPort:     "",
			ResetPin:    "GPIO25",
			IRQPin:      "GPIO24",
			ReadTimeout: 100 * time.Millisecond,
		},
		Polling: Polling{
			IdleInterval: 50 * time.Millisecond,
			Cooldown:     time.Second,
		},
		Events: Events{
			Driver:  "none",
			TopicID: "rfid-taps",
			NatsURL: "nats://localhost:4222",
			Subject: "rfid.taps",
		},
		Observer: Observer{
			Interval: time.Second,
			Listen:   ":8080",
		},
		LogFormat: "text",
	}
}

// EnvFile - path of the optional .env file, RFID_ENV_FILE or ".env"
func EnvFile() string {
	if path := os.Getenv(envPrefix + "ENV_FILE"); path != "" {
		return path
	}
	return ".env"
}

// Load - defaults, overridden by an optional .env file and RFID_* environment variables
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("cannot load %s: %w", envFile, err)
		}
	}

	cfg := Default()
	e := &envReader{}

	e.str("DB_HOST", &cfg.Database.Host)
	e.int("DB_PORT", &cfg.Database.Port)
	e.str("DB_USER", &cfg.Database.User)
	e.str("DB_PASSWORD", &cfg.Database.Password)
	e.str("DB_SCHEMA", &cfg.Database.Schema)
	e.duration("DB_TIMEOUT", &cfg.Database.Timeout)

	e.str("DEVICE", &cfg.Device.Kind)
	e.str("SPI_PORT", &cfg.Device.SPIPort)
	e.str("RESET_PIN", &cfg.Device.ResetPin)
	e.str("IRQ_PIN", &cfg.Device.IRQPin)
	e.duration("READ_TIMEOUT", &cfg.Device.ReadTimeout)

	e.duration("IDLE_INTERVAL", &cfg.Polling.IdleInterval)
	e.duration("COOLDOWN", &cfg.Polling.Cooldown)

	e.str("EVENTS", &cfg.Events.Driver)
	e.str("PUBSUB_PROJECT", &cfg.Events.ProjectID)
	e.str("PUBSUB_TOPIC", &cfg.Events.TopicID)
	e.str("NATS_URL", &cfg.Events.NatsURL)
	e.str("NATS_TOKEN", &cfg.Events.NatsToken)
	e.str("NATS_SUBJECT", &cfg.Events.Subject)

	e.duration("OBSERVER_INTERVAL", &cfg.Observer.Interval)
	e.str("OBSERVER_LISTEN", &cfg.Observer.Listen)

	e.str("LOG_FORMAT", &cfg.LogFormat)

	if e.err != nil {
		return nil, e.err
	}
	return cfg, nil
}

// BindFlags - registers command line overrides for the values already loaded
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Database.Host, "db-host", c.Database.Host, "MySQL host")
	fs.IntVar(&c.Database.Port, "db-port", c.Database.Port, "MySQL port")
	fs.StringVar(&c.Database.User, "db-user", c.Database.User, "MySQL user")
	fs.StringVar(&c.Database.Password, "db-password", c.Database.Password, "MySQL password")
	fs.StringVar(&c.Database.Schema, "db-schema", c.Database.Schema, "MySQL schema name")

	fs.StringVar(&c.Device.Kind, "device", c.Device.Kind, "reader device: mfrc522 or stdin")
	fs.StringVar(&c.Device.SPIPort, "spi-port", c.Device.SPIPort, "SPI port name, empty for the first one")
	fs.StringVar(&c.Device.ResetPin, "reset-pin", c.Device.ResetPin, "MFRC522 reset GPIO")
	fs.StringVar(&c.Device.IRQPin, "irq-pin", c.Device.IRQPin, "MFRC522 IRQ GPIO")

	fs.DurationVar(&c.Polling.IdleInterval, "idle-interval", c.Polling.IdleInterval, "delay between polls without a card")
	fs.DurationVar(&c.Polling.Cooldown, "cooldown", c.Polling.Cooldown, "delay after a card was handled")

	fs.StringVar(&c.Events.Driver, "events", c.Events.Driver, "tap event publisher: none, pubsub or nats")
	fs.StringVar(&c.Events.ProjectID, "project", c.Events.ProjectID, "GCP Project ID")
	fs.StringVar(&c.Events.TopicID, "topic", c.Events.TopicID, "GCP PubSub Topic ID")
	fs.StringVar(&c.Events.NatsURL, "nats-url", c.Events.NatsURL, "NATS server URL")
	fs.StringVar(&c.Events.Subject, "nats-subject", c.Events.Subject, "NATS subject")

	fs.DurationVar(&c.Observer.Interval, "interval", c.Observer.Interval, "observer validation interval")
	fs.StringVar(&c.Observer.Listen, "listen", c.Observer.Listen, "observer HTTP listen address")

	fs.StringVar(&c.LogFormat, "log-format", c.LogFormat, "log format: text or json")
}

// Validate - checks the values that would otherwise fail late
func (c *Config) Validate() error {
	switch {
	case c.Database.Host == "":
		return fmt.Errorf("%w: empty database host", ErrInvalid)
	case c.Database.Port <= 0 || c.Database.Port > 65535:
		return fmt.Errorf("%w: database port %d out of range", ErrInvalid, c.Database.Port)
	case c.Database.Schema == "":
		return fmt.Errorf("%w: empty database schema", ErrInvalid)
	case c.Polling.IdleInterval < 0 || c.Polling.Cooldown < 0:
		return fmt.Errorf("%w: negative polling interval", ErrInvalid)
	case c.Device.ReadTimeout <= 0:
		return fmt.Errorf("%w: device read timeout must be positive, got %s", ErrInvalid, c.Device.ReadTimeout)
	case c.Observer.Interval <= 0:
		return fmt.Errorf("%w: observer interval must be positive, got %s", ErrInvalid, c.Observer.Interval)
	}

	switch c.Device.Kind {
	case "mfrc522", "stdin":
	default:
		return fmt.Errorf("%w: unknown device %q", ErrInvalid, c.Device.Kind)
	}

	switch c.Events.Driver {
	case "none":
	case "pubsub":
		if c.Events.ProjectID == "" || c.Events.TopicID == "" {
			return fmt.Errorf("%w: pubsub needs a project and a topic", ErrInvalid)
		}
	case "nats":
		if c.Events.NatsURL == "" || c.Events.Subject == "" {
			return fmt.Errorf("%w: nats needs a URL and a subject", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown events driver %q", ErrInvalid, c.Events.Driver)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalid, c.LogFormat)
	}
	return nil
}

// DSN - go-sql-driver connection string
func (d Database) DSN() string {
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
	cfg.DBName = d.Schema
	cfg.ParseTime = true
	cfg.Timeout = d.Timeout
	return cfg.FormatDSN()
}

// envReader - collects the first parse error so Load reads like a list
type envReader struct {
	err error
}

func (e *envReader) lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.lookup(key); ok {
		*dst = v
	}
}

func (e *envReader) int(key string, dst *int) {
	v, ok := e.lookup(key)
	if !ok || e.err != nil {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.err = fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalid, envPrefix, key, v)
		return
	}
	*dst = n
}

func (e *envReader) duration(key string, dst *time.Duration) {
	v, ok := e.lookup(key)
	if !ok || e.err != nil {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.err = fmt.Errorf("%w: %s%s=%q is not a duration", ErrInvalid, envPrefix, key, v)
		return
	}
	*dst = d
}
