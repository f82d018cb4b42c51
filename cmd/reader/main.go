package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/igorvan/rfid-tap/pkg/config"
	"github.com/igorvan/rfid-tap/pkg/database"
	"github.com/igorvan/rfid-tap/pkg/events"
	"github.com/igorvan/rfid-tap/pkg/logging"
	"github.com/igorvan/rfid-tap/pkg/polling"
	"github.com/igorvan/rfid-tap/pkg/processing"
	"github.com/igorvan/rfid-tap/pkg/rfid"
)

func main() {
	cfg, err := config.Load(config.EnvFile())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	logger := logging.New(cfg.LogFormat, os.Stderr)
	if err := run(cfg, logger); err != nil {
		logger.Error("reader stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	device, err := openDevice(cfg.Device)
	if err != nil {
		return fmt.Errorf("cannot initialize reader: %w", err)
	}
	defer device.Close()

	storage, err := database.Open(cfg.Database, logger)
	if err != nil {
		return err
	}
	defer storage.Close()

	publisher, err := events.Open(ctx, cfg.Events)
	if err != nil {
		return err
	}
	defer publisher.Close()

	prcssr, err := processing.New(storage, publisher, logger)
	if err != nil {
		return err
	}

	loop, err := polling.New(device, prcssr, os.Stdout, logger, cfg.Polling.IdleInterval, cfg.Polling.Cooldown)
	if err != nil {
		return err
	}

	logger.Info("reader started", "device", cfg.Device.Kind, "schema", cfg.Database.Schema, "events", cfg.Events.Driver)
	return loop.Run(ctx)
}

func openDevice(cfg config.Device) (rfid.Device, error) {
	if cfg.Kind == "stdin" {
		return rfid.NewLineDevice(os.Stdin, cfg.ReadTimeout), nil
	}
	dev, err := rfid.OpenMFRC522(cfg.SPIPort, cfg.ResetPin, cfg.IRQPin, cfg.ReadTimeout)
	if err != nil {
		return nil, err
	}
	return dev, nil
}
