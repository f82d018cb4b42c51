package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/igorvan/rfid-tap/pkg/api"
	"github.com/igorvan/rfid-tap/pkg/config"
	"github.com/igorvan/rfid-tap/pkg/database"
	"github.com/igorvan/rfid-tap/pkg/logging"
)

// snapshotter - the part of the storage the validation needs
type snapshotter interface {
	GetAll(ctx context.Context) (map[uint64]*database.TagData, error)
}

func main() {
	cfg, err := config.Load(config.EnvFile())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	logger := logging.New(cfg.LogFormat, os.Stderr)
	if err := cfg.Validate(); err != nil {
		logger.Error("bad configuration", "error", err)
		os.Exit(2)
	}
	storage, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Error("cannot connect to the database", "error", err)
		os.Exit(1)
	}
	defer storage.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:         cfg.Observer.Listen,
		Handler:      api.NewHandler(storage, logger).Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()
	logger.Info("observer running", "listen", server.Addr)

	var previousSet map[uint64]*database.TagData
	// we will check the DB state every interval to validate if there were any bad transitions
	// e.g., if a tap counter went backwards or a row disappeared
	ticker := time.NewTicker(cfg.Observer.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP server shutdown failed", "error", err)
			}
			logger.Info("observer stopped")
			return
		case <-ticker.C:
		}

		logger.Info("Tap data validation iteration has started")
		n, res := doValidate(ctx, storage, logger, previousSet)
		if res != nil {
			previousSet = res
		}
		msg := fmt.Sprintf("Tap data validation iteration has completed: %d incorrect transitions found", n)
		if n == 0 {
			logger.Info(msg)
		} else {
			logger.Error(msg)
		}
	}
}

// do validate - fetches new table data, compares with a previous set and returns errors count and a new set
func doValidate(ctx context.Context, storage snapshotter, logger *slog.Logger,
	previousSet map[uint64]*database.TagData) (int, map[uint64]*database.TagData) {
	res, err := storage.GetAll(ctx)
	if err != nil {
		logger.Error(fmt.Sprintf("cannot get tag data from the DB: %s", err))
		return 0, nil
	}
	if previousSet == nil {
		return 0, res
	}
	var count = 0
	for key, row := range previousSet {
		newRow, ok := res[key]
		if !ok {
			logger.Error(fmt.Sprintf("bad news - tag %s was removed from db", row.UID))
			count++
			continue
		}
		if newRow.TapCount < row.TapCount {
			logger.Error(fmt.Sprintf("bad news - tap count of %s went from %d down to %d",
				row.UID, row.TapCount, newRow.TapCount))
			count++
		}
	}
	return count, res
}
