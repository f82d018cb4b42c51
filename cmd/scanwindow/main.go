package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"

	"github.com/igorvan/rfid-tap/pkg/config"
	"github.com/igorvan/rfid-tap/pkg/database"
	"github.com/igorvan/rfid-tap/pkg/logging"
	"github.com/igorvan/rfid-tap/pkg/window"
)

const (
	recentTaps      = 20
	refreshInterval = time.Second
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

	a := app.NewWithID("com.github.igorvan.rfidtap")
	w := a.NewWindow("RFID Scan")
	w.Resize(fyne.NewSize(480, 360))

	var source window.Source
	storage, err := database.Open(cfg.Database, logger)
	if err != nil {
		logger.Error("scan window started without database", "error", err)
	} else {
		defer storage.Close()
		source = storage
	}

	view := window.NewScanView(source, recentTaps)
	if source == nil {
		view.SetStatus("Database unavailable")
	}
	w.SetContent(view.Content())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if source != nil {
		go view.Watch(ctx, refreshInterval)
	}

	w.ShowAndRun()
}
