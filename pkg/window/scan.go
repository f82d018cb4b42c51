package window

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"github.com/igorvan/rfid-tap/pkg/database"
)

const waiting = "Waiting for RFID card..."

// Source - recent taps, newest first
type Source interface {
	Recent(ctx context.Context, limit int) ([]*database.TagData, error)
}

// ScanView - content of the scan window: last tap on top, recent taps below
type ScanView struct {
	source Source
	limit  int

	mtx  sync.Mutex
	tags []*database.TagData

	status *widget.Label
	list   *widget.List
}

// NewScanView - source may be nil when the database is unreachable, the view then only shows its status
func NewScanView(source Source, limit int) *ScanView {
	v := &ScanView{source: source, limit: limit}
	v.status = widget.NewLabel(waiting)
	v.status.Alignment = fyne.TextAlignCenter
	v.list = widget.NewList(v.length, func() fyne.CanvasObject {
		return widget.NewLabel("")
	}, v.updateItem)
	return v
}

// Content - the window body
func (v *ScanView) Content() fyne.CanvasObject {
	header := container.NewVBox(
		widget.NewLabelWithStyle("RFID Scanner", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		v.status,
	)
	return container.NewBorder(header, nil, nil, nil, v.list)
}

// Status - current status line
func (v *ScanView) Status() string {
	return v.status.Text
}

// SetStatus - replaces the status line
func (v *ScanView) SetStatus(text string) {
	v.status.SetText(text)
}

// Refresh - reloads recent taps from the source
func (v *ScanView) Refresh(ctx context.Context) error {
	if v.source == nil {
		return fmt.Errorf("no tap source")
	}
	tags, err := v.source.Recent(ctx, v.limit)
	if err != nil {
		v.SetStatus("Database error: " + err.Error())
		return err
	}

	v.mtx.Lock()
	v.tags = tags
	v.mtx.Unlock()

	if len(tags) == 0 {
		v.SetStatus(waiting)
	} else {
		v.SetStatus("Last scan: " + describe(tags[0]))
	}
	v.list.Refresh()
	return nil
}

// Watch - refreshes every interval until ctx is done
func (v *ScanView) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		_ = v.Refresh(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (v *ScanView) length() int {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	return len(v.tags)
}

func (v *ScanView) updateItem(id widget.ListItemID, item fyne.CanvasObject) {
	v.mtx.Lock()
	defer v.mtx.Unlock()
	if id < 0 || id >= len(v.tags) {
		return
	}
	item.(*widget.Label).SetText(describe(v.tags[id]))
}

func describe(tag *database.TagData) string {
	name := tag.Username
	if name == "" {
		name = "unassigned"
	}
	return fmt.Sprintf("%s  %s  %d taps  %s", tag.UID, name, tag.TapCount, tag.LastScanTime.Format("15:04:05"))
}
