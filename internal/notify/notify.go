package notify

import (
	"log/slog"

	"github.com/ncruces/zenity"
)

// Alerter shows a blocking message to the person at the machine
type Alerter interface {
	Alert(message string)
}

// DialogAlerter uses a native warning dialog, falling back to the log when no
// dialog can be shown (headless hosts, disabled dialogs).
type DialogAlerter struct {
	Title   string
	Enabled bool
}

func NewDialogAlerter(enabled bool) *DialogAlerter {
	return &DialogAlerter{
		Title:   "Scan Gallery",
		Enabled: enabled,
	}
}

func (d *DialogAlerter) Alert(message string) {
	if !d.Enabled {
		slog.Warn("Alert", "message", message)
		return
	}
	if err := zenity.Warning(message, zenity.Title(d.Title)); err != nil {
		slog.Warn("Alert", "message", message, "dialog_error", err)
	}
}

// LogAlerter only logs alerts
type LogAlerter struct{}

func (LogAlerter) Alert(message string) {
	slog.Warn("Alert", "message", message)
}
