// Package notification provides desktop notification utilities.
package notification

import (
	"github.com/gen2brain/beeep"

	"github.com/xvierd/flow-reader/internal/config"
	"github.com/xvierd/flow-reader/internal/ports"
)

// Notifier handles desktop notifications.
type Notifier struct {
	cfg   *config.NotificationConfig
	show  func(title, message string) error
	alert func(title, message string) error
}

var _ ports.Notifier = (*Notifier)(nil)

// New creates a new notifier with the given configuration.
func New(cfg *config.NotificationConfig) *Notifier {
	return &Notifier{
		cfg:   cfg,
		show:  func(title, message string) error { return beeep.Notify(title, message, "") },
		alert: func(title, message string) error { return beeep.Alert(title, message, "") },
	}
}

// Notify displays a desktop notification if enabled. With sound enabled
// the notification is raised as an alert.
func (n *Notifier) Notify(title, message string) error {
	if !n.IsEnabled() {
		return nil
	}
	if n.cfg.Sound {
		return n.alert(title, message)
	}
	return n.show(title, message)
}

// IsEnabled returns true if notifications are enabled.
func (n *Notifier) IsEnabled() bool {
	return n.cfg != nil && n.cfg.Enabled
}
