// Package notify is the presentation seam for user-facing messages. Stores
// return structured results; something implementing Notifier decides how the
// shopper hears about them. Keeping this out of the stores keeps them
// testable without any UI harness.
package notify

import "log"

type Level int

const (
	Info Level = iota
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Notification is one user-facing message, toast-shaped.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier delivers notifications to the shopper.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to the Notifier interface.
type Func func(n Notification)

func (f Func) Notify(n Notification) { f(n) }

// LogNotifier writes notifications to the process log. It is the default
// when no UI is attached.
type LogNotifier struct{}

func (LogNotifier) Notify(n Notification) {
	log.Printf("[Notify] %s: %s - %s", n.Level, n.Title, n.Message)
}
