package conversation

import "log"

// Notifier receives user-facing status and error reports from the
// conversation client. It is injected so callers decide how notifications
// surface.
type Notifier interface {
	Success(text string)
	Warning(text string)
	Error(text string)
}

// LogNotifier writes notifications to the standard logger.
type LogNotifier struct{}

func (LogNotifier) Success(text string) { log.Printf("notice: %s", text) }
func (LogNotifier) Warning(text string) { log.Printf("warning: %s", text) }
func (LogNotifier) Error(text string)   { log.Printf("error: %s", text) }

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) Success(string) {}
func (NopNotifier) Warning(string) {}
func (NopNotifier) Error(string)   {}
