package store

import (
	"github.com/sirupsen/logrus"
)

// Level classifies a Notice.
type Level int

const (
	LevelSuccess Level = iota
	LevelError
)

func (l Level) String() string {
	if l == LevelError {
		return "error"
	}
	return "success"
}

// Notice is a short user-facing message about the outcome of a store
// operation, the kind a UI shows as a toast.
type Notice struct {
	Level   Level
	Message string
}

// Notifier receives notices. Implementations must not call back into the
// store that produced the notice.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// LogNotifier writes notices to a logger: successes at info, errors at warn.
func LogNotifier(log *logrus.Entry) Notifier {
	return NotifierFunc(func(n Notice) {
		if n.Level == LevelError {
			log.Warn(n.Message)
			return
		}
		log.Info(n.Message)
	})
}

var discardNotifier = NotifierFunc(func(Notice) {})
