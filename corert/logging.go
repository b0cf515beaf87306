package corert

import (
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Event is the concrete logiface event type used throughout this module.
// Callers configure a logger with stumpy (the zero-allocation JSON writer
// the rest of this stack is built around) or any other logiface-compatible
// backend and pass it to WithLogger.
type Event = stumpy.Event

// NewJSONLogger returns a logiface.Logger[*Event] that writes newline
// delimited JSON via stumpy. It is a convenience wrapper around
// logiface.New(stumpy.L.WithStumpy(...)); callers needing more control
// should call those directly.
func NewJSONLogger(options ...stumpy.Option) *logiface.Logger[*Event] {
	return logiface.New[*Event](stumpy.L.WithStumpy(options...))
}

// logInfo is a package-internal helper that no-ops cleanly when the
// caller did not configure a logger.
func logInfo(logger *logiface.Logger[*Event], msg string, fields map[string]string) {
	if logger == nil {
		return
	}
	b := logger.Info()
	for k, v := range fields {
		b = b.Str(k, v)
	}
	b.Log(msg)
}

func logError(logger *logiface.Logger[*Event], msg string, err error) {
	if logger == nil {
		return
	}
	logger.Err().Err(err).Log(msg)
}
