package cli

import (
	"io"

	"github.com/sirupsen/logrus"
)

// NewLogger returns the CLI logger. verbose counts -v flags: one enables
// debug output, two or more enable trace. quiet limits output to errors.
func NewLogger(w io.Writer, verbose int, quiet bool) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	switch {
	case quiet:
		l.SetLevel(logrus.ErrorLevel)
	case verbose >= 2:
		l.SetLevel(logrus.TraceLevel)
	case verbose == 1:
		l.SetLevel(logrus.DebugLevel)
	default:
		l.SetLevel(logrus.InfoLevel)
	}
	return logrus.NewEntry(l)
}
