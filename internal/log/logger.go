// Package log wraps logrus with the handful of helpers the pipeline
// stages use repeatedly: operation-scoped logging and progress lines.
package log

import (
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

// Logger wraps a *logrus.Logger with a couple of domain-shaped helpers.
type Logger struct {
	*logrus.Logger
}

// New creates a Logger writing to w at level. A nil w writes to stderr.
func New(w io.Writer, level logrus.Level) *Logger {
	l := logrus.New()
	if w != nil {
		l.SetOutput(w)
	} else {
		l.SetOutput(os.Stderr)
	}
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return &Logger{Logger: l}
}

// LogOperation logs the start/end of a named stage at Info level.
func (l *Logger) LogOperation(name string, fn func() error) error {
	l.Infof("starting %s", name)
	err := fn()
	if err != nil {
		l.WithError(err).Errorf("%s failed", name)
		return err
	}
	l.Infof("finished %s", name)
	return nil
}

// LogProgress reports processed/total with a human-readable byte count.
func (l *Logger) LogProgress(stage string, processed, total int, bytesDone int64) {
	l.WithFields(logrus.Fields{
		"stage":     stage,
		"processed": processed,
		"total":     total,
		"bytes":     humanize.Bytes(uint64(bytesDone)),
	}).Info("progress")
}
