// Package logrus adapts a logrus entry to querysync.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/querysync"
)

var _ querysync.Logger = Logger{}

// Logger writes engine events through E. A nil E uses logrus' standard logger.
type Logger struct{ E *logrus.Entry }

func New(l *logrus.Logger, component string) Logger {
	return Logger{E: l.WithField("component", component)}
}

func (l Logger) Debug(msg string, f querysync.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f querysync.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f querysync.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f querysync.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f querysync.Fields) *logrus.Entry {
	e := l.E
	if e == nil {
		e = logrus.NewEntry(logrus.StandardLogger())
	}
	if len(f) == 0 {
		return e
	}
	return e.WithFields(logrus.Fields(f))
}
