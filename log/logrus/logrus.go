// Package logrus adapts a logrus entry to redcache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	"github.com/unkn0wn-root/redcache"
)

type Logger struct{ E *logrus.Entry }

var _ redcache.Logger = Logger{}

// New wraps l; a nil l uses the logrus standard logger.
func New(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return Logger{E: logrus.NewEntry(l).WithField("component", "redcache")}
}

func (l Logger) Debug(msg string, f redcache.Fields) { l.with(f).Debug(msg) }
func (l Logger) Info(msg string, f redcache.Fields)  { l.with(f).Info(msg) }
func (l Logger) Warn(msg string, f redcache.Fields)  { l.with(f).Warn(msg) }
func (l Logger) Error(msg string, f redcache.Fields) { l.with(f).Error(msg) }

func (l Logger) with(f redcache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	return l.E.WithFields(logrus.Fields(f))
}
