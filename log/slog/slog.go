// Package slog adapts a log/slog logger to redcache.Logger.
package slog

import (
	"context"
	stdslog "log/slog"

	"github.com/unkn0wn-root/redcache"
)

type Logger struct{ L *stdslog.Logger }

var _ redcache.Logger = Logger{}

// New wraps l; nil uses slog.Default().
func New(l *stdslog.Logger) Logger {
	if l == nil {
		l = stdslog.Default()
	}
	return Logger{L: l.With("component", "redcache")}
}

func (s Logger) Debug(msg string, f redcache.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f redcache.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f redcache.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f redcache.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(level stdslog.Level, msg string, f redcache.Fields) {
	ctx := context.Background()
	if !s.L.Enabled(ctx, level) {
		return
	}
	attrs := make([]stdslog.Attr, 0, len(f))
	for k, v := range f {
		attrs = append(attrs, stdslog.Any(k, v))
	}
	s.L.LogAttrs(ctx, level, msg, attrs...)
}
