package zap

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/unkn0wn-root/redcache"
)

func TestZapAdapter(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := New(zap.New(core))

	l.Debug("cache hit", redcache.Fields{"key": "u:1"})
	l.Warn("invalidate failed", redcache.Fields{"key": "u:2", "err": errors.New("down")})

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("entries = %d", len(entries))
	}
	if entries[0].LoggerName != "redcache" || entries[0].ContextMap()["key"] != "u:1" {
		t.Fatalf("first entry = %+v", entries[0])
	}
	if entries[1].Level != zapcore.WarnLevel || entries[1].ContextMap()["err"] != "down" {
		t.Fatalf("second entry = %+v", entries[1].ContextMap())
	}
}

func TestZapAdapterNil(t *testing.T) {
	New(nil).Error("ignored", nil)
}
