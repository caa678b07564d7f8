// Package slog adapts a *slog.Logger to querysync.Logger.
package slog

import (
	"context"
	stdslog "log/slog"
	"maps"
	"slices"

	"github.com/unkn0wn-root/querysync"
)

var _ querysync.Logger = Logger{}

// Logger writes through L, or slog.Default when L is nil.
type Logger struct{ L *stdslog.Logger }

func (s Logger) Debug(msg string, f querysync.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f querysync.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f querysync.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f querysync.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(level stdslog.Level, msg string, f querysync.Fields) {
	l := s.L
	if l == nil {
		l = stdslog.Default()
	}
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.LogAttrs(ctx, level, msg, attrs(f)...)
}

func attrs(f querysync.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}
