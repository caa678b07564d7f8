// Package zap adapts a *zap.Logger to querysync.Logger.
package zap

import (
	"maps"
	"slices"

	"github.com/unkn0wn-root/querysync"
	"go.uber.org/zap"
)

var _ querysync.Logger = Logger{}

type Logger struct{ L *zap.Logger }

func (z Logger) Debug(msg string, f querysync.Fields) { z.logger().Debug(msg, fields(f)...) }
func (z Logger) Info(msg string, f querysync.Fields)  { z.logger().Info(msg, fields(f)...) }
func (z Logger) Warn(msg string, f querysync.Fields)  { z.logger().Warn(msg, fields(f)...) }
func (z Logger) Error(msg string, f querysync.Fields) { z.logger().Error(msg, fields(f)...) }

func (z Logger) logger() *zap.Logger {
	if z.L == nil {
		return zap.NewNop()
	}
	return z.L
}

// fields converts f in key order so output is stable.
func fields(f querysync.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		switch v := f[k].(type) {
		case error:
			out = append(out, zap.NamedError(k, v))
		default:
			out = append(out, zap.Any(k, v))
		}
	}
	return out
}
