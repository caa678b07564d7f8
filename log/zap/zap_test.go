package zap_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unkn0wn-root/querysync"
	qzap "github.com/unkn0wn-root/querysync/log/zap"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFieldsAreOrderedAndTyped(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	lg := qzap.Logger{L: zap.New(core)}

	lg.Error("fetch failed", querysync.Fields{"key": "k", "err": errors.New("boom"), "attempts": 3})

	require.Equal(t, 1, logs.Len())
	e := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, e.Level)
	require.Len(t, e.Context, 3)
	assert.Equal(t, "attempts", e.Context[0].Key)
	assert.Equal(t, "err", e.Context[1].Key)
	assert.Equal(t, zapcore.ErrorType, e.Context[1].Type)
	assert.Equal(t, "key", e.Context[2].Key)
}

func TestLevelFiltering(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	lg := qzap.Logger{L: zap.New(core)}

	lg.Debug("hidden", nil)
	lg.Info("shown", nil)
	lg.Warn("shown", nil)

	assert.Equal(t, 2, logs.Len())
	assert.NotPanics(t, func() { qzap.Logger{}.Info("nop", nil) })
}
