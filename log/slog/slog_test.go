package slog_test

import (
	"bytes"
	"encoding/json"
	stdslog "log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/unkn0wn-root/querysync"
	qslog "github.com/unkn0wn-root/querysync/log/slog"
)

func TestWritesAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := stdslog.NewJSONHandler(&buf, &stdslog.HandlerOptions{Level: stdslog.LevelDebug})
	lg := qslog.Logger{L: stdslog.New(h)}

	lg.Info("published", querysync.Fields{"key": "todos", "subscribers": 2})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "published", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.Equal(t, "todos", rec["key"])
	assert.EqualValues(t, 2, rec["subscribers"])
}

func TestDisabledLevelWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	lg := qslog.Logger{L: stdslog.New(stdslog.NewTextHandler(&buf, nil))}
	lg.Debug("hidden", querysync.Fields{"k": 1})
	assert.Zero(t, buf.Len())
}
