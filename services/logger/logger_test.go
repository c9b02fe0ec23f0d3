package logsvc

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/grupka/grupka/core"
	"github.com/grupka/grupka/core/user"
)

func TestRollbarLogger(t *testing.T) {
	zc, logs := observer.New(zap.DebugLevel)
	conf := core.NewTestConfig()
	logger := NewRollbarLogger(zap.New(zc), conf)
	logger.Enable(false)

	usr := user.User{ID: "u-1", DisplayName: "Ann", Email: "ann@example.com"}
	other := user.User{ID: "u-2"}
	err := errors.New("boom")

	logger.Error("saving child", usr, other, err, map[string]interface{}{"group_id": "g-1"}, 42)
	logger.Info("started")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	first := entries[0]
	assert.Equal(t, zap.ErrorLevel, first.Level)
	assert.Equal(t, "saving child", first.Message)
	ctx := first.ContextMap()
	assert.Equal(t, "u-1", ctx["user_id"])
	assert.Equal(t, "boom", ctx["error"])
	assert.Equal(t, "g-1", ctx["group_id"])
	assert.EqualValues(t, 42, ctx["arg4"])

	assert.Equal(t, zap.InfoLevel, entries[1].Level)
	assert.Empty(t, entries[1].Context)
}

func TestZapLogger(t *testing.T) {
	zc, logs := observer.New(zap.InfoLevel)
	logger := &zapLogger{&RollbarLogger{zl: zap.New(zc)}}

	logger.Debug("hidden")
	logger.Warn("slow query", map[string]interface{}{"ms": 1200})

	entries := logs.FilterMessage("slow query").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 1200, entries[0].ContextMap()["ms"])
	assert.Zero(t, logs.FilterMessage("hidden").Len())
}
