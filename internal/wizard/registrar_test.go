package wizard

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"casework/internal/config"
	"casework/internal/db"
	"casework/internal/engine"
	"casework/internal/migrate"
)

func newEngineRegistrar(t *testing.T, logger *zap.Logger) engine.Engine {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err, "open db")
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn), "migrate")
	eng := engine.New(conn, db.SQLite, config.Default())
	eng.Now = func() time.Time { return time.Date(2024, 12, 3, 9, 0, 0, 0, time.UTC) }
	eng.Logger = logger
	return eng
}

func TestSubmitDuplicateCodeKeepsFinalStepAndLogsOnce(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	eng := newEngineRegistrar(t, logger)

	opts := testOptions()
	opts.Logger = logger
	opts.FailureMessage = "Falhou."

	first := New(opts)
	fillRequired(t, first)
	toFinal(first)
	res := first.Submit(context.Background(), eng)
	require.True(t, res.Success, res.Error)

	// Same seed and clock produce the same code.
	opts.Rand = rand.New(rand.NewPCG(7, 11))
	second := New(opts)
	fillRequired(t, second)
	toFinal(second)
	res = second.Submit(context.Background(), eng)

	assert.Equal(t, Result{Error: "Falhou."}, res)
	assert.Equal(t, StepFinal, second.Step())
	failures := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, failures, 1)
	assert.Equal(t, "family insertion failed", failures[0].Message)
}
