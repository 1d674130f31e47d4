package postgres

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/recipepanel/foodsync/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// nothing listens on port 1, so every attempt is refused immediately
const unreachableDSN = "host=127.0.0.1 port=1 user=foodsync dbname=foodsync sslmode=disable connect_timeout=2"

func recordSleeps(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	sleep = func(d time.Duration) { waits = append(waits, d) }
	t.Cleanup(func() { sleep = time.Sleep })
	return &waits
}

func TestOpen_WaitsBetweenAttempts(t *testing.T) {
	waits := recordSleeps(t)

	_, err := Open(Options{DSN: unreachableDSN, ConnectAttempts: 4, RetryDelay: 2 * time.Second})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 4 attempts")
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}, *waits)
}

func TestOpen_DefaultRetryDelay(t *testing.T) {
	waits := recordSleeps(t)

	_, err := Open(Options{DSN: unreachableDSN, ConnectAttempts: 2})

	require.Error(t, err)
	assert.Equal(t, []time.Duration{defaultRetryDelay}, *waits)
}

func TestOpen_SingleAttemptDoesNotWait(t *testing.T) {
	waits := recordSleeps(t)

	_, err := Open(Options{DSN: unreachableDSN})

	require.Error(t, err)
	assert.Empty(t, *waits)
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, raw := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if raw == "" {
			continue
		}
		var line map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(raw), &line))
		lines = append(lines, line)
	}
	return lines
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("foodsync", "debug", &buf)
	t.Cleanup(func() { logger.InitWithWriter("foodsync", "info", &bytes.Buffer{}) })

	stmt := func() (string, int64) { return `SELECT * FROM "food_products"`, 1 }
	ctx := context.Background()

	t.Run("failed statement is an error", func(t *testing.T) {
		buf.Reset()
		newGormLogger(gormlogger.Warn).Trace(ctx, time.Now(), stmt, errors.New("connection reset"))

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "error", lines[0]["level"])
		assert.Equal(t, "gorm", lines[0]["component"])
		assert.Equal(t, `SELECT * FROM "food_products"`, lines[0]["sql"])
	})

	t.Run("record not found is quiet", func(t *testing.T) {
		buf.Reset()
		newGormLogger(gormlogger.Warn).Trace(ctx, time.Now(), stmt, gorm.ErrRecordNotFound)
		assert.Empty(t, buf.String())
	})

	t.Run("slow statement is a warning", func(t *testing.T) {
		buf.Reset()
		newGormLogger(gormlogger.Warn).Trace(ctx, time.Now().Add(-time.Second), stmt, nil)

		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "warn", lines[0]["level"])
		assert.Equal(t, "slow query", lines[0]["message"])
	})

	t.Run("statements only at info level", func(t *testing.T) {
		buf.Reset()
		newGormLogger(gormlogger.Warn).Trace(ctx, time.Now(), stmt, nil)
		assert.Empty(t, buf.String())

		newGormLogger(gormlogger.Info).Trace(ctx, time.Now(), stmt, nil)
		lines := logLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "debug", lines[0]["level"])
	})

	t.Run("silent logs nothing", func(t *testing.T) {
		buf.Reset()
		l := newGormLogger(gormlogger.Warn).LogMode(gormlogger.Silent)
		l.Trace(ctx, time.Now(), stmt, errors.New("boom"))
		l.Warn(ctx, "ignored %d", 1)
		assert.Empty(t, buf.String())
	})
}
