package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// captureLog 把全局 Log 劫持到内存 buffer
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	buffer := &bytes.Buffer{}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(buffer),
		level,
	)
	prev := Log
	Log = zap.New(core)
	t.Cleanup(func() { Log = prev })
	return buffer
}

func TestLogger_Info_WithSessionID(t *testing.T) {
	buffer := captureLog(t)
	require.NoError(t, SetLevel("info"))

	ctx := WithSession(context.Background(), "1700000000_abcd")
	Info(ctx, "order rejected", zap.String("reason", "bad_side"), zap.Int64("qty", 10))

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &logEntry), "log output must be json")

	assert.Equal(t, "info", logEntry["level"])
	assert.Equal(t, "order rejected", logEntry["msg"])
	assert.Equal(t, "bad_side", logEntry["reason"])
	assert.Equal(t, float64(10), logEntry["qty"])
	assert.Equal(t, "1700000000_abcd", logEntry["session_id"])
}

func TestLogger_Error_NoSessionID(t *testing.T) {
	buffer := captureLog(t)

	Error(context.Background(), "listen failed", zap.String("addr", "127.0.0.1:5000"))

	var logEntry map[string]interface{}
	_ = json.Unmarshal(buffer.Bytes(), &logEntry)

	_, exists := logEntry["session_id"]
	assert.False(t, exists)
	assert.Equal(t, "error", logEntry["level"])
}

func TestLogger_SetLevel(t *testing.T) {
	buffer := captureLog(t)
	t.Cleanup(func() { _ = SetLevel("info") })

	require.NoError(t, SetLevel("warn"))
	Info(context.Background(), "dropped")
	assert.Zero(t, buffer.Len())

	require.NoError(t, SetLevel("debug"))
	Debug(context.Background(), "kept")
	assert.Contains(t, buffer.String(), "kept")
	assert.Equal(t, zapcore.DebugLevel, Level())

	assert.Error(t, SetLevel("loud"))
	assert.Equal(t, zapcore.DebugLevel, Level())
}

func TestLogger_NilContext(t *testing.T) {
	buffer := captureLog(t)
	//nolint:staticcheck
	Warn(nil, "no ctx")
	assert.Contains(t, buffer.String(), "no ctx")
	assert.Equal(t, "", SessionFrom(nil))
}

func TestLogger_Fatal_WritesBeforeExit(t *testing.T) {
	buffer := captureLog(t)
	// 把退出换成 panic，测试进程才能活下来
	Log = Log.WithOptions(zap.WithFatalHook(zapcore.WriteThenPanic))

	ctx := WithSession(context.Background(), "1700000000_abcd")
	assert.Panics(t, func() {
		Fatal(ctx, "save orders failed", zap.String("file", "orders.bin"))
	})

	var logEntry map[string]interface{}
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &logEntry))
	assert.Equal(t, "fatal", logEntry["level"])
	assert.Equal(t, "save orders failed", logEntry["msg"])
	assert.Equal(t, "orders.bin", logEntry["file"])
	assert.Equal(t, "1700000000_abcd", logEntry["session_id"])
}
