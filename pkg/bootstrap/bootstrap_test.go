package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosha22008/orders-backend/pkg/config"
	"github.com/gosha22008/orders-backend/pkg/logger"
)

func testService(buf *bytes.Buffer) *Service {
	return &Service{
		Kind:   "worker",
		Config: &config.Config{App: config.AppConfig{Env: "dev"}},
		Logger: logger.New(logger.Options{ServiceName: "worker", Output: buf}),
	}
}

func lastLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry))
	return entry
}

func TestFieldsStampIdentity(t *testing.T) {
	t.Setenv("WORKER_ID", "worker-3")
	var buf bytes.Buffer
	svc := testService(&buf)

	svc.Logger.Info(svc.Fields(context.Background()), "hello")

	entry := lastLine(t, &buf)
	assert.Equal(t, "dev", entry["env"])
	assert.Equal(t, "worker", entry["serviceKind"])
	assert.Equal(t, "worker-3", entry["instance"])
}

func TestExitTreatsCancelAsShutdown(t *testing.T) {
	var buf bytes.Buffer
	svc := testService(&buf)

	svc.Exit(context.Background(), context.Canceled)
	assert.Equal(t, "worker shut down", lastLine(t, &buf)["message"])

	svc.Exit(context.Background(), nil)
	assert.Equal(t, "worker shut down", lastLine(t, &buf)["message"])
}

func TestCloseQuietlyLogsFailure(t *testing.T) {
	var buf bytes.Buffer
	svc := testService(&buf)

	svc.CloseQuietly("redis", func() error { return errors.New("broken pipe") })
	assert.Equal(t, "error closing redis", lastLine(t, &buf)["message"])

	buf.Reset()
	svc.CloseQuietly("redis", func() error { return nil })
	assert.Zero(t, buf.Len())
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	logg := NewLogger("api", config.AppConfig{LogLevel: "error"})
	require.NotNil(t, logg)
}
