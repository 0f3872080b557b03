package logging_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dom/gifbox/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew(t *testing.T) {
	log, err := logging.New("production", "warn")
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zap.InfoLevel))
	assert.True(t, log.Core().Enabled(zap.WarnLevel))

	_, err = logging.New("development", "loud")
	assert.Error(t, err)
}

func TestMiddleware_LogsStatus(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)

	handler := logging.Middleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/rpc", nil))

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "/api/v1/rpc", fields["path"])
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
}
