package observability

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"finitefield.org/storenav/internal/platform/requestctx"
)

func newObservedRouter(t *testing.T) (http.Handler, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(core)

	r := chi.NewRouter()
	r.Use(InjectLoggerMiddleware(logger))
	r.Use(TraceMiddleware("shop-prod"))
	r.Use(RequestLoggerMiddleware)
	r.Use(RecoveryMiddleware(logger))
	r.Get("/sections/{id}", func(w http.ResponseWriter, r *http.Request) {
		requestctx.Logger(r.Context()).Debug("handler reached")
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	})
	return r, logs
}

func TestRequestLoggerRecordsRouteAndStatus(t *testing.T) {
	h, logs := newObservedRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sections/42", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	require.Equal(t, 1, logs.FilterMessage("handler reached").Len())
	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	fields := completed[0].ContextMap()
	require.Equal(t, "/sections/{id}", fields["route"])
	require.Equal(t, int64(http.StatusNoContent), fields["status"])
	require.Equal(t, "GET", fields["method"])
}

func TestRecoveryMiddlewareWritesJSONError(t *testing.T) {
	h, logs := newObservedRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "internal_server_error", body["error"])

	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	require.Equal(t, zapcore.ErrorLevel, completed[0].Level)
}

func TestNewLoggerFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger("not-a-level")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = NewLogger("debug")
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestSanitizeDropsControlCharacters(t *testing.T) {
	require.Equal(t, "/a/b", SanitizeRoute("/a\n/b"))
	require.Equal(t, "/", SanitizeRoute(""))
	require.Equal(t, "GET", SanitizeMethod("GE\x00T"))
	require.Equal(t, "PROPPATCHX", SanitizeMethod("PROPPATCHXY\r\n"))
	require.Equal(t, "/店舗", SanitizeRoute("/店舗\t"))
}

func TestRequestLoggerWithoutTraceHeaderOmitsTraceFields(t *testing.T) {
	h, logs := newObservedRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sections/1", nil))

	completed := logs.FilterMessage("request completed").All()
	require.Len(t, completed, 1)
	fields := completed[0].ContextMap()
	require.NotContains(t, fields, "trace_id")
	require.NotContains(t, fields, "logging.googleapis.com/trace")
	require.Empty(t, rec.Header().Get(CloudTraceHeader))
}
