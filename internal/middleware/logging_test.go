package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerTagsRequestsWithID(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	Logger(log, next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	requestID := rec.Header().Get("X-Request-ID")
	require.NotEmpty(t, requestID, "every response carries a request id")

	// The log line is tagged with the same id and the recorded status.
	assert.Contains(t, buf.String(), "request_id="+requestID)
	assert.Contains(t, buf.String(), "status=418")
}
