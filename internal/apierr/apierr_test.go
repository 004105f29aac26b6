package apierr

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sublarr/subctl/internal/log"
)

func TestRespondFillsRequestIDAndStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/wanted", nil)
	req = req.WithContext(log.ContextWithRequestID(req.Context(), "req-123"))
	w := httptest.NewRecorder()

	Respond(w, req, ErrProviderNotFound)

	require.Equal(t, http.StatusNotFound, w.Code)

	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "PROVIDER_NOT_FOUND", body.Code)
	require.Equal(t, "req-123", body.RequestID)
	require.NotEmpty(t, body.Timestamp)
}

func TestStatusDefaultsToInternalServerError(t *testing.T) {
	require.Equal(t, http.StatusInternalServerError, Status(&APIError{Code: "X"}))
}
