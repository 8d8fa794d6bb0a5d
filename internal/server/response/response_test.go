package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/tasklink/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	resp := decode(t, w)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"status": "ok"}, resp.Data)
}

func TestEnvelopeAlwaysHasBothKeys(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, nil)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.Contains(t, raw, "data")
	assert.Contains(t, raw, "error")
}

func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errors.NewNotFoundError("pair", "p1"), http.StatusNotFound, "NOT_FOUND"},
		{"wrapped not found", fmt.Errorf("loading: %w", errors.NewNotFoundError("pair", "p1")), http.StatusNotFound, "NOT_FOUND"},
		{"validation", errors.NewValidationError("source_id", "", "cannot be empty"), http.StatusBadRequest, "BAD_REQUEST"},
		{"parse", errors.WrapParse("json", "body", fmt.Errorf("unexpected EOF")), http.StatusBadRequest, "BAD_REQUEST"},
		{"already linked", errors.NewAlreadyLinkedError("a", "r1", "p9"), http.StatusConflict, "CONFLICT"},
		{"remote failure", errors.NewAPIError("tracker", 503, "unavailable"), http.StatusBadGateway, "UPSTREAM_ERROR"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromType(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Nil(t, resp.Data)
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	InternalError(w, fmt.Errorf("database password is hunter2"))
	assert.NotContains(t, w.Body.String(), "hunter2")
}

func TestNoContent(t *testing.T) {
	w := httptest.NewRecorder()
	NoContent(w)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}
