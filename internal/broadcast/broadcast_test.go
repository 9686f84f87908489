package broadcast

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSendHandlerErrors(t *testing.T) {
	// GET is rejected before anything else
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/send", nil)
	sendHandler(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)

	// not configured
	broadcaster = nil
	w = httptest.NewRecorder()
	r = httptest.NewRequest("POST", "/api/send", nil)
	sendHandler(w, r)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestBoostHandlerErrors(t *testing.T) {
	broadcaster = nil
	w := httptest.NewRecorder()
	r := httptest.NewRequest("POST", "/api/boost?db=10", nil)
	boostHandler(w, r)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}
