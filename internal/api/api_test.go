package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMiddlewareCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api", nil)
	middlewareCORS(next).ServeHTTP(w, r)

	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddlewareAuth(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := middlewareAuth("admin", "secret", next)

	// localhost skips auth
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api", nil)
	r.RemoteAddr = "127.0.0.1:12345"
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)

	// remote without credentials
	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/api", nil)
	r.RemoteAddr = "192.168.1.20:12345"
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	// remote with credentials
	w = httptest.NewRecorder()
	r = httptest.NewRequest("GET", "/api", nil)
	r.RemoteAddr = "192.168.1.20:12345"
	r.SetBasicAuth("admin", "secret")
	handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestApiHandlerConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := httptest.NewRecorder()
			r := httptest.NewRequest("GET", "/api", nil)
			r.Host = fmt.Sprintf("relay-%d.local", i)
			apiHandler(w, r)
		}(i)
	}
	wg.Wait()

	w := httptest.NewRecorder()
	apiHandler(w, httptest.NewRequest("GET", "/api", nil))
	require.Contains(t, w.Body.String(), `"version"`)
}

func TestResponseJSON(t *testing.T) {
	w := httptest.NewRecorder()
	ResponseJSON(w, map[string]string{"status": "ok"})

	require.Equal(t, MimeJSON, w.Header().Get("Content-Type"))
	require.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
