package callable

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lucerna-run/workflow-go/token"
)

func TestHTTPWorkFnGETSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
	}))
	defer server.Close()

	fn := NewHTTPWorkFn(HTTPWorkFnOptions{})
	out, err := fn(context.Background(), token.Data{"url": server.URL})
	require.NoError(t, err)

	resp, ok := out["http_response"].(map[string]interface{})
	require.True(t, ok)
	require.EqualValues(t, http.StatusOK, resp["status_code"])

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(resp["body"].(string)), &body))
	require.Equal(t, "ok", body["message"])
}

func TestHTTPWorkFnPOSTWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "secret", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	fn := NewHTTPWorkFn(HTTPWorkFnOptions{})
	out, err := fn(context.Background(), token.Data{
		"url":     server.URL,
		"method":  "POST",
		"body":    `{"x":1}`,
		"headers": map[string]interface{}{"Authorization": "secret"},
	})
	require.NoError(t, err)
	resp := out["http_response"].(map[string]interface{})
	require.EqualValues(t, http.StatusCreated, resp["status_code"])
}

func TestHTTPWorkFnMissingURL(t *testing.T) {
	fn := NewHTTPWorkFn(HTTPWorkFnOptions{})
	_, err := fn(context.Background(), token.Data{})
	require.Error(t, err)
}

func TestHTTPWorkFnRejectsUnsupportedMethod(t *testing.T) {
	fn := NewHTTPWorkFn(HTTPWorkFnOptions{})
	_, err := fn(context.Background(), token.Data{"url": "http://example.com", "method": "PATCH"})
	require.Error(t, err)
}

func TestHTTPWorkFnCustomFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	fn := NewHTTPWorkFn(HTTPWorkFnOptions{URLField: "endpoint", ResultField: "resp"})
	out, err := fn(context.Background(), token.Data{"endpoint": server.URL})
	require.NoError(t, err)
	_, ok := out["resp"]
	require.True(t, ok)
}
