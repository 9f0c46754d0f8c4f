package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"aichat/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(endpoint string) *HTTPClient {
	return NewHTTPClient(&config.AIConfig{Endpoint: endpoint, TimeoutSeconds: 5})
}

func TestAsk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req Request
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "qual a pegada ideal?", req.Message)
		assert.Equal(t, int64(7), req.UserID)
		assert.Equal(t, int64(1), req.ListaID)

		json.NewEncoder(w).Encode(Response{Output: "resposta detalhada", Subtrair: 1})
	}))
	defer server.Close()

	resp, err := newClient(server.URL).Ask(context.Background(), &Request{
		Message: "qual a pegada ideal?", UserID: 7, ListaID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "resposta detalhada", resp.Output)
	assert.Equal(t, int64(1), resp.Subtrair)
}

func TestAsk_SubtrairDefaultsToZero(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"output":"resposta"}`))
	}))
	defer server.Close()

	resp, err := newClient(server.URL).Ask(context.Background(), &Request{Message: "oi"})
	require.NoError(t, err)
	assert.Equal(t, int64(0), resp.Subtrair)
}

func TestAsk_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newClient(server.URL).Ask(context.Background(), &Request{Message: "oi"})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestAsk_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("não é json"))
	}))
	defer server.Close()

	_, err := newClient(server.URL).Ask(context.Background(), &Request{Message: "oi"})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestAsk_ConnectionRefused(t *testing.T) {
	_, err := newClient("http://127.0.0.1:1").Ask(context.Background(), &Request{Message: "oi"})
	assert.ErrorIs(t, err, ErrUpstream)
}
