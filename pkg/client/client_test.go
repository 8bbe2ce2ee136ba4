package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftd/craftd/internal/instance"
)

func newTestDaemon(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL + "/api"})
}

func TestCreateDecodesInstance(t *testing.T) {
	c := newTestDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/servers", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req instance.CreateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alpha", req.Name)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(instance.Instance{ID: "id-1", Name: req.Name})
	})

	inst, err := c.Create(context.Background(), instance.CreateRequest{Name: "alpha"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", inst.ID)
}

func TestAPIErrorEnvelope(t *testing.T) {
	c := newTestDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"kind":  "INVALID_STATE",
			"error": `cannot start server "alpha" while running`,
		})
	})

	err := c.Start(context.Background(), "id-1")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "INVALID_STATE", apiErr.Kind)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Contains(t, apiErr.Error(), "while running")
}

func TestNonJSONErrorBody(t *testing.T) {
	c := newTestDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway exploded", http.StatusBadGateway)
	})

	err := c.Stop(context.Background(), "id-1")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Contains(t, apiErr.Message, "unexpected status 502")
}

func TestListAndDelete(t *testing.T) {
	c := newTestDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode([]instance.Instance{{ID: "a"}, {ID: "b"}})
		case http.MethodDelete:
			require.Equal(t, "/api/servers/a", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
		}
	})

	insts, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, insts, 2)

	assert.NoError(t, c.Delete(context.Background(), "a"))
}

func TestSendCommandBody(t *testing.T) {
	c := newTestDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/servers/id-1/command", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "say hi", body["command"])
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	})

	assert.NoError(t, c.SendCommand(context.Background(), "id-1", "say hi"))
}

func TestIsReachable(t *testing.T) {
	c := newTestDaemon(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	assert.True(t, c.IsReachable(context.Background()))

	unreachable := New(Config{BaseURL: "http://127.0.0.1:1/api"})
	assert.False(t, unreachable.IsReachable(context.Background()))
}
