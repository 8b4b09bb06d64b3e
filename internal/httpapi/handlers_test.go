package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/farkle-backend/internal/hub"
	"github.com/DoyleJ11/farkle-backend/internal/protocol"
	"github.com/DoyleJ11/farkle-backend/internal/room"
)

func newServer(t *testing.T, opts ...hub.Option) (*hub.Hub, *httptest.Server) {
	t.Helper()
	h := hub.NewHub(context.Background(), opts...)
	t.Cleanup(h.Shutdown)

	srv := httptest.NewServer(SetupRoutes(h, Options{
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         zaptest.NewLogger(t),
	}))
	t.Cleanup(srv.Close)
	return h, srv
}

func TestHealthz(t *testing.T) {
	_, srv := newServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRoomInfo(t *testing.T) {
	h, srv := newServer(t, hub.WithCodes(func() (string, error) { return "ROOM42", nil }))

	resp, err := http.Get(srv.URL + "/rooms/ROOM42")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err = h.Create(context.Background(), room.Member{
		ID: "a", Name: "Ann", Outbox: make(chan protocol.Message, 4),
	})
	require.NoError(t, err)

	resp, err = http.Get(srv.URL + "/rooms/room42")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var view room.View
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&view))
	assert.Equal(t, "ROOM42", view.ID)
	assert.False(t, view.Started)
	assert.Equal(t, []room.MemberView{{Name: "Ann", Role: protocol.RoleCreator}}, view.Members)
}

func TestCORS(t *testing.T) {
	_, srv := newServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestOriginHosts(t *testing.T) {
	got := originHosts([]string{"http://localhost:3000", "https://play.example.com", "*", "bare.host"})
	assert.Equal(t, []string{"localhost:3000", "play.example.com", "*", "bare.host"}, got)
}
