package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/akinalp/tms/models"
	"github.com/akinalp/tms/pkg/token"
)

func newTestServer(t *testing.T) (*Hub, *token.Manager, *httptest.Server) {
	t.Helper()

	tm, err := token.NewManager(token.Config{AccessSecret: "ws-secret", AccessTTL: time.Minute, RefreshTTL: time.Hour})
	require.NoError(t, err)

	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Shutdown)

	srv := httptest.NewServer(http.HandlerFunc(NewHandler(hub, tm, nil, nil).HandleConnection))
	t.Cleanup(srv.Close)
	return hub, tm, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	return websocket.DefaultDialer.Dial(url, nil)
}

func connect(t *testing.T, srv *httptest.Server, tm *token.Manager, id string, role models.Role) *websocket.Conn {
	t.Helper()
	access, _, err := tm.Issue(models.Identity{ID: id, Role: role}, models.TokenKindAccess)
	require.NoError(t, err)

	conn, _, err := dial(t, srv, "accessToken="+access)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	ready := readEvent(t, conn)
	require.Equal(t, OpReady, ready.Op)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestHandshakeRejectsMissingAndInvalidToken(t *testing.T) {
	_, tm, srv := newTestServer(t)

	_, resp, err := dial(t, srv, "")
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dial(t, srv, "accessToken=garbage")
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	refresh, _, err := tm.Issue(models.Identity{ID: "u1", Role: models.RoleUser}, models.TokenKindRefresh)
	require.NoError(t, err)
	_, resp, err = dial(t, srv, "accessToken="+refresh)
	require.Error(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestHeartbeatAck(t *testing.T) {
	_, tm, srv := newTestServer(t)
	conn := connect(t, srv, tm, "u1", models.RoleUser)

	require.NoError(t, conn.WriteJSON(Event{Op: OpHeartbeat}))
	require.Equal(t, OpHeartbeatAck, readEvent(t, conn).Op)
}

func TestBroadcastToUserReachesOwnerAndAdmins(t *testing.T) {
	hub, tm, srv := newTestServer(t)
	owner := connect(t, srv, tm, "owner", models.RoleUser)
	other := connect(t, srv, tm, "other", models.RoleUser)
	admin := connect(t, srv, tm, "admin", models.RoleAdmin)

	require.Equal(t, 3, hub.ConnectionCount())

	hub.BroadcastToUser("owner", Event{Op: OpTaskDelete, Data: TaskDeleteData{ID: "t1", UserID: "owner"}})

	ev := readEvent(t, owner)
	require.Equal(t, OpTaskDelete, ev.Op)
	require.NotZero(t, ev.Seq)
	require.Equal(t, OpTaskDelete, readEvent(t, admin).Op)

	// other hiçbir şey almamalı; heartbeat ack ilk gelen event olmalı.
	require.NoError(t, other.WriteJSON(Event{Op: OpHeartbeat}))
	require.Equal(t, OpHeartbeatAck, readEvent(t, other).Op)
}
