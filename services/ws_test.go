package services

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/RelayProject/btcrelay/hub"
	"github.com/RelayProject/btcrelay/relay"
)

func dialWS(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/relay/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestWebSocketWatchReceivesSatisfiedEvent(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsCommand{Type: cmdWatch}))
	var ack map[string]bool
	require.NoError(t, conn.ReadJSON(&ack))
	require.True(t, ack["ok"])

	s.hub.Publish(hub.SatisfiedEvent{TxID: relay.ID{7}, Height: 3, Satisfied: []relay.ID{{1}}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]interface{}
	require.NoError(t, conn.ReadJSON(&msg))
	require.Equal(t, evtSatisfied, msg["type"])
}

func TestWebSocketWatchRequiresAuthWhenConfigured(t *testing.T) {
	kv := newTestServerWithAPIKey(t)
	srv := httptest.NewServer(kv.Router())
	defer srv.Close()

	conn := dialWS(t, srv)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(wsCommand{Type: cmdWatch}))
	var ack map[string]bool
	require.NoError(t, conn.ReadJSON(&ack))
	require.False(t, ack["ok"])
}

func newTestServerWithAPIKey(t *testing.T) *Server {
	t.Helper()
	s, _ := newTestServer(t)
	// Any non-empty hash turns authentication on; a session starts
	// unauthenticated and this test never sends an auth command.
	s.apiKeyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5YtFudnVqO7eP5cXk9G5Hdo0FbS3W"
	return s
}
