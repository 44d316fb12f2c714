package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsClient struct {
	t   *testing.T
	ctx context.Context
	c   *websocket.Conn
}

func (w *wsClient) send(frame string) {
	w.t.Helper()
	require.NoError(w.t, w.c.Write(w.ctx, websocket.MessageText, []byte(frame)))
}

func (w *wsClient) recv() (map[string]interface{}, []byte) {
	w.t.Helper()
	typ, data, err := w.c.Read(w.ctx)
	require.NoError(w.t, err)
	require.Equal(w.t, websocket.MessageText, typ)
	var out map[string]interface{}
	require.NoError(w.t, json.Unmarshal(data, &out))
	return out, data
}

func startTestServer(t *testing.T) (*httptest.Server, *GameServer) {
	t.Helper()
	gs := newTestServer()
	ctx, cancel := context.WithCancel(context.Background())
	go gs.Run(ctx)
	srv := httptest.NewServer(Routes(quietLogger(), gs))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-gs.Done()
	})
	return srv, gs
}

func dialTest(t *testing.T, srv *httptest.Server) *wsClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	c, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.CloseNow() })
	return &wsClient{t: t, ctx: ctx, c: c}
}

func TestSocketPingPong(t *testing.T) {
	srv, _ := startTestServer(t)
	client := dialTest(t, srv)

	client.send(`{"type":"ping"}`)
	msg, raw := client.recv()
	assert.Equal(t, "pong", msg["type"])
	assert.Equal(t, `{"type":"pong"}`, string(raw))
}

func TestSocketDropsMalformedFrames(t *testing.T) {
	srv, _ := startTestServer(t)
	client := dialTest(t, srv)

	client.send(`not json`)
	client.send(`{"type":"play","cardId":42}`)
	client.send(`{"type":"ping"}`)
	msg, _ := client.recv()
	assert.Equal(t, "pong", msg["type"])
}

func TestSocketRejectsUnknownType(t *testing.T) {
	srv, _ := startTestServer(t)
	client := dialTest(t, srv)

	client.send(`{"type":"dance"}`)
	msg, _ := client.recv()
	assert.Equal(t, "error", msg["type"])
	assert.Equal(t, "Unknown message type", msg["message"])
}

func TestSocketCreateLobbyAndList(t *testing.T) {
	srv, _ := startTestServer(t)
	client := dialTest(t, srv)

	client.send(`{"type":"create_lobby","name":"Ann"}`)
	msg, raw := client.recv()
	require.Equal(t, "lobby_created", msg["type"])
	assert.True(t, strings.HasPrefix(string(raw), `{"type":"lobby_created",`))
	pin, _ := msg["pin"].(string)
	require.Len(t, pin, 6)

	resp, err := http.Get(srv.URL + "/lobbies")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Lobbies []LobbySummary `json:"lobbies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Len(t, body.Lobbies, 1)
	assert.Equal(t, pin, body.Lobbies[0].Pin)
	assert.Equal(t, 1, body.Lobbies[0].Players)
	assert.Equal(t, "lobby", body.Lobbies[0].Phase)
}

func TestSocketJoinByNumericPin(t *testing.T) {
	srv, _ := startTestServer(t)
	host := dialTest(t, srv)
	guest := dialTest(t, srv)

	host.send(`{"type":"create_lobby","name":"Ann"}`)
	created, _ := host.recv()
	pin := created["pin"].(string)

	guest.send(`{"type":"join_lobby","name":"Bob","pin":` + pin + `}`)
	joined, _ := guest.recv()
	assert.Equal(t, "joined_lobby", joined["type"])
	assert.Equal(t, pin, joined["pin"])

	update, _ := host.recv()
	assert.Equal(t, "lobby_update", update["type"])
}

func TestHealthz(t *testing.T) {
	srv, _ := startTestServer(t)
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
