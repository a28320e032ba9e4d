package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dungeonrun/dungeon"
)

func newTestServer(t *testing.T) (*GameSession, *httptest.Server) {
	t.Helper()
	s := newTestSession(t, alternatingProvider())
	srv := httptest.NewServer(NewServer(s, nil, 16).Routes(""))
	t.Cleanup(srv.Close)
	return s, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func writeEnvelope(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	env := map[string]any{"type": msgType}
	if payload != nil {
		env["payload"] = payload
	}
	require.NoError(t, conn.WriteJSON(env))
}

// readUntil 读取消息直到类型匹配且 match 返回 true
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, v any, match func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %s", msgType)
		var env Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type != msgType {
			continue
		}
		require.NoError(t, json.Unmarshal(env.Payload, v))
		if match == nil || match() {
			return
		}
	}
}

func TestWebSocketSessionFlow(t *testing.T) {
	s, srv := newTestServer(t)

	connA := dial(t, srv)
	var st dungeon.State
	readUntil(t, connA, MsgDungeonData, &st, nil)
	assert.Equal(t, dungeon.Point{X: 1, Y: 1}, st.StartingPoint)

	writeEnvelope(t, connA, MsgIDRequest, nil)
	var pa Player
	readUntil(t, connA, MsgPlayerID, &pa, nil)
	assert.NotEmpty(t, pa.ID)

	connB := dial(t, srv)
	readUntil(t, connB, MsgDungeonData, &st, nil)
	writeEnvelope(t, connB, MsgIDRequest, nil)
	var pb Player
	readUntil(t, connB, MsgPlayerID, &pb, nil)
	assert.NotEqual(t, pa.ID, pb.ID)

	// 名单往返：客户端解析出的 {id,x,y} 与注册表一致
	var roster []Player
	readUntil(t, connA, MsgRoster, &roster, func() bool { return len(roster) == 2 })
	type pos struct {
		ID   PlayerID
		X, Y int
	}
	toSet := func(ps []Player) []pos {
		out := make([]pos, 0, len(ps))
		for _, p := range ps {
			out = append(out, pos{p.ID, p.X, p.Y})
		}
		return out
	}
	assert.ElementsMatch(t, toSet(s.Players()), toSet(roster))

	writeEnvelope(t, connA, MsgLocationUpdate, LocationUpdate{PlayerID: pa.ID, Direction: "right"})
	readUntil(t, connB, MsgRoster, &roster, func() bool {
		for _, p := range roster {
			if p.ID == pa.ID && p.X == 2 {
				return true
			}
		}
		return false
	})

	// 断开后名单只剩 B
	require.NoError(t, connA.Close())
	readUntil(t, connB, MsgRoster, &roster, func() bool { return len(roster) == 1 })
	assert.Equal(t, pb.ID, roster[0].ID)
}

func TestWebSocketIgnoresMalformedMessages(t *testing.T) {
	s, srv := newTestServer(t)
	conn := dial(t, srv)
	var st dungeon.State
	readUntil(t, conn, MsgDungeonData, &st, nil)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	writeEnvelope(t, conn, "dance", nil)
	writeEnvelope(t, conn, MsgLocationUpdate, nil)
	writeEnvelope(t, conn, MsgIDRequest, nil)

	var p Player
	readUntil(t, conn, MsgPlayerID, &p, nil)
	assert.Len(t, s.Players(), 1)
}

func TestAdminEndpoints(t *testing.T) {
	s, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/admin/config")
	require.NoError(t, err)
	var opts dungeon.Options
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&opts))
	resp.Body.Close()
	assert.Equal(t, testOptions, opts)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"invalid json", "{", http.StatusBadRequest},
		{"invalid options", `{"roomCount":0}`, http.StatusBadRequest},
		{"partial update", `{"width":25,"roomCount":4}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+"/admin/config", "application/json", bytes.NewBufferString(tt.body))
			require.NoError(t, err)
			resp.Body.Close()
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
	assert.Equal(t, 25, s.Options().Width)
	assert.Equal(t, 4, s.Options().RoomCount)
	assert.Equal(t, testOptions.Height, s.Options().Height)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	var metrics map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&metrics))
	resp.Body.Close()
	assert.Contains(t, metrics, "metrics")
	assert.Contains(t, metrics, "startingPoint")
	assert.EqualValues(t, 0, metrics["players"])

	resp, err = http.Get(srv.URL + "/completions")
	require.NoError(t, err)
	var done []Completion
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&done))
	resp.Body.Close()
	assert.Empty(t, done)
}
