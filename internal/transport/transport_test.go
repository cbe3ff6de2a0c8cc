// SPDX-License-Identifier: MIT
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	applog "wavelab/internal/log"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary string

func (s summary) String() string { return string(s) }

type recorder struct {
	got    []any
	err    error
	closed bool
}

func (r *recorder) Send(data any) error {
	r.got = append(r.got, data)
	return r.err
}

func (r *recorder) Close() error {
	r.closed = true
	return r.err
}

func TestLoggingTransport(t *testing.T) {
	var buf bytes.Buffer
	applog.SetOutput(&buf)
	prev := applog.GetLevel()
	applog.SetLevel(applog.LevelDebug)
	t.Cleanup(func() {
		applog.SetOutput(os.Stderr)
		applog.SetLevel(prev)
	})

	lt := NewLoggingTransport()
	require.NoError(t, lt.Send(summary("spectrum frame #1")))
	require.NoError(t, lt.Send(42))
	require.NoError(t, lt.Close())

	assert.Equal(t, uint64(2), lt.Sent())
	out := buf.String()
	assert.Contains(t, out, "#1 spectrum frame #1")
	assert.Contains(t, out, "#2 received int")
}

func TestMulti(t *testing.T) {
	a := &recorder{}
	b := &recorder{err: errors.New("boom")}
	c := &recorder{}
	m := Multi{a, b, c}

	err := m.Send("x")
	assert.EqualError(t, err, "boom")
	assert.Len(t, a.got, 1)
	assert.Len(t, c.got, 1, "later transports still receive data after an error")

	err = m.Close()
	assert.ErrorContains(t, err, "boom")
	assert.True(t, a.closed && b.closed && c.closed)
}

func dialWS(t *testing.T, wst *WebSocketTransport) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(wst.Mux())
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return wst.ClientCount() == 1 }, time.Second, 5*time.Millisecond)
	return conn
}

func TestWebSocketTransport_Request(t *testing.T) {
	handler := func(_ context.Context, msg []byte) (any, error) {
		var req struct {
			N int `json:"n"`
		}
		if err := json.Unmarshal(msg, &req); err != nil {
			return nil, err
		}
		if req.N < 0 {
			return nil, errors.New("n must be non-negative")
		}
		return map[string]int{"double": 2 * req.N}, nil
	}

	wst := NewWebSocketTransport("127.0.0.1:0", handler)
	t.Cleanup(func() { wst.Close() })
	conn := dialWS(t, wst)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"n":21}`)))
	var reply map[string]int
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, 42, reply["double"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"n":-1}`)))
	var errReply ErrorReply
	require.NoError(t, conn.ReadJSON(&errReply))
	assert.Equal(t, "error", errReply.Type)
	assert.Equal(t, "n must be non-negative", errReply.Error)
}

func TestWebSocketTransport_ReadLimit(t *testing.T) {
	var calls atomic.Int32
	handler := func(_ context.Context, msg []byte) (any, error) {
		calls.Add(1)
		return map[string]int{"len": len(msg)}, nil
	}

	wst := NewWebSocketTransport("127.0.0.1:0", handler)
	t.Cleanup(func() { wst.Close() })
	wst.SetReadLimit(64)
	conn := dialWS(t, wst)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"signal":[1,2]}`)))
	var reply map[string]int
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, 16, reply["len"])

	big := `{"signal":[` + strings.Repeat("0.5,", 64) + `0.5]}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(big)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseMessageTooBig), "got %v", err)
	assert.Equal(t, int32(1), calls.Load(), "oversized message never reaches the handler")
	require.Eventually(t, func() bool { return wst.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketTransport_Broadcast(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0", nil)
	t.Cleanup(func() { wst.Close() })
	conn := dialWS(t, wst)

	require.NoError(t, wst.Send(map[string]string{"type": "spectrum"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got map[string]string
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, "spectrum", got["type"])
}

func TestWebSocketTransport_Disconnect(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0", nil)
	t.Cleanup(func() { wst.Close() })
	conn := dialWS(t, wst)

	conn.Close()
	assert.Eventually(t, func() bool { return wst.ClientCount() == 0 }, time.Second, 5*time.Millisecond)
}

func TestWebSocketTransport_StartAndClose(t *testing.T) {
	wst := NewWebSocketTransport("127.0.0.1:0", nil)
	require.NoError(t, wst.Start())
	assert.NotEqual(t, "127.0.0.1:0", wst.Addr(), "Addr reports the bound port")

	require.NoError(t, wst.Close())
	require.NoError(t, wst.Close(), "second Close is a no-op")
	assert.ErrorIs(t, wst.Send("late"), ErrClosed)
}

func TestWebSocketTransport_StartBindError(t *testing.T) {
	first := NewWebSocketTransport("127.0.0.1:0", nil)
	require.NoError(t, first.Start())
	t.Cleanup(func() { first.Close() })

	second := NewWebSocketTransport(first.Addr(), nil)
	t.Cleanup(func() { second.Close() })
	assert.Error(t, second.Start())
}
