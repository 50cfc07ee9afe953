package streaming

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// echoServer returns a test server that echoes WebSocket messages back.
func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestConn_SendReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := NewConn(ConnConfig{URL: wsURL(srv)})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	require.NoError(t, c.Send(map[string]string{"hello": "world"}))
	data, err := c.Receive()
	require.NoError(t, err)

	var got map[string]string
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "world", got["hello"])

	require.NoError(t, c.SendRaw([]byte(`{"raw":true}`)))
	data, err = c.Receive()
	require.NoError(t, err)
	assert.JSONEq(t, `{"raw":true}`, string(data))
}

func TestConn_HeadersSentOnHandshake(t *testing.T) {
	var gotKey atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey.Store(r.Header.Get("x-goog-api-key"))
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	headers := http.Header{}
	headers.Set("x-goog-api-key", "secret")
	c := NewConn(ConnConfig{URL: wsURL(srv), Headers: headers})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	assert.Equal(t, "secret", gotKey.Load())
}

func TestConn_ConnectRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewConn(ConnConfig{URL: wsURL(srv)})
	err := c.ConnectWithRetry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestConn_RetryHonorsAttempts(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewConn(ConnConfig{
		URL:              wsURL(srv),
		MaxAttempts:      3,
		RetryBackoffBase: time.Millisecond,
		RetryBackoffMax:  5 * time.Millisecond,
	})
	err := c.ConnectWithRetry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), attempts.Load())
}

func TestConn_RetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewConn(ConnConfig{URL: "ws://127.0.0.1:1", MaxAttempts: 5})
	assert.ErrorIs(t, c.ConnectWithRetry(ctx), context.Canceled)
}

func TestConn_CloseIsIdempotentAndUnblocksReceive(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	c := NewConn(ConnConfig{URL: wsURL(srv)})
	require.NoError(t, c.Connect(context.Background()))

	done := make(chan error, 1)
	go func() {
		_, err := c.Receive()
		done <- err
	}()

	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Receive did not unblock after Close")
	}

	assert.ErrorIs(t, c.Send("late"), ErrNotConnected)
	require.Error(t, c.Connect(context.Background()))
}

func TestConn_SendBeforeConnect(t *testing.T) {
	c := NewConn(ConnConfig{URL: "ws://unused"})
	assert.ErrorIs(t, c.SendRaw([]byte("x")), ErrNotConnected)
	_, err := c.Receive()
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestConn_Heartbeat(t *testing.T) {
	pings := make(chan struct{}, 4)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.SetPingHandler(func(string) error {
			select {
			case pings <- struct{}{}:
			default:
			}
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	c := NewConn(ConnConfig{URL: wsURL(srv)})
	require.NoError(t, c.Connect(context.Background()))
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c.StartHeartbeat(ctx, 10*time.Millisecond)

	select {
	case <-pings:
	case <-time.After(2 * time.Second):
		t.Fatal("no ping received")
	}
}

func TestCloseHelpers(t *testing.T) {
	normal := &websocket.CloseError{Code: websocket.CloseNormalClosure}
	abnormal := &websocket.CloseError{Code: websocket.CloseInternalServerErr, Text: "boom"}

	assert.True(t, IsNormalClose(normal))
	assert.False(t, IsNormalClose(abnormal))
	assert.Equal(t, websocket.CloseInternalServerErr, CloseCode(abnormal))
	assert.Equal(t, 0, CloseCode(assert.AnError))
}

func TestCalculateBackoff(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := calculateBackoff(time.Second, 30*time.Second)
		assert.GreaterOrEqual(t, d, 750*time.Millisecond)
		assert.LessOrEqual(t, d, 1250*time.Millisecond)
	}
	assert.LessOrEqual(t, calculateBackoff(time.Minute, time.Second), time.Second)
}
