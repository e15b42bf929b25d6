package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hostloop/internal/events"
)

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + EventsPath + query
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestServer_StreamsRaisedEvents(t *testing.T) {
	s := New(8, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	m := events.NewManager()
	m.AddTap(s.Tap())

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	m.SetTick(9)
	m.Raise(events.MenuChanged, map[string]string{"old": "", "new": "inventory"})

	msg := readMessage(t, conn)
	assert.Equal(t, "display.menu_changed", msg.Channel)
	assert.Equal(t, uint64(9), msg.Tick)
	assert.JSONEq(t, `{"new":"inventory","old":""}`, string(msg.Payload))
}

func TestServer_ChannelFilter(t *testing.T) {
	s := New(8, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	m := events.NewManager()
	m.AddTap(s.Tap())

	conn := dial(t, srv, "?channel="+string(events.UpdateTicked))
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	m.RaiseEmpty(events.UpdateTicking)
	m.RaiseEmpty(events.UpdateTicked)

	msg := readMessage(t, conn)
	assert.Equal(t, string(events.UpdateTicked), msg.Channel)
	assert.Equal(t, "null", string(msg.Payload))
}

func TestServer_UnregistersOnClose(t *testing.T) {
	s := New(8, nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv, "")
	require.Eventually(t, func() bool { return s.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestTap_DropsWhenClientBufferFull(t *testing.T) {
	s := New(1, nil)
	c := &client{id: 1, out: make(chan []byte, 1)}
	s.register(c)

	tap := s.Tap()
	for i := int64(1); i <= 3; i++ {
		tap(events.Event{Channel: events.UpdateTicked, Seq: i}, events.Outcome{})
	}

	assert.Len(t, c.out, 1)
	assert.Equal(t, int64(2), c.dropped.Load())
	assert.Equal(t, int64(2), s.Dropped())
}

func TestTap_NoClientsIsNoop(t *testing.T) {
	s := New(0, nil)
	s.Tap()(events.Event{Channel: events.UpdateTicked, Payload: make(chan int)}, events.Outcome{})
	assert.Zero(t, s.Dropped())
}

func TestServeEvents_RejectsRemoteClients(t *testing.T) {
	s := New(8, nil)
	req := httptest.NewRequest(http.MethodGet, EventsPath, nil)
	req.RemoteAddr = "10.1.2.3:4567"
	rec := httptest.NewRecorder()

	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestListen_RequiresLoopback(t *testing.T) {
	_, err := Listen("0.0.0.0:0")
	assert.ErrorIs(t, err, ErrNotLoopback)

	_, err = Listen("not-an-addr")
	assert.Error(t, err)

	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)
	require.NoError(t, ln.Close())
}

func TestServe_StopsOnContextCancel(t *testing.T) {
	s := New(8, nil)
	ln, err := Listen("127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
