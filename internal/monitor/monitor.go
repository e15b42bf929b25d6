// Package monitor streams raised events to loopback websocket clients.
//
// Each client gets a bounded buffer. When a client falls behind, further
// messages for it are dropped and counted; the raising goroutine never
// waits on a socket.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roach88/hostloop/internal/events"
	"github.com/roach88/hostloop/internal/journal"
)

// DefaultBuffer is the per-client buffer used when none is configured.
const DefaultBuffer = 256

// EventsPath is the websocket endpoint.
const EventsPath = "/events"

// ErrNotLoopback is returned by ListenAndServe for a non-loopback address.
var ErrNotLoopback = errors.New("monitor address must be loopback")

// Message is the JSON frame sent for every raised event.
type Message struct {
	Seq     int64           `json:"seq"`
	Tick    uint64          `json:"tick"`
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
	Invoked int             `json:"invoked"`
	Failed  int             `json:"failed"`
}

type client struct {
	id       uint64
	out      chan []byte
	channels map[string]bool // nil means every channel
	dropped  atomic.Int64
}

func (c *client) wants(ch string) bool {
	return c.channels == nil || c.channels[ch]
}

// Server fans raised events out to websocket clients.
type Server struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader
	buffer   int

	mu      sync.RWMutex
	clients map[uint64]*client
	nextID  atomic.Uint64
	dropped atomic.Int64
}

// New creates a server with the given per-client buffer.
func New(buffer int, logger *slog.Logger) *Server {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger: logger,
		buffer: buffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return isLoopbackRemote(r.RemoteAddr) },
		},
		clients: make(map[uint64]*client),
	}
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// Dropped returns how many messages were discarded across all clients.
func (s *Server) Dropped() int64 { return s.dropped.Load() }

// Tap returns an events.Tap that broadcasts every raise.
func (s *Server) Tap() events.Tap {
	return func(ev events.Event, out events.Outcome) {
		s.mu.RLock()
		defer s.mu.RUnlock()
		if len(s.clients) == 0 {
			return
		}

		payload, err := journal.Canonical(ev.Payload)
		if err != nil {
			s.logger.Warn("monitor: payload not encodable", "channel", ev.Channel, "error", err)
			return
		}
		frame, err := json.Marshal(Message{
			Seq:     ev.Seq,
			Tick:    ev.Tick,
			Channel: string(ev.Channel),
			Payload: payload,
			Invoked: out.Invoked,
			Failed:  out.Failed,
		})
		if err != nil {
			s.logger.Warn("monitor: frame not encodable", "channel", ev.Channel, "error", err)
			return
		}

		for _, c := range s.clients {
			if !c.wants(string(ev.Channel)) {
				continue
			}
			select {
			case c.out <- frame:
			default:
				c.dropped.Add(1)
				s.dropped.Add(1)
			}
		}
	}
}

// Handler returns the HTTP handler serving EventsPath.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(EventsPath, s.serveEvents)
	return mux
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := Listen(addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Listen opens a TCP listener on addr after checking that it is loopback.
func Listen(addr string) (net.Listener, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("monitor address %q: %w", addr, err)
	}
	if host != "localhost" {
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			return nil, fmt.Errorf("%w: %q", ErrNotLoopback, addr)
		}
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("monitor listen: %w", err)
	}
	return ln, nil
}

// Serve serves Handler on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info("monitor listening", "addr", ln.Addr().String(), "path", EventsPath)
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("monitor serve: %w", err)
	}
	return nil
}

// serveEvents upgrades the request and streams frames until either side
// closes. Repeated `channel` query parameters restrict the stream.
func (s *Server) serveEvents(rw http.ResponseWriter, r *http.Request) {
	if !isLoopbackRemote(r.RemoteAddr) {
		http.Error(rw, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	c := &client{
		id:  s.nextID.Add(1),
		out: make(chan []byte, s.buffer),
	}
	if chs := r.URL.Query()["channel"]; len(chs) > 0 {
		c.channels = make(map[string]bool, len(chs))
		for _, ch := range chs {
			c.channels[ch] = true
		}
	}
	s.register(c)
	defer s.unregister(c)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-ctx.Done():
				writeErr <- ctx.Err()
				return
			case b := <-c.out:
				_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
					writeErr <- err
					return
				}
			}
		}
	}()

	// Clients never send anything meaningful; reading only detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	cancel()
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

	select {
	case <-writeErr:
	case <-time.After(500 * time.Millisecond):
	}
}

func (s *Server) register(c *client) {
	s.mu.Lock()
	s.clients[c.id] = c
	s.mu.Unlock()
	s.logger.Debug("monitor client connected", "client", c.id)
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	delete(s.clients, c.id)
	s.mu.Unlock()
	s.logger.Debug("monitor client disconnected", "client", c.id, "dropped", c.dropped.Load())
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
