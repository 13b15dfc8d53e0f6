// Package realtime owns the single chat socket of a session: dialing,
// reconnecting with backoff, room membership and event listeners.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"github.com/vdavid/chatsync/internal/auth"
	"github.com/vdavid/chatsync/internal/models"
)

const (
	// Time allowed to write a frame to the server.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the server.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size accepted from the server.
	maxMessageSize = 512 * 1024

	handshakeTimeout = 10 * time.Second
	sendBufferSize   = 64
)

// TokenSource supplies the bearer token used for the handshake.
type TokenSource interface {
	Token() (string, error)
}

// Handler receives the raw data of one server event.
type Handler func(data json.RawMessage)

// StatusHandler is notified on every connection status change.
type StatusHandler func(status Status, err error)

type Config struct {
	URL    string
	Tokens TokenSource

	// Reconnect backoff bounds. Zero values fall back to 500ms and 30s.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// Dialer defaults to websocket.DefaultDialer.
	Dialer *websocket.Dialer
}

type handlerEntry struct {
	id int
	fn Handler
}

type statusEntry struct {
	id int
	fn StatusHandler
}

// Manager keeps at most one live socket per session. Listener registrations
// live on the manager, so a reconnect never duplicates them.
type Manager struct {
	url             string
	tokens          TokenSource
	dialer          *websocket.Dialer
	initialInterval time.Duration
	maxInterval     time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc // non-nil while the connection loop runs
	done   chan struct{}
	conn   *websocket.Conn
	send   chan []byte
	rooms  []string        // every room joined this session, in join order
	joined map[string]bool // rooms joined on the current connection
	status Status

	handlersMu     sync.RWMutex
	nextID         int
	handlers       map[string][]handlerEntry
	statusHandlers []statusEntry
}

func NewManager(cfg Config) *Manager {
	dialer := cfg.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	initial := cfg.InitialInterval
	if initial <= 0 {
		initial = 500 * time.Millisecond
	}
	maxInterval := cfg.MaxInterval
	if maxInterval < initial {
		maxInterval = max(30*time.Second, initial)
	}

	return &Manager{
		url:             cfg.URL,
		tokens:          cfg.Tokens,
		dialer:          dialer,
		initialInterval: initial,
		maxInterval:     maxInterval,
		status:          StatusIdle,
		handlers:        make(map[string][]handlerEntry),
	}
}

// Connect starts the connection loop and waits for the first dial. Calling it
// while the loop is already running is a no-op. When the first dial fails the
// error is returned, but the loop keeps retrying in the background until
// Disconnect is called.
func (m *Manager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	first := make(chan error, 1)
	go m.run(loopCtx, done, first)

	select {
	case err := <-first:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect stops the loop, closes the socket and removes every listener.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	cancel := m.cancel
	done := m.done
	conn := m.conn
	m.cancel = nil
	m.done = nil
	m.rooms = nil
	m.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	if conn != nil {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		_ = conn.Close()
	}
	<-done

	m.setStatus(StatusDisconnected, nil)
	m.clearHandlers()
	log.Printf("Realtime: Disconnected from %s", m.url)
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// JoinRoom subscribes the socket to a conversation's broadcasts. The room is
// remembered and re-joined after every reconnect; joining a room that is
// already joined on the live socket does nothing.
func (m *Manager) JoinRoom(conversationID string) error {
	if conversationID == "" {
		return fmt.Errorf("realtime: empty room id")
	}

	m.mu.Lock()
	if !slices.Contains(m.rooms, conversationID) {
		m.rooms = append(m.rooms, conversationID)
	}
	if m.send == nil || m.joined[conversationID] {
		m.mu.Unlock()
		return nil
	}
	m.joined[conversationID] = true
	m.mu.Unlock()

	return m.Emit(models.EventJoinConversation, models.JoinConversationPayload{ConversationID: conversationID})
}

// Emit queues a client event on the live socket.
func (m *Manager) Emit(event string, data any) error {
	frame, err := encodeFrame(event, data)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.send == nil {
		return ErrNotConnected
	}
	select {
	case m.send <- frame:
		framesSentTotal.WithLabelValues(event).Inc()
		return nil
	default:
		return ErrSendBufferFull
	}
}

// On registers a handler for a server event and returns its removal func.
func (m *Manager) On(event string, handler Handler) func() {
	m.handlersMu.Lock()
	m.nextID++
	id := m.nextID
	m.handlers[event] = append(m.handlers[event], handlerEntry{id: id, fn: handler})
	m.handlersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.handlersMu.Lock()
			defer m.handlersMu.Unlock()
			m.handlers[event] = slices.DeleteFunc(m.handlers[event], func(e handlerEntry) bool { return e.id == id })
			if len(m.handlers[event]) == 0 {
				delete(m.handlers, event)
			}
		})
	}
}

// OnStatus registers a status listener and returns its removal func.
func (m *Manager) OnStatus(handler StatusHandler) func() {
	m.handlersMu.Lock()
	m.nextID++
	id := m.nextID
	m.statusHandlers = append(m.statusHandlers, statusEntry{id: id, fn: handler})
	m.handlersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.handlersMu.Lock()
			defer m.handlersMu.Unlock()
			m.statusHandlers = slices.DeleteFunc(m.statusHandlers, func(e statusEntry) bool { return e.id == id })
		})
	}
}

// ListenerCount returns how many event handlers are registered for event.
func (m *Manager) ListenerCount(event string) int {
	m.handlersMu.RLock()
	defer m.handlersMu.RUnlock()
	return len(m.handlers[event])
}

func (m *Manager) clearHandlers() {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.handlers = make(map[string][]handlerEntry)
	m.statusHandlers = nil
}

// run dials, serves and redials until ctx is cancelled.
func (m *Manager) run(ctx context.Context, done chan struct{}, first chan<- error) {
	defer close(done)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.initialInterval
	b.MaxInterval = m.maxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	status := StatusConnecting
	for {
		if ctx.Err() != nil {
			return
		}

		m.setStatus(status, nil)
		status = StatusReconnecting

		conn, err := m.dial(ctx)
		if err != nil {
			if first != nil {
				first <- err
				first = nil
			}
			if ctx.Err() != nil {
				return
			}
			dialAttemptsTotal.WithLabelValues("failure").Inc()
			wait := b.NextBackOff()
			log.Printf("Realtime: Dial failed, retrying in %s: %v", wait, err)
			m.setStatus(failureStatus(err), err)
			if !sleep(ctx, wait) {
				return
			}
			continue
		}

		dialAttemptsTotal.WithLabelValues("success").Inc()
		b.Reset()

		err = m.serve(ctx, conn, func() {
			if first != nil {
				first <- nil
				first = nil
			}
		})
		if ctx.Err() != nil {
			return
		}

		wait := b.NextBackOff()
		log.Printf("Realtime: Connection lost, reconnecting in %s: %v", wait, err)
		m.setStatus(StatusReconnecting, err)
		if !sleep(ctx, wait) {
			return
		}
	}
}

func (m *Manager) dial(ctx context.Context) (*websocket.Conn, error) {
	token, err := m.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	dialCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	conn, resp, err := m.dialer.DialContext(dialCtx, m.url, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("failed to dial %s: %w", m.url, auth.ErrNotAuthenticated)
		}
		return nil, fmt.Errorf("failed to dial %s: %w", m.url, err)
	}

	conn.SetReadLimit(maxMessageSize)
	return conn, nil
}

// serve runs the pumps for one connection and blocks until it fails or ctx
// is cancelled. ready is called once the socket accepts outbound frames.
func (m *Manager) serve(ctx context.Context, conn *websocket.Conn, ready func()) error {
	send := make(chan []byte, sendBufferSize)
	stop := make(chan struct{})

	m.mu.Lock()
	m.conn = conn
	m.send = send
	m.joined = make(map[string]bool)
	rooms := slices.Clone(m.rooms)
	m.mu.Unlock()

	log.Printf("Realtime: Connected to %s", m.url)
	m.setStatus(StatusConnected, nil)

	go m.writePump(conn, send, stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	for _, room := range rooms {
		if err := m.JoinRoom(room); err != nil {
			log.Printf("Realtime: Failed to re-join room %s: %v", room, err)
		}
	}
	ready()

	err := m.readPump(conn)

	m.mu.Lock()
	m.conn = nil
	m.send = nil
	m.joined = nil
	m.mu.Unlock()

	close(stop)
	_ = conn.Close()
	return err
}

func (m *Manager) readPump(conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Realtime: Read error: %v", err)
			}
			return err
		}

		var envelope models.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			log.Printf("Realtime: Dropped malformed frame: %v", err)
			continue
		}
		framesReceivedTotal.WithLabelValues(envelope.Event).Inc()
		m.dispatch(envelope)
	}
}

func (m *Manager) writePump(conn *websocket.Conn, send <-chan []byte, stop <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				log.Printf("Realtime: Write failed: %v", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				return
			}
		case <-stop:
			return
		}
	}
}

// dispatch calls the handlers for one event in registration order. It runs on
// the read goroutine, so events are delivered in arrival order.
func (m *Manager) dispatch(envelope models.Envelope) {
	m.handlersMu.RLock()
	entries := slices.Clone(m.handlers[envelope.Event])
	m.handlersMu.RUnlock()

	for _, e := range entries {
		e.fn(envelope.Data)
	}
}

func (m *Manager) setStatus(status Status, err error) {
	m.mu.Lock()
	changed := m.status != status
	m.status = status
	m.mu.Unlock()

	if !changed && err == nil {
		return
	}
	recordStatus(status)

	m.handlersMu.RLock()
	entries := slices.Clone(m.statusHandlers)
	m.handlersMu.RUnlock()

	for _, e := range entries {
		e.fn(status, err)
	}
}

func encodeFrame(event string, data any) ([]byte, error) {
	envelope := models.Envelope{Event: event}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", event, err)
		}
		envelope.Data = raw
	}
	frame, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s frame: %w", event, err)
	}
	return frame, nil
}

// sleep waits for d and reports false when ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
