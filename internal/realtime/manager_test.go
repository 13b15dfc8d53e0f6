package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/chatsync/internal/api"
	"github.com/vdavid/chatsync/internal/auth"
	"github.com/vdavid/chatsync/internal/config"
	"github.com/vdavid/chatsync/internal/models"
	"github.com/vdavid/chatsync/internal/testutil"
)

const (
	waitFor = 3 * time.Second
	tick    = 10 * time.Millisecond
)

type backend struct {
	server     *testutil.ChatServer
	url        string
	aliceToken string
	bobToken   string
}

func newBackend(t *testing.T) backend {
	t.Helper()

	server, url := testutil.StartChatServer(t)
	b := backend{
		server:     server,
		url:        url,
		aliceToken: server.AddUser("alice", "Alice"),
		bobToken:   server.AddUser("bob", "Bob"),
	}
	server.AddConversation(models.Conversation{
		ID:   "c1",
		Type: models.ConversationDirect,
		Participants: []models.Participant{
			{UserID: "alice"},
			{UserID: "bob"},
		},
	})
	return b
}

func newTestManager(t *testing.T, baseURL, token string) *Manager {
	t.Helper()

	m := NewManager(Config{
		URL:             config.DeriveWebSocketURL(baseURL),
		Tokens:          auth.NewSession(token, "", ""),
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
	})
	t.Cleanup(m.Disconnect)
	return m
}

// statusRecorder collects status notifications from the manager goroutines.
type statusRecorder struct {
	mu       sync.Mutex
	statuses []Status
}

func (r *statusRecorder) record(status Status, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *statusRecorder) seen(status Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, s := range r.statuses {
		if s == status {
			count++
		}
	}
	return count
}

func TestManager_Connect(t *testing.T) {
	b := newBackend(t)
	m := newTestManager(t, b.url, b.aliceToken)
	recorder := &statusRecorder{}
	m.OnStatus(recorder.record)

	require.NoError(t, m.Connect(context.Background()))

	require.Eventually(t, func() bool { return m.Status() == StatusConnected }, waitFor, tick)
	assert.Equal(t, 1, recorder.seen(StatusConnecting))
	assert.Equal(t, 1, recorder.seen(StatusConnected))
	assert.Equal(t, 1, b.server.Connections("alice"))
}

func TestManager_ConnectTwiceKeepsOneSocket(t *testing.T) {
	b := newBackend(t)
	m := newTestManager(t, b.url, b.aliceToken)

	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.Connect(context.Background()))

	require.Eventually(t, func() bool { return m.Status() == StatusConnected }, waitFor, tick)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, b.server.Connections("alice"))
}

func TestManager_FirstDialFailure(t *testing.T) {
	b := newBackend(t)
	m := newTestManager(t, b.url, "not-a-valid-token")

	err := m.Connect(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	require.Eventually(t, func() bool { return m.Status() == StatusError || m.Status() == StatusReconnecting }, waitFor, tick)
	assert.Equal(t, 0, b.server.Connections("alice"))
}

func TestManager_EmitWhileOffline(t *testing.T) {
	m := NewManager(Config{URL: "ws://127.0.0.1:1/api/chat/ws", Tokens: auth.NewSession("token", "", "")})

	err := m.Emit(models.EventTypingStart, models.TypingPayload{ConversationID: "c1", IsTyping: true})

	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestManager_JoinRoomWhileOfflineIsRemembered(t *testing.T) {
	b := newBackend(t)
	m := newTestManager(t, b.url, b.aliceToken)

	require.NoError(t, m.JoinRoom("c1"))
	require.NoError(t, m.Connect(context.Background()))

	require.Eventually(t, func() bool { return b.server.RoomSize("c1") == 1 }, waitFor, tick)
}

func TestManager_RejoinsRoomsAfterReconnect(t *testing.T) {
	b := newBackend(t)
	m := newTestManager(t, b.url, b.aliceToken)
	recorder := &statusRecorder{}
	m.OnStatus(recorder.record)

	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.JoinRoom("c1"))
	require.NoError(t, m.JoinRoom("c1"))
	require.Eventually(t, func() bool { return b.server.RoomSize("c1") == 1 }, waitFor, tick)

	b.server.DropConnections()

	require.Eventually(t, func() bool {
		return recorder.seen(StatusConnected) == 2 && b.server.RoomSize("c1") == 1
	}, waitFor, tick)
	assert.GreaterOrEqual(t, recorder.seen(StatusReconnecting), 1)
	assert.Equal(t, 1, b.server.Connections("alice"))
}

func TestManager_ListenersSurviveReconnectWithoutDuplicates(t *testing.T) {
	b := newBackend(t)
	m := newTestManager(t, b.url, b.aliceToken)
	recorder := &statusRecorder{}
	m.OnStatus(recorder.record)

	var received atomic.Int32
	m.On(models.EventMessage, func(data json.RawMessage) {
		received.Add(1)
	})

	require.NoError(t, m.Connect(context.Background()))
	require.NoError(t, m.JoinRoom("c1"))
	require.Eventually(t, func() bool { return b.server.RoomSize("c1") == 1 }, waitFor, tick)

	b.server.DropConnections()
	require.Eventually(t, func() bool {
		return recorder.seen(StatusConnected) == 2 && b.server.RoomSize("c1") == 1
	}, waitFor, tick)

	bob := api.NewClient(b.url, auth.NewSession(b.bobToken, "bob", "Bob"), 5*time.Second)
	_, err := bob.SendMessage(context.Background(), models.SendMessageRequest{ConversationID: "c1", Content: "hi"})
	require.NoError(t, err)

	require.Eventually(t, func() bool { return received.Load() == 1 }, waitFor, tick)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), received.Load())
	assert.Equal(t, 1, m.ListenerCount(models.EventMessage))
}

func TestManager_OffRemovesOnlyThatListener(t *testing.T) {
	m := NewManager(Config{URL: "ws://127.0.0.1:1/api/chat/ws", Tokens: auth.NewSession("token", "", "")})

	var first, second int
	off := m.On(models.EventPresence, func(json.RawMessage) { first++ })
	m.On(models.EventPresence, func(json.RawMessage) { second++ })

	off()
	off()
	m.dispatch(models.Envelope{Event: models.EventPresence, Data: json.RawMessage(`{}`)})

	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 1, m.ListenerCount(models.EventPresence))
}

func TestManager_DisconnectClearsListeners(t *testing.T) {
	b := newBackend(t)
	m := newTestManager(t, b.url, b.aliceToken)
	recorder := &statusRecorder{}
	m.OnStatus(recorder.record)
	m.On(models.EventMessage, func(json.RawMessage) {})

	require.NoError(t, m.Connect(context.Background()))
	m.Disconnect()

	assert.Equal(t, StatusDisconnected, m.Status())
	assert.Equal(t, 1, recorder.seen(StatusDisconnected))
	assert.Equal(t, 0, m.ListenerCount(models.EventMessage))
	assert.ErrorIs(t, m.Emit(models.EventTypingStop, nil), ErrNotConnected)
	require.Eventually(t, func() bool { return b.server.Connections("alice") == 0 }, waitFor, tick)

	// A second Disconnect is harmless.
	m.Disconnect()
}

func TestManager_EmitTypingReachesRoom(t *testing.T) {
	b := newBackend(t)
	alice := newTestManager(t, b.url, b.aliceToken)
	bob := newTestManager(t, b.url, b.bobToken)

	typing := make(chan models.TypingPayload, 1)
	alice.On(models.EventUserTyping, func(data json.RawMessage) {
		var p models.TypingPayload
		if json.Unmarshal(data, &p) == nil {
			typing <- p
		}
	})

	require.NoError(t, alice.Connect(context.Background()))
	require.NoError(t, alice.JoinRoom("c1"))
	require.Eventually(t, func() bool { return b.server.RoomSize("c1") == 1 }, waitFor, tick)
	require.NoError(t, bob.Connect(context.Background()))

	require.NoError(t, bob.Emit(models.EventTypingStart, models.TypingPayload{ConversationID: "c1", IsTyping: true}))

	select {
	case p := <-typing:
		assert.Equal(t, "c1", p.ConversationID)
		assert.Equal(t, "bob", p.UserID)
		assert.Equal(t, "Bob", p.UserName)
	case <-time.After(waitFor):
		t.Fatal("typing event not delivered")
	}
}
