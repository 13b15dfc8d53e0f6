package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/chatsync/internal/api"
	"github.com/vdavid/chatsync/internal/auth"
	"github.com/vdavid/chatsync/internal/models"
)

type fixture struct {
	server *ChatServer
	url    string
	alice  *api.Client
	bob    *api.Client
}

func seededServer(t *testing.T) fixture {
	t.Helper()

	server, url := StartChatServer(t)
	aliceToken := server.AddUser("alice", "Alice")
	bobToken := server.AddUser("bob", "Bob")
	server.AddUser("carol", "Carol")
	server.AddConversation(models.Conversation{
		ID:           "c1",
		Type:         models.ConversationDirect,
		Participants: []models.Participant{{UserID: "alice"}, {UserID: "bob"}},
	})

	alice := api.NewClient(url, auth.NewSession(aliceToken, "alice", "Alice"), 5*time.Second)
	bob := api.NewClient(url, auth.NewSession(bobToken, "bob", "Bob"), 5*time.Second)
	return fixture{server: server, url: url, alice: alice, bob: bob}
}

func TestChatServer_SendAndList(t *testing.T) {
	f := seededServer(t)
	server, alice, bob := f.server, f.alice, f.bob
	ctx := context.Background()

	sent, err := alice.SendMessage(ctx, models.SendMessageRequest{ConversationID: "c1", Content: "hi", ClientMessageID: "temp-1"})
	require.NoError(t, err)
	assert.Equal(t, "alice", sent.Sender.ID)
	assert.Equal(t, "temp-1", sent.ClientMessageID)

	msgs, err := bob.ListMessages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, sent.ID, msgs[0].ID)

	convs, err := bob.ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, 1, convs[0].UnreadCount)
	assert.Equal(t, "hi", convs[0].LastMessage)
	assert.Equal(t, "Alice", convs[0].Participants[0].Name)

	require.NoError(t, bob.MarkRead(ctx, "c1", []string{sent.ID}))
	convs, err = bob.ListConversations(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, convs[0].UnreadCount)
	assert.Len(t, server.Messages("c1")[0].ReadBy, 1)
}

func TestChatServer_RejectsNonParticipants(t *testing.T) {
	f := seededServer(t)
	carolToken := f.server.AddUser("carol", "Carol")
	carol := api.NewClient(f.url, auth.NewSession(carolToken, "carol", "Carol"), 5*time.Second)

	_, err := carol.SendMessage(context.Background(), models.SendMessageRequest{ConversationID: "c1", Content: "let me in"})

	require.Error(t, err)
	assert.True(t, api.IsStatus(err, http.StatusForbidden))
}

func TestChatServer_EditIsSenderOnly(t *testing.T) {
	f := seededServer(t)
	alice, bob := f.alice, f.bob
	ctx := context.Background()

	sent, err := alice.SendMessage(ctx, models.SendMessageRequest{ConversationID: "c1", Content: "tpyo"})
	require.NoError(t, err)

	_, err = bob.EditMessage(ctx, sent.ID, "hijacked")
	assert.True(t, api.IsStatus(err, http.StatusForbidden))

	edited, err := alice.EditMessage(ctx, sent.ID, "typo")
	require.NoError(t, err)
	assert.Equal(t, "typo", edited.Content)
	assert.NotNil(t, edited.EditedAt)
}

func TestChatServer_ThreadsAndReactions(t *testing.T) {
	f := seededServer(t)
	server, alice, bob := f.server, f.alice, f.bob
	ctx := context.Background()

	thread, err := alice.CreateThread(ctx, models.CreateThreadRequest{ConversationID: "c1", Name: "Plan", Type: models.ThreadTopic})
	require.NoError(t, err)

	_, err = bob.SendMessage(ctx, models.SendMessageRequest{ConversationID: "c1", ThreadID: thread.ID, Content: "in thread"})
	require.NoError(t, err)

	top, err := alice.ListMessages(ctx, "c1")
	require.NoError(t, err)
	assert.Empty(t, top)

	replies, err := alice.ListThreadMessages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)

	threads, err := alice.ListThreads(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, threads, 1)
	assert.Equal(t, 1, threads[0].MessageCount)

	require.NoError(t, alice.AddReaction(ctx, replies[0].ID, "👍"))
	require.NoError(t, alice.AddReaction(ctx, replies[0].ID, "👍"))
	assert.Len(t, server.Messages("c1")[0].Reactions, 1)

	require.NoError(t, alice.RemoveReaction(ctx, replies[0].ID, "👍"))
	assert.Empty(t, server.Messages("c1")[0].Reactions)
}

func TestChatServer_Collaborators(t *testing.T) {
	f := seededServer(t)
	server, alice := f.server, f.alice
	ctx := context.Background()

	ref, err := alice.Upload(ctx, "notes.txt", strings.NewReader("hello file"))
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", ref.Name)

	data, err := alice.Download(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello file", string(data))

	sent, err := alice.SendMessage(ctx, models.SendMessageRequest{ConversationID: "c1", Type: models.MessageFile, FileIDs: []string{ref.ID}})
	require.NoError(t, err)
	require.Len(t, sent.Attachments, 1)
	assert.Equal(t, "notes.txt", sent.Attachments[0].Name)

	require.NoError(t, alice.MoveToTrash(ctx, models.TrashItem{ID: sent.ID, Name: "notes.txt", Type: "message", ModuleID: "chat"}))
	assert.Empty(t, server.Messages("c1"))
	assert.Len(t, server.Trash(), 1)

	result, err := alice.Enforce(ctx, models.GovernanceRequest{ResourceType: "chat_message", ResourceID: "temp-1", Content: "ok"})
	require.NoError(t, err)
	assert.False(t, result.Blocked())

	server.SetViolations(models.PolicyViolation{PolicyID: "p1", PolicyName: "PII", Message: "contains an email address"})
	result, err = alice.Enforce(ctx, models.GovernanceRequest{ResourceType: "chat_message", ResourceID: "temp-2", Content: "a@b.c"})
	require.NoError(t, err)
	assert.True(t, result.Blocked())

	c, err := alice.Classification(ctx, "chat_message", "m1")
	require.NoError(t, err)
	assert.Equal(t, "internal", c.Level)
}

func TestChatServer_FailNext(t *testing.T) {
	f := seededServer(t)
	server, alice := f.server, f.alice
	ctx := context.Background()
	server.FailNext(http.MethodPost, "/api/chat/messages", http.StatusServiceUnavailable)

	_, err := alice.SendMessage(ctx, models.SendMessageRequest{ConversationID: "c1", Content: "first"})
	assert.True(t, api.IsStatus(err, http.StatusServiceUnavailable))

	_, err = alice.SendMessage(ctx, models.SendMessageRequest{ConversationID: "c1", Content: "second"})
	require.NoError(t, err)
	assert.Equal(t, 2, server.Requests(http.MethodPost, "/api/chat/messages"))
	assert.Len(t, server.Messages("c1"), 1)
}

func TestChatServer_RejectsMissingToken(t *testing.T) {
	f := seededServer(t)

	resp, err := http.Get(f.url + "/api/chat/conversations")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
