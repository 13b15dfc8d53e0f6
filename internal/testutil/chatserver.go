package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/vdavid/chatsync/internal/auth"
	"github.com/vdavid/chatsync/internal/models"
	"github.com/vdavid/chatsync/internal/validation"
	ws "github.com/vdavid/chatsync/internal/websocket"
)

const maxUploadSize = 10 << 20

var wsUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type storedFile struct {
	ref     models.FileRef
	content []byte
}

// ChatServer is an in-memory chat backend speaking the same REST and socket
// protocol as the real one, plus the Drive, Trash, Governance and Retention
// endpoints the client calls. It is meant for tests and local development.
type ChatServer struct {
	tokens *auth.TokenService
	hub    *ws.Hub
	router chi.Router
	now    func() time.Time

	mu              sync.Mutex
	nextID          int
	users           map[string]models.Sender
	conversations   []models.Conversation
	unread          map[string]map[string]int // conversationID -> userID -> count
	messages        map[string][]models.Message
	threads         map[string][]models.Thread
	files           map[string]storedFile
	trash           []models.TrashItem
	violations      []models.PolicyViolation
	classifications map[string]models.Classification
	failures        map[string][]int // "METHOD pattern" -> queued status codes
	requests        map[string]int
}

// NewChatServer creates a backend whose tokens are signed with secret.
func NewChatServer(secret string) *ChatServer {
	s := &ChatServer{
		tokens:          auth.NewTokenService(secret, 24*time.Hour),
		hub:             ws.NewHub(10),
		now:             time.Now,
		users:           make(map[string]models.Sender),
		unread:          make(map[string]map[string]int),
		messages:        make(map[string][]models.Message),
		threads:         make(map[string][]models.Thread),
		files:           make(map[string]storedFile),
		classifications: make(map[string]models.Classification),
		failures:        make(map[string][]int),
		requests:        make(map[string]int),
	}
	s.router = s.routes()
	return s
}

// StartChatServer runs a ChatServer on an httptest listener that is closed
// when the test finishes. It returns the server and its base URL.
func StartChatServer(t testing.TB) (*ChatServer, string) {
	t.Helper()

	s := NewChatServer("test-secret")
	server := httptest.NewServer(s)
	t.Cleanup(func() {
		s.hub.CloseAll()
		server.Close()
	})
	return s, server.URL
}

func (s *ChatServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *ChatServer) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(s.tokens))

		r.Get("/api/chat/ws", s.handleSocket)

		r.Get("/api/chat/conversations", s.handleListConversations)
		r.Get("/api/chat/conversations/{id}/messages", s.handleListMessages)
		r.Get("/api/chat/conversations/{id}/threads", s.handleListThreads)
		r.Post("/api/chat/conversations/{id}/threads", s.handleCreateThread)
		r.Post("/api/chat/conversations/{id}/read", s.handleMarkRead)
		r.Post("/api/chat/messages", s.handleSendMessage)
		r.Patch("/api/chat/messages/{id}", s.handleEditMessage)
		r.Post("/api/chat/messages/{id}/reactions", s.handleAddReaction)
		r.Delete("/api/chat/messages/{id}/reactions", s.handleRemoveReaction)
		r.Get("/api/chat/threads/{id}/messages", s.handleListThreadMessages)

		r.Post("/api/drive/files", s.handleUpload)
		r.Get("/api/drive/files/{id}/content", s.handleDownload)
		r.Post("/api/trash/items", s.handleTrash)
		r.Post("/api/governance/enforce", s.handleEnforce)
		r.Get("/api/retention/classifications/{type}/{id}", s.handleClassification)
	})

	return r
}

// Seeding and inspection.

// AddUser registers a user and returns a signed access token for them.
func (s *ChatServer) AddUser(id, name string) string {
	s.mu.Lock()
	s.users[id] = models.Sender{ID: id, Name: name}
	s.mu.Unlock()

	token, err := s.tokens.CreateForUser(id, name)
	if err != nil {
		panic(fmt.Sprintf("failed to sign token for %s: %v", id, err))
	}
	return token
}

// AddConversation seeds a conversation. Participants must already be users.
func (s *ChatServer) AddConversation(conv models.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv.Participants = slices.Clone(conv.Participants)
	for i, p := range conv.Participants {
		if p.Name == "" {
			conv.Participants[i].Name = s.users[p.UserID].Name
		}
	}
	conv.UnreadCount = 0
	s.conversations = append(s.conversations, conv)
	s.unread[conv.ID] = make(map[string]int)
}

// SetViolations makes every subsequent governance check return violations.
func (s *ChatServer) SetViolations(violations ...models.PolicyViolation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = violations
}

func (s *ChatServer) SetClassification(c models.Classification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classifications[c.ResourceID] = c
}

// FailNext makes the next request to the route fail with status. Routes are
// identified by method and pattern, e.g. ("POST", "/api/chat/messages").
func (s *ChatServer) FailNext(method, pattern string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + pattern
	s.failures[key] = append(s.failures[key], status)
}

// Requests returns how many requests reached the route.
func (s *ChatServer) Requests(method, pattern string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[method+" "+pattern]
}

// Messages returns a copy of every stored message of the conversation.
func (s *ChatServer) Messages(conversationID string) []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages[conversationID])
}

func (s *ChatServer) Trash() []models.TrashItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.trash)
}

// RoomSize returns how many sockets joined the conversation room.
func (s *ChatServer) RoomSize(conversationID string) int {
	return s.hub.RoomSize(conversationID)
}

// Connections returns how many sockets the user has open.
func (s *ChatServer) Connections(userID string) int {
	return s.hub.ActiveConnections(userID)
}

// DropConnections closes every socket, forcing clients to reconnect.
func (s *ChatServer) DropConnections() {
	s.hub.CloseAll()
}

// Socket.

func (s *ChatServer) handleSocket(w http.ResponseWriter, r *http.Request) {
	identity, _ := auth.IdentityFromContext(r.Context())

	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ChatServer: failed to upgrade connection for user %s: %v", identity.UserID, err)
		return
	}

	client := s.hub.Register(identity.UserID, conn)
	if client == nil {
		return
	}
	if s.hub.ActiveConnections(identity.UserID) == 1 {
		s.announcePresence(identity.UserID, true)
	}

	go s.readLoop(identity, client)
}

func (s *ChatServer) readLoop(identity auth.Identity, client *ws.Client) {
	defer func() {
		s.hub.Unregister(client)
		if s.hub.ActiveConnections(identity.UserID) == 0 {
			s.announcePresence(identity.UserID, false)
		}
	}()

	for {
		_, data, err := client.Conn().ReadMessage()
		if err != nil {
			return
		}

		var envelope models.Envelope
		if err := json.Unmarshal(data, &envelope); err != nil {
			s.sendError(client, "malformed frame")
			continue
		}

		switch envelope.Event {
		case models.EventJoinConversation:
			var p models.JoinConversationPayload
			if err := json.Unmarshal(envelope.Data, &p); err != nil || !s.isMember(p.ConversationID, identity.UserID) {
				s.sendError(client, "cannot join conversation")
				continue
			}
			s.hub.Join(client, p.ConversationID)

		case models.EventTypingStart, models.EventTypingStop:
			var p models.TypingPayload
			if err := json.Unmarshal(envelope.Data, &p); err != nil || p.ConversationID == "" {
				continue
			}
			event := models.EventUserTyping
			if envelope.Event == models.EventTypingStop {
				event = models.EventUserStoppedTyping
			}
			s.broadcast(p.ConversationID, event, models.TypingPayload{
				ConversationID: p.ConversationID,
				UserID:         identity.UserID,
				UserName:       identity.Name,
				IsTyping:       event == models.EventUserTyping,
			}, client)

		default:
			s.sendError(client, "unknown event "+envelope.Event)
		}
	}
}

// announcePresence tells every conversation the user belongs to that they
// came online or went offline.
func (s *ChatServer) announcePresence(userID string, online bool) {
	s.mu.Lock()
	var rooms []string
	for _, conv := range s.conversations {
		if participates(conv, userID) {
			rooms = append(rooms, conv.ID)
		}
	}
	s.mu.Unlock()

	for _, room := range rooms {
		s.broadcast(room, models.EventPresence, models.PresencePayload{UserID: userID, Online: online}, nil)
	}
}

func (s *ChatServer) sendError(client *ws.Client, message string) {
	frame, err := encodeFrame(models.EventError, models.ErrorPayload{Message: message})
	if err != nil {
		return
	}
	_ = client.Write(frame)
}

func (s *ChatServer) broadcast(room, event string, data any, skip *ws.Client) {
	frame, err := encodeFrame(event, data)
	if err != nil {
		log.Printf("ChatServer: failed to encode %s: %v", event, err)
		return
	}
	s.hub.Broadcast(room, frame, skip)
}

func encodeFrame(event string, data any) ([]byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.Envelope{Event: event, Data: raw})
}

// Chat REST.

func (s *ChatServer) handleListConversations(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())

	s.mu.Lock()
	result := make([]models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		if participates(conv, identity.UserID) {
			conv.Participants = slices.Clone(conv.Participants)
			conv.UnreadCount = s.unread[conv.ID][identity.UserID]
			result = append(result, conv)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (s *ChatServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	conversationID := chi.URLParam(r, "id")
	if !s.isMember(conversationID, identity.UserID) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	s.mu.Lock()
	result := make([]models.Message, 0)
	for _, m := range s.messages[conversationID] {
		if m.ThreadID == "" {
			result = append(result, m)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (s *ChatServer) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())

	var req models.SendMessageRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" && len(req.FileIDs) == 0 {
		writeError(w, http.StatusBadRequest, "message must have content or attachments")
		return
	}
	if !s.isMember(req.ConversationID, identity.UserID) {
		writeError(w, http.StatusForbidden, "not a participant")
		return
	}

	s.mu.Lock()
	msg := models.Message{
		ID:              s.newID("msg"),
		ConversationID:  req.ConversationID,
		ThreadID:        req.ThreadID,
		Sender:          s.sender(identity),
		Content:         req.Content,
		Type:            req.Type,
		CreatedAt:       s.now().UTC(),
		ReplyToID:       req.ReplyToID,
		ClientMessageID: req.ClientMessageID,
	}
	if msg.Type == "" {
		msg.Type = models.MessageText
	}
	for _, fileID := range req.FileIDs {
		file, ok := s.files[fileID]
		if !ok {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, "unknown file "+fileID)
			return
		}
		msg.Attachments = append(msg.Attachments, models.Attachment{
			FileID:   file.ref.ID,
			Name:     file.ref.Name,
			MimeType: file.ref.MimeType,
			Size:     file.ref.Size,
		})
	}
	if msg.ThreadID != "" && !s.touchThreadLocked(msg) {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	s.messages[msg.ConversationID] = append(s.messages[msg.ConversationID], msg)
	s.touchConversationLocked(msg)
	s.mu.Unlock()

	s.broadcast(msg.ConversationID, models.EventMessage, msg, nil)
	writeJSON(w, http.StatusCreated, msg)
}

func (s *ChatServer) handleEditMessage(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())

	var req models.EditMessageRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	s.mu.Lock()
	msg, ok := s.findMessageLocked(chi.URLParam(r, "id"))
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	if msg.Sender.ID != identity.UserID {
		s.mu.Unlock()
		writeError(w, http.StatusForbidden, "only the sender can edit a message")
		return
	}
	editedAt := s.now().UTC()
	msg.Content = req.Content
	msg.EditedAt = &editedAt
	updated := *msg
	s.mu.Unlock()

	s.broadcast(updated.ConversationID, models.EventMessageUpdated, updated, nil)
	writeJSON(w, http.StatusOK, updated)
}

func (s *ChatServer) handleAddReaction(w http.ResponseWriter, r *http.Request) {
	s.handleReaction(w, r, models.ReactionActionAdd)
}

func (s *ChatServer) handleRemoveReaction(w http.ResponseWriter, r *http.Request) {
	s.handleReaction(w, r, models.ReactionActionRemove)
}

func (s *ChatServer) handleReaction(w http.ResponseWriter, r *http.Request, action string) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())

	var emoji string
	if action == models.ReactionActionAdd {
		var req models.ReactionRequest
		if !decodeRequest(w, r, &req) {
			return
		}
		emoji = req.Emoji
	} else {
		emoji = r.URL.Query().Get("emoji")
		if emoji == "" {
			writeError(w, http.StatusBadRequest, "emoji is required")
			return
		}
	}

	s.mu.Lock()
	msg, ok := s.findMessageLocked(chi.URLParam(r, "id"))
	if !ok {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "message not found")
		return
	}
	reaction := models.Reaction{MessageID: msg.ID, Emoji: emoji, UserID: identity.UserID, UserName: identity.Name}
	idx := slices.IndexFunc(msg.Reactions, func(existing models.Reaction) bool {
		return existing.Matches(reaction.MessageID, reaction.Emoji, reaction.UserID)
	})
	changed := false
	switch {
	case action == models.ReactionActionAdd && idx < 0:
		msg.Reactions = append(msg.Reactions, reaction)
		changed = true
	case action == models.ReactionActionRemove && idx >= 0:
		msg.Reactions = slices.Delete(msg.Reactions, idx, idx+1)
		changed = true
	}
	conversationID := msg.ConversationID
	s.mu.Unlock()

	if changed {
		s.broadcast(conversationID, models.EventMessageReaction, models.ReactionPayload{
			MessageID:      reaction.MessageID,
			ConversationID: conversationID,
			Emoji:          reaction.Emoji,
			UserID:         reaction.UserID,
			UserName:       reaction.UserName,
			Action:         action,
		}, nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatServer) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	conversationID := chi.URLParam(r, "id")
	if !s.isMember(conversationID, identity.UserID) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	var req models.MarkReadRequest
	if r.ContentLength != 0 && !decodeRequest(w, r, &req) {
		return
	}

	readAt := s.now().UTC()
	var receipts []models.ReadReceiptPayload

	s.mu.Lock()
	s.unread[conversationID][identity.UserID] = 0
	msgs := s.messages[conversationID]
	for i := range msgs {
		if !slices.Contains(req.MessageIDs, msgs[i].ID) {
			continue
		}
		if slices.ContainsFunc(msgs[i].ReadBy, func(rr models.ReadReceipt) bool { return rr.UserID == identity.UserID }) {
			continue
		}
		msgs[i].ReadBy = append(msgs[i].ReadBy, models.ReadReceipt{UserID: identity.UserID, ReadAt: readAt})
		receipts = append(receipts, models.ReadReceiptPayload{
			ConversationID: conversationID,
			MessageID:      msgs[i].ID,
			UserID:         identity.UserID,
			ReadAt:         readAt,
		})
	}
	s.mu.Unlock()

	for _, receipt := range receipts {
		s.broadcast(conversationID, models.EventReadReceipt, receipt, nil)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatServer) handleListThreads(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	conversationID := chi.URLParam(r, "id")
	if !s.isMember(conversationID, identity.UserID) {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	s.mu.Lock()
	result := append(make([]models.Thread, 0), s.threads[conversationID]...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (s *ChatServer) handleCreateThread(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	conversationID := chi.URLParam(r, "id")

	var req models.CreateThreadRequest
	if !decodeRequest(w, r, &req) {
		return
	}
	if req.ConversationID != conversationID {
		writeError(w, http.StatusBadRequest, "conversation id mismatch")
		return
	}
	if !s.isMember(conversationID, identity.UserID) {
		writeError(w, http.StatusForbidden, "not a participant")
		return
	}

	s.mu.Lock()
	createdAt := s.now().UTC()
	thread := models.Thread{
		ID:             s.newID("thread"),
		ConversationID: conversationID,
		Name:           req.Name,
		Type:           req.Type,
		Participants:   append([]string{identity.UserID}, req.ParticipantIDs...),
		LastActivityAt: &createdAt,
		CreatedBy:      identity.UserID,
	}
	s.threads[conversationID] = append(s.threads[conversationID], thread)
	s.mu.Unlock()

	s.broadcast(conversationID, models.EventThreadCreated, thread, nil)
	writeJSON(w, http.StatusCreated, thread)
}

func (s *ChatServer) handleListThreadMessages(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())
	threadID := chi.URLParam(r, "id")

	s.mu.Lock()
	thread, ok := s.findThreadLocked(threadID)
	if !ok || !participatesLocked(s.conversations, thread.ConversationID, identity.UserID) {
		s.mu.Unlock()
		writeError(w, http.StatusNotFound, "thread not found")
		return
	}
	result := make([]models.Message, 0)
	for _, m := range s.messages[thread.ConversationID] {
		if m.ThreadID == threadID {
			result = append(result, m)
		}
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

// Collaborating services.

func (s *ChatServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer func() { _ = file.Close() }()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	s.mu.Lock()
	ref := models.FileRef{
		ID:       s.newID("file"),
		Name:     header.Filename,
		MimeType: http.DetectContentType(content),
		Size:     int64(len(content)),
	}
	s.files[ref.ID] = storedFile{ref: ref, content: content}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, ref)
}

func (s *ChatServer) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}

	s.mu.Lock()
	file, ok := s.files[chi.URLParam(r, "id")]
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	w.Header().Set("Content-Type", file.ref.MimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.content)
}

func (s *ChatServer) handleTrash(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	identity, _ := auth.IdentityFromContext(r.Context())

	var item models.TrashItem
	if !decodeRequest(w, r, &item) {
		return
	}

	var deleted *models.MessageDeletedPayload
	s.mu.Lock()
	if item.Type == "message" {
		msg, ok := s.findMessageLocked(item.ID)
		if !ok {
			s.mu.Unlock()
			writeError(w, http.StatusNotFound, "message not found")
			return
		}
		if msg.Sender.ID != identity.UserID {
			s.mu.Unlock()
			writeError(w, http.StatusForbidden, "only the sender can delete a message")
			return
		}
		conversationID := msg.ConversationID
		s.messages[conversationID] = slices.DeleteFunc(s.messages[conversationID], func(m models.Message) bool {
			return m.ID == item.ID
		})
		deleted = &models.MessageDeletedPayload{MessageID: item.ID, ConversationID: conversationID}
	}
	s.trash = append(s.trash, item)
	s.mu.Unlock()

	if deleted != nil {
		s.broadcast(deleted.ConversationID, models.EventMessageDeleted, deleted, nil)
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *ChatServer) handleEnforce(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}

	var req models.GovernanceRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	s.mu.Lock()
	result := models.GovernanceResult{Violations: append(make([]models.PolicyViolation, 0), s.violations...)}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, result)
}

func (s *ChatServer) handleClassification(w http.ResponseWriter, r *http.Request) {
	if s.injectFailure(w, r) {
		return
	}
	resourceID := chi.URLParam(r, "id")

	s.mu.Lock()
	c, ok := s.classifications[resourceID]
	s.mu.Unlock()
	if !ok {
		c = models.Classification{ResourceID: resourceID, Level: "internal"}
	}

	writeJSON(w, http.StatusOK, c)
}

// Helpers. Callers of the *Locked helpers hold s.mu.

func (s *ChatServer) injectFailure(w http.ResponseWriter, r *http.Request) bool {
	key := r.Method + " " + chi.RouteContext(r.Context()).RoutePattern()

	s.mu.Lock()
	s.requests[key]++
	queued := s.failures[key]
	if len(queued) == 0 {
		s.mu.Unlock()
		return false
	}
	status := queued[0]
	s.failures[key] = queued[1:]
	s.mu.Unlock()

	writeError(w, status, "injected failure")
	return true
}

func (s *ChatServer) newID(prefix string) string {
	s.nextID++
	return fmt.Sprintf("%s-%d", prefix, s.nextID)
}

func (s *ChatServer) sender(identity auth.Identity) models.Sender {
	if sender, ok := s.users[identity.UserID]; ok {
		return sender
	}
	return models.Sender{ID: identity.UserID, Name: identity.Name}
}

func (s *ChatServer) isMember(conversationID, userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return participatesLocked(s.conversations, conversationID, userID)
}

func participatesLocked(conversations []models.Conversation, conversationID, userID string) bool {
	for _, conv := range conversations {
		if conv.ID == conversationID {
			return participates(conv, userID)
		}
	}
	return false
}

func participates(conv models.Conversation, userID string) bool {
	return slices.ContainsFunc(conv.Participants, func(p models.Participant) bool { return p.UserID == userID })
}

func (s *ChatServer) findMessageLocked(id string) (*models.Message, bool) {
	for conversationID, msgs := range s.messages {
		for i := range msgs {
			if msgs[i].ID == id {
				return &s.messages[conversationID][i], true
			}
		}
	}
	return nil, false
}

func (s *ChatServer) findThreadLocked(id string) (*models.Thread, bool) {
	for conversationID, threads := range s.threads {
		for i := range threads {
			if threads[i].ID == id {
				return &s.threads[conversationID][i], true
			}
		}
	}
	return nil, false
}

func (s *ChatServer) touchThreadLocked(msg models.Message) bool {
	thread, ok := s.findThreadLocked(msg.ThreadID)
	if !ok || thread.ConversationID != msg.ConversationID {
		return false
	}
	createdAt := msg.CreatedAt
	thread.MessageCount++
	thread.LastActivityAt = &createdAt
	return true
}

func (s *ChatServer) touchConversationLocked(msg models.Message) {
	for i := range s.conversations {
		conv := &s.conversations[i]
		if conv.ID != msg.ConversationID {
			continue
		}
		createdAt := msg.CreatedAt
		conv.LastMessage = msg.Content
		conv.LastMessageAt = &createdAt
		for _, p := range conv.Participants {
			if p.UserID != msg.Sender.ID {
				s.unread[conv.ID][p.UserID]++
			}
		}
		return
	}
}

func decodeRequest(w http.ResponseWriter, r *http.Request, out any) bool {
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validation.Struct(out); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ChatServer: failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
