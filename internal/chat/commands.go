package chat

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vdavid/chatsync/internal/models"
)

const defaultRequestTimeout = 15 * time.Second

// Dependencies wires a Commander to its collaborators. Governance, Trash,
// Drive, Classifier and Transport are optional; a missing Governance means no
// policy check is run.
type Dependencies struct {
	Chat       ChatAPI
	Drive      Drive
	Trash      Trash
	Governance Governance
	Classifier Classifier
	Transport  Transport
	Session    SessionSource

	RequestTimeout time.Duration
	Now            func() time.Time
	NewID          func() string
}

// Commander turns user intents into optimistic state changes plus network
// calls, and reconciles or reverts when the calls finish.
type Commander struct {
	store      *Store
	chat       ChatAPI
	drive      Drive
	trash      Trash
	governance Governance
	classifier Classifier
	transport  Transport
	session    SessionSource
	timeout    time.Duration
	now        func() time.Time
	newID      func() string
}

func NewCommander(store *Store, deps Dependencies) *Commander {
	c := &Commander{
		store:      store,
		chat:       deps.Chat,
		drive:      deps.Drive,
		trash:      deps.Trash,
		governance: deps.Governance,
		classifier: deps.Classifier,
		transport:  deps.Transport,
		session:    deps.Session,
		timeout:    deps.RequestTimeout,
		now:        deps.Now,
		newID:      deps.NewID,
	}
	if c.timeout <= 0 {
		c.timeout = defaultRequestTimeout
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.newID == nil {
		c.newID = func() string { return "temp-" + uuid.NewString() }
	}
	return c
}

// requestContext detaches the network call from the caller, so leaving a
// view never aborts a send, and bounds it by the request timeout.
func (c *Commander) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
}

func (c *Commander) authorize() error {
	_, err := c.session.Token()
	return err
}

func (c *Commander) localUserID() string {
	return c.session.Sender().ID
}

// SendMessage appends a pending message, posts it and reconciles the result.
// A governance violation returns *PolicyViolationError and appends nothing.
// A network failure leaves the message in the failed state for RetryMessage
// or DiscardMessage; it is never retried automatically.
func (c *Commander) SendMessage(ctx context.Context, req models.SendMessageRequest) (msg *models.Message, err error) {
	start := c.now()
	defer func() { observeCommand("send_message", start, err) }()

	if err := c.authorize(); err != nil {
		return nil, err
	}

	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" && len(req.FileIDs) == 0 {
		return nil, ErrEmptyMessage
	}
	if req.ConversationID == "" {
		return nil, ErrNoConversation
	}

	correlationID := c.newID()
	if err := c.checkPolicy(ctx, correlationID, req); err != nil {
		return nil, err
	}

	optimistic := models.Message{
		ID:              correlationID,
		ClientMessageID: correlationID,
		ConversationID:  req.ConversationID,
		ThreadID:        req.ThreadID,
		ReplyToID:       req.ReplyToID,
		Sender:          c.session.Sender(),
		Content:         req.Content,
		Type:            models.MessageText,
		CreatedAt:       c.now(),
		Status:          models.StatusPending,
	}
	if len(req.FileIDs) > 0 {
		if req.Content == "" {
			optimistic.Type = models.MessageFile
		}
		for _, fileID := range req.FileIDs {
			optimistic.Attachments = append(optimistic.Attachments, models.Attachment{FileID: fileID})
		}
	}
	c.store.Dispatch(MessageQueued{Message: optimistic})

	return c.deliver(ctx, optimistic)
}

// RetryMessage re-posts a failed message under its original correlation id.
func (c *Commander) RetryMessage(ctx context.Context, correlationID string) (msg *models.Message, err error) {
	start := c.now()
	defer func() { observeCommand("retry_message", start, err) }()

	if err := c.authorize(); err != nil {
		return nil, err
	}

	m, ok := c.store.State().Message(correlationID)
	if !ok {
		return nil, ErrMessageNotFound
	}
	if m.Status != models.StatusFailed {
		return nil, ErrNotFailed
	}

	c.store.Dispatch(MessageRetried{CorrelationID: correlationID})
	return c.deliver(ctx, m)
}

// DiscardMessage drops a failed message the user gave up on.
func (c *Commander) DiscardMessage(correlationID string) (err error) {
	start := c.now()
	defer func() { observeCommand("discard_message", start, err) }()

	if err := c.authorize(); err != nil {
		return err
	}

	m, ok := c.store.State().Message(correlationID)
	if !ok {
		return ErrMessageNotFound
	}
	if m.Status != models.StatusFailed {
		return ErrNotFailed
	}
	c.store.Dispatch(MessageDiscarded{CorrelationID: correlationID})
	return nil
}

func (c *Commander) deliver(ctx context.Context, m models.Message) (*models.Message, error) {
	req := models.SendMessageRequest{
		ConversationID:  m.ConversationID,
		Content:         m.Content,
		Type:            m.Type,
		ThreadID:        m.ThreadID,
		ReplyToID:       m.ReplyToID,
		ClientMessageID: m.ClientMessageID,
	}
	for _, a := range m.Attachments {
		req.FileIDs = append(req.FileIDs, a.FileID)
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	sent, err := c.chat.SendMessage(reqCtx, req)
	if err != nil {
		log.Printf("Commander: Failed to send message %s: %v", m.ClientMessageID, err)
		c.store.Dispatch(MessageFailed{CorrelationID: m.ClientMessageID, Reason: err.Error()})
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	if sent.ConversationID == "" {
		sent.ConversationID = m.ConversationID
	}
	c.store.Dispatch(MessageConfirmed{CorrelationID: m.ClientMessageID, Message: *sent})
	return sent, nil
}

// checkPolicy fails closed: an unreachable Governance service blocks the send.
func (c *Commander) checkPolicy(ctx context.Context, correlationID string, req models.SendMessageRequest) error {
	if c.governance == nil {
		return nil
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	metadata := map[string]string{"conversationId": req.ConversationID}
	if req.ThreadID != "" {
		metadata["threadId"] = req.ThreadID
	}
	result, err := c.governance.Enforce(reqCtx, models.GovernanceRequest{
		ResourceType: "message",
		ResourceID:   correlationID,
		Content:      req.Content,
		Metadata:     metadata,
	})
	if err != nil {
		return fmt.Errorf("governance check failed: %w", err)
	}
	if result.Blocked() {
		return &PolicyViolationError{Violations: result.Violations}
	}
	return nil
}

// AddReaction shows the reaction immediately and removes it again if the
// server rejects it. Adding an existing reaction is a no-op.
func (c *Commander) AddReaction(ctx context.Context, messageID, emoji string) (err error) {
	start := c.now()
	defer func() { observeCommand("add_reaction", start, err) }()

	reaction, m, err := c.prepareReaction(messageID, emoji)
	if err != nil {
		return err
	}
	if hasReaction(m, reaction) {
		return nil
	}

	c.store.Dispatch(ReactionAdded{Reaction: reaction})

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()
	if err := c.chat.AddReaction(reqCtx, messageID, reaction.Emoji); err != nil {
		log.Printf("Commander: Failed to add reaction %s to %s: %v", reaction.Emoji, messageID, err)
		c.store.Dispatch(ReactionRemoved{Reaction: reaction})
		return fmt.Errorf("failed to add reaction: %w", err)
	}
	return nil
}

// RemoveReaction hides the reaction immediately and restores it if the
// server rejects the removal. Removing a missing reaction is a no-op.
func (c *Commander) RemoveReaction(ctx context.Context, messageID, emoji string) (err error) {
	start := c.now()
	defer func() { observeCommand("remove_reaction", start, err) }()

	reaction, m, err := c.prepareReaction(messageID, emoji)
	if err != nil {
		return err
	}
	index := reactionIndex(m, reaction)
	if index < 0 {
		return nil
	}

	c.store.Dispatch(ReactionRemoved{Reaction: reaction})

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()
	if err := c.chat.RemoveReaction(reqCtx, messageID, reaction.Emoji); err != nil {
		log.Printf("Commander: Failed to remove reaction %s from %s: %v", reaction.Emoji, messageID, err)
		c.store.Dispatch(ReactionRestored{Reaction: reaction, Index: index})
		return fmt.Errorf("failed to remove reaction: %w", err)
	}
	return nil
}

// ToggleReaction adds the local user's reaction or removes it when present.
// It reports whether the reaction is now set.
func (c *Commander) ToggleReaction(ctx context.Context, messageID, emoji string) (bool, error) {
	reaction, m, err := c.prepareReaction(messageID, emoji)
	if err != nil {
		return false, err
	}
	if hasReaction(m, reaction) {
		return false, c.RemoveReaction(ctx, messageID, emoji)
	}
	return true, c.AddReaction(ctx, messageID, emoji)
}

func (c *Commander) prepareReaction(messageID, emoji string) (models.Reaction, models.Message, error) {
	if err := c.authorize(); err != nil {
		return models.Reaction{}, models.Message{}, err
	}

	emoji = strings.TrimSpace(emoji)
	if emoji == "" {
		return models.Reaction{}, models.Message{}, ErrEmptyEmoji
	}

	m, ok := c.store.State().Message(messageID)
	if !ok {
		return models.Reaction{}, models.Message{}, ErrMessageNotFound
	}
	if m.Status != models.StatusSent {
		return models.Reaction{}, models.Message{}, ErrNotSent
	}

	sender := c.session.Sender()
	return models.Reaction{
		MessageID: messageID,
		Emoji:     emoji,
		UserID:    sender.ID,
		UserName:  sender.Name,
	}, m, nil
}

func hasReaction(m models.Message, r models.Reaction) bool {
	return reactionIndex(m, r) >= 0
}

func reactionIndex(m models.Message, r models.Reaction) int {
	for i, existing := range m.Reactions {
		if existing.Matches(r.MessageID, r.Emoji, r.UserID) {
			return i
		}
	}
	return -1
}

// EditMessage replaces the text locally and reverts to the previous text
// and edit timestamp if the server rejects it.
func (c *Commander) EditMessage(ctx context.Context, messageID, newText string) (err error) {
	start := c.now()
	defer func() { observeCommand("edit_message", start, err) }()

	if err := c.authorize(); err != nil {
		return err
	}

	newText = strings.TrimSpace(newText)
	if newText == "" {
		return ErrEmptyMessage
	}

	m, ok := c.store.State().Message(messageID)
	if !ok {
		return ErrMessageNotFound
	}
	if m.Status != models.StatusSent {
		return ErrNotSent
	}
	if m.Sender.ID != c.localUserID() {
		return ErrNotOwner
	}
	if m.Content == newText {
		return nil
	}

	editedAt := c.now()
	c.store.Dispatch(MessageUpdated{
		MessageID:      m.ID,
		ConversationID: m.ConversationID,
		Content:        newText,
		EditedAt:       &editedAt,
	})

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	updated, err := c.chat.EditMessage(reqCtx, m.ID, newText)
	if err != nil {
		log.Printf("Commander: Failed to edit message %s: %v", m.ID, err)
		c.store.Dispatch(MessageUpdated{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
			Content:        m.Content,
			EditedAt:       m.EditedAt,
		})
		return fmt.Errorf("failed to edit message: %w", err)
	}

	if updated != nil && updated.EditedAt != nil {
		c.store.Dispatch(MessageUpdated{
			MessageID:      m.ID,
			ConversationID: m.ConversationID,
			Content:        updated.Content,
			EditedAt:       updated.EditedAt,
		})
	}
	return nil
}

// DeleteMessage removes the message locally, hands it to the Trash service
// and puts it back if that fails.
func (c *Commander) DeleteMessage(ctx context.Context, messageID string) (err error) {
	start := c.now()
	defer func() { observeCommand("delete_message", start, err) }()

	if err := c.authorize(); err != nil {
		return err
	}

	m, ok := c.store.State().Message(messageID)
	if !ok {
		return ErrMessageNotFound
	}
	if m.Status != models.StatusSent {
		return ErrNotSent
	}
	if c.trash == nil {
		return fmt.Errorf("delete message: trash service not configured")
	}

	c.store.Dispatch(MessageRemoved{MessageID: m.ID, ConversationID: m.ConversationID})

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	err = c.trash.MoveToTrash(reqCtx, models.TrashItem{
		ID:       m.ID,
		Name:     trashName(m),
		Type:     "message",
		ModuleID: "chat",
		Metadata: map[string]string{
			"conversationId": m.ConversationID,
			"senderId":       m.Sender.ID,
		},
	})
	if err != nil {
		log.Printf("Commander: Failed to trash message %s: %v", m.ID, err)
		c.store.Dispatch(MessageRestored{Message: m})
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

func trashName(m models.Message) string {
	return snippet(summarize(m), 50)
}

// CreateThread creates a thread in a conversation and, when selectThread is
// set, makes it the active thread.
func (c *Commander) CreateThread(ctx context.Context, req models.CreateThreadRequest, selectThread bool) (thread *models.Thread, err error) {
	start := c.now()
	defer func() { observeCommand("create_thread", start, err) }()

	if err := c.authorize(); err != nil {
		return nil, err
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return nil, ErrEmptyThreadName
	}
	if !req.Type.Valid() {
		return nil, ErrInvalidThreadType
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	created, err := c.chat.CreateThread(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	if created.ConversationID == "" {
		created.ConversationID = req.ConversationID
	}

	events := []Event{ThreadCreated{Thread: *created}}
	if selectThread {
		events = append(events, ThreadSelected{ThreadID: created.ID})
	}
	c.store.Dispatch(events...)
	return created, nil
}

// LoadConversations fetches the conversation list.
func (c *Commander) LoadConversations(ctx context.Context) (conversations []models.Conversation, err error) {
	start := c.now()
	defer func() { observeCommand("load_conversations", start, err) }()

	if err := c.authorize(); err != nil {
		return nil, err
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	conversations, err = c.chat.ListConversations(reqCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversations: %w", err)
	}
	c.store.Dispatch(ConversationsLoaded{Conversations: conversations})
	return conversations, nil
}

// LoadMessages fetches a conversation's messages and merges them by id.
func (c *Commander) LoadMessages(ctx context.Context, conversationID string) (err error) {
	start := c.now()
	defer func() { observeCommand("load_messages", start, err) }()

	if err := c.authorize(); err != nil {
		return err
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	messages, err := c.chat.ListMessages(reqCtx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}
	c.store.Dispatch(MessagesLoaded{ConversationID: conversationID, Messages: messages})
	return nil
}

// SelectConversation makes the conversation active, joins its room and
// loads its messages and threads.
func (c *Commander) SelectConversation(ctx context.Context, conversationID string) error {
	if err := c.authorize(); err != nil {
		return err
	}

	c.store.Dispatch(ConversationSelected{ConversationID: conversationID})

	if c.transport != nil {
		if err := c.transport.JoinRoom(conversationID); err != nil {
			log.Printf("Commander: Failed to join room %s: %v", conversationID, err)
		}
	}

	if err := c.LoadMessages(ctx, conversationID); err != nil {
		return err
	}
	if err := c.LoadThreads(ctx, conversationID); err != nil {
		return err
	}
	if err := c.MarkRead(ctx, conversationID); err != nil {
		log.Printf("Commander: Failed to mark %s as read: %v", conversationID, err)
	}
	return nil
}

func (c *Commander) LoadThreads(ctx context.Context, conversationID string) (err error) {
	start := c.now()
	defer func() { observeCommand("load_threads", start, err) }()

	if err := c.authorize(); err != nil {
		return err
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	threads, err := c.chat.ListThreads(reqCtx, conversationID)
	if err != nil {
		return fmt.Errorf("failed to load threads: %w", err)
	}
	c.store.Dispatch(ThreadsLoaded{ConversationID: conversationID, Threads: threads})
	return nil
}

func (c *Commander) LoadThreadMessages(ctx context.Context, conversationID, threadID string) (err error) {
	start := c.now()
	defer func() { observeCommand("load_thread_messages", start, err) }()

	if err := c.authorize(); err != nil {
		return err
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	messages, err := c.chat.ListThreadMessages(reqCtx, threadID)
	if err != nil {
		return fmt.Errorf("failed to load thread messages: %w", err)
	}
	c.store.Dispatch(ThreadMessagesLoaded{ConversationID: conversationID, ThreadID: threadID, Messages: messages})
	return nil
}

// SelectThread opens a known thread and loads its messages. An empty id
// returns to the conversation's main timeline.
func (c *Commander) SelectThread(ctx context.Context, threadID string) error {
	if err := c.authorize(); err != nil {
		return err
	}

	if threadID == "" {
		c.store.Dispatch(ThreadSelected{})
		return nil
	}

	thread, ok := c.store.State().Thread(threadID)
	if !ok {
		return ErrThreadNotFound
	}

	c.store.Dispatch(ThreadSelected{ThreadID: threadID})
	return c.LoadThreadMessages(ctx, thread.ConversationID, threadID)
}

// MarkRead clears the unread counter locally and reports the read to the server.
func (c *Commander) MarkRead(ctx context.Context, conversationID string) (err error) {
	start := c.now()
	defer func() { observeCommand("mark_read", start, err) }()

	if err := c.authorize(); err != nil {
		return err
	}

	c.store.Dispatch(ConversationRead{ConversationID: conversationID})

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	if err := c.chat.MarkRead(reqCtx, conversationID, c.unreadMessageIDs(conversationID)); err != nil {
		return fmt.Errorf("failed to mark conversation as read: %w", err)
	}
	return nil
}

// unreadMessageIDs lists delivered messages from others without our receipt.
func (c *Commander) unreadMessageIDs(conversationID string) []string {
	me := c.localUserID()
	var ids []string
	for _, m := range c.store.State().Messages[conversationID] {
		if m.Status != models.StatusSent || m.Sender.ID == me {
			continue
		}
		read := false
		for _, r := range m.ReadBy {
			if r.UserID == me {
				read = true
				break
			}
		}
		if !read {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// UploadAttachment stores a file in Drive; send its id with SendMessage.
func (c *Commander) UploadAttachment(ctx context.Context, name string, content io.Reader) (ref *models.FileRef, err error) {
	start := c.now()
	defer func() { observeCommand("upload_attachment", start, err) }()

	if err := c.authorize(); err != nil {
		return nil, err
	}
	if c.drive == nil {
		return nil, fmt.Errorf("upload attachment: drive service not configured")
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	ref, err = c.drive.Upload(reqCtx, name, content)
	if err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}
	return ref, nil
}

func (c *Commander) DownloadAttachment(ctx context.Context, fileID string) (data []byte, err error) {
	start := c.now()
	defer func() { observeCommand("download_attachment", start, err) }()

	if err := c.authorize(); err != nil {
		return nil, err
	}
	if c.drive == nil {
		return nil, fmt.Errorf("download attachment: drive service not configured")
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	data, err = c.drive.Download(reqCtx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to download attachment: %w", err)
	}
	return data, nil
}

// Classification looks up a message's sensitivity label. Read-only.
func (c *Commander) Classification(ctx context.Context, messageID string) (classification *models.Classification, err error) {
	start := c.now()
	defer func() { observeCommand("classification", start, err) }()

	if err := c.authorize(); err != nil {
		return nil, err
	}
	if c.classifier == nil {
		return nil, fmt.Errorf("classification: retention service not configured")
	}

	reqCtx, cancel := c.requestContext(ctx)
	defer cancel()

	classification, err = c.classifier.Classification(reqCtx, "message", messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load classification: %w", err)
	}
	return classification, nil
}
