package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vdavid/chatsync/internal/models"
	"github.com/vdavid/chatsync/internal/validation"
)

func (c *Client) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	var conversations []models.Conversation
	if err := c.do(ctx, http.MethodGet, "/api/chat/conversations", nil, &conversations); err != nil {
		return nil, err
	}
	if conversations == nil {
		conversations = []models.Conversation{}
	}
	return conversations, nil
}

func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	var messages []models.Message
	path := "/api/chat/conversations/" + url.PathEscape(conversationID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

func (c *Client) SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = models.MessageText
	}

	var message models.Message
	if err := c.do(ctx, http.MethodPost, "/api/chat/messages", req, &message); err != nil {
		return nil, err
	}
	if message.ID == "" {
		return nil, fmt.Errorf("send message: server returned a message without id")
	}
	return &message, nil
}

func (c *Client) EditMessage(ctx context.Context, messageID, content string) (*models.Message, error) {
	req := models.EditMessageRequest{Content: content}
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	var message models.Message
	path := "/api/chat/messages/" + url.PathEscape(messageID)
	if err := c.do(ctx, http.MethodPatch, path, req, &message); err != nil {
		return nil, err
	}
	return &message, nil
}

func (c *Client) ListThreads(ctx context.Context, conversationID string) ([]models.Thread, error) {
	var threads []models.Thread
	path := "/api/chat/conversations/" + url.PathEscape(conversationID) + "/threads"
	if err := c.do(ctx, http.MethodGet, path, nil, &threads); err != nil {
		return nil, err
	}
	if threads == nil {
		threads = []models.Thread{}
	}
	return threads, nil
}

func (c *Client) CreateThread(ctx context.Context, req models.CreateThreadRequest) (*models.Thread, error) {
	if err := validation.Struct(&req); err != nil {
		return nil, err
	}

	var thread models.Thread
	path := "/api/chat/conversations/" + url.PathEscape(req.ConversationID) + "/threads"
	if err := c.do(ctx, http.MethodPost, path, req, &thread); err != nil {
		return nil, err
	}
	if thread.ID == "" {
		return nil, fmt.Errorf("create thread: server returned a thread without id")
	}
	return &thread, nil
}

func (c *Client) ListThreadMessages(ctx context.Context, threadID string) ([]models.Message, error) {
	var messages []models.Message
	path := "/api/chat/threads/" + url.PathEscape(threadID) + "/messages"
	if err := c.do(ctx, http.MethodGet, path, nil, &messages); err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

func (c *Client) AddReaction(ctx context.Context, messageID, emoji string) error {
	req := models.ReactionRequest{Emoji: emoji}
	if err := validation.Struct(&req); err != nil {
		return err
	}
	path := "/api/chat/messages/" + url.PathEscape(messageID) + "/reactions"
	return c.do(ctx, http.MethodPost, path, req, nil)
}

func (c *Client) RemoveReaction(ctx context.Context, messageID, emoji string) error {
	path := "/api/chat/messages/" + url.PathEscape(messageID) + "/reactions?emoji=" + url.QueryEscape(emoji)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) MarkRead(ctx context.Context, conversationID string, messageIDs []string) error {
	path := "/api/chat/conversations/" + url.PathEscape(conversationID) + "/read"
	return c.do(ctx, http.MethodPost, path, models.MarkReadRequest{MessageIDs: messageIDs}, nil)
}
