package chat

import (
	"context"
	"io"

	"github.com/vdavid/chatsync/internal/models"
)

// ChatAPI is the chat backend's REST surface.
type ChatAPI interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)
	SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error)
	EditMessage(ctx context.Context, messageID, content string) (*models.Message, error)
	ListThreads(ctx context.Context, conversationID string) ([]models.Thread, error)
	CreateThread(ctx context.Context, req models.CreateThreadRequest) (*models.Thread, error)
	ListThreadMessages(ctx context.Context, threadID string) ([]models.Message, error)
	AddReaction(ctx context.Context, messageID, emoji string) error
	RemoveReaction(ctx context.Context, messageID, emoji string) error
	MarkRead(ctx context.Context, conversationID string, messageIDs []string) error
}

type Drive interface {
	Upload(ctx context.Context, name string, content io.Reader) (*models.FileRef, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type Trash interface {
	MoveToTrash(ctx context.Context, item models.TrashItem) error
}

type Governance interface {
	Enforce(ctx context.Context, req models.GovernanceRequest) (*models.GovernanceResult, error)
}

type Classifier interface {
	Classification(ctx context.Context, resourceType, resourceID string) (*models.Classification, error)
}

// Emitter sends client events over the live socket.
type Emitter interface {
	Emit(event string, data any) error
}

// Transport is the part of the connection manager commands need.
type Transport interface {
	Emitter
	JoinRoom(conversationID string) error
}

// SessionSource provides the access token and the local user's identity.
type SessionSource interface {
	Token() (string, error)
	Sender() models.Sender
}
