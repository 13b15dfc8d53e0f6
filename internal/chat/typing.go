package chat

import (
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/vdavid/chatsync/internal/models"
)

const defaultTypingTimeout = 3 * time.Second

// TypingNotifier tells the room when the local user is typing. Keystrokes
// send typing_start at most once per half timeout; typing_stop follows after
// the timeout passes with no keystroke, or right away via Stop.
type TypingNotifier struct {
	emitter Emitter
	timeout time.Duration

	mu       sync.Mutex
	sessions map[string]*typingSession
}

type typingSession struct {
	limiter *rate.Limiter
	timer   *time.Timer
	// keystrokes invalidates timers that fired while a newer keystroke held the lock.
	keystrokes int
}

func NewTypingNotifier(emitter Emitter, timeout time.Duration) *TypingNotifier {
	if timeout <= 0 {
		timeout = defaultTypingTimeout
	}
	return &TypingNotifier{
		emitter:  emitter,
		timeout:  timeout,
		sessions: make(map[string]*typingSession),
	}
}

func (n *TypingNotifier) Keystroke(conversationID string) {
	if conversationID == "" {
		return
	}

	n.mu.Lock()
	session, ok := n.sessions[conversationID]
	if !ok {
		session = &typingSession{limiter: rate.NewLimiter(rate.Every(n.timeout/2), 1)}
		n.sessions[conversationID] = session
	}
	announce := session.limiter.Allow()
	if session.timer != nil {
		session.timer.Stop()
	}
	session.keystrokes++
	seen := session.keystrokes
	session.timer = time.AfterFunc(n.timeout, func() { n.expire(conversationID, session, seen) })
	n.mu.Unlock()

	if announce {
		n.emit(models.EventTypingStart, conversationID, true)
	}
}

// Stop ends the typing state immediately, e.g. after the message was sent.
func (n *TypingNotifier) Stop(conversationID string) {
	n.mu.Lock()
	session, ok := n.sessions[conversationID]
	if ok {
		session.timer.Stop()
		delete(n.sessions, conversationID)
	}
	n.mu.Unlock()

	if ok {
		n.emit(models.EventTypingStop, conversationID, false)
	}
}

// Close cancels pending timers without notifying anyone.
func (n *TypingNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for id, session := range n.sessions {
		session.timer.Stop()
		delete(n.sessions, id)
	}
}

func (n *TypingNotifier) expire(conversationID string, session *typingSession, seen int) {
	n.mu.Lock()
	if n.sessions[conversationID] != session || session.keystrokes != seen {
		n.mu.Unlock()
		return
	}
	delete(n.sessions, conversationID)
	n.mu.Unlock()

	n.emit(models.EventTypingStop, conversationID, false)
}

// emit drops the event when offline; typing state is not worth queueing.
func (n *TypingNotifier) emit(event, conversationID string, isTyping bool) {
	err := n.emitter.Emit(event, models.TypingPayload{ConversationID: conversationID, IsTyping: isTyping})
	if err != nil {
		log.Printf("Typing: Dropped %s for %s: %v", event, conversationID, err)
	}
}
