package chat

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/chatsync/internal/models"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (r *recordingEmitter) Emit(event string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	payload := data.(models.TypingPayload)
	r.events = append(r.events, event+":"+payload.ConversationID)
	return r.err
}

func (r *recordingEmitter) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func TestTypingNotifierThrottlesStart(t *testing.T) {
	emitter := &recordingEmitter{}
	notifier := NewTypingNotifier(emitter, time.Minute)
	defer notifier.Close()

	for i := 0; i < 10; i++ {
		notifier.Keystroke("c1")
	}

	assert.Equal(t, []string{"typing_start:c1"}, emitter.recorded())
}

func TestTypingNotifierStopsAfterInactivity(t *testing.T) {
	emitter := &recordingEmitter{}
	notifier := NewTypingNotifier(emitter, 50*time.Millisecond)
	defer notifier.Close()

	notifier.Keystroke("c1")

	require.Eventually(t, func() bool {
		return len(emitter.recorded()) == 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"typing_start:c1", "typing_stop:c1"}, emitter.recorded())
}

func TestTypingNotifierExplicitStop(t *testing.T) {
	emitter := &recordingEmitter{}
	notifier := NewTypingNotifier(emitter, time.Minute)
	defer notifier.Close()

	notifier.Keystroke("c1")
	notifier.Stop("c1")
	notifier.Stop("c1")

	assert.Equal(t, []string{"typing_start:c1", "typing_stop:c1"}, emitter.recorded())
}

func TestTypingNotifierIgnoresEmitErrors(t *testing.T) {
	emitter := &recordingEmitter{err: errors.New("not connected")}
	notifier := NewTypingNotifier(emitter, time.Minute)
	defer notifier.Close()

	notifier.Keystroke("c1")
	notifier.Keystroke("")

	assert.Equal(t, []string{"typing_start:c1"}, emitter.recorded())
}
