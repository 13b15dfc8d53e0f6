package chat

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreDispatch(t *testing.T) {
	store := NewStore(newTestState())

	next := store.Dispatch(
		MessageCreated{Message: newMessage("m1", "c1", "bob", 1)},
		MessageCreated{Message: newMessage("m2", "c1", "bob", 2)},
	)

	assert.Same(t, next, store.State())
	assert.Equal(t, []string{"m1", "m2"}, messageIDs(store.State().Messages["c1"]))
}

func TestStoreSubscribe(t *testing.T) {
	t.Run("delivers the latest snapshot only", func(t *testing.T) {
		store := NewStore(newTestState())
		updates, unsubscribe := store.Subscribe()
		defer unsubscribe()

		store.Dispatch(MessageCreated{Message: newMessage("m1", "c1", "bob", 1)})
		store.Dispatch(MessageCreated{Message: newMessage("m2", "c1", "bob", 2)})

		select {
		case st := <-updates:
			assert.Len(t, st.Messages["c1"], 2)
		case <-time.After(time.Second):
			t.Fatal("expected a snapshot")
		}

		select {
		case <-updates:
			t.Fatal("intermediate snapshot should have been replaced")
		default:
		}
	})

	t.Run("no notification when nothing changed", func(t *testing.T) {
		store := NewStore(newTestState())
		updates, unsubscribe := store.Subscribe()
		defer unsubscribe()

		store.Dispatch(MessageDeleted{MessageID: "missing", ConversationID: "c1"})

		select {
		case <-updates:
			t.Fatal("unexpected snapshot")
		default:
		}
	})

	t.Run("unsubscribe closes the channel", func(t *testing.T) {
		store := NewStore(newTestState())
		updates, unsubscribe := store.Subscribe()

		unsubscribe()
		unsubscribe()

		_, open := <-updates
		assert.False(t, open)

		store.Dispatch(MessageCreated{Message: newMessage("m1", "c1", "bob", 1)})
	})
}

func TestStoreConcurrentDispatch(t *testing.T) {
	store := NewStore(newTestState())
	updates, unsubscribe := store.Subscribe()
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := "m" + string(rune('A'+i%26)) + string(rune('a'+i/26))
			store.Dispatch(MessageCreated{Message: newMessage(id, "c1", "bob", i)})
		}(i)
	}
	wg.Wait()

	require.Len(t, store.State().Messages["c1"], 50)
	messages := store.State().Messages["c1"]
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt))
	}

	st := <-updates
	assert.Len(t, st.Messages["c1"], 50)
}
