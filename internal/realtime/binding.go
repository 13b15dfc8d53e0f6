package realtime

import (
	"encoding/json"
	"log"

	"github.com/vdavid/chatsync/internal/chat"
)

// Listener is the registration side of a Manager.
type Listener interface {
	On(event string, handler Handler) func()
	OnStatus(handler StatusHandler) func()
}

// Dispatcher applies reducer events, normally a *chat.Store.
type Dispatcher interface {
	Dispatch(events ...chat.Event) *chat.State
}

// Bind feeds decoded server events and connection status changes into the
// store. The returned func removes every listener Bind registered.
func Bind(listener Listener, store Dispatcher) func() {
	offs := make([]func(), 0, len(ServerEvents)+1)

	for _, event := range ServerEvents {
		offs = append(offs, listener.On(event, func(data json.RawMessage) {
			events, err := Decode(event, data)
			if err != nil {
				log.Printf("Realtime: Dropped %s event: %v", event, err)
				return
			}
			if len(events) > 0 {
				store.Dispatch(events...)
			}
		}))
	}

	offs = append(offs, listener.OnStatus(func(status Status, err error) {
		changed := chat.ConnectionChanged{Status: chat.ConnectionStatus(status)}
		if err != nil {
			changed.Error = err.Error()
		}
		store.Dispatch(changed)
	}))

	return func() {
		for _, off := range offs {
			off()
		}
	}
}
