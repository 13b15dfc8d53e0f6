package realtime

import (
	"errors"

	"github.com/vdavid/chatsync/internal/auth"
)

// Status mirrors the connection lifecycle a UI renders.
type Status string

const (
	StatusIdle         Status = "idle"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
	StatusReconnecting Status = "reconnecting"
	StatusDisconnected Status = "disconnected"
	StatusError        Status = "error"
)

var allStatuses = []Status{
	StatusIdle,
	StatusConnecting,
	StatusConnected,
	StatusReconnecting,
	StatusDisconnected,
	StatusError,
}

// ErrNotConnected is returned by Emit while no socket is live.
var ErrNotConnected = errors.New("realtime: not connected")

// ErrSendBufferFull is returned by Emit when the write pump is backed up.
var ErrSendBufferFull = errors.New("realtime: send buffer full")

// failureStatus picks the status reported after a failed dial. A rejected
// token is surfaced as an error so the UI can ask the user to sign in again.
func failureStatus(err error) Status {
	if errors.Is(err, auth.ErrNotAuthenticated) {
		return StatusError
	}
	return StatusReconnecting
}
