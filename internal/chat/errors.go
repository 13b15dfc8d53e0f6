package chat

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vdavid/chatsync/internal/auth"
	"github.com/vdavid/chatsync/internal/models"
	"github.com/vdavid/chatsync/internal/validation"
)

var (
	ErrEmptyMessage      = errors.New("message must have text or at least one attachment")
	ErrNoConversation    = errors.New("no conversation selected")
	ErrEmptyThreadName   = errors.New("thread name must not be empty")
	ErrInvalidThreadType = errors.New("unknown thread type")
	ErrEmptyEmoji        = errors.New("emoji must not be empty")
	ErrMessageNotFound   = errors.New("message not found")
	ErrThreadNotFound    = errors.New("thread not found")
	ErrNotFailed         = errors.New("message is not in failed state")
	ErrNotSent           = errors.New("message has not been delivered yet")
	ErrNotOwner          = errors.New("only the sender can edit a message")
)

// PolicyViolationError blocks an action the Governance service rejected.
type PolicyViolationError struct {
	Violations []models.PolicyViolation
}

func (e *PolicyViolationError) Error() string {
	messages := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		if v.PolicyName != "" {
			messages = append(messages, fmt.Sprintf("%s: %s", v.PolicyName, v.Message))
		} else {
			messages = append(messages, v.Message)
		}
	}
	return "blocked by policy: " + strings.Join(messages, "; ")
}

// ErrorKind tells a UI how to surface an error: inline for validation and
// policy, a sign-in prompt for auth, a transient toast for network.
type ErrorKind string

const (
	KindNone       ErrorKind = "ok"
	KindValidation ErrorKind = "validation"
	KindPolicy     ErrorKind = "policy"
	KindAuth       ErrorKind = "auth"
	KindNetwork    ErrorKind = "network"
)

func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	var policyErr *PolicyViolationError
	switch {
	case errors.As(err, &policyErr):
		return KindPolicy
	case errors.Is(err, auth.ErrNotAuthenticated):
		return KindAuth
	case errors.Is(err, validation.ErrInvalid),
		errors.Is(err, ErrEmptyMessage),
		errors.Is(err, ErrNoConversation),
		errors.Is(err, ErrEmptyThreadName),
		errors.Is(err, ErrInvalidThreadType),
		errors.Is(err, ErrEmptyEmoji),
		errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrThreadNotFound),
		errors.Is(err, ErrNotFailed),
		errors.Is(err, ErrNotSent),
		errors.Is(err, ErrNotOwner):
		return KindValidation
	default:
		return KindNetwork
	}
}
