package chat

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vdavid/chatsync/internal/auth"
	"github.com/vdavid/chatsync/internal/models"
	"github.com/vdavid/chatsync/internal/validation"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{name: "nil", err: nil, want: KindNone},
		{name: "policy", err: &PolicyViolationError{Violations: []models.PolicyViolation{{Message: "x"}}}, want: KindPolicy},
		{name: "wrapped policy", err: fmt.Errorf("send: %w", &PolicyViolationError{}), want: KindPolicy},
		{name: "auth", err: fmt.Errorf("GET /x: %w", auth.ErrNotAuthenticated), want: KindAuth},
		{name: "empty message", err: ErrEmptyMessage, want: KindValidation},
		{name: "struct validation", err: fmt.Errorf("%w: Name is required", validation.ErrInvalid), want: KindValidation},
		{name: "network", err: errors.New("connection reset"), want: KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestPolicyViolationErrorMessage(t *testing.T) {
	err := &PolicyViolationError{Violations: []models.PolicyViolation{
		{PolicyName: "PII", Message: "contains an SSN"},
		{Message: "external recipients"},
	}}

	assert.Equal(t, "blocked by policy: PII: contains an SSN; external recipients", err.Error())
}
