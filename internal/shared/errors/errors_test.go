package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want string
	}{
		{
			name: "message only",
			err:  NewNotFoundError("ticket 7 not found"),
			want: "not_found: ticket 7 not found",
		},
		{
			name: "with details",
			err:  NewValidationError("invalid config", "sla.business_hours_end"),
			want: "validation_error: invalid config (sla.business_hours_end)",
		},
		{
			name: "with cause",
			err:  NewTransientError("mailbox read failed", fmt.Errorf("EOF")),
			want: "transient_error: mailbox read failed: EOF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestTypeChecks_ThroughWrapping(t *testing.T) {
	base := NewConfigError("open database", fmt.Errorf("permission denied"))
	wrapped := fmt.Errorf("ingest: %w", base)

	assert.True(t, IsConfigError(wrapped))
	assert.False(t, IsTransientError(wrapped))
	assert.Equal(t, 78, ExitCode(wrapped))
	assert.Equal(t, 1, ExitCode(fmt.Errorf("plain")))
	assert.Equal(t, 0, ExitCode(nil))
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(fmt.Errorf("UNIQUE constraint failed: tickets.stable_id")))
	assert.False(t, IsDuplicateError(fmt.Errorf("database is locked")))
	assert.False(t, IsDuplicateError(nil))
}
