package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"validation", Validation("message is required"), KindValidation},
		{"wrapped not found", fmt.Errorf("load: %w", NotFound("session %s", "x")), KindNotFound},
		{"generation", Generation(context.DeadlineExceeded, "generate"), KindGeneration},
		{"plain", errors.New("boom"), KindInternal},
		{"nil", nil, KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("chat: %w", Ownership("session belongs to another user"))
	assert.ErrorIs(t, err, ErrOwnership)
	assert.NotErrorIs(t, err, ErrNotFound)

	gen := Generation(context.DeadlineExceeded, "generation failed")
	assert.ErrorIs(t, gen, ErrGeneration)
	assert.ErrorIs(t, gen, context.DeadlineExceeded)
	assert.Equal(t, "generation failed: context deadline exceeded", gen.Error())
}
