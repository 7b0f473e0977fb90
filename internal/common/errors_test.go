package common

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", fmt.Errorf("invoice x: %w", ErrNotFound), codes.NotFound},
		{"validation", fmt.Errorf("%w: bad date", ErrValidation), codes.InvalidArgument},
		{"config", fmt.Errorf("%w: no table", ErrConfig), codes.InvalidArgument},
		{"database", fmt.Errorf("%w: insert", ErrDatabase), codes.Internal},
		{"already a status", InvalidArgumentErrorf("event: %v", errors.New("bad json")), codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, status.Code(ToStatus(tt.err)))
		})
	}
	assert.NoError(t, ToStatus(nil))
}

func TestInvalidArgumentErrorf(t *testing.T) {
	err := InvalidArgumentErrorf("field %q: %d chars", "id", 3)
	s, ok := status.FromError(err)
	assert.True(t, ok)
	assert.Equal(t, codes.InvalidArgument, s.Code())
	assert.Equal(t, `field "id": 3 chars`, s.Message())
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, DocumentFromContext(ctx))

	ctx = WithDocument(WithRequestID(ctx, "rid"), "facture.pdf")
	assert.Equal(t, "rid", RequestIDFromContext(ctx))
	assert.Equal(t, "facture.pdf", DocumentFromContext(ctx))
}
