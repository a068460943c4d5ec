package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *QueryError
		want string
	}{
		{
			name: "with code",
			err:  &QueryError{Query: QueryCount, Resource: "events", Code: "42P01", Message: "relation does not exist"},
			want: "count query on events failed (42P01): relation does not exist",
		},
		{
			name: "without code",
			err:  &QueryError{Query: QueryData, Resource: "polls", Message: "connection reset"},
			want: "data query on polls failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestQueryError_UnwrapsCause(t *testing.T) {
	cause := errors.New("driver failure")
	err := fmt.Errorf("listing: %w", &QueryError{Query: QueryData, Resource: "events", Err: cause})

	var qerr *QueryError
	assert.True(t, errors.As(err, &qerr))
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrCancelled)
}

func TestNewBackendError(t *testing.T) {
	assert.NoError(t, NewBackendError("23505", nil))

	cause := errors.New("duplicate key")
	err := NewBackendError("23505", cause)

	var berr *BackendError
	assert.True(t, errors.As(err, &berr))
	assert.Equal(t, "23505", berr.Code)
	assert.Equal(t, "duplicate key", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestInvalidArgument(t *testing.T) {
	err := invalidArgument("page must be at least %d", 1)

	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.Equal(t, "invalid argument: page must be at least 1", err.Error())
}
