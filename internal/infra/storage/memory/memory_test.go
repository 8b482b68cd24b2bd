package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/event-gallery/internal/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(nil)

	require.NoError(t, s.Put(ctx, "sessions/a/originals/1.jpg", []byte("x"), "image/jpeg"))
	obj, err := s.Get(ctx, "sessions/a/originals/1.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), obj.Data)
	assert.Equal(t, "image/jpeg", obj.ContentType)
	assert.Equal(t, []string{"sessions/a/originals/1.jpg"}, s.Keys("sessions/a/"))

	require.NoError(t, s.Delete(ctx, "sessions/a/originals/1.jpg"))
	_, err = s.Get(ctx, "sessions/a/originals/1.jpg")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreFault(t *testing.T) {
	ctx := context.Background()
	s := New(nil)
	s.SetFault(func(op Op, key string) error {
		if op == OpPut {
			return errors.New("disk on fire")
		}
		return nil
	})

	err := s.Put(ctx, "k", []byte("x"), "")
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Empty(t, s.Keys(""))

	s.SetFault(nil)
	assert.NoError(t, s.Put(ctx, "k", []byte("x"), ""))
}
