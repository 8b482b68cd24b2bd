package gallery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EgorLis/event-gallery/internal/domain"
)

func TestLocalLocker(t *testing.T) {
	l := NewLocalLocker(50 * time.Millisecond)
	ctx := context.Background()

	release, err := l.Lock(ctx, "a")
	require.NoError(t, err)

	_, err = l.Lock(ctx, "a")
	require.ErrorIs(t, err, domain.ErrBusy)

	other, err := l.Lock(ctx, "b")
	require.NoError(t, err)
	other()

	got := make(chan error, 1)
	go func() {
		r, err := l.Lock(ctx, "a")
		if err == nil {
			r()
		}
		got <- err
	}()
	release()
	release() // second call is a no-op
	assert.NoError(t, <-got)

	cctx, cancel := context.WithCancel(ctx)
	hold, err := l.Lock(ctx, "c")
	require.NoError(t, err)
	defer hold()
	cancel()
	_, err = l.Lock(cctx, "c")
	require.ErrorIs(t, err, context.Canceled)
}
