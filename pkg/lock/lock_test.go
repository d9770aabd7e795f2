package lock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockIsExclusive(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLock()

	release, err := l.Acquire(ctx)
	require.NoError(t, err)

	_, err = l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrNotAcquired)

	require.NoError(t, release(ctx))

	release, err = l.Acquire(ctx)
	require.NoError(t, err)
	assert.NoError(t, release(ctx))
}
