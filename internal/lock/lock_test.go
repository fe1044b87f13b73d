package lock_test

import (
	"context"
	"testing"
	"time"

	"github.com/iamNilotpal/ignite/internal/lock"
	"github.com/iamNilotpal/ignite/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestSharedThenUpgrade(t *testing.T) {
	dir := t.TempDir()
	m, err := lock.New(&lock.Config{Dir: dir, Wait: time.Second, Log: logger.Noop()})
	require.NoError(t, err)

	require.NoError(t, m.AcquireShared(context.Background()))
	require.Equal(t, lock.ModeShared, m.Mode())

	require.NoError(t, m.Upgrade(context.Background()))
	require.Equal(t, lock.ModeExclusive, m.Mode())

	require.NoError(t, m.Release())
	require.Equal(t, lock.ModeNone, m.Mode())
}

func TestExclusiveBlocksSecondHolder(t *testing.T) {
	dir := t.TempDir()

	m1, err := lock.New(&lock.Config{Dir: dir, Wait: 50 * time.Millisecond, Log: logger.Noop()})
	require.NoError(t, err)
	require.NoError(t, m1.AcquireExclusive(context.Background()))
	defer m1.Release()

	m2, err := lock.New(&lock.Config{Dir: dir, Wait: 50 * time.Millisecond, Log: logger.Noop()})
	require.NoError(t, err)
	err = m2.AcquireExclusive(context.Background())
	require.Error(t, err)
}
