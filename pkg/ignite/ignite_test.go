package ignite_test

import (
	"context"
	"testing"

	"github.com/iamNilotpal/ignite/pkg/ignite"
	"github.com/iamNilotpal/ignite/pkg/options"
	"github.com/stretchr/testify/require"
)

func newInstance(t *testing.T) *ignite.Instance {
	t.Helper()
	dir := t.TempDir()

	inst, err := ignite.NewInstance("ignite-test", options.WithDataDir(dir))
	require.NoError(t, err)
	require.NoError(t, inst.Create(context.Background()))

	t.Cleanup(func() { inst.Close() })
	return inst
}

func key(b byte) ignite.Key {
	var k ignite.Key
	k[0] = b
	return k
}

func TestPutGetRoundTrip(t *testing.T) {
	inst := newInstance(t)

	require.NoError(t, inst.Put(key(0), []byte("foo")))
	require.NoError(t, inst.Put(key(1), []byte("bar")))
	require.NoError(t, inst.Commit(context.Background(), 0))

	v, err := inst.Get(key(0))
	require.NoError(t, err)
	require.Equal(t, []byte("foo"), v)

	v, err = inst.Get(key(1))
	require.NoError(t, err)
	require.Equal(t, []byte("bar"), v)

	entries, err := inst.List(0, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
}

func TestRollbackDiscardsUncommittedPut(t *testing.T) {
	inst := newInstance(t)

	require.NoError(t, inst.Put(key(0), []byte("foo")))
	require.NoError(t, inst.Commit(context.Background(), 0))

	require.NoError(t, inst.Put(key(0), []byte("bar")))
	require.NoError(t, inst.Rollback())

	v, err := inst.Get(key(0))
	require.NoError(t, err)
	require.Equal(t, []byte("foo"), v)
}

func TestCheckOnCleanRepositoryReportsNoFindings(t *testing.T) {
	inst := newInstance(t)

	require.NoError(t, inst.Put(key(0), []byte("foo")))
	require.NoError(t, inst.Commit(context.Background(), 0))

	report, err := inst.Check(false, 0)
	require.NoError(t, err)
	require.False(t, report.HasFindings())
}

func TestSaveLoadKey(t *testing.T) {
	inst := newInstance(t)

	blob, err := inst.LoadKey()
	require.NoError(t, err)
	require.Nil(t, blob)

	require.NoError(t, inst.SaveKey([]byte("secret-key-material")))

	blob, err = inst.LoadKey()
	require.NoError(t, err)
	require.Equal(t, []byte("secret-key-material"), blob)
}
