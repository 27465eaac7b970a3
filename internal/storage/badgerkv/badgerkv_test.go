package badgerkv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStore_RoundTrip(t *testing.T) {
	st, err := Open(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	defer func() { assert.NoError(t, st.Close()) }()

	_, ok, err := st.Get("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	assert.NoError(t, st.Set("slot", []byte("value")))

	value, ok, err := st.Get("slot")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), value)

	assert.NoError(t, st.Delete("slot"))
	_, ok, _ = st.Get("slot")
	assert.False(t, ok)
}

func TestStore_ValuesSurviveReopen(t *testing.T) {
	dir := t.TempDir()

	st, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, st.Set("slot", []byte("persisted")))
	require.NoError(t, st.Close())

	reopened, err := Open(dir, zap.NewNop())
	require.NoError(t, err)
	defer func() { assert.NoError(t, reopened.Close()) }()

	value, ok, err := reopened.Get("slot")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("persisted"), value)
}
