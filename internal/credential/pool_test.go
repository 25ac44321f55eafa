package credential

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/litscan/litscan/pkg/claude"
)

type fakeClient struct {
	key string
}

func (f *fakeClient) CreateMessage(context.Context, claude.MessageRequest) (*claude.MessageResponse, error) {
	return &claude.MessageResponse{}, nil
}

func newTestPool(t *testing.T, keys []string, cooldown time.Duration) *Pool {
	t.Helper()
	pool, err := NewPool(keys, cooldown, func(key string) claude.Client {
		return &fakeClient{key: key}
	})
	require.NoError(t, err)
	return pool
}

func TestNewPoolEmpty(t *testing.T) {
	_, err := NewPool(nil, time.Minute, func(string) claude.Client { return &fakeClient{} })
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestCurrentStartsAtFirst(t *testing.T) {
	pool := newTestPool(t, []string{"a", "b"}, time.Minute)
	assert.Equal(t, 0, pool.Current().Index)
	assert.Equal(t, "a", pool.Current().Key)
	assert.Equal(t, 2, pool.Size())
}

func TestRotateCircularOnAuthError(t *testing.T) {
	pool := newTestPool(t, []string{"a", "b", "c"}, time.Minute)

	// Auth errors do not cool the abandoned key, so rotation cycles forever.
	want := []int{1, 2, 0, 1}
	for _, idx := range want {
		cred, err := pool.Rotate(ReasonAuthError)
		require.NoError(t, err)
		assert.Equal(t, idx, cred.Index)
	}
}

func TestRateLimitedCoolsCurrent(t *testing.T) {
	pool := newTestPool(t, []string{"a", "b"}, time.Minute)
	now := time.Now()
	pool.now = func() time.Time { return now }

	cred, err := pool.Rotate(ReasonRateLimited)
	require.NoError(t, err)
	assert.Equal(t, 1, cred.Index)

	// Both keys now rate limited: nothing left to rotate to.
	_, err = pool.Rotate(ReasonRateLimited)
	require.ErrorIs(t, err, ErrNoCredentials)
}

func TestRotateSkipsCoolingCredential(t *testing.T) {
	pool := newTestPool(t, []string{"a", "b", "c"}, time.Minute)
	now := time.Now()
	pool.now = func() time.Time { return now }
	pool.creds[1].cooldownUntil = now.Add(30 * time.Second)

	cred, err := pool.Rotate(ReasonRateLimited)
	require.NoError(t, err)
	assert.Equal(t, 2, cred.Index)
}

func TestCooldownExpires(t *testing.T) {
	pool := newTestPool(t, []string{"a", "b"}, time.Minute)
	now := time.Now()
	pool.now = func() time.Time { return now }

	_, err := pool.Rotate(ReasonRateLimited)
	require.NoError(t, err)

	// Past the cooldown window, the first key is selectable again.
	now = now.Add(2 * time.Minute)
	cred, err := pool.Rotate(ReasonRateLimited)
	require.NoError(t, err)
	assert.Equal(t, 0, cred.Index)
}

func TestSingleCredentialRateLimited(t *testing.T) {
	pool := newTestPool(t, []string{"a"}, time.Minute)
	now := time.Now()
	pool.now = func() time.Time { return now }

	_, err := pool.Rotate(ReasonRateLimited)
	require.ErrorIs(t, err, ErrNoCredentials)
}
