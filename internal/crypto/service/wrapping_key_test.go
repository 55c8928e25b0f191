package service

import (
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/pbkdf2"

	cryptoDomain "github.com/allisson/tenantvault/internal/crypto/domain"
)

type countingSource struct {
	secret []byte
	err    error
	delay  time.Duration
	calls  atomic.Int32
}

func (c *countingSource) RootSecret(_ context.Context) ([]byte, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	if c.err != nil {
		return nil, c.err
	}
	return append([]byte(nil), c.secret...), nil
}

func TestWrappingKeyDeriver_WrappingKey(t *testing.T) {
	ctx := context.Background()

	t.Run("derives pbkdf2 sha256 key", func(t *testing.T) {
		source := &countingSource{secret: []byte("root-secret")}
		deriver := NewWrappingKeyDeriver(source, "salt", 1000)

		key, err := deriver.WrappingKey(ctx)
		require.NoError(t, err)

		expected := pbkdf2.Key([]byte("root-secret"), []byte("salt"), 1000, 32, sha256.New)
		assert.Equal(t, expected, key)
		assert.NotEqual(t, []byte("root-secret"), key)
	})

	t.Run("memoized after first success", func(t *testing.T) {
		source := &countingSource{secret: []byte("root-secret")}
		deriver := NewWrappingKeyDeriver(source, "salt", 1000)

		first, err := deriver.WrappingKey(ctx)
		require.NoError(t, err)
		second, err := deriver.WrappingKey(ctx)
		require.NoError(t, err)

		assert.Equal(t, first, second)
		assert.Equal(t, int32(1), source.calls.Load())
	})

	t.Run("concurrent first use derives once", func(t *testing.T) {
		source := &countingSource{secret: []byte("root-secret"), delay: 50 * time.Millisecond}
		deriver := NewWrappingKeyDeriver(source, "salt", 1000)

		var wg sync.WaitGroup
		keys := make([][]byte, 16)
		for i := range keys {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				key, err := deriver.WrappingKey(ctx)
				assert.NoError(t, err)
				keys[i] = key
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), source.calls.Load())
		for _, key := range keys {
			assert.Equal(t, keys[0], key)
		}
	})

	t.Run("failure is not memoized", func(t *testing.T) {
		source := &countingSource{err: cryptoDomain.ErrRootSecretUnavailable}
		deriver := NewWrappingKeyDeriver(source, "salt", 1000)

		_, err := deriver.WrappingKey(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)

		source.err = nil
		source.secret = []byte("recovered")
		key, err := deriver.WrappingKey(ctx)
		require.NoError(t, err)
		assert.Len(t, key, cryptoDomain.KeySize)
		assert.Equal(t, int32(2), source.calls.Load())
	})

	t.Run("source error propagates", func(t *testing.T) {
		boom := errors.New("boom")
		deriver := NewWrappingKeyDeriver(&countingSource{err: boom}, "salt", 1000)

		_, err := deriver.WrappingKey(ctx)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("invalid parameters", func(t *testing.T) {
		_, err := NewWrappingKeyDeriver(&countingSource{secret: []byte("s")}, "", 1000).WrappingKey(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)

		_, err = NewWrappingKeyDeriver(&countingSource{secret: []byte("s")}, "salt", 0).WrappingKey(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)

		_, err = NewWrappingKeyDeriver(&countingSource{secret: []byte{}}, "salt", 1000).WrappingKey(ctx)
		assert.ErrorIs(t, err, cryptoDomain.ErrRootSecretUnavailable)
	})

	t.Run("different salt gives different key", func(t *testing.T) {
		k1, err := NewWrappingKeyDeriver(&countingSource{secret: []byte("s")}, "salt-a", 1000).WrappingKey(ctx)
		require.NoError(t, err)
		k2, err := NewWrappingKeyDeriver(&countingSource{secret: []byte("s")}, "salt-b", 1000).WrappingKey(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, k1, k2)
	})
}

func TestWrappingKeyDeriver_Close(t *testing.T) {
	ctx := context.Background()
	source := &countingSource{secret: []byte("root-secret")}
	deriver := NewWrappingKeyDeriver(source, "salt", 1000)

	key, err := deriver.WrappingKey(ctx)
	require.NoError(t, err)

	deriver.Close()
	assert.Equal(t, make([]byte, cryptoDomain.KeySize), key)

	again, err := deriver.WrappingKey(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, make([]byte, cryptoDomain.KeySize), again)
	assert.Equal(t, int32(2), source.calls.Load())

	deriver.Close()
	deriver.Close()
}

type gatedSource struct {
	secret  []byte
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) RootSecret(ctx context.Context) ([]byte, error) {
	close(g.entered)
	select {
	case <-g.release:
		return append([]byte(nil), g.secret...), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestWrappingKeyDeriver_CallerCancellation(t *testing.T) {
	source := &gatedSource{
		secret:  []byte("root-secret"),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	deriver := NewWrappingKeyDeriver(source, "salt", 1000)

	shortCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	shortErr := make(chan error, 1)
	go func() {
		_, err := deriver.WrappingKey(shortCtx)
		shortErr <- err
	}()
	<-source.entered

	type result struct {
		key []byte
		err error
	}
	patient := make(chan result, 1)
	go func() {
		key, err := deriver.WrappingKey(context.Background())
		patient <- result{key: key, err: err}
	}()

	assert.ErrorIs(t, <-shortErr, context.DeadlineExceeded)

	close(source.release)
	res := <-patient
	require.NoError(t, res.err)
	assert.Len(t, res.key, cryptoDomain.KeySize)
}

func TestWrappingKeyDeriver_DerivationTimeout(t *testing.T) {
	source := &gatedSource{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	deriver := NewWrappingKeyDeriver(source, "salt", 1000)
	deriver.timeout = 20 * time.Millisecond

	_, err := deriver.WrappingKey(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
