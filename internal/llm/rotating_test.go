package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient answers with reply, or with err when set.
type fakeClient struct {
	mu     sync.Mutex
	key    string
	reply  string
	err    error
	block  bool
	calls  int
	closed bool
}

func (f *fakeClient) GenerateContent(ctx context.Context, prompt string, p Params) (string, error) {
	f.mu.Lock()
	f.calls++
	reply, err, block := f.reply, f.err, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (f *fakeClient) GenerateJSON(ctx context.Context, prompt string, p Params) (string, error) {
	return f.GenerateContent(ctx, prompt, p)
}

func (f *fakeClient) GetModel(ModelTier) string { return "fake-" + f.key }

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeClient) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeFactory hands out pre-built clients by key and counts constructions.
type fakeFactory struct {
	clients map[string]*fakeClient
	built   atomic.Int32
}

func (f *fakeFactory) build(_ context.Context, key string) (Client, error) {
	f.built.Add(1)
	c, ok := f.clients[key]
	if !ok {
		return nil, errors.New("unknown key")
	}
	return c, nil
}

var rateLimited = &Error{Kind: KindRateLimited, Provider: ProviderGemini, StatusCode: 429, Message: "quota exceeded"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newRotating(t *testing.T, primary, fallback *fakeClient, opts ...RotatingOption) (*RotatingClient, *fakeFactory) {
	t.Helper()
	factory := &fakeFactory{clients: map[string]*fakeClient{"primary-key": primary}}
	fallbackKey := ""
	if fallback != nil {
		factory.clients["fallback-key"] = fallback
		fallbackKey = "fallback-key"
	}
	opts = append([]RotatingOption{WithLogger(quietLogger())}, opts...)
	client, err := NewRotatingClient(context.Background(), factory.build, "primary-key", fallbackKey, opts...)
	require.NoError(t, err)
	return client, factory
}

func TestRotating_PrimarySucceeds(t *testing.T) {
	primary := &fakeClient{key: "p", reply: "ok"}
	fallback := &fakeClient{key: "f", reply: "fallback"}
	client, factory := newRotating(t, primary, fallback)

	out, err := client.GenerateContent(context.Background(), "prompt", Params{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, SlotPrimary, client.Slot())
	assert.Equal(t, int32(1), factory.built.Load())
	assert.Equal(t, 0, fallback.callCount())
}

func TestRotating_SwitchesOnceAndRetriesOnce(t *testing.T) {
	primary := &fakeClient{key: "p", err: rateLimited}
	fallback := &fakeClient{key: "f", reply: "from fallback"}
	client, factory := newRotating(t, primary, fallback)

	out, err := client.GenerateJSON(context.Background(), "prompt", Params{})
	require.NoError(t, err)
	assert.Equal(t, "from fallback", out)
	assert.Equal(t, SlotFallback, client.Slot())
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())
	assert.Equal(t, "fake-f", client.GetModel(TierStandard))

	// later calls stay on the fallback even once the primary would work again
	primary.mu.Lock()
	primary.err = nil
	primary.mu.Unlock()

	_, err = client.GenerateContent(context.Background(), "prompt", Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 2, fallback.callCount())
	assert.Equal(t, int32(2), factory.built.Load())
}

func TestRotating_FallbackAlsoExhausted(t *testing.T) {
	primary := &fakeClient{key: "p", err: rateLimited}
	fallback := &fakeClient{key: "f", err: rateLimited}
	client, _ := newRotating(t, primary, fallback)

	_, err := client.GenerateContent(context.Background(), "prompt", Params{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommunication)
	assert.True(t, IsRateLimited(err))
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 1, fallback.callCount())

	// no way back to the primary
	_, err = client.GenerateContent(context.Background(), "prompt", Params{})
	require.Error(t, err)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, 2, fallback.callCount())
	assert.Equal(t, SlotFallback, client.Slot())
}

func TestRotating_NoFallbackConfigured(t *testing.T) {
	primary := &fakeClient{key: "p", err: rateLimited}
	client, factory := newRotating(t, primary, nil)

	_, err := client.GenerateContent(context.Background(), "prompt", Params{})
	assert.ErrorIs(t, err, ErrCommunication)
	assert.Equal(t, 1, primary.callCount())
	assert.Equal(t, SlotPrimary, client.Slot())
	assert.Equal(t, int32(1), factory.built.Load())
}

func TestRotating_OtherFailuresDoNotSwitch(t *testing.T) {
	primary := &fakeClient{key: "p", err: &Error{Kind: KindUnauthorized, Provider: ProviderGemini, StatusCode: 401}}
	fallback := &fakeClient{key: "f", reply: "fallback"}
	client, _ := newRotating(t, primary, fallback)

	_, err := client.GenerateContent(context.Background(), "prompt", Params{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommunication)
	assert.Equal(t, KindUnauthorized, KindOf(err))
	assert.Equal(t, SlotPrimary, client.Slot())
	assert.Equal(t, 0, fallback.callCount())
}

func TestRotating_QuotaMessageWithoutStatus(t *testing.T) {
	primary := &fakeClient{key: "p", err: errors.New("429 Too Many Requests")}
	fallback := &fakeClient{key: "f", reply: "fallback"}
	client, _ := newRotating(t, primary, fallback)

	out, err := client.GenerateContent(context.Background(), "prompt", Params{})
	require.NoError(t, err)
	assert.Equal(t, "fallback", out)
}

func TestRotating_ConcurrentFailuresSwitchOnce(t *testing.T) {
	primary := &fakeClient{key: "p", err: rateLimited}
	fallback := &fakeClient{key: "f", reply: "fallback"}
	client, factory := newRotating(t, primary, fallback)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := client.GenerateContent(context.Background(), "prompt", Params{})
			assert.NoError(t, err)
			assert.Equal(t, "fallback", out)
		}()
	}
	wg.Wait()

	// one primary build plus exactly one fallback build
	assert.Equal(t, int32(2), factory.built.Load())
	assert.Equal(t, SlotFallback, client.Slot())
	assert.Equal(t, 16, fallback.callCount())
}

func TestRotating_CallTimeout(t *testing.T) {
	primary := &fakeClient{key: "p", block: true}
	client, _ := newRotating(t, primary, nil, WithCallTimeout(20*time.Millisecond))

	start := time.Now()
	_, err := client.GenerateContent(context.Background(), "prompt", Params{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCommunication)
	assert.Equal(t, KindTransient, KindOf(err))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRotating_PrimaryFactoryError(t *testing.T) {
	factory := &fakeFactory{clients: map[string]*fakeClient{}}
	_, err := NewRotatingClient(context.Background(), factory.build, "missing", "")
	assert.Error(t, err)
}

func TestRotating_CloseClosesBoth(t *testing.T) {
	primary := &fakeClient{key: "p", err: rateLimited}
	fallback := &fakeClient{key: "f", reply: "ok"}
	client, _ := newRotating(t, primary, fallback)

	_, err := client.GenerateContent(context.Background(), "prompt", Params{})
	require.NoError(t, err)
	require.NoError(t, client.Close())
	assert.True(t, primary.closed)
	assert.True(t, fallback.closed)
}

func TestSlot_String(t *testing.T) {
	assert.Equal(t, "primary", SlotPrimary.String())
	assert.Equal(t, "fallback", SlotFallback.String())
}
