package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Factory builds a provider client for one credential.
type Factory func(ctx context.Context, apiKey string) (Client, error)

// Slot identifies the credential in use.
type Slot int

const (
	SlotPrimary Slot = iota
	SlotFallback
)

func (s Slot) String() string {
	if s == SlotFallback {
		return "fallback"
	}
	return "primary"
}

// RotatingClient serves calls with the primary credential until it reports a quota
// or rate-limit failure, then moves to the fallback credential for the rest of the
// process lifetime. The move happens at most once and never reverses.
type RotatingClient struct {
	factory     Factory
	fallbackKey string
	provider    Provider
	timeout     time.Duration
	logger      *slog.Logger

	mu       sync.Mutex
	slot     Slot
	primary  Client
	fallback Client
}

// RotatingOption configures a RotatingClient.
type RotatingOption func(*RotatingClient)

// WithCallTimeout bounds every provider call. Zero disables the bound.
func WithCallTimeout(d time.Duration) RotatingOption {
	return func(r *RotatingClient) { r.timeout = d }
}

// WithLogger sets the logger used for credential switches.
func WithLogger(l *slog.Logger) RotatingOption {
	return func(r *RotatingClient) { r.logger = l }
}

// WithProvider names the provider in classified errors.
func WithProvider(p Provider) RotatingOption {
	return func(r *RotatingClient) { r.provider = p }
}

// NewRotatingClient builds the primary client immediately; the fallback client is
// built on first use. An empty fallbackKey disables rotation.
func NewRotatingClient(ctx context.Context, factory Factory, primaryKey, fallbackKey string, opts ...RotatingOption) (*RotatingClient, error) {
	r := &RotatingClient{
		factory:     factory,
		fallbackKey: fallbackKey,
		provider:    ProviderGemini,
		timeout:     DefaultTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}

	primary, err := factory(ctx, primaryKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create primary client: %w", err)
	}
	r.primary = primary
	return r, nil
}

// Slot returns the credential currently in use.
func (r *RotatingClient) Slot() Slot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.slot
}

// GenerateContent implements Client.
func (r *RotatingClient) GenerateContent(ctx context.Context, prompt string, p Params) (string, error) {
	return r.do(ctx, func(ctx context.Context, c Client) (string, error) {
		return c.GenerateContent(ctx, prompt, p)
	})
}

// GenerateJSON implements Client.
func (r *RotatingClient) GenerateJSON(ctx context.Context, prompt string, p Params) (string, error) {
	return r.do(ctx, func(ctx context.Context, c Client) (string, error) {
		return c.GenerateJSON(ctx, prompt, p)
	})
}

// GetModel returns the model of the active client.
func (r *RotatingClient) GetModel(tier ModelTier) string {
	client, _ := r.current()
	return client.GetModel(tier)
}

// Close releases both clients.
func (r *RotatingClient) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	if r.primary != nil {
		errs = append(errs, r.primary.Close())
	}
	if r.fallback != nil {
		errs = append(errs, r.fallback.Close())
	}
	return errors.Join(errs...)
}

func (r *RotatingClient) current() (Client, Slot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.slot == SlotFallback {
		return r.fallback, SlotFallback
	}
	return r.primary, SlotPrimary
}

func (r *RotatingClient) do(ctx context.Context, call func(context.Context, Client) (string, error)) (string, error) {
	client, slot := r.current()

	out, err := r.attempt(ctx, client, call)
	if err == nil {
		return out, nil
	}
	cerr := Classify(r.provider, err)

	if cerr.Kind == KindRateLimited && slot == SlotPrimary && r.fallbackKey != "" {
		next, serr := r.switchToFallback(ctx)
		if serr != nil {
			r.logger.Error("failed to create fallback completion client", "error", serr)
			return "", fmt.Errorf("%w: %w", ErrCommunication, cerr)
		}
		out, err = r.attempt(ctx, next, call)
		if err == nil {
			return out, nil
		}
		cerr = Classify(r.provider, err)
		slot = SlotFallback
	}

	if cerr.Kind == KindRateLimited && (slot == SlotFallback || r.fallbackKey == "") {
		r.logger.Error("no completion credential left", "slot", slot.String(), "kind", cerr.Kind.String())
	}
	return "", fmt.Errorf("%w: %w", ErrCommunication, cerr)
}

func (r *RotatingClient) attempt(ctx context.Context, c Client, call func(context.Context, Client) (string, error)) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return call(ctx, c)
}

// switchToFallback moves to the fallback slot unless another caller already did.
func (r *RotatingClient) switchToFallback(ctx context.Context) (Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.slot == SlotFallback {
		return r.fallback, nil
	}

	fallback, err := r.factory(ctx, r.fallbackKey)
	if err != nil {
		return nil, err
	}
	r.fallback = fallback
	r.slot = SlotFallback
	r.logger.Warn("completion quota exhausted, switching credential", "from", SlotPrimary.String(), "to", SlotFallback.String())
	return fallback, nil
}
