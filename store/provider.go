package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/unkn0wn-root/querysync/codec"
	"github.com/unkn0wn-root/querysync/internal/wire"
	pr "github.com/unkn0wn-root/querysync/provider"
)

// Encoded is a value read back from a ProviderStore. Use Decode (or DecodeAs)
// to turn it into a concrete type.
type Encoded struct {
	Payload []byte
	codec   codec.Codec
}

func (e Encoded) Decode(dst any) error {
	if e.codec == nil {
		return errors.New("store: encoded value has no codec")
	}
	return e.codec.Unmarshal(e.Payload, dst)
}

type ProviderOptions struct {
	// Required
	Namespace string
	Provider  pr.Provider
	Codec     codec.Codec

	TTL         time.Duration                      // 0 => no expiry
	ComputeCost func(key string, raw []byte) int64 // nil => len(raw)
}

// ProviderStore stores framed, encoded entries in a byte provider.
// It keeps an index of the keys it wrote so EvictAll can clear its namespace.
type ProviderStore struct {
	ns       string
	provider pr.Provider
	codec    codec.Codec
	ttl      time.Duration
	cost     func(string, []byte) int64

	mu   sync.Mutex
	keys map[string]struct{}
}

var _ Store = (*ProviderStore)(nil)

func NewProviderStore(opts ProviderOptions) (*ProviderStore, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("store: provider is required")
	}
	if opts.Codec == nil {
		return nil, fmt.Errorf("store: codec is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("store: namespace is required")
	}
	s := &ProviderStore{
		ns:       opts.Namespace,
		provider: opts.Provider,
		codec:    opts.Codec,
		ttl:      opts.TTL,
		cost:     opts.ComputeCost,
		keys:     make(map[string]struct{}),
	}
	if s.cost == nil {
		s.cost = func(_ string, raw []byte) int64 { return int64(len(raw)) }
	}
	return s, nil
}

func (s *ProviderStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	k := s.storageKey(key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return Entry{}, false, err
	}
	at, payload, err := wire.DecodeEntry(raw)
	if err != nil {
		_ = s.provider.Del(ctx, k) // self-heal corrupt
		s.forget(key)
		return Entry{}, false, nil
	}
	return Entry{
		Value:     Encoded{Payload: payload, codec: s.codec},
		WrittenAt: time.Unix(0, at),
	}, true, nil
}

func (s *ProviderStore) Set(ctx context.Context, key string, value any, writtenAt time.Time) error {
	var payload []byte
	if enc, ok := value.(Encoded); ok {
		// value read back from a provider store; keep its bytes
		payload = enc.Payload
	} else {
		b, err := s.codec.Marshal(value)
		if err != nil {
			return fmt.Errorf("store: encode %q: %w", key, err)
		}
		payload = b
	}
	k := s.storageKey(key)
	wireb := wire.EncodeEntry(writtenAt.UnixNano(), payload)
	ok, err := s.provider.Set(ctx, k, wireb, s.cost(k, wireb), s.ttl)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("store: provider rejected %q", key)
	}
	s.mu.Lock()
	s.keys[key] = struct{}{}
	s.mu.Unlock()
	return nil
}

func (s *ProviderStore) Evict(ctx context.Context, key string) error {
	if err := s.provider.Del(ctx, s.storageKey(key)); err != nil {
		return err
	}
	s.forget(key)
	return nil
}

// EvictAll deletes every key this store wrote; it returns the joined errors of failed deletes.
func (s *ProviderStore) EvictAll(ctx context.Context) error {
	s.mu.Lock()
	keys := make([]string, 0, len(s.keys))
	for k := range s.keys {
		keys = append(keys, k)
	}
	s.mu.Unlock()

	var errs []error
	for _, k := range keys {
		if err := s.Evict(ctx, k); err != nil {
			errs = append(errs, fmt.Errorf("evict %q: %w", k, err))
		}
	}
	return errors.Join(errs...)
}

func (s *ProviderStore) Close(ctx context.Context) error {
	return s.provider.Close(ctx)
}

func (s *ProviderStore) storageKey(key string) string {
	return "qs:" + s.ns + ":" + key
}

func (s *ProviderStore) forget(key string) {
	s.mu.Lock()
	delete(s.keys, key)
	s.mu.Unlock()
}
