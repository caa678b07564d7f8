package genstore

import (
	"context"
	"sync"
	"time"
)

type localGenEntry struct {
	Gen       uint64
	UpdatedAt time.Time
}

// Local keeps generations in-process.
// Generations come from one counter shared by all keys, so pruning a key
// never lets an old generation come back.
type Local struct {
	mu     sync.RWMutex
	seq    uint64
	gens   map[string]localGenEntry
	ticker *time.Ticker
	stopCh chan struct{}
	wg     sync.WaitGroup
	now    func() time.Time
}

var _ GenStore = (*Local)(nil)

// NewLocal starts a cleanup loop when both cleanupInterval and retention are > 0.
func NewLocal(cleanupInterval, retention time.Duration) *Local {
	s := &Local{
		gens: make(map[string]localGenEntry),
		now:  time.Now,
	}
	if cleanupInterval > 0 && retention > 0 {
		s.ticker = time.NewTicker(cleanupInterval)
		s.stopCh = make(chan struct{})
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			for {
				select {
				case <-s.ticker.C:
					s.Cleanup(retention)
				case <-s.stopCh:
					return
				}
			}
		}()
	}
	return s
}

func (s *Local) Bump(_ context.Context, k string) (uint64, error) {
	now := s.now()
	s.mu.Lock()
	s.seq++
	g := s.seq
	s.gens[k] = localGenEntry{Gen: g, UpdatedAt: now}
	s.mu.Unlock()
	return g, nil
}

func (s *Local) Snapshot(_ context.Context, k string) (uint64, error) {
	s.mu.RLock()
	e := s.gens[k]
	s.mu.RUnlock()
	return e.Gen, nil
}

// Len reports how many keys currently hold a generation.
func (s *Local) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.gens)
}

func (s *Local) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := s.now().Add(-retention)

	s.mu.Lock()
	for k, e := range s.gens {
		if e.UpdatedAt.Before(cutoff) {
			delete(s.gens, k)
		}
	}
	s.mu.Unlock()
}

func (s *Local) Close(_ context.Context) error {
	if s.stopCh != nil {
		close(s.stopCh)
		s.ticker.Stop()
		s.wg.Wait()
		s.stopCh = nil
	}
	return nil
}
