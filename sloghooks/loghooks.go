package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/querysync"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	DedupEvery     uint64
	PublishedEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	dedupCtr     atomic.Uint64
	publishedCtr atomic.Uint64
}

var _ querysync.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) FetchIssued(key string) {
	if h.l == nil {
		return
	}
	h.l.Debug("querysync.fetch_issued", "key", h.redact(key))
}

func (h *Hooks) FetchDeduplicated(key string) {
	if h.l == nil || !sample(h.opts.DedupEvery, &h.dedupCtr) {
		return
	}
	h.l.Debug("querysync.fetch_deduplicated", "key", h.redact(key))
}

func (h *Hooks) ResultSuperseded(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Info("querysync.result_superseded",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) FetchFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("querysync.fetch_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) Published(key string, kind querysync.Outcome, subscribers int) {
	if h.l == nil || !sample(h.opts.PublishedEvery, &h.publishedCtr) {
		return
	}
	h.l.Debug("querysync.published",
		"key", h.redact(key),
		"outcome", kind.String(),
		"subscribers", subscribers)
}

func (h *Hooks) StoreError(op, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("querysync.store_error",
		"op", op,
		"key", h.redact(key),
		"err", err)
}
