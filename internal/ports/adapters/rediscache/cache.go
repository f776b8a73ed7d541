// Package rediscache memoizes oracle completions by prompt so that reruns on
// the same transcript do not pay for the same requests twice.
package rediscache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"time"

	"github.com/dabinuss/clipcore/internal/ports"
)

const (
	DefaultTTL    = 24 * time.Hour
	defaultPrefix = "clipcore:oracle:"
)

// Oracle wraps another oracle. Only successful, non-empty completions are
// cached. Cache failures are logged and otherwise ignored.
type Oracle struct {
	next      ports.Oracle
	store     Store
	ttl       time.Duration
	namespace string
	log       *slog.Logger
}

var _ ports.Oracle = (*Oracle)(nil)

type Option func(*Oracle)

func WithTTL(ttl time.Duration) Option {
	return func(o *Oracle) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithNamespace separates entries of different backends or models.
func WithNamespace(ns string) Option {
	return func(o *Oracle) { o.namespace = ns }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Oracle) {
		if l != nil {
			o.log = l
		}
	}
}

func Wrap(next ports.Oracle, store Store, opts ...Option) *Oracle {
	o := &Oracle{
		next:  next,
		store: store,
		ttl:   DefaultTTL,
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Oracle) Complete(ctx context.Context, prompt string) (string, error) {
	key := o.key(prompt)

	if val, ok, err := o.store.Get(ctx, key); err != nil {
		o.log.Warn("oracle cache read failed", "error", err)
	} else if ok {
		o.log.Debug("oracle cache hit", "key", key)
		return val, nil
	}

	resp, err := o.next.Complete(ctx, prompt)
	if err != nil || resp == "" {
		return resp, err
	}
	if err := o.store.Set(ctx, key, resp, o.ttl); err != nil {
		o.log.Warn("oracle cache write failed", "error", err)
	}
	return resp, nil
}

func (o *Oracle) IsReady() bool { return o.next.IsReady() }

func (o *Oracle) TryInitialize(ctx context.Context) error { return o.next.TryInitialize(ctx) }

func (o *Oracle) key(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return defaultPrefix + o.namespace + ":" + hex.EncodeToString(sum[:])
}
