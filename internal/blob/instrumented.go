package blob

import (
	"context"
	"errors"

	"investtrack/internal/metrics"
)

// Instrumented wraps a Store and counts operations per backend.
type Instrumented struct {
	Store
	backend string
	m       *metrics.Metrics
}

// WithMetrics returns s unchanged when m is nil.
func WithMetrics(s Store, backend string, m *metrics.Metrics) Store {
	if m == nil {
		return s
	}
	return &Instrumented{Store: s, backend: backend, m: m}
}

func (i *Instrumented) observe(op string, err error, n int) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	i.m.BlobOps.WithLabelValues(i.backend, op, result).Inc()
	if err == nil && n > 0 {
		i.m.BlobBytes.WithLabelValues(i.backend, op).Add(float64(n))
	}
}

func (i *Instrumented) Put(ctx context.Context, key string, data []byte) error {
	err := i.Store.Put(ctx, key, data)
	i.observe("put", err, len(data))
	return err
}

func (i *Instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := i.Store.Get(ctx, key)
	i.observe("get", err, len(data))
	return data, err
}

func (i *Instrumented) Delete(ctx context.Context, key string) error {
	err := i.Store.Delete(ctx, key)
	i.observe("delete", err, 0)
	return err
}
