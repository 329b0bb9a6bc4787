package embed

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
)

// Cache stores vectors by key. Misses return ok=false and no error.
type Cache interface {
	GetEmbedding(ctx context.Context, key string) (vec []float32, ok bool, err error)
	SetEmbedding(ctx context.Context, key string, vec []float32) error
}

type Service struct {
	backend Backend
	cache   Cache

	group singleflight.Group
	ready atomic.Bool

	mu  sync.Mutex
	dim int
}

type Option func(*Service)

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

// WithDimension pins the expected vector length up front instead of learning
// it from the first embedding.
func WithDimension(dim int) Option {
	return func(s *Service) { s.dim = dim }
}

func NewService(backend Backend, opts ...Option) *Service {
	s := &Service{backend: backend}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Name() string { return s.backend.Name() }

// Dimension is 0 until the first vector has been produced or a dimension was pinned.
func (s *Service) Dimension() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dim
}

// EnsureReady initialises the backend once. Concurrent callers share the same
// in-flight initialisation; a failed attempt is retried by the next caller.
func (s *Service) EnsureReady(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	ch := s.group.DoChan("init", func() (any, error) {
		if s.ready.Load() {
			return nil, nil
		}
		start := time.Now()
		// one caller giving up must not abort the shared initialisation
		if err := s.backend.Init(context.WithoutCancel(ctx)); err != nil {
			slog.Error("embedder init failed", "backend", s.backend.Name(), "error", err)
			return nil, err
		}
		s.ready.Store(true)
		slog.Info("embedder ready", "backend", s.backend.Name(), "cost", time.Since(start).String())
		return nil, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return fmt.Errorf("embedder init: %w", res.Err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.EnsureReady(ctx); err != nil {
		return nil, err
	}

	key := s.cacheKey(text)
	if s.cache != nil {
		vec, ok, err := s.cache.GetEmbedding(ctx, key)
		if err != nil {
			slog.WarnContext(ctx, "embedding cache read failed", "error", err)
		} else if ok && s.checkDim(len(vec)) == nil {
			return vec, nil
		}
	}

	vec, err := s.backend.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := s.checkDim(len(vec)); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetEmbedding(ctx, key, vec); err != nil {
			slog.WarnContext(ctx, "embedding cache write failed", "error", err)
		}
	}
	return vec, nil
}

func (s *Service) checkDim(n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == 0 {
		return fmt.Errorf("embedder %s returned an empty vector", s.backend.Name())
	}
	if s.dim == 0 {
		s.dim = n
		return nil
	}
	if s.dim != n {
		return fmt.Errorf("embedder %s returned %d dimensions, deployment uses %d", s.backend.Name(), n, s.dim)
	}
	return nil
}

func (s *Service) cacheKey(text string) string {
	sum := blake2b.Sum256([]byte(text))
	return "emb:" + s.backend.Name() + ":" + hex.EncodeToString(sum[:])
}
