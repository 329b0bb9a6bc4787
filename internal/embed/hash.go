package embed

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// HashBackend is an in-process feature-hashing embedder. Identical text always
// maps to the identical unit vector; texts sharing words point the same way.
type HashBackend struct {
	dim int
}

func NewHashBackend(dim int) *HashBackend {
	if dim <= 0 {
		dim = 384
	}
	return &HashBackend{dim: dim}
}

func (h *HashBackend) Name() string { return fmt.Sprintf("hash:%d", h.dim) }

func (h *HashBackend) Init(context.Context) error { return nil }

func (h *HashBackend) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		sum := xxhash.Sum64String(w)
		idx := int(sum % uint64(h.dim))
		// the top bit picks the sign so collisions partly cancel out
		if sum>>63 == 1 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}
