package rag

import (
	"context"
	"log/slog"
	"math"
	"sort"
)

const (
	MinTopK = 1
	MaxTopK = 20
)

// ChunkLister is the read side of the chunk store.
type ChunkLister interface {
	ListByCollection(ctx context.Context, collection string) ([]Chunk, error)
}

// CosineSimilarity is 0 when either vector has zero norm or the lengths differ.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func ClampTopK(k int) int {
	if k < MinTopK {
		return MinTopK
	}
	if k > MaxTopK {
		return MaxTopK
	}
	return k
}

type Retriever struct {
	store ChunkLister
}

func NewRetriever(store ChunkLister) *Retriever {
	return &Retriever{store: store}
}

// Retrieve scans the whole collection. There is no index, so cost grows with
// the collection size.
func (r *Retriever) Retrieve(ctx context.Context, collection string, query []float32, topK int) ([]ScoredChunk, error) {
	topK = ClampTopK(topK)

	chunks, err := r.store.ListByCollection(ctx, collection)
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		vec, err := c.Vector()
		if err != nil {
			slog.WarnContext(ctx, "skipping chunk with unreadable embedding",
				"collection", collection, "doc_id", c.DocID, "chunk_id", c.ChunkID, "error", err)
			continue
		}
		scored = append(scored, ScoredChunk{Chunk: c, Score: CosineSimilarity(query, vec)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
