package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/suPer8Hu/rag-chat/internal/apperr"
	"gorm.io/datatypes"
)

const (
	MinChunkSize        = 100
	MaxChunkSize        = 4000
	DefaultChunkSize    = 800
	DefaultChunkOverlap = 100
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type ChunkWriter interface {
	Insert(ctx context.Context, chunks []Chunk) error
}

// ChunkTextByLength splits text into windows of at most size runes, each
// starting size-overlap runes after the previous one.
func ChunkTextByLength(text string, size, overlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 || size <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}
	step := size - overlap

	var out []string
	for start := 0; ; start += step {
		end := start + size
		if end >= len(runes) {
			out = append(out, string(runes[start:]))
			return out
		}
		out = append(out, string(runes[start:end]))
	}
}

type IngestText struct {
	DocID    string         `json:"doc_id"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type IngestRequest struct {
	Collection   string       `json:"collection"`
	Texts        []IngestText `json:"texts"`
	ChunkSize    *int         `json:"chunk_size"`
	ChunkOverlap *int         `json:"chunk_overlap"`
}

type IngestedDoc struct {
	DocID  string `json:"doc_id"`
	Chunks int    `json:"chunks"`
}

type IngestResult struct {
	Collection   string        `json:"collection"`
	ChunkSize    int           `json:"chunk_size"`
	ChunkOverlap int           `json:"chunk_overlap"`
	Docs         []IngestedDoc `json:"docs"`
	Total        int           `json:"total"`
}

type Ingester struct {
	store             ChunkWriter
	embedder          Embedder
	defaultCollection string
}

func NewIngester(store ChunkWriter, embedder Embedder, defaultCollection string) *Ingester {
	if defaultCollection == "" {
		defaultCollection = "default"
	}
	return &Ingester{store: store, embedder: embedder, defaultCollection: defaultCollection}
}

func normalizeChunking(sizePtr, overlapPtr *int) (int, int) {
	size := DefaultChunkSize
	if sizePtr != nil {
		size = *sizePtr
	}
	if size < MinChunkSize {
		size = MinChunkSize
	}
	if size > MaxChunkSize {
		size = MaxChunkSize
	}

	overlap := DefaultChunkOverlap
	if overlapPtr != nil {
		overlap = *overlapPtr
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap > size-1 {
		overlap = size - 1
	}
	return size, overlap
}

// Ingest embeds and stores every window of every text. A failure part way
// through leaves already stored chunks in place.
func (in *Ingester) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	if len(req.Texts) == 0 {
		return nil, apperr.Validation("texts is required")
	}
	for i, t := range req.Texts {
		if strings.TrimSpace(t.Text) == "" {
			return nil, apperr.Validation("texts[%d].text is required", i)
		}
	}

	collection := strings.TrimSpace(req.Collection)
	if collection == "" {
		collection = in.defaultCollection
	}
	size, overlap := normalizeChunking(req.ChunkSize, req.ChunkOverlap)

	res := &IngestResult{Collection: collection, ChunkSize: size, ChunkOverlap: overlap}
	for _, t := range req.Texts {
		docID := strings.TrimSpace(t.DocID)
		if docID == "" {
			docID = uuid.NewString()
		}

		var meta datatypes.JSON
		if len(t.Metadata) > 0 {
			b, err := json.Marshal(t.Metadata)
			if err != nil {
				return res, apperr.Validation("metadata for doc %s is not serialisable", docID)
			}
			meta = datatypes.JSON(b)
		}

		windows := ChunkTextByLength(t.Text, size, overlap)
		chunks := make([]Chunk, 0, len(windows))
		for i, w := range windows {
			vec, err := in.embedder.Embed(ctx, w)
			if err != nil {
				return res, fmt.Errorf("embed %s#%d: %w", docID, i, err)
			}
			c := Chunk{
				Collection: collection,
				DocID:      docID,
				ChunkID:    fmt.Sprintf("%s#%d", docID, i),
				Content:    w,
				Metadata:   meta,
			}
			if err := c.SetVector(vec); err != nil {
				return res, err
			}
			chunks = append(chunks, c)
		}

		if err := in.store.Insert(ctx, chunks); err != nil {
			return res, fmt.Errorf("store chunks for %s: %w", docID, err)
		}
		res.Docs = append(res.Docs, IngestedDoc{DocID: docID, Chunks: len(chunks)})
		res.Total += len(chunks)

		slog.InfoContext(ctx, "ingested document",
			"collection", collection, "doc_id", docID, "chunks", len(chunks))
	}
	return res, nil
}
