package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/rag-chat/internal/apperr"
	"github.com/suPer8Hu/rag-chat/internal/embed"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(gormsqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Chunk{}))
	return db
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-2, 0.5, 4}

	assert.InDelta(t, CosineSimilarity(a, b), CosineSimilarity(b, a), 1e-12)
	assert.InDelta(t, 1.0, CosineSimilarity(a, a), 1e-12)
	assert.InDelta(t, 1.0, CosineSimilarity(a, []float32{2, 4, 6}), 1e-12)
	assert.InDelta(t, -1.0, CosineSimilarity(a, []float32{-1, -2, -3}), 1e-12)
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{0, 0, 0}))
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestChunkTextByLength_Coverage(t *testing.T) {
	text := strings.Repeat("abcdefghij", 37) + "xyz"
	for _, tc := range []struct{ size, overlap int }{
		{100, 0}, {100, 10}, {100, 99}, {50, 25}, {1000, 100},
	} {
		t.Run(fmt.Sprintf("size=%d/overlap=%d", tc.size, tc.overlap), func(t *testing.T) {
			chunks := ChunkTextByLength(text, tc.size, tc.overlap)
			require.NotEmpty(t, chunks)

			var rebuilt strings.Builder
			for i, c := range chunks {
				assert.LessOrEqual(t, len([]rune(c)), tc.size)
				if i == 0 {
					rebuilt.WriteString(c)
					continue
				}
				prev := []rune(chunks[i-1])
				cur := []rune(c)
				assert.Equal(t, string(prev[len(prev)-tc.overlap:]), string(cur[:tc.overlap]),
					"chunk %d must overlap the previous by %d", i, tc.overlap)
				rebuilt.WriteString(string(cur[tc.overlap:]))
			}
			assert.Equal(t, text, rebuilt.String())
		})
	}
}

func TestChunkTextByLength_Edges(t *testing.T) {
	assert.Nil(t, ChunkTextByLength("", 100, 0))
	assert.Equal(t, []string{"short"}, ChunkTextByLength("short", 100, 10))
	assert.Equal(t, []string{"日本語テ", "テキスト"}, ChunkTextByLength("日本語テキスト", 4, 1))
}

func TestNormalizeChunking(t *testing.T) {
	intp := func(n int) *int { return &n }
	tests := []struct {
		size, overlap         *int
		wantSize, wantOverlap int
	}{
		{nil, nil, DefaultChunkSize, DefaultChunkOverlap},
		{intp(10), intp(5), 100, 5},
		{intp(9000), intp(-1), 4000, 0},
		{intp(200), intp(500), 200, 199},
	}
	for _, tt := range tests {
		s, o := normalizeChunking(tt.size, tt.overlap)
		assert.Equal(t, tt.wantSize, s)
		assert.Equal(t, tt.wantOverlap, o)
	}
}

type staticLister struct{ chunks []Chunk }

func (s staticLister) ListByCollection(context.Context, string) ([]Chunk, error) {
	return s.chunks, nil
}

func mustChunk(t *testing.T, id string, v []float32) Chunk {
	c := Chunk{Collection: "c", DocID: "d", ChunkID: id}
	require.NoError(t, c.SetVector(v))
	return c
}

func TestRetrieve_SortedTruncatedStable(t *testing.T) {
	chunks := []Chunk{
		mustChunk(t, "low", []float32{0, 1}),
		mustChunk(t, "tieA", []float32{1, 1}),
		mustChunk(t, "best", []float32{1, 0}),
		mustChunk(t, "tieB", []float32{2, 2}),
		mustChunk(t, "zero", []float32{0, 0}),
	}
	r := NewRetriever(staticLister{chunks: chunks})

	got, err := r.Retrieve(context.Background(), "c", []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "best", got[0].Chunk.ChunkID)
	assert.Equal(t, "tieA", got[1].Chunk.ChunkID)
	assert.Equal(t, "tieB", got[2].Chunk.ChunkID)
	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
	}
}

func TestRetrieve_ClampsTopK(t *testing.T) {
	var chunks []Chunk
	for i := 0; i < 30; i++ {
		chunks = append(chunks, mustChunk(t, fmt.Sprint(i), []float32{1, float32(i)}))
	}
	r := NewRetriever(staticLister{chunks: chunks})

	got, err := r.Retrieve(context.Background(), "c", []float32{1, 1}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = r.Retrieve(context.Background(), "c", []float32{1, 1}, 500)
	require.NoError(t, err)
	assert.Len(t, got, MaxTopK)
}

func TestIngestRetrieve_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	emb := embed.NewService(embed.NewHashBackend(128))
	ing := NewIngester(store, emb, "kb")

	zero := 0
	text := "Gophers keep their burrows tidy and store seeds for winter."
	res, err := ing.Ingest(context.Background(), IngestRequest{
		Texts:        []IngestText{{DocID: "doc-1", Text: text}},
		ChunkOverlap: &zero,
	})
	require.NoError(t, err)
	assert.Equal(t, "kb", res.Collection)
	assert.Equal(t, 1, res.Total)

	// unrelated noise in the same collection
	_, err = ing.Ingest(context.Background(), IngestRequest{
		Texts: []IngestText{{Text: "Quarterly revenue grew in the northern region."}},
	})
	require.NoError(t, err)

	q, err := emb.Embed(context.Background(), text)
	require.NoError(t, err)
	hits, err := NewRetriever(store).Retrieve(context.Background(), "kb", q, 5)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "doc-1#0", hits[0].Chunk.ChunkID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.False(t, math.IsNaN(hits[len(hits)-1].Score))
}

func TestIngest_StoresMetadataAndIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ing := NewIngester(store, embed.NewService(embed.NewHashBackend(32)), "")

	size, overlap := 100, 10
	req := IngestRequest{
		Collection: "manuals",
		Texts: []IngestText{{
			DocID:    "m1",
			Text:     strings.Repeat("word ", 60),
			Metadata: map[string]any{"source": "manual.pdf"},
		}},
		ChunkSize:    &size,
		ChunkOverlap: &overlap,
	}
	first, err := ing.Ingest(context.Background(), req)
	require.NoError(t, err)
	require.Greater(t, first.Total, 1)

	_, err = ing.Ingest(context.Background(), req)
	require.NoError(t, err)

	n, err := store.CountByCollection(context.Background(), "manuals")
	require.NoError(t, err)
	assert.Equal(t, int64(first.Total), n)

	chunks, err := store.ListByCollection(context.Background(), "manuals")
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"manual.pdf"}`, string(chunks[0].Metadata))
	assert.Equal(t, 32, chunks[0].Dim)

	stats, err := store.Collections(context.Background())
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, "manuals", stats[0].Collection)

	deleted, err := store.DeleteDocument(context.Background(), "manuals", "m1")
	require.NoError(t, err)
	assert.Equal(t, n, deleted)
}

func TestIngest_Validation(t *testing.T) {
	ing := NewIngester(nil, nil, "")
	_, err := ing.Ingest(context.Background(), IngestRequest{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = ing.Ingest(context.Background(), IngestRequest{Texts: []IngestText{{Text: "  "}}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

type failingEmbedder struct{ after int }

func (f *failingEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.after == 0 {
		return nil, errors.New("embedder down")
	}
	f.after--
	return []float32{1, 0}, nil
}

func TestIngest_PartialFailureKeepsEarlierDocs(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ing := NewIngester(store, &failingEmbedder{after: 1}, "kb")

	res, err := ing.Ingest(context.Background(), IngestRequest{
		Texts: []IngestText{{DocID: "a", Text: "first doc"}, {DocID: "b", Text: "second doc"}},
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Len(t, res.Docs, 1)

	n, err := store.CountByCollection(context.Background(), "kb")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
