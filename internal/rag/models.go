package rag

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type Chunk struct {
	ID         uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Collection string         `gorm:"type:varchar(128);not null;index;uniqueIndex:uniq_rag_chunk,priority:1" json:"collection"`
	DocID      string         `gorm:"type:varchar(128);not null;uniqueIndex:uniq_rag_chunk,priority:2" json:"doc_id"`
	ChunkID    string         `gorm:"type:varchar(160);not null;uniqueIndex:uniq_rag_chunk,priority:3" json:"chunk_id"`
	Content    string         `gorm:"type:text;not null" json:"content"`
	Embedding  datatypes.JSON `gorm:"not null" json:"-"`
	Dim        int            `gorm:"not null" json:"dim"`
	Metadata   datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (Chunk) TableName() string { return "rag_chunks" }

// Vector decodes the stored embedding.
func (c *Chunk) Vector() ([]float32, error) {
	if len(c.Embedding) == 0 {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal(c.Embedding, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *Chunk) SetVector(v []float32) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.Embedding = datatypes.JSON(b)
	c.Dim = len(v)
	return nil
}

// ScoredChunk is one retrieval hit.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}
