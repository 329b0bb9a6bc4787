package rag

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Insert stores chunks; rows whose (collection, doc_id, chunk_id) already
// exist are left untouched.
func (s *Store) Insert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&chunks).Error
}

// ListByCollection returns every chunk of a collection in insertion order.
func (s *Store) ListByCollection(ctx context.Context, collection string) ([]Chunk, error) {
	var out []Chunk
	if err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountByCollection(ctx context.Context, collection string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Chunk{}).
		Where("collection = ?", collection).
		Count(&n).Error
	return n, err
}

type CollectionStat struct {
	Collection string `json:"collection"`
	Chunks     int64  `json:"chunks"`
}

func (s *Store) Collections(ctx context.Context) ([]CollectionStat, error) {
	var out []CollectionStat
	err := s.db.WithContext(ctx).Model(&Chunk{}).
		Select("collection, COUNT(*) AS chunks").
		Group("collection").
		Order("collection ASC").
		Scan(&out).Error
	return out, err
}

func (s *Store) DeleteDocument(ctx context.Context, collection, docID string) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, docID).
		Delete(&Chunk{})
	return res.RowsAffected, res.Error
}
