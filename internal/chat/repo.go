package chat

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) CreateSession(ctx context.Context, s *Session) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *Repo) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var s Session
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// AdoptOwner claims an ownerless session for ownerID and returns the owner
// that is recorded afterwards, which differs from ownerID when another caller
// claimed it first.
func (r *Repo) AdoptOwner(ctx context.Context, sessionID, ownerID string) (string, error) {
	if err := r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ? AND owner_id = ?", sessionID, "").
		UpdateColumn("owner_id", ownerID).Error; err != nil {
		return "", err
	}
	s, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return s.OwnerID, nil
}

// TouchSession bumps updated_at and records the model that last answered.
func (r *Repo) TouchSession(ctx context.Context, sessionID, model string) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Updates(map[string]any{
			"current_model": model,
			"updated_at":    time.Now().UTC(),
		}).Error
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListRecentMessages returns up to limit messages older than beforeID in
// ASC id order (oldest -> newest).
func (r *Repo) ListRecentMessages(ctx context.Context, sessionID string, limit int, beforeID uint64) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	q := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit)
	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var desc []Message
	if err := q.Find(&desc).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(desc)-1; i < j; i, j = i+1, j-1 {
		desc[i], desc[j] = desc[j], desc[i]
	}
	return desc, nil
}

// ListMessages returns messages in DESC id order (newest -> oldest).
func (r *Repo) ListMessages(ctx context.Context, sessionID string, limit int, beforeID uint64) ([]Message, error) {
	q := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("id DESC").
		Limit(limit)

	if beforeID > 0 {
		q = q.Where("id < ?", beforeID)
	}

	var msgs []Message
	if err := q.Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListSessions returns pinned sessions first, then the most recently active.
// An empty ownerID lists every session.
func (r *Repo) ListSessions(ctx context.Context, ownerID string, limit int) ([]Session, error) {
	q := r.db.WithContext(ctx).
		Order("pinned DESC").
		Order("updated_at DESC").
		Order("id DESC").
		Limit(limit)
	if ownerID != "" {
		q = q.Where("owner_id = ?", ownerID)
	}

	var out []Session
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repo) RenameSession(ctx context.Context, sessionID, title string) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("title", title).Error
}

func (r *Repo) SetPinned(ctx context.Context, sessionID string, pinned bool) error {
	return r.db.WithContext(ctx).Model(&Session{}).
		Where("session_id = ?", sessionID).
		Update("pinned", pinned).Error
}

// DeleteSession removes the session and all of its messages.
func (r *Repo) DeleteSession(ctx context.Context, sessionID string) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("session_id = ?", sessionID).Delete(&Message{})
		if res.Error != nil {
			return res.Error
		}
		removed = res.RowsAffected
		return tx.Where("session_id = ?", sessionID).Delete(&Session{}).Error
	})
	return removed, err
}
