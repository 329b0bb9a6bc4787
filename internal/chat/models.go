package chat

import (
	"time"

	"gorm.io/datatypes"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"

	DirectionIn  = "in"
	DirectionOut = "out"
)

type Session struct {
	ID           uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionID    string    `gorm:"type:varchar(26);uniqueIndex;not null" json:"session_id"`
	OwnerID      string    `gorm:"type:varchar(128);index;not null;default:''" json:"owner_id"`
	Title        string    `gorm:"type:varchar(255)" json:"title"`
	CurrentModel string    `gorm:"type:varchar(128)" json:"current_model"`
	Pinned       bool      `gorm:"index;not null;default:false" json:"pinned"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

func (Session) TableName() string { return "chat_sessions" }

type Message struct {
	ID            uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	SessionID     string         `gorm:"type:varchar(26);not null;index:idx_chat_msg_session_id,priority:1" json:"session_id"`
	Role          string         `gorm:"type:varchar(16);index;not null" json:"role"`
	Direction     string         `gorm:"type:varchar(8);not null" json:"direction"`
	Content       string         `gorm:"type:text;not null" json:"content"`
	Model         string         `gorm:"type:varchar(128)" json:"model,omitempty"`
	ContextChunks datatypes.JSON `json:"context_chunks,omitempty"`
	Metadata      datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

func (Message) TableName() string { return "chat_messages" }

// ContextChunk records which retrieved chunk informed an answer.
type ContextChunk struct {
	Ordinal    int     `json:"ordinal"`
	Collection string  `json:"collection"`
	DocID      string  `json:"doc_id"`
	ChunkID    string  `json:"chunk_id"`
	Score      float64 `json:"score"`
	Content    string  `json:"content,omitempty"`
}
