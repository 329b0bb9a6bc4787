package ai

import "time"

type BackendType string

const (
	BackendCloud BackendType = "cloud"
	BackendLocal BackendType = "local"
)

const (
	ProviderGemini    = "gemini"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// ModelConfig is administered out of band; the chat pipeline only reads it.
type ModelConfig struct {
	ID                 uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ModelKey           string      `gorm:"type:varchar(128);uniqueIndex;not null" json:"model_key"`
	Name               string      `gorm:"type:varchar(128);index;not null" json:"name"`
	Type               BackendType `gorm:"type:varchar(16);not null" json:"type"`
	Provider           string      `gorm:"type:varchar(32)" json:"provider"`
	Credential         string      `gorm:"type:text" json:"-"`
	BaseURL            string      `gorm:"type:varchar(255)" json:"-"`
	DefaultMaxTokens   int         `json:"default_max_tokens"`
	DefaultTemperature *float32    `json:"default_temperature,omitempty"`
	DefaultTopP        *float32    `json:"default_top_p,omitempty"`
	Enabled            bool        `gorm:"index;not null" json:"enabled"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

func (ModelConfig) TableName() string { return "model_configs" }

// PublicModel is what non-privileged callers may see of a ModelConfig.
type PublicModel struct {
	ModelKey string      `json:"model_key"`
	Name     string      `json:"name"`
	Type     BackendType `json:"type"`
	Provider string      `json:"provider"`
}

type GenerationParams struct {
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float32 `json:"temperature,omitempty"`
	TopP        *float32 `json:"top_p,omitempty"`
}

// Resolution is a fully resolved backend for one generation call.
type Resolution struct {
	EffectiveModelKey string
	ModelName         string
	BackendType       BackendType
	Provider          string
	Credential        string `json:"-"`
	BaseURL           string
	Params            GenerationParams
}
