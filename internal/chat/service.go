package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/suPer8Hu/rag-chat/internal/ai"
	"github.com/suPer8Hu/rag-chat/internal/apperr"
	"github.com/suPer8Hu/rag-chat/internal/common"
	"github.com/suPer8Hu/rag-chat/internal/rag"
	"github.com/suPer8Hu/rag-chat/internal/usage"
	"github.com/suPer8Hu/rag-chat/internal/window"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	MaxHistoryLimit = 50
	MaxTitleRunes   = 120
	autoTitleRunes  = 60
	defaultTitle    = "New chat"
)

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Retriever interface {
	Retrieve(ctx context.Context, collection string, query []float32, topK int) ([]rag.ScoredChunk, error)
}

type ModelRouter interface {
	Resolve(ctx context.Context, requested string) (*ai.Resolution, error)
}

type ClientProvider interface {
	Client(ctx context.Context, res *ai.Resolution) (ai.Client, error)
}

// Deps are the collaborators of the chat pipeline. Usage may be nil.
type Deps struct {
	Embedder  Embedder
	Retriever Retriever
	Router    ModelRouter
	Clients   ClientProvider
	Usage     usage.Recorder
}

type Options struct {
	DefaultTopK         int
	DefaultHistoryLimit int
	DefaultCollection   string
	SystemPrompt        string
	GenerationTimeout   time.Duration
	Window              window.Options
}

type Service struct {
	repo *Repo
	deps Deps
	opts Options
}

func NewService(repo *Repo, deps Deps, opts Options) *Service {
	if opts.DefaultTopK <= 0 {
		opts.DefaultTopK = 5
	}
	opts.DefaultTopK = rag.ClampTopK(opts.DefaultTopK)
	opts.DefaultHistoryLimit = clampInt(opts.DefaultHistoryLimit, 0, MaxHistoryLimit)
	if opts.DefaultCollection == "" {
		opts.DefaultCollection = "default"
	}
	if opts.GenerationTimeout <= 0 {
		opts.GenerationTimeout = 5 * time.Minute
	}
	return &Service{repo: repo, deps: deps, opts: opts}
}

// Identity is the caller as established by the transport.
type Identity struct {
	UserID     string
	Privileged bool
}

type ChatRequest struct {
	SessionID    string `json:"session_id"`
	UserID       string `json:"user_id"`
	Message      string `json:"message"`
	TopK         *int   `json:"top_k"`
	Collection   string `json:"collection"`
	Model        string `json:"model"`
	HistoryLimit *int   `json:"history_limit"`
	SystemPrompt string `json:"system_prompt"`
}

type ChatResult struct {
	OK         bool           `json:"ok"`
	SessionID  string         `json:"session_id"`
	Answer     string         `json:"answer"`
	Context    []ContextChunk `json:"context"`
	TopK       int            `json:"top_k"`
	NewSession bool           `json:"new_session"`
	Model      string         `json:"model"`
	MessageID  uint64         `json:"message_id"`
}

// TurnError is returned once the inbound message has been stored, so the
// caller can still learn which session it landed in.
type TurnError struct {
	SessionID    string
	IsNewSession bool
	Err          error
}

func (e *TurnError) Error() string { return e.Err.Error() }
func (e *TurnError) Unwrap() error { return e.Err }

func (s *Service) Chat(ctx context.Context, id Identity, req ChatRequest) (*ChatResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, apperr.Validation("message is required")
	}
	topK := s.opts.DefaultTopK
	if req.TopK != nil {
		topK = rag.ClampTopK(*req.TopK)
	}
	historyLimit := s.opts.DefaultHistoryLimit
	if req.HistoryLimit != nil {
		historyLimit = clampInt(*req.HistoryLimit, 0, MaxHistoryLimit)
	}
	model := strings.TrimSpace(req.Model)
	if err := ai.ValidateModelKey(model); err != nil {
		return nil, err
	}
	collection := strings.TrimSpace(req.Collection)
	if collection == "" {
		collection = s.opts.DefaultCollection
	}
	userID := strings.TrimSpace(id.UserID)

	sess, isNew, err := s.resolveSession(ctx, Identity{UserID: userID, Privileged: id.Privileged}, strings.TrimSpace(req.SessionID), message, model)
	if err != nil {
		return nil, err
	}
	fail := func(err error) error {
		return &TurnError{SessionID: sess.SessionID, IsNewSession: isNew, Err: err}
	}

	inbound := &Message{
		SessionID: sess.SessionID,
		Role:      RoleUser,
		Direction: DirectionIn,
		Content:   message,
		Model:     model,
	}
	if err := s.repo.InsertMessage(ctx, inbound); err != nil {
		return nil, fail(fmt.Errorf("store inbound message: %w", err))
	}

	recent, err := s.repo.ListRecentMessages(ctx, sess.SessionID, 2*historyLimit, inbound.ID)
	if err != nil {
		return nil, fail(fmt.Errorf("load history: %w", err))
	}
	history := window.Window(toTurns(recent), s.opts.Window)

	vec, err := s.deps.Embedder.Embed(ctx, message)
	if err != nil {
		return nil, fail(fmt.Errorf("embed query: %w", err))
	}
	hits, err := s.deps.Retriever.Retrieve(ctx, collection, vec, topK)
	if err != nil {
		return nil, fail(fmt.Errorf("retrieve: %w", err))
	}

	system := strings.TrimSpace(req.SystemPrompt)
	if system == "" {
		system = s.opts.SystemPrompt
	}
	prompt := BuildPrompt(PromptInput{System: system, Chunks: hits, History: history, Message: message})

	res, err := s.deps.Router.Resolve(ctx, model)
	if err != nil {
		return nil, fail(err)
	}
	client, err := s.deps.Clients.Client(ctx, res)
	if err != nil {
		return nil, fail(err)
	}

	gctx, cancel := context.WithTimeout(ctx, s.opts.GenerationTimeout)
	start := time.Now()
	answer, err := client.Generate(gctx, prompt, res.Params)
	latency := time.Since(start)
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "generation failed",
			"session_id", sess.SessionID, "model", res.EffectiveModelKey,
			"latency_ms", latency.Milliseconds(), "error", err)
		return nil, fail(apperr.Generation(err, "generation failed"))
	}

	provenance := make([]ContextChunk, len(hits))
	for i, h := range hits {
		provenance[i] = ContextChunk{
			Ordinal:    i + 1,
			Collection: h.Chunk.Collection,
			DocID:      h.Chunk.DocID,
			ChunkID:    h.Chunk.ChunkID,
			Score:      h.Score,
		}
	}
	stored, err := json.Marshal(provenance)
	if err != nil {
		return nil, fail(err)
	}

	outbound := &Message{
		SessionID:     sess.SessionID,
		Role:          RoleAssistant,
		Direction:     DirectionOut,
		Content:       answer,
		Model:         res.EffectiveModelKey,
		ContextChunks: datatypes.JSON(stored),
	}
	if err := s.repo.InsertMessage(ctx, outbound); err != nil {
		return nil, fail(fmt.Errorf("store answer: %w", err))
	}
	if err := s.repo.TouchSession(ctx, sess.SessionID, res.EffectiveModelKey); err != nil {
		return nil, fail(fmt.Errorf("touch session: %w", err))
	}

	if s.deps.Usage != nil {
		rec := usage.Record{
			ModelKey:  res.EffectiveModelKey,
			UserID:    userID,
			SessionID: sess.SessionID,
			MessageID: outbound.ID,
			Timestamp: time.Now().UTC(),
			LatencyMs: latency.Milliseconds(),
		}
		if err := s.deps.Usage.Record(ctx, rec); err != nil {
			slog.WarnContext(ctx, "usage record failed", "session_id", sess.SessionID, "error", err)
		}
	}

	for i, h := range hits {
		provenance[i].Content = h.Chunk.Content
	}
	slog.InfoContext(ctx, "chat turn completed",
		"session_id", sess.SessionID, "model", res.EffectiveModelKey,
		"chunks", len(hits), "history", len(history), "latency_ms", latency.Milliseconds())

	return &ChatResult{
		OK:         true,
		SessionID:  sess.SessionID,
		Answer:     answer,
		Context:    provenance,
		TopK:       topK,
		NewSession: isNew,
		Model:      res.EffectiveModelKey,
		MessageID:  outbound.ID,
	}, nil
}

func (s *Service) resolveSession(ctx context.Context, id Identity, sessionID, firstMessage, model string) (*Session, bool, error) {
	if sessionID == "" {
		sid, err := common.NewULID()
		if err != nil {
			return nil, false, err
		}
		sess := &Session{
			SessionID:    sid,
			OwnerID:      id.UserID,
			Title:        titleFrom(firstMessage),
			CurrentModel: model,
		}
		if err := s.repo.CreateSession(ctx, sess); err != nil {
			return nil, false, err
		}
		slog.InfoContext(ctx, "session created", "session_id", sid, "owner_id", id.UserID)
		return sess, true, nil
	}

	sess, err := s.accessSession(ctx, id, sessionID, true)
	if err != nil {
		return nil, false, err
	}
	return sess, false, nil
}

// accessSession loads a session and checks the caller may use it. With adopt
// set, an ownerless session is claimed by an identified caller.
func (s *Service) accessSession(ctx context.Context, id Identity, sessionID string, adopt bool) (*Session, error) {
	sess, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("session %s not found", sessionID)
		}
		return nil, err
	}

	if sess.OwnerID == "" {
		if !adopt || id.UserID == "" {
			return sess, nil
		}
		owner, err := s.repo.AdoptOwner(ctx, sessionID, id.UserID)
		if err != nil {
			return nil, err
		}
		sess.OwnerID = owner
	}

	if sess.OwnerID != id.UserID && !id.Privileged {
		return nil, apperr.Ownership("session %s belongs to another user", sessionID)
	}
	return sess, nil
}

// ListSessions lists sessions for ownerFilter. Unprivileged identified
// callers only ever see their own.
func (s *Service) ListSessions(ctx context.Context, id Identity, ownerFilter string, limit int) ([]Session, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	owner := strings.TrimSpace(ownerFilter)
	if id.UserID != "" && !id.Privileged {
		owner = id.UserID
	}
	return s.repo.ListSessions(ctx, owner, limit)
}

// ListMessages pages through a session newest first. The owner check only
// applies when the caller is identified.
func (s *Service) ListMessages(ctx context.Context, id Identity, sessionID string, limit int, beforeID uint64) ([]Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if id.UserID == "" {
		id.Privileged = true
	}
	if _, err := s.accessSession(ctx, id, sessionID, false); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, sessionID, limit, beforeID)
}

func (s *Service) RenameSession(ctx context.Context, id Identity, sessionID, title string) (*Session, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Validation("title is required")
	}
	title = truncateRunes(title, MaxTitleRunes)

	sess, err := s.accessSession(ctx, id, sessionID, false)
	if err != nil {
		return nil, err
	}
	if err := s.repo.RenameSession(ctx, sessionID, title); err != nil {
		return nil, err
	}
	sess.Title = title
	return sess, nil
}

// SetPinned sets the pinned flag, or toggles it when pinned is nil.
func (s *Service) SetPinned(ctx context.Context, id Identity, sessionID string, pinned *bool) (*Session, error) {
	sess, err := s.accessSession(ctx, id, sessionID, false)
	if err != nil {
		return nil, err
	}
	next := !sess.Pinned
	if pinned != nil {
		next = *pinned
	}
	if err := s.repo.SetPinned(ctx, sessionID, next); err != nil {
		return nil, err
	}
	sess.Pinned = next
	return sess, nil
}

func (s *Service) DeleteSession(ctx context.Context, id Identity, sessionID string) error {
	if _, err := s.accessSession(ctx, id, sessionID, false); err != nil {
		return err
	}
	n, err := s.repo.DeleteSession(ctx, sessionID)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "session deleted", "session_id", sessionID, "messages", n)
	return nil
}

func toTurns(msgs []Message) []window.Turn {
	out := make([]window.Turn, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, window.Turn{Role: m.Role, Content: m.Content})
	}
	return out
}

func titleFrom(message string) string {
	t := strings.Join(strings.Fields(message), " ")
	if t == "" {
		return defaultTitle
	}
	return truncateRunes(t, autoTitleRunes)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
