package handlers

import (
	"context"

	"github.com/suPer8Hu/rag-chat/internal/ai"
	"github.com/suPer8Hu/rag-chat/internal/chat"
	"github.com/suPer8Hu/rag-chat/internal/rag"
)

type ModelLister interface {
	PublicModels(ctx context.Context) ([]ai.PublicModel, error)
}

type Handler struct {
	ChatSvc  *chat.Service
	Ingester *rag.Ingester
	Chunks   *rag.Store
	Models   ModelLister
}

func NewHandler(chatSvc *chat.Service, ingester *rag.Ingester, chunks *rag.Store, models ModelLister) *Handler {
	return &Handler{ChatSvc: chatSvc, Ingester: ingester, Chunks: chunks, Models: models}
}
