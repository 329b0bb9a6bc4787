package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/rag-chat/internal/apperr"
	"github.com/suPer8Hu/rag-chat/internal/common"
	"github.com/suPer8Hu/rag-chat/internal/rag"
)

func (h *Handler) Ingest(c *gin.Context) {
	var req rag.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.Ingester.Ingest(c.Request.Context(), req)
	if err != nil {
		if res != nil && apperr.KindOf(err) == apperr.KindInternal {
			// chunks stored before the failure stay; report them
			common.FailWithData(c, http.StatusInternalServerError, 50003, "ingest failed part way", res)
			return
		}
		writeError(c, err)
		return
	}
	common.OK(c, res)
}

func (h *Handler) ListCollections(c *gin.Context) {
	cols, err := h.Chunks.Collections(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, gin.H{"collections": cols})
}

func (h *Handler) DeleteDocument(c *gin.Context) {
	collection := strings.TrimSpace(c.Param("collection"))
	docID := strings.TrimSpace(c.Param("doc_id"))

	n, err := h.Chunks.DeleteDocument(c.Request.Context(), collection, docID)
	if err != nil {
		writeError(c, err)
		return
	}
	if n == 0 {
		common.Fail(c, http.StatusNotFound, 40004, "document not found")
		return
	}
	common.OK(c, gin.H{"collection": collection, "doc_id": docID, "chunks_deleted": n})
}

func (h *Handler) ListModels(c *gin.Context) {
	models, err := h.Models.PublicModels(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, gin.H{"models": models})
}
