package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/rag-chat/internal/chat"
	"github.com/suPer8Hu/rag-chat/internal/common"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"pong": true})
}

func (h *Handler) Chat(c *gin.Context) {
	var req chat.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	res, err := h.ChatSvc.Chat(c.Request.Context(), identity(c, req.UserID), req)
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, res)
}

func (h *Handler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	sessions, err := h.ChatSvc.ListSessions(c.Request.Context(), identity(c, c.Query("user_id")), c.Query("owner_id"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, gin.H{"sessions": sessions})
}

func (h *Handler) ListChatMessages(c *gin.Context) {
	sessionID := c.Param("session_id")

	limit, _ := strconv.Atoi(c.Query("limit"))
	beforeIDStr := c.Query("before_id")
	var beforeID uint64
	if beforeIDStr != "" {
		if n, err := strconv.ParseUint(beforeIDStr, 10, 64); err == nil {
			beforeID = n
		}
	}

	msgs, err := h.ChatSvc.ListMessages(c.Request.Context(), identity(c, c.Query("user_id")), sessionID, limit, beforeID)
	if err != nil {
		writeError(c, err)
		return
	}

	var nextBeforeID uint64
	if len(msgs) > 0 {
		nextBeforeID = msgs[len(msgs)-1].ID
	}

	common.OK(c, gin.H{
		"messages":       msgs,
		"next_before_id": nextBeforeID,
	})
}

type renameSessionReq struct {
	UserID string `json:"user_id"`
	Title  string `json:"title" binding:"required"`
}

func (h *Handler) RenameSession(c *gin.Context) {
	var req renameSessionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	sess, err := h.ChatSvc.RenameSession(c.Request.Context(), identity(c, req.UserID), c.Param("session_id"), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, sess)
}

type pinSessionReq struct {
	UserID string `json:"user_id"`
	Pinned *bool  `json:"pinned"`
}

// PinSession sets pinned when given, otherwise toggles it.
func (h *Handler) PinSession(c *gin.Context) {
	var req pinSessionReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
			return
		}
	}

	sess, err := h.ChatSvc.SetPinned(c.Request.Context(), identity(c, req.UserID), c.Param("session_id"), req.Pinned)
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, sess)
}

func (h *Handler) DeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if err := h.ChatSvc.DeleteSession(c.Request.Context(), identity(c, c.Query("user_id")), sessionID); err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, gin.H{"session_id": sessionID, "deleted": true})
}
