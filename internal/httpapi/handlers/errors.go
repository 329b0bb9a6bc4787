package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/rag-chat/internal/apperr"
	"github.com/suPer8Hu/rag-chat/internal/chat"
	"github.com/suPer8Hu/rag-chat/internal/common"
	"github.com/suPer8Hu/rag-chat/internal/httpapi/middleware"
)

// writeError maps the error taxonomy onto HTTP statuses. Once a chat turn
// has stored the inbound message the response still names the session.
func writeError(c *gin.Context, err error) {
	status, code, msg := http.StatusInternalServerError, 50000, "internal server error"

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status, code, msg = http.StatusBadRequest, 40001, publicMessage(err)
	case apperr.KindOwnership:
		status, code, msg = http.StatusForbidden, 40301, publicMessage(err)
	case apperr.KindNotFound:
		status, code, msg = http.StatusNotFound, 40004, publicMessage(err)
	case apperr.KindConfiguration:
		status, code, msg = http.StatusInternalServerError, 50002, "model configuration error"
	case apperr.KindGeneration:
		status, code, msg = http.StatusBadGateway, 50201, "generation failed"
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed",
			"path", c.FullPath(),
			"request_id", c.GetString(middleware.RequestIDKey),
			"error", err)
	}

	var turn *chat.TurnError
	if errors.As(err, &turn) {
		common.FailWithData(c, status, code, msg, gin.H{
			"error":          msg,
			"session_id":     turn.SessionID,
			"is_new_session": turn.IsNewSession,
		})
		return
	}
	common.Fail(c, status, code, msg)
}

func publicMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) && strings.TrimSpace(ae.Msg) != "" {
		return ae.Msg
	}
	return err.Error()
}

// identity prefers the verified token; otherwise the caller-supplied id is
// taken as is and carries no privilege.
func identity(c *gin.Context, fallbackUserID string) chat.Identity {
	if uid := c.GetString(middleware.UserIDKey); uid != "" {
		return chat.Identity{UserID: uid, Privileged: c.GetBool(middleware.PrivilegedKey)}
	}
	return chat.Identity{UserID: strings.TrimSpace(fallbackUserID)}
}
