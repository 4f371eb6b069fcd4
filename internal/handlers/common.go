package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/heodongun/DongunCoinHub/internal/engine"
	"github.com/heodongun/DongunCoinHub/internal/storage"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps engine error codes and storage sentinels to HTTP
// statuses. Anything unmapped is a 500 with a generic body.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	if e, ok := engine.AsEngineError(err); ok {
		c.JSON(statusForCode(e.Code), errorResponse{Code: e.Code, Message: e.Message})
		return
	}
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Code: engine.CodeNotFound, Message: "resource not found"})
	case errors.Is(err, storage.ErrEmailTaken):
		c.JSON(http.StatusConflict, errorResponse{Code: engine.CodeConflict, Message: "email already registered"})
	case errors.Is(err, storage.ErrNicknameTaken):
		c.JSON(http.StatusConflict, errorResponse{Code: engine.CodeConflict, Message: "nickname already taken"})
	default:
		logger.Error("request failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Code: engine.CodeInternal, Message: "internal error"})
	}
}

func statusForCode(code string) int {
	switch code {
	case engine.CodeInvalidRequest:
		return http.StatusBadRequest
	case engine.CodeNotFound:
		return http.StatusNotFound
	case engine.CodeConflict:
		return http.StatusConflict
	case engine.CodePriceUnavailable:
		return http.StatusServiceUnavailable
	case engine.CodeTxConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Code: engine.CodeInvalidRequest, Message: msg})
}
