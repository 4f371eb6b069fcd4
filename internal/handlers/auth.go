package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/heodongun/DongunCoinHub/internal/auth"
	"github.com/heodongun/DongunCoinHub/internal/engine"
	"github.com/heodongun/DongunCoinHub/internal/storage"
)

// AuthStore is the user-facing slice of the ledger store.
type AuthStore interface {
	CreateUserWithAccount(ctx context.Context, email, passwordHash, nickname string) (*storage.User, *storage.VirtualAccount, error)
	GetUserByEmail(ctx context.Context, email string) (*storage.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (*storage.User, error)
}

type LoginLimiter interface {
	Allow(ctx context.Context, key string, now time.Time) (bool, time.Duration, error)
}

type AuthHandler struct {
	store   AuthStore
	issuer  *auth.TokenIssuer
	limiter LoginLimiter
	params  auth.Argon2Params
	logger  *slog.Logger
}

func NewAuthHandler(store AuthStore, issuer *auth.TokenIssuer, limiter LoginLimiter, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthHandler{
		store:   store,
		issuer:  issuer,
		limiter: limiter,
		params:  auth.DefaultArgon2Params(),
		logger:  logger,
	}
}

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Nickname string `json:"nickname" binding:"required,min=2"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// authResponse is a fixed contract: other components depend on this shape.
type authResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Nickname     string `json:"nickname"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email, password (min 8) and nickname (min 2) are required")
		return
	}

	hash, err := auth.HashPassword(req.Password, h.params)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	user, _, err := h.store.CreateUserWithAccount(c.Request.Context(), req.Email, hash, req.Nickname)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	pair, err := h.issuer.Issue(user.ID, user.Role, time.Now().UTC())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	h.logger.Info("user registered", "user_id", user.ID.String())
	c.JSON(http.StatusCreated, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       user.ID.String(),
		Email:        user.Email,
		Nickname:     user.Nickname,
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}

	if h.limiter != nil {
		key := strings.ToLower(req.Email) + "|" + c.ClientIP()
		allowed, retryAfter, err := h.limiter.Allow(c.Request.Context(), key, time.Now())
		if err == nil && !allowed {
			c.Header("Retry-After", retryAfter.Round(time.Second).String())
			c.JSON(http.StatusTooManyRequests, errorResponse{Code: "RATE_LIMITED", Message: "too many login attempts"})
			return
		}
	}

	user, err := h.store.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		// Same response as a bad password so emails cannot be probed.
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid credentials"})
		return
	}
	if !user.Active {
		c.JSON(http.StatusForbidden, errorResponse{Code: engine.CodeConflict, Message: "account disabled"})
		return
	}

	ok, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid credentials"})
		return
	}

	pair, err := h.issuer.Issue(user.ID, user.Role, time.Now().UTC())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       user.ID.String(),
		Email:        user.Email,
		Nickname:     user.Nickname,
	})
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "refreshToken is required")
		return
	}

	claims, err := h.issuer.Verify(req.RefreshToken, auth.TokenTypeRefresh)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid or expired refresh token"})
		return
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		c.JSON(http.StatusUnauthorized, errorResponse{Code: "UNAUTHORIZED", Message: "invalid token subject"})
		return
	}

	user, err := h.store.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	pair, err := h.issuer.Issue(user.ID, user.Role, time.Now().UTC())
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, authResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		UserID:       user.ID.String(),
		Email:        user.Email,
		Nickname:     user.Nickname,
	})
}
