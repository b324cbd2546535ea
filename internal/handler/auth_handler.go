package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kpressOrg/user-service/internal/command"
	"github.com/kpressOrg/user-service/internal/query"
	"github.com/kpressOrg/user-service/internal/repository"
	"github.com/kpressOrg/user-service/shared/cqrs"
	"github.com/kpressOrg/user-service/shared/middleware"
	"github.com/kpressOrg/user-service/shared/token"
)

const msgCredentialsRequired = "Username and password are required"

// AuthHandler handles registration, login and token checks. Registration is
// the only write and goes through the command service.
type AuthHandler struct {
	commands UserCommander
	queries  AuthQuerier
	metrics  Recorder
}

type CredentialsRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type VerifyTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	UserID  string `json:"userId"`
}

type VerifyTokenResponse struct {
	Valid     bool      `json:"valid"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type IdentityResponse struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

func NewAuthHandler(commands UserCommander, queries AuthQuerier, metrics Recorder) *AuthHandler {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &AuthHandler{commands: commands, queries: queries, metrics: metrics}
}

func (h *AuthHandler) bindCredentials(c *gin.Context) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return req, false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, msgCredentialsRequired, validationErrors)
		return req, false
	}
	return req, true
}

func (h *AuthHandler) Register(c *gin.Context) {
	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	_, err := h.commands.RegisterUser(c.Request.Context(), cqrs.RegisterUserCommand{
		Username: req.Username,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, repository.ErrUsernameTaken):
		middleware.RespondWithError(c, http.StatusBadRequest, "Username already exists")
		return
	case errors.Is(err, command.ErrMissingCredentials):
		middleware.RespondWithError(c, http.StatusBadRequest, msgCredentialsRequired)
		return
	case err != nil:
		respondInternal(c, "register", err)
		return
	}

	h.metrics.UserCreated()
	c.JSON(http.StatusCreated, MessageResponse{Message: "User registered successfully"})
}

func (h *AuthHandler) Login(c *gin.Context) {
	req, ok := h.bindCredentials(c)
	if !ok {
		return
	}

	res, err := h.queries.Login(c.Request.Context(), cqrs.LoginCommand{
		Username: req.Username,
		Password: req.Password,
	})
	if errors.Is(err, query.ErrInvalidCredentials) {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		respondInternal(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Message: "Login successful",
		Token:   res.Token,
		UserID:  res.UserID,
	})
}

// VerifyToken lets other services check a token without sharing the secret.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	var req VerifyTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, "Token is required", validationErrors)
		return
	}

	identity, err := h.queries.VerifyToken(c.Request.Context(), cqrs.VerifyTokenCommand{Token: req.Token})
	if errors.Is(err, token.ErrInvalidToken) {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}
	if err != nil {
		respondInternal(c, "verify token", err)
		return
	}

	c.JSON(http.StatusOK, VerifyTokenResponse{
		Valid:     true,
		UserID:    identity.UserID,
		Username:  identity.Username,
		ExpiresAt: identity.ExpiresAt,
	})
}

// Me echoes the identity of the bearer token. It must sit behind
// middleware.AuthMiddleware.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Authorization header required")
		return
	}
	username, _ := middleware.GetUsername(c)
	c.JSON(http.StatusOK, IdentityResponse{UserID: userID, Username: username})
}
