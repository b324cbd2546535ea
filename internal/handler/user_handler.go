package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kpressOrg/user-service/internal/command"
	"github.com/kpressOrg/user-service/internal/repository"
	"github.com/kpressOrg/user-service/shared/cqrs"
	"github.com/kpressOrg/user-service/shared/middleware"
)

// UserHandler routes requests to the command or query service as appropriate.
type UserHandler struct {
	commands UserCommander
	queries  UserQuerier
	metrics  Recorder
}

// UpdateUserRequest carries a partial update; at least one field is needed.
type UpdateUserRequest struct {
	Username string `json:"username" validate:"required_without=Password"`
	Password string `json:"password" validate:"required_without=Username"`
}

func NewUserHandler(commands UserCommander, queries UserQuerier, metrics Recorder) *UserHandler {
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &UserHandler{commands: commands, queries: queries, metrics: metrics}
}

func (h *UserHandler) ListUsers(c *gin.Context) {
	views, err := h.queries.ListUsers(c.Request.Context(), cqrs.ListUsersQuery{})
	if err != nil {
		respondInternal(c, "list users", err)
		return
	}
	h.metrics.UsersRead()
	c.JSON(http.StatusOK, views)
}

func (h *UserHandler) UpdateUser(c *gin.Context) {
	userID := c.Param("id")

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, "Username or password is required", validationErrors)
		return
	}

	_, err := h.commands.UpdateUser(c.Request.Context(), cqrs.UpdateUserCommand{
		UserID:   userID,
		Username: req.Username,
		Password: req.Password,
	})
	switch {
	case errors.Is(err, repository.ErrUserNotFound):
		middleware.RespondWithError(c, http.StatusNotFound, "User not found")
		return
	case errors.Is(err, repository.ErrUsernameTaken):
		middleware.RespondWithError(c, http.StatusBadRequest, "Username already exists")
		return
	case errors.Is(err, command.ErrNothingToUpdate):
		middleware.RespondWithError(c, http.StatusBadRequest, "Username or password is required")
		return
	case err != nil:
		respondInternal(c, "update user", err)
		return
	}

	h.metrics.UserUpdated()
	c.JSON(http.StatusOK, MessageResponse{Message: "User updated successfully"})
}

// DeleteUser answers 204 whether or not the user existed.
func (h *UserHandler) DeleteUser(c *gin.Context) {
	if err := h.commands.DeleteUser(c.Request.Context(), cqrs.DeleteUserCommand{UserID: c.Param("id")}); err != nil {
		respondInternal(c, "delete user", err)
		return
	}
	h.metrics.UserDeleted()
	c.Status(http.StatusNoContent)
}
