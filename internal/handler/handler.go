package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kpressOrg/user-service/shared/cqrs"
	"github.com/kpressOrg/user-service/shared/logging"
	"github.com/kpressOrg/user-service/shared/middleware"
	"github.com/kpressOrg/user-service/shared/models"
)

const msgInternalError = "Internal server error"

// UserCommander defines the write-side operations used by the handlers.
type UserCommander interface {
	RegisterUser(context.Context, cqrs.RegisterUserCommand) (*models.User, error)
	UpdateUser(context.Context, cqrs.UpdateUserCommand) (*models.UserView, error)
	DeleteUser(context.Context, cqrs.DeleteUserCommand) error
}

// UserQuerier defines the read-side operations used by UserHandler.
type UserQuerier interface {
	ListUsers(context.Context, cqrs.ListUsersQuery) ([]models.UserView, error)
}

// AuthQuerier defines the read-side operations used by AuthHandler.
type AuthQuerier interface {
	Login(context.Context, cqrs.LoginCommand) (*cqrs.LoginResult, error)
	VerifyToken(context.Context, cqrs.VerifyTokenCommand) (*cqrs.TokenIdentity, error)
}

// Recorder counts successful user operations.
type Recorder interface {
	UserCreated()
	UserUpdated()
	UserDeleted()
	UsersRead()
}

type nopRecorder struct{}

func (nopRecorder) UserCreated() {}
func (nopRecorder) UserUpdated() {}
func (nopRecorder) UserDeleted() {}
func (nopRecorder) UsersRead()   {}

// respondInternal logs err with the request logger and answers with a
// generic 500. Driver errors never reach the client.
func respondInternal(c *gin.Context, op string, err error) {
	logging.FromContext(c.Request.Context()).Error(op+" failed", "error", err)
	middleware.RespondWithError(c, http.StatusInternalServerError, msgInternalError)
}
