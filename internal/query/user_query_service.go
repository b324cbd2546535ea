package query

import (
	"context"

	"github.com/kpressOrg/user-service/shared/cqrs"
	"github.com/kpressOrg/user-service/shared/models"
)

type UserLister interface {
	ListAll(ctx context.Context) ([]models.User, error)
}

// UserQueryService serves the read side of the user store. Results are always
// projected to views; the password hash never leaves this package.
type UserQueryService struct {
	readRepo UserLister
}

func NewUserQueryService(readRepo UserLister) *UserQueryService {
	return &UserQueryService{readRepo: readRepo}
}

func (s *UserQueryService) ListUsers(ctx context.Context, _ cqrs.ListUsersQuery) ([]models.UserView, error) {
	users, err := s.readRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return models.UserViews(users), nil
}
