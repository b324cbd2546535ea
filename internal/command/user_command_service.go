package command

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/kpressOrg/user-service/shared/cqrs"
	"github.com/kpressOrg/user-service/shared/logging"
	"github.com/kpressOrg/user-service/shared/models"
	"github.com/kpressOrg/user-service/shared/utils"
)

// DefaultHookTimeout bounds a single post-commit hook invocation.
const DefaultHookTimeout = 5 * time.Second

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrNothingToUpdate    = errors.New("username or password is required")
)

// UserWriter is the write side of the user store.
type UserWriter interface {
	Insert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, id, username, passwordHash string) (*models.User, error)
	Delete(ctx context.Context, id string) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

// Hook runs after a user row has been committed. It never affects the
// outcome of the command that triggered it.
type Hook func(ctx context.Context, user *models.User) error

// UserCommandService handles every state-changing user operation. Passwords
// are hashed on every write path.
type UserCommandService struct {
	writeRepo   UserWriter
	hasher      PasswordHasher
	hookTimeout time.Duration

	mu        sync.RWMutex
	onCreated []Hook
	inflight  sync.WaitGroup
}

func NewUserCommandService(writeRepo UserWriter, hasher PasswordHasher) *UserCommandService {
	if hasher == nil {
		hasher = utils.PasswordHasher{}
	}
	return &UserCommandService{
		writeRepo:   writeRepo,
		hasher:      hasher,
		hookTimeout: DefaultHookTimeout,
	}
}

// OnUserCreated appends a hook fired after each successful registration.
func (s *UserCommandService) OnUserCreated(h Hook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onCreated = append(s.onCreated, h)
}

// SetHookTimeout overrides DefaultHookTimeout.
func (s *UserCommandService) SetHookTimeout(d time.Duration) {
	if d > 0 {
		s.hookTimeout = d
	}
}

func (s *UserCommandService) RegisterUser(ctx context.Context, cmd cqrs.RegisterUserCommand) (*models.User, error) {
	if cmd.Username == "" || cmd.Password == "" {
		return nil, ErrMissingCredentials
	}
	passwordHash, err := s.hasher.Hash(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &models.User{
		ID:           utils.GenerateID(),
		Username:     cmd.Username,
		PasswordHash: passwordHash,
	}
	if err := s.writeRepo.Insert(ctx, user); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).Info("user registered", "user_id", user.ID)
	s.runHooks(ctx, s.createdHooks(), *user)
	return user, nil
}

func (s *UserCommandService) UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (*models.UserView, error) {
	if cmd.Username == "" && cmd.Password == "" {
		return nil, ErrNothingToUpdate
	}
	var passwordHash string
	if cmd.Password != "" {
		hash, err := s.hasher.Hash(cmd.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		passwordHash = hash
	}
	user, err := s.writeRepo.Update(ctx, cmd.UserID, cmd.Username, passwordHash)
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Info("user updated", "user_id", user.ID)
	view := user.ToView()
	return &view, nil
}

func (s *UserCommandService) DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand) error {
	if err := s.writeRepo.Delete(ctx, cmd.UserID); err != nil {
		return err
	}
	logging.FromContext(ctx).Info("user deleted", "user_id", cmd.UserID)
	return nil
}

// Wait blocks until every post-commit hook already started has returned.
func (s *UserCommandService) Wait() {
	s.inflight.Wait()
}

func (s *UserCommandService) createdHooks() []Hook {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.onCreated)
}

// runHooks fires hooks in the background, detached from the request so the
// response never waits on them and a finished request doesn't cancel them.
func (s *UserCommandService) runHooks(ctx context.Context, hooks []Hook, user models.User) {
	if len(hooks) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	log := logging.FromContext(ctx)

	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		for _, h := range hooks {
			hctx, cancel := context.WithTimeout(ctx, s.hookTimeout)
			err := h(hctx, &user)
			cancel()
			if err != nil {
				log.Warn("post-commit hook failed", "user_id", user.ID, "error", err)
			}
		}
	}()
}
