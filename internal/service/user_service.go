package service

import (
	"context"
	"errors"
	"sync"

	"referral-hub/internal/domain"
	"referral-hub/internal/state"
	"referral-hub/internal/userstate"
)

var (
	// ErrEmptyPatch is returned when a patch carries no user object.
	ErrEmptyPatch = errors.New("patch must be a user object")
)

// UserService describes the current-user operations offered to UI clients.
// Writes are serialised, so concurrent patches never merge into a stale user.
// Observers must not call back into the service's write methods.
type UserService interface {
	Current(ctx context.Context) *domain.User
	Replace(ctx context.Context, user *domain.User) *domain.User
	Patch(ctx context.Context, patch *domain.User) (*domain.User, error)
	Clear(ctx context.Context)
	Watch(ctx context.Context, fn func(*domain.User)) state.Unsubscribe
}

type userService struct {
	mu    sync.Mutex
	users userstate.Store
}

func NewUserService(users userstate.Store) UserService {
	return &userService{users: users}
}

func (s *userService) Current(ctx context.Context) *domain.User {
	return s.users.Current()
}

func (s *userService) Replace(ctx context.Context, user *domain.User) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users.Set(user)
	return user
}

// Patch merges patch into the current user. An absent user is treated as an
// empty record so a patch can create one.
func (s *userService) Patch(ctx context.Context, patch *domain.User) (*domain.User, error) {
	if patch == nil {
		return nil, ErrEmptyPatch
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var merged *domain.User
	s.users.Update(func(current *domain.User) *domain.User {
		next := current.Clone()
		if next == nil {
			next = &domain.User{}
		}
		next.Merge(patch)
		merged = next
		return next
	})
	return merged, nil
}

func (s *userService) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.users.Reset()
}

// Watch subscribes fn until ctx is done or the returned Unsubscribe is
// called, whichever comes first. fn is called once with the current user
// before Watch returns.
func (s *userService) Watch(ctx context.Context, fn func(*domain.User)) state.Unsubscribe {
	unsubscribe := s.users.Subscribe(fn)
	stop := context.AfterFunc(ctx, unsubscribe)
	return func() {
		stop()
		unsubscribe()
	}
}
