package userstate

import (
	"github.com/sirupsen/logrus"

	"referral-hub/internal/domain"
	"referral-hub/internal/state"
)

// Store is the observable slot holding the current user. A nil user means no
// user is present.
type Store interface {
	Subscribe(fn func(*domain.User)) state.Unsubscribe
	Set(user *domain.User)
	Update(fn func(*domain.User) *domain.User)
	Reset()
	Current() *domain.User
	Subscribers() int
}

type Options struct {
	// Seed, when set, is the initial user instead of an empty slot.
	Seed   *domain.User
	Logger *logrus.Logger
}

type store struct {
	value  *state.Writable[*domain.User]
	logger *logrus.Entry
}

func New(opts Options) Store {
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &store{
		value:  state.NewWritable(opts.Seed, state.WithEqual(bothAbsent)),
		logger: opts.Logger.WithField("component", "userstate"),
	}
}

func (s *store) Subscribe(fn func(*domain.User)) state.Unsubscribe {
	return s.value.Subscribe(fn)
}

func (s *store) Set(user *domain.User) {
	s.logger.WithField("present", user != nil).Debug("set current user")
	s.value.Set(user)
}

// Update passes the current user, possibly nil, to fn and stores the result.
func (s *store) Update(fn func(*domain.User) *domain.User) {
	s.value.Update(func(current *domain.User) *domain.User {
		next := fn(current)
		s.logger.WithFields(logrus.Fields{
			"was_present": current != nil,
			"present":     next != nil,
		}).Debug("update current user")
		return next
	})
}

func (s *store) Reset() {
	s.logger.Debug("reset current user")
	s.value.Set(nil)
}

func (s *store) Current() *domain.User {
	return s.value.Get()
}

func (s *store) Subscribers() int {
	return s.value.Len()
}

// Only absent-to-absent counts as unchanged; any write of a record notifies.
func bothAbsent(a, b *domain.User) bool {
	return a == nil && b == nil
}
