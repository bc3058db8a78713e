package userstate

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"referral-hub/internal/domain"
)

func newTestStore(t *testing.T, seed *domain.User) Store {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(Options{Seed: seed, Logger: logger})
}

type recorder struct {
	values []*domain.User
}

func (r *recorder) observe(u *domain.User) {
	r.values = append(r.values, u)
}

func (r *recorder) last() *domain.User {
	if len(r.values) == 0 {
		return nil
	}
	return r.values[len(r.values)-1]
}

func TestStoreStartsAbsent(t *testing.T) {
	store := newTestStore(t, nil)

	rec := &recorder{}
	store.Subscribe(rec.observe)

	require.Len(t, rec.values, 1)
	assert.Nil(t, rec.values[0])
	assert.Nil(t, store.Current())
}

func TestStoreStartsWithSeed(t *testing.T) {
	seed := &domain.User{ReferralCode: domain.Ptr("DEV")}
	store := newTestStore(t, seed)

	assert.Same(t, seed, store.Current())
}

func TestSetDeliversRecordToSubscriber(t *testing.T) {
	store := newTestStore(t, nil)

	rec := &recorder{}
	store.Subscribe(rec.observe)
	store.Set(&domain.User{ReferralCode: domain.Ptr("ABC123"), Referrals: domain.Ptr(2)})

	require.Len(t, rec.values, 2)
	got := rec.last()
	require.NotNil(t, got)
	assert.Equal(t, "ABC123", *got.ReferralCode)
	assert.Equal(t, 2, *got.Referrals)
}

func TestUpdateIncrementsReferrals(t *testing.T) {
	store := newTestStore(t, &domain.User{Referrals: domain.Ptr(2)})

	rec := &recorder{}
	store.Subscribe(rec.observe)
	store.Update(func(u *domain.User) *domain.User {
		next := u.Clone()
		next.Referrals = domain.Ptr(*u.Referrals + 1)
		return next
	})

	got := rec.last()
	require.NotNil(t, got)
	assert.Equal(t, 3, *got.Referrals)
	assert.Same(t, got, store.Current())
}

func TestUpdateReceivesAbsentValue(t *testing.T) {
	store := newTestStore(t, nil)

	var sawAbsent bool
	store.Update(func(u *domain.User) *domain.User {
		sawAbsent = u == nil
		return &domain.User{Multiplier: domain.Ptr(2.0)}
	})

	assert.True(t, sawAbsent)
	require.NotNil(t, store.Current())
	assert.Equal(t, 2.0, *store.Current().Multiplier)
}

func TestResetClearsToAbsent(t *testing.T) {
	store := newTestStore(t, &domain.User{ReferralCode: domain.Ptr("ABC123")})

	rec := &recorder{}
	store.Subscribe(rec.observe)
	store.Reset()

	require.Len(t, rec.values, 2)
	assert.Nil(t, rec.last())

	late := &recorder{}
	store.Subscribe(late.observe)
	require.Len(t, late.values, 1)
	assert.Nil(t, late.values[0])
}

func TestResetOnAbsentNotifiesNobody(t *testing.T) {
	store := newTestStore(t, nil)

	rec := &recorder{}
	store.Subscribe(rec.observe)
	store.Reset()
	store.Set(nil)

	assert.Len(t, rec.values, 1)
}

func TestUnsubscribeHaltsNotifications(t *testing.T) {
	store := newTestStore(t, nil)

	rec := &recorder{}
	unsubscribe := store.Subscribe(rec.observe)
	unsubscribe()
	store.Set(&domain.User{})

	assert.Len(t, rec.values, 1)
}
