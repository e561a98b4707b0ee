package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auth "github.com/pulseapp/pulse-auth"
)

type authFixture struct {
	store     *memoryStore
	sink      *recordingSink
	tokens    auth.TokenService
	auther    *auth.Auther
	registrar *auth.Registrar
	clock     *fakeClock
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		store: newMemoryStore(),
		sink:  &recordingSink{},
		clock: &fakeClock{now: time.Now()},
	}
	f.tokens = newTestTokens(t, f.clock)
	f.auther = auth.NewAuthenticator(f.store, f.tokens).
		WithLogger(&captureLogger{}).
		WithPasswordAuthenticator(fastHasher).
		WithActivitySink(f.sink).
		WithClock(f.clock.Now)
	f.registrar = newTestRegistrar(f.store, nil)
	return f
}

func (f *authFixture) register(t *testing.T, req auth.RegistrationRequest) auth.AccountView {
	t.Helper()
	res, err := f.registrar.Register(context.Background(), req)
	require.NoError(t, err)
	return res.Account
}

func TestLoginSuccess(t *testing.T) {
	f := newAuthFixture(t)
	view := f.register(t, hocRequest("a@x.com"))

	res, err := f.auther.Login(context.Background(), auth.LoginRequest{Email: " A@X.com ", Password: "longenough1"})
	require.NoError(t, err)

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, view.ID, res.Account.ID)
	assert.True(t, res.Account.IsHOCPending)
	assert.True(t, res.ExpiresAt.After(f.clock.now))

	identity, err := f.auther.VerifyToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, view.ID, identity.AccountID.String())

	assert.Equal(t, []auth.ActivityEventType{auth.ActivityEventLoginSuccess}, f.sink.types())
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, studentRequest("a@x.com"))

	_, wrongPassword := f.auther.Login(context.Background(), auth.LoginRequest{Email: "a@x.com", Password: "wrong-password"})
	_, unknownEmail := f.auther.Login(context.Background(), auth.LoginRequest{Email: "nobody@x.com", Password: "wrong-password"})

	require.Error(t, wrongPassword)
	require.Error(t, unknownEmail)
	assert.Equal(t, auth.TextCodeInvalidCredentials, auth.ErrorKind(wrongPassword))
	assert.Equal(t, auth.TextCodeInvalidCredentials, auth.ErrorKind(unknownEmail))
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	require.Len(t, f.sink.events, 2)
	assert.Equal(t, "password_mismatch", f.sink.events[0].Metadata["reason"])
	assert.Equal(t, "unknown_email", f.sink.events[1].Metadata["reason"])
}

func TestLoginValidation(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auther.Login(context.Background(), auth.LoginRequest{Email: "not-an-email", Password: ""})
	require.Error(t, err)
	assert.Equal(t, auth.TextCodeValidation, auth.ErrorKind(err))
	assert.Empty(t, f.sink.events)
}

func TestLoginStoreFailureIsInternal(t *testing.T) {
	store := &MockAccountStore{}
	store.On("FindByEmail", mock.Anything, "a@x.com").Return(nil, errors.New("db gone"))

	auther := auth.NewAuthenticator(store, newTestTokens(t, &fakeClock{now: time.Now()})).
		WithLogger(&captureLogger{}).
		WithPasswordAuthenticator(fastHasher)

	_, err := auther.Login(context.Background(), auth.LoginRequest{Email: "a@x.com", Password: "longenough1"})
	require.Error(t, err)
	assert.Equal(t, auth.TextCodeInternal, auth.ErrorKind(err))
	store.AssertExpectations(t)
}

func TestCheckEmailAvailability(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, studentRequest("taken@x.com"))

	available, err := f.auther.CheckEmailAvailability(context.Background(), "TAKEN@x.com")
	require.NoError(t, err)
	assert.False(t, available)

	available, err = f.auther.CheckEmailAvailability(context.Background(), "free@x.com")
	require.NoError(t, err)
	assert.True(t, available)

	_, err = f.auther.CheckEmailAvailability(context.Background(), "nope")
	assert.Equal(t, auth.TextCodeValidation, auth.ErrorKind(err))
}

func TestCurrentAccountReadsLiveState(t *testing.T) {
	f := newAuthFixture(t)
	view := f.register(t, hocRequest("a@x.com"))

	res, err := f.auther.Login(context.Background(), auth.LoginRequest{Email: "a@x.com", Password: "longenough1"})
	require.NoError(t, err)

	_, err = f.registrar.ApproveHOC(context.Background(), auth.SystemActor, uuid.MustParse(view.ID))
	require.NoError(t, err)

	account, err := f.auther.CurrentAccount(context.Background(), res.Token)
	require.NoError(t, err)
	assert.True(t, account.IsHOC())
	assert.False(t, account.IsHOCPending())
}

func TestCurrentAccountErrors(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.auther.CurrentAccount(context.Background(), "garbage")
	assert.Equal(t, auth.TextCodeTokenInvalid, auth.ErrorKind(err))

	orphan := &auth.Account{ID: uuid.New(), Email: "gone@x.com"}
	token, _, err := f.tokens.Issue(orphan)
	require.NoError(t, err)

	_, err = f.auther.CurrentAccount(context.Background(), token)
	assert.Equal(t, auth.TextCodeTokenInvalid, auth.ErrorKind(err))

	view := f.register(t, studentRequest("a@x.com"))
	token, _, err = f.tokens.Issue(&auth.Account{ID: uuid.MustParse(view.ID), Email: view.Email})
	require.NoError(t, err)
	f.clock.now = f.clock.now.Add(2 * time.Hour)

	_, err = f.auther.CurrentAccount(context.Background(), token)
	assert.Equal(t, auth.TextCodeTokenExpired, auth.ErrorKind(err))
}

func TestLogoutIsAdvisory(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, studentRequest("a@x.com"))

	res, err := f.auther.Login(context.Background(), auth.LoginRequest{Email: "a@x.com", Password: "longenough1"})
	require.NoError(t, err)

	f.auther.Logout(context.Background(), res.Token)
	f.auther.Logout(context.Background(), "garbage")

	_, err = f.auther.CurrentAccount(context.Background(), res.Token)
	assert.NoError(t, err)

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventLoginSuccess,
		auth.ActivityEventLogout,
	}, f.sink.types())
}

func TestActivityEventsNeverCarrySecrets(t *testing.T) {
	f := newAuthFixture(t)
	f.register(t, studentRequest("a@x.com"))

	res, err := f.auther.Login(context.Background(), auth.LoginRequest{Email: "a@x.com", Password: "longenough1"})
	require.NoError(t, err)
	_, _ = f.auther.Login(context.Background(), auth.LoginRequest{Email: "a@x.com", Password: "bad-password"})

	for _, ev := range f.sink.events {
		for _, v := range ev.Metadata {
			assert.NotEqual(t, "longenough1", v)
			assert.NotEqual(t, "bad-password", v)
			assert.NotEqual(t, res.Token, v)
		}
	}
}
