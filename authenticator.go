package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// LoginResult is returned on a successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Account   AccountView `json:"user"`
}

// Auther verifies credentials and tokens against an AccountStore.
type Auther struct {
	store        AccountStore
	tokens       TokenService
	passwords    PasswordAuthenticator
	logger       Logger
	activitySink ActivitySink
	now          func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthenticator returns a new Authenticator
func NewAuthenticator(store AccountStore, tokens TokenService) *Auther {
	return &Auther{
		store:        store,
		tokens:       tokens,
		passwords:    NewBcryptHasher(passwordHashCost()),
		logger:       defLogger{},
		activitySink: noopActivitySink{},
		now:          time.Now,
	}
}

// WithLogger sets the logger
func (s *Auther) WithLogger(logger Logger) *Auther {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink configures an ActivitySink for emitting auth events.
func (s *Auther) WithActivitySink(sink ActivitySink) *Auther {
	s.activitySink = normalizeActivitySink(sink)
	return s
}

// WithPasswordAuthenticator overrides the password hasher. It must match the
// hasher used at registration.
func (s *Auther) WithPasswordAuthenticator(p PasswordAuthenticator) *Auther {
	if p != nil {
		s.passwords = p
	}
	return s
}

// WithClock injects a custom clock (useful for tests).
func (s *Auther) WithClock(now func() time.Time) *Auther {
	if now != nil {
		s.now = now
	}
	return s
}

// CheckEmailAvailability reports whether no account uses email.
func (s *Auther) CheckEmailAvailability(ctx context.Context, email string) (bool, error) {
	email = NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return false, err
	}

	_, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return false, nil
	case IsNotFoundError(err):
		return true, nil
	default:
		s.logger.Error("check email availability failed", "error", err)
		return false, wrapInternal(err, "check email availability")
	}
}

// Login verifies the credentials and issues an access token. Unknown emails
// and wrong passwords return the same ErrInvalidCredentials.
func (s *Auther) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	req.Email = NormalizeEmail(req.Email)
	if err := req.Validate(); err != nil {
		return nil, err
	}

	account, err := s.store.FindByEmail(ctx, req.Email)
	if err != nil {
		if !IsNotFoundError(err) {
			s.logger.Error("login lookup failed", "error", err)
			return nil, wrapInternal(err, "login lookup")
		}

		// equalize timing with the known account path
		_ = s.passwords.ComparePasswordAndHash(req.Password, s.dummyPasswordHash())
		s.emit(ctx, ActivityEventLoginFailure, ActorRef{Type: "unknown"}, nil, map[string]any{
			"reason": "unknown_email",
		})
		return nil, ErrInvalidCredentials.Clone()
	}

	if err := s.passwords.ComparePasswordAndHash(req.Password, account.PasswordHash); err != nil {
		s.emit(ctx, ActivityEventLoginFailure, accountActor(account), account, map[string]any{
			"reason": "password_mismatch",
		})
		return nil, ErrInvalidCredentials.Clone()
	}

	token, expiresAt, err := s.tokens.Issue(account)
	if err != nil {
		s.logger.Error("login token issue failed", "account_id", account.ID, "error", err)
		return nil, wrapInternal(err, "issue token")
	}

	s.emit(ctx, ActivityEventLoginSuccess, accountActor(account), account, nil)

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		Account:   account.View(),
	}, nil
}

// VerifyToken returns the identity encoded in token. It does not consult the
// store; use CurrentAccount for the live account.
func (s *Auther) VerifyToken(token string) (*TokenIdentity, error) {
	return s.tokens.Verify(token)
}

// CurrentAccount verifies token and re-reads the account it names. Accounts
// deleted after issuance make the token invalid.
func (s *Auther) CurrentAccount(ctx context.Context, token string) (*Account, error) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	account, err := s.store.FindByID(ctx, identity.AccountID)
	if err != nil {
		if IsNotFoundError(err) {
			return nil, withMeta(ErrTokenInvalid, map[string]any{"reason": "account no longer exists"})
		}
		return nil, wrapInternal(err, "load current account")
	}

	return account, nil
}

// Logout is advisory. Tokens stay valid until they expire; clients discard
// them. An event is recorded when the token still decodes.
func (s *Auther) Logout(ctx context.Context, token string) {
	identity, err := s.tokens.Verify(token)
	if err != nil {
		return
	}

	s.emit(ctx, ActivityEventLogout, ActorRef{ID: identity.AccountID.String(), Type: "account"}, &Account{
		ID:    identity.AccountID,
		Email: identity.Email,
	}, nil)
}

func (s *Auther) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.passwords.HashPassword(uuid.NewString())
		if err != nil {
			s.logger.Warn("unable to prepare dummy password hash", "error", err)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}

func (s *Auther) emit(ctx context.Context, eventType ActivityEventType, actor ActorRef, account *Account, metadata map[string]any) {
	event := ActivityEvent{
		EventType: eventType,
		Actor:     actor,
		Metadata:  metadata,
	}
	if account != nil {
		event.AccountID = account.ID.String()
		event.Email = account.Email
		event.ToState = account.State
	}
	recordActivity(ctx, s.activitySink, s.logger, s.now, event)
}

func accountActor(account *Account) ActorRef {
	if account == nil {
		return ActorRef{}
	}
	return ActorRef{ID: account.ID.String(), Type: "account"}
}
