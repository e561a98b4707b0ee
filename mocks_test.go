package auth_test

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	auth "github.com/pulseapp/pulse-auth"
)

// MockAccountStore implements auth.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) FindByEmail(ctx context.Context, email string) (*auth.Account, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*auth.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountStore) Create(ctx context.Context, account *auth.Account) (*auth.Account, error) {
	args := m.Called(ctx, account)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountStore) Update(ctx context.Context, id uuid.UUID, patch auth.AccountPatch) (*auth.Account, error) {
	args := m.Called(ctx, id, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountStore) CompareAndSwapState(ctx context.Context, id uuid.UUID, from, to auth.AccountState) (*auth.Account, error) {
	args := m.Called(ctx, id, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Account), args.Error(1)
}

func (m *MockAccountStore) ListByState(ctx context.Context, state auth.AccountState) ([]*auth.Account, error) {
	args := m.Called(ctx, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auth.Account), args.Error(1)
}

// memoryStore is an in-process AccountStore with the same error contract as
// the SQL repository.
type memoryStore struct {
	mu       sync.Mutex
	byID     map[uuid.UUID]*auth.Account
	byEmail  map[string]uuid.UUID
	creating chan struct{}
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		byID:    map[uuid.UUID]*auth.Account{},
		byEmail: map[string]uuid.UUID{},
	}
}

func (s *memoryStore) FindByEmail(_ context.Context, email string) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byEmail[email]
	if !ok {
		return nil, auth.ErrAccountNotFound.Clone()
	}
	out := *s.byID[id]
	return &out, nil
}

func (s *memoryStore) FindByID(_ context.Context, id uuid.UUID) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrAccountNotFound.Clone()
	}
	out := *a
	return &out, nil
}

func (s *memoryStore) Create(_ context.Context, account *auth.Account) (*auth.Account, error) {
	if s.creating != nil {
		<-s.creating
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[account.Email]; ok {
		return nil, auth.ErrDuplicateEmail.Clone()
	}
	stored := *account
	s.byID[account.ID] = &stored
	s.byEmail[account.Email] = account.ID
	out := stored
	return &out, nil
}

func (s *memoryStore) Update(_ context.Context, id uuid.UUID, patch auth.AccountPatch) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrAccountNotFound.Clone()
	}
	updated := patch.Apply(a)
	s.byID[id] = updated
	out := *updated
	return &out, nil
}

func (s *memoryStore) CompareAndSwapState(_ context.Context, id uuid.UUID, from, to auth.AccountState) (*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byID[id]
	if !ok {
		return nil, auth.ErrAccountNotFound.Clone()
	}
	if a.State != from {
		return nil, auth.ErrInvalidState.Clone()
	}
	a.State = to
	out := *a
	return &out, nil
}

func (s *memoryStore) ListByState(_ context.Context, state auth.AccountState) ([]*auth.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*auth.Account
	for _, a := range s.byID {
		if a.State == state {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

// recordingSink keeps every activity event it receives.
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
	err    error
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type logLine struct {
	level string
	msg   string
	args  []any
}

// captureLogger records log calls for assertions.
type captureLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) has(level, msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if line.level == level && line.msg == msg {
			return true
		}
	}
	return false
}

// fastHasher keeps bcrypt tests quick.
var fastHasher = auth.NewBcryptHasher(bcrypt.MinCost)

const testSecret = "0123456789abcdef0123456789abcdef"

func studentRequest(email string) auth.RegistrationRequest {
	return auth.RegistrationRequest{
		Email:        email,
		FullName:     "Grace Hopper",
		Password:     "longenough1",
		Role:         "STUDENT",
		Department:   "CS",
		AcademicYear: "2",
	}
}

func hocRequest(email string) auth.RegistrationRequest {
	req := studentRequest(email)
	req.Role = "HOC"
	req.Phone = "555"
	req.StudentID = "S1"
	return req
}
