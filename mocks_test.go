package identity_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-identity"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/uptrace/bun"
)

type testLogger struct{}

func (testLogger) Debug(string, ...any) {}
func (testLogger) Info(string, ...any)  {}
func (testLogger) Warn(string, ...any)  {}
func (testLogger) Error(string, ...any) {}

// capturingSink records every activity event it sees.
type capturingSink struct {
	events []identity.ActivityEvent
}

func (s *capturingSink) Record(_ context.Context, event identity.ActivityEvent) error {
	s.events = append(s.events, event)
	return nil
}

// MockRepositoryManager implements identity.RepositoryManager
type MockRepositoryManager struct {
	mock.Mock
}

func (m *MockRepositoryManager) Validate() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockRepositoryManager) MustValidate() {
	m.Called()
}

// RunInTx registers the call, then executes the closure against a zero-value
// transaction so the repository expectations inside it fire. The closure's
// error propagates the way the real transaction manager propagates it.
func (m *MockRepositoryManager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	args := m.Called(ctx, opts, f)
	if err := args.Error(0); err != nil {
		return err
	}
	return f(ctx, bun.Tx{})
}

func (m *MockRepositoryManager) Users() identity.Users {
	args := m.Called()
	return args.Get(0).(identity.Users)
}

func (m *MockRepositoryManager) Invitations() identity.Invitations {
	args := m.Called()
	return args.Get(0).(identity.Invitations)
}

func (m *MockRepositoryManager) Sessions() identity.Sessions {
	args := m.Called()
	return args.Get(0).(identity.Sessions)
}

func (m *MockRepositoryManager) PasswordResets() identity.PasswordResets {
	args := m.Called()
	return args.Get(0).(identity.PasswordResets)
}

// MockUsers implements identity.Users. The embedded interface covers the
// generic repository surface; only the methods the flows call are mocked.
type MockUsers struct {
	mock.Mock
	identity.Users
}

func (m *MockUsers) GetByID(ctx context.Context, id string, criteria ...repository.SelectCriteria) (*identity.User, error) {
	args := m.Called(ctx, id)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*identity.User, error) {
	args := m.Called(ctx, tx, email)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) Create(ctx context.Context, record *identity.User, criteria ...repository.InsertCriteria) (*identity.User, error) {
	args := m.Called(ctx, record)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) CreateTx(ctx context.Context, tx bun.IDB, record *identity.User, criteria ...repository.InsertCriteria) (*identity.User, error) {
	args := m.Called(ctx, tx, record)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) UpdatePasswordTx(ctx context.Context, tx bun.IDB, id uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, tx, id, passwordHash)
	return args.Error(0)
}

func (m *MockUsers) UpdateStatus(ctx context.Context, id uuid.UUID, status identity.UserStatus, opts ...identity.StatusUpdateOption) (*identity.User, error) {
	args := m.Called(ctx, id, status)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status identity.UserStatus, opts ...identity.StatusUpdateOption) (*identity.User, error) {
	args := m.Called(ctx, tx, id, status)
	return userArg(args.Get(0)), args.Error(1)
}

func (m *MockUsers) ListByRole(ctx context.Context, role identity.UserRole) ([]*identity.User, error) {
	args := m.Called(ctx, role)
	if v := args.Get(0); v != nil {
		return v.([]*identity.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUsers) SoftDeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func userArg(v any) *identity.User {
	if v == nil {
		return nil
	}
	return v.(*identity.User)
}

// MockInvitations implements identity.Invitations
type MockInvitations struct {
	mock.Mock
	identity.Invitations
}

func (m *MockInvitations) GetByToken(ctx context.Context, token string) (*identity.Invitation, error) {
	args := m.Called(ctx, token)
	return invitationArg(args.Get(0)), args.Error(1)
}

func (m *MockInvitations) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*identity.Invitation, error) {
	args := m.Called(ctx, tx, token)
	return invitationArg(args.Get(0)), args.Error(1)
}

func (m *MockInvitations) AcceptTx(ctx context.Context, tx bun.IDB, id uuid.UUID, at time.Time) (bool, error) {
	args := m.Called(ctx, tx, id, at)
	return args.Bool(0), args.Error(1)
}

func invitationArg(v any) *identity.Invitation {
	if v == nil {
		return nil
	}
	return v.(*identity.Invitation)
}

// MockSessions implements identity.Sessions
type MockSessions struct {
	mock.Mock
	identity.Sessions
}

func (m *MockSessions) ListByUser(ctx context.Context, userID uuid.UUID) ([]*identity.Session, error) {
	args := m.Called(ctx, userID)
	if v := args.Get(0); v != nil {
		return v.([]*identity.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) GetOwned(ctx context.Context, userID, sessionID uuid.UUID) (*identity.Session, error) {
	args := m.Called(ctx, userID, sessionID)
	if v := args.Get(0); v != nil {
		return v.(*identity.Session), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessions) DeleteByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	args := m.Called(ctx, tx, id)
	return args.Error(0)
}

func (m *MockSessions) DeleteForUserTx(ctx context.Context, tx bun.IDB, userID uuid.UUID) (int64, error) {
	args := m.Called(ctx, tx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessions) DeleteForUserExceptTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, keepToken string) (int64, error) {
	args := m.Called(ctx, tx, userID, keepToken)
	return args.Get(0).(int64), args.Error(1)
}

// MockPasswordResets implements identity.PasswordResets
type MockPasswordResets struct {
	mock.Mock
	identity.PasswordResets
}

func (m *MockPasswordResets) GetByTokenTx(ctx context.Context, tx bun.IDB, token string) (*identity.PasswordReset, error) {
	args := m.Called(ctx, tx, token)
	if v := args.Get(0); v != nil {
		return v.(*identity.PasswordReset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPasswordResets) CreateTx(ctx context.Context, tx bun.IDB, record *identity.PasswordReset, criteria ...repository.InsertCriteria) (*identity.PasswordReset, error) {
	args := m.Called(ctx, tx, record)
	if v := args.Get(0); v != nil {
		return v.(*identity.PasswordReset), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockPasswordResets) DeleteByEmailTx(ctx context.Context, tx bun.IDB, email string) (int64, error) {
	args := m.Called(ctx, tx, email)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPasswordResets) DeleteByTokenTx(ctx context.Context, tx bun.IDB, token string) error {
	args := m.Called(ctx, tx, token)
	return args.Error(0)
}

// MockActivitySink implements identity.ActivitySink
type MockActivitySink struct {
	mock.Mock
}

func (m *MockActivitySink) Record(ctx context.Context, event identity.ActivityEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockEmailDispatcher implements identity.EmailDispatcher
type MockEmailDispatcher struct {
	mock.Mock
}

func (m *MockEmailDispatcher) Send(ctx context.Context, msg identity.Email) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockPasswordAuthenticator implements identity.PasswordAuthenticator
type MockPasswordAuthenticator struct {
	mock.Mock
}

func (m *MockPasswordAuthenticator) HashPassword(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *MockPasswordAuthenticator) ComparePasswordAndHash(password, hash string) error {
	args := m.Called(password, hash)
	return args.Error(0)
}

func notFoundErr() error {
	return repository.NewRecordNotFound()
}
