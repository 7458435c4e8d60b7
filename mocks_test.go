package hospital_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	hospital "github.com/goliatone/go-hospital"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const testSigningKey = "test-signing-key"

// MockNotifier implements hospital.Notifier for testing
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendOTP(ctx context.Context, to, code string, ttl time.Duration) error {
	args := m.Called(ctx, to, code, ttl)
	return args.Error(0)
}

func (m *MockNotifier) SendActivationLink(ctx context.Context, to, link string, ttl time.Duration) error {
	args := m.Called(ctx, to, link, ttl)
	return args.Error(0)
}

func (m *MockNotifier) SendActivationConfirmation(ctx context.Context, to string) error {
	args := m.Called(ctx, to)
	return args.Error(0)
}

// sentCode returns the code argument of the last SendOTP call
func (m *MockNotifier) sentCode(t *testing.T) string {
	t.Helper()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == "SendOTP" {
			return m.Calls[i].Arguments.String(2)
		}
	}
	t.Fatal("SendOTP was not called")
	return ""
}

// sentLink returns the link argument of the last SendActivationLink call
func (m *MockNotifier) sentLink(t *testing.T) string {
	t.Helper()
	for i := len(m.Calls) - 1; i >= 0; i-- {
		if m.Calls[i].Method == "SendActivationLink" {
			return m.Calls[i].Arguments.String(2)
		}
	}
	t.Fatal("SendActivationLink was not called")
	return ""
}

// MockLogger implements hospital.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type activityRecorder struct {
	mu     sync.Mutex
	events []hospital.ActivityEvent
}

func (r *activityRecorder) Record(_ context.Context, event hospital.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *activityRecorder) types() []hospital.ActivityEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]hospital.ActivityEventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeFiles struct {
	existing map[string]bool
	failing  map[string]error
	removed  []string
}

func (f *fakeFiles) Exists(path string) bool {
	return f.existing[path]
}

func (f *fakeFiles) Remove(path string) error {
	if err := f.failing[path]; err != nil {
		return err
	}
	f.removed = append(f.removed, path)
	return nil
}

// fastHasher skips bcrypt cost so command tests stay quick
type fastHasher struct{}

func (fastHasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", hospital.ErrNoEmptyString
	}
	return "hashed:" + password, nil
}

func (fastHasher) ComparePasswordAndHash(password, hash string) error {
	if hash == "" || hash != "hashed:"+password {
		return hospital.ErrMismatchedHashAndPassword
	}
	return nil
}

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	require.NoError(t, hospital.Migrate(context.Background(), db))

	t.Cleanup(func() {
		_ = db.Close()
	})

	return db
}

type testEnv struct {
	db       *bun.DB
	repo     hospital.RepositoryManager
	notifier *MockNotifier
	activity *activityRecorder
	files    *fakeFiles
	tokens   *hospital.TokenServiceImpl
	sessions *hospital.SessionIssuer
	issuer   *hospital.CodeIssuer
	deps     hospital.HandlerDeps
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:       setupDB(t),
		notifier: &MockNotifier{},
		activity: &activityRecorder{},
		files:    &fakeFiles{existing: map[string]bool{}, failing: map[string]error{}},
		now:      time.Now(),
	}

	env.repo = hospital.NewRepositoryManager(env.db, hospital.WithAccountsHasher(fastHasher{}))
	env.tokens = hospital.NewTokenService([]byte(testSigningKey), "go-hospital", []string{"hospital"}, nopLogger{})
	env.sessions = hospital.NewSessionIssuer(env.tokens, hospital.SessionTTLs{})
	env.issuer = hospital.NewCodeIssuer(env.repo.Accounts(), env.notifier, hospital.CodeConfig{
		ActivationURL: "https://clinic.example/activate.html",
	},
		hospital.WithCodeIssuerLogger(nopLogger{}),
		hospital.WithCodeIssuerActivitySink(env.activity),
	)

	env.deps = hospital.HandlerDeps{
		Repo:     env.repo,
		Issuer:   env.issuer,
		Sessions: env.sessions,
		Notifier: env.notifier,
		Files:    env.files,
		Activity: env.activity,
		Logger:   nopLogger{},
	}

	return env
}

// seedAccount stores record directly, bypassing the commands
func (e *testEnv) seedAccount(t *testing.T, record *hospital.Account, password string) *hospital.Account {
	t.Helper()
	account, err := e.repo.Accounts().Register(context.Background(), record, password)
	require.NoError(t, err)
	return account
}

func ptr[T any](v T) *T {
	return &v
}
