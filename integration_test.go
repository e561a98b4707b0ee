package auth_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/pulseapp/pulse-auth"
	"github.com/pulseapp/pulse-auth/repository"
	"github.com/pulseapp/pulse-auth/sinks"
)

func newSQLiteStore(t *testing.T) *repository.AccountRepository {
	t.Helper()

	db, dialect, err := repository.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repository.Migrate(context.Background(), db, dialect, nil))

	return repository.NewAccountRepository(db)
}

func TestHOCLifecycleAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)

	recorder := &recordingSink{}
	metrics := sinks.NewMetricsSink(prometheus.NewRegistry())
	activity := sinks.NewMulti(recorder, metrics)

	registrar := newTestRegistrar(store, activity)
	auther := auth.NewAuthenticator(store, newTestTokens(t, &fakeClock{now: time.Now()})).
		WithLogger(&captureLogger{}).
		WithPasswordAuthenticator(fastHasher).
		WithActivitySink(activity)

	res, err := registrar.Register(ctx, hocRequest("a@x.com"))
	require.NoError(t, err)
	assert.Equal(t, auth.MessageHOCPendingCreated, res.Message)
	id := uuid.MustParse(res.Account.ID)

	login, err := auther.Login(ctx, auth.LoginRequest{Email: "a@x.com", Password: "longenough1"})
	require.NoError(t, err)
	assert.True(t, login.Account.IsHOCPending)

	pending, err := registrar.ListPendingHOC(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := registrar.ApproveHOC(ctx, auth.ActorRef{ID: "admin", Type: "account"}, id)
	require.NoError(t, err)
	assert.True(t, approved.IsHOC)
	assert.Equal(t, auth.RoleStudent, approved.Role)

	current, err := auther.CurrentAccount(ctx, login.Token)
	require.NoError(t, err)
	assert.True(t, current.IsHOC())

	_, err = registrar.RejectHOC(ctx, auth.SystemActor, id, "")
	assert.Equal(t, auth.TextCodeInvalidState, auth.ErrorKind(err))

	assert.Equal(t, []auth.ActivityEventType{
		auth.ActivityEventAccountRegistered,
		auth.ActivityEventHOCRequested,
		auth.ActivityEventLoginSuccess,
		auth.ActivityEventHOCApproved,
	}, recorder.types())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Counter().WithLabelValues(string(auth.ActivityEventHOCApproved))))
}

func TestConcurrentReviewAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	store := newSQLiteStore(t)
	registrar := newTestRegistrar(store, nil)

	res, err := registrar.Register(ctx, hocRequest("a@x.com"))
	require.NoError(t, err)
	id := uuid.MustParse(res.Account.ID)

	const n = 6
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = registrar.ApproveHOC(ctx, auth.SystemActor, id)
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, auth.TextCodeInvalidState, auth.ErrorKind(err))
	}
	assert.Equal(t, 1, ok)
}

func TestDuplicateEmailAgainstSQLite(t *testing.T) {
	ctx := context.Background()
	registrar := newTestRegistrar(newSQLiteStore(t), nil)

	_, err := registrar.Register(ctx, studentRequest("dup@x.com"))
	require.NoError(t, err)

	_, err = registrar.Register(ctx, studentRequest("DUP@x.com"))
	assert.True(t, auth.IsDuplicateEmailError(err))
}
