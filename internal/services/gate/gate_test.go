package gate

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/msviridov/ddu-penalty-bot/internal/models"
)

// MockOracle реализует интерфейс gate.MembershipOracle
type MockOracle struct {
	mock.Mock
}

func (m *MockOracle) GetMembershipStatus(ctx context.Context, chatID, userID int64) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

// MockRepo реализует интерфейс gate.SubscriptionRepository
type MockRepo struct {
	mock.Mock
}

func (m *MockRepo) UpsertSubscription(ctx context.Context, status models.SubscriptionStatus) error {
	args := m.Called(ctx, status)
	return args.Error(0)
}

func (m *MockRepo) IsSubscribed(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

// MockCache реализует интерфейс gate.Cache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, result any) (bool, error) {
	args := m.Called(ctx, key, result)
	if args.Bool(0) {
		if status, ok := result.(*models.SubscriptionStatus); ok {
			*status = models.SubscriptionStatus{IsSubscribed: true}
		}
	}
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

const testChannelID = int64(-1002666468146)

var testUser = models.UserInfo{ID: 42, FirstName: "Test", Username: "testuser"}

func newOracleFailures() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{Name: "oracle_failures_total"})
}

func newGate(oracle *MockOracle, repo *MockRepo, cache *MockCache) *Gate {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(oracle, repo, cache, testChannelID, newOracleFailures(), logger)
}

func TestCheck_CachedPositiveVerdictSkipsOracle(t *testing.T) {
	oracle := new(MockOracle)
	repo := new(MockRepo)
	cache := new(MockCache)

	cache.On("Get", mock.Anything, "subscription:42", mock.Anything).Return(true, nil)

	g := newGate(oracle, repo, cache)
	assert.True(t, g.Check(context.Background(), testUser))

	// Ни БД, ни оракул не должны вызываться
	repo.AssertNotCalled(t, "IsSubscribed", mock.Anything, mock.Anything)
	oracle.AssertNotCalled(t, "GetMembershipStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_StoredVerdictSkipsOracle(t *testing.T) {
	oracle := new(MockOracle)
	repo := new(MockRepo)
	cache := new(MockCache)

	cache.On("Get", mock.Anything, "subscription:42", mock.Anything).Return(false, nil)
	cache.On("Set", mock.Anything, "subscription:42", mock.Anything, time.Duration(0)).Return(nil)
	repo.On("IsSubscribed", mock.Anything, int64(42)).Return(true, nil)

	g := newGate(oracle, repo, cache)
	assert.True(t, g.Check(context.Background(), testUser))

	oracle.AssertNotCalled(t, "GetMembershipStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestCheck_MemberIsPersisted(t *testing.T) {
	oracle := new(MockOracle)
	repo := new(MockRepo)
	cache := new(MockCache)

	cache.On("Get", mock.Anything, "subscription:42", mock.Anything).Return(false, nil)
	cache.On("Set", mock.Anything, "subscription:42", mock.Anything, time.Duration(0)).Return(nil)
	repo.On("IsSubscribed", mock.Anything, int64(42)).Return(false, nil)
	oracle.On("GetMembershipStatus", mock.Anything, testChannelID, int64(42)).Return(true, nil)
	repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(s models.SubscriptionStatus) bool {
		return s.UserID == 42 && s.IsSubscribed
	})).Return(nil)

	g := newGate(oracle, repo, cache)
	assert.True(t, g.Check(context.Background(), testUser))

	repo.AssertExpectations(t)
}

func TestCheck_NotMember(t *testing.T) {
	oracle := new(MockOracle)
	repo := new(MockRepo)
	cache := new(MockCache)

	cache.On("Get", mock.Anything, "subscription:42", mock.Anything).Return(false, nil)
	repo.On("IsSubscribed", mock.Anything, int64(42)).Return(false, nil)
	oracle.On("GetMembershipStatus", mock.Anything, testChannelID, int64(42)).Return(false, nil)

	g := newGate(oracle, repo, cache)
	assert.False(t, g.Check(context.Background(), testUser))

	// Отрицательный ответ не сохраняется как подписка
	repo.AssertNotCalled(t, "UpsertSubscription", mock.Anything, mock.Anything)
}

func TestCheck_OracleFailureFailsOpen(t *testing.T) {
	oracle := new(MockOracle)
	repo := new(MockRepo)
	cache := new(MockCache)

	cache.On("Get", mock.Anything, "subscription:42", mock.Anything).Return(false, nil)
	cache.On("Set", mock.Anything, "subscription:42", mock.Anything, time.Duration(0)).Return(nil)
	repo.On("IsSubscribed", mock.Anything, int64(42)).Return(false, nil)
	oracle.On("GetMembershipStatus", mock.Anything, testChannelID, int64(42)).
		Return(false, errors.New("bot is not a channel admin"))
	repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(s models.SubscriptionStatus) bool {
		return s.UserID == 42 && s.IsSubscribed
	})).Return(nil)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	failures := newOracleFailures()
	g := New(oracle, repo, cache, testChannelID, failures, logger)

	// Сбой оракула трактуется как "подписан", вердикт сохраняется,
	// сбой попадает в счетчик
	assert.True(t, g.Check(context.Background(), testUser))
	assert.Equal(t, 1.0, testutil.ToFloat64(failures))
	repo.AssertExpectations(t)
}

func TestCheck_CacheFailureDoesNotBreakCheck(t *testing.T) {
	oracle := new(MockOracle)
	repo := new(MockRepo)
	cache := new(MockCache)

	cache.On("Get", mock.Anything, "subscription:42", mock.Anything).
		Return(false, errors.New("redis down"))
	cache.On("Set", mock.Anything, "subscription:42", mock.Anything, time.Duration(0)).
		Return(errors.New("redis down"))
	repo.On("IsSubscribed", mock.Anything, int64(42)).Return(true, nil)

	g := newGate(oracle, repo, cache)
	assert.True(t, g.Check(context.Background(), testUser))
}

func TestForceApprove(t *testing.T) {
	oracle := new(MockOracle)
	repo := new(MockRepo)
	cache := new(MockCache)

	repo.On("UpsertSubscription", mock.Anything, mock.MatchedBy(func(s models.SubscriptionStatus) bool {
		return s.UserID == 42 && s.IsSubscribed && s.Username == "testuser"
	})).Return(nil)
	cache.On("Set", mock.Anything, "subscription:42", mock.Anything, time.Duration(0)).Return(nil)

	g := newGate(oracle, repo, cache)
	assert.NoError(t, g.ForceApprove(context.Background(), testUser))

	repo.AssertExpectations(t)
	oracle.AssertNotCalled(t, "GetMembershipStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestForceApprove_RepoError(t *testing.T) {
	oracle := new(MockOracle)
	repo := new(MockRepo)
	cache := new(MockCache)

	repo.On("UpsertSubscription", mock.Anything, mock.Anything).Return(errors.New("db down"))

	g := newGate(oracle, repo, cache)
	assert.Error(t, g.ForceApprove(context.Background(), testUser))
}
