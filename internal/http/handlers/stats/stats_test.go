package stats

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/msviridov/ddu-penalty-bot/internal/http/response"
	"github.com/msviridov/ddu-penalty-bot/internal/models"
)

// MockProvider реализует интерфейс stats.StatsProvider
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) GetStatistics(ctx context.Context) (models.StatsSummary, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.StatsSummary), args.Error(1)
}

func newHandler(provider StatsProvider) *Handler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(logger, provider)
}

func TestStats_Success(t *testing.T) {
	provider := new(MockProvider)
	provider.On("GetStatistics", mock.Anything).Return(models.StatsSummary{
		TotalUsers:        10,
		SubscribedUsers:   8,
		TotalCalculations: 25,
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()

	newHandler(provider).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, response.StatusOK, resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(10), data["total_users"])
	assert.Equal(t, float64(25), data["total_calculations"])
}

func TestStats_ProviderError(t *testing.T) {
	provider := new(MockProvider)
	provider.On("GetStatistics", mock.Anything).
		Return(models.StatsSummary{}, errors.New("db down"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	rec := httptest.NewRecorder()

	newHandler(provider).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, response.StatusError, resp.Status)
}
