package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"stockroom/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockReportService is a mock implementation of ReportService.
type MockReportService struct {
	mock.Mock
}

func (m *MockReportService) Invalidate(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockReportService) StockCategories(ctx context.Context) ([]model.StockCategory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.StockCategory), args.Error(1)
}

func (m *MockReportService) LatestProductsByName(ctx context.Context) ([]model.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockReportService) UserRanking(ctx context.Context) ([]model.UserOrderTotal, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserOrderTotal), args.Error(1)
}

func TestReportHandler_StockCategories(t *testing.T) {
	svc := new(MockReportService)
	svc.On("StockCategories", mock.Anything).Return([]model.StockCategory{
		{Category: model.StockLow, Count: 2},
		{Category: model.StockHigh, Count: 1},
	}, nil)
	handler := NewReportHandler(svc, zerolog.Nop())

	w := httptest.NewRecorder()
	handler.StockCategories(w, httptest.NewRequest(http.MethodGet, "/products/stock/categories", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"stockCategory":"Low","productCount":2},{"stockCategory":"High","productCount":1}]`, w.Body.String())
}

func TestReportHandler_LatestProducts(t *testing.T) {
	svc := new(MockReportService)
	svc.On("LatestProductsByName", mock.Anything).Return([]model.Product{{ID: 3, Name: "Lamp Deluxe"}}, nil)
	handler := NewReportHandler(svc, zerolog.Nop())

	w := httptest.NewRecorder()
	handler.LatestProducts(w, httptest.NewRequest(http.MethodGet, "/products/latest", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	var products []model.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &products))
	assert.Equal(t, "Lamp Deluxe", products[0].Name)
}

func TestReportHandler_UserRanking(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("UserRanking", mock.Anything).Return([]model.UserOrderTotal{
			{UserID: 2, FirstName: "Grace", LastName: "Hopper", TotalOrderAmount: 5000},
		}, nil)

		w := httptest.NewRecorder()
		NewReportHandler(svc, zerolog.Nop()).UserRanking(w, httptest.NewRequest(http.MethodGet, "/orders/report", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"userId":2`)
	})

	t.Run("Service error", func(t *testing.T) {
		svc := new(MockReportService)
		svc.On("UserRanking", mock.Anything).Return(nil, errors.New("database error"))

		w := httptest.NewRecorder()
		NewReportHandler(svc, zerolog.Nop()).UserRanking(w, httptest.NewRequest(http.MethodGet, "/orders/report", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
