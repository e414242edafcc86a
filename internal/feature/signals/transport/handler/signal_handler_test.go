package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"chart_backend/internal/feature/signals/domain"
	"chart_backend/internal/feature/signals/domain/entity"
	"chart_backend/internal/feature/signals/usecase"
	jwtmw "chart_backend/internal/platform/jwt"
)

// mockSignalsUsecase is a mock implementation of the SignalsUsecase interface.
type mockSignalsUsecase struct {
	ListSignalsFunc func(ctx context.Context, userID uint, q usecase.SignalQuery) ([]entity.TradingSignal, error)
	GetSignalFunc   func(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error)
}

func (m *mockSignalsUsecase) ListSignals(ctx context.Context, userID uint, q usecase.SignalQuery) ([]entity.TradingSignal, error) {
	if m.ListSignalsFunc != nil {
		return m.ListSignalsFunc(ctx, userID, q)
	}
	return nil, nil
}

func (m *mockSignalsUsecase) GetSignal(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error) {
	if m.GetSignalFunc != nil {
		return m.GetSignalFunc(ctx, userID, id)
	}
	return nil, domain.ErrSignalNotFound
}

// mockDispatcher is a mock implementation of the Dispatcher interface.
type mockDispatcher struct {
	DispatchFunc func(ctx context.Context, signal entity.TradingSignal) (bool, error)
}

func (m *mockDispatcher) Dispatch(ctx context.Context, signal entity.TradingSignal) (bool, error) {
	if m.DispatchFunc != nil {
		return m.DispatchFunc(ctx, signal)
	}
	return false, nil
}

// setupRouter wires the handler behind a stub auth middleware that injects
// the given user ID, mirroring what the JWT middleware does in production.
func setupRouter(h *SignalHandler, userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := func(c *gin.Context) {
		if userID != 0 {
			c.Set(jwtmw.ContextUserID, userID)
		}
		c.Next()
	}
	r.GET("/v1/signals", auth, h.List)
	r.GET("/v1/signals/:id", auth, h.Get)
	r.POST("/v1/signals/:id/alert", auth, h.Alert)
	return r
}

func TestSignalHandler_List(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		userID         uint
		mockListFunc   func(ctx context.Context, userID uint, q usecase.SignalQuery) ([]entity.TradingSignal, error)
		expectedStatus int
		expectedCount  int
	}{
		{
			name:   "success: returns signals",
			url:    "/v1/signals",
			userID: 1,
			mockListFunc: func(ctx context.Context, userID uint, q usecase.SignalQuery) ([]entity.TradingSignal, error) {
				return []entity.TradingSignal{{ID: "sig-1"}, {ID: "sig-2"}}, nil
			},
			expectedStatus: http.StatusOK,
			expectedCount:  2,
		},
		{
			name:   "success: query parameters are forwarded",
			url:    "/v1/signals?status=pending&since=1700000000&limit=10",
			userID: 1,
			mockListFunc: func(ctx context.Context, userID uint, q usecase.SignalQuery) ([]entity.TradingSignal, error) {
				if q.Status != entity.StatusPending || q.Since != 1700000000 || q.Limit != 10 {
					return nil, errors.New("filters not forwarded")
				}
				return nil, nil
			},
			expectedStatus: http.StatusOK,
			expectedCount:  0,
		},
		{
			name:           "failure: invalid since parameter",
			url:            "/v1/signals?since=not-a-number",
			userID:         1,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "failure: invalid limit parameter",
			url:            "/v1/signals?limit=abc",
			userID:         1,
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "failure: unauthenticated",
			url:            "/v1/signals",
			userID:         0,
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "failure: usecase error",
			url:    "/v1/signals",
			userID: 1,
			mockListFunc: func(ctx context.Context, userID uint, q usecase.SignalQuery) ([]entity.TradingSignal, error) {
				return nil, errors.New("db down")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSignalHandler(&mockSignalsUsecase{ListSignalsFunc: tt.mockListFunc}, &mockDispatcher{})
			router := setupRouter(h, tt.userID)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, tt.url, nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp []json.RawMessage
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Len(t, resp, tt.expectedCount)
			}
		})
	}
}

func TestSignalHandler_Get(t *testing.T) {
	tests := []struct {
		name           string
		mockGetFunc    func(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error)
		expectedStatus int
	}{
		{
			name: "success: returns signal",
			mockGetFunc: func(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error) {
				return &entity.TradingSignal{ID: id, Type: entity.SignalBuy, EntryPrice: 102}, nil
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "failure: not found",
			mockGetFunc:    nil, // Default: ErrSignalNotFound
			expectedStatus: http.StatusNotFound,
		},
		{
			name: "failure: usecase error",
			mockGetFunc: func(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error) {
				return nil, errors.New("db down")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSignalHandler(&mockSignalsUsecase{GetSignalFunc: tt.mockGetFunc}, &mockDispatcher{})
			router := setupRouter(h, 1)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/v1/signals/sig-1", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp map[string]any
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "sig-1", resp["id"])
				assert.Equal(t, "buy", resp["type"])
			}
		})
	}
}

func TestSignalHandler_Alert(t *testing.T) {
	getSignal := func(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error) {
		return &entity.TradingSignal{ID: id}, nil
	}

	tests := []struct {
		name             string
		mockGetFunc      func(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error)
		mockDispatchFunc func(ctx context.Context, signal entity.TradingSignal) (bool, error)
		expectedStatus   int
		expectedAlerted  bool
	}{
		{
			name:        "success: first alert fires",
			mockGetFunc: getSignal,
			mockDispatchFunc: func(ctx context.Context, signal entity.TradingSignal) (bool, error) {
				return true, nil
			},
			expectedStatus:  http.StatusOK,
			expectedAlerted: true,
		},
		{
			name:        "success: already alerted is reported silently",
			mockGetFunc: getSignal,
			mockDispatchFunc: func(ctx context.Context, signal entity.TradingSignal) (bool, error) {
				return false, nil
			},
			expectedStatus:  http.StatusOK,
			expectedAlerted: false,
		},
		{
			name:           "failure: signal not found",
			mockGetFunc:    nil, // Default: ErrSignalNotFound
			expectedStatus: http.StatusNotFound,
		},
		{
			name:        "failure: dispatch error",
			mockGetFunc: getSignal,
			mockDispatchFunc: func(ctx context.Context, signal entity.TradingSignal) (bool, error) {
				return false, errors.New("marker unavailable")
			},
			expectedStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSignalHandler(
				&mockSignalsUsecase{GetSignalFunc: tt.mockGetFunc},
				&mockDispatcher{DispatchFunc: tt.mockDispatchFunc},
			)
			router := setupRouter(h, 1)

			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodPost, "/v1/signals/sig-1/alert", nil)
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				var resp map[string]any
				assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, "sig-1", resp["signal_id"])
				assert.Equal(t, tt.expectedAlerted, resp["alerted"])
			}
		})
	}
}
