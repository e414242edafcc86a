package adapters

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	analysisentity "chart_backend/internal/feature/analysis/domain/entity"
	"chart_backend/internal/feature/signals/domain"
	"chart_backend/internal/feature/signals/domain/entity"
	"chart_backend/internal/feature/signals/usecase"
)

// setupTestDB prepares an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed to initialize test database")

	err = db.AutoMigrate(&SignalModel{})
	require.NoError(t, err, "failed to migrate table")

	return db
}

// seedSignal creates a test signal in the database for testing.
func seedSignal(t *testing.T, repo *signalPostgres, userID uint, mutate func(s *entity.TradingSignal)) *entity.TradingSignal {
	t.Helper()

	signal := &entity.TradingSignal{
		ID:         uuid.NewString(),
		UserID:     userID,
		CaptureID:  uuid.NewString(),
		Type:       entity.SignalBuy,
		EntryPrice: 102,
		StopLoss:   100,
		TakeProfit: 112,
		RiskReward: 5,
		Confidence: 0.8,
		Rationale: map[analysisentity.Timeframe]string{
			analysisentity.Timeframe4H: "4h trend is bullish",
		},
		Status:    entity.StatusPending,
		CreatedAt: time.Now(),
	}
	if mutate != nil {
		mutate(signal)
	}
	err := repo.Save(context.Background(), signal)
	require.NoError(t, err, "failed to seed signal")

	return signal
}

func TestSignalPostgres_SaveAndFindByID(t *testing.T) {
	t.Parallel()

	repo := NewSignalRepository(setupTestDB(t))
	seeded := seedSignal(t, repo, 1, nil)

	got, err := repo.FindByID(context.Background(), 1, seeded.ID)
	require.NoError(t, err)

	assert.Equal(t, seeded.ID, got.ID)
	assert.Equal(t, entity.SignalBuy, got.Type)
	assert.Equal(t, 102.0, got.EntryPrice)
	assert.Equal(t, 100.0, got.StopLoss)
	assert.Equal(t, 112.0, got.TakeProfit)
	assert.Equal(t, 0.8, got.Confidence)
	assert.Equal(t, entity.StatusPending, got.Status)
	assert.False(t, got.AlertSent)
	assert.Equal(t, "4h trend is bullish", got.Rationale[analysisentity.Timeframe4H], "rationale should survive the round trip")
}

func TestSignalPostgres_FindByID_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewSignalRepository(setupTestDB(t))

	_, err := repo.FindByID(context.Background(), 1, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrSignalNotFound)
}

func TestSignalPostgres_FindByID_OtherUser(t *testing.T) {
	t.Parallel()

	repo := NewSignalRepository(setupTestDB(t))
	seeded := seedSignal(t, repo, 1, nil)

	// 他ユーザーのシグナルは存在しないものとして扱う
	_, err := repo.FindByID(context.Background(), 2, seeded.ID)
	assert.ErrorIs(t, err, domain.ErrSignalNotFound)
}

func TestSignalPostgres_List(t *testing.T) {
	t.Parallel()

	baseTime := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		query        usecase.SignalQuery
		setupFunc    func(t *testing.T, repo *signalPostgres)
		validateFunc func(t *testing.T, signals []entity.TradingSignal)
	}{
		{
			name: "success: newest first",
			setupFunc: func(t *testing.T, repo *signalPostgres) {
				seedSignal(t, repo, 1, func(s *entity.TradingSignal) { s.CreatedAt = baseTime })
				seedSignal(t, repo, 1, func(s *entity.TradingSignal) { s.CreatedAt = baseTime.Add(2 * time.Hour) })
				seedSignal(t, repo, 1, func(s *entity.TradingSignal) { s.CreatedAt = baseTime.Add(time.Hour) })
			},
			validateFunc: func(t *testing.T, signals []entity.TradingSignal) {
				require.Len(t, signals, 3)
				assert.True(t, signals[0].CreatedAt.After(signals[1].CreatedAt), "first should be newer than second")
				assert.True(t, signals[1].CreatedAt.After(signals[2].CreatedAt), "second should be newer than third")
			},
		},
		{
			name:  "success: filter by status",
			query: usecase.SignalQuery{Status: entity.StatusActive},
			setupFunc: func(t *testing.T, repo *signalPostgres) {
				seedSignal(t, repo, 1, func(s *entity.TradingSignal) { s.Status = entity.StatusActive })
				seedSignal(t, repo, 1, nil)
			},
			validateFunc: func(t *testing.T, signals []entity.TradingSignal) {
				require.Len(t, signals, 1)
				assert.Equal(t, entity.StatusActive, signals[0].Status)
			},
		},
		{
			name:  "success: filter by since",
			query: usecase.SignalQuery{Since: baseTime.Add(30 * time.Minute).Unix()},
			setupFunc: func(t *testing.T, repo *signalPostgres) {
				seedSignal(t, repo, 1, func(s *entity.TradingSignal) { s.CreatedAt = baseTime })
				seedSignal(t, repo, 1, func(s *entity.TradingSignal) { s.CreatedAt = baseTime.Add(time.Hour) })
			},
			validateFunc: func(t *testing.T, signals []entity.TradingSignal) {
				require.Len(t, signals, 1)
			},
		},
		{
			name:  "success: respect limit",
			query: usecase.SignalQuery{Limit: 2},
			setupFunc: func(t *testing.T, repo *signalPostgres) {
				for i := 0; i < 5; i++ {
					seedSignal(t, repo, 1, nil)
				}
			},
			validateFunc: func(t *testing.T, signals []entity.TradingSignal) {
				assert.Len(t, signals, 2)
			},
		},
		{
			name: "success: scoped to user",
			setupFunc: func(t *testing.T, repo *signalPostgres) {
				seedSignal(t, repo, 1, nil)
				seedSignal(t, repo, 2, nil)
			},
			validateFunc: func(t *testing.T, signals []entity.TradingSignal) {
				require.Len(t, signals, 1)
				assert.Equal(t, uint(1), signals[0].UserID)
			},
		},
		{
			name: "success: empty result",
			validateFunc: func(t *testing.T, signals []entity.TradingSignal) {
				assert.Empty(t, signals)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo := NewSignalRepository(setupTestDB(t))
			if tt.setupFunc != nil {
				tt.setupFunc(t, repo)
			}

			signals, err := repo.List(context.Background(), 1, tt.query)
			require.NoError(t, err)
			tt.validateFunc(t, signals)
		})
	}
}

func TestSignalPostgres_MarkAlerted(t *testing.T) {
	t.Parallel()

	repo := NewSignalRepository(setupTestDB(t))
	seeded := seedSignal(t, repo, 1, nil)

	first, err := repo.MarkAlerted(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.True(t, first, "first mark should report the transition")

	// 2回目は遷移済みなのでfalse
	second, err := repo.MarkAlerted(context.Background(), seeded.ID)
	require.NoError(t, err)
	assert.False(t, second, "second mark must not report a transition")

	got, err := repo.FindByID(context.Background(), 1, seeded.ID)
	require.NoError(t, err)
	assert.True(t, got.AlertSent)
}

func TestSignalPostgres_MarkAlerted_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewSignalRepository(setupTestDB(t))

	first, err := repo.MarkAlerted(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrSignalNotFound)
	assert.False(t, first)
}

func TestSignalPostgres_MarkAlerted_Concurrent(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	// プールが複数コネクションを開くとin-memory DBが分裂するため1本に固定する
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := NewSignalRepository(db)
	seeded := seedSignal(t, repo, 1, nil)

	const attempts = 8
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		transitions int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := repo.MarkAlerted(context.Background(), seeded.ID)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if first {
				mu.Lock()
				transitions++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, transitions, "exactly one caller should win the transition")
}
