package usecase_test

import (
	"context"
	"errors"
	"testing"

	analysisentity "chart_backend/internal/feature/analysis/domain/entity"
	"chart_backend/internal/feature/signals/domain/entity"
	"chart_backend/internal/feature/signals/usecase"
)

// mockSettingsProvider はSettingsProviderインターフェースのテスト用実装です。
type mockSettingsProvider struct {
	configFunc func(ctx context.Context, userID uint) (usecase.EngineConfig, error)
}

func (m *mockSettingsProvider) EngineConfig(ctx context.Context, userID uint) (usecase.EngineConfig, error) {
	return m.configFunc(ctx, userID)
}

// mockPublisher はSignalPublisherインターフェースのテスト用実装です。
type mockPublisher struct {
	published []entity.TradingSignal
	err       error
}

func (m *mockPublisher) Publish(ctx context.Context, signal entity.TradingSignal) error {
	m.published = append(m.published, signal)
	return m.err
}

func defaultSettings() *mockSettingsProvider {
	return &mockSettingsProvider{
		configFunc: func(ctx context.Context, userID uint) (usecase.EngineConfig, error) {
			return usecase.DefaultEngineConfig(), nil
		},
	}
}

func TestSignalService_EmitsAndPublishes(t *testing.T) {
	t.Parallel()

	var saved *entity.TradingSignal
	repo := &mockSignalRepository{
		saveFunc: func(ctx context.Context, signal *entity.TradingSignal) error {
			saved = signal
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecase.NewSignalService(usecase.NewDecisionEngine(), defaultSettings(), repo, pub)

	sig, err := svc.EvaluateBundle(context.Background(), 1, confluenceBundle(analysisentity.DirectionBullish))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a signal")
	}
	if saved == nil || saved.ID != sig.ID {
		t.Error("signal must be persisted before returning")
	}
	if len(pub.published) != 1 || pub.published[0].ID != sig.ID {
		t.Errorf("expected 1 published signal, got %d", len(pub.published))
	}
}

func TestSignalService_NoTradeIsNotAnError(t *testing.T) {
	t.Parallel()

	repo := &mockSignalRepository{
		saveFunc: func(ctx context.Context, signal *entity.TradingSignal) error {
			t.Error("no-trade outcome must not be persisted")
			return nil
		},
	}
	pub := &mockPublisher{}
	svc := usecase.NewSignalService(usecase.NewDecisionEngine(), defaultSettings(), repo, pub)

	bundle := confluenceBundle(analysisentity.DirectionBullish)
	a := bundle.Analyses[analysisentity.Timeframe4H]
	a.TrendDirection = analysisentity.DirectionNeutral
	bundle.Analyses[analysisentity.Timeframe4H] = a

	sig, err := svc.EvaluateBundle(context.Background(), 1, bundle)
	if err != nil {
		t.Fatalf("no-trade must not surface an error: %v", err)
	}
	if sig != nil {
		t.Errorf("expected nil signal, got %+v", sig)
	}
	if len(pub.published) != 0 {
		t.Error("no-trade outcome must not be published")
	}
}

func TestSignalService_SettingsError(t *testing.T) {
	t.Parallel()

	settings := &mockSettingsProvider{
		configFunc: func(ctx context.Context, userID uint) (usecase.EngineConfig, error) {
			return usecase.EngineConfig{}, errors.New("settings store down")
		},
	}
	svc := usecase.NewSignalService(usecase.NewDecisionEngine(), settings, &mockSignalRepository{}, nil)

	if _, err := svc.EvaluateBundle(context.Background(), 1, confluenceBundle(analysisentity.DirectionBullish)); err == nil {
		t.Fatal("expected settings error to surface")
	}
}

func TestSignalService_SaveError(t *testing.T) {
	t.Parallel()

	repo := &mockSignalRepository{
		saveFunc: func(ctx context.Context, signal *entity.TradingSignal) error {
			return errors.New("insert failed")
		},
	}
	pub := &mockPublisher{}
	svc := usecase.NewSignalService(usecase.NewDecisionEngine(), defaultSettings(), repo, pub)

	if _, err := svc.EvaluateBundle(context.Background(), 1, confluenceBundle(analysisentity.DirectionBullish)); err == nil {
		t.Fatal("expected save error to surface")
	}
	if len(pub.published) != 0 {
		t.Error("failed save must not publish")
	}
}

func TestSignalService_PublishFailureIsBestEffort(t *testing.T) {
	t.Parallel()

	repo := &mockSignalRepository{
		saveFunc: func(ctx context.Context, signal *entity.TradingSignal) error { return nil },
	}
	pub := &mockPublisher{err: errors.New("redis down")}
	svc := usecase.NewSignalService(usecase.NewDecisionEngine(), defaultSettings(), repo, pub)

	sig, err := svc.EvaluateBundle(context.Background(), 1, confluenceBundle(analysisentity.DirectionBullish))
	if err != nil {
		t.Fatalf("publish failure must not fail the evaluation: %v", err)
	}
	if sig == nil {
		t.Fatal("signal should still be returned")
	}
}

func TestSignalService_NilPublisher(t *testing.T) {
	t.Parallel()

	repo := &mockSignalRepository{
		saveFunc: func(ctx context.Context, signal *entity.TradingSignal) error { return nil },
	}
	svc := usecase.NewSignalService(usecase.NewDecisionEngine(), defaultSettings(), repo, nil)

	sig, err := svc.EvaluateBundle(context.Background(), 1, confluenceBundle(analysisentity.DirectionBullish))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sig == nil {
		t.Fatal("expected a signal")
	}
}
