package usecase

import (
	"context"
	"fmt"
	"log/slog"

	analysisentity "chart_backend/internal/feature/analysis/domain/entity"
	"chart_backend/internal/feature/signals/domain/entity"
)

// SettingsProvider は評価直前に読み込まれるユーザー設定の抽象です。
// 設定はアンビエントな共有状態ではなく、毎回値としてエンジンに渡されます。
type SettingsProvider interface {
	EngineConfig(ctx context.Context, userID uint) (EngineConfig, error)
}

// SignalPublisher は新規シグナルの変更通知チャネルへの発行を抽象化します。
// 配送はat-least-onceを想定しており、重複はAlert Dispatch Gateが吸収します。
type SignalPublisher interface {
	Publish(ctx context.Context, signal entity.TradingSignal) error
}

// SignalService は完成したバンドルの評価から永続化・通知発行までを担います。
type SignalService struct {
	engine    *DecisionEngine
	settings  SettingsProvider
	signals   SignalRepository
	publisher SignalPublisher
}

// NewSignalService はSignalServiceの新しいインスタンスを生成します。
// publisherはnil可で、その場合は通知発行をスキップします。
func NewSignalService(engine *DecisionEngine, settings SettingsProvider, signals SignalRepository, publisher SignalPublisher) *SignalService {
	return &SignalService{
		engine:    engine,
		settings:  settings,
		signals:   signals,
		publisher: publisher,
	}
}

// EvaluateBundle はバンドルをユーザー設定で評価し、シグナルが発火した場合は
// 永続化して変更通知チャネルへ発行します。発火しない場合は(nil, nil)を
// 返します。これは「見送り」という正常な結果でありエラーではありません。
func (s *SignalService) EvaluateBundle(ctx context.Context, userID uint, bundle analysisentity.TimeframeBundle) (*entity.TradingSignal, error) {
	cfg, err := s.settings.EngineConfig(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load engine config: %w", err)
	}

	signal := s.engine.Evaluate(userID, bundle, cfg)
	if signal == nil {
		slog.Info("no confluence, no signal",
			"capture_id", bundle.CaptureID, "user_id", userID)
		return nil, nil
	}

	if err := s.signals.Save(ctx, signal); err != nil {
		return nil, fmt.Errorf("save signal: %w", err)
	}
	slog.Info("trading signal emitted",
		"signal_id", signal.ID, "capture_id", signal.CaptureID,
		"type", signal.Type, "entry", signal.EntryPrice,
		"stop", signal.StopLoss, "target", signal.TakeProfit,
		"confidence", signal.Confidence)

	// 通知発行はベストエフォート。ポーリング経路が拾えるため失敗しても
	// シグナル自体は成立している。
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, *signal); err != nil {
			slog.Warn("signal publish failed", "signal_id", signal.ID, "error", err)
		}
	}
	return signal, nil
}
