package notify

import (
	"context"
	"log/slog"

	"chart_backend/internal/feature/signals/domain/entity"
	"chart_backend/internal/feature/signals/usecase"
)

// LogNotifier はスタンドアロン構成向けの通知実装で、構造化ログに
// アラートを1行書き出します。サウンドやプッシュ通知などの配送先は
// この型を差し替えることで接続します。
type LogNotifier struct{}

var _ usecase.Notifier = (*LogNotifier)(nil)

// Notify はシグナルのアラートをログに出力します。
func (LogNotifier) Notify(_ context.Context, signal entity.TradingSignal) error {
	slog.Info("TRADING ALERT",
		"signal_id", signal.ID,
		"type", signal.Type,
		"entry", signal.EntryPrice,
		"stop", signal.StopLoss,
		"target", signal.TakeProfit,
		"risk_reward", signal.RiskReward,
		"confidence", signal.Confidence,
	)
	return nil
}
