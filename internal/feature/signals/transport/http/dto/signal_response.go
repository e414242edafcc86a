// Package dto はsignalsフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	"time"

	"chart_backend/internal/feature/signals/domain/entity"
)

// SignalResp はトレーディングシグナル1件のレスポンス表現です。
type SignalResp struct {
	ID         string            `json:"id"`
	CaptureID  string            `json:"capture_id"`
	Type       string            `json:"type"`
	EntryPrice float64           `json:"entry_price"`
	StopLoss   float64           `json:"stop_loss"`
	TakeProfit float64           `json:"take_profit"`
	RiskReward float64           `json:"risk_reward_ratio"`
	Confidence float64           `json:"confidence_score"`
	Rationale  map[string]string `json:"rationale"`
	Status     string            `json:"status"`
	AlertSent  bool              `json:"alert_sent"`
	CreatedAt  time.Time         `json:"created_at"`
}

// FromSignal はドメインエンティティからレスポンスDTOを組み立てます。
func FromSignal(s entity.TradingSignal) SignalResp {
	rationale := make(map[string]string, len(s.Rationale))
	for tf, r := range s.Rationale {
		rationale[string(tf)] = r
	}
	return SignalResp{
		ID:         s.ID,
		CaptureID:  s.CaptureID,
		Type:       string(s.Type),
		EntryPrice: s.EntryPrice,
		StopLoss:   s.StopLoss,
		TakeProfit: s.TakeProfit,
		RiskReward: s.RiskReward,
		Confidence: s.Confidence,
		Rationale:  rationale,
		Status:     string(s.Status),
		AlertSent:  s.AlertSent,
		CreatedAt:  s.CreatedAt,
	}
}

// AlertResp は手動アラート発火のレスポンスです。alertedは
// 「この呼び出しが通知を発火させたか」を表します。
type AlertResp struct {
	SignalID string `json:"signal_id"`
	Alerted  bool   `json:"alerted"`
}
