// Package entity はsignalsフィーチャーのドメインモデルを定義します。
package entity

import (
	"time"

	analysisentity "chart_backend/internal/feature/analysis/domain/entity"
)

// SignalType は売買方向を表します。シグナルが発火しない場合、
// TradingSignal自体が生成されないため、"no signal"を表す値はありません。
type SignalType string

const (
	SignalBuy  SignalType = "buy"
	SignalSell SignalType = "sell"
)

// SignalStatus はシグナルのライフサイクル状態です。
// エンジンはpendingのみ生成し、以降の遷移は下流の注文トラッキングが担います。
type SignalStatus string

const (
	StatusPending   SignalStatus = "pending"
	StatusActive    SignalStatus = "active"
	StatusTriggered SignalStatus = "triggered"
	StatusExpired   SignalStatus = "expired"
	StatusCancelled SignalStatus = "cancelled"
)

// TradingSignal は判定エンジンの出力です。
// AlertSentのfalse→true遷移だけがコアの責務で、それ以外は生成後不変です。
type TradingSignal struct {
	ID              string                              // uuid
	UserID          uint                                // 所有ユーザー
	CaptureID       string                              // 発生元キャプチャサイクル
	Type            SignalType                          // buy / sell
	EntryPrice      float64                             // 1mトリガー構造の価格
	StopLoss        float64                             // 損切り価格
	TakeProfit      float64                             // 利確価格
	RiskReward      float64                             // 設定値をそのまま反映
	Confidence      float64                             // 確認ステージ信頼度の最小値
	Rationale       map[analysisentity.Timeframe]string // 時間足ごとの根拠
	Status          SignalStatus                        // エンジンは常にpendingを設定
	AlertSent       bool                                // Alert Dispatch Gateが1度だけtrueにする
	CreatedAt       time.Time
}
