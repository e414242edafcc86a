// Package usecase はsignalsフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	analysisentity "chart_backend/internal/feature/analysis/domain/entity"
	"chart_backend/internal/feature/signals/domain/entity"
)

const (
	// DefaultMinConfidence はシグナル発火に必要な信頼度の既定の下限です。
	DefaultMinConfidence = 0.75
	// DefaultRiskReward は既定のリスクリワード比です。
	DefaultRiskReward = 5.0
	// DefaultStopFallbackOffset はストップ候補の構造が見つからない場合に
	// エントリー価格から引く（売りでは足す）固定オフセットです。
	DefaultStopFallbackOffset = 1.0
	// trendConfidence は4時間足にバイアス一致の構造がなく、トレンド方向
	// だけでバイアスが立った場合のステージ信頼度です。
	trendConfidence = 0.80
)

// EngineConfig は1回の評価に渡されるユーザー設定値です。
// エンジンは環境や共有状態を参照せず、この値だけで決定論的に動作します。
type EngineConfig struct {
	MinConfidence      float64 // シグナル発火に必要な最低信頼度
	RiskReward         float64 // リスクリワード比
	StopFallbackOffset float64 // ストップ構造不在時の固定オフセット
}

// DefaultEngineConfig は既定値のEngineConfigを返します。
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MinConfidence:      DefaultMinConfidence,
		RiskReward:         DefaultRiskReward,
		StopFallbackOffset: DefaultStopFallbackOffset,
	}
}

// normalize はゼロ値のフィールドを既定値で埋めます。
func (c EngineConfig) normalize() EngineConfig {
	if c.MinConfidence <= 0 {
		c.MinConfidence = DefaultMinConfidence
	}
	if c.RiskReward <= 0 {
		c.RiskReward = DefaultRiskReward
	}
	if c.StopFallbackOffset <= 0 {
		c.StopFallbackOffset = DefaultStopFallbackOffset
	}
	return c
}

// DecisionEngine は4時間足のバイアスに対する下位足の合流（コンフルエンス）を
// 評価し、条件を満たした場合に1つのTradingSignalを生成します。
// I/Oを行わない純粋なロジックで、同一入力に対して常に同一の結果を返します。
type DecisionEngine struct{}

// NewDecisionEngine はDecisionEngineの新しいインスタンスを生成します。
func NewDecisionEngine() *DecisionEngine {
	return &DecisionEngine{}
}

// Evaluate は完成したバンドルを評価します。シグナルが発火しない場合は
// nilを返します。これはエラーではなく「見送り」という正常な結果です。
//
// コンフルエンス条件:
//   - 4h: トレンド方向がバイアスを決める（neutralなら即見送り）
//   - 15m: バイアスと同方向の構造が1つ以上（マーケットアクション確認）
//   - 3m: バイアスと同方向のオーダーブロックが1つ以上（エントリーゾーン）
//   - 1m: バイアスと同方向の構造が1つ以上（トリガー、エントリー価格の源）
//
// 信頼度は各ステージで条件を満たした構造の信頼度の最小値です（最弱リンク方式）。
func (e *DecisionEngine) Evaluate(userID uint, bundle analysisentity.TimeframeBundle, cfg EngineConfig) *entity.TradingSignal {
	cfg = cfg.normalize()

	h4, _ := bundle.Analysis(analysisentity.Timeframe4H)
	m15, _ := bundle.Analysis(analysisentity.Timeframe15M)
	m3, _ := bundle.Analysis(analysisentity.Timeframe3M)
	m1, _ := bundle.Analysis(analysisentity.Timeframe1M)

	bias := h4.TrendDirection
	if bias != analysisentity.DirectionBullish && bias != analysisentity.DirectionBearish {
		return nil
	}

	// 4hステージ: バイアス一致構造があればその最高信頼度、なければトレンド既定値
	h4Conf := trendConfidence
	if s, ok := bestMatch(h4.Structures, bias, ""); ok {
		h4Conf = s.Confidence
	}

	m15Struct, ok := bestMatch(m15.Structures, bias, "")
	if !ok {
		return nil
	}
	m3Block, ok := bestMatch(m3.Structures, bias, analysisentity.KindOrderBlock)
	if !ok {
		return nil
	}
	m1Trigger, ok := bestMatch(m1.Structures, bias, "")
	if !ok {
		return nil
	}

	confidence := math.Min(math.Min(h4Conf, m15Struct.Confidence), math.Min(m3Block.Confidence, m1Trigger.Confidence))
	if confidence < cfg.MinConfidence {
		return nil
	}

	entry := m1Trigger.PriceLevel
	stop := e.stopLoss(bias, entry, cfg.StopFallbackOffset, m3.Structures, m1.Structures)

	signalType := entity.SignalBuy
	target := entry + cfg.RiskReward*(entry-stop)
	if bias == analysisentity.DirectionBearish {
		signalType = entity.SignalSell
		target = entry - cfg.RiskReward*(stop-entry)
	}

	return &entity.TradingSignal{
		ID:         uuid.NewString(),
		UserID:     userID,
		CaptureID:  bundle.CaptureID,
		Type:       signalType,
		EntryPrice: entry,
		StopLoss:   stop,
		TakeProfit: target,
		RiskReward: cfg.RiskReward,
		Confidence: confidence,
		Rationale: map[analysisentity.Timeframe]string{
			analysisentity.Timeframe4H:  fmt.Sprintf("4h trend is %s", bias),
			analysisentity.Timeframe15M: fmt.Sprintf("15m %s confirms %s market action at %g", m15Struct.Kind, bias, m15Struct.PriceLevel),
			analysisentity.Timeframe3M:  fmt.Sprintf("3m %s order block entry zone at %g", bias, m3Block.PriceLevel),
			analysisentity.Timeframe1M:  fmt.Sprintf("1m %s trigger at %g", m1Trigger.Kind, m1Trigger.PriceLevel),
		},
		Status:    entity.StatusPending,
		AlertSent: false,
		CreatedAt: time.Now(),
	}
}

// bestMatch はバイアスと同方向の構造のうち最も信頼度の高いものを返します。
// kindが空でない場合はその種別に限定します。同率の場合は先に現れたものを
// 採用し、評価を決定論的に保ちます。
func bestMatch(structures []analysisentity.MarketStructure, bias analysisentity.Direction, kind analysisentity.StructureKind) (analysisentity.MarketStructure, bool) {
	var best analysisentity.MarketStructure
	found := false
	for _, s := range structures {
		if s.Direction != bias {
			continue
		}
		if kind != "" && s.Kind != kind {
			continue
		}
		if !found || s.Confidence > best.Confidence {
			best = s
			found = true
		}
	}
	return best, found
}

// stopLoss はエントリーのバイアス側（買いなら下、売りなら上）にある
// オーダーブロックまたはリクイディティプールのうち、エントリーに最も近い
// 価格を3m/1mの構造から探します。見つからない場合は固定オフセットに
// フォールバックします。
func (e *DecisionEngine) stopLoss(bias analysisentity.Direction, entry, fallbackOffset float64, structureSets ...[]analysisentity.MarketStructure) float64 {
	var stop float64
	found := false
	for _, set := range structureSets {
		for _, s := range set {
			if s.Kind != analysisentity.KindOrderBlock && s.Kind != analysisentity.KindLiquidityPool {
				continue
			}
			if s.Direction != bias {
				continue
			}
			if bias == analysisentity.DirectionBullish {
				if s.PriceLevel >= entry {
					continue
				}
				if !found || s.PriceLevel > stop {
					stop = s.PriceLevel
					found = true
				}
			} else {
				if s.PriceLevel <= entry {
					continue
				}
				if !found || s.PriceLevel < stop {
					stop = s.PriceLevel
					found = true
				}
			}
		}
	}
	if found {
		return stop
	}
	if bias == analysisentity.DirectionBullish {
		return entry - fallbackOffset
	}
	return entry + fallbackOffset
}
