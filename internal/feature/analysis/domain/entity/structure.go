// Package entity はanalysisフィーチャーのドメインモデルを定義します。
package entity

// Timeframe はチャートの時間足を表します。
type Timeframe string

// シグナル判定に必要な4つの時間足。
const (
	Timeframe4H  Timeframe = "4h"
	Timeframe15M Timeframe = "15m"
	Timeframe3M  Timeframe = "3m"
	Timeframe1M  Timeframe = "1m"
)

// RequiredTimeframes はバンドルが完成と見なされるために必要な時間足の一覧です。
// 並び順は上位足から下位足（バイアス判定 → トリガー判定の評価順）です。
var RequiredTimeframes = []Timeframe{Timeframe4H, Timeframe15M, Timeframe3M, Timeframe1M}

// IsValid はtfがサポート対象の時間足かどうかを返します。
func (tf Timeframe) IsValid() bool {
	switch tf {
	case Timeframe4H, Timeframe15M, Timeframe3M, Timeframe1M:
		return true
	}
	return false
}

// StructureKind は検出されたマーケット構造の種別を表します。
type StructureKind string

const (
	KindChangeOfCharacter StructureKind = "change_of_character"
	KindBreakOfStructure  StructureKind = "break_of_structure"
	KindOrderBlock        StructureKind = "order_block"
	KindLiquidityPool     StructureKind = "liquidity_pool"
	KindPointOfInterest   StructureKind = "point_of_interest"
	KindFib50             StructureKind = "fib_50"
)

// Direction は構造の方向性バイアスを表します。
type Direction string

const (
	DirectionBullish Direction = "bullish"
	DirectionBearish Direction = "bearish"
	DirectionNeutral Direction = "neutral"
)

// Rect はチャート画像上のオーバーレイ矩形です。
// 判定ロジックからは不透明なメタデータで、抽出直後はゼロ値、
// その後のオーバーレイマッピングで設定されます。
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// IsZero はまだマッピングされていない矩形かどうかを返します。
func (r Rect) IsZero() bool {
	return r == Rect{}
}

// MarketStructure は分析テキストから検出された1つのパターンを表します。
// 抽出パスで1度だけ生成され、以後は不変です。
type MarketStructure struct {
	Kind        StructureKind // 構造種別
	Direction   Direction     // 方向性バイアス
	PriceLevel  float64       // 構造が参照する価格
	Confidence  float64       // 信頼度スコア（0.0 ~ 1.0）
	Timeframe   Timeframe     // 検出元の時間足
	Coordinates Rect          // チャートオーバーレイ用矩形
}

// TimeframeAnalysis は1つの時間足に対する抽出結果です。
// 1回のキャプチャ分析サイクルの間だけ存在する一時データです。
type TimeframeAnalysis struct {
	Timeframe      Timeframe         // 対象の時間足
	RawText        string            // ビジョンモデルの生の分析テキスト
	Structures     []MarketStructure // 抽出されたマーケット構造
	TrendDirection Direction         // 時間足全体のトレンド方向
	KeyLevels      []float64         // 重要価格レベル（抽出順）
}

// TimeframeBundle is one aligned capture cycle: exactly one analysis per
// required timeframe. A bundle can only be obtained from the aggregator
// once all four timeframes are present, so holders may assume completeness.
type TimeframeBundle struct {
	CaptureID string
	Analyses  map[Timeframe]TimeframeAnalysis
}

// Analysis returns the analysis for tf. The second return is false only
// for timeframes outside the required set.
func (b TimeframeBundle) Analysis(tf Timeframe) (TimeframeAnalysis, bool) {
	a, ok := b.Analyses[tf]
	return a, ok
}
