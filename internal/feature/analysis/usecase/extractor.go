// Package usecase はanalysisフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"regexp"
	"strconv"
	"strings"

	"chart_backend/internal/feature/analysis/domain/entity"
)

// structureRule は1つのキーワードルールを定義します。
// keywords のいずれかを含む行がマッチ対象となり、qualifiers が
// 指定されている場合はさらにそのいずれかを含む必要があります。
type structureRule struct {
	kind       entity.StructureKind
	keywords   []string
	qualifiers []string
	confidence float64
}

// extractionRules は抽出ルールテーブルです。信頼度は種別ごとの固定値で、
// ルールの評価順もこの並びに固定されます。
var extractionRules = []structureRule{
	{kind: entity.KindChangeOfCharacter, keywords: []string{"choch", "change of character"}, confidence: 0.80},
	{kind: entity.KindBreakOfStructure, keywords: []string{"bos", "break of structure"}, confidence: 0.85},
	{kind: entity.KindOrderBlock, keywords: []string{"order block"}, confidence: 0.75},
	{kind: entity.KindLiquidityPool, keywords: []string{"liquidity", "pool"}, confidence: 0.70},
	{kind: entity.KindPointOfInterest, keywords: []string{"poi", "point of interest"}, confidence: 0.80},
	{kind: entity.KindFib50, keywords: []string{"fib"}, qualifiers: []string{"50", "0.5"}, confidence: 0.75},
}

// 方向推定用キーワード。bullish側を先に評価します。
var (
	bullishWords = []string{"bullish", "demand", "above"}
	bearishWords = []string{"bearish", "supply", "below"}
)

// priceToken は通貨記号と桁区切りを許容する10進数トークンにマッチします。
var priceToken = regexp.MustCompile(`[$¥€£]?\d{1,3}(?:,\d{3})+(?:\.\d+)?|[$¥€£]?\d+(?:\.\d+)?`)

// StructureExtractor はビジョンモデルの自由記述テキストから
// マーケット構造を抽出します。ベストエフォートのヒューリスティックで、
// エラーを返すことはなく、マッチしないテキストは空集合になります。
type StructureExtractor struct {
	rules []structureRule
}

// NewStructureExtractor は既定のルールテーブルを持つStructureExtractorを生成します。
func NewStructureExtractor() *StructureExtractor {
	return &StructureExtractor{rules: extractionRules}
}

// Extract は分析テキストを行単位でスキャンし、時間足tfのTimeframeAnalysisを
// 組み立てます。1行は1ルールにつき最大1構造を生成しますが、複数ルールに
// 同時にマッチできます。価格を抽出できない行はキーワードがあっても捨てられます。
func (e *StructureExtractor) Extract(tf entity.Timeframe, text string) entity.TimeframeAnalysis {
	analysis := entity.TimeframeAnalysis{
		Timeframe: tf,
		RawText:   text,
	}

	for _, rawLine := range strings.Split(text, "\n") {
		line := strings.ToLower(rawLine)

		price, ok := extractPrice(line)
		if !ok {
			// 価格のない行は全ルールで不採用
			continue
		}
		dir := inferDirection(line)

		for _, rule := range e.rules {
			if !rule.matches(line) {
				continue
			}
			analysis.Structures = append(analysis.Structures, entity.MarketStructure{
				Kind:       rule.kind,
				Direction:  dir,
				PriceLevel: price,
				Confidence: rule.confidence,
				Timeframe:  tf,
				// Coordinatesはゼロ矩形のまま。オーバーレイマッピングが後で埋める。
			})
		}
	}

	analysis.TrendDirection = inferTrend(text, analysis.Structures)
	analysis.KeyLevels = keyLevels(analysis.Structures)
	return analysis
}

// matches は行がルールのキーワード条件を満たすかどうかを返します。
func (r structureRule) matches(line string) bool {
	if !containsAny(line, r.keywords) {
		return false
	}
	if len(r.qualifiers) > 0 && !containsAny(line, r.qualifiers) {
		return false
	}
	return true
}

// inferDirection は行内の方向キーワードから方向を推定します。
func inferDirection(line string) entity.Direction {
	if containsAny(line, bullishWords) {
		return entity.DirectionBullish
	}
	if containsAny(line, bearishWords) {
		return entity.DirectionBearish
	}
	return entity.DirectionNeutral
}

// inferTrend は時間足全体のトレンド方向を推定します。
// テキスト中の明示的なトレンド記述を優先し、なければ抽出された構造の
// 方向の多数決、どちらも決まらなければneutralを返します。
func inferTrend(text string, structures []entity.MarketStructure) entity.Direction {
	lower := strings.ToLower(text)
	for _, l := range strings.Split(lower, "\n") {
		if !strings.Contains(l, "trend") {
			continue
		}
		if containsAny(l, []string{"uptrend", "bullish"}) {
			return entity.DirectionBullish
		}
		if containsAny(l, []string{"downtrend", "bearish"}) {
			return entity.DirectionBearish
		}
	}

	var bull, bear int
	for _, s := range structures {
		switch s.Direction {
		case entity.DirectionBullish:
			bull++
		case entity.DirectionBearish:
			bear++
		}
	}
	switch {
	case bull > bear:
		return entity.DirectionBullish
	case bear > bull:
		return entity.DirectionBearish
	}
	return entity.DirectionNeutral
}

// keyLevels は構造の価格レベルを出現順・重複なしで返します。
func keyLevels(structures []entity.MarketStructure) []float64 {
	seen := map[float64]struct{}{}
	var levels []float64
	for _, s := range structures {
		if _, ok := seen[s.PriceLevel]; ok {
			continue
		}
		seen[s.PriceLevel] = struct{}{}
		levels = append(levels, s.PriceLevel)
	}
	return levels
}

// extractPrice は行から最初の10進数トークンを取り出し、
// 通貨記号と桁区切りを除去してパースします。
func extractPrice(line string) (float64, bool) {
	tok := priceToken.FindString(line)
	if tok == "" {
		return 0, false
	}
	tok = strings.TrimLeft(tok, "$¥€£")
	tok = strings.ReplaceAll(tok, ",", "")
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
