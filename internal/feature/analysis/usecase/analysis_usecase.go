package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chart_backend/internal/feature/analysis/domain/entity"
	signalentity "chart_backend/internal/feature/signals/domain/entity"
	"chart_backend/internal/shared/ratelimiter"
)

const (
	// MaxImageSize はチャート画像アップロードの最大サイズ（10MB）です。
	MaxImageSize = 10 * 1024 * 1024

	// analysisPromptTemplate はビジョンモデルへ渡す指示のテンプレートです。
	// 時間足ラベルとユーザーの分析ルールテキストを埋め込みます。
	analysisPromptTemplate = "You are analyzing a %s trading chart screenshot. " +
		"Identify market structure: change of character (CHOCH), break of structure (BOS), " +
		"order blocks, liquidity pools, points of interest, and the 0.5 fibonacci level. " +
		"For each finding give its direction (bullish/bearish) and the exact price level, one per line. " +
		"State the overall trend direction.\nAnalysis rules:\n%s"
)

// ChartAnalyzer はチャート画像の分析テキストを生成するサービスの抽象です。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type ChartAnalyzer interface {
	// AnalyzeChart は画像と指示文から自由記述の分析テキストを生成します。
	AnalyzeChart(ctx context.Context, imageData []byte, prompt string) (string, error)
}

// StructureRepository はマーケット構造の永続化層を抽象化します。ストアは追記専用です。
type StructureRepository interface {
	// SaveBatch は1回の抽出パスで得られた構造をまとめて永続化します。
	SaveBatch(ctx context.Context, userID uint, captureID string, structures []entity.MarketStructure) error
	// Find はユーザーの構造を新しい順に検索します。
	Find(ctx context.Context, userID uint, tf entity.Timeframe, since time.Time, limit int) ([]entity.MarketStructure, error)
}

// SignalEvaluator は完成したバンドルのシグナル評価を抽象化します。
// 実体はsignalsフィーチャー側にあり、シグナルが発火しない場合は(nil, nil)を返します。
type SignalEvaluator interface {
	EvaluateBundle(ctx context.Context, userID uint, bundle entity.TimeframeBundle) (*signalentity.TradingSignal, error)
}

// AnalysisResult は1時間足の分析処理の結果です。
type AnalysisResult struct {
	Analysis       entity.TimeframeAnalysis    // 抽出結果
	BundleComplete bool                        // このキャプチャの4時間足が揃ったか
	Signal         *signalentity.TradingSignal // バンドル完成時に発火したシグナル（なければnil）
}

// analysisUsecase はキャプチャ分析パイプラインを実装します。
// 画像 → ビジョン分析 → 構造抽出 → オーバーレイマッピング → 永続化 →
// 集約 → （バンドル完成時）シグナル評価、の順で処理します。
type analysisUsecase struct {
	analyzer    ChartAnalyzer
	extractor   *StructureExtractor
	overlay     *OverlayMapper
	aggregator  *BundleAggregator
	structures  StructureRepository
	evaluator   SignalEvaluator
	rateLimiter ratelimiter.RateLimiterInterface
}

// NewAnalysisUsecase はanalysisUsecaseの新しいインスタンスを生成します。
// overlayはnil可で、その場合オーバーレイマッピングはスキップされます。
func NewAnalysisUsecase(
	analyzer ChartAnalyzer,
	overlay *OverlayMapper,
	aggregator *BundleAggregator,
	structures StructureRepository,
	evaluator SignalEvaluator,
	rateLimiter ratelimiter.RateLimiterInterface,
) *analysisUsecase {
	return &analysisUsecase{
		analyzer:    analyzer,
		extractor:   NewStructureExtractor(),
		overlay:     overlay,
		aggregator:  aggregator,
		structures:  structures,
		evaluator:   evaluator,
		rateLimiter: rateLimiter,
	}
}

// AnalyzeTimeframe は1つの時間足のチャート画像を分析します。
//
// ビジョンサービスの失敗はそのままエラーとして返します。このときサイクルは
// 「この時間足は未分析」のまま停滞し、中立の分析がでっち上げられることは
// ありません（フェイルクローズ）。呼び出し側は同じキャプチャIDで再試行できます。
func (u *analysisUsecase) AnalyzeTimeframe(ctx context.Context, userID uint, captureID string, tf entity.Timeframe, imageData []byte, rules string) (*AnalysisResult, error) {
	if !tf.IsValid() {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	if len(imageData) == 0 {
		return nil, fmt.Errorf("image data is empty")
	}
	if len(imageData) > MaxImageSize {
		return nil, fmt.Errorf("image size exceeds maximum of %d bytes", MaxImageSize)
	}

	u.rateLimiter.WaitIfNeeded()
	prompt := fmt.Sprintf(analysisPromptTemplate, tf, rules)
	text, err := u.analyzer.AnalyzeChart(ctx, imageData, prompt)
	if err != nil {
		return nil, fmt.Errorf("chart analysis failed for %s: %w", tf, err)
	}

	analysis := u.extractor.Extract(tf, text)

	// オーバーレイマッピングはベストエフォート。失敗してもゼロ矩形のまま進む。
	if u.overlay != nil && len(analysis.Structures) > 0 {
		if err := u.overlay.MapCoordinates(ctx, imageData, analysis.Structures); err != nil {
			slog.Warn("overlay mapping failed", "capture_id", captureID, "timeframe", tf, "error", err)
		}
	}

	if err := u.structures.SaveBatch(ctx, userID, captureID, analysis.Structures); err != nil {
		return nil, fmt.Errorf("save structures: %w", err)
	}

	if err := u.aggregator.Put(captureID, analysis); err != nil {
		return nil, err
	}

	result := &AnalysisResult{Analysis: analysis}
	if !u.aggregator.IsComplete(captureID) {
		return result, nil
	}

	bundle, err := u.aggregator.ToBundle(captureID)
	if err != nil {
		// 同一キャプチャの並行分析が先にバンドルを払い出したケース。
		// シグナル評価はそちらの経路で行われる。
		slog.Info("bundle already delivered", "capture_id", captureID, "error", err)
		return result, nil
	}
	result.BundleComplete = true

	signal, err := u.evaluator.EvaluateBundle(ctx, userID, bundle)
	if err != nil {
		return nil, fmt.Errorf("evaluate bundle: %w", err)
	}
	result.Signal = signal
	return result, nil
}

// ListStructures はユーザーの保存済み構造を新しい順に返します。
func (u *analysisUsecase) ListStructures(ctx context.Context, userID uint, tf entity.Timeframe, since time.Time, limit int) ([]entity.MarketStructure, error) {
	if tf != "" && !tf.IsValid() {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	return u.structures.Find(ctx, userID, tf, since, limit)
}
