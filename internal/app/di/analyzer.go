// Package di provides dependency injection factories for creating application components.
package di

import (
	"context"
	"log/slog"
	"time"

	"chart_backend/internal/feature/analysis/adapters/gemini"
	"chart_backend/internal/feature/analysis/adapters/vision"
	analysisusecase "chart_backend/internal/feature/analysis/usecase"
	"chart_backend/internal/shared/ratelimiter"
)

const (
	// visionCallsPerMinute はビジョンAPI呼び出しのレート上限です。
	visionCallsPerMinute = 30
)

// NewChartAnalyzer creates the Gemini-backed chart analyzer.
func NewChartAnalyzer(ctx context.Context) (*gemini.GeminiChartAnalyzer, error) {
	return gemini.NewGeminiChartAnalyzer(ctx)
}

// NewOverlayMapper creates the price-axis OCR overlay mapper. It returns
// nil when the Vision API client cannot be created; overlay mapping is
// optional and the pipeline runs without it.
func NewOverlayMapper(ctx context.Context) *analysisusecase.OverlayMapper {
	ocr, err := vision.NewPriceAxisOCR(ctx)
	if err != nil {
		slog.Warn("vision OCR unavailable, overlay mapping disabled", "error", err)
		return nil
	}
	return analysisusecase.NewOverlayMapper(ocr)
}

// NewVisionRateLimiter creates the shared rate limiter for vision API calls.
func NewVisionRateLimiter() *ratelimiter.RateLimiter {
	return ratelimiter.NewRateLimiter(visionCallsPerMinute, time.Minute)
}
