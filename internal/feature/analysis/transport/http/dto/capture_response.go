// Package dto はanalysisフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

import (
	signaldto "chart_backend/internal/feature/signals/transport/http/dto"
)

// TimeframeResult は1時間足の分析結果のサマリーです。
type TimeframeResult struct {
	Timeframe      string `json:"timeframe"`
	StructureCount int    `json:"structure_count"`
	TrendDirection string `json:"trend_direction"`
}

// CaptureAnalysisResp はキャプチャ分析リクエストのレスポンスです。
// シグナルはバンドルが完成しコンフルエンス条件を満たした場合のみ含まれます。
type CaptureAnalysisResp struct {
	CaptureID      string                `json:"capture_id"`
	Results        []TimeframeResult     `json:"results"`
	BundleComplete bool                  `json:"bundle_complete"`
	Signal         *signaldto.SignalResp `json:"signal,omitempty"`
}

// StructureResp はマーケット構造1件のレスポンス表現です。
type StructureResp struct {
	Kind       string  `json:"kind"`
	Direction  string  `json:"direction"`
	PriceLevel float64 `json:"price_level"`
	Confidence float64 `json:"confidence"`
	Timeframe  string  `json:"timeframe"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}
