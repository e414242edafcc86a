// Package gemini はGoogle Gemini APIを使用したチャート分析クライアントを提供します。
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"chart_backend/internal/feature/analysis/usecase"
)

const (
	// DefaultModel はGemini APIのデフォルトモデルです。
	DefaultModel = "gemini-2.5-flash"
	// imageMIMEType はアップロードされるチャートスクリーンショットのMIMEタイプです。
	imageMIMEType = "image/png"
)

// GeminiChartAnalyzer はGoogle Gemini APIのマルチモーダル生成で
// チャートスクリーンショットの分析テキストを生成します。
type GeminiChartAnalyzer struct {
	client *genai.Client
	model  string
}

// GeminiChartAnalyzerがChartAnalyzerを実装していることをコンパイル時に検証します。
var _ usecase.ChartAnalyzer = (*GeminiChartAnalyzer)(nil)

// NewGeminiChartAnalyzer はADCを使用してGeminiChartAnalyzerの新しいインスタンスを生成します。
// 環境変数 GOOGLE_GENAI_USE_VERTEXAI, GOOGLE_CLOUD_PROJECT, GOOGLE_CLOUD_LOCATION が必要です。
func NewGeminiChartAnalyzer(ctx context.Context) (*GeminiChartAnalyzer, error) {
	client, err := genai.NewClient(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiChartAnalyzer{client: client, model: DefaultModel}, nil
}

// AnalyzeChart はチャート画像と指示文から自由記述の分析テキストを生成します。
// APIの失敗はそのままエラーとして返します。呼び出し側はこれを
// 「この時間足は未分析」として扱い、分析をでっち上げてはいけません。
func (g *GeminiChartAnalyzer) AnalyzeChart(ctx context.Context, imageData []byte, prompt string) (string, error) {
	parts := []*genai.Part{
		genai.NewPartFromBytes(imageData, imageMIMEType),
		genai.NewPartFromText(prompt),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("gemini API request failed: %w", err)
	}

	return resp.Text(), nil
}
