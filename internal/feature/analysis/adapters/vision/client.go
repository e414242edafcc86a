// Package vision はGoogle Cloud Vision APIを使用した価格軸OCRクライアントを提供します。
package vision

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gvision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"chart_backend/internal/feature/analysis/usecase"
)

// axisRegion は画像幅に対する価格軸領域の開始位置です。
// 一般的なチャートでは価格軸は画像の右端に描画されます。
const axisRegion = 0.80

// PriceAxisOCR はGoogle Cloud Vision APIのテキスト検出で
// チャート画像の価格軸目盛りを読み取ります。
type PriceAxisOCR struct {
	client *gvision.ImageAnnotatorClient
}

// PriceAxisOCRがPriceAxisReaderを実装していることをコンパイル時に検証します。
var _ usecase.PriceAxisReader = (*PriceAxisOCR)(nil)

// NewPriceAxisOCR はADCを使用してPriceAxisOCRの新しいインスタンスを生成します。
func NewPriceAxisOCR(ctx context.Context) (*PriceAxisOCR, error) {
	client, err := gvision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision client: %w", err)
	}
	return &PriceAxisOCR{client: client}, nil
}

// Close はVision APIクライアントを解放します。
func (v *PriceAxisOCR) Close() error {
	return v.client.Close()
}

// ReadPriceAxis は画像右端の数値テキストを価格軸の目盛りとして読み取ります。
func (v *PriceAxisOCR) ReadPriceAxis(ctx context.Context, imageData []byte) (usecase.PriceAxis, error) {
	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{
			{
				Image: &visionpb.Image{Content: imageData},
				Features: []*visionpb.Feature{
					{Type: visionpb.Feature_TEXT_DETECTION},
				},
			},
		},
	}

	resp, err := v.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return usecase.PriceAxis{}, fmt.Errorf("vision API request failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return usecase.PriceAxis{}, fmt.Errorf("vision API returned no responses")
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return usecase.PriceAxis{}, fmt.Errorf("vision API error: %s", r.Error.Message)
	}

	axis := usecase.PriceAxis{}
	if full := r.FullTextAnnotation; full != nil && len(full.Pages) > 0 {
		axis.ImageWidth = float64(full.Pages[0].Width)
		axis.ImageHeight = float64(full.Pages[0].Height)
	}

	// TextAnnotationsの先頭は全文。個々の単語は2件目以降。
	for i, ann := range r.TextAnnotations {
		if i == 0 {
			continue
		}
		price, ok := parseAxisPrice(ann.Description)
		if !ok {
			continue
		}
		minX, minY, maxX, maxY := boundingBox(ann.BoundingPoly)
		// 右端の価格軸領域の外にある数値は出来高表示などのノイズとして除外
		if axis.ImageWidth > 0 && (minX+maxX)/2 < axis.ImageWidth*axisRegion {
			continue
		}
		axis.Labels = append(axis.Labels, usecase.AxisLabel{
			Price: price,
			Y:     (minY + maxY) / 2,
			H:     maxY - minY,
		})
	}
	return axis, nil
}

// parseAxisPrice は目盛りテキストを価格として解釈します。
// 桁区切りと通貨記号を許容し、数値でないテキストは捨てます。
func parseAxisPrice(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$¥€£")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// boundingBox はBoundingPolyの外接矩形を返します。
func boundingBox(poly *visionpb.BoundingPoly) (minX, minY, maxX, maxY float64) {
	if poly == nil || len(poly.Vertices) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = float64(poly.Vertices[0].X), float64(poly.Vertices[0].Y)
	maxX, maxY = minX, minY
	for _, v := range poly.Vertices[1:] {
		x, y := float64(v.X), float64(v.Y)
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return minX, minY, maxX, maxY
}
