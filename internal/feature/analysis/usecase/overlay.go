package usecase

import (
	"context"
	"fmt"
	"sort"

	"chart_backend/internal/feature/analysis/domain/entity"
)

// AxisLabel はチャート画像の価格軸から読み取られた1つの目盛りです。
type AxisLabel struct {
	Price float64 // 目盛りの価格
	Y     float64 // バウンディングボックスの縦中心（ピクセル）
	H     float64 // バウンディングボックスの高さ（ピクセル）
}

// PriceAxis は価格軸の読み取り結果です。
type PriceAxis struct {
	ImageWidth  float64
	ImageHeight float64
	Labels      []AxisLabel // 価格の降順（チャート上で上から下）
}

// PriceAxisReader はチャート画像から価格軸の目盛りを読み取るOCRの抽象です。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type PriceAxisReader interface {
	ReadPriceAxis(ctx context.Context, imageData []byte) (PriceAxis, error)
}

// OverlayMapper は抽出された構造の価格レベルをチャート画像上の矩形に
// マッピングします。判定ロジックには関与しないメタデータ付与の後処理です。
type OverlayMapper struct {
	axis PriceAxisReader
}

// NewOverlayMapper はOverlayMapperの新しいインスタンスを生成します。
func NewOverlayMapper(axis PriceAxisReader) *OverlayMapper {
	return &OverlayMapper{axis: axis}
}

// MapCoordinates は各構造のCoordinatesを価格軸の線形補間で埋めます。
// 目盛りが2つ未満しか読めない場合はエラーを返し、構造はゼロ矩形のまま残ります。
func (m *OverlayMapper) MapCoordinates(ctx context.Context, imageData []byte, structures []entity.MarketStructure) error {
	axis, err := m.axis.ReadPriceAxis(ctx, imageData)
	if err != nil {
		return fmt.Errorf("read price axis: %w", err)
	}
	if len(axis.Labels) < 2 {
		return fmt.Errorf("price axis has %d labels, need at least 2", len(axis.Labels))
	}

	labels := make([]AxisLabel, len(axis.Labels))
	copy(labels, axis.Labels)
	sort.Slice(labels, func(i, j int) bool { return labels[i].Price > labels[j].Price })

	var bandHeight float64
	for _, l := range labels {
		bandHeight += l.H
	}
	bandHeight /= float64(len(labels))

	for i := range structures {
		y := interpolateY(labels, structures[i].PriceLevel)
		structures[i].Coordinates = entity.Rect{
			X:      0,
			Y:      y - bandHeight/2,
			Width:  axis.ImageWidth,
			Height: bandHeight,
		}
	}
	return nil
}

// interpolateY は価格を挟む2つの目盛りの間で線形補間してy座標を求めます。
// レンジ外の価格は端の2目盛りから外挿します。
func interpolateY(labels []AxisLabel, price float64) float64 {
	// labelsは価格の降順。priceを挟む区間を探す。
	lo, hi := labels[len(labels)-1], labels[0]
	for i := 0; i < len(labels)-1; i++ {
		if labels[i].Price >= price && price >= labels[i+1].Price {
			hi, lo = labels[i], labels[i+1]
			break
		}
	}
	if price > labels[0].Price {
		hi, lo = labels[0], labels[1]
	}
	if price < labels[len(labels)-1].Price {
		hi, lo = labels[len(labels)-2], labels[len(labels)-1]
	}
	if hi.Price == lo.Price {
		return hi.Y
	}
	return hi.Y + (hi.Price-price)/(hi.Price-lo.Price)*(lo.Y-hi.Y)
}
