package usecase_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"chart_backend/internal/feature/analysis/domain/entity"
	"chart_backend/internal/feature/analysis/usecase"
)

// mockAxisReader はPriceAxisReaderインターフェースのテスト用実装です。
type mockAxisReader struct {
	axis usecase.PriceAxis
	err  error
}

func (m *mockAxisReader) ReadPriceAxis(ctx context.Context, imageData []byte) (usecase.PriceAxis, error) {
	return m.axis, m.err
}

// twoLabelAxis は価格4300がy=100、4100がy=500に乗る単純な軸です。
func twoLabelAxis() usecase.PriceAxis {
	return usecase.PriceAxis{
		ImageWidth:  1280,
		ImageHeight: 720,
		Labels: []usecase.AxisLabel{
			{Price: 4300, Y: 100, H: 20},
			{Price: 4100, Y: 500, H: 20},
		},
	}
}

func TestOverlayMapper_MapCoordinates(t *testing.T) {
	t.Parallel()

	mapper := usecase.NewOverlayMapper(&mockAxisReader{axis: twoLabelAxis()})
	structures := []entity.MarketStructure{
		{Kind: entity.KindOrderBlock, PriceLevel: 4200},
	}

	err := mapper.MapCoordinates(context.Background(), []byte("png"), structures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rect := structures[0].Coordinates
	if rect.IsZero() {
		t.Fatal("rect should be filled in")
	}
	// 4200は4300と4100の中点なのでy中心は300、バンド高は目盛りの平均高
	wantY := 300.0 - 20.0/2
	if math.Abs(rect.Y-wantY) > 1e-9 {
		t.Errorf("rect y = %g, want %g", rect.Y, wantY)
	}
	if rect.Height != 20 {
		t.Errorf("rect height = %g, want 20", rect.Height)
	}
	if rect.X != 0 || rect.Width != 1280 {
		t.Errorf("rect should span the full image width: %+v", rect)
	}
}

func TestOverlayMapper_ExtrapolatesOutOfRange(t *testing.T) {
	t.Parallel()

	mapper := usecase.NewOverlayMapper(&mockAxisReader{axis: twoLabelAxis()})
	structures := []entity.MarketStructure{
		{Kind: entity.KindLiquidityPool, PriceLevel: 4400}, // 最上目盛りより上
		{Kind: entity.KindLiquidityPool, PriceLevel: 4000}, // 最下目盛りより下
	}

	err := mapper.MapCoordinates(context.Background(), []byte("png"), structures)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 軸の傾きは4300→y100、4100→y500（価格100につき200px）
	above := structures[0].Coordinates.Y + 10 // y中心に戻す
	below := structures[1].Coordinates.Y + 10
	if math.Abs(above-(-100)) > 1e-9 {
		t.Errorf("price above range: y center = %g, want -100", above)
	}
	if math.Abs(below-700) > 1e-9 {
		t.Errorf("price below range: y center = %g, want 700", below)
	}
}

func TestOverlayMapper_TooFewLabels(t *testing.T) {
	t.Parallel()

	axis := usecase.PriceAxis{
		ImageWidth: 1280,
		Labels:     []usecase.AxisLabel{{Price: 4300, Y: 100, H: 20}},
	}
	mapper := usecase.NewOverlayMapper(&mockAxisReader{axis: axis})
	structures := []entity.MarketStructure{{PriceLevel: 4200}}

	if err := mapper.MapCoordinates(context.Background(), []byte("png"), structures); err == nil {
		t.Fatal("expected error with a single axis label")
	}
	if !structures[0].Coordinates.IsZero() {
		t.Error("rect must stay zero when mapping fails")
	}
}

func TestOverlayMapper_ReaderError(t *testing.T) {
	t.Parallel()

	mapper := usecase.NewOverlayMapper(&mockAxisReader{err: errors.New("ocr unavailable")})
	structures := []entity.MarketStructure{{PriceLevel: 4200}}

	if err := mapper.MapCoordinates(context.Background(), []byte("png"), structures); err == nil {
		t.Fatal("expected reader error to surface")
	}
	if !structures[0].Coordinates.IsZero() {
		t.Error("rect must stay zero when the reader fails")
	}
}
