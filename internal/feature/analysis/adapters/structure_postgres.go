// Package adapters はanalysisフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chart_backend/internal/feature/analysis/domain/entity"
	"chart_backend/internal/feature/analysis/usecase"
)

// structurePostgres はStructureRepositoryのGORM実装です。
type structurePostgres struct {
	db *gorm.DB
}

var _ usecase.StructureRepository = (*structurePostgres)(nil)

// NewStructureRepository は指定されたgorm.DB接続でstructurePostgresの新しいインスタンスを生成します。
func NewStructureRepository(db *gorm.DB) *structurePostgres {
	return &structurePostgres{db: db}
}

// StructureModel はmarket_structuresテーブルの行を表します。
// ストアは追記専用で、行は一度書かれたら更新されません。
type StructureModel struct {
	ID         string  `gorm:"primaryKey;size:36"`
	UserID     uint    `gorm:"not null;index:structure_user_tf,priority:1"`
	CaptureID  string  `gorm:"size:36;not null;index"`
	Kind       string  `gorm:"size:32;not null"`
	Direction  string  `gorm:"size:8;not null"`
	PriceLevel float64 `gorm:"not null"`
	Confidence float64 `gorm:"not null"`
	Timeframe  string  `gorm:"size:8;not null;index:structure_user_tf,priority:2"`
	CoordX     float64
	CoordY     float64
	CoordW     float64
	CoordH     float64
	CreatedAt  time.Time `gorm:"not null;index"`
}

// TableName はGORMが使用するテーブル名を返します。
func (StructureModel) TableName() string {
	return "market_structures"
}

func toStructureModel(userID uint, captureID string, s entity.MarketStructure) StructureModel {
	return StructureModel{
		ID:         uuid.NewString(),
		UserID:     userID,
		CaptureID:  captureID,
		Kind:       string(s.Kind),
		Direction:  string(s.Direction),
		PriceLevel: s.PriceLevel,
		Confidence: s.Confidence,
		Timeframe:  string(s.Timeframe),
		CoordX:     s.Coordinates.X,
		CoordY:     s.Coordinates.Y,
		CoordW:     s.Coordinates.Width,
		CoordH:     s.Coordinates.Height,
		CreatedAt:  time.Now(),
	}
}

func fromStructureModel(m StructureModel) entity.MarketStructure {
	return entity.MarketStructure{
		Kind:       entity.StructureKind(m.Kind),
		Direction:  entity.Direction(m.Direction),
		PriceLevel: m.PriceLevel,
		Confidence: m.Confidence,
		Timeframe:  entity.Timeframe(m.Timeframe),
		Coordinates: entity.Rect{
			X:      m.CoordX,
			Y:      m.CoordY,
			Width:  m.CoordW,
			Height: m.CoordH,
		},
	}
}

// SaveBatch は1回の抽出パスで得られた構造をまとめて追記します。
func (r *structurePostgres) SaveBatch(ctx context.Context, userID uint, captureID string, structures []entity.MarketStructure) error {
	if len(structures) == 0 {
		return nil
	}
	ms := make([]StructureModel, 0, len(structures))
	for _, s := range structures {
		ms = append(ms, toStructureModel(userID, captureID, s))
	}
	return r.db.WithContext(ctx).Create(&ms).Error
}

// Find はユーザーの構造を新しい順に検索します。tfが空の場合は全時間足が対象です。
func (r *structurePostgres) Find(ctx context.Context, userID uint, tf entity.Timeframe, since time.Time, limit int) ([]entity.MarketStructure, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if tf != "" {
		q = q.Where("timeframe = ?", string(tf))
	}
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []StructureModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.MarketStructure, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromStructureModel(m))
	}
	return out, nil
}
