// Package adapters はsettingsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chart_backend/internal/feature/settings/domain/entity"
	"chart_backend/internal/feature/settings/usecase"
)

// settingsPostgres はSettingsRepositoryのGORM実装です。
type settingsPostgres struct {
	db *gorm.DB
}

var _ usecase.SettingsRepository = (*settingsPostgres)(nil)

// NewSettingsRepository は指定されたgorm.DB接続でsettingsPostgresの新しいインスタンスを生成します。
func NewSettingsRepository(db *gorm.DB) *settingsPostgres {
	return &settingsPostgres{db: db}
}

// SettingsModel はuser_settingsテーブルの行を表します。
type SettingsModel struct {
	UserID             uint    `gorm:"primaryKey"`
	MinConfidence      float64 `gorm:"not null"`
	RiskReward         float64 `gorm:"not null"`
	StopFallbackOffset float64 `gorm:"not null"`
	UpdatedAt          time.Time
}

// TableName はGORMが使用するテーブル名を返します。
func (SettingsModel) TableName() string {
	return "user_settings"
}

// Find はユーザーの設定を取得します。
// 未設定の場合はusecase.ErrSettingsNotFoundを返します。
func (r *settingsPostgres) Find(ctx context.Context, userID uint) (*entity.Settings, error) {
	var m SettingsModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrSettingsNotFound
		}
		return nil, err
	}
	return &entity.Settings{
		UserID:             m.UserID,
		MinConfidence:      m.MinConfidence,
		RiskReward:         m.RiskReward,
		StopFallbackOffset: m.StopFallbackOffset,
	}, nil
}

// Upsert は設定行を作成または更新します。
func (r *settingsPostgres) Upsert(ctx context.Context, s *entity.Settings) error {
	m := SettingsModel{
		UserID:             s.UserID,
		MinConfidence:      s.MinConfidence,
		RiskReward:         s.RiskReward,
		StopFallbackOffset: s.StopFallbackOffset,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"min_confidence", "risk_reward", "stop_fallback_offset", "updated_at"}),
	}).Create(&m).Error
}
