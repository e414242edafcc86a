// Package usecase はsettingsフィーチャーのビジネスロジックを実装します。
package usecase

import (
	"context"
	"errors"
	"fmt"

	"chart_backend/internal/feature/settings/domain/entity"
	signalsusecase "chart_backend/internal/feature/signals/usecase"
)

// ErrSettingsNotFound is returned by repositories when a user has no
// settings row yet. The usecase resolves it to defaults.
var ErrSettingsNotFound = errors.New("settings not found")

// SettingsRepository はユーザー設定の永続化層を抽象化します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type SettingsRepository interface {
	// Find はユーザーの設定を取得します。未設定の場合はErrSettingsNotFoundを返します。
	Find(ctx context.Context, userID uint) (*entity.Settings, error)
	// Upsert は設定を作成または更新します。
	Upsert(ctx context.Context, settings *entity.Settings) error
}

// settingsUsecase はユーザー設定の読み書きを提供します。
type settingsUsecase struct {
	repo SettingsRepository
}

// NewSettingsUsecase はsettingsUsecaseの新しいインスタンスを生成します。
func NewSettingsUsecase(repo SettingsRepository) *settingsUsecase {
	return &settingsUsecase{repo: repo}
}

// GetSettings はユーザーの設定を返します。未設定の場合は既定値を返します。
func (u *settingsUsecase) GetSettings(ctx context.Context, userID uint) (*entity.Settings, error) {
	s, err := u.repo.Find(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrSettingsNotFound) {
			return defaultSettings(userID), nil
		}
		return nil, err
	}
	return s, nil
}

// UpdateSettings は検証のうえ設定を保存します。
func (u *settingsUsecase) UpdateSettings(ctx context.Context, settings *entity.Settings) error {
	if settings.MinConfidence < 0 || settings.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0, 1], got %g", settings.MinConfidence)
	}
	if settings.RiskReward <= 0 {
		return fmt.Errorf("risk reward ratio must be positive, got %g", settings.RiskReward)
	}
	if settings.StopFallbackOffset <= 0 {
		return fmt.Errorf("stop fallback offset must be positive, got %g", settings.StopFallbackOffset)
	}
	return u.repo.Upsert(ctx, settings)
}

// EngineConfig は判定エンジンに渡す設定値を組み立てます。
// signalsフィーチャーのSettingsProviderインターフェースを実装します。
func (u *settingsUsecase) EngineConfig(ctx context.Context, userID uint) (signalsusecase.EngineConfig, error) {
	s, err := u.GetSettings(ctx, userID)
	if err != nil {
		return signalsusecase.EngineConfig{}, err
	}
	return signalsusecase.EngineConfig{
		MinConfidence:      s.MinConfidence,
		RiskReward:         s.RiskReward,
		StopFallbackOffset: s.StopFallbackOffset,
	}, nil
}

// defaultSettings は未設定ユーザー向けの既定値を返します。
func defaultSettings(userID uint) *entity.Settings {
	return &entity.Settings{
		UserID:             userID,
		MinConfidence:      signalsusecase.DefaultMinConfidence,
		RiskReward:         signalsusecase.DefaultRiskReward,
		StopFallbackOffset: signalsusecase.DefaultStopFallbackOffset,
	}
}
