// Package handler はsettingsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"chart_backend/internal/feature/settings/domain/entity"
	"chart_backend/internal/feature/settings/transport/http/dto"
	jwtmw "chart_backend/internal/platform/jwt"
)

// SettingsUsecase は設定操作のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type SettingsUsecase interface {
	GetSettings(ctx context.Context, userID uint) (*entity.Settings, error)
	UpdateSettings(ctx context.Context, settings *entity.Settings) error
}

// SettingsHandler はユーザー設定のHTTPリクエストを処理します。
type SettingsHandler struct {
	uc SettingsUsecase
}

// NewSettingsHandler はSettingsHandlerの新しいインスタンスを生成します。
func NewSettingsHandler(uc SettingsUsecase) *SettingsHandler {
	return &SettingsHandler{uc: uc}
}

// Get はユーザーの設定を返します。未設定の場合は既定値が返ります。
//
// エンドポイント: GET /v1/settings
func (h *SettingsHandler) Get(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	s, err := h.uc.GetSettings(c.Request.Context(), userID)
	if err != nil {
		slog.Error("failed to get settings", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get settings"})
		return
	}
	c.JSON(http.StatusOK, dto.SettingsResp{
		MinConfidence:      s.MinConfidence,
		RiskReward:         s.RiskReward,
		StopFallbackOffset: s.StopFallbackOffset,
	})
}

// Update はユーザーの設定を保存します。
//
// エンドポイント: PUT /v1/settings
func (h *SettingsHandler) Update(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req dto.SettingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Warn("settings validation failed", "error", err, "remote_addr", c.ClientIP())
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	settings := &entity.Settings{
		UserID:             userID,
		MinConfidence:      req.MinConfidence,
		RiskReward:         req.RiskReward,
		StopFallbackOffset: req.StopFallbackOffset,
	}
	if err := h.uc.UpdateSettings(c.Request.Context(), settings); err != nil {
		slog.Error("failed to update settings", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update settings"})
		return
	}
	c.JSON(http.StatusOK, dto.SettingsResp{
		MinConfidence:      settings.MinConfidence,
		RiskReward:         settings.RiskReward,
		StopFallbackOffset: settings.StopFallbackOffset,
	})
}
