// Package handler はsignalsフィーチャーのHTTPハンドラーを提供します。
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chart_backend/internal/feature/signals/domain"
	"chart_backend/internal/feature/signals/domain/entity"
	"chart_backend/internal/feature/signals/transport/http/dto"
	"chart_backend/internal/feature/signals/usecase"
	jwtmw "chart_backend/internal/platform/jwt"
)

// SignalsUsecase はシグナル照会のユースケースインターフェースを定義します。
// Goの慣例に従い、インターフェースは利用者（handler）側で定義します。
type SignalsUsecase interface {
	ListSignals(ctx context.Context, userID uint, q usecase.SignalQuery) ([]entity.TradingSignal, error)
	GetSignal(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error)
}

// Dispatcher はアラート発火ゲートのインターフェースを定義します。
type Dispatcher interface {
	Dispatch(ctx context.Context, signal entity.TradingSignal) (bool, error)
}

// SignalHandler はシグナル照会とアラート発火のHTTPリクエストを処理します。
type SignalHandler struct {
	uc         SignalsUsecase
	dispatcher Dispatcher
}

// NewSignalHandler はSignalHandlerの新しいインスタンスを生成します。
func NewSignalHandler(uc SignalsUsecase, dispatcher Dispatcher) *SignalHandler {
	return &SignalHandler{uc: uc, dispatcher: dispatcher}
}

// List はユーザーのシグナルを新しい順に返します。
//
// エンドポイント: GET /v1/signals?status=pending&since=1700000000&limit=50
func (h *SignalHandler) List(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	q := usecase.SignalQuery{
		Status: entity.SignalStatus(c.Query("status")),
	}
	if raw := c.Query("since"); raw != "" {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since parameter"})
			return
		}
		q.Since = sec
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
			return
		}
		q.Limit = limit
	}

	signals, err := h.uc.ListSignals(c.Request.Context(), userID, q)
	if err != nil {
		slog.Error("failed to list signals", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list signals"})
		return
	}

	out := make([]dto.SignalResp, 0, len(signals))
	for _, s := range signals {
		out = append(out, dto.FromSignal(s))
	}
	c.JSON(http.StatusOK, out)
}

// Get はシグナルを1件返します。
//
// エンドポイント: GET /v1/signals/:id
func (h *SignalHandler) Get(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	signal, err := h.uc.GetSignal(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSignalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
			return
		}
		slog.Error("failed to get signal", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get signal"})
		return
	}
	c.JSON(http.StatusOK, dto.FromSignal(*signal))
}

// Alert はシグナルの通知ゲートを手動で起動します。リアルタイム購読と
// 競合しても、ゲートの原子性により通知はちょうど1回だけ発火します。
//
// エンドポイント: POST /v1/signals/:id/alert
func (h *SignalHandler) Alert(c *gin.Context) {
	userID, ok := jwtmw.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	signal, err := h.uc.GetSignal(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, domain.ErrSignalNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "signal not found"})
			return
		}
		slog.Error("failed to get signal", "error", err, "user_id", userID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get signal"})
		return
	}

	alerted, err := h.dispatcher.Dispatch(c.Request.Context(), *signal)
	if err != nil {
		slog.Error("alert dispatch failed", "error", err, "signal_id", signal.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "alert dispatch failed"})
		return
	}
	c.JSON(http.StatusOK, dto.AlertResp{SignalID: signal.ID, Alerted: alerted})
}
