// Package router はアプリケーションのHTTPルーティングを定義します。
package router

import (
	"github.com/gin-gonic/gin"

	analysishandler "chart_backend/internal/feature/analysis/transport/handler"
	authhandler "chart_backend/internal/feature/auth/transport/handler"
	settingshandler "chart_backend/internal/feature/settings/transport/handler"
	signalhandler "chart_backend/internal/feature/signals/transport/handler"
	healthhandler "chart_backend/internal/platform/http/handler"
	jwtmw "chart_backend/internal/platform/jwt"
)

// NewRouter は全エンドポイントを登録したginエンジンを生成します。
func NewRouter(
	auth *authhandler.AuthHandler,
	capture *analysishandler.CaptureHandler,
	signals *signalhandler.SignalHandler,
	settings *settingshandler.SettingsHandler,
) *gin.Engine {
	r := gin.Default()

	// 認証不要
	// 導通確認用
	r.GET("/healthz", healthhandler.Health)
	// 新規ユーザー登録
	r.POST("/signup", auth.Signup)
	// ログイン（JWT 発行）
	r.POST("/login", auth.Login)

	// 認証必須のルート
	v1 := r.Group("/v1")
	v1.Use(jwtmw.AuthRequired())
	{
		// キャプチャ分析パイプライン
		v1.POST("/captures/:id/analyze", capture.Analyze)
		v1.GET("/structures", capture.ListStructures)

		// シグナル照会とアラート発火
		v1.GET("/signals", signals.List)
		v1.GET("/signals/:id", signals.Get)
		v1.POST("/signals/:id/alert", signals.Alert)

		// ユーザー設定
		v1.GET("/settings", settings.Get)
		v1.PUT("/settings", settings.Update)
	}

	return r
}
