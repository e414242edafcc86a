package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"chart_backend/internal/app/di"
	"chart_backend/internal/app/router"
	analysisadapters "chart_backend/internal/feature/analysis/adapters"
	analysishandler "chart_backend/internal/feature/analysis/transport/handler"
	analysisusecase "chart_backend/internal/feature/analysis/usecase"
	authadapters "chart_backend/internal/feature/auth/adapters"
	authhandler "chart_backend/internal/feature/auth/transport/handler"
	authusecase "chart_backend/internal/feature/auth/usecase"
	settingsadapters "chart_backend/internal/feature/settings/adapters"
	settingshandler "chart_backend/internal/feature/settings/transport/handler"
	settingsusecase "chart_backend/internal/feature/settings/usecase"
	signalhandler "chart_backend/internal/feature/signals/transport/handler"
	signalsusecase "chart_backend/internal/feature/signals/usecase"
	infradb "chart_backend/internal/platform/db"
	jwtmw "chart_backend/internal/platform/jwt"
	"chart_backend/internal/platform/notify"
	infraredis "chart_backend/internal/platform/redis"
)

const jwtExpiration = 24 * time.Hour

func main() {
	// .envはローカル開発用。無くてもエラーにしない。
	_ = godotenv.Load()

	ctx := context.Background()

	// db
	db := infradb.OpenDB()

	// Redis
	var rdb *redisv9.Client
	if tmp, err := infraredis.NewRedisClient(); err != nil {
		log.Println("[WARN] Redis unavailable. Running without cache and realtime notifications.")
		rdb = nil
	} else {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				log.Println("[ERROR] Failed to close Redis client:", err)
			}
		}()
	}

	// 外部サービスクライアント
	analyzer, err := di.NewChartAnalyzer(ctx)
	if err != nil {
		log.Fatalf("failed to create chart analyzer: %v", err)
	}
	overlay := di.NewOverlayMapper(ctx)

	// Repository
	userRepo := authadapters.NewUserRepository(db)
	structureRepo := analysisadapters.NewStructureRepository(db)
	settingsRepo := settingsadapters.NewSettingsRepository(db)
	signalRepo, alertMarker := di.NewSignalRepository(db, rdb)
	publisher := di.NewSignalPublisher(rdb)

	// Usecase
	jwtGen := jwtmw.NewGenerator(os.Getenv(jwtmw.EnvKeyJWTSecret), jwtExpiration)
	authUC := authusecase.NewAuthUsecase(userRepo, jwtGen)
	settingsUC := settingsusecase.NewSettingsUsecase(settingsRepo)

	engine := signalsusecase.NewDecisionEngine()
	signalService := signalsusecase.NewSignalService(engine, settingsUC, signalRepo, publisher)
	signalsUC := signalsusecase.NewSignalsUsecase(signalRepo)
	dispatcher := signalsusecase.NewAlertDispatcher(alertMarker, notify.LogNotifier{})

	aggregator := analysisusecase.NewBundleAggregator()
	analysisUC := analysisusecase.NewAnalysisUsecase(
		analyzer, overlay, aggregator, structureRepo, signalService, di.NewVisionRateLimiter())

	// Handler
	authH := authhandler.NewAuthHandler(authUC)
	captureH := analysishandler.NewCaptureHandler(analysisUC)
	signalH := signalhandler.NewSignalHandler(signalsUC, dispatcher)
	settingsH := settingshandler.NewSettingsHandler(settingsUC)

	// ルータ生成
	r := router.NewRouter(authH, captureH, signalH, settingsH)

	// JWT_SECRETチェック（開発中の注意喚起）
	if os.Getenv(jwtmw.EnvKeyJWTSecret) == "" {
		slog.Warn("JWT_SECRET is not set. Set a strong secret in production.")
	}

	if err := r.Run(":8080"); err != nil {
		log.Fatal(err)
	}
}
