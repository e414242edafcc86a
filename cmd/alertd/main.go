// alertd はシグナル変更通知チャネルを購読し、Alert Dispatch Gate経由で
// 通知を発火させる常駐ワーカーです。配送はat-least-onceを想定しており、
// 同じシグナルを複数回受け取ってもゲートの原子性により通知は1回だけです。
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	signaladapters "chart_backend/internal/feature/signals/adapters"
	signalsusecase "chart_backend/internal/feature/signals/usecase"
	infradb "chart_backend/internal/platform/db"
	"chart_backend/internal/platform/notify"
	infraredis "chart_backend/internal/platform/redis"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db := infradb.OpenDB()

	rdb, err := infraredis.NewRedisClient()
	if err != nil {
		log.Fatalf("alertd requires Redis for the notification channel: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Println("[ERROR] Failed to close Redis client:", err)
		}
	}()

	signalRepo := signaladapters.NewSignalRepository(db)
	dispatcher := signalsusecase.NewAlertDispatcher(signalRepo, notify.LogNotifier{})

	channel := notify.NewRedisSignalChannel(rdb, notify.DefaultChannel)
	signals, err := channel.Subscribe(ctx)
	if err != nil {
		log.Fatalf("failed to subscribe to signal channel: %v", err)
	}

	slog.Info("alertd started", "channel", notify.DefaultChannel)
	for sig := range signals {
		alerted, err := dispatcher.Dispatch(ctx, sig)
		if err != nil {
			slog.Error("alert dispatch failed", "signal_id", sig.ID, "error", err)
			continue
		}
		if !alerted {
			// ポーリング経路または別ワーカーが先に通知済み
			slog.Debug("signal already alerted", "signal_id", sig.ID)
		}
	}
	slog.Info("alertd stopped")
}
