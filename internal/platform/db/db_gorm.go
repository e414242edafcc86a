// Package db はGORMによるデータベース接続の初期化を提供します。
package db

import (
	"fmt"
	"log"
	"os"
	"time"

	gpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	analysisadapters "chart_backend/internal/feature/analysis/adapters"
	authentity "chart_backend/internal/feature/auth/domain/entity"
	settingsadapters "chart_backend/internal/feature/settings/adapters"
	signaladapters "chart_backend/internal/feature/signals/adapters"
)

// Config はデータベース接続設定です。
type Config struct {
	User         string
	Password     string
	Name         string
	Host         string
	Port         string
	InstanceName string // Cloud SQL Unixソケット接続用（設定時はHost/Portより優先）
}

// LoadConfig は環境変数から接続設定を読み込みます。
func LoadConfig() Config {
	return Config{
		User:         os.Getenv("DB_USER"),
		Password:     os.Getenv("DB_PASSWORD"),
		Name:         os.Getenv("DB_NAME"),
		Host:         os.Getenv("DB_HOST"),
		Port:         os.Getenv("DB_PORT"),
		InstanceName: os.Getenv("INSTANCE_CONNECTION_NAME"),
	}
}

// BuildDSN は設定からPostgreSQLのDSN文字列を組み立てます。
func BuildDSN(cfg Config) string {
	if cfg.InstanceName != "" {
		return fmt.Sprintf("host=/cloudsql/%s user=%s password=%s dbname=%s sslmode=disable",
			cfg.InstanceName, cfg.User, cfg.Password, cfg.Name)
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name)
}

// OpenDB は接続が確立できるまでリトライしながらデータベースを開きます。
// RUN_MIGRATIONS=true の場合はマイグレーションも実行します。
func OpenDB() *gorm.DB {
	dsn := BuildDSN(LoadConfig())

	var (
		db  *gorm.DB
		err error
	)

	deadline := time.Now().Add(60 * time.Second)
	for {
		db, err = gorm.Open(gpostgres.Open(dsn), &gorm.Config{})
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			log.Fatalf("DB connect failed after 60s: %v", err)
		}
		log.Printf("DB connect failed, retrying...: %v", err)
		time.Sleep(3 * time.Second)
	}

	if os.Getenv("RUN_MIGRATIONS") == "true" {
		if err := Migrate(db); err != nil {
			log.Fatalf("failed to migrate: %v", err)
		}
	}

	return db
}

// Migrate は全テーブルのスキーマを適用します。
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&authentity.User{},
		&analysisadapters.StructureModel{},
		&signaladapters.SignalModel{},
		&settingsadapters.SettingsModel{},
	)
}
