// Package adapters はsignalsフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"

	analysisentity "chart_backend/internal/feature/analysis/domain/entity"
	"chart_backend/internal/feature/signals/domain"
	"chart_backend/internal/feature/signals/domain/entity"
	"chart_backend/internal/feature/signals/usecase"
)

// signalPostgres はSignalRepositoryとAlertMarkerのGORM実装です。
type signalPostgres struct {
	db *gorm.DB
}

var (
	_ usecase.SignalRepository = (*signalPostgres)(nil)
	_ usecase.AlertMarker      = (*signalPostgres)(nil)
)

// NewSignalRepository は指定されたgorm.DB接続でsignalPostgresの新しいインスタンスを生成します。
func NewSignalRepository(db *gorm.DB) *signalPostgres {
	return &signalPostgres{db: db}
}

// SignalModel はtrading_signalsテーブルの行を表します。
type SignalModel struct {
	ID         string    `gorm:"primaryKey;size:36"`
	UserID     uint      `gorm:"not null;index:signal_user_created,priority:1"`
	CaptureID  string    `gorm:"size:36;not null;index"`
	Type       string    `gorm:"size:8;not null"`
	EntryPrice float64   `gorm:"not null"`
	StopLoss   float64   `gorm:"not null"`
	TakeProfit float64   `gorm:"not null"`
	RiskReward float64   `gorm:"not null"`
	Confidence float64   `gorm:"not null"`
	Rationale  string    `gorm:"type:text"`
	Status     string    `gorm:"size:16;not null;default:pending;index"`
	AlertSent  bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time `gorm:"not null;index:signal_user_created,priority:2"`
}

// TableName はGORMが使用するテーブル名を返します。
func (SignalModel) TableName() string {
	return "trading_signals"
}

func toSignalModel(e *entity.TradingSignal) (SignalModel, error) {
	rationale, err := json.Marshal(e.Rationale)
	if err != nil {
		return SignalModel{}, err
	}
	return SignalModel{
		ID:         e.ID,
		UserID:     e.UserID,
		CaptureID:  e.CaptureID,
		Type:       string(e.Type),
		EntryPrice: e.EntryPrice,
		StopLoss:   e.StopLoss,
		TakeProfit: e.TakeProfit,
		RiskReward: e.RiskReward,
		Confidence: e.Confidence,
		Rationale:  string(rationale),
		Status:     string(e.Status),
		AlertSent:  e.AlertSent,
		CreatedAt:  e.CreatedAt,
	}, nil
}

func fromSignalModel(m SignalModel) entity.TradingSignal {
	var rationale map[analysisentity.Timeframe]string
	// 壊れたJSONは空の根拠として扱う（読み取りをエラーにしない）
	_ = json.Unmarshal([]byte(m.Rationale), &rationale)
	return entity.TradingSignal{
		ID:         m.ID,
		UserID:     m.UserID,
		CaptureID:  m.CaptureID,
		Type:       entity.SignalType(m.Type),
		EntryPrice: m.EntryPrice,
		StopLoss:   m.StopLoss,
		TakeProfit: m.TakeProfit,
		RiskReward: m.RiskReward,
		Confidence: m.Confidence,
		Rationale:  rationale,
		Status:     entity.SignalStatus(m.Status),
		AlertSent:  m.AlertSent,
		CreatedAt:  m.CreatedAt,
	}
}

// Save はシグナルを追記します。ストアは追記専用です。
func (r *signalPostgres) Save(ctx context.Context, signal *entity.TradingSignal) error {
	m, err := toSignalModel(signal)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&m).Error
}

// FindByID はユーザー所有のシグナルをIDで取得します。
// 存在しない場合はdomain.ErrSignalNotFoundを返します。
func (r *signalPostgres) FindByID(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error) {
	var m SignalModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSignalNotFound
		}
		return nil, err
	}
	e := fromSignalModel(m)
	return &e, nil
}

// List はユーザーのシグナルを作成時刻の降順で検索します。
func (r *signalPostgres) List(ctx context.Context, userID uint, query usecase.SignalQuery) ([]entity.TradingSignal, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if query.Status != "" {
		q = q.Where("status = ?", string(query.Status))
	}
	if query.Since > 0 {
		q = q.Where("created_at >= ?", time.Unix(query.Since, 0))
	}
	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var rows []SignalModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.TradingSignal, 0, len(rows))
	for _, m := range rows {
		out = append(out, fromSignalModel(m))
	}
	return out, nil
}

// MarkAlerted はalert_sentをcompare-and-setで立てます。
// WHERE句でalert_sent = falseに限定したUPDATEの影響行数が原子性の根拠で、
// 並行する通知経路のうちちょうど1つだけがtrueを受け取ります。
func (r *signalPostgres) MarkAlerted(ctx context.Context, signalID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&SignalModel{}).
		Where("id = ? AND alert_sent = ?", signalID, false).
		Update("alert_sent", true)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// 遷移できなかった理由を区別する: 既通知か、そもそも存在しないか
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&SignalModel{}).
		Where("id = ?", signalID).
		Count(&count).Error; err != nil {
		return false, err
	}
	if count == 0 {
		return false, domain.ErrSignalNotFound
	}
	return false, nil
}
