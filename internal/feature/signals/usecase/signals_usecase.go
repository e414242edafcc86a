package usecase

import (
	"context"

	"chart_backend/internal/feature/signals/domain/entity"
)

const (
	// DefaultListLimit はシグナル一覧のデフォルト返却件数です。
	DefaultListLimit = 50
	// MaxListLimit はシグナル一覧の最大返却件数です。
	MaxListLimit = 500
)

// SignalQuery はシグナル検索の絞り込み条件です。ゼロ値のフィールドは無視されます。
type SignalQuery struct {
	Status entity.SignalStatus // 状態での絞り込み
	Since  int64               // この時刻（unix秒）以降に生成されたもの
	Limit  int                 // 返却件数の上限
}

// SignalRepository はトレーディングシグナルの永続化層を抽象化します。
// ストアは追記専用で、更新はalert_sentのCAS遷移のみです。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type SignalRepository interface {
	// Save はシグナルを永続化します。
	Save(ctx context.Context, signal *entity.TradingSignal) error
	// FindByID はIDでシグナルを取得します。
	FindByID(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error)
	// List はユーザーのシグナルを新しい順に検索します。
	List(ctx context.Context, userID uint, q SignalQuery) ([]entity.TradingSignal, error)
}

// signalsUsecase はシグナル照会のユースケースを定義します。
type signalsUsecase struct {
	signals SignalRepository
}

// NewSignalsUsecase はsignalsUsecaseの新しいインスタンスを生成します。
func NewSignalsUsecase(signals SignalRepository) *signalsUsecase {
	return &signalsUsecase{signals: signals}
}

// ListSignals はユーザーのシグナルを新しい順に返します。
func (u *signalsUsecase) ListSignals(ctx context.Context, userID uint, q SignalQuery) ([]entity.TradingSignal, error) {
	if q.Limit <= 0 || q.Limit > MaxListLimit {
		q.Limit = DefaultListLimit
	}
	return u.signals.List(ctx, userID, q)
}

// GetSignal はIDでシグナルを1件取得します。
func (u *signalsUsecase) GetSignal(ctx context.Context, userID uint, id string) (*entity.TradingSignal, error) {
	return u.signals.FindByID(ctx, userID, id)
}
