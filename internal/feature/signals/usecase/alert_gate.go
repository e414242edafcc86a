package usecase

import (
	"context"
	"fmt"

	"chart_backend/internal/feature/signals/domain/entity"
)

// AlertMarker はalert_sentフラグのfalse→true遷移を原子的に行う
// 永続化層の抽象です。遷移を実際に行った場合のみtrueを返します。
// Goの慣例に従い、インターフェースは利用者（usecase）側で定義します。
type AlertMarker interface {
	// MarkAlerted はシグナルのalert_sentをcompare-and-setで立てます。
	// この呼び出しが遷移を行った場合はtrue、既に立っていた場合はfalseを返します。
	MarkAlerted(ctx context.Context, signalID string) (bool, error)
}

// Notifier は通知の副作用（サウンド、トースト、システム通知など）の抽象です。
type Notifier interface {
	Notify(ctx context.Context, signal entity.TradingSignal) error
}

// AlertDispatcher は「このシグナルは既に通知済みか」の唯一の判定者です。
// リアルタイム購読とポーリングが同じ新規シグナルを同時に観測しても、
// MarkAlertedの原子性により通知はちょうど1回だけ発火します。
type AlertDispatcher struct {
	marker   AlertMarker
	notifier Notifier
}

// NewAlertDispatcher はAlertDispatcherの新しいインスタンスを生成します。
func NewAlertDispatcher(marker AlertMarker, notifier Notifier) *AlertDispatcher {
	return &AlertDispatcher{marker: marker, notifier: notifier}
}

// Dispatch はシグナルの通知を試みます。戻り値は「この呼び出しが通知を
// 発火させたかどうか」です。既に通知済みの場合は(false, nil)を返し、
// 副作用は一切発生しません。
func (d *AlertDispatcher) Dispatch(ctx context.Context, signal entity.TradingSignal) (bool, error) {
	first, err := d.marker.MarkAlerted(ctx, signal.ID)
	if err != nil {
		return false, fmt.Errorf("mark alerted: %w", err)
	}
	if !first {
		// 別経路が先に通知済み。at-least-once配送の重複はここで吸収される。
		return false, nil
	}
	if err := d.notifier.Notify(ctx, signal); err != nil {
		// フラグは既に立っているため再通知はしない。通知失敗はロギングに委ねる。
		return true, fmt.Errorf("notify: %w", err)
	}
	return true, nil
}
