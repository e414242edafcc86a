// Package entity はsettingsフィーチャーのドメインモデルを定義します。
package entity

// Settings はユーザーごとのシグナル判定設定です。
// 判定エンジンは評価のたびにこの値を読み込み、値渡しで受け取ります。
type Settings struct {
	UserID             uint    // 所有ユーザー
	MinConfidence      float64 // シグナル発火に必要な最低信頼度（既定 0.75）
	RiskReward         float64 // リスクリワード比（既定 5.0）
	StopFallbackOffset float64 // ストップ構造不在時の固定オフセット
}
