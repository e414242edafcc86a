// Package dto はsettingsフィーチャーのHTTPトランスポート層のデータ転送オブジェクトを定義します。
package dto

// SettingsReq は設定更新リクエストのボディです。
type SettingsReq struct {
	MinConfidence      float64 `json:"min_confidence_threshold" binding:"required,gte=0,lte=1"`
	RiskReward         float64 `json:"risk_reward_ratio" binding:"required,gt=0"`
	StopFallbackOffset float64 `json:"stop_fallback_offset" binding:"required,gt=0"`
}

// SettingsResp は設定のレスポンス表現です。
type SettingsResp struct {
	MinConfidence      float64 `json:"min_confidence_threshold"`
	RiskReward         float64 `json:"risk_reward_ratio"`
	StopFallbackOffset float64 `json:"stop_fallback_offset"`
}
