package usecase

import (
	"sync"

	"chart_backend/internal/feature/analysis/domain"
	"chart_backend/internal/feature/analysis/domain/entity"
)

// captureCycle は1つのキャプチャIDに対する収集中の分析群です。
type captureCycle struct {
	analyses map[entity.Timeframe]entity.TimeframeAnalysis
	sealed   bool
}

// BundleAggregator はキャプチャIDごとに時間足の分析を収集し、
// 4つ揃ったところでバンドルとして払い出します。
// 複数のキャプチャサイクルが並行して進んでも互いに干渉しません。
type BundleAggregator struct {
	mu     sync.Mutex
	cycles map[string]*captureCycle
}

// NewBundleAggregator はBundleAggregatorの新しいインスタンスを生成します。
func NewBundleAggregator() *BundleAggregator {
	return &BundleAggregator{cycles: map[string]*captureCycle{}}
}

// Put はキャプチャcaptureIDに分析を登録します。バンドル払い出し前であれば
// 同じ時間足の再分析による上書きを許容します。払い出し済みのサイクルへの
// 登録はdomain.ErrCycleSealedで拒否されます（新しいキャプチャIDが必要）。
func (a *BundleAggregator) Put(captureID string, analysis entity.TimeframeAnalysis) error {
	if !analysis.Timeframe.IsValid() {
		return domain.ErrUnknownTimeframe
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	cycle, ok := a.cycles[captureID]
	if !ok {
		cycle = &captureCycle{analyses: map[entity.Timeframe]entity.TimeframeAnalysis{}}
		a.cycles[captureID] = cycle
	}
	if cycle.sealed {
		return domain.ErrCycleSealed
	}
	cycle.analyses[analysis.Timeframe] = analysis
	return nil
}

// IsComplete は4つの時間足すべての分析が揃っているかどうかを返します。
func (a *BundleAggregator) IsComplete(captureID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	cycle, ok := a.cycles[captureID]
	if !ok {
		return false
	}
	return len(cycle.analyses) == len(entity.RequiredTimeframes)
}

// ToBundle は完成したバンドルを払い出し、サイクルを封印します。
// いずれかの時間足が欠けている場合はdomain.ErrIncompleteBundleを返します。
// 払い出しは1サイクルにつき1回だけで、2回目以降はdomain.ErrCycleSealedに
// なります。並行する完了経路のうち1つだけがシグナル評価に進めます。
func (a *BundleAggregator) ToBundle(captureID string) (entity.TimeframeBundle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cycle, ok := a.cycles[captureID]
	if !ok {
		return entity.TimeframeBundle{}, domain.ErrIncompleteBundle
	}
	if cycle.sealed {
		return entity.TimeframeBundle{}, domain.ErrCycleSealed
	}
	for _, tf := range entity.RequiredTimeframes {
		if _, ok := cycle.analyses[tf]; !ok {
			return entity.TimeframeBundle{}, domain.ErrIncompleteBundle
		}
	}

	// 払い出し後の更新からバンドルを守るためコピーを返す
	analyses := make(map[entity.Timeframe]entity.TimeframeAnalysis, len(cycle.analyses))
	for tf, an := range cycle.analyses {
		analyses[tf] = an
	}
	cycle.sealed = true

	return entity.TimeframeBundle{CaptureID: captureID, Analyses: analyses}, nil
}

// Discard は放棄されたサイクルを破棄します。払い出し済みかどうかに
// かかわらず呼び出せます。
func (a *BundleAggregator) Discard(captureID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cycles, captureID)
}
