package cascade

import (
	"nutrition-lens/internal/core/food"
)

// FallbackProviderName 本地保底供應者名稱
const FallbackProviderName = "local-fallback"

// fallbackConfidence 保底結果的信心分數
const fallbackConfidence = 0.3

// FallbackProvider 所有外部供應者都失敗時回傳固定的常見套餐，永不失敗
type FallbackProvider struct {
	items []food.DetectedItem
}

// NewFallbackProvider 建立預設的保底供應者（兩片 Chapati、Dal Tadka、Jeera Rice）
func NewFallbackProvider() *FallbackProvider {
	return &FallbackProvider{
		items: []food.DetectedItem{
			{FoodName: "Chapati", VisibleCount: 2},
			{FoodName: "Dal Tadka", VisibleCount: 1},
			{FoodName: "Jeera Rice", VisibleCount: 1},
		},
	}
}

// Name 供應者名稱
func (f *FallbackProvider) Name() string {
	return FallbackProviderName
}

// Result 保底辨識結果
func (f *FallbackProvider) Result() *Result {
	items := make([]food.DetectedItem, len(f.items))
	copy(items, f.items)
	return &Result{
		Items:      items,
		Confidence: fallbackConfidence,
		Provider:   FallbackProviderName,
		Method:     food.MethodFallback,
		Tier:       TierFallback,
		IsEstimate: true,
	}
}
