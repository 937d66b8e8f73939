package labels

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nutrition-lens/internal/core/ai/extract"
	"nutrition-lens/internal/core/ai/provider"
	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/pkg/common"
)

// MaxItems 標籤轉換為辨識項目的上限
const MaxItems = 3

// Label 影像標籤與信心分數（0~1）
type Label struct {
	Name  string
	Score float64
}

// Detector 標籤偵測後端
type Detector interface {
	DetectLabels(ctx context.Context, image []byte) ([]Label, error)
	Close() error
}

// 過於籠統、無法對應到具體食物的標籤
var genericLabels = map[string]struct{}{
	"food":               {},
	"dish":               {},
	"cuisine":            {},
	"ingredient":         {},
	"recipe":             {},
	"tableware":          {},
	"plate":              {},
	"bowl":               {},
	"produce":            {},
	"meal":               {},
	"staple food":        {},
	"fast food":          {},
	"junk food":          {},
	"comfort food":       {},
	"finger food":        {},
	"natural foods":      {},
	"whole food":         {},
	"vegetarian food":    {},
	"indian cuisine":     {},
	"superfood":          {},
	"baked goods":        {},
	"dishware":           {},
	"serveware":          {},
	"cooking":            {},
	"lunch":              {},
	"dinner":             {},
	"breakfast":          {},
	"brunch":             {},
	"table":              {},
	"kitchen utensil":    {},
	"cutlery":            {},
	"still life":         {},
	"garnish":            {},
	"plant":              {},
	"animal product":     {},
	"meat":               {},
	"vegetable":          {},
	"fruit":              {},
	"food group":         {},
	"side dish":          {},
	"condiment":          {},
	"delicacy":           {},
	"dessert":            {},
	"snack":              {},
	"hors d'oeuvre":      {},
	"american food":      {},
	"mediterranean food": {},
}

// Matcher 判斷標籤是否為可辨識的食物
type Matcher func(label string) bool

// CatalogMatcher 資料表可解析或屬於解析器字彙的標籤才視為食物
func CatalogMatcher(catalog *food.Catalog, x *extract.Extractor) Matcher {
	if catalog == nil {
		catalog = food.DefaultCatalog()
	}
	if x == nil {
		x = extract.New(catalog)
	}
	return func(label string) bool {
		if !catalog.Resolve(label).NeedsGeneration {
			return true
		}
		return x.Mentions(label)
	}
}

// Filter 移除籠統與非食物標籤並去重，篩選後最多保留 MaxItems 個
func Filter(in []Label, isFood Matcher) []Label {
	out := make([]Label, 0, MaxItems)
	seen := make(map[string]struct{}, len(in))
	for _, l := range in {
		key := strings.ToLower(strings.TrimSpace(l.Name))
		if key == "" {
			continue
		}
		if _, ok := genericLabels[key]; ok {
			continue
		}
		if isFood != nil && !isFood(l.Name) {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, l)
		if len(out) == MaxItems {
			break
		}
	}
	return out
}

type renderedItem struct {
	FoodName     string `json:"foodName"`
	VisibleCount int    `json:"visibleCount"`
}

type renderedPayload struct {
	DetectedItems []renderedItem `json:"detectedItems"`
	Confidence    float64        `json:"confidence"`
}

// Render 將標籤輸出為與模型相同格式的 JSON 文字，交由同一個解析器處理
func Render(in []Label) (string, error) {
	payload := renderedPayload{DetectedItems: make([]renderedItem, 0, len(in))}
	top := 0.0
	for _, l := range in {
		payload.DetectedItems = append(payload.DetectedItems, renderedItem{FoodName: l.Name, VisibleCount: 1})
		if l.Score > top {
			top = l.Score
		}
	}
	// 標籤偵測無法計數，信心分數壓低
	payload.Confidence = top * 0.7
	if payload.Confidence <= 0 {
		payload.Confidence = 0.5
	}
	return common.ToJSON(payload)
}

// Provider 以標籤偵測實作 provider.Provider
type Provider struct {
	name     string
	detector Detector
	timeout  time.Duration
	isFood   Matcher
}

// NewProvider 以偵測後端建立供應者；isFood 為 nil 時使用預設資料表
func NewProvider(name string, detector Detector, timeout time.Duration, isFood Matcher) *Provider {
	if isFood == nil {
		isFood = CatalogMatcher(nil, nil)
	}
	return &Provider{name: name, detector: detector, timeout: timeout, isFood: isFood}
}

// Name 實作 provider.Provider
func (p *Provider) Name() string {
	return p.name
}

// Method 標籤偵測的辨識方法
func (p *Provider) Method() food.Method {
	return food.MethodLabelDetection
}

// Recognize 實作 provider.Provider；標籤偵測忽略 Prompt
func (p *Provider) Recognize(ctx context.Context, req provider.Request) (provider.Outcome, error) {
	data, err := base64.StdEncoding.DecodeString(req.ImageBase64)
	if err != nil {
		return provider.Outcome{}, common.ErrImageEncoding.Wrap(err)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	found, err := p.detector.DetectLabels(ctx, data)
	common.LogAICall(p.name, "label-detection", time.Since(start), err)
	if err != nil {
		return provider.Outcome{}, fmt.Errorf("%s label detection: %w", p.name, err)
	}

	kept := Filter(found, p.isFood)
	common.LogDebug("標籤偵測結果",
		zap.String("provider", p.name),
		zap.Int("labels", len(found)),
		zap.Int("kept", len(kept)),
	)
	if len(kept) == 0 {
		return provider.Empty(), nil
	}

	text, err := Render(kept)
	if err != nil {
		return provider.StructuralFailure(err.Error()), nil
	}
	return provider.Success(text), nil
}

// Close 關閉偵測後端
func (p *Provider) Close() error {
	return p.detector.Close()
}
