package recognition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"nutrition-lens/internal/core/ai/cascade"
	"nutrition-lens/internal/core/ai/generation"
	"nutrition-lens/internal/core/ai/provider"
	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/core/image"
	"nutrition-lens/internal/pkg/common"
)

// maxHintLength 使用者提示的長度上限
const maxHintLength = 200

// Preprocessor 圖片前處理
type Preprocessor interface {
	Prepare(ctx context.Context, ref string) (*image.Payload, error)
}

// Recognizer 供應者層級辨識，永遠回傳結果
type Recognizer interface {
	Recognize(ctx context.Context, req provider.Request) *cascade.Result
	Providers() []string
}

// NutritionGenerator 未知食物的營養生成，失敗時回傳 nil
type NutritionGenerator interface {
	Generate(ctx context.Context, foodName string, quantity, weightGrams int) *food.GeneratedNutrition
	GenerateAll(ctx context.Context, reqs []generation.Request) []*food.GeneratedNutrition
}

// ProductLookup 條碼產品查詢
type ProductLookup interface {
	Lookup(ctx context.Context, code string) (*food.PackagedProduct, error)
}

// Admission 限制同時進行的照片辨識
type Admission interface {
	Acquire(ctx context.Context) (func(), error)
}

// Service 食物辨識服務
type Service struct {
	catalog    *food.Catalog
	images     Preprocessor
	recognizer Recognizer
	generator  NutritionGenerator
	barcodes   ProductLookup
	admission  Admission
}

// Option 辨識服務選項
type Option func(*Service)

// WithAdmission 照片辨識前先取得處理名額
func WithAdmission(a Admission) Option {
	return func(s *Service) { s.admission = a }
}

// NewService 創建辨識服務；generator 與 barcodes 可為 nil
func NewService(catalog *food.Catalog, images Preprocessor, recognizer Recognizer, generator NutritionGenerator, barcodes ProductLookup, opts ...Option) *Service {
	if catalog == nil {
		catalog = food.DefaultCatalog()
	}
	s := &Service{
		catalog:    catalog,
		images:     images,
		recognizer: recognizer,
		generator:  generator,
		barcodes:   barcodes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Providers 依優先順序列出辨識供應者
func (s *Service) Providers() []string {
	return s.recognizer.Providers()
}

// RecognizeFood 辨識照片中的食物並產生營養報告
// 只有圖片無法處理時會回傳錯誤，供應者全部失敗時回傳保底估算
func (s *Service) RecognizeFood(ctx context.Context, imageRef, hint string) (*food.Report, error) {
	start := time.Now()
	hint = cleanHint(hint)

	if s.admission != nil {
		release, err := s.admission.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	payload, err := s.images.Prepare(ctx, imageRef)
	if err != nil {
		return nil, err
	}

	result := s.recognizer.Recognize(ctx, provider.Request{
		ImageBase64: payload.Base64,
		MIMEType:    payload.MIMEType,
		Prompt:      BuildPrompt(hint),
	})

	items := s.resolveItems(ctx, result.Items)
	report := food.Aggregate(items, result.Confidence, hint != "")
	report.ID = common.GenerateUUID()
	report.Method = result.Method
	report.Provider = result.Provider
	if result.Model != "" {
		report.Provider += "/" + result.Model
	}
	report.IsEstimate = result.IsEstimate

	common.LogInfo("辨識完成",
		zap.String("id", report.ID),
		zap.String("food", report.FoodName),
		zap.Int("items", report.ItemCount),
		zap.String("method", string(report.Method)),
		zap.String("provider", report.Provider),
		zap.Bool("ai_enhanced", report.IsAIEnhanced),
		zap.Duration("duration", time.Since(start)),
	)
	return &report, nil
}

// RecognizeBarcode 以條碼查詢包裝食品
func (s *Service) RecognizeBarcode(ctx context.Context, code string) (*food.Report, error) {
	if s.barcodes == nil {
		return nil, common.ErrBarcodeUnavailable.Wrap(fmt.Errorf("barcode lookup is not configured"))
	}
	product, err := s.barcodes.Lookup(ctx, code)
	if err != nil {
		return nil, err
	}

	report := food.FormatBarcodeReport(*product)
	report.ID = common.GenerateUUID()
	report.Provider = "openfoodfacts"

	common.LogInfo("條碼查詢完成",
		zap.String("id", report.ID),
		zap.String("barcode", report.Barcode),
		zap.String("food", report.FoodName),
	)
	return &report, nil
}

// LookupNutrition 查詢單一食物的營養資料：資料表、AI 生成、分類估算
func (s *Service) LookupNutrition(ctx context.Context, foodName string, quantity, weightGrams int) (*food.ResolvedItem, error) {
	name := strings.TrimSpace(foodName)
	if name == "" {
		return nil, common.ErrInvalidRequest.Wrap(fmt.Errorf("food name is required"))
	}

	res := s.catalog.Resolve(name)
	if !res.NeedsGeneration {
		item := food.ItemFromCatalog(*res.Entry, quantity)
		return &item, nil
	}

	if weightGrams <= 0 {
		weightGrams = res.EstimatedWeight
	}
	var gen *food.GeneratedNutrition
	if s.generator != nil {
		gen = s.generator.Generate(ctx, res.DisplayName, quantity, weightGrams)
	}
	item := itemFor(res.DisplayName, quantity, weightGrams, gen)
	return &item, nil
}

type pending struct {
	index  int
	name   string
	count  int
	weight int
}

// resolveItems 資料表命中的項目直接建立；其餘並行生成，全部完成後才回傳
func (s *Service) resolveItems(ctx context.Context, detected []food.DetectedItem) []food.ResolvedItem {
	items := make([]food.ResolvedItem, len(detected))
	var unresolved []pending

	for i, d := range detected {
		res := s.catalog.Resolve(d.FoodName)
		if !res.NeedsGeneration {
			items[i] = food.ItemFromCatalog(*res.Entry, d.VisibleCount)
			continue
		}
		weight := res.EstimatedWeight
		if strings.TrimSpace(d.PerUnitWeight) != "" {
			weight = food.ParseWeightGrams(d.PerUnitWeight)
		}
		unresolved = append(unresolved, pending{index: i, name: res.DisplayName, count: d.VisibleCount, weight: weight})
	}
	if len(unresolved) == 0 {
		return items
	}

	var generated []*food.GeneratedNutrition
	if s.generator != nil {
		reqs := make([]generation.Request, len(unresolved))
		for i, p := range unresolved {
			reqs[i] = generation.Request{FoodName: p.name, Quantity: p.count, WeightGrams: p.weight}
		}
		generated = s.generator.GenerateAll(ctx, reqs)
	}

	for i, p := range unresolved {
		var gen *food.GeneratedNutrition
		if i < len(generated) {
			gen = generated[i]
		}
		items[p.index] = itemFor(p.name, p.count, p.weight, gen)
	}
	return items
}

func itemFor(name string, count, weight int, gen *food.GeneratedNutrition) food.ResolvedItem {
	if gen != nil {
		return food.ItemFromGenerated(name, count, weight, *gen)
	}
	return food.ItemFromEstimate(name, count, weight, food.EstimateNutrition(name))
}

func cleanHint(hint string) string {
	hint = strings.Join(strings.Fields(hint), " ")
	if r := []rune(hint); len(r) > maxHintLength {
		hint = string(r[:maxHintLength])
	}
	return hint
}

// BuildPrompt 辨識指令，有提示時附加在最後
func BuildPrompt(hint string) string {
	var b strings.Builder
	b.WriteString(`Identify every distinct food item visible in this photo and count the pieces of each.
Respond with a single JSON object only, no prose:
{"detectedItems": [{"foodName": string, "visibleCount": integer, "estimatedWeightPerPiece": "<grams>g"}], "confidence": number}
Rules:
- Use the common dish name (for example "Chapati", "Dal Tadka", "Masala Dosa"), not ingredients.
- visibleCount is the number of separate pieces or servings you can see (1 for a bowl of curry or rice).
- estimatedWeightPerPiece is the weight of ONE piece or serving in grams.
- confidence is between 0 and 1.
- If no food is visible, return {"detectedItems": [], "confidence": 0}.`)
	if hint != "" {
		fmt.Fprintf(&b, "\nThe user says this meal contains: %q. Use it to name the items, but only count what is visible.", hint)
	}
	return b.String()
}
