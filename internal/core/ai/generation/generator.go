package generation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"nutrition-lens/internal/core/ai/cache"
	"nutrition-lens/internal/core/ai/extract"
	"nutrition-lens/internal/core/ai/provider"
	"nutrition-lens/internal/core/ai/retry"
	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

const (
	defaultTimeout     = 20 * time.Second
	defaultConcurrency = 4
	// maxCaloriesPerUnit 單一份量超過此值視為模型輸出不合理
	maxCaloriesPerUnit = 2500
)

var errEmptyOutput = errors.New("empty generation output")

// Request 單一生成請求
type Request struct {
	FoodName    string
	Quantity    int
	WeightGrams int
}

// Generator 未知食物的營養資料生成
type Generator struct {
	text           provider.TextGenerator
	cache          *cache.CacheManager
	policy         retry.Policy
	timeout        time.Duration
	maxConcurrency int
}

// NewGenerator 建立 Generator；text 為 nil 時 Generate 一律回傳 nil
func NewGenerator(text provider.TextGenerator, cm *cache.CacheManager, cfg config.GenerationConfig) *Generator {
	policy := retry.NewPolicy(cfg.MaxAttempts, cfg.BaseDelay)
	policy.Retryable = isRetryable

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	limit := cfg.MaxConcurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	return &Generator{
		text:           text,
		cache:          cm,
		policy:         policy,
		timeout:        timeout,
		maxConcurrency: limit,
	}
}

func isRetryable(err error) bool {
	if errors.Is(err, errEmptyOutput) {
		return true
	}
	if errors.Is(err, common.ErrParse) {
		return false
	}
	return retry.IsRetryable(err)
}

// Generate 生成單一食物每單位的營養資料，失敗時回傳 nil（呼叫端改用分類估算）
func (g *Generator) Generate(ctx context.Context, foodName string, quantity, weightGrams int) *food.GeneratedNutrition {
	if g == nil || g.text == nil {
		return nil
	}
	name := strings.TrimSpace(foodName)
	if name == "" {
		return nil
	}
	if weightGrams <= 0 {
		weightGrams = food.DefaultWeightGrams
	}

	key := fmt.Sprintf("%s|%d", common.NormalizeKey(name), weightGrams)
	if cached, ok := g.fromCache(ctx, key); ok {
		return cached
	}

	prompt := buildPrompt(name, quantity, weightGrams)
	var result *food.GeneratedNutrition
	err := g.policy.Do(ctx, "generate:"+name, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		out, err := g.text.GenerateText(callCtx, prompt)
		if err != nil {
			return err
		}
		switch out.Kind {
		case provider.KindEmpty:
			return errEmptyOutput
		case provider.KindStructuralFailure:
			return fmt.Errorf("%s: %s", g.text.Name(), out.Reason)
		}

		parsed, err := parseGenerated(out.Text)
		if err != nil {
			return err
		}
		result = parsed
		return nil
	})
	if err != nil {
		common.LogWarn("營養生成失敗，改用分類估算",
			zap.String("food", name),
			zap.Int("weight", weightGrams),
			zap.Error(err),
		)
		return nil
	}

	g.toCache(ctx, key, result)
	return result
}

// GenerateAll 並行生成所有請求並等待全部完成；結果與輸入同序，失敗的位置為 nil
func (g *Generator) GenerateAll(ctx context.Context, reqs []Request) []*food.GeneratedNutrition {
	results := make([]*food.GeneratedNutrition, len(reqs))
	if len(reqs) == 0 || g == nil || g.text == nil {
		return results
	}

	var eg errgroup.Group
	eg.SetLimit(g.maxConcurrency)
	for i, r := range reqs {
		eg.Go(func() error {
			results[i] = g.Generate(ctx, r.FoodName, r.Quantity, r.WeightGrams)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

func (g *Generator) fromCache(ctx context.Context, key string) (*food.GeneratedNutrition, bool) {
	if g.cache == nil {
		return nil, false
	}
	raw, err := g.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var gen food.GeneratedNutrition
	if err := common.ParseJSON(raw, &gen); err != nil {
		return nil, false
	}
	return &gen, true
}

func (g *Generator) toCache(ctx context.Context, key string, gen *food.GeneratedNutrition) {
	if g.cache == nil || gen == nil {
		return
	}
	raw, err := common.ToJSON(gen)
	if err != nil {
		return
	}
	if err := g.cache.Set(ctx, key, raw); err != nil {
		common.LogWarn("營養生成快取寫入失敗", zap.Error(err))
	}
}

func buildPrompt(name string, quantity, weightGrams int) string {
	if quantity < 1 {
		quantity = 1
	}
	return fmt.Sprintf(`You are a nutrition database. Give nutrition facts for ONE piece/serving of "%s" weighing about %dg (the plate has %d).
Respond with a single JSON object only, no prose, using exactly these keys:
{"calories": number, "protein": number, "carbs": number, "fat": number, "fiber": number, "sugar": number,
 "sodium": number, "iron": number, "calcium": number, "vitaminC": number,
 "category": string, "healthScore": number, "ingredients": [string], "tips": string}
Units: calories kcal; protein, carbs, fat, fiber, sugar in grams; sodium, iron, calcium, vitaminC in milligrams.
healthScore is 1-10. List at most 6 main ingredients.`, name, weightGrams, quantity)
}

type generatedPayload struct {
	Calories    *float64 `json:"calories"`
	Protein     float64  `json:"protein"`
	Carbs       float64  `json:"carbs"`
	Fat         float64  `json:"fat"`
	Fiber       float64  `json:"fiber"`
	Sugar       float64  `json:"sugar"`
	Sodium      float64  `json:"sodium"`
	Iron        float64  `json:"iron"`
	Calcium     float64  `json:"calcium"`
	VitaminC    float64  `json:"vitaminC"`
	Category    string   `json:"category"`
	HealthScore float64  `json:"healthScore"`
	Ingredients []string `json:"ingredients"`
	Tips        string   `json:"tips"`
}

// parseGenerated 解析並驗證模型輸出
func parseGenerated(raw string) (*food.GeneratedNutrition, error) {
	var p generatedPayload
	if err := extract.ExtractObject(raw, &p); err != nil {
		return nil, err
	}
	if p.Calories == nil {
		return nil, common.ErrParse.Wrap(fmt.Errorf("generated nutrition has no calories"))
	}

	per := food.Nutrition{
		Calories: *p.Calories,
		Protein:  p.Protein,
		Carbs:    p.Carbs,
		Fat:      p.Fat,
		Fiber:    p.Fiber,
		Sugar:    p.Sugar,
		Sodium:   p.Sodium,
		Iron:     p.Iron,
		Calcium:  p.Calcium,
		VitaminC: p.VitaminC,
	}
	if per.Calories <= 0 || per.Calories > maxCaloriesPerUnit || math.IsNaN(per.Calories) {
		return nil, common.ErrParse.Wrap(fmt.Errorf("implausible calories %.1f", per.Calories))
	}

	score := p.HealthScore
	if score <= 0 {
		score = 5
	}
	ingredients := p.Ingredients
	if len(ingredients) > food.MaxIngredients {
		ingredients = ingredients[:food.MaxIngredients]
	}
	return &food.GeneratedNutrition{
		PerUnit:     per.Rounded(),
		Category:    p.Category,
		HealthScore: score,
		Ingredients: ingredients,
		Tips:        p.Tips,
	}, nil
}
