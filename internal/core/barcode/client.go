package barcode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"nutrition-lens/internal/core/ai/retry"
	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

const (
	defaultBaseURL = "https://world.openfoodfacts.org"
	maxIngredients = 8
	productFields  = "code,product_name,product_name_en,generic_name,brands,serving_size,nutriments,ingredients_text,ingredients_text_en,labels_tags,ingredients_analysis_tags"
)

// ProductCache 產品快取
type ProductCache interface {
	GetProduct(ctx context.Context, code string) (*food.PackagedProduct, error)
	SetProduct(ctx context.Context, p *food.PackagedProduct) error
}

// Client Open Food Facts 產品查詢
type Client struct {
	client *resty.Client
	cache  ProductCache
	policy retry.Policy
}

// NewClient 創建條碼查詢客戶端，cache 可為 nil
func NewClient(cfg *config.Config, cache ProductCache) *Client {
	baseURL := cfg.Barcode.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Barcode.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "nutrition-lens/"+cfg.App.Version)

	return &Client{
		client: client,
		cache:  cache,
		policy: retry.NewPolicy(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelay),
	}
}

// ValidateCode 條碼需為 8 到 14 位數字
func ValidateCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) < 8 || len(code) > 14 {
		return "", common.ErrInvalidBarcode.Wrap(fmt.Errorf("barcode must have 8-14 digits, got %q", code))
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return "", common.ErrInvalidBarcode.Wrap(fmt.Errorf("barcode must be numeric, got %q", code))
		}
	}
	return code, nil
}

// Lookup 查詢產品；找不到時回傳 ErrBarcodeNotFound（不重試）
func (c *Client) Lookup(ctx context.Context, code string) (*food.PackagedProduct, error) {
	code, err := ValidateCode(code)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if p, err := c.cache.GetProduct(ctx, code); err == nil && p != nil {
			return p, nil
		}
	}

	var product *food.PackagedProduct
	err = c.policy.Do(ctx, "barcode:"+code, func(ctx context.Context, attempt int) error {
		p, err := c.fetch(ctx, code)
		if err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrBarcodeNotFound) {
			return nil, err
		}
		common.LogWarn("條碼查詢失敗", zap.String("barcode", code), zap.Error(err))
		return nil, common.ErrBarcodeUnavailable.Wrap(err)
	}

	if c.cache != nil {
		if err := c.cache.SetProduct(ctx, product); err != nil {
			common.LogDebug("條碼快取寫入失敗", zap.Error(err))
		}
	}
	return product, nil
}

type offResponse struct {
	Status        int         `json:"status"`
	StatusVerbose string      `json:"status_verbose"`
	Product       *offProduct `json:"product"`
}

type offProduct struct {
	Code                    string         `json:"code"`
	ProductName             string         `json:"product_name"`
	ProductNameEn           string         `json:"product_name_en"`
	GenericName             string         `json:"generic_name"`
	Brands                  string         `json:"brands"`
	ServingSize             string         `json:"serving_size"`
	Nutriments              map[string]any `json:"nutriments"`
	IngredientsText         string         `json:"ingredients_text"`
	IngredientsTextEn       string         `json:"ingredients_text_en"`
	LabelsTags              []string       `json:"labels_tags"`
	IngredientsAnalysisTags []string       `json:"ingredients_analysis_tags"`
}

func (c *Client) fetch(ctx context.Context, code string) (*food.PackagedProduct, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("fields", productFields).
		Get("/api/v2/product/" + code + ".json")
	if err != nil {
		return nil, fmt.Errorf("open food facts request: %w", err)
	}

	var body offResponse
	parseErr := json.Unmarshal(resp.Body(), &body)

	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return nil, common.ErrBarcodeNotFound.Wrap(fmt.Errorf("barcode %s", code))
	case resp.StatusCode() != http.StatusOK:
		return nil, &retry.StatusError{Provider: "openfoodfacts", Status: resp.StatusCode(), Body: truncate(resp.String(), 200)}
	case parseErr != nil:
		return nil, fmt.Errorf("open food facts response: %w", parseErr)
	case body.Status != 1 || body.Product == nil:
		return nil, common.ErrBarcodeNotFound.Wrap(fmt.Errorf("barcode %s: %s", code, body.StatusVerbose))
	}

	p := toPackaged(code, body.Product)
	return &p, nil
}

func toPackaged(code string, op *offProduct) food.PackagedProduct {
	name := firstNonEmpty(op.ProductName, op.ProductNameEn, op.GenericName)
	brand := strings.TrimSpace(strings.Split(op.Brands, ",")[0])

	ingredientsText := firstNonEmpty(op.IngredientsText, op.IngredientsTextEn)
	var ingredients []string
	for _, part := range strings.Split(ingredientsText, ",") {
		if part = strings.TrimSpace(strings.Trim(part, " ._*")); part != "" {
			ingredients = append(ingredients, part)
		}
		if len(ingredients) == maxIngredients {
			break
		}
	}

	tags := make(map[string]struct{}, len(op.LabelsTags)+len(op.IngredientsAnalysisTags))
	for _, t := range append(append([]string(nil), op.LabelsTags...), op.IngredientsAnalysisTags...) {
		tags[strings.ToLower(t)] = struct{}{}
	}
	has := func(t string) bool {
		_, ok := tags[t]
		return ok
	}
	vegan := has("en:vegan")
	vegetarian := vegan || has("en:vegetarian")
	if has("en:non-vegetarian") {
		vegan, vegetarian = false, false
	}

	return food.PackagedProduct{
		Code:        code,
		Name:        name,
		Brand:       brand,
		Per100g:     nutrimentsPer100g(op.Nutriments),
		ServingSize: strings.TrimSpace(op.ServingSize),
		Ingredients: ingredients,
		Vegetarian:  vegetarian,
		Vegan:       vegan,
		GlutenFree:  has("en:gluten-free") || has("en:no-gluten"),
	}
}

// nutrimentsPer100g 讀取 *_100g 欄位；鈉、鐵、鈣、維生素 C 由 g 轉為 mg
func nutrimentsPer100g(m map[string]any) food.Nutrition {
	get := func(key string) float64 {
		v, _ := extractFloat(m, key)
		return v
	}
	kcal, ok := extractFloat(m, "energy-kcal_100g")
	if !ok {
		if kj, ok := extractFloat(m, "energy_100g"); ok {
			kcal = kj / 4.184
		}
	}
	sodium, ok := extractFloat(m, "sodium_100g")
	if !ok {
		// 只有鹽時以 2.5 倍換算
		if salt, ok := extractFloat(m, "salt_100g"); ok {
			sodium = salt / 2.5
		}
	}

	n := food.Nutrition{
		Calories: kcal,
		Protein:  get("proteins_100g"),
		Carbs:    get("carbohydrates_100g"),
		Fat:      get("fat_100g"),
		Fiber:    get("fiber_100g"),
		Sugar:    get("sugars_100g"),
		Sodium:   sodium * 1000,
		Iron:     get("iron_100g") * 1000,
		Calcium:  get("calcium_100g") * 1000,
		VitaminC: get("vitamin-c_100g") * 1000,
	}
	return n.Rounded()
}

// extractFloat 將 nutriments 的值轉為 float64
func extractFloat(m map[string]any, key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x < 0 {
			return 0, false
		}
		return x, true
	case string:
		var f float64
		if _, err := fmt.Sscanf(x, "%f", &f); err == nil && f >= 0 {
			return f, true
		}
	}
	return 0, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
