package food

import (
	"strings"
	"time"
)

// BarcodeConfidence 條碼查詢結果的固定信心值
const BarcodeConfidence = 0.95

// PackagedProduct 外部產品資料庫的包裝食品（每 100g）
type PackagedProduct struct {
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Brand       string    `json:"brand"`
	Per100g     Nutrition `json:"per100g"`
	ServingSize string    `json:"servingSize"`
	Ingredients []string  `json:"ingredients"`
	Vegetarian  bool      `json:"vegetarian"`
	Vegan       bool      `json:"vegan"`
	GlutenFree  bool      `json:"glutenFree"`
}

// PackagedHealthScore 包裝食品評分，基準 5 分
func PackagedHealthScore(n Nutrition) float64 {
	score := 5.0
	if n.Protein > 10 {
		score += 1
	}
	if n.Fiber > 5 {
		score += 1
	}
	if n.Sodium > 600 {
		score -= 1
	}
	if n.Sugar > 15 {
		score -= 1
	}
	if n.Fat > 20 {
		score -= 1
	}
	return clampScore(score)
}

// FormatBarcodeReport 將包裝食品轉為報告，以 100g 為一份
func FormatBarcodeReport(p PackagedProduct) Report {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "Unknown Product"
	}
	ingredients := p.Ingredients
	if len(ingredients) > MaxIngredients {
		ingredients = ingredients[:MaxIngredients]
	}

	per := p.Per100g.Rounded()
	score := PackagedHealthScore(per)
	item := BuildItem(name, 1, 100, per, SourceCatalog)
	item.Category = "Packaged Food"
	item.HealthScore = score
	item.Ingredients = append([]string(nil), ingredients...)

	serving := "100g"
	if s := strings.TrimSpace(p.ServingSize); s != "" {
		serving = "100g (label serving: " + s + ")"
	}

	return Report{
		FoodName:    name,
		ItemCount:   1,
		TotalPieces: 1,
		Items:       []ResolvedItem{item},
		Confidence:  BarcodeConfidence,
		Category:    "Packaged Food",
		ServingSize: serving,
		Nutrition:   item.Total,
		HealthScore: score,
		Dietary: DietaryFlags{
			Vegetarian:  p.Vegetarian || p.Vegan,
			Vegan:       p.Vegan,
			GlutenFree:  p.GlutenFree,
			HighProtein: per.Protein > 20,
		},
		Ingredients: MergeIngredients([]ResolvedItem{item}),
		Tips:        packagedTips(per),
		Method:      MethodBarcode,
		Brand:       strings.TrimSpace(p.Brand),
		Barcode:     p.Code,
		Timestamp:   time.Now().UTC(),
	}
}

func packagedTips(n Nutrition) string {
	var tips []string
	if n.Sodium > 600 {
		tips = append(tips, "High in sodium; watch your salt intake for the day.")
	}
	if n.Sugar > 15 {
		tips = append(tips, "High in sugar; enjoy in moderation.")
	}
	if n.Protein > 10 {
		tips = append(tips, "Good source of protein.")
	}
	if n.Fiber > 5 {
		tips = append(tips, "Good source of fiber.")
	}
	if len(tips) == 0 {
		return "Check the serving size on the label to track your intake."
	}
	return strings.Join(tips, " ")
}
