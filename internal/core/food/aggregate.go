package food

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"
)

const (
	// MaxVisibleCount 單項可見數量上限
	MaxVisibleCount = 20
	// MaxIngredients 報告中食材數量上限
	MaxIngredients = 8
	// comboNameItems 組合名稱最多列出的項目數
	comboNameItems = 3
)

var (
	meatTerms   = []string{"chicken", "mutton", "lamb", "beef", "pork", "fish", "prawn", "shrimp", "crab", "meat", "keema", "bacon", "ham", "turkey", "egg"}
	dairyTerms  = []string{"milk", "paneer", "ghee", "butter", "cream", "curd", "yogurt", "cheese", "khoya", "whey", "buttermilk", "malai", "lassi"}
	glutenTerms = []string{"wheat", "flour", "maida", "atta", "bread", "semolina", "suji", "rava", "bun", "dough", "barley"}
	// 不含麩質的粉類
	glutenFreeFlours = []string{"gram flour", "rice flour", "besan", "corn flour", "millet flour", "buckwheat flour"}
	// 名稱含乳製品字眼的植物性食材
	plantDairyPhrases = []string{
		"coconut milk", "coconut cream", "almond milk", "soy milk", "oat milk", "cashew milk", "cashew cream",
		"peanut butter", "almond butter", "cashew butter", "cocoa butter", "nut butter",
	}
)

// ClampCount 將數量限制在 1..MaxVisibleCount
func ClampCount(n int) int {
	if n < 1 {
		return 1
	}
	if n > MaxVisibleCount {
		return MaxVisibleCount
	}
	return n
}

// PortionFor 依數量推算份量描述
func PortionFor(count, weightPerUnit int) Portion {
	size := PortionSmall
	switch {
	case count >= 4:
		size = PortionLarge
	case count >= 2:
		size = PortionMedium
	}
	return Portion{
		Size:     size,
		Quantity: pluralize(count, "piece"),
		Weight:   fmt.Sprintf("%dg", count*weightPerUnit),
	}
}

// BuildItem 由每單位營養與數量建立項目，總量 = 每單位 × 數量 並依欄位規則取整
func BuildItem(name string, count, weightPerUnit int, perUnit Nutrition, source Source) ResolvedItem {
	count = ClampCount(count)
	if weightPerUnit <= 0 {
		weightPerUnit = DefaultWeightGrams
	}
	perUnit = perUnit.Rounded()
	return ResolvedItem{
		FoodName:      name,
		VisibleCount:  count,
		WeightPerUnit: weightPerUnit,
		PerUnit:       perUnit,
		Total:         perUnit.Scale(float64(count)),
		Source:        source,
		Portion:       PortionFor(count, weightPerUnit),
	}
}

// ItemFromCatalog 資料表命中的項目
func ItemFromCatalog(e CatalogEntry, count int) ResolvedItem {
	item := BuildItem(e.DisplayName, count, e.WeightGrams, e.PerUnit, SourceCatalog)
	item.Category = e.Category
	item.HealthScore = e.HealthScore
	item.Ingredients = append([]string(nil), e.Ingredients...)
	item.Tips = e.Tips
	item.CatalogKey = e.Key
	return item
}

// ItemFromEstimate 分類估算的項目，保留原始名稱
func ItemFromEstimate(name string, count, weightPerUnit int, est SmartEstimate) ResolvedItem {
	item := BuildItem(name, count, weightPerUnit, est.PerUnit, SourceHeuristic)
	item.Category = est.Category
	item.HealthScore = est.HealthScore
	item.Ingredients = []string{strings.ToLower(strings.TrimSpace(name))}
	return item
}

// ItemFromGenerated AI 生成的項目，保留原始名稱
func ItemFromGenerated(name string, count, weightPerUnit int, g GeneratedNutrition) ResolvedItem {
	item := BuildItem(name, count, weightPerUnit, g.PerUnit, SourceAIGenerated)
	item.Category = strings.TrimSpace(g.Category)
	if item.Category == "" {
		item.Category = "AI Estimated"
	}
	item.HealthScore = clampScore(g.HealthScore)
	for _, ing := range g.Ingredients {
		if ing = strings.ToLower(strings.TrimSpace(ing)); ing != "" {
			item.Ingredients = append(item.Ingredients, ing)
		}
	}
	if len(item.Ingredients) == 0 {
		item.Ingredients = []string{strings.ToLower(strings.TrimSpace(name))}
	}
	item.Tips = strings.TrimSpace(g.Tips)
	return item
}

// Aggregate 合併所有項目為完整報告
func Aggregate(items []ResolvedItem, confidence float64, userProvided bool) Report {
	var total Nutrition
	pieces, grams := 0, 0
	aiEnhanced := false
	for _, it := range items {
		total = total.Add(it.Total)
		pieces += it.VisibleCount
		grams += it.VisibleCount * it.WeightPerUnit
		if it.Source == SourceAIGenerated {
			aiEnhanced = true
		}
	}
	total = total.Rounded()

	return Report{
		FoodName:       CombinedName(items),
		ItemCount:      len(items),
		TotalPieces:    pieces,
		Items:          items,
		Confidence:     clampConfidence(confidence),
		Category:       combinedCategory(items),
		ServingSize:    ServingSize(pieces, grams),
		Nutrition:      total,
		HealthScore:    HealthScore(total),
		Dietary:        Dietary(items, total),
		Ingredients:    MergeIngredients(items),
		Tips:           BuildTips(pieces, total, aiEnhanced),
		Timestamp:      time.Now().UTC(),
		IsAIEnhanced:   aiEnhanced,
		IsUserAssisted: userProvided,
	}
}

// CombinedName 單項為 "<name>" 或 "<count> <name>s"，多項為 "Combo: a x2 + b x1"
func CombinedName(items []ResolvedItem) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		it := items[0]
		if it.VisibleCount > 1 {
			return fmt.Sprintf("%d %ss", it.VisibleCount, it.FoodName)
		}
		return it.FoodName
	}

	n := len(items)
	if n > comboNameItems {
		n = comboNameItems
	}
	parts := make([]string, 0, n)
	for _, it := range items[:n] {
		parts = append(parts, fmt.Sprintf("%s x%d", it.FoodName, it.VisibleCount))
	}
	name := "Combo: " + strings.Join(parts, " + ")
	if len(items) > comboNameItems {
		name += " (+ more)"
	}
	return name
}

// ServingSize 總件數與總重量描述
func ServingSize(pieces, grams int) string {
	return fmt.Sprintf("%s (~%dg total)", pluralize(pieces, "piece"), grams)
}

// HealthScore 1-10 分，以 0.5 為單位
func HealthScore(total Nutrition) float64 {
	score := 6.0
	if total.Protein > 15 {
		score += 1
	}
	if total.Fiber > 8 {
		score += 1
	}
	if total.Iron > 3 {
		score += 0.5
	}
	if total.VitaminC > 10 {
		score += 0.5
	}
	if total.Sodium > 800 {
		score -= 1
	}
	if total.Calories > 800 {
		score -= 0.5
	}
	if total.Fat > 30 {
		score -= 0.5
	}
	if total.Sugar > 25 {
		score -= 0.5
	}
	return clampScore(score)
}

// Dietary 依食材推算飲食標記，食材以完整單字比對
func Dietary(items []ResolvedItem, total Nutrition) DietaryFlags {
	vegetarian, dairy, gluten := true, false, false
	distinct := make(map[string]struct{}, len(items))
	for _, it := range items {
		distinct[strings.ToLower(it.FoodName)] = struct{}{}
		for _, ing := range it.Ingredients {
			words := ingredientWords(ing)
			if hasTerm(words, meatTerms) {
				vegetarian = false
			}
			if hasTerm(withoutPhrases(words, plantDairyPhrases), dairyTerms) {
				dairy = true
			}
			if hasTerm(withoutPhrases(words, glutenFreeFlours), glutenTerms) {
				gluten = true
			}
		}
	}
	return DietaryFlags{
		Vegetarian:  vegetarian,
		Vegan:       vegetarian && !dairy,
		GlutenFree:  !gluten,
		HighProtein: total.Protein > 20,
		Balanced:    len(distinct) >= 2,
	}
}

func ingredientWords(ing string) []string {
	return strings.FieldsFunc(strings.ToLower(ing), func(r rune) bool { return !unicode.IsLetter(r) })
}

// hasTerm 單字等於詞彙或其複數形
func hasTerm(words, terms []string) bool {
	for _, w := range words {
		for _, t := range terms {
			if w == t || w == t+"s" || w == t+"es" {
				return true
			}
		}
	}
	return false
}

// withoutPhrases 移除連續出現的片語單字
func withoutPhrases(words, phrases []string) []string {
	joined := " " + strings.Join(words, " ") + " "
	for _, p := range phrases {
		joined = strings.ReplaceAll(joined, " "+p+" ", " ")
	}
	return strings.Fields(joined)
}

// MergeIngredients 合併食材，去重並保留順序，最多 MaxIngredients 項
func MergeIngredients(items []ResolvedItem) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, MaxIngredients)
	for _, it := range items {
		for _, ing := range it.Ingredients {
			key := strings.ToLower(strings.TrimSpace(ing))
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, ing)
			if len(out) == MaxIngredients {
				return out
			}
		}
	}
	return out
}

// BuildTips 組合建議文字
func BuildTips(pieces int, total Nutrition, aiEnhanced bool) string {
	var tips []string
	switch {
	case pieces >= 6:
		tips = append(tips, "Large portion detected; consider sharing or saving some for later.")
	case pieces >= 3:
		tips = append(tips, "Good portion size for a satisfying meal.")
	}
	if total.Protein > 20 {
		tips = append(tips, "Great protein content to keep you full.")
	}
	if total.Calories > 800 {
		tips = append(tips, "High calorie meal; balance it with lighter meals today.")
	}
	if aiEnhanced {
		tips = append(tips, "Some nutrition values were estimated with AI.")
	}
	if len(tips) == 0 {
		return "Enjoy your meal! Add vegetables for extra fiber and vitamins."
	}
	return strings.Join(tips, " ")
}

func combinedCategory(items []ResolvedItem) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0].Category
	default:
		return "Combo Meal"
	}
}

func clampScore(score float64) float64 {
	score = math.Round(score*2) / 2
	if score < 1 {
		return 1
	}
	if score > 10 {
		return 10
	}
	return score
}

func clampConfidence(c float64) float64 {
	if c < 0 || math.IsNaN(c) {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
