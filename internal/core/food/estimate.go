package food

import "strings"

type weightRule struct {
	keywords []string
	grams    int
}

// 依序比對，調味料放最前面避免 "mango pickle" 之類被歸到其他類
var weightRules = []weightRule{
	{keywords: []string{"chutney", "pickle", "achar", "sauce", "ketchup", "dip", "raita"}, grams: 30},
	{keywords: []string{"roti", "chapati", "naan", "paratha", "puri", "kulcha", "bhatura", "bread", "toast", "thepla", "phulka"}, grams: 50},
	{keywords: []string{"rice", "biryani", "pulao", "khichdi", "pulav"}, grams: 150},
	{keywords: []string{"curry", "dal", "masala", "sabzi", "korma", "gravy", "paneer", "rajma", "chole", "sambar", "kadhi"}, grams: 150},
	{keywords: []string{"samosa", "pakora", "kachori", "vada", "bhaji", "cutlet", "tikki", "dhokla", "chips"}, grams: 60},
	{keywords: []string{"burger", "pizza", "sandwich", "fries", "wrap", "noodles", "pasta", "momo"}, grams: 150},
}

// EstimateWeight 依關鍵字推估單位重量（克）
func EstimateWeight(foodName string) int {
	name := strings.ToLower(foodName)
	for _, rule := range weightRules {
		if containsAny(name, rule.keywords) {
			return rule.grams
		}
	}
	return DefaultWeightGrams
}

// smartCategory 智慧估算分類
type smartCategory struct {
	name     string
	label    string
	keywords []string
	perUnit  Nutrition
	score    float64
}

// 分類順序即比對優先順序，fat 放在後面避免 "boiled egg" 命中 oil，default 必須在最後
var smartCategories = []smartCategory{
	{name: "pickle", label: "Condiment", keywords: []string{"pickle", "achar"},
		perUnit: nv(40, 0.4, 2.5, 3.5, 0.8, 0.5, 550, 0.3, 8, 2), score: 3},
	{name: "chutney", label: "Condiment", keywords: []string{"chutney", "sauce", "ketchup", "dip"},
		perUnit: nv(35, 0.8, 5, 1.2, 1, 3, 180, 0.5, 15, 6), score: 6},
	{name: "dal", label: "Curry", keywords: []string{"dal", "dhal", "lentil", "sambar", "rajma", "chole", "chana"},
		perUnit: nv(180, 9, 24, 5, 6, 2, 400, 2.5, 40, 4), score: 8},
	{name: "rice", label: "Rice", keywords: []string{"rice", "biryani", "pulao", "pulav", "khichdi"},
		perUnit: nv(210, 4.5, 42, 3, 1, 0.5, 250, 1, 20, 0), score: 6},
	{name: "dairy", label: "Dairy", keywords: []string{"curd", "yogurt", "dahi", "lassi", "milk", "raita", "paneer", "cheese", "kheer"},
		perUnit: nv(110, 5, 8, 6, 0, 6, 80, 0.1, 150, 1), score: 7},
	{name: "meat", label: "Protein", keywords: []string{"chicken", "mutton", "lamb", "fish", "prawn", "shrimp", "beef", "pork", "keema", "egg", "kebab", "tikka"},
		perUnit: nv(260, 24, 6, 15, 1, 2, 600, 2, 40, 3), score: 6},
	{name: "fast-food", label: "Fast Food", keywords: []string{"burger", "pizza", "fries", "sandwich", "noodles", "pasta", "momo", "wrap", "nugget"},
		perUnit: nv(320, 11, 38, 14, 2.5, 5, 680, 2, 90, 2), score: 4},
	{name: "curry", label: "Curry", keywords: []string{"curry", "masala", "sabzi", "korma", "gravy", "bhaji", "kofta"},
		perUnit: nv(200, 6, 16, 12, 4, 4, 480, 1.8, 50, 10), score: 6},
	{name: "fat", label: "Fat", keywords: []string{"ghee", "butter", "oil", "cream", "mayo"},
		perUnit: nv(90, 0.1, 0, 10, 0, 0, 5, 0, 2, 0), score: 2},
	{name: "default", label: "Other",
		perUnit: nv(150, 5, 20, 5, 2, 3, 300, 1, 30, 3), score: 5},
}

// SmartEstimate 分類估算結果
type SmartEstimate struct {
	Class       string
	Category    string
	PerUnit     Nutrition
	HealthScore float64
}

// EstimateNutrition 以關鍵字分類回傳代表性的每單位營養素，生成失敗時使用
func EstimateNutrition(foodName string) SmartEstimate {
	name := strings.ToLower(foodName)
	chosen := smartCategories[len(smartCategories)-1]
	for _, sc := range smartCategories[:len(smartCategories)-1] {
		if containsAny(name, sc.keywords) {
			chosen = sc
			break
		}
	}
	return SmartEstimate{
		Class:       chosen.name,
		Category:    chosen.label,
		PerUnit:     chosen.perUnit.Rounded(),
		HealthScore: chosen.score,
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
