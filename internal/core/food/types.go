package food

import (
	"math"
	"time"
)

// Nutrition 營養素向量
// calories、sodium、calcium 取整數，其餘取到小數一位
type Nutrition struct {
	Calories float64 `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
	Fiber    float64 `json:"fiber"`
	Sugar    float64 `json:"sugar"`
	Sodium   float64 `json:"sodium"`
	Iron     float64 `json:"iron"`
	Calcium  float64 `json:"calcium"`
	VitaminC float64 `json:"vitaminC"`
}

// Scale 乘上數量後依欄位規則取整
func (n Nutrition) Scale(factor float64) Nutrition {
	return Nutrition{
		Calories: n.Calories * factor,
		Protein:  n.Protein * factor,
		Carbs:    n.Carbs * factor,
		Fat:      n.Fat * factor,
		Fiber:    n.Fiber * factor,
		Sugar:    n.Sugar * factor,
		Sodium:   n.Sodium * factor,
		Iron:     n.Iron * factor,
		Calcium:  n.Calcium * factor,
		VitaminC: n.VitaminC * factor,
	}.Rounded()
}

// Add 逐欄相加（不取整）
func (n Nutrition) Add(o Nutrition) Nutrition {
	return Nutrition{
		Calories: n.Calories + o.Calories,
		Protein:  n.Protein + o.Protein,
		Carbs:    n.Carbs + o.Carbs,
		Fat:      n.Fat + o.Fat,
		Fiber:    n.Fiber + o.Fiber,
		Sugar:    n.Sugar + o.Sugar,
		Sodium:   n.Sodium + o.Sodium,
		Iron:     n.Iron + o.Iron,
		Calcium:  n.Calcium + o.Calcium,
		VitaminC: n.VitaminC + o.VitaminC,
	}
}

// Rounded 套用欄位取整規則，負值一律歸零
func (n Nutrition) Rounded() Nutrition {
	return Nutrition{
		Calories: roundInt(n.Calories),
		Protein:  round1(n.Protein),
		Carbs:    round1(n.Carbs),
		Fat:      round1(n.Fat),
		Fiber:    round1(n.Fiber),
		Sugar:    round1(n.Sugar),
		Sodium:   roundInt(n.Sodium),
		Iron:     round1(n.Iron),
		Calcium:  roundInt(n.Calcium),
		VitaminC: round1(n.VitaminC),
	}
}

func roundInt(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v)
}

func round1(v float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*10) / 10
}

// Source 營養資料來源
type Source string

const (
	SourceCatalog     Source = "catalog"
	SourceAIGenerated Source = "ai-generated"
	SourceHeuristic   Source = "heuristic-fallback"
)

// PortionSize 份量描述
type PortionSize string

const (
	PortionSmall  PortionSize = "Small"
	PortionMedium PortionSize = "Medium"
	PortionLarge  PortionSize = "Large"
)

// CatalogEntry 本地營養資料表項目
type CatalogEntry struct {
	Key         string    `json:"key"`
	DisplayName string    `json:"displayName"`
	Weight      string    `json:"weight"`
	WeightGrams int       `json:"weightGrams"`
	PerUnit     Nutrition `json:"perUnitNutrition"`
	Category    string    `json:"category"`
	HealthScore float64   `json:"healthScore"`
	Ingredients []string  `json:"ingredients"`
	Tips        string    `json:"tips"`
}

// DetectedItem 模型辨識出的單一食物
type DetectedItem struct {
	FoodName      string `json:"foodName"`
	VisibleCount  int    `json:"visibleCount"`
	PerUnitWeight string `json:"estimatedWeightPerPiece,omitempty"`
}

// Portion 單項份量
type Portion struct {
	Size     PortionSize `json:"size"`
	Quantity string      `json:"quantity"`
	Weight   string      `json:"weight"`
}

// ResolvedItem 已取得營養資料的項目
type ResolvedItem struct {
	FoodName      string    `json:"foodName"`
	VisibleCount  int       `json:"visibleCount"`
	WeightPerUnit int       `json:"weightPerPiece"`
	PerUnit       Nutrition `json:"perUnitNutrition"`
	Total         Nutrition `json:"totalNutrition"`
	Source        Source    `json:"source"`
	Category      string    `json:"category"`
	HealthScore   float64   `json:"healthScore"`
	Ingredients   []string  `json:"ingredients"`
	Tips          string    `json:"tips,omitempty"`
	Portion       Portion   `json:"portion"`
	CatalogKey    string    `json:"catalogKey,omitempty"`
}

// GeneratedNutrition AI 生成的單一食物營養資料（每單位）
type GeneratedNutrition struct {
	PerUnit     Nutrition `json:"perUnitNutrition"`
	Category    string    `json:"category"`
	HealthScore float64   `json:"healthScore"`
	Ingredients []string  `json:"ingredients"`
	Tips        string    `json:"tips"`
}

// DietaryFlags 飲食標記
type DietaryFlags struct {
	Vegetarian  bool `json:"vegetarian"`
	Vegan       bool `json:"vegan"`
	GlutenFree  bool `json:"glutenFree"`
	HighProtein bool `json:"highProtein"`
	Balanced    bool `json:"balanced"`
}

// Method 報告來源標籤
type Method string

const (
	MethodVision         Method = "vision"
	MethodLabelDetection Method = "label-detection"
	MethodFallback       Method = "fallback-estimate"
	MethodBarcode        Method = "barcode"
)

// Report 完整營養報告
type Report struct {
	ID             string         `json:"id"`
	FoodName       string         `json:"foodName"`
	ItemCount      int            `json:"itemCount"`
	TotalPieces    int            `json:"totalPieces"`
	Items          []ResolvedItem `json:"items"`
	Confidence     float64        `json:"confidence"`
	Category       string         `json:"category"`
	ServingSize    string         `json:"servingSize"`
	Nutrition      Nutrition      `json:"nutrition"`
	HealthScore    float64        `json:"healthScore"`
	Dietary        DietaryFlags   `json:"dietary"`
	Ingredients    []string       `json:"ingredients"`
	Tips           string         `json:"tips"`
	Method         Method         `json:"method"`
	Provider       string         `json:"provider,omitempty"`
	Brand          string         `json:"brand,omitempty"`
	Barcode        string         `json:"barcode,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
	IsAIEnhanced   bool           `json:"isAIEnhanced"`
	IsUserAssisted bool           `json:"isUserAssisted"`
	IsEstimate     bool           `json:"isEstimate"`
}
