package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/pkg/common"
)

// Strategy 成功解析所使用的策略
type Strategy string

const (
	StrategyJSON      Strategy = "json"
	StrategyRegex     Strategy = "regex"
	StrategyBestGuess Strategy = "best-guess"
)

// Result 解析結果
type Result struct {
	Items      []food.DetectedItem
	Confidence float64
	Strategy   Strategy
}

// Extractor 從模型自由文字中取出辨識項目
type Extractor struct {
	vocabulary []string
	wordRes    []*regexp.Regexp
	countRe    *regexp.Regexp
}

// 常見但資料表未必收錄的食物名詞
var baseVocabulary = []string{
	"chapati", "roti", "paratha", "naan", "puri", "rice", "dal", "curry", "samosa",
	"idli", "dosa", "vada", "egg", "apple", "banana", "orange", "burger", "pizza",
	"sandwich", "biryani", "paneer", "chicken", "fish", "salad", "pakora", "cookie",
	"momo", "ladoo", "jalebi", "bread", "flatbread", "noodle", "soup", "cake", "pasta",
	"dumpling", "omelette", "kebab", "tikka", "khichdi", "kulcha", "pav bhaji",
}

// New 以資料表字彙建立 Extractor
func New(catalog *food.Catalog) *Extractor {
	words := append([]string(nil), baseVocabulary...)
	if catalog != nil {
		words = append(words, catalog.Vocabulary()...)
	}
	return NewWithVocabulary(words)
}

// NewWithVocabulary 以指定字彙建立 Extractor
func NewWithVocabulary(words []string) *Extractor {
	seen := make(map[string]struct{}, len(words))
	vocab := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		vocab = append(vocab, w)
	}

	// 較長的片語優先，例如 "dal tadka" 先於 "dal"
	alts := append([]string(nil), vocab...)
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	quoted := make([]string, len(alts))
	for i, w := range alts {
		quoted[i] = regexp.QuoteMeta(w)
	}
	pattern := `(?i)\b(\d+)\s+(` + strings.Join(quoted, "|") + `)(?:e?s)?\b`

	wordRes := make([]*regexp.Regexp, len(vocab))
	for i, w := range vocab {
		wordRes[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(w) + `\b`)
	}

	return &Extractor{
		vocabulary: vocab,
		wordRes:    wordRes,
		countRe:    regexp.MustCompile(pattern),
	}
}

// Extract 依 JSON -> regex -> 最佳猜測 的順序解析，全部失敗回傳 ErrParse
func (x *Extractor) Extract(raw string) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, common.ErrParse.Wrap(fmt.Errorf("empty model output"))
	}

	res, err := x.fromJSON(raw)
	if err == nil {
		return res, nil
	}
	common.LogDebug("JSON 解析失敗，改用 regex", zap.Error(err))

	if items := x.fromRegex(raw); len(items) > 0 {
		return &Result{Items: items, Confidence: 0.6, Strategy: StrategyRegex}, nil
	}

	if item, ok := x.bestGuess(raw); ok {
		return &Result{Items: []food.DetectedItem{item}, Confidence: 0.4, Strategy: StrategyBestGuess}, nil
	}

	return nil, common.ErrParse.Wrap(fmt.Errorf("no recognizable food in model output"))
}

// Mentions 文字中是否出現任一已知食物單字
func (x *Extractor) Mentions(text string) bool {
	lower := strings.ToLower(text)
	for _, re := range x.wordRes {
		if re.MatchString(lower) {
			return true
		}
	}
	return false
}

// ExtractObject 取出單一 JSON 物件並解析到 v，供營養生成使用
func ExtractObject(raw string, v interface{}) error {
	obj, ok := common.ExtractJSONObject(raw)
	if !ok {
		return common.ErrParse.Wrap(fmt.Errorf("no JSON object found"))
	}
	if err := common.ParseJSON(obj, v); err != nil {
		if err2 := common.ParseJSON(common.RepairJSON(obj), v); err2 != nil {
			return common.ErrParse.Wrap(err)
		}
	}
	return nil
}

type detectionPayload struct {
	DetectedItems []rawItem `json:"detectedItems"`
	Items         []rawItem `json:"items"`
	Foods         []rawItem `json:"foods"`
	Confidence    looseText `json:"confidence"`
}

type rawItem struct {
	FoodName      looseText  `json:"foodName"`
	Name          looseText  `json:"name"`
	VisibleCount  looseCount `json:"visibleCount"`
	Count         looseCount `json:"count"`
	Quantity      looseCount `json:"quantity"`
	WeightPerItem looseText  `json:"estimatedWeightPerPiece"`
	Weight        looseText  `json:"weight"`
}

var leadingIntRe = regexp.MustCompile(`^\s*(\d+)`)

// looseCount 接受數字或以整數開頭的字串，其餘一律視為未提供
type looseCount int

func (c *looseCount) UnmarshalJSON(data []byte) error {
	*c = 0
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case float64:
		if t >= 1 {
			*c = looseCount(t)
		}
	case string:
		if m := leadingIntRe.FindStringSubmatch(t); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				*c = looseCount(n)
			}
		}
	}
	return nil
}

// looseText 接受字串或數字，數字保留原始文字
type looseText string

func (s *looseText) UnmarshalJSON(data []byte) error {
	*s = ""
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	switch t := v.(type) {
	case string:
		*s = looseText(strings.TrimSpace(t))
	case float64:
		*s = looseText(strings.TrimSpace(string(data)))
	}
	return nil
}

func (s looseText) isNumber() bool {
	_, err := strconv.ParseFloat(string(s), 64)
	return err == nil
}

func (x *Extractor) fromJSON(raw string) (*Result, error) {
	var payload detectionPayload
	if err := ExtractObject(raw, &payload); err != nil {
		return nil, err
	}

	list := payload.DetectedItems
	if len(list) == 0 {
		list = payload.Items
	}
	if len(list) == 0 {
		list = payload.Foods
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("JSON object has no detected items")
	}

	items := make([]food.DetectedItem, 0, len(list))
	for _, it := range list {
		name := string(it.FoodName)
		if name == "" {
			name = string(it.Name)
		}
		if name == "" {
			continue
		}
		weight := it.WeightPerItem
		if weight == "" {
			weight = it.Weight
		}
		if weight != "" && weight.isNumber() {
			weight += "g"
		}
		items = append(items, food.DetectedItem{
			FoodName:      name,
			VisibleCount:  coerceCount(it.VisibleCount, it.Count, it.Quantity),
			PerUnitWeight: string(weight),
		})
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("detected items have no names")
	}

	confidence := 0.85
	if f, err := strconv.ParseFloat(string(payload.Confidence), 64); err == nil && f > 0 && f <= 1 {
		confidence = f
	}
	return &Result{Items: items, Confidence: confidence, Strategy: StrategyJSON}, nil
}

// coerceCount 取第一個有效的正整數，無效時為 1，並限制上限
func coerceCount(candidates ...looseCount) int {
	for _, c := range candidates {
		if c >= 1 {
			return food.ClampCount(int(c))
		}
	}
	return 1
}

func (x *Extractor) fromRegex(raw string) []food.DetectedItem {
	matches := x.countRe.FindAllStringSubmatch(raw, -1)
	var items []food.DetectedItem
	index := make(map[string]int)
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > food.MaxVisibleCount {
			continue
		}
		word := strings.ToLower(m[2])
		// 同一食物重複提及時取最大數量，不累加
		if i, ok := index[word]; ok {
			if n > items[i].VisibleCount {
				items[i].VisibleCount = n
			}
			continue
		}
		index[word] = len(items)
		items = append(items, food.DetectedItem{FoodName: titleCase(word), VisibleCount: n})
	}
	return items
}

func (x *Extractor) bestGuess(raw string) (food.DetectedItem, bool) {
	lower := strings.ToLower(raw)
	best, bestPos := "", -1
	for i, w := range x.vocabulary {
		loc := x.wordRes[i].FindStringIndex(lower)
		if loc == nil {
			continue
		}
		// 最早出現者優先，同位置取較長片語
		if bestPos == -1 || loc[0] < bestPos || (loc[0] == bestPos && len(w) > len(best)) {
			best, bestPos = w, loc[0]
		}
	}
	if bestPos == -1 {
		return food.DetectedItem{}, false
	}
	return food.DetectedItem{FoodName: titleCase(best), VisibleCount: 1}, true
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
