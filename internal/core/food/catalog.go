package food

import (
	"fmt"
	"strings"
	"sync"
)

// DefaultWeightGrams 無法解析重量時使用的預設克數
const DefaultWeightGrams = 100

// Catalog 不可變的本地營養資料表，保留宣告順序
type Catalog struct {
	entries []CatalogEntry
	byKey   map[string]int
	byName  map[string]int
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog 回傳內建資料表，只建立一次
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := NewCatalog(catalogData)
		if err != nil {
			panic(fmt.Sprintf("invalid built-in catalog: %v", err))
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

// NewCatalog 驗證並建立資料表
func NewCatalog(entries []CatalogEntry) (*Catalog, error) {
	c := &Catalog{
		entries: make([]CatalogEntry, 0, len(entries)),
		byKey:   make(map[string]int, len(entries)),
		byName:  make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		e.Key = strings.ToLower(strings.TrimSpace(e.Key))
		if e.Key == "" {
			return nil, fmt.Errorf("catalog entry %q: empty key", e.DisplayName)
		}
		if _, dup := c.byKey[e.Key]; dup {
			return nil, fmt.Errorf("catalog entry %q: duplicate key", e.Key)
		}
		if e.HealthScore < 1 || e.HealthScore > 10 {
			return nil, fmt.Errorf("catalog entry %q: health score %v out of range", e.Key, e.HealthScore)
		}
		if e.DisplayName == "" {
			e.DisplayName = strings.ReplaceAll(e.Key, "_", " ")
		}
		e.WeightGrams = ParseWeightGrams(e.Weight)
		e.PerUnit = e.PerUnit.Rounded()
		e.Ingredients = append([]string(nil), e.Ingredients...)

		idx := len(c.entries)
		c.entries = append(c.entries, e)
		c.byKey[e.Key] = idx
		name := strings.ToLower(e.DisplayName)
		if _, dup := c.byName[name]; !dup {
			c.byName[name] = idx
		}
	}
	return c, nil
}

// Len 資料表項目數
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Get 依 key 取得項目（回傳副本）
func (c *Catalog) Get(key string) (CatalogEntry, bool) {
	idx, ok := c.byKey[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entry(idx), true
}

// Entries 依宣告順序回傳所有項目副本
func (c *Catalog) Entries() []CatalogEntry {
	out := make([]CatalogEntry, len(c.entries))
	for i := range c.entries {
		out[i] = c.entry(i)
	}
	return out
}

// Vocabulary 資料表中可辨識的食物單字（小寫、不重複）
func (c *Catalog) Vocabulary() []string {
	seen := make(map[string]struct{})
	var words []string
	add := func(w string) {
		if len(w) < 3 {
			return
		}
		if _, ok := seen[w]; ok {
			return
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	for _, e := range c.entries {
		add(strings.ToLower(e.DisplayName))
		for _, part := range strings.Split(e.Key, "_") {
			add(part)
		}
	}
	return words
}

func (c *Catalog) entry(idx int) CatalogEntry {
	e := c.entries[idx]
	e.Ingredients = append([]string(nil), e.Ingredients...)
	return e
}

// ParseWeightGrams 取字串開頭的整數作為克數，例如 "70g" -> 70
// 沒有開頭整數時回傳 DefaultWeightGrams
func ParseWeightGrams(s string) int {
	s = strings.TrimSpace(s)
	n := 0
	digits := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		digits++
		if n > 100000 {
			break
		}
	}
	if digits == 0 || n <= 0 {
		return DefaultWeightGrams
	}
	return n
}
