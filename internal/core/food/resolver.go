package food

import (
	"strings"
)

// MatchKind 比對層級
type MatchKind string

const (
	MatchExact    MatchKind = "exact"
	MatchCompound MatchKind = "compound"
	MatchPartial  MatchKind = "partial"
	MatchNone     MatchKind = "none"
)

// minPartialKeyLen 部分比對時 key 必須超過此長度
const minPartialKeyLen = 3

// Resolution 食物名稱解析結果
// Entry 為 nil 時 NeedsGeneration 為 true，DisplayName 保留原始名稱
type Resolution struct {
	Entry           *CatalogEntry
	Match           MatchKind
	NeedsGeneration bool
	DisplayName     string
	EstimatedWeight int
}

// Resolve 依 exact -> compound -> partial 順序比對，第一個命中即回傳
func (c *Catalog) Resolve(foodName string) Resolution {
	name := strings.ToLower(strings.TrimSpace(foodName))
	if name != "" {
		passes := []struct {
			kind  MatchKind
			match func(string) (int, bool)
		}{
			{MatchExact, c.matchExact},
			{MatchCompound, c.matchCompound},
			{MatchPartial, c.matchPartial},
		}
		for _, p := range passes {
			if idx, ok := p.match(name); ok {
				e := c.entry(idx)
				return Resolution{Entry: &e, Match: p.kind, DisplayName: e.DisplayName}
			}
		}
	}

	display := strings.TrimSpace(foodName)
	return Resolution{
		Match:           MatchNone,
		NeedsGeneration: true,
		DisplayName:     display,
		EstimatedWeight: EstimateWeight(display),
	}
}

// matchExact 名稱等於 key 或顯示名稱（不分大小寫）
func (c *Catalog) matchExact(name string) (int, bool) {
	if idx, ok := c.byKey[name]; ok {
		return idx, true
	}
	idx, ok := c.byName[name]
	return idx, ok
}

// matchCompound 空白與底線互換後比對
func (c *Catalog) matchCompound(name string) (int, bool) {
	underscored := strings.Join(strings.Fields(name), "_")
	if idx, ok := c.byKey[underscored]; ok {
		return idx, true
	}
	for i, e := range c.entries {
		if strings.ReplaceAll(e.Key, "_", " ") == name {
			return i, true
		}
	}
	return 0, false
}

// matchPartial key 為名稱的子字串，依宣告順序取第一個
// 長度門檻只擋掉極短的 key，較長的通用 key 仍可能誤中不相關的名稱
func (c *Catalog) matchPartial(name string) (int, bool) {
	underscored := strings.Join(strings.Fields(name), "_")
	for i, e := range c.entries {
		if len(e.Key) <= minPartialKeyLen {
			continue
		}
		if strings.Contains(name, e.Key) || strings.Contains(underscored, e.Key) {
			return i, true
		}
	}
	return 0, false
}
