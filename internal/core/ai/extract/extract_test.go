package extract

import (
	"errors"
	"testing"

	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/pkg/common"
)

func newTestExtractor() *Extractor {
	return New(food.DefaultCatalog())
}

func TestExtractFencedJSON(t *testing.T) {
	t.Parallel()

	raw := "```json\n{\"detectedItems\":[{\"foodName\":\"Chapati\",\"visibleCount\":2}]}\n```"
	res, err := newTestExtractor().Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Strategy != StrategyJSON {
		t.Fatalf("strategy: want=%s got=%s", StrategyJSON, res.Strategy)
	}
	if len(res.Items) != 1 {
		t.Fatalf("items: want=1 got=%d", len(res.Items))
	}
	got := res.Items[0]
	if got.FoodName != "Chapati" || got.VisibleCount != 2 {
		t.Fatalf("item: want=Chapati x2 got=%+v", got)
	}
}

func TestExtractJSONVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		raw       string
		wantName  string
		wantCount int
	}{
		{
			name:      "prose around object",
			raw:       `Sure! Here is the analysis: {"items":[{"name":"Dal Tadka","count":"1"}],"confidence":0.9} Let me know.`,
			wantName:  "Dal Tadka",
			wantCount: 1,
		},
		{
			name:      "missing count defaults to one",
			raw:       `{"detectedItems":[{"foodName":"Samosa"}]}`,
			wantName:  "Samosa",
			wantCount: 1,
		},
		{
			name:      "zero count defaults to one",
			raw:       `{"detectedItems":[{"foodName":"Idli","visibleCount":0}]}`,
			wantName:  "Idli",
			wantCount: 1,
		},
		{
			name:      "count clamped",
			raw:       `{"foods":[{"foodName":"Puri","quantity":45}]}`,
			wantName:  "Puri",
			wantCount: food.MaxVisibleCount,
		},
		{
			name:      "unquoted keys repaired",
			raw:       `{detectedItems: [{foodName: "Naan", visibleCount: 3,}]}`,
			wantName:  "Naan",
			wantCount: 3,
		},
	}
	x := newTestExtractor()
	for _, tc := range cases {
		res, err := x.Extract(tc.raw)
		if err != nil {
			t.Fatalf("%s: Extract: %v", tc.name, err)
		}
		if res.Strategy != StrategyJSON {
			t.Fatalf("%s: strategy want=%s got=%s", tc.name, StrategyJSON, res.Strategy)
		}
		got := res.Items[0]
		if got.FoodName != tc.wantName || got.VisibleCount != tc.wantCount {
			t.Fatalf("%s: want=%s x%d got=%+v", tc.name, tc.wantName, tc.wantCount, got)
		}
	}
}

func TestExtractConfidenceFromPayload(t *testing.T) {
	t.Parallel()

	res, err := newTestExtractor().Extract(`{"detectedItems":[{"foodName":"Dosa","visibleCount":1}],"confidence":0.72}`)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Confidence != 0.72 {
		t.Fatalf("confidence: want=0.72 got=%v", res.Confidence)
	}
}

func TestExtractRegexFallback(t *testing.T) {
	t.Parallel()

	raw := "I can see 3 chapatis, 1 dal tadka and 40 samosas on the plate, plus 2 chapatis more."
	res, err := newTestExtractor().Extract(raw)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Strategy != StrategyRegex {
		t.Fatalf("strategy: want=%s got=%s", StrategyRegex, res.Strategy)
	}
	if len(res.Items) != 2 {
		t.Fatalf("items: want=2 got=%+v", res.Items)
	}
	if res.Items[0].FoodName != "Chapati" || res.Items[0].VisibleCount != 3 {
		t.Fatalf("first item: want=Chapati x3 got=%+v", res.Items[0])
	}
	if res.Items[1].FoodName != "Dal Tadka" || res.Items[1].VisibleCount != 1 {
		t.Fatalf("second item: want=Dal Tadka x1 got=%+v", res.Items[1])
	}
}

func TestExtractRegexRepeatedMention(t *testing.T) {
	t.Parallel()

	res, err := newTestExtractor().Extract("There are 2 chapatis next to the dal. The 2 chapatis look freshly made.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(res.Items) != 1 || res.Items[0].VisibleCount != 2 {
		t.Fatalf("repeated mention: want=Chapati x2 got=%+v", res.Items)
	}
}

func TestExtractLenientFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		raw    string
		want   []food.DetectedItem
		wantCf float64
	}{
		{
			name: "numeric weight",
			raw: `{"detectedItems":[{"foodName":"Chapati","visibleCount":2,"estimatedWeightPerPiece":40},
				{"foodName":"Dal Tadka","visibleCount":1,"estimatedWeightPerPiece":150}]}`,
			want: []food.DetectedItem{
				{FoodName: "Chapati", VisibleCount: 2, PerUnitWeight: "40g"},
				{FoodName: "Dal Tadka", VisibleCount: 1, PerUnitWeight: "150g"},
			},
			wantCf: 0.85,
		},
		{
			name: "count in words",
			raw:  `{"detectedItems":[{"foodName":"Samosa","visibleCount":"a few"},{"foodName":"Chapati","visibleCount":3}]}`,
			want: []food.DetectedItem{
				{FoodName: "Samosa", VisibleCount: 1},
				{FoodName: "Chapati", VisibleCount: 3},
			},
			wantCf: 0.85,
		},
		{
			name:   "count with unit",
			raw:    `{"detectedItems":[{"foodName":"Mystery Stew","visibleCount":"2 bowls","weight":"250 g"}]}`,
			want:   []food.DetectedItem{{FoodName: "Mystery Stew", VisibleCount: 2, PerUnitWeight: "250 g"}},
			wantCf: 0.85,
		},
		{
			name:   "fractional count and text confidence",
			raw:    `{"items":[{"name":"Idli","count":2.6}],"confidence":"high"}`,
			want:   []food.DetectedItem{{FoodName: "Idli", VisibleCount: 2}},
			wantCf: 0.85,
		},
		{
			name:   "null and object fields",
			raw:    `{"detectedItems":[{"foodName":"Naan","visibleCount":null,"estimatedWeightPerPiece":{"g":90}}],"confidence":"0.6"}`,
			want:   []food.DetectedItem{{FoodName: "Naan", VisibleCount: 1}},
			wantCf: 0.6,
		},
	}
	x := newTestExtractor()
	for _, tc := range cases {
		res, err := x.Extract(tc.raw)
		if err != nil {
			t.Fatalf("%s: Extract: %v", tc.name, err)
		}
		if res.Strategy != StrategyJSON {
			t.Fatalf("%s: strategy want=%s got=%s", tc.name, StrategyJSON, res.Strategy)
		}
		if len(res.Items) != len(tc.want) {
			t.Fatalf("%s: items want=%+v got=%+v", tc.name, tc.want, res.Items)
		}
		for i, want := range tc.want {
			if res.Items[i] != want {
				t.Fatalf("%s: item %d want=%+v got=%+v", tc.name, i, want, res.Items[i])
			}
		}
		if res.Confidence != tc.wantCf {
			t.Fatalf("%s: confidence want=%v got=%v", tc.name, tc.wantCf, res.Confidence)
		}
	}
}

func TestExtractWrongShapeFallsBack(t *testing.T) {
	t.Parallel()

	res, err := newTestExtractor().Extract(`{"description": "2 idlis with sambar"}`)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Strategy != StrategyRegex || res.Items[0].FoodName != "Idli" || res.Items[0].VisibleCount != 2 {
		t.Fatalf("wrong shape: got=%+v strategy=%s", res.Items, res.Strategy)
	}
}

func TestExtractBestGuess(t *testing.T) {
	t.Parallel()

	res, err := newTestExtractor().Extract("This looks like a plate of biryani with some raita.")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if res.Strategy != StrategyBestGuess {
		t.Fatalf("strategy: want=%s got=%s", StrategyBestGuess, res.Strategy)
	}
	if res.Items[0].FoodName != "Biryani" || res.Items[0].VisibleCount != 1 {
		t.Fatalf("best guess: want=Biryani x1 got=%+v", res.Items[0])
	}
}

func TestExtractFailure(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "   ", "I cannot identify anything in this photo."} {
		_, err := newTestExtractor().Extract(raw)
		if !errors.Is(err, common.ErrParse) {
			t.Fatalf("Extract(%q): want ErrParse got=%v", raw, err)
		}
	}
}

func TestExtractObject(t *testing.T) {
	t.Parallel()

	var v struct {
		Calories float64 `json:"calories"`
	}
	if err := ExtractObject("```json\n{\"calories\": 210}\n```", &v); err != nil {
		t.Fatalf("ExtractObject: %v", err)
	}
	if v.Calories != 210 {
		t.Fatalf("calories: want=210 got=%v", v.Calories)
	}
	if err := ExtractObject("no json here", &v); !errors.Is(err, common.ErrParse) {
		t.Fatalf("ExtractObject no object: want ErrParse got=%v", err)
	}
}
