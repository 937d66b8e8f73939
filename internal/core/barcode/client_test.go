package barcode

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"nutrition-lens/internal/core/food"
	"nutrition-lens/internal/infrastructure/config"
	"nutrition-lens/internal/pkg/common"
)

const parleProduct = `{
  "code": "8901719101038",
  "status": 1,
  "status_verbose": "product found",
  "product": {
    "product_name": "Parle-G Gold",
    "brands": "Parle, Parle Products",
    "serving_size": "25 g",
    "ingredients_text": "Wheat flour, sugar, edible vegetable oil (palm), invert syrup, milk solids, leavening agents, salt, emulsifiers, dough conditioner",
    "labels_tags": ["en:vegetarian"],
    "nutriments": {
      "energy-kcal_100g": 456,
      "proteins_100g": 7.1,
      "carbohydrates_100g": 76.4,
      "fat_100g": "13.3",
      "fiber_100g": 1.5,
      "sugars_100g": 25.2,
      "sodium_100g": 0.332,
      "iron_100g": 0.0042,
      "calcium_100g": 0.06
    }
  }
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, cache ProductCache) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.Barcode.BaseURL = srv.URL
	cfg.Retry.MaxAttempts = 2
	cfg.App.Version = "test"
	return NewClient(cfg, cache)
}

func TestLookupParsesProduct(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/product/8901719101038.json" {
			t.Errorf("path: got=%s", r.URL.Path)
		}
		if !strings.Contains(r.URL.Query().Get("fields"), "nutriments") {
			t.Errorf("fields: got=%s", r.URL.Query().Get("fields"))
		}
		_, _ = w.Write([]byte(parleProduct))
	}, nil)

	p, err := c.Lookup(context.Background(), " 8901719101038 ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Name != "Parle-G Gold" || p.Brand != "Parle" || p.ServingSize != "25 g" {
		t.Fatalf("product: got=%+v", p)
	}
	want := food.Nutrition{Calories: 456, Protein: 7.1, Carbs: 76.4, Fat: 13.3, Fiber: 1.5, Sugar: 25.2, Sodium: 332, Iron: 4.2, Calcium: 60}
	if p.Per100g != want {
		t.Fatalf("nutrition: want=%+v got=%+v", want, p.Per100g)
	}
	if len(p.Ingredients) != 8 || p.Ingredients[0] != "Wheat flour" {
		t.Fatalf("ingredients: got=%v", p.Ingredients)
	}
	if !p.Vegetarian || p.Vegan || p.GlutenFree {
		t.Fatalf("flags: got veg=%v vegan=%v gf=%v", p.Vegetarian, p.Vegan, p.GlutenFree)
	}

	report := food.FormatBarcodeReport(*p)
	if report.Method != food.MethodBarcode || report.Confidence != food.BarcodeConfidence {
		t.Fatalf("report: got=%+v", report)
	}
}

func TestLookupNotFound(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "status zero",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{"code":"12345678","status":0,"status_verbose":"product not found"}`))
			},
		},
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = w.Write([]byte(`{"status":0}`))
			},
		},
	}
	for _, tc := range cases {
		var calls int32
		h := tc.handler
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			h(w, r)
		}, nil)
		p, err := c.Lookup(context.Background(), "12345678")
		if !errors.Is(err, common.ErrBarcodeNotFound) || p != nil {
			t.Fatalf("%s: want ErrBarcodeNotFound and nil product got=%v %+v", tc.name, err, p)
		}
		if n := atomic.LoadInt32(&calls); n != 1 {
			t.Fatalf("%s: not-found must not be retried, calls=%d", tc.name, n)
		}
	}
}

func TestLookupUpstreamFailure(t *testing.T) {
	t.Parallel()

	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}, nil)
	_, err := c.Lookup(context.Background(), "12345678")
	if !errors.Is(err, common.ErrBarcodeUnavailable) {
		t.Fatalf("want ErrBarcodeUnavailable got=%v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("calls: want=2 got=%d", n)
	}
}

func TestValidateCode(t *testing.T) {
	t.Parallel()

	for _, bad := range []string{"", "1234567", "123456789012345", "12345abc"} {
		if _, err := ValidateCode(bad); !errors.Is(err, common.ErrInvalidBarcode) {
			t.Fatalf("ValidateCode(%q): want ErrInvalidBarcode got=%v", bad, err)
		}
	}
	if code, err := ValidateCode(" 8901719101038"); err != nil || code != "8901719101038" {
		t.Fatalf("ValidateCode: got=%q err=%v", code, err)
	}
}

type memoryCache struct {
	mu       sync.Mutex
	products map[string]*food.PackagedProduct
}

func (m *memoryCache) GetProduct(ctx context.Context, code string) (*food.PackagedProduct, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[code]; ok {
		return p, nil
	}
	return nil, errors.New("miss")
}

func (m *memoryCache) SetProduct(ctx context.Context, p *food.PackagedProduct) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.Code] = p
	return nil
}

func TestLookupUsesCache(t *testing.T) {
	t.Parallel()

	var calls int32
	cache := &memoryCache{products: map[string]*food.PackagedProduct{}}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(parleProduct))
	}, cache)

	for i := 0; i < 3; i++ {
		if _, err := c.Lookup(context.Background(), "8901719101038"); err != nil {
			t.Fatalf("Lookup %d: %v", i, err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("upstream calls: want=1 got=%d", n)
	}
}

func TestNutrimentsFallbacks(t *testing.T) {
	t.Parallel()

	got := nutrimentsPer100g(map[string]any{
		"energy_100g": 1046.0,
		"salt_100g":   1.0,
	})
	if got.Calories != 250 || got.Sodium != 400 {
		t.Fatalf("fallbacks: want kcal=250 sodium=400 got=%+v", got)
	}
}
