package usecase

import (
	"reflect"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/recipeprice/backend/internal/domain"
)

func TestNewMatchingService(t *testing.T) {
	t.Run("uses defaults for zero config", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{})
		if svc.maxTruncation != defaultMaxTruncation {
			t.Errorf("maxTruncation = %d, want %d", svc.maxTruncation, defaultMaxTruncation)
		}
		if svc.minSimilarity != defaultMinSimilarity {
			t.Errorf("minSimilarity = %v, want %v", svc.minSimilarity, defaultMinSimilarity)
		}
		if svc.suggestions != 0 {
			t.Errorf("suggestions = %d, want 0 (disabled)", svc.suggestions)
		}
	})

	t.Run("negative suggestions fall back to default", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{Suggestions: -1})
		if svc.suggestions != defaultSuggestions {
			t.Errorf("suggestions = %d, want %d", svc.suggestions, defaultSuggestions)
		}
	})

	t.Run("keeps provided values", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{MaxTruncation: 2, Suggestions: 5, MinSimilarity: 0.9})
		if svc.maxTruncation != 2 || svc.suggestions != 5 || svc.minSimilarity != 0.9 {
			t.Errorf("got %+v", svc)
		}
	})
}

func TestMatch(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})

	testCases := []struct {
		name    string
		product string
		catalog []string
		want    string
	}{
		{
			name:    "exact name matches at level 0",
			product: "farine",
			catalog: []string{"farine de blé", "farine"},
			want:    "farine",
		},
		{
			name:    "ingredient contained in product name",
			product: "Farine de blé T45 1kg",
			catalog: []string{"sucre", "farine de blé"},
			want:    "farine de blé",
		},
		{
			name:    "earlier catalog name wins ties",
			product: "Lait entier bio",
			catalog: []string{"lait", "lait entier"},
			want:    "lait",
		},
		{
			name:    "untruncated names are tried before any truncation",
			product: "Lait entier bio",
			catalog: []string{"lait demi-écrémé", "lait entier"},
			want:    "lait entier",
		},
		{
			name:    "truncated ingredient name",
			product: "Crème fraîche légère",
			catalog: []string{"crème fraîche épaisse"},
			want:    "crème fraîche épaisse",
		},
		{
			name:    "case insensitive",
			product: "BEURRE DOUX",
			catalog: []string{"beurre"},
			want:    "beurre",
		},
		{
			name:    "punctuation deletion merges words",
			product: "Lait-Entier",
			catalog: []string{"lait entier", "laitentier"},
			want:    "laitentier",
		},
		{
			name:    "accents must match without folding",
			product: "Creme liquide",
			catalog: []string{"crème liquide"},
			want:    domain.Unassigned,
		},
		{
			name:    "no match",
			product: "Chocolat noir",
			catalog: []string{"farine", "sucre"},
			want:    domain.Unassigned,
		},
		{
			name:    "empty product name",
			product: "",
			catalog: []string{"farine"},
			want:    domain.Unassigned,
		},
		{
			name:    "punctuation only product name",
			product: "--",
			catalog: []string{"farine"},
			want:    domain.Unassigned,
		},
		{
			name:    "empty catalog",
			product: "Farine",
			catalog: nil,
			want:    domain.Unassigned,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := svc.Match(tc.product, domain.NewCatalog(tc.catalog...))
			if got != tc.want {
				t.Errorf("Match(%q) = %q, want %q", tc.product, got, tc.want)
			}
		})
	}
}

func TestMatch_TruncationLimit(t *testing.T) {
	catalog := domain.NewCatalog("sauce tomate basilic ail oignon poivre sel")
	product := "Sauce pour pâtes"

	if got := NewMatchingService(MatchConfig{MaxTruncation: 5}).Match(product, catalog); got != domain.Unassigned {
		t.Errorf("with 5 levels Match() = %q, want unassigned", got)
	}
	want := "sauce tomate basilic ail oignon poivre sel"
	if got := NewMatchingService(MatchConfig{MaxTruncation: 6}).Match(product, catalog); got != want {
		t.Errorf("with 6 levels Match() = %q, want %q", got, want)
	}
}

func TestMatch_FoldAccents(t *testing.T) {
	svc := NewMatchingService(MatchConfig{FoldAccents: true})
	catalog := domain.NewCatalog("crème fraîche")

	if got := svc.Match("Creme fraiche epaisse", catalog); got != "crème fraîche" {
		t.Errorf("Match() = %q, want crème fraîche", got)
	}
}

func TestTruncateWords(t *testing.T) {
	words := []string{"crème", "fraîche", "épaisse"}

	testCases := []struct {
		n    int
		want string
	}{
		{n: 0, want: "crème fraîche épaisse"},
		{n: 1, want: "crème fraîche"},
		{n: 2, want: "crème"},
		{n: 3, want: ""},
		{n: 5, want: ""},
	}

	for _, tc := range testCases {
		if got := truncateWords(words, tc.n); got != tc.want {
			t.Errorf("truncateWords(%d) = %q, want %q", tc.n, got, tc.want)
		}
	}
}

func TestFirstSubstringMatch(t *testing.T) {
	product := []string{"farine", "de", "blé", "t45"}

	testCases := []struct {
		needle string
		want   bool
	}{
		{needle: "farine de blé", want: true},
		{needle: "blé t45", want: true},
		{needle: "rine d", want: true},
		{needle: "farine de seigle", want: false},
	}

	for _, tc := range testCases {
		if got := firstSubstringMatch(tc.needle, product); got != tc.want {
			t.Errorf("firstSubstringMatch(%q) = %v, want %v", tc.needle, got, tc.want)
		}
	}

	if firstSubstringMatch("farine", nil) {
		t.Error("firstSubstringMatch on empty product = true, want false")
	}
}

func testProducts() []domain.PriceRecord {
	return []domain.PriceRecord{
		{Source: domain.SourceALDI, Name: "Farine de blé T45"},
		{Source: domain.SourceALDI, Name: "Lait demi-écrémé 1L"},
		{Source: domain.SourceUSP, Name: "Chocolas noir", Ingredient: "stale"},
		{Source: domain.SourceUSP, Name: "Riz basmati"},
	}
}

func TestAssignIngredients(t *testing.T) {
	svc := NewMatchingService(MatchConfig{})
	catalog := domain.NewCatalog("farine", "lait", "chocolat", "oeufs")
	products := testProducts()

	svc.AssignIngredients(products, catalog)

	want := []string{"farine", "lait", domain.Unassigned, domain.Unassigned}
	for i, p := range products {
		if p.Ingredient != want[i] {
			t.Errorf("products[%d].Ingredient = %q, want %q", i, p.Ingredient, want[i])
		}
	}

	t.Run("is idempotent", func(t *testing.T) {
		again := make([]domain.PriceRecord, len(products))
		copy(again, products)
		svc.AssignIngredients(again, catalog)

		if !reflect.DeepEqual(again, products) {
			t.Errorf("second assignment differs: %+v vs %+v", again, products)
		}
	})
}

func TestMatchReport(t *testing.T) {
	svc := NewMatchingService(MatchConfig{Suggestions: 3})
	catalog := domain.NewCatalog("farine", "lait", "chocolat", "oeufs")
	products := testProducts()
	svc.AssignIngredients(products, catalog)

	report := svc.BuildMatchReport(products, catalog)

	wantStats := domain.MatchStats{
		Products:             4,
		MatchedProducts:      2,
		UnmatchedProducts:    2,
		Ingredients:          4,
		UnmatchedIngredients: 2,
	}
	if report.Stats != wantStats {
		t.Errorf("Stats = %+v, want %+v", report.Stats, wantStats)
	}

	if !reflect.DeepEqual(report.UnmatchedProducts, []string{"Chocolas noir", "Riz basmati"}) {
		t.Errorf("UnmatchedProducts = %v", report.UnmatchedProducts)
	}

	if len(report.UnmatchedIngredients) != 2 {
		t.Fatalf("UnmatchedIngredients = %+v, want chocolat and oeufs", report.UnmatchedIngredients)
	}
	chocolat := report.UnmatchedIngredients[0]
	if chocolat.Ingredient != "chocolat" {
		t.Errorf("first unmatched ingredient = %q, want chocolat", chocolat.Ingredient)
	}
	if len(chocolat.Candidates) != 1 || chocolat.Candidates[0].Name != "Chocolas noir" {
		t.Errorf("chocolat candidates = %+v, want Chocolas noir", chocolat.Candidates)
	}
	if oeufs := report.UnmatchedIngredients[1]; len(oeufs.Candidates) != 0 {
		t.Errorf("oeufs candidates = %+v, want none", oeufs.Candidates)
	}
}

func TestSuggestProducts(t *testing.T) {
	products := []domain.PriceRecord{
		{Source: domain.SourceUSP, Name: "Chocolas noir"},
		{Source: domain.SourceALDI, Name: "Chocolat au lait"},
		{Source: domain.SourceALDI, Name: "Chocolat au lait"},
		{Source: domain.SourceALDI, Name: "Riz basmati"},
	}

	t.Run("ranks by similarity and drops duplicates", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{Suggestions: 3})
		got := svc.SuggestProducts("chocolat", products)

		if len(got) != 2 {
			t.Fatalf("SuggestProducts() = %+v, want 2 candidates", got)
		}
		if got[0].Name != "Chocolat au lait" || got[0].Similarity != 1 {
			t.Errorf("best = %+v, want exact window Chocolat au lait", got[0])
		}
		if got[1].Name != "Chocolas noir" {
			t.Errorf("second = %+v, want Chocolas noir", got[1])
		}
	})

	t.Run("limits the number of candidates", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{Suggestions: 1})
		if got := svc.SuggestProducts("chocolat", products); len(got) != 1 {
			t.Errorf("SuggestProducts() = %+v, want 1 candidate", got)
		}
	})

	t.Run("disabled with zero suggestions", func(t *testing.T) {
		svc := NewMatchingService(MatchConfig{Suggestions: 0})
		if got := svc.SuggestProducts("chocolat", products); len(got) != 0 {
			t.Errorf("SuggestProducts() = %+v, want none", got)
		}
	})
}

func TestMatch_Deterministic(t *testing.T) {
	words := []string{"lait", "farine", "sucre", "beurre", "de", "blé", "entier", "bio", "crème"}
	svc := NewMatchingService(MatchConfig{})

	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfN(rapid.SampledFrom(words), 1, 4).Draw(t, "ingredient words")
		catalog := domain.NewCatalog(strings.Join(names, " "), names[0])
		product := strings.Join(rapid.SliceOfN(rapid.SampledFrom(words), 0, 6).Draw(t, "product words"), " ")

		first := svc.Match(product, catalog)
		second := svc.Match(product, catalog)
		if first != second {
			t.Fatalf("Match(%q) = %q then %q", product, first, second)
		}
		if first != domain.Unassigned && !catalog.Contains(first) {
			t.Fatalf("Match(%q) = %q, not a catalog name", product, first)
		}
		if product == names[0] && first == domain.Unassigned {
			t.Fatalf("Match(%q) found nothing although the name is in the catalog", product)
		}
	})
}
