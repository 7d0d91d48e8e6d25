package usecase

import (
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"
	"github.com/rs/zerolog/log"

	"github.com/recipeprice/backend/internal/domain"
)

// Matching defaults
const (
	defaultMaxTruncation = 5
	defaultSuggestions   = 3
	defaultMinSimilarity = 0.85
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MaxTruncation      int
	Suggestions        int
	MinSimilarity      float32
	FoldAccents        bool
	EnableDebugLogging bool
}

// MatchingService links scraped product names to canonical ingredient names
type MatchingService struct {
	preprocessor       *QueryPreprocessor
	maxTruncation      int
	suggestions        int
	minSimilarity      float32
	enableDebugLogging bool
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	maxTruncation := config.MaxTruncation
	if maxTruncation <= 0 {
		maxTruncation = defaultMaxTruncation
	}

	suggestions := config.Suggestions
	if suggestions < 0 {
		suggestions = defaultSuggestions
	}

	minSimilarity := config.MinSimilarity
	if minSimilarity <= 0 || minSimilarity > 1 {
		minSimilarity = defaultMinSimilarity
	}

	return &MatchingService{
		preprocessor:       NewQueryPreprocessor(config.FoldAccents, config.EnableDebugLogging),
		maxTruncation:      maxTruncation,
		suggestions:        suggestions,
		minSimilarity:      minSimilarity,
		enableDebugLogging: config.EnableDebugLogging,
	}
}

// candidate is a canonical ingredient split into normalized words
type candidate struct {
	name  string
	words []string
}

// AssignIngredients sets the Ingredient of every product to the first canonical
// name that matches it, or to domain.Unassigned. Products are updated in place.
func (s *MatchingService) AssignIngredients(products []domain.PriceRecord, catalog *domain.Catalog) {
	candidates := s.candidates(catalog)

	for i := range products {
		products[i].Ingredient = s.matchWords(s.words(products[i].Name), candidates)

		if s.enableDebugLogging {
			log.Debug().
				Str("product", products[i].Name).
				Str("source", string(products[i].Source)).
				Str("ingredient", products[i].Ingredient).
				Msg("product assignment")
		}
	}
}

// Match returns the canonical ingredient for a single product name, or domain.Unassigned
func (s *MatchingService) Match(productName string, catalog *domain.Catalog) string {
	return s.matchWords(s.words(productName), s.candidates(catalog))
}

func (s *MatchingService) candidates(catalog *domain.Catalog) []candidate {
	names := catalog.Names()
	candidates := make([]candidate, 0, len(names))
	for _, name := range names {
		candidates = append(candidates, candidate{name: name, words: s.words(name)})
	}
	return candidates
}

func (s *MatchingService) words(name string) []string {
	return strings.Fields(s.preprocessor.PreprocessName(name))
}

// matchWords runs the progressive truncation search. Untruncated ingredient names are
// tried against the product first, then every name shortened by one word, and so on.
// Ties go to the earlier canonical name.
func (s *MatchingService) matchWords(productWords []string, candidates []candidate) string {
	if len(productWords) == 0 {
		return domain.Unassigned
	}

	for level := 0; level <= s.maxTruncation; level++ {
		for _, c := range candidates {
			truncated := truncateWords(c.words, level)
			if truncated == "" {
				continue
			}
			if firstSubstringMatch(truncated, productWords) {
				return c.name
			}
		}
	}

	return domain.Unassigned
}

// truncateWords joins words without their last n entries; empty when nothing is left
func truncateWords(words []string, n int) string {
	if n >= len(words) {
		return ""
	}
	return strings.Join(words[:len(words)-n], " ")
}

// firstSubstringMatch looks for needle in the product name, dropping the product's
// last word after each miss until no word is left
func firstSubstringMatch(needle string, productWords []string) bool {
	for end := len(productWords); end > 0; end-- {
		if strings.Contains(strings.Join(productWords[:end], " "), needle) {
			return true
		}
	}
	return false
}

// UnmatchedProducts returns the records the matcher could not assign
func UnmatchedProducts(products []domain.PriceRecord) []domain.PriceRecord {
	var unmatched []domain.PriceRecord
	for _, p := range products {
		if !p.Assigned() {
			unmatched = append(unmatched, p)
		}
	}
	return unmatched
}

// UnmatchedIngredients returns the canonical names no product was assigned to, in catalog order
func UnmatchedIngredients(products []domain.PriceRecord, catalog *domain.Catalog) []string {
	assigned := make(map[string]bool, len(products))
	for _, p := range products {
		if p.Assigned() {
			assigned[p.Ingredient] = true
		}
	}

	var unmatched []string
	for _, name := range catalog.Names() {
		if !assigned[name] {
			unmatched = append(unmatched, name)
		}
	}
	return unmatched
}

// ComputeMatchStats derives the assignment metrics from the records
func ComputeMatchStats(products []domain.PriceRecord, catalog *domain.Catalog) domain.MatchStats {
	unmatchedProducts := len(UnmatchedProducts(products))
	return domain.MatchStats{
		Products:             len(products),
		MatchedProducts:      len(products) - unmatchedProducts,
		UnmatchedProducts:    unmatchedProducts,
		Ingredients:          catalog.Len(),
		UnmatchedIngredients: len(UnmatchedIngredients(products, catalog)),
	}
}

// BuildMatchReport summarizes an assignment and proposes near-miss unassigned
// products for every unmatched ingredient
func (s *MatchingService) BuildMatchReport(products []domain.PriceRecord, catalog *domain.Catalog) domain.MatchReport {
	report := domain.MatchReport{
		Stats:                ComputeMatchStats(products, catalog),
		UnmatchedIngredients: []domain.IngredientSuggestions{},
		UnmatchedProducts:    []string{},
	}

	unmatched := UnmatchedProducts(products)
	for _, p := range unmatched {
		report.UnmatchedProducts = append(report.UnmatchedProducts, p.Name)
	}

	for _, ingredient := range UnmatchedIngredients(products, catalog) {
		report.UnmatchedIngredients = append(report.UnmatchedIngredients, domain.IngredientSuggestions{
			Ingredient: ingredient,
			Candidates: s.SuggestProducts(ingredient, unmatched),
		})
	}

	return report
}

// SuggestProducts ranks products whose names resemble the ingredient using Jaro-Winkler
// similarity over word windows of the ingredient's length. Only candidates at or above
// the configured similarity are kept, best first.
func (s *MatchingService) SuggestProducts(ingredient string, products []domain.PriceRecord) []domain.SuggestedProduct {
	suggestions := []domain.SuggestedProduct{}
	if s.suggestions == 0 {
		return suggestions
	}

	ingredientWords := s.words(ingredient)
	if len(ingredientWords) == 0 {
		return suggestions
	}
	needle := strings.Join(ingredientWords, " ")

	seen := make(map[string]bool)
	for _, p := range products {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true

		similarity := bestWindowSimilarity(needle, len(ingredientWords), s.words(p.Name))
		if similarity < s.minSimilarity {
			continue
		}
		suggestions = append(suggestions, domain.SuggestedProduct{
			Name:       p.Name,
			Source:     p.Source,
			Similarity: similarity,
		})
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Similarity != suggestions[j].Similarity {
			return suggestions[i].Similarity > suggestions[j].Similarity
		}
		return suggestions[i].Name < suggestions[j].Name
	})

	if len(suggestions) > s.suggestions {
		suggestions = suggestions[:s.suggestions]
	}
	return suggestions
}

func bestWindowSimilarity(needle string, width int, words []string) float32 {
	if len(words) == 0 {
		return 0
	}
	if width > len(words) {
		width = len(words)
	}

	var best float32
	for start := 0; start+width <= len(words); start++ {
		window := strings.Join(words[start:start+width], " ")
		if sim := edlib.JaroWinklerSimilarity(needle, window); sim > best {
			best = sim
		}
	}
	return best
}
