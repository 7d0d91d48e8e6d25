package domain

// MatchStats summarizes an assignment run. It is derived from the records, never stored on them.
type MatchStats struct {
	Products             int `json:"products"`
	MatchedProducts      int `json:"matched_products"`
	UnmatchedProducts    int `json:"unmatched_products"`
	Ingredients          int `json:"ingredients"`
	UnmatchedIngredients int `json:"unmatched_ingredients"`
}

// SuggestedProduct is a product name that resembles an unmatched ingredient
type SuggestedProduct struct {
	Name       string  `json:"name"`
	Source     Source  `json:"source"`
	Similarity float32 `json:"similarity"`
}

// IngredientSuggestions lists near misses for one canonical ingredient no product was assigned to
type IngredientSuggestions struct {
	Ingredient string             `json:"ingredient"`
	Candidates []SuggestedProduct `json:"candidates"`
}

// MatchReport is written next to the assigned price records after a match run
type MatchReport struct {
	Stats                MatchStats              `json:"stats"`
	UnmatchedIngredients []IngredientSuggestions `json:"unmatched_ingredients"`
	UnmatchedProducts    []string                `json:"unmatched_products"`
}
