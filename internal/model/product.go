package model

// Product is a catalog entry, looked up by its slug.
//
// TypicalSavingPct is marketing copy shown on the product page. The estimate
// package keeps its own per-product coefficients and never reads this field.
type Product struct {
	Slug             string   `json:"slug"`
	Name             string   `json:"name"`
	ShortDesc        string   `json:"shortDesc"`
	LongDesc         string   `json:"longDesc"` // markdown
	Benefits         []string `json:"benefits"`
	TypicalSavingPct float64  `json:"typicalSavingPct"`
}

// ProductSummary is the row shown on the catalog listing.
type ProductSummary struct {
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	ShortDesc string `json:"shortDesc"`
}
