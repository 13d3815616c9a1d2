package catalog

// Category is the catalog grouping a product belongs to.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Product is a point-in-time snapshot of a catalog item. Once a product
// enters the cart this snapshot is what the cart reasons about; live stock
// is not consulted again until checkout.
type Product struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	Stock        int       `json:"stock"`
	IsActive     bool      `json:"isActive"`
	Category     *Category `json:"category"`
}

// Purchasable reports whether a product can enter a cart at all.
func (p Product) Purchasable() bool {
	return p.IsActive && p.Stock > 0
}
