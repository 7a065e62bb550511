package catalog

// Category is the top-level grouping of the menu. SubCategories holds the IDs of the
// subcategories created under it, in creation order.
type Category struct {
	ID               string   `json:"_id"`
	Name             string   `json:"name"`
	Image            string   `json:"image"`
	Description      string   `json:"description"`
	TaxApplicability bool     `json:"taxApplicability"`
	Tax              *float64 `json:"tax,omitempty"`
	TaxType          string   `json:"taxType,omitempty"`
	SubCategories    []string `json:"subcategories"`
}

// SubCategory belongs to exactly one Category. Its tax fields are a copy of the
// parent's taken at creation time.
type SubCategory struct {
	ID               string   `json:"_id"`
	Name             string   `json:"name"`
	Image            string   `json:"image"`
	Description      string   `json:"description"`
	TaxApplicability bool     `json:"taxApplicability"`
	Tax              *float64 `json:"tax,omitempty"`
	CategoryID       string   `json:"category"`
	Items            []string `json:"items"`
}

// Item is a priced menu entry attached to either a Category or a SubCategory.
type Item struct {
	ID               string   `json:"_id"`
	Name             string   `json:"name"`
	Image            string   `json:"image"`
	Description      string   `json:"description"`
	TaxApplicability bool     `json:"taxApplicability"`
	Tax              *float64 `json:"tax,omitempty"`
	BaseAmount       float64  `json:"baseAmount"`
	Discount         float64  `json:"discount"`
	TotalAmount      float64  `json:"totalAmount"`
	CategoryID       *string  `json:"category,omitempty"`
	SubCategoryID    *string  `json:"subcategory,omitempty"`
}

// ItemParent names the parent an item is created under. Exactly one field must be set.
type ItemParent struct {
	CategoryID    string
	SubCategoryID string
}
