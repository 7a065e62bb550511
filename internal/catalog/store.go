package catalog

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Store implementations when an entity is absent or its
// identifier cannot exist in the backing store.
var ErrNotFound = errors.New("catalog: not found")

// CategoryUpdate replaces every listed Category field.
type CategoryUpdate struct {
	Name             string
	Image            string
	Description      string
	TaxApplicability bool
	Tax              *float64
	TaxType          string
}

// SubCategoryUpdate replaces the descriptive SubCategory fields. Tax fields are immutable.
type SubCategoryUpdate struct {
	Name        string
	Image       string
	Description string
}

// ItemUpdate replaces every listed Item field.
type ItemUpdate struct {
	Name             string
	Image            string
	Description      string
	TaxApplicability bool
	Tax              *float64
	BaseAmount       float64
	Discount         float64
	TotalAmount      float64
}

// Store persists catalog entities. Relationship lists hold identifiers only; the
// ListXByIDs methods resolve them and keep the order of the supplied IDs, skipping IDs
// that no longer resolve.
//
// LinkSubCategory and LinkItem append a child ID to the parent's list atomically and
// at most once. They are separate writes from the child insert.
type Store interface {
	InsertCategory(ctx context.Context, c Category) (Category, error)
	GetCategory(ctx context.Context, id string) (Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	FindCategoriesByName(ctx context.Context, name string) ([]Category, error)
	UpdateCategory(ctx context.Context, id string, u CategoryUpdate) (Category, error)
	LinkSubCategory(ctx context.Context, categoryID, subCategoryID string) error

	InsertSubCategory(ctx context.Context, s SubCategory) (SubCategory, error)
	GetSubCategory(ctx context.Context, id string) (SubCategory, error)
	ListSubCategories(ctx context.Context) ([]SubCategory, error)
	ListSubCategoriesByIDs(ctx context.Context, ids []string) ([]SubCategory, error)
	FindSubCategoriesByName(ctx context.Context, name string) ([]SubCategory, error)
	UpdateSubCategory(ctx context.Context, id string, u SubCategoryUpdate) (SubCategory, error)
	LinkItem(ctx context.Context, subCategoryID, itemID string) error

	InsertItem(ctx context.Context, it Item) (Item, error)
	GetItem(ctx context.Context, id string) (Item, error)
	ListItems(ctx context.Context) ([]Item, error)
	ListItemsByIDs(ctx context.Context, ids []string) ([]Item, error)
	ListItemsByCategory(ctx context.Context, categoryID string) ([]Item, error)
	FindItemsByName(ctx context.Context, name string) ([]Item, error)
	UpdateItem(ctx context.Context, id string, u ItemUpdate) (Item, error)
}
