package catalog

import (
	"context"
	"errors"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/menu-catalog/internal/common"
	"github.com/noah-isme/menu-catalog/internal/obs"
	"github.com/noah-isme/menu-catalog/internal/pricing"
)

const (
	entityCategory    = "category"
	entitySubCategory = "subcategory"
	entityItem        = "item"
)

// Service orchestrates catalog writes, tax inheritance, item pricing and caching.
type Service struct {
	store    Store
	cache    *Cache
	pricing  pricing.Strategy
	validate *validator.Validate
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store     Store
	Cache     *Cache
	Pricing   pricing.Strategy
	Validator *validator.Validate
	Logger    *zerolog.Logger
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("catalog: store is required")
	}
	strategy := cfg.Pricing
	if strategy == nil {
		strategy = pricing.Subtract{}
	}
	validate := cfg.Validator
	if validate == nil {
		validate = NewValidator()
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "catalog").Logger()
	}
	return &Service{
		store:    cfg.Store,
		cache:    cfg.Cache,
		pricing:  strategy,
		validate: validate,
		logger:   logger,
	}, nil
}

// CreateCategory validates and persists a new category.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (Category, error) {
	in.trim()
	if err := s.validate.Struct(in); err != nil {
		return Category{}, validationError("Category", err)
	}
	tax, err := NormalizeTax(*in.TaxApplicability, in.Tax)
	if err != nil {
		return Category{}, common.BadRequest("Category validation failed: "+err.Error(), err)
	}
	created, err := s.store.InsertCategory(ctx, Category{
		Name:             in.Name,
		Image:            in.Image,
		Description:      in.Description,
		TaxApplicability: *in.TaxApplicability,
		Tax:              tax,
		TaxType:          in.TaxType,
		SubCategories:    []string{},
	})
	obs.CountCatalogWrite(entityCategory, "create", err)
	if err != nil {
		return Category{}, common.Internal("failed to create category", err)
	}
	return created, nil
}

// ListCategories returns every category.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, common.Internal("failed to list categories", err)
	}
	return rows, nil
}

// GetCategory returns the category identified by id.
func (s *Service) GetCategory(ctx context.Context, id string) (Category, error) {
	id = strings.TrimSpace(id)
	var cached Category
	if s.cacheGet(ctx, entityCategory, categoryKey(id), &cached) {
		return cached, nil
	}
	category, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return Category{}, lookupError("Category", err)
	}
	s.cacheSet(ctx, categoryKey(category.ID), category)
	return category, nil
}

// FindCategoriesByName returns categories whose name matches exactly.
func (s *Service) FindCategoriesByName(ctx context.Context, name string) ([]Category, error) {
	rows, err := s.store.FindCategoriesByName(ctx, name)
	if err != nil {
		return nil, common.Internal("failed to find categories", err)
	}
	return rows, nil
}

// UpdateCategory replaces the descriptive and tax fields of a category. Subcategories
// created earlier keep the tax they were created with.
func (s *Service) UpdateCategory(ctx context.Context, id string, in CategoryInput) (Category, error) {
	id = strings.TrimSpace(id)
	in.trim()
	if err := s.validate.Struct(in); err != nil {
		return Category{}, validationError("Category", err)
	}
	tax, err := NormalizeTax(*in.TaxApplicability, in.Tax)
	if err != nil {
		return Category{}, common.BadRequest("Category validation failed: "+err.Error(), err)
	}
	updated, err := s.store.UpdateCategory(ctx, id, CategoryUpdate{
		Name:             in.Name,
		Image:            in.Image,
		Description:      in.Description,
		TaxApplicability: *in.TaxApplicability,
		Tax:              tax,
		TaxType:          in.TaxType,
	})
	obs.CountCatalogWrite(entityCategory, "update", err)
	if err != nil {
		return Category{}, writeError("Category", "failed to update category", err)
	}
	s.evict(ctx, categoryKey(updated.ID))
	return updated, nil
}

// CreateSubCategory persists a subcategory under categoryID, copying the category tax
// settings, then appends it to the category's subcategory list.
func (s *Service) CreateSubCategory(ctx context.Context, categoryID string, in SubCategoryInput) (SubCategory, error) {
	categoryID = strings.TrimSpace(categoryID)
	parent, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return SubCategory{}, lookupError("Category", err)
	}
	in.trim()
	if err := s.validate.Struct(in); err != nil {
		return SubCategory{}, validationError("SubCategory", err)
	}
	snapshot := ResolveSubcategoryTax(parent)
	created, err := s.store.InsertSubCategory(ctx, SubCategory{
		Name:             in.Name,
		Image:            in.Image,
		Description:      in.Description,
		TaxApplicability: snapshot.TaxApplicability,
		Tax:              snapshot.Tax,
		CategoryID:       parent.ID,
		Items:            []string{},
	})
	obs.CountCatalogWrite(entitySubCategory, "create", err)
	if err != nil {
		return SubCategory{}, common.Internal("failed to create subcategory", err)
	}
	if err := s.store.LinkSubCategory(ctx, parent.ID, created.ID); err != nil {
		s.orphaned(entitySubCategory, created.ID, parent.ID, err)
		return SubCategory{}, common.Internal("subcategory created but not linked to its category", err)
	}
	s.evict(ctx, categoryKey(parent.ID))
	return created, nil
}

// ListSubCategories returns every subcategory.
func (s *Service) ListSubCategories(ctx context.Context) ([]SubCategory, error) {
	rows, err := s.store.ListSubCategories(ctx)
	if err != nil {
		return nil, common.Internal("failed to list subcategories", err)
	}
	return rows, nil
}

// ListSubCategoriesByCategory resolves the subcategory list of a category.
func (s *Service) ListSubCategoriesByCategory(ctx context.Context, categoryID string) ([]SubCategory, error) {
	category, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListSubCategoriesByIDs(ctx, category.SubCategories)
	if err != nil {
		return nil, common.Internal("failed to list subcategories", err)
	}
	return rows, nil
}

// GetSubCategory returns the subcategory identified by id.
func (s *Service) GetSubCategory(ctx context.Context, id string) (SubCategory, error) {
	id = strings.TrimSpace(id)
	var cached SubCategory
	if s.cacheGet(ctx, entitySubCategory, subCategoryKey(id), &cached) {
		return cached, nil
	}
	sub, err := s.store.GetSubCategory(ctx, id)
	if err != nil {
		return SubCategory{}, lookupError("Subcategory", err)
	}
	s.cacheSet(ctx, subCategoryKey(sub.ID), sub)
	return sub, nil
}

// FindSubCategoriesByName returns subcategories whose name matches exactly.
func (s *Service) FindSubCategoriesByName(ctx context.Context, name string) ([]SubCategory, error) {
	rows, err := s.store.FindSubCategoriesByName(ctx, name)
	if err != nil {
		return nil, common.Internal("failed to find subcategories", err)
	}
	return rows, nil
}

// UpdateSubCategory replaces name, image and description. Tax fields never change.
func (s *Service) UpdateSubCategory(ctx context.Context, id string, in SubCategoryInput) (SubCategory, error) {
	id = strings.TrimSpace(id)
	in.trim()
	if err := s.validate.Struct(in); err != nil {
		return SubCategory{}, validationError("SubCategory", err)
	}
	updated, err := s.store.UpdateSubCategory(ctx, id, SubCategoryUpdate{
		Name:        in.Name,
		Image:       in.Image,
		Description: in.Description,
	})
	obs.CountCatalogWrite(entitySubCategory, "update", err)
	if err != nil {
		return SubCategory{}, writeError("Subcategory", "failed to update subcategory", err)
	}
	s.evict(ctx, subCategoryKey(updated.ID))
	return updated, nil
}

// CreateItem persists an item under exactly one parent. Tax fields come from the input,
// not from the parent. Items created under a subcategory are appended to its item list;
// items created directly under a category leave the category untouched.
func (s *Service) CreateItem(ctx context.Context, parent ItemParent, in ItemInput) (Item, error) {
	parent.CategoryID = strings.TrimSpace(parent.CategoryID)
	parent.SubCategoryID = strings.TrimSpace(parent.SubCategoryID)

	item := Item{}
	switch {
	case parent.SubCategoryID != "" && parent.CategoryID != "":
		return Item{}, common.BadRequest("An item belongs to either a subcategory or a category, not both", nil)
	case parent.SubCategoryID != "":
		sub, err := s.store.GetSubCategory(ctx, parent.SubCategoryID)
		if err != nil {
			return Item{}, lookupError("Subcategory", err)
		}
		item.SubCategoryID = &sub.ID
	case parent.CategoryID != "":
		category, err := s.store.GetCategory(ctx, parent.CategoryID)
		if err != nil {
			return Item{}, lookupError("Category", err)
		}
		item.CategoryID = &category.ID
	default:
		return Item{}, common.BadRequest("Either subcategoryId or categoryId is required", nil)
	}

	in.trim()
	if err := s.validate.Struct(in); err != nil {
		return Item{}, validationError("Item", err)
	}
	tax, err := NormalizeTax(*in.TaxApplicability, in.Tax)
	if err != nil {
		return Item{}, common.BadRequest("Item validation failed: "+err.Error(), err)
	}
	item.Name = in.Name
	item.Image = in.Image
	item.Description = in.Description
	item.TaxApplicability = *in.TaxApplicability
	item.Tax = tax
	item.BaseAmount = *in.BaseAmount
	item.Discount = in.discount()
	item.TotalAmount, err = s.total(item.BaseAmount, item.Discount, item.TaxApplicability, tax)
	if err != nil {
		return Item{}, err
	}

	created, err := s.store.InsertItem(ctx, item)
	obs.CountCatalogWrite(entityItem, "create", err)
	if err != nil {
		return Item{}, common.Internal("failed to create item", err)
	}
	if created.SubCategoryID != nil {
		if err := s.store.LinkItem(ctx, *created.SubCategoryID, created.ID); err != nil {
			s.orphaned(entityItem, created.ID, *created.SubCategoryID, err)
			return Item{}, common.Internal("item created but not linked to its subcategory", err)
		}
		s.evict(ctx, subCategoryKey(*created.SubCategoryID))
	}
	return created, nil
}

// ListItems returns every item.
func (s *Service) ListItems(ctx context.Context) ([]Item, error) {
	rows, err := s.store.ListItems(ctx)
	if err != nil {
		return nil, common.Internal("failed to list items", err)
	}
	return rows, nil
}

// ListItemsByCategory returns the items attached directly to the category followed by
// the items of each of its subcategories, in subcategory order.
func (s *Service) ListItemsByCategory(ctx context.Context, categoryID string) ([]Item, error) {
	category, err := s.GetCategory(ctx, categoryID)
	if err != nil {
		return nil, err
	}
	direct, err := s.store.ListItemsByCategory(ctx, category.ID)
	if err != nil {
		return nil, common.Internal("failed to list items", err)
	}
	subs, err := s.store.ListSubCategoriesByIDs(ctx, category.SubCategories)
	if err != nil {
		return nil, common.Internal("failed to list subcategories", err)
	}
	var ids []string
	for _, sub := range subs {
		ids = append(ids, sub.Items...)
	}
	nested, err := s.store.ListItemsByIDs(ctx, ids)
	if err != nil {
		return nil, common.Internal("failed to list items", err)
	}
	return append(direct, nested...), nil
}

// ListItemsBySubCategory resolves the item list of a subcategory.
func (s *Service) ListItemsBySubCategory(ctx context.Context, subCategoryID string) ([]Item, error) {
	sub, err := s.GetSubCategory(ctx, subCategoryID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ListItemsByIDs(ctx, sub.Items)
	if err != nil {
		return nil, common.Internal("failed to list items", err)
	}
	return rows, nil
}

// GetItem returns the item identified by id.
func (s *Service) GetItem(ctx context.Context, id string) (Item, error) {
	id = strings.TrimSpace(id)
	var cached Item
	if s.cacheGet(ctx, entityItem, itemKey(id), &cached) {
		return cached, nil
	}
	item, err := s.store.GetItem(ctx, id)
	if err != nil {
		return Item{}, lookupError("Item", err)
	}
	s.cacheSet(ctx, itemKey(item.ID), item)
	return item, nil
}

// FindItemsByName returns items whose name matches exactly. No match is an empty list.
func (s *Service) FindItemsByName(ctx context.Context, name string) ([]Item, error) {
	rows, err := s.store.FindItemsByName(ctx, name)
	if err != nil {
		return nil, common.Internal("failed to find items", err)
	}
	return rows, nil
}

// UpdateItem replaces the item fields and recomputes its total from the amounts in the
// same request.
func (s *Service) UpdateItem(ctx context.Context, id string, in ItemInput) (Item, error) {
	id = strings.TrimSpace(id)
	in.trim()
	if err := s.validate.Struct(in); err != nil {
		return Item{}, validationError("Item", err)
	}
	tax, err := NormalizeTax(*in.TaxApplicability, in.Tax)
	if err != nil {
		return Item{}, common.BadRequest("Item validation failed: "+err.Error(), err)
	}
	discount := in.discount()
	total, err := s.total(*in.BaseAmount, discount, *in.TaxApplicability, tax)
	if err != nil {
		return Item{}, err
	}
	updated, err := s.store.UpdateItem(ctx, id, ItemUpdate{
		Name:             in.Name,
		Image:            in.Image,
		Description:      in.Description,
		TaxApplicability: *in.TaxApplicability,
		Tax:              tax,
		BaseAmount:       *in.BaseAmount,
		Discount:         discount,
		TotalAmount:      total,
	})
	obs.CountCatalogWrite(entityItem, "update", err)
	if err != nil {
		return Item{}, writeError("Item", "failed to update item", err)
	}
	s.evict(ctx, itemKey(updated.ID))
	return updated, nil
}

func (s *Service) total(base, discount float64, applicable bool, tax *float64) (float64, error) {
	in := pricing.Input{BaseAmount: base, Discount: discount, TaxApplicable: applicable}
	if tax != nil {
		in.Tax = *tax
	}
	total, err := s.pricing.Total(in)
	if err != nil {
		return 0, common.BadRequest("Item validation failed: "+err.Error(), err)
	}
	return total, nil
}

func (s *Service) orphaned(entity, childID, parentID string, err error) {
	obs.CountCatalogOrphan(entity)
	s.logger.Error().Err(err).
		Str("entity", entity).
		Str("id", childID).
		Str("parent_id", parentID).
		Msg("child persisted without parent link")
}

func (s *Service) cacheGet(ctx context.Context, entity, key string, dst any) bool {
	if !s.cache.enabled() {
		return false
	}
	ok, err := s.cache.GetJSON(ctx, key, dst)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	obs.CountCatalogCache(entity, ok)
	return ok
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if !s.cache.enabled() {
		return
	}
	if err := s.cache.SetJSON(ctx, key, v); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

func (s *Service) evict(ctx context.Context, keys ...string) {
	if !s.cache.enabled() {
		return
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("cache evict failed")
	}
}

func lookupError(entity string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NotFound(entity + " not found")
	}
	return common.Internal("failed to load "+strings.ToLower(entity), err)
}

func writeError(entity, message string, err error) error {
	if errors.Is(err, ErrNotFound) {
		return common.NotFound(entity + " not found")
	}
	return common.Internal(message, err)
}
