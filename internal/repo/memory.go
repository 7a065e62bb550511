package repo

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/menu-catalog/internal/catalog"
)

// MemoryStore is an in-process catalog.Store. Entities are returned as copies so
// callers never share slices with the store.
type MemoryStore struct {
	mu sync.RWMutex

	categories    map[string]catalog.Category
	subCategories map[string]catalog.SubCategory
	items         map[string]catalog.Item

	categoryOrder    []string
	subCategoryOrder []string
	itemOrder        []string

	newID func() string
}

var _ catalog.Store = (*MemoryStore)(nil)

// normID matches ids case-insensitively the way ObjectID hex parsing does.
func normID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		categories:    map[string]catalog.Category{},
		subCategories: map[string]catalog.SubCategory{},
		items:         map[string]catalog.Item{},
		newID:         func() string { return uuid.NewString() },
	}
}

func (m *MemoryStore) InsertCategory(_ context.Context, c catalog.Category) (catalog.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = m.newID()
	c = cloneCategory(c)
	m.categories[c.ID] = c
	m.categoryOrder = append(m.categoryOrder, c.ID)
	return cloneCategory(c), nil
}

func (m *MemoryStore) GetCategory(_ context.Context, id string) (catalog.Category, error) {
	id = normID(id)
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.categories[id]
	if !ok {
		return catalog.Category{}, catalog.ErrNotFound
	}
	return cloneCategory(c), nil
}

func (m *MemoryStore) ListCategories(_ context.Context) ([]catalog.Category, error) {
	return m.filterCategories(func(catalog.Category) bool { return true }), nil
}

func (m *MemoryStore) FindCategoriesByName(_ context.Context, name string) ([]catalog.Category, error) {
	return m.filterCategories(func(c catalog.Category) bool { return c.Name == name }), nil
}

func (m *MemoryStore) filterCategories(keep func(catalog.Category) bool) []catalog.Category {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Category, 0, len(m.categoryOrder))
	for _, id := range m.categoryOrder {
		if c := m.categories[id]; keep(c) {
			out = append(out, cloneCategory(c))
		}
	}
	return out
}

func (m *MemoryStore) UpdateCategory(_ context.Context, id string, u catalog.CategoryUpdate) (catalog.Category, error) {
	id = normID(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return catalog.Category{}, catalog.ErrNotFound
	}
	c.Name = u.Name
	c.Image = u.Image
	c.Description = u.Description
	c.TaxApplicability = u.TaxApplicability
	c.Tax = copyFloat(u.Tax)
	c.TaxType = u.TaxType
	m.categories[id] = c
	return cloneCategory(c), nil
}

func (m *MemoryStore) LinkSubCategory(_ context.Context, categoryID, subCategoryID string) error {
	categoryID, subCategoryID = normID(categoryID), normID(subCategoryID)
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[categoryID]
	if !ok {
		return catalog.ErrNotFound
	}
	if !slices.Contains(c.SubCategories, subCategoryID) {
		c.SubCategories = append(slices.Clone(c.SubCategories), subCategoryID)
		m.categories[categoryID] = c
	}
	return nil
}

func (m *MemoryStore) InsertSubCategory(_ context.Context, s catalog.SubCategory) (catalog.SubCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.newID()
	s = cloneSubCategory(s)
	m.subCategories[s.ID] = s
	m.subCategoryOrder = append(m.subCategoryOrder, s.ID)
	return cloneSubCategory(s), nil
}

func (m *MemoryStore) GetSubCategory(_ context.Context, id string) (catalog.SubCategory, error) {
	id = normID(id)
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subCategories[id]
	if !ok {
		return catalog.SubCategory{}, catalog.ErrNotFound
	}
	return cloneSubCategory(s), nil
}

func (m *MemoryStore) ListSubCategories(_ context.Context) ([]catalog.SubCategory, error) {
	return m.filterSubCategories(func(catalog.SubCategory) bool { return true }), nil
}

func (m *MemoryStore) FindSubCategoriesByName(_ context.Context, name string) ([]catalog.SubCategory, error) {
	return m.filterSubCategories(func(s catalog.SubCategory) bool { return s.Name == name }), nil
}

func (m *MemoryStore) ListSubCategoriesByIDs(_ context.Context, ids []string) ([]catalog.SubCategory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.SubCategory, 0, len(ids))
	for _, id := range ids {
		if s, ok := m.subCategories[id]; ok {
			out = append(out, cloneSubCategory(s))
		}
	}
	return out, nil
}

func (m *MemoryStore) filterSubCategories(keep func(catalog.SubCategory) bool) []catalog.SubCategory {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.SubCategory, 0, len(m.subCategoryOrder))
	for _, id := range m.subCategoryOrder {
		if s := m.subCategories[id]; keep(s) {
			out = append(out, cloneSubCategory(s))
		}
	}
	return out
}

func (m *MemoryStore) UpdateSubCategory(_ context.Context, id string, u catalog.SubCategoryUpdate) (catalog.SubCategory, error) {
	id = normID(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subCategories[id]
	if !ok {
		return catalog.SubCategory{}, catalog.ErrNotFound
	}
	s.Name = u.Name
	s.Image = u.Image
	s.Description = u.Description
	m.subCategories[id] = s
	return cloneSubCategory(s), nil
}

func (m *MemoryStore) LinkItem(_ context.Context, subCategoryID, itemID string) error {
	subCategoryID, itemID = normID(subCategoryID), normID(itemID)
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subCategories[subCategoryID]
	if !ok {
		return catalog.ErrNotFound
	}
	if !slices.Contains(s.Items, itemID) {
		s.Items = append(slices.Clone(s.Items), itemID)
		m.subCategories[subCategoryID] = s
	}
	return nil
}

func (m *MemoryStore) InsertItem(_ context.Context, it catalog.Item) (catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it.ID = m.newID()
	it = cloneItem(it)
	m.items[it.ID] = it
	m.itemOrder = append(m.itemOrder, it.ID)
	return cloneItem(it), nil
}

func (m *MemoryStore) GetItem(_ context.Context, id string) (catalog.Item, error) {
	id = normID(id)
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[id]
	if !ok {
		return catalog.Item{}, catalog.ErrNotFound
	}
	return cloneItem(it), nil
}

func (m *MemoryStore) ListItems(_ context.Context) ([]catalog.Item, error) {
	return m.filterItems(func(catalog.Item) bool { return true }), nil
}

func (m *MemoryStore) FindItemsByName(_ context.Context, name string) ([]catalog.Item, error) {
	return m.filterItems(func(it catalog.Item) bool { return it.Name == name }), nil
}

func (m *MemoryStore) ListItemsByCategory(_ context.Context, categoryID string) ([]catalog.Item, error) {
	categoryID = normID(categoryID)
	return m.filterItems(func(it catalog.Item) bool {
		return it.CategoryID != nil && *it.CategoryID == categoryID
	}), nil
}

func (m *MemoryStore) ListItemsByIDs(_ context.Context, ids []string) ([]catalog.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Item, 0, len(ids))
	for _, id := range ids {
		if it, ok := m.items[id]; ok {
			out = append(out, cloneItem(it))
		}
	}
	return out, nil
}

func (m *MemoryStore) filterItems(keep func(catalog.Item) bool) []catalog.Item {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]catalog.Item, 0, len(m.itemOrder))
	for _, id := range m.itemOrder {
		if it := m.items[id]; keep(it) {
			out = append(out, cloneItem(it))
		}
	}
	return out
}

func (m *MemoryStore) UpdateItem(_ context.Context, id string, u catalog.ItemUpdate) (catalog.Item, error) {
	id = normID(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return catalog.Item{}, catalog.ErrNotFound
	}
	it.Name = u.Name
	it.Image = u.Image
	it.Description = u.Description
	it.TaxApplicability = u.TaxApplicability
	it.Tax = copyFloat(u.Tax)
	it.BaseAmount = u.BaseAmount
	it.Discount = u.Discount
	it.TotalAmount = u.TotalAmount
	m.items[id] = it
	return cloneItem(it), nil
}

func cloneCategory(c catalog.Category) catalog.Category {
	c.Tax = copyFloat(c.Tax)
	c.SubCategories = cloneIDs(c.SubCategories)
	return c
}

func cloneSubCategory(s catalog.SubCategory) catalog.SubCategory {
	s.Tax = copyFloat(s.Tax)
	s.Items = cloneIDs(s.Items)
	return s
}

func cloneItem(it catalog.Item) catalog.Item {
	it.Tax = copyFloat(it.Tax)
	it.CategoryID = copyString(it.CategoryID)
	it.SubCategoryID = copyString(it.SubCategoryID)
	return it
}

func cloneIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return slices.Clone(ids)
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func copyString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
