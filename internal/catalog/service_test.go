package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/menu-catalog/internal/catalog"
	"github.com/noah-isme/menu-catalog/internal/common"
	"github.com/noah-isme/menu-catalog/internal/pricing"
	"github.com/noah-isme/menu-catalog/internal/repo"
)

func boolPtr(v bool) *bool        { return &v }
func floatPtr(v float64) *float64 { return &v }

func newService(t *testing.T, store catalog.Store, cache *catalog.Cache) *catalog.Service {
	t.Helper()
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store, Cache: cache})
	require.NoError(t, err)
	return svc
}

func beverages() catalog.CategoryInput {
	return catalog.CategoryInput{
		Name:             "Beverages",
		Image:            "bev.png",
		Description:      "Drinks",
		TaxApplicability: boolPtr(true),
		Tax:              floatPtr(5),
	}
}

func hot() catalog.SubCategoryInput {
	return catalog.SubCategoryInput{Name: "Hot", Image: "hot.png", Description: "Hot drinks"}
}

func tea() catalog.ItemInput {
	return catalog.ItemInput{
		Name:             "Tea",
		Image:            "tea.png",
		Description:      "Green tea",
		TaxApplicability: boolPtr(false),
		BaseAmount:       floatPtr(100),
		Discount:         floatPtr(10),
	}
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, status, common.StatusOf(err))
}

func TestNewServiceRequiresStore(t *testing.T) {
	_, err := catalog.NewService(catalog.ServiceConfig{})
	require.Error(t, err)
}

func TestBeveragesScenario(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore()
	svc := newService(t, store, nil)

	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)
	require.Equal(t, 5.0, *category.Tax)

	sub, err := svc.CreateSubCategory(ctx, category.ID, hot())
	require.NoError(t, err)
	require.True(t, sub.TaxApplicability)
	require.Equal(t, 5.0, *sub.Tax)
	require.Equal(t, category.ID, sub.CategoryID)

	item, err := svc.CreateItem(ctx, catalog.ItemParent{SubCategoryID: sub.ID}, tea())
	require.NoError(t, err)
	require.Equal(t, 90.0, item.TotalAmount)
	require.Equal(t, sub.ID, *item.SubCategoryID)
	require.Nil(t, item.CategoryID)
	require.False(t, item.TaxApplicability)

	reloaded, err := svc.GetCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Equal(t, []string{sub.ID}, reloaded.SubCategories)

	reloadedSub, err := svc.GetSubCategory(ctx, sub.ID)
	require.NoError(t, err)
	require.Equal(t, []string{item.ID}, reloadedSub.Items)

	items, err := svc.ListItemsBySubCategory(ctx, sub.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Tea", items[0].Name)
}

func TestSubCategoryTaxIsSnapshot(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, repo.NewMemoryStore(), nil)

	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)
	sub, err := svc.CreateSubCategory(ctx, category.ID, hot())
	require.NoError(t, err)

	update := beverages()
	update.TaxApplicability = boolPtr(false)
	update.Tax = nil
	updated, err := svc.UpdateCategory(ctx, category.ID, update)
	require.NoError(t, err)
	require.False(t, updated.TaxApplicability)
	require.Nil(t, updated.Tax)

	got, err := svc.GetSubCategory(ctx, sub.ID)
	require.NoError(t, err)
	require.True(t, got.TaxApplicability)
	require.Equal(t, 5.0, *got.Tax)

	renamed, err := svc.UpdateSubCategory(ctx, sub.ID, catalog.SubCategoryInput{Name: "Warm", Image: "w.png", Description: "Warm drinks"})
	require.NoError(t, err)
	require.Equal(t, "Warm", renamed.Name)
	require.Equal(t, 5.0, *renamed.Tax)
}

func TestCategoryTaxRequiredWhenApplicable(t *testing.T) {
	svc := newService(t, repo.NewMemoryStore(), nil)
	in := beverages()
	in.Tax = nil
	_, err := svc.CreateCategory(context.Background(), in)
	requireStatus(t, err, http.StatusBadRequest)
	require.Contains(t, err.Error(), "tax is required")
}

func TestCategoryTaxDroppedWhenNotApplicable(t *testing.T) {
	svc := newService(t, repo.NewMemoryStore(), nil)
	in := beverages()
	in.TaxApplicability = boolPtr(false)
	created, err := svc.CreateCategory(context.Background(), in)
	require.NoError(t, err)
	require.Nil(t, created.Tax)
}

func TestCategoryValidationNamesFields(t *testing.T) {
	svc := newService(t, repo.NewMemoryStore(), nil)
	_, err := svc.CreateCategory(context.Background(), catalog.CategoryInput{Name: "  "})
	requireStatus(t, err, http.StatusBadRequest)
	require.Contains(t, err.Error(), "name is required")
	require.Contains(t, err.Error(), "taxApplicability is required")
}

func TestCreateItemParents(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, repo.NewMemoryStore(), nil)

	_, err := svc.CreateItem(ctx, catalog.ItemParent{}, tea())
	requireStatus(t, err, http.StatusBadRequest)
	require.Equal(t, "Either subcategoryId or categoryId is required", err.Error())

	_, err = svc.CreateItem(ctx, catalog.ItemParent{CategoryID: "a", SubCategoryID: "b"}, tea())
	requireStatus(t, err, http.StatusBadRequest)

	_, err = svc.CreateItem(ctx, catalog.ItemParent{SubCategoryID: "missing"}, tea())
	requireStatus(t, err, http.StatusNotFound)
	require.Equal(t, "Subcategory not found", err.Error())

	_, err = svc.CreateItem(ctx, catalog.ItemParent{CategoryID: "missing"}, catalog.ItemInput{})
	requireStatus(t, err, http.StatusNotFound)
}

func TestCreateItemUnderCategoryLeavesCategoryUntouched(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, repo.NewMemoryStore(), nil)

	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)
	sub, err := svc.CreateSubCategory(ctx, category.ID, hot())
	require.NoError(t, err)
	before, err := svc.GetCategory(ctx, category.ID)
	require.NoError(t, err)

	in := tea()
	in.Name = "Water"
	in.Discount = nil
	direct, err := svc.CreateItem(ctx, catalog.ItemParent{CategoryID: category.ID}, in)
	require.NoError(t, err)
	require.Equal(t, category.ID, *direct.CategoryID)
	require.Nil(t, direct.SubCategoryID)
	require.Equal(t, 0.0, direct.Discount)
	require.Equal(t, 100.0, direct.TotalAmount)

	after, err := svc.GetCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Equal(t, before, after)

	nested, err := svc.CreateItem(ctx, catalog.ItemParent{SubCategoryID: sub.ID}, tea())
	require.NoError(t, err)

	rows, err := svc.ListItemsByCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, direct.ID, rows[0].ID)
	require.Equal(t, nested.ID, rows[1].ID)
}

func TestItemTaxComesFromRequest(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, repo.NewMemoryStore(), nil)
	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)

	in := tea()
	in.TaxApplicability = boolPtr(true)
	_, err = svc.CreateItem(ctx, catalog.ItemParent{CategoryID: category.ID}, in)
	requireStatus(t, err, http.StatusBadRequest)

	in.Tax = floatPtr(12)
	item, err := svc.CreateItem(ctx, catalog.ItemParent{CategoryID: category.ID}, in)
	require.NoError(t, err)
	require.Equal(t, 12.0, *item.Tax)
}

func TestUpdateItemRecomputesTotal(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, repo.NewMemoryStore(), nil)
	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)
	item, err := svc.CreateItem(ctx, catalog.ItemParent{CategoryID: category.ID}, tea())
	require.NoError(t, err)

	in := tea()
	in.BaseAmount = floatPtr(19.99)
	in.Discount = floatPtr(4.99)
	updated, err := svc.UpdateItem(ctx, item.ID, in)
	require.NoError(t, err)
	require.Equal(t, 15.0, updated.TotalAmount)
	require.Equal(t, category.ID, *updated.CategoryID)

	in.BaseAmount = nil
	_, err = svc.UpdateItem(ctx, item.ID, in)
	requireStatus(t, err, http.StatusBadRequest)

	_, err = svc.UpdateItem(ctx, "missing", tea())
	requireStatus(t, err, http.StatusNotFound)
}

func TestTaxInclusiveStrategy(t *testing.T) {
	ctx := context.Background()
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:   repo.NewMemoryStore(),
		Pricing: pricing.TaxInclusive{},
	})
	require.NoError(t, err)
	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)

	in := tea()
	in.TaxApplicability = boolPtr(true)
	in.Tax = floatPtr(10)
	item, err := svc.CreateItem(ctx, catalog.ItemParent{CategoryID: category.ID}, in)
	require.NoError(t, err)
	require.Equal(t, 100.0, item.TotalAmount)
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, repo.NewMemoryStore(), nil)

	_, err := svc.GetCategory(ctx, "nope")
	requireStatus(t, err, http.StatusNotFound)
	require.Equal(t, "Category not found", err.Error())
	_, err = svc.GetSubCategory(ctx, "nope")
	requireStatus(t, err, http.StatusNotFound)
	_, err = svc.GetItem(ctx, "nope")
	requireStatus(t, err, http.StatusNotFound)
	_, err = svc.CreateSubCategory(ctx, "nope", hot())
	requireStatus(t, err, http.StatusNotFound)
	_, err = svc.UpdateCategory(ctx, "nope", beverages())
	requireStatus(t, err, http.StatusNotFound)
	_, err = svc.UpdateSubCategory(ctx, "nope", hot())
	requireStatus(t, err, http.StatusNotFound)
	_, err = svc.ListSubCategoriesByCategory(ctx, "nope")
	requireStatus(t, err, http.StatusNotFound)
	_, err = svc.ListItemsByCategory(ctx, "nope")
	requireStatus(t, err, http.StatusNotFound)
}

func TestMissingParentWinsOverValidation(t *testing.T) {
	svc := newService(t, repo.NewMemoryStore(), nil)
	_, err := svc.CreateSubCategory(context.Background(), "nope", catalog.SubCategoryInput{})
	requireStatus(t, err, http.StatusNotFound)
}

func TestFindByNameIsExact(t *testing.T) {
	ctx := context.Background()
	svc := newService(t, repo.NewMemoryStore(), nil)
	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)
	_, err = svc.CreateItem(ctx, catalog.ItemParent{CategoryID: category.ID}, tea())
	require.NoError(t, err)

	rows, err := svc.FindItemsByName(ctx, "Tea")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	rows, err = svc.FindItemsByName(ctx, "tea")
	require.NoError(t, err)
	require.Empty(t, rows)

	cats, err := svc.FindCategoriesByName(ctx, "Beverages")
	require.NoError(t, err)
	require.Len(t, cats, 1)
}

func TestCacheInvalidatedOnWrites(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := newService(t, repo.NewMemoryStore(), catalog.NewCache(client, time.Minute))
	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)

	_, err = svc.GetCategory(ctx, category.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("catalog:category:"+category.ID))

	sub, err := svc.CreateSubCategory(ctx, category.ID, hot())
	require.NoError(t, err)
	require.False(t, mr.Exists("catalog:category:"+category.ID))

	got, err := svc.GetCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Equal(t, []string{sub.ID}, got.SubCategories)

	_, err = svc.GetSubCategory(ctx, sub.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("catalog:subcategory:"+sub.ID))
	item, err := svc.CreateItem(ctx, catalog.ItemParent{SubCategoryID: sub.ID}, tea())
	require.NoError(t, err)
	require.False(t, mr.Exists("catalog:subcategory:"+sub.ID))

	_, err = svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists("catalog:item:"+item.ID))
	_, err = svc.UpdateItem(ctx, item.ID, tea())
	require.NoError(t, err)
	require.False(t, mr.Exists("catalog:item:"+item.ID))
}

func TestCacheFailureFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	svc := newService(t, repo.NewMemoryStore(), catalog.NewCache(client, time.Minute))

	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)
	mr.Close()

	got, err := svc.GetCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Equal(t, category.ID, got.ID)
}

// linkFailingStore fails parent link writes after the child insert succeeds.
type linkFailingStore struct {
	*repo.MemoryStore
}

var errLink = errors.New("link write failed")

func (s linkFailingStore) LinkSubCategory(context.Context, string, string) error { return errLink }
func (s linkFailingStore) LinkItem(context.Context, string, string) error        { return errLink }

func TestLinkFailureLeavesOrphan(t *testing.T) {
	ctx := context.Background()
	store := linkFailingStore{MemoryStore: repo.NewMemoryStore()}
	svc := newService(t, store, nil)

	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)

	_, err = svc.CreateSubCategory(ctx, category.ID, hot())
	requireStatus(t, err, http.StatusInternalServerError)
	require.ErrorIs(t, err, errLink)

	subs, err := svc.ListSubCategories(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	got, err := svc.GetCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Empty(t, got.SubCategories)

	_, err = svc.CreateItem(ctx, catalog.ItemParent{SubCategoryID: subs[0].ID}, tea())
	requireStatus(t, err, http.StatusInternalServerError)
	items, err := svc.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestItemTotalOutOfRangeIsRejected(t *testing.T) {
	ctx := context.Background()
	store := repo.NewMemoryStore()
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: store, Pricing: pricing.TaxInclusive{}})
	require.NoError(t, err)
	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)

	huge := tea()
	huge.TaxApplicability = boolPtr(true)
	huge.Tax = floatPtr(100)
	huge.BaseAmount = floatPtr(1e308)
	huge.Discount = nil

	_, err = svc.CreateItem(ctx, catalog.ItemParent{CategoryID: category.ID}, huge)
	requireStatus(t, err, http.StatusBadRequest)
	require.Equal(t, "Item validation failed: totalAmount out of range", err.Error())

	items, err := svc.ListItems(ctx)
	require.NoError(t, err)
	require.Empty(t, items)

	item, err := svc.CreateItem(ctx, catalog.ItemParent{CategoryID: category.ID}, tea())
	require.NoError(t, err)
	_, err = svc.UpdateItem(ctx, item.ID, huge)
	requireStatus(t, err, http.StatusBadRequest)

	stored, err := svc.GetItem(ctx, item.ID)
	require.NoError(t, err)
	require.Equal(t, 90.0, stored.TotalAmount)
}

func TestCacheKeysIgnoreIDCase(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := newService(t, repo.NewMemoryStore(), catalog.NewCache(client, time.Minute))
	category, err := svc.CreateCategory(ctx, beverages())
	require.NoError(t, err)
	upper := strings.ToUpper(category.ID)

	got, err := svc.GetCategory(ctx, upper)
	require.NoError(t, err)
	require.Equal(t, category.ID, got.ID)
	require.True(t, mr.Exists("catalog:category:"+category.ID))
	require.False(t, mr.Exists("catalog:category:"+upper))

	sub, err := svc.CreateSubCategory(ctx, upper, hot())
	require.NoError(t, err)
	require.False(t, mr.Exists("catalog:category:"+category.ID))

	got, err = svc.GetCategory(ctx, upper)
	require.NoError(t, err)
	require.Equal(t, []string{sub.ID}, got.SubCategories)

	_, err = svc.UpdateCategory(ctx, upper, catalog.CategoryInput{
		Name:             "Drinks",
		Image:            "bev.png",
		Description:      "Drinks",
		TaxApplicability: boolPtr(false),
	})
	require.NoError(t, err)
	got, err = svc.GetCategory(ctx, category.ID)
	require.NoError(t, err)
	require.Equal(t, "Drinks", got.Name)
	require.Nil(t, got.Tax)
}
