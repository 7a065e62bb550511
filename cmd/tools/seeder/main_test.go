package main

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/menu-catalog/internal/catalog"
	"github.com/noah-isme/menu-catalog/internal/repo"
)

func TestSeedSampleMenu(t *testing.T) {
	ctx := context.Background()
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: repo.NewMemoryStore()})
	require.NoError(t, err)

	counts, err := seed(ctx, svc, sampleMenu, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 3, counts.categories)
	require.Equal(t, 4, counts.subCategories)
	require.Equal(t, 11, counts.items)

	teas, err := svc.FindItemsByName(ctx, "Tea")
	require.NoError(t, err)
	require.Len(t, teas, 1)
	require.Equal(t, 90.0, teas[0].TotalAmount)
	require.True(t, teas[0].TaxApplicability)
	require.NotNil(t, teas[0].Tax)
	require.Equal(t, 5.0, *teas[0].Tax)

	extras, err := svc.FindCategoriesByName(ctx, "Extras")
	require.NoError(t, err)
	require.Len(t, extras, 1)
	require.False(t, extras[0].TaxApplicability)
	require.Nil(t, extras[0].Tax)

	items, err := svc.ListItemsByCategory(ctx, extras[0].ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestSeedSkipsExistingCategories(t *testing.T) {
	ctx := context.Background()
	svc, err := catalog.NewService(catalog.ServiceConfig{Store: repo.NewMemoryStore()})
	require.NoError(t, err)

	_, err = seed(ctx, svc, sampleMenu, zerolog.Nop())
	require.NoError(t, err)
	counts, err := seed(ctx, svc, sampleMenu, zerolog.Nop())
	require.NoError(t, err)
	require.Zero(t, counts.categories)

	all, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestSlug(t *testing.T) {
	require.Equal(t, "hot-chocolate", slug("Hot Chocolate"))
	require.Equal(t, "iced-latte", slug("Iced Latte"))
}
