package main

import (
	"context"
	"os"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/menu-catalog/internal/catalog"
	"github.com/noah-isme/menu-catalog/internal/config"
	"github.com/noah-isme/menu-catalog/internal/lock"
	"github.com/noah-isme/menu-catalog/internal/obs"
	"github.com/noah-isme/menu-catalog/internal/repo"
)

type seedItem struct {
	Name       string
	BaseAmount float64
	Discount   float64
}

type seedSubCategory struct {
	Name  string
	Items []seedItem
}

type seedCategory struct {
	Name          string
	Tax           float64
	TaxApplicable bool
	SubCategories []seedSubCategory
	Items         []seedItem
}

var sampleMenu = []seedCategory{
	{
		Name: "Beverages", Tax: 5, TaxApplicable: true,
		SubCategories: []seedSubCategory{
			{Name: "Hot", Items: []seedItem{
				{Name: "Tea", BaseAmount: 100, Discount: 10},
				{Name: "Espresso", BaseAmount: 150},
				{Name: "Hot Chocolate", BaseAmount: 180, Discount: 20},
			}},
			{Name: "Cold", Items: []seedItem{
				{Name: "Iced Latte", BaseAmount: 200, Discount: 15},
				{Name: "Lemonade", BaseAmount: 120},
			}},
		},
	},
	{
		Name: "Mains", Tax: 12, TaxApplicable: true,
		SubCategories: []seedSubCategory{
			{Name: "Grill", Items: []seedItem{
				{Name: "Chicken Skewers", BaseAmount: 450, Discount: 50},
				{Name: "Lamb Chops", BaseAmount: 890},
			}},
			{Name: "Pasta", Items: []seedItem{
				{Name: "Carbonara", BaseAmount: 380},
				{Name: "Arrabbiata", BaseAmount: 340, Discount: 40},
			}},
		},
	},
	{
		Name: "Extras",
		Items: []seedItem{
			{Name: "Bread Basket", BaseAmount: 60},
			{Name: "Side Salad", BaseAmount: 90, Discount: 10},
		},
	},
}

func main() {
	cfg := config.MustLoad()
	logger := obs.NewLogger(cfg.Obs.LogFormat, cfg.Obs.LogLevel).With().Str("tool", "seeder").Logger()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client, err := repo.Connect(ctx, cfg.MongoURI, cfg.MongoConnectTimeout)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect mongo")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	store := repo.NewMongoStore(client.Database(cfg.MongoDatabase))
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Error().Err(err).Msg("ensure mongo indexes")
	}

	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:   store,
		Pricing: cfg.PricingStrategy(),
		Logger:  &logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}

	var counts seedCounts
	run := func(ctx context.Context) error {
		var err error
		counts, err = seed(ctx, svc, sampleMenu, logger)
		return err
	}
	if cfg.RedisURL != "" {
		opts, perr := redis.ParseURL(cfg.RedisURL)
		if perr != nil {
			logger.Fatal().Err(perr).Msg("parse redis url")
		}
		rdb := redis.NewClient(opts)
		defer func() { _ = rdb.Close() }()
		mutex := lock.Mutex{Client: rdb, Key: "menu:seed:lock", TTL: time.Minute, Wait: 30 * time.Second}
		err = mutex.Run(ctx, run)
	} else {
		err = run(ctx)
	}
	if err != nil {
		logger.Error().Err(err).Msg("seeding failed")
		os.Exit(1)
	}
	logger.Info().
		Int("categories", counts.categories).
		Int("subcategories", counts.subCategories).
		Int("items", counts.items).
		Msg("seeding completed")
}

type seedCounts struct {
	categories    int
	subCategories int
	items         int
}

// seed creates the menu through the service so inheritance and pricing apply exactly as
// they do for API callers. Categories whose name already exists are skipped.
func seed(ctx context.Context, svc *catalog.Service, menu []seedCategory, logger zerolog.Logger) (seedCounts, error) {
	var counts seedCounts
	for _, c := range menu {
		existing, err := svc.FindCategoriesByName(ctx, c.Name)
		if err != nil {
			return counts, err
		}
		if len(existing) > 0 {
			logger.Info().Str("category", c.Name).Msg("category exists, skipping")
			continue
		}

		in := catalog.CategoryInput{
			Name:             c.Name,
			Image:            imageURL(c.Name),
			Description:      c.Name + " on the menu",
			TaxApplicability: &c.TaxApplicable,
		}
		if c.TaxApplicable {
			tax := c.Tax
			in.Tax = &tax
		}
		category, err := svc.CreateCategory(ctx, in)
		if err != nil {
			return counts, err
		}
		counts.categories++

		for _, it := range c.Items {
			if _, err := svc.CreateItem(ctx, catalog.ItemParent{CategoryID: category.ID}, itemInput(it, category.TaxApplicability, category.Tax)); err != nil {
				return counts, err
			}
			counts.items++
		}

		for _, sc := range c.SubCategories {
			sub, err := svc.CreateSubCategory(ctx, category.ID, catalog.SubCategoryInput{
				Name:        sc.Name,
				Image:       imageURL(sc.Name),
				Description: sc.Name + " " + c.Name,
			})
			if err != nil {
				return counts, err
			}
			counts.subCategories++

			for _, it := range sc.Items {
				if _, err := svc.CreateItem(ctx, catalog.ItemParent{SubCategoryID: sub.ID}, itemInput(it, sub.TaxApplicability, sub.Tax)); err != nil {
					return counts, err
				}
				counts.items++
			}
		}
		logger.Info().Str("category", c.Name).Str("id", category.ID).Msg("category seeded")
	}
	return counts, nil
}

func itemInput(it seedItem, taxApplicable bool, tax *float64) catalog.ItemInput {
	base := it.BaseAmount
	discount := it.Discount
	in := catalog.ItemInput{
		Name:             it.Name,
		Image:            imageURL(it.Name),
		Description:      it.Name,
		TaxApplicability: &taxApplicable,
		BaseAmount:       &base,
		Discount:         &discount,
	}
	if taxApplicable && tax != nil {
		t := *tax
		in.Tax = &t
	}
	return in
}

func imageURL(name string) string {
	return "https://images.example.com/menu/" + slug(name) + ".png"
}

func slug(name string) string {
	out := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		switch ch := name[i]; {
		case ch >= 'A' && ch <= 'Z':
			out = append(out, ch+'a'-'A')
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			out = append(out, ch)
		case ch == ' ':
			out = append(out, '-')
		}
	}
	return string(out)
}
