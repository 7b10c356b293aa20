package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/energy-advisor/internal/estimate"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

// DefaultProducts is the catalog seeded at startup. Slugs match the
// estimate package's policy table; the long descriptions are markdown.
var DefaultProducts = []model.Product{
	{
		Slug:      estimate.Solar,
		Name:      "Solar Panels",
		ShortDesc: "Generate your own electricity from your roof.",
		LongDesc: `Rooftop **photovoltaic panels** turn daylight into electricity you use at home.

Most households cover around a quarter of their annual electricity demand,
and any surplus can be exported to the grid.`,
		Benefits: []string{
			"Lower electricity bills from day one",
			"Export surplus power to the grid",
			"Raises your home's energy rating",
		},
		TypicalSavingPct: 25,
	},
	{
		Slug:      estimate.EVCharger,
		Name:      "EV Charger",
		ShortDesc: "Smart home charging for your electric vehicle.",
		LongDesc: `A dedicated **smart charger** schedules charging into the cheapest hours.

Savings depend on actually charging a vehicle at home, so tell us if you do.`,
		Benefits: []string{
			"Charge overnight on off-peak rates",
			"Faster and safer than a wall socket",
			"Track charging costs per session",
		},
		TypicalSavingPct: 6,
	},
	{
		Slug:      estimate.SmartHome,
		Name:      "Smart Home",
		ShortDesc: "Thermostats and plugs that cut waste automatically.",
		LongDesc: `Connected **thermostats and smart plugs** trim both electricity and gas use.

With automation switched on the savings roughly double compared with
manual control.`,
		Benefits: []string{
			"Heat only the rooms you use",
			"Switch off standby loads automatically",
			"Control everything from your phone",
		},
		TypicalSavingPct: 8,
	},
}

type CatalogService struct {
	products repository.ProductRepository
	logger   *slog.Logger
}

func NewCatalogService(products repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{products: products, logger: logger}
}

// Seed inserts any of products whose slug is not yet stored.
func (s *CatalogService) Seed(ctx context.Context, products []model.Product) error {
	for i := range products {
		if err := s.products.UpsertProduct(ctx, &products[i]); err != nil {
			return fmt.Errorf("service/catalog: seeding %s: %w", products[i].Slug, err)
		}
	}
	s.logger.Info("catalog seeded", slog.Int("products", len(products)))
	return nil
}

func (s *CatalogService) List(ctx context.Context) ([]model.ProductSummary, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: listing products: %w", err)
	}
	return products, nil
}

// Get returns apperror.ErrNotFound for an unknown slug.
func (s *CatalogService) Get(ctx context.Context, slug string) (*model.Product, error) {
	return s.products.GetProduct(ctx, slug)
}
