package service

import (
	"context"

	"pos-checkout-service/internal/models"
	"pos-checkout-service/internal/util"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// CatalogService builds the catalog snapshot a terminal sells from
type CatalogService struct {
	source CatalogSource
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(source CatalogSource) *CatalogService {
	return &CatalogService{
		source: source,
		logger: util.GetLogger(),
	}
}

// LoadCatalog returns every active product with its variants attached
func (s *CatalogService) LoadCatalog(ctx context.Context) ([]models.ProductWithVariants, error) {
	ctx, span := util.StartSpan(ctx, "CatalogService.LoadCatalog")
	defer span.End()

	products, err := s.source.ListActiveProducts(ctx)
	if err != nil {
		util.CatalogLoadsTotal.WithLabelValues("error").Inc()
		util.FailSpan(span, err)
		return nil, &CatalogLoadError{Err: err}
	}

	var withVariants []string
	for _, p := range products {
		if p.HasVariants {
			withVariants = append(withVariants, p.ID)
		}
	}

	byProduct := map[string][]models.Variant{}
	if len(withVariants) > 0 {
		variants, err := s.source.ListVariantsForProducts(ctx, withVariants)
		if err != nil {
			util.CatalogLoadsTotal.WithLabelValues("error").Inc()
			util.FailSpan(span, err)
			return nil, &CatalogLoadError{Err: err}
		}
		for _, v := range variants {
			byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
		}
	}

	catalog := make([]models.ProductWithVariants, 0, len(products))
	for _, p := range products {
		var variants []models.Variant
		if p.HasVariants {
			variants = byProduct[p.ID]
		}
		catalog = append(catalog, Summarize(p, variants))
	}

	span.SetAttributes(attribute.Int("catalog.products", len(catalog)))
	util.CatalogLoadsTotal.WithLabelValues("ok").Inc()
	s.logger.Debug("Catalog loaded", zap.Int("products", len(catalog)))
	return catalog, nil
}

// Summarize attaches variants to a product and derives its sellable stock.
// The base stock bucket always counts on top of variant stock.
func Summarize(p models.Product, variants []models.Variant) models.ProductWithVariants {
	if variants == nil {
		variants = []models.Variant{}
	}

	total := p.StockQuantity
	variantInStock := false
	for _, v := range variants {
		total += v.StockQuantity
		if v.StockQuantity > 0 {
			variantInStock = true
		}
	}

	out := p.StockQuantity <= 0
	if p.HasVariants {
		out = !variantInStock && p.StockQuantity <= 0
	}

	return models.ProductWithVariants{
		Product:    p,
		Variants:   variants,
		TotalStock: total,
		OutOfStock: out,
	}
}
