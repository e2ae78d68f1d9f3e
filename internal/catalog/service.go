// Package catalog serves the public storefront reads: active products and
// delivery zones. Both lists sit behind a short-lived redis cache because
// they are read on every page view and change rarely.
package catalog

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/luxecajou/api/internal/checkout/domain"
	"github.com/luxecajou/api/internal/checkout/ports"
	"github.com/luxecajou/api/internal/pkg/cache"
)

const cacheTTL = 5 * time.Minute

type Service struct {
	store  ports.Store
	cache  *cache.Cache
	logger *slog.Logger
}

// NewService builds the catalog reader. cache may be nil, in which case
// every read goes to the database.
func NewService(store ports.Store, c *cache.Cache, logger *slog.Logger) *Service {
	return &Service{store: store, cache: c, logger: logger}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if s.cacheGet(ctx, &products, "products") {
		return products, nil
	}

	err := s.store.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		products, err = tx.Products().ListActive(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, products, "products")
	return products, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var product domain.Product
	if s.cacheGet(ctx, &product, "product", strconv.FormatInt(id, 10)) {
		return &product, nil
	}

	var p *domain.Product
	err := s.store.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		p, err = tx.Products().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, ports.ErrNotFound
	}

	s.cacheSet(ctx, p, "product", strconv.FormatInt(id, 10))
	return p, nil
}

func (s *Service) ListZones(ctx context.Context) ([]domain.DeliveryZone, error) {
	var zones []domain.DeliveryZone
	if s.cacheGet(ctx, &zones, "zones") {
		return zones, nil
	}

	err := s.store.View(ctx, func(ctx context.Context, tx ports.Tx) error {
		var err error
		zones, err = tx.Zones().ListActive(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.cacheSet(ctx, zones, "zones")
	return zones, nil
}

// cacheGet reports a hit. Redis failures are logged and treated as misses.
func (s *Service) cacheGet(ctx context.Context, dest any, parts ...string) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.GetJSON(ctx, dest, parts...)
	if err != nil {
		s.logger.WarnContext(ctx, "catalog cache read failed", "error", err)
		return false
	}
	return hit
}

func (s *Service) cacheSet(ctx context.Context, value any, parts ...string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetJSON(ctx, value, cacheTTL, parts...); err != nil {
		s.logger.WarnContext(ctx, "catalog cache write failed", "error", err)
	}
}
