package tenants

import (
	"context"
	"crypto/subtle"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/menuforge/menuforge/pkg/observability"
)

// Service wraps the store with an in-process LRU cache keyed by slug.
// Public menu pages hit GetBySlug on every request, so the hot tenants
// stay resident.
type Service struct {
	store   *Store
	cache   *lru.Cache[string, *Restaurant]
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a tenant service with a slug cache of the given size
func NewService(store *Store, cacheSize int, logger *observability.Logger, metrics *observability.Metrics) (*Service, error) {
	if cacheSize <= 0 {
		cacheSize = 256
	}
	cache, err := lru.New[string, *Restaurant](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:   store,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Store exposes the underlying store
func (s *Service) Store() *Store {
	return s.store
}

// GetBySlug resolves a restaurant by slug, serving from cache when possible
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Restaurant, error) {
	if r, ok := s.cache.Get(slug); ok {
		s.metrics.CacheHitsTotal.WithLabelValues("tenant_slug").Inc()
		return r, nil
	}
	s.metrics.CacheMissesTotal.WithLabelValues("tenant_slug").Inc()

	r, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.cache.Add(slug, r)
	return r, nil
}

// GetByOwner resolves an owner's restaurant, bypassing the slug cache
func (s *Service) GetByOwner(ctx context.Context, ownerID int64) (*Restaurant, error) {
	return s.store.GetByOwner(ctx, ownerID)
}

// Create creates an owner's restaurant
func (s *Service) Create(ctx context.Context, r *Restaurant) (*Restaurant, error) {
	created, err := s.store.CreateRestaurant(ctx, r)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("restaurant_id", created.ID).WithField("slug", created.Slug).
		Info("created restaurant")
	return created, nil
}

// Update persists configuration changes and drops the stale cache entry
func (s *Service) Update(ctx context.Context, r *Restaurant) error {
	if err := s.store.UpdateRestaurant(ctx, r); err != nil {
		return err
	}
	s.cache.Remove(r.Slug)
	return nil
}

// VerifyWaiterCode checks a service-endpoint access code for a restaurant.
// Comparison is constant time.
func (s *Service) VerifyWaiterCode(ctx context.Context, slug, code string) (*Restaurant, error) {
	r, err := s.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if r.WaiterCode == "" || subtle.ConstantTimeCompare([]byte(r.WaiterCode), []byte(code)) != 1 {
		return nil, ErrInvalidWaiterCode
	}
	return r, nil
}
