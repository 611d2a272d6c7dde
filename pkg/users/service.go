package users

import (
	"context"
	"fmt"

	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/permissions"
)

// AuthState is the cacheable input to permission resolution: the role plus
// the explicit grant rows. Resolution itself is pure and cheap, so only the
// datastore reads are worth caching.
type AuthState struct {
	Role    permissions.Role         `json:"role"`
	Granted []permissions.Permission `json:"granted"`
}

// AuthStateCache caches per-user auth state. A miss returns ok=false with a
// nil error; cache failures are soft and never block resolution.
type AuthStateCache interface {
	Get(ctx context.Context, userID int64) (AuthState, bool, error)
	Set(ctx context.Context, userID int64, state AuthState) error
	Invalidate(ctx context.Context, userID int64) error
}

// Service wraps the store with permission resolution and cache maintenance
type Service struct {
	store   *Store
	cache   AuthStateCache
	logger  *observability.Logger
	metrics *observability.Metrics
}

// NewService creates a user service. The cache is optional.
func NewService(store *Store, cache AuthStateCache, logger *observability.Logger, metrics *observability.Metrics) *Service {
	return &Service{
		store:   store,
		cache:   cache,
		logger:  logger,
		metrics: metrics,
	}
}

// Store exposes the underlying store for handlers that need raw access
func (s *Service) Store() *Store {
	return s.store
}

// GetByID retrieves a user by ID
func (s *Service) GetByID(ctx context.Context, userID int64) (*User, error) {
	return s.store.GetUser(ctx, userID)
}

// GetByEmail retrieves a user by email address
func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.store.GetUserByEmail(ctx, email)
}

// GetByStripeCustomerID retrieves a user by payment customer ID
func (s *Service) GetByStripeCustomerID(ctx context.Context, customerID string) (*User, error) {
	return s.store.GetUserByStripeCustomerID(ctx, customerID)
}

// ListStaff returns the staff accounts attached to an owner
func (s *Service) ListStaff(ctx context.Context, ownerID int64) ([]User, error) {
	return s.store.ListStaff(ctx, ownerID)
}

// SetStripeCustomerID records the payment customer ID on a user
func (s *Service) SetStripeCustomerID(ctx context.Context, userID int64, customerID string) error {
	return s.store.SetStripeCustomerID(ctx, userID, customerID)
}

// ResolveUser loads a user's role and grant rows and derives the effective
// permission set. This is the authoritative resolution used on every
// protected request.
func (s *Service) ResolveUser(ctx context.Context, userID int64) (permissions.Resolution, error) {
	state, err := s.loadAuthState(ctx, userID)
	if err != nil {
		return permissions.Resolution{}, err
	}
	return permissions.Resolve(state.Role, state.Granted), nil
}

// Register creates a new account with the plain user role and the sign-up
// grant rows.
func (s *Service) Register(ctx context.Context, email, name string) (*User, error) {
	user, err := s.store.CreateUser(ctx, &User{
		Email: email,
		Name:  name,
		Role:  permissions.RoleUser,
	})
	if err != nil {
		return nil, err
	}

	for _, p := range permissions.SignupGrants() {
		if err := s.store.GrantPermission(ctx, user.ID, p, nil); err != nil {
			return nil, fmt.Errorf("failed to seed sign-up grants: %w", err)
		}
	}

	s.logger.WithField("user_id", user.ID).Info("registered new user")
	return user, nil
}

// ChangeRole updates a user's role and invalidates their cached auth state
func (s *Service) ChangeRole(ctx context.Context, userID int64, role permissions.Role) error {
	if err := s.store.UpdateRole(ctx, userID, role); err != nil {
		return err
	}
	s.metrics.RoleTransitionsTotal.WithLabelValues(role.String()).Inc()
	s.invalidate(ctx, userID)
	return nil
}

// Grant adds an explicit permission row. Grants outside the catalog are
// rejected so typos cannot create phantom capabilities.
func (s *Service) Grant(ctx context.Context, userID int64, p permissions.Permission, grantedBy *int64) error {
	if !permissions.InCatalog(p) {
		return fmt.Errorf("unknown permission: %s", p)
	}
	if err := s.store.GrantPermission(ctx, userID, p, grantedBy); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// Revoke removes an explicit permission row
func (s *Service) Revoke(ctx context.Context, userID int64, p permissions.Permission) error {
	if err := s.store.RevokePermission(ctx, userID, p); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *Service) loadAuthState(ctx context.Context, userID int64) (AuthState, error) {
	if s.cache != nil {
		state, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.WithError(err).Warn("auth state cache read failed")
		} else if ok {
			s.metrics.CacheHitsTotal.WithLabelValues("auth_state").Inc()
			return state, nil
		} else {
			s.metrics.CacheMissesTotal.WithLabelValues("auth_state").Inc()
		}
	}

	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return AuthState{}, err
	}
	granted, err := s.store.GetGrantedPermissions(ctx, userID)
	if err != nil {
		return AuthState{}, err
	}

	state := AuthState{Role: user.Role, Granted: granted}
	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, state); err != nil {
			s.logger.WithError(err).Warn("auth state cache write failed")
		}
	}
	return state, nil
}

func (s *Service) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).
			Warn("auth state cache invalidation failed")
	}
}
