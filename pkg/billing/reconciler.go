package billing

import (
	"context"
	"errors"
	"strconv"

	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/permissions"
	"github.com/menuforge/menuforge/pkg/users"
)

// UserDirectory is the slice of the user service the reconciler needs
type UserDirectory interface {
	GetByID(ctx context.Context, userID int64) (*users.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*users.User, error)
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	ListStaff(ctx context.Context, ownerID int64) ([]users.User, error)
	ChangeRole(ctx context.Context, userID int64, role permissions.Role) error
	SetStripeCustomerID(ctx context.Context, userID int64, customerID string) error
}

// Reconciler applies verified payment events to user roles and the
// subscription history.
type Reconciler struct {
	store     *Store
	directory UserDirectory
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewReconciler creates a reconciler
func NewReconciler(store *Store, directory UserDirectory, logger *observability.Logger, metrics *observability.Metrics) *Reconciler {
	return &Reconciler{
		store:     store,
		directory: directory,
		logger:    logger,
		metrics:   metrics,
	}
}

// resolveOwner matches an event to a local account. Customer ID is the
// primary key into the directory; the checkout reference and email are the
// fallbacks for events that arrive before the customer ID was recorded. A
// fallback hit backfills the customer ID for next time.
func (r *Reconciler) resolveOwner(ctx context.Context, provider Provider, payer Payer) (*users.User, error) {
	if payer.CustomerID != "" {
		owner, err := r.directory.GetByStripeCustomerID(ctx, payer.CustomerID)
		if err == nil {
			return owner, nil
		}
		if !errors.Is(err, users.ErrUserNotFound) {
			return nil, &PersistenceError{Op: "lookup by customer id", Err: err}
		}
	}

	if userID, err := strconv.ParseInt(payer.UserRef, 10, 64); err == nil {
		owner, err := r.directory.GetByID(ctx, userID)
		if err == nil {
			r.backfillCustomerID(ctx, owner, payer.CustomerID)
			return owner, nil
		}
		if !errors.Is(err, users.ErrUserNotFound) {
			return nil, &PersistenceError{Op: "lookup by checkout reference", Err: err}
		}
	}

	if payer.Email != "" {
		owner, err := r.directory.GetByEmail(ctx, payer.Email)
		if err == nil {
			r.backfillCustomerID(ctx, owner, payer.CustomerID)
			return owner, nil
		}
		if !errors.Is(err, users.ErrUserNotFound) {
			return nil, &PersistenceError{Op: "lookup by email", Err: err}
		}
	}

	return nil, &MissingCorrelationError{Provider: provider, Payer: payer}
}

// backfillCustomerID records a customer ID learned from a fallback match.
// Best effort: the owner is already resolved, so a failed write only costs
// the next event another fallback lookup.
func (r *Reconciler) backfillCustomerID(ctx context.Context, owner *users.User, customerID string) {
	if customerID == "" || (owner.StripeCustomerID != nil && *owner.StripeCustomerID == customerID) {
		return
	}
	if err := r.directory.SetStripeCustomerID(ctx, owner.ID, customerID); err != nil {
		r.logger.WithError(err).WithField("user_id", owner.ID).
			Warn("failed to backfill customer id")
	}
}

// Activate records an authorized subscription and moves the owner and their
// staff to premium. A fresh activation always appends a new subscription row.
func (r *Reconciler) Activate(ctx context.Context, provider Provider, externalID string, payer Payer) error {
	owner, err := r.resolveOwner(ctx, provider, payer)
	if err != nil {
		return err
	}

	if _, err := r.store.CreateSubscription(ctx, &Subscription{
		Provider:   provider,
		ExternalID: externalID,
		UserID:     owner.ID,
		Email:      owner.Email,
		Status:     StatusAuthorized,
	}); err != nil {
		return &PersistenceError{Op: "record subscription", Err: err}
	}

	return r.applyRole(ctx, provider, owner, permissions.RolePremium)
}

// Cancel marks the subscription record cancelled and drops the owner and
// their staff back to the user tier. A cancellation for an unknown
// subscription still downgrades the owner; the record is best effort.
func (r *Reconciler) Cancel(ctx context.Context, provider Provider, externalID string, payer Payer) error {
	owner, err := r.resolveOwner(ctx, provider, payer)
	if err != nil {
		// Cancellations sometimes arrive without payer identifiers. The
		// earlier subscription record still knows who owns it.
		var missing *MissingCorrelationError
		if !errors.As(err, &missing) {
			return err
		}
		sub, serr := r.store.GetLatestByExternalID(ctx, provider, externalID)
		if serr != nil {
			return err
		}
		owner, serr = r.directory.GetByID(ctx, sub.UserID)
		if serr != nil {
			return err
		}
	}

	if err := r.store.UpdateStatusByExternalID(ctx, provider, externalID, StatusCancelled); err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			r.logger.WithField("external_id", externalID).
				Warn("cancellation for unknown subscription record")
		} else {
			return &PersistenceError{Op: "update subscription", Err: err}
		}
	}

	return r.applyRole(ctx, provider, owner, permissions.RoleUser)
}

// MarkPending appends a pending subscription record without touching roles.
// Used for checkout flows that authorize later.
func (r *Reconciler) MarkPending(ctx context.Context, provider Provider, externalID string, payer Payer) error {
	owner, err := r.resolveOwner(ctx, provider, payer)
	if err != nil {
		return err
	}
	if _, err := r.store.CreateSubscription(ctx, &Subscription{
		Provider:   provider,
		ExternalID: externalID,
		UserID:     owner.ID,
		Email:      owner.Email,
		Status:     StatusPending,
	}); err != nil {
		return &PersistenceError{Op: "record subscription", Err: err}
	}
	return nil
}

// applyRole writes the owner's role, then fans out to staff accounts. The
// owner write is the one that must succeed; a failed staff write is logged
// and the rest of the fan-out continues, since the provider retry would
// otherwise re-run the whole event for one flaky row.
func (r *Reconciler) applyRole(ctx context.Context, provider Provider, owner *users.User, role permissions.Role) error {
	if err := r.directory.ChangeRole(ctx, owner.ID, role); err != nil {
		r.metrics.WebhookFanoutTotal.WithLabelValues(string(provider), "failed").Inc()
		return &PersistenceError{Op: "update owner role", Err: err}
	}
	r.metrics.WebhookFanoutTotal.WithLabelValues(string(provider), "ok").Inc()

	staff, err := r.directory.ListStaff(ctx, owner.ID)
	if err != nil {
		r.logger.WithError(err).WithField("owner_id", owner.ID).
			Error("failed to list staff for role fan-out")
		return nil
	}

	for _, member := range staff {
		if err := r.directory.ChangeRole(ctx, member.ID, role); err != nil {
			r.metrics.WebhookFanoutTotal.WithLabelValues(string(provider), "failed").Inc()
			r.logger.WithError(err).
				WithField("owner_id", owner.ID).
				WithField("user_id", member.ID).
				Error("failed to update staff role")
			continue
		}
		r.metrics.WebhookFanoutTotal.WithLabelValues(string(provider), "ok").Inc()
	}

	r.logger.WithFields(map[string]interface{}{
		"owner_id": owner.ID,
		"role":     role.String(),
		"staff":    len(staff),
	}).Info("applied subscription role change")
	return nil
}
