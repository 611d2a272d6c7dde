package billing

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuforge/menuforge/pkg/observability"
	"github.com/menuforge/menuforge/pkg/permissions"
	"github.com/menuforge/menuforge/pkg/users"
)

// mockDirectory implements UserDirectory with function fields
type mockDirectory struct {
	getByIDFunc             func(ctx context.Context, userID int64) (*users.User, error)
	getByCustomerIDFunc     func(ctx context.Context, customerID string) (*users.User, error)
	getByEmailFunc          func(ctx context.Context, email string) (*users.User, error)
	listStaffFunc           func(ctx context.Context, ownerID int64) ([]users.User, error)
	changeRoleFunc          func(ctx context.Context, userID int64, role permissions.Role) error
	setStripeCustomerIDFunc func(ctx context.Context, userID int64, customerID string) error
}

func (m *mockDirectory) GetByID(ctx context.Context, userID int64) (*users.User, error) {
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, userID)
	}
	return nil, users.ErrUserNotFound
}

func (m *mockDirectory) GetByStripeCustomerID(ctx context.Context, customerID string) (*users.User, error) {
	if m.getByCustomerIDFunc != nil {
		return m.getByCustomerIDFunc(ctx, customerID)
	}
	return nil, users.ErrUserNotFound
}

func (m *mockDirectory) GetByEmail(ctx context.Context, email string) (*users.User, error) {
	if m.getByEmailFunc != nil {
		return m.getByEmailFunc(ctx, email)
	}
	return nil, users.ErrUserNotFound
}

func (m *mockDirectory) ListStaff(ctx context.Context, ownerID int64) ([]users.User, error) {
	if m.listStaffFunc != nil {
		return m.listStaffFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockDirectory) ChangeRole(ctx context.Context, userID int64, role permissions.Role) error {
	if m.changeRoleFunc != nil {
		return m.changeRoleFunc(ctx, userID, role)
	}
	return nil
}

func (m *mockDirectory) SetStripeCustomerID(ctx context.Context, userID int64, customerID string) error {
	if m.setStripeCustomerIDFunc != nil {
		return m.setStripeCustomerIDFunc(ctx, userID, customerID)
	}
	return nil
}

func newTestReconciler(t *testing.T, directory UserDirectory) (*Reconciler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewReconciler(NewStore(db), directory, logger, metrics), mock
}

func ownerUser() *users.User {
	customerID := "cus_123"
	return &users.User{ID: 5, Email: "owner@example.com", Role: permissions.RoleUser, StripeCustomerID: &customerID}
}

func staffUsers(ownerID int64) []users.User {
	return []users.User{
		{ID: 11, Email: "cook@example.com", RestaurantOwnerID: &ownerID},
		{ID: 12, Email: "waiter@example.com", RestaurantOwnerID: &ownerID},
	}
}

func TestActivateUpgradesOwnerAndStaff(t *testing.T) {
	var roleWrites []int64
	directory := &mockDirectory{
		getByCustomerIDFunc: func(ctx context.Context, customerID string) (*users.User, error) {
			assert.Equal(t, "cus_123", customerID)
			return ownerUser(), nil
		},
		listStaffFunc: func(ctx context.Context, ownerID int64) ([]users.User, error) {
			return staffUsers(ownerID), nil
		},
		changeRoleFunc: func(ctx context.Context, userID int64, role permissions.Role) error {
			assert.Equal(t, permissions.RolePremium, role)
			roleWrites = append(roleWrites, userID)
			return nil
		},
	}
	r, mock := newTestReconciler(t, directory)

	mock.ExpectQuery("INSERT INTO subscriptions").
		WithArgs("stripe", "sub_1", int64(5), "owner@example.com", "authorized", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	err := r.Activate(context.Background(), ProviderStripe, "sub_1", Payer{CustomerID: "cus_123", Email: "owner@example.com"})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 11, 12}, roleWrites)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateFallsBackToEmailAndBackfillsCustomerID(t *testing.T) {
	var backfilled string
	owner := &users.User{ID: 5, Email: "owner@example.com", Role: permissions.RoleUser}
	directory := &mockDirectory{
		getByEmailFunc: func(ctx context.Context, email string) (*users.User, error) {
			return owner, nil
		},
		setStripeCustomerIDFunc: func(ctx context.Context, userID int64, customerID string) error {
			backfilled = customerID
			return nil
		},
	}
	r, mock := newTestReconciler(t, directory)

	mock.ExpectQuery("INSERT INTO subscriptions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	err := r.Activate(context.Background(), ProviderStripe, "sub_1", Payer{CustomerID: "cus_new", Email: "owner@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", backfilled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateResolvesOwnerByCheckoutReference(t *testing.T) {
	// The session completed before any customer ID was recorded and the
	// checkout email differs from the account email. The reference planted
	// at checkout still names the account.
	var backfilled string
	owner := &users.User{ID: 5, Email: "owner@example.com", Role: permissions.RoleUser}
	directory := &mockDirectory{
		getByIDFunc: func(ctx context.Context, userID int64) (*users.User, error) {
			assert.Equal(t, int64(5), userID)
			return owner, nil
		},
		getByEmailFunc: func(ctx context.Context, email string) (*users.User, error) {
			t.Fatal("email fallback must not run when the reference resolves")
			return nil, users.ErrUserNotFound
		},
		setStripeCustomerIDFunc: func(ctx context.Context, userID int64, customerID string) error {
			backfilled = customerID
			return nil
		},
	}
	r, mock := newTestReconciler(t, directory)

	mock.ExpectQuery("INSERT INTO subscriptions").
		WithArgs("stripe", "sub_1", int64(5), "owner@example.com", "authorized", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	err := r.Activate(context.Background(), ProviderStripe, "sub_1",
		Payer{CustomerID: "cus_new", UserRef: "5", Email: "personal@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "cus_new", backfilled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivateWithNoMatchMutatesNothing(t *testing.T) {
	r, mock := newTestReconciler(t, &mockDirectory{})

	err := r.Activate(context.Background(), ProviderStripe, "sub_1", Payer{CustomerID: "cus_unknown", Email: "ghost@example.com"})
	var missing *MissingCorrelationError
	require.ErrorAs(t, err, &missing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelDowngradesDespiteOneFailedStaffWrite(t *testing.T) {
	var roleWrites []int64
	directory := &mockDirectory{
		getByCustomerIDFunc: func(ctx context.Context, customerID string) (*users.User, error) {
			return ownerUser(), nil
		},
		listStaffFunc: func(ctx context.Context, ownerID int64) ([]users.User, error) {
			return staffUsers(ownerID), nil
		},
		changeRoleFunc: func(ctx context.Context, userID int64, role permissions.Role) error {
			if userID == 11 {
				return errors.New("transient write failure")
			}
			assert.Equal(t, permissions.RoleUser, role)
			roleWrites = append(roleWrites, userID)
			return nil
		},
	}
	r, mock := newTestReconciler(t, directory)

	mock.ExpectExec("UPDATE subscriptions SET status").
		WithArgs("cancelled", sqlmock.AnyArg(), "stripe", "sub_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Cancel(context.Background(), ProviderStripe, "sub_1", Payer{CustomerID: "cus_123", Email: "owner@example.com"})
	require.NoError(t, err, "one failed staff write must not abort the fan-out")
	assert.Equal(t, []int64{5, 12}, roleWrites)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCancelFailedOwnerWriteIsFatal(t *testing.T) {
	directory := &mockDirectory{
		getByCustomerIDFunc: func(ctx context.Context, customerID string) (*users.User, error) {
			return ownerUser(), nil
		},
		changeRoleFunc: func(ctx context.Context, userID int64, role permissions.Role) error {
			return errors.New("datastore down")
		},
	}
	r, mock := newTestReconciler(t, directory)

	mock.ExpectExec("UPDATE subscriptions SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Cancel(context.Background(), ProviderStripe, "sub_1", Payer{CustomerID: "cus_123", Email: "owner@example.com"})
	var persistence *PersistenceError
	assert.ErrorAs(t, err, &persistence)
}

func TestCancelResolvesOwnerThroughSubscriptionRecord(t *testing.T) {
	owner := &users.User{ID: 5, Email: "owner@example.com", Role: permissions.RolePremium}
	directory := &mockDirectory{
		getByIDFunc: func(ctx context.Context, userID int64) (*users.User, error) {
			assert.Equal(t, int64(5), userID)
			return owner, nil
		},
	}
	r, mock := newTestReconciler(t, directory)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM subscriptions").
		WithArgs("mercadopago", "pre_9").
		WillReturnRows(sqlmock.NewRows([]string{"id", "provider", "external_id", "user_id", "email", "status", "created_at", "updated_at"}).
			AddRow(int64(3), "mercadopago", "pre_9", int64(5), "owner@example.com", "authorized", now, now))
	mock.ExpectExec("UPDATE subscriptions SET status").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := r.Cancel(context.Background(), ProviderMercadoPago, "pre_9", Payer{})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResubscriptionCreatesNewRecord(t *testing.T) {
	directory := &mockDirectory{
		getByCustomerIDFunc: func(ctx context.Context, customerID string) (*users.User, error) {
			return ownerUser(), nil
		},
	}
	r, mock := newTestReconciler(t, directory)

	// Two activations for the same customer each insert a fresh row.
	mock.ExpectQuery("INSERT INTO subscriptions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery("INSERT INTO subscriptions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(2)))

	require.NoError(t, r.Activate(context.Background(), ProviderStripe, "sub_1", Payer{CustomerID: "cus_123"}))
	require.NoError(t, r.Activate(context.Background(), ProviderStripe, "sub_2", Payer{CustomerID: "cus_123"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}
