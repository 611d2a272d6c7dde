package users

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuforge/menuforge/pkg/permissions"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "name", "role", "stripe_customer_id", "restaurant_owner_id", "created_at", "updated_at",
	})
}

func TestStoreCreateUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("owner@example.com", "Owner", "user", nil, nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(5)))

	store := NewStore(db)
	user, err := store.CreateUser(context.Background(), &User{
		Email: "owner@example.com",
		Name:  "Owner",
		Role:  permissions.RoleUser,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), user.ID)
	assert.Equal(t, permissions.RoleUser, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	customerID := "cus_123"
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(5)).
		WillReturnRows(userRows().AddRow(int64(5), "owner@example.com", "Owner", "premium", customerID, nil, now, now))

	store := NewStore(db)
	user, err := store.GetUser(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, permissions.RolePremium, user.Role)
	require.NotNil(t, user.StripeCustomerID)
	assert.Equal(t, "cus_123", *user.StripeCustomerID)
	assert.Nil(t, user.RestaurantOwnerID)
	assert.False(t, user.IsStaff())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetUserNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(99)).
		WillReturnRows(userRows())

	store := NewStore(db)
	_, err = store.GetUser(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetUserByStripeCustomerID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM users WHERE stripe_customer_id").
		WithArgs("cus_abc").
		WillReturnRows(userRows().AddRow(int64(7), "o@example.com", "O", "user", "cus_abc", nil, now, now))

	store := NewStore(db)
	user, err := store.GetUserByStripeCustomerID(context.Background(), "cus_abc")
	require.NoError(t, err)
	assert.Equal(t, int64(7), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users SET role").
		WithArgs("premium", sqlmock.AnyArg(), int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	require.NoError(t, store.UpdateRole(context.Background(), 5, permissions.RolePremium))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateRoleMissingUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE users SET role").
		WithArgs("premium", sqlmock.AnyArg(), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	store := NewStore(db)
	err = store.UpdateRole(context.Background(), 99, permissions.RolePremium)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestStoreListStaff(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	ownerID := int64(5)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE restaurant_owner_id").
		WithArgs(ownerID).
		WillReturnRows(userRows().
			AddRow(int64(11), "cook@example.com", "Cook", "user", nil, ownerID, now, now).
			AddRow(int64(12), "waiter@example.com", "Waiter", "user", nil, ownerID, now, now))

	store := NewStore(db)
	staff, err := store.ListStaff(context.Background(), ownerID)
	require.NoError(t, err)
	require.Len(t, staff, 2)
	assert.True(t, staff[0].IsStaff())
	assert.Equal(t, ownerID, *staff[1].RestaurantOwnerID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGrantAndRevokePermission(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	grantedBy := int64(1)
	mock.ExpectExec("INSERT INTO user_permissions").
		WithArgs(int64(5), "menu:view", &grantedBy, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM user_permissions").
		WithArgs(int64(5), "menu:view").
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	require.NoError(t, store.GrantPermission(context.Background(), 5, permissions.PermMenuView, &grantedBy))
	require.NoError(t, store.RevokePermission(context.Background(), 5, permissions.PermMenuView))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreGetGrantedPermissions(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT permission FROM user_permissions").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"permission"}).
			AddRow("account:view").
			AddRow("menu:view"))

	store := NewStore(db)
	perms, err := store.GetGrantedPermissions(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []permissions.Permission{permissions.PermAccountView, permissions.PermMenuView}, perms)
	assert.NoError(t, mock.ExpectationsWereMet())
}
