package tenants

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuforge/menuforge/pkg/observability"
)

func restaurantRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "owner_id", "slug", "name", "theme", "address", "phone", "logo_url", "currency", "waiter_code", "created_at", "updated_at",
	})
}

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	svc, err := NewService(NewStore(db), 16, logger, metrics)
	require.NoError(t, err)
	return svc, mock
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("la-trattoria"))
	assert.True(t, ValidSlug("cafe9"))
	assert.False(t, ValidSlug("La-Trattoria"))
	assert.False(t, ValidSlug("-leading"))
	assert.False(t, ValidSlug("double--hyphen"))
	assert.False(t, ValidSlug("a"))
	assert.False(t, ValidSlug(""))
}

func TestGetBySlugCachesResult(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM restaurants WHERE slug").
		WithArgs("la-trattoria").
		WillReturnRows(restaurantRows().AddRow(
			int64(1), int64(5), "la-trattoria", "La Trattoria", "classic", "", "", "", "EUR", "1234", now, now))

	r, err := svc.GetBySlug(context.Background(), "la-trattoria")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)

	// Second call must be served from cache; sqlmock would fail on an
	// unexpected second query.
	r, err = svc.GetBySlug(context.Background(), "la-trattoria")
	require.NoError(t, err)
	assert.Equal(t, "La Trattoria", r.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateInvalidatesCache(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM restaurants WHERE slug").
		WithArgs("la-trattoria").
		WillReturnRows(restaurantRows().AddRow(
			int64(1), int64(5), "la-trattoria", "La Trattoria", "classic", "", "", "", "EUR", "1234", now, now))

	r, err := svc.GetBySlug(context.Background(), "la-trattoria")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE restaurants").
		WillReturnResult(sqlmock.NewResult(0, 1))
	r.Name = "Trattoria Nuova"
	require.NoError(t, svc.Update(context.Background(), r))

	// The next slug lookup goes back to the store.
	mock.ExpectQuery("SELECT (.+) FROM restaurants WHERE slug").
		WithArgs("la-trattoria").
		WillReturnRows(restaurantRows().AddRow(
			int64(1), int64(5), "la-trattoria", "Trattoria Nuova", "classic", "", "", "", "EUR", "1234", now, now))

	r, err = svc.GetBySlug(context.Background(), "la-trattoria")
	require.NoError(t, err)
	assert.Equal(t, "Trattoria Nuova", r.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyWaiterCode(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM restaurants WHERE slug").
		WithArgs("la-trattoria").
		WillReturnRows(restaurantRows().AddRow(
			int64(1), int64(5), "la-trattoria", "La Trattoria", "classic", "", "", "", "EUR", "1234", now, now))

	r, err := svc.VerifyWaiterCode(context.Background(), "la-trattoria", "1234")
	require.NoError(t, err)
	assert.Equal(t, int64(1), r.ID)

	_, err = svc.VerifyWaiterCode(context.Background(), "la-trattoria", "9999")
	assert.ErrorIs(t, err, ErrInvalidWaiterCode)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyWaiterCodeRejectsEmptyConfiguredCode(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM restaurants WHERE slug").
		WithArgs("no-code").
		WillReturnRows(restaurantRows().AddRow(
			int64(2), int64(6), "no-code", "No Code", "classic", "", "", "", "EUR", "", now, now))

	_, err := svc.VerifyWaiterCode(context.Background(), "no-code", "")
	assert.ErrorIs(t, err, ErrInvalidWaiterCode)
}

func TestCreateRejectsInvalidSlug(t *testing.T) {
	svc, mock := newTestService(t)
	_, err := svc.Create(context.Background(), &Restaurant{OwnerID: 5, Slug: "Bad Slug"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
