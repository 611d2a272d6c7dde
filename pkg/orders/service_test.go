package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/menuforge/menuforge/pkg/menu"
	"github.com/menuforge/menuforge/pkg/observability"
)

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	menus := menu.NewService(menu.NewStore(db), logger)
	return NewService(NewStore(db), menus, logger, metrics), mock
}

func itemRow(id int64, name string, priceCents int64, available bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "restaurant_id", "category_id", "name", "description", "price_cents", "image_url", "available", "position", "created_at", "updated_at",
	}).AddRow(id, int64(1), int64(10), name, "", priceCents, "", available, 1, now, now)
}

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusReceived.CanTransition(StatusPreparing))
	assert.True(t, StatusPreparing.CanTransition(StatusReady))
	assert.True(t, StatusReady.CanTransition(StatusDelivered))
	assert.True(t, StatusReceived.CanTransition(StatusCancelled))
	assert.True(t, StatusReady.CanTransition(StatusCancelled))

	assert.False(t, StatusReceived.CanTransition(StatusReady))
	assert.False(t, StatusDelivered.CanTransition(StatusCancelled))
	assert.False(t, StatusCancelled.CanTransition(StatusPreparing))
	assert.False(t, StatusPreparing.CanTransition(StatusReceived))
}

func TestPlaceOrderSnapshotsMenuPrices(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM menu_items WHERE id").
		WithArgs(int64(100), int64(1)).
		WillReturnRows(itemRow(100, "Carbonara", 1150, true))
	mock.ExpectQuery("SELECT (.+) FROM menu_items WHERE id").
		WithArgs(int64(101), int64(1)).
		WillReturnRows(itemRow(101, "Tiramisu", 600, true))

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("INSERT INTO order_lines").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(70)))
	mock.ExpectQuery("INSERT INTO order_lines").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(71)))
	mock.ExpectCommit()

	order, err := svc.Place(context.Background(), 1, &PlaceOrderRequest{
		Table: "12",
		Lines: []PlaceOrderLine{
			{ItemID: 100, Quantity: 2},
			{ItemID: 101, Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusReceived, order.Status)
	assert.NotEmpty(t, order.Reference)
	assert.Equal(t, int64(2*1150+600), order.TotalCents)
	require.Len(t, order.Lines, 2)
	assert.Equal(t, "Carbonara", order.Lines[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderRejectsUnavailableItem(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery("SELECT (.+) FROM menu_items WHERE id").
		WithArgs(int64(100), int64(1)).
		WillReturnRows(itemRow(100, "Oysters", 1200, false))

	_, err := svc.Place(context.Background(), 1, &PlaceOrderRequest{
		Lines: []PlaceOrderLine{{ItemID: 100, Quantity: 1}},
	})
	var verr *menu.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestPlaceOrderRejectsEmptyAndNonPositiveLines(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Place(context.Background(), 1, &PlaceOrderRequest{})
	var verr *menu.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "lines", verr.Field)

	_, err = svc.Place(context.Background(), 1, &PlaceOrderRequest{
		Lines: []PlaceOrderLine{{ItemID: 100, Quantity: 0}},
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "quantity", verr.Field)
}

func TestTransitionEnforcesLifecycle(t *testing.T) {
	svc, mock := newTestService(t)

	now := time.Now()
	orderCols := []string{"id", "restaurant_id", "reference", "table_label", "status", "total_cents", "note", "created_at", "updated_at"}
	lineCols := []string{"id", "order_id", "item_id", "name", "quantity", "price_cents", "note"}

	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(int64(7), int64(1), "ref-1", "", "received", int64(1150), "", now, now))
	mock.ExpectQuery("SELECT (.+) FROM order_lines").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(lineCols))
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("preparing", sqlmock.AnyArg(), int64(7), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	order, err := svc.Transition(context.Background(), 1, 7, StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, StatusPreparing, order.Status)

	// Skipping straight to delivered is rejected before any write.
	mock.ExpectQuery("SELECT (.+) FROM orders WHERE id").
		WithArgs(int64(7), int64(1)).
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(int64(7), int64(1), "ref-1", "", "preparing", int64(1150), "", now, now))
	mock.ExpectQuery("SELECT (.+) FROM order_lines").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(lineCols))

	_, err = svc.Transition(context.Background(), 1, 7, StatusDelivered)
	var terr *InvalidTransitionError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, StatusPreparing, terr.From)
	assert.NoError(t, mock.ExpectationsWereMet())
}
