package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/packlane/packlane-backend/internal/store"
	"github.com/packlane/packlane-backend/types"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var itemColumnNames = []string{
	"id", "checklist_id", "name", "quantity", "status", "created_by", "created_at", "updated_at",
}

func TestChecklistStore_CreateItem(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewChecklistStore(mock)

	mock.ExpectQuery(`(?s)INSERT INTO packing_items(.+)RETURNING id`).
		WithArgs("trip-1", "Passport", 1, types.ItemStatusUnchecked, "user-1").
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow("item-1"))

	id, err := s.CreateItem(context.Background(), &types.PackingItem{
		ChecklistID: "trip-1",
		Name:        "Passport",
		CreatedBy:   "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "item-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChecklistStore_GetUncheckedItemNames(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewChecklistStore(mock)

	mock.ExpectQuery(`(?s)SELECT name\s+FROM packing_items\s+WHERE checklist_id = \$1 AND status = 'UNCHECKED'`).
		WithArgs("trip-1").
		WillReturnRows(mock.NewRows([]string{"name"}).
			AddRow("Passport").
			AddRow("Charger"))

	names, err := s.GetUncheckedItemNames(context.Background(), "trip-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Passport", "Charger"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChecklistStore_GetUncheckedItemNames_Empty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewChecklistStore(mock)

	mock.ExpectQuery(`(?s)SELECT name\s+FROM packing_items`).
		WithArgs("trip-1").
		WillReturnRows(mock.NewRows([]string{"name"}))

	names, err := s.GetUncheckedItemNames(context.Background(), "trip-1")
	require.NoError(t, err, "a fully packed checklist is not an error")
	assert.Empty(t, names)
}

func TestChecklistStore_UpdateItem_StatusOnly(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewChecklistStore(mock)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	checked := types.ItemStatusChecked

	mock.ExpectQuery(`(?s)UPDATE packing_items\s+SET name = COALESCE(.+)RETURNING`).
		WithArgs((*string)(nil), (*int)(nil), &checked, "item-1").
		WillReturnRows(mock.NewRows(itemColumnNames).AddRow(
			"item-1", "trip-1", "Passport", 1, types.ItemStatusChecked, "user-1", now, now,
		))

	item, err := s.UpdateItem(context.Background(), "item-1", &types.PackingItemUpdate{Status: &checked})
	require.NoError(t, err)
	assert.Equal(t, types.ItemStatusChecked, item.Status)
	assert.Equal(t, "Passport", item.Name, "unset fields keep their values")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestChecklistStore_UpdateItem_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewChecklistStore(mock)

	mock.ExpectQuery(`(?s)UPDATE packing_items`).
		WithArgs((*string)(nil), (*int)(nil), (*types.ItemStatus)(nil), "missing").
		WillReturnRows(mock.NewRows(itemColumnNames))

	_, err = s.UpdateItem(context.Background(), "missing", &types.PackingItemUpdate{})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestChecklistStore_DeleteItem_NotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewChecklistStore(mock)

	mock.ExpectExec(`DELETE FROM packing_items WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, s.DeleteItem(context.Background(), "missing"), store.ErrNotFound)
}

func TestChecklistStore_ListItems(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s := NewChecklistStore(mock)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)SELECT id, checklist_id, name(.+)FROM packing_items\s+WHERE checklist_id = \$1`).
		WithArgs("trip-1").
		WillReturnRows(mock.NewRows(itemColumnNames).
			AddRow("item-1", "trip-1", "Passport", 1, types.ItemStatusUnchecked, "user-1", now, now).
			AddRow("item-2", "trip-1", "Charger", 2, types.ItemStatusChecked, "user-1", now, now))

	items, err := s.ListItems(context.Background(), "trip-1")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Charger", items[1].Name)
	assert.Equal(t, 2, items[1].Quantity)
}
