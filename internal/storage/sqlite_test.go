package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// createTestStorage opens a migrated file-backed store in a temp dir.
func createTestStorage(t *testing.T) (*SQLiteStorage, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	t.Cleanup(func() { _ = store.Close() })
	return store, dbPath
}

func createMemoryStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorage_CreateAndGet(t *testing.T) {
	store := createMemoryStorage(t)
	ctx := context.Background()

	created, err := store.Table(service.TableProducts).Create(ctx, service.Fields{
		model.FieldName:      "CINE",
		model.FieldPrice:     decimal.RequireFromString("-12.50"),
		model.FieldPeriodic:  false,
		model.FieldSizeClass: string(model.SizeMedium),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^rec[0-9a-f]{14}$`, created.ID)

	got, err := store.Table(service.TableProducts).Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "CINE", got.Fields.String(model.FieldName))
	assert.False(t, got.Fields.Bool(model.FieldPeriodic))

	price, err := got.Fields.Decimal(model.FieldPrice)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.RequireFromString("-12.5")))

	_, err = store.Table(service.TableMerchants).Get(ctx, created.ID)
	assert.ErrorIs(t, err, common.ErrNotFound, "records are scoped to their table")
}

func TestSQLiteStorage_GetMissing(t *testing.T) {
	store := createMemoryStorage(t)

	_, err := store.Table(service.TableAccounts).Get(context.Background(), "recmissing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_UnknownTable(t *testing.T) {
	store := createMemoryStorage(t)

	_, err := store.Table("FACTURAS").Query(context.Background(), service.QueryOptions{})
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestSQLiteStorage_Update(t *testing.T) {
	store := createMemoryStorage(t)
	ctx := context.Background()
	table := store.Table(service.TableMovements)

	account, err := store.Table(service.TableAccounts).Create(ctx, service.Fields{
		model.FieldAccountType: string(model.AccountCurrent),
	})
	require.NoError(t, err)

	mov, err := table.Create(ctx, service.Fields{
		model.FieldAccount:  []string{account.ID},
		model.FieldAmount:   "-20",
		model.FieldSameWeek: true,
	})
	require.NoError(t, err)

	updated, err := table.Update(ctx, mov.ID, service.Fields{
		model.FieldOverride: "19.20",
		model.FieldSameWeek: nil,
	})
	require.NoError(t, err)
	assert.Equal(t, "19.20", updated.Fields.String(model.FieldOverride))
	assert.False(t, updated.Fields.Has(model.FieldSameWeek))
	assert.Equal(t, []string{account.ID}, updated.Fields.Links(model.FieldAccount))

	_, err = table.Update(ctx, "recmissing", service.Fields{model.FieldAmount: "1"})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_LinkBackReferences(t *testing.T) {
	store := createMemoryStorage(t)
	ctx := context.Background()
	accounts := store.Table(service.TableAccounts)
	movements := store.Table(service.TableMovements)

	account, err := accounts.Create(ctx, service.Fields{model.FieldAccountType: string(model.AccountCurrent)})
	require.NoError(t, err)
	other, err := accounts.Create(ctx, service.Fields{model.FieldAccountType: string(model.AccountCard)})
	require.NoError(t, err)

	first, err := movements.Create(ctx, service.Fields{model.FieldAccount: []string{account.ID}})
	require.NoError(t, err)
	second, err := movements.Create(ctx, service.Fields{model.FieldAccount: []string{account.ID}})
	require.NoError(t, err)

	got, err := accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID, second.ID}, got.Fields.Links(model.FieldMovements))

	// Moving a movement relinks both accounts
	_, err = movements.Update(ctx, second.ID, service.Fields{model.FieldAccount: []string{other.ID}})
	require.NoError(t, err)

	got, err = accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, got.Fields.Links(model.FieldMovements))
	got, err = accounts.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, got.Fields.Links(model.FieldMovements))

	deleted, err := movements.Delete(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err = accounts.Get(ctx, account.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Fields.Links(model.FieldMovements))
}

func TestSQLiteStorage_LinkToMissingRecord(t *testing.T) {
	store := createMemoryStorage(t)
	ctx := context.Background()

	_, err := store.Table(service.TableMovements).Create(ctx, service.Fields{
		model.FieldAccount: []string{"recmissing"},
	})
	assert.ErrorIs(t, err, ErrInvalidLinkRef)

	rows, err := store.Table(service.TableMovements).Query(ctx, service.QueryOptions{})
	require.NoError(t, err)
	assert.Empty(t, rows, "failed create must roll back")
}

func TestSQLiteStorage_Delete(t *testing.T) {
	store := createMemoryStorage(t)
	ctx := context.Background()

	deleted, err := store.Table(service.TableMerchants).Delete(ctx, "recmissing")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLiteStorage_DuplicateAccountNumber(t *testing.T) {
	store := createMemoryStorage(t)
	ctx := context.Background()
	accounts := store.Table(service.TableAccounts)

	_, err := accounts.Create(ctx, service.Fields{model.FieldAccountNumber: "ES00-0001"})
	require.NoError(t, err)
	_, err = accounts.Create(ctx, service.Fields{model.FieldAccountNumber: "ES00-0001"})
	assert.ErrorIs(t, err, common.ErrWriteError)
}

func TestSQLiteStorage_Query(t *testing.T) {
	store := createMemoryStorage(t)
	ctx := context.Background()
	products := store.Table(service.TableProducts)

	seed := []service.Fields{
		{model.FieldName: "PAN", model.FieldPrice: "-1.20", model.FieldSizeClass: "PEQUEÑA"},
		{model.FieldName: "CINE", model.FieldPrice: "-9", model.FieldSizeClass: "MEDIANA"},
		{model.FieldName: "COCHE", model.FieldPrice: "-12000", model.FieldSizeClass: "GRANDE"},
		{model.FieldName: "LECHE", model.FieldPrice: "-0.95", model.FieldSizeClass: "PEQUEÑA"},
	}
	for _, fields := range seed {
		_, err := products.Create(ctx, fields)
		require.NoError(t, err)
	}

	tests := []struct {
		name  string
		opts  service.QueryOptions
		names []string
	}{
		{
			name:  "insertion order by default",
			names: []string{"PAN", "CINE", "COCHE", "LECHE"},
		},
		{
			name:  "filter by field",
			opts:  service.QueryOptions{Filter: service.Fields{model.FieldSizeClass: "PEQUEÑA"}},
			names: []string{"PAN", "LECHE"},
		},
		{
			name:  "numeric sort",
			opts:  service.QueryOptions{Sort: []string{model.FieldPrice}},
			names: []string{"COCHE", "CINE", "PAN", "LECHE"},
		},
		{
			name:  "descending sort with limit",
			opts:  service.QueryOptions{Sort: []string{"-" + model.FieldName}, MaxRecords: 2},
			names: []string{"PAN", "LECHE"},
		},
		{
			name:  "no matches",
			opts:  service.QueryOptions{Filter: service.Fields{model.FieldName: "TREN"}},
			names: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := products.Query(ctx, tt.opts)
			require.NoError(t, err)

			var names []string
			for _, rec := range records {
				names = append(names, rec.Fields.String(model.FieldName))
			}
			assert.Equal(t, tt.names, names)
		})
	}

	t.Run("field projection", func(t *testing.T) {
		records, err := products.Query(ctx, service.QueryOptions{Fields: []string{model.FieldName}, MaxRecords: 1})
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Len(t, records[0].Fields, 1)
	})
}

func TestSQLiteStorage_QueryLinkFilter(t *testing.T) {
	store := createMemoryStorage(t)
	ctx := context.Background()

	merchant, err := store.Table(service.TableMerchants).Create(ctx, service.Fields{model.FieldName: "CINES LUX"})
	require.NoError(t, err)
	_, err = store.Table(service.TableProducts).Create(ctx, service.Fields{
		model.FieldName:     "ENTRADA",
		model.FieldMerchant: []string{merchant.ID},
	})
	require.NoError(t, err)
	_, err = store.Table(service.TableProducts).Create(ctx, service.Fields{model.FieldName: "SUELTO"})
	require.NoError(t, err)

	records, err := store.Table(service.TableProducts).Query(ctx, service.QueryOptions{
		Filter: service.Fields{model.FieldMerchant: merchant.ID},
	})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "ENTRADA", records[0].Fields.String(model.FieldName))

	got, err := store.Table(service.TableMerchants).Get(ctx, merchant.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{records[0].ID}, got.Fields.Links(model.FieldMerchantOffers))
}

func TestClassifySQLiteError(t *testing.T) {
	tests := []struct {
		err       error
		name      string
		retryable bool
	}{
		{name: "busy", err: sqlite3.Error{Code: sqlite3.ErrBusy}, retryable: true},
		{name: "locked", err: sqlite3.Error{Code: sqlite3.ErrLocked}, retryable: true},
		{name: "constraint", err: sqlite3.Error{Code: sqlite3.ErrConstraint}},
		{name: "plain", err: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifySQLiteError(tt.err)
			assert.Equal(t, tt.retryable, common.IsRetryable(err))
			if tt.retryable {
				assert.ErrorIs(t, err, common.ErrStoreBusy)
			}
		})
	}
}
