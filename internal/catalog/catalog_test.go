package catalog_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroSwift/villarbolsillo/internal/catalog"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
	"github.com/maestroSwift/villarbolsillo/internal/testutil"
)

func TestLoad(t *testing.T) {
	f, err := catalog.Load(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)

	require.Len(t, f.Professions, 1)
	assert.Equal(t, "ENFERMERA", f.Professions[0].Name)
	assert.Equal(t, 2, f.Professions[0].Dependents)
	require.Len(t, f.Characters, 1)
	assert.Equal(t, 7, f.Characters[0].Reference)
	require.Len(t, f.Merchants, 2)
	assert.Len(t, f.Merchants[0].Products, 2)
	assert.True(t, f.Merchants[1].Products[0].Periodic)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		message string
	}{
		{
			name:    "malformed yaml",
			yaml:    "professions: [",
			message: "invalid catalog",
		},
		{
			name:    "bad salary",
			yaml:    "professions:\n  - name: A\n    salary: lots\n",
			message: "salary",
		},
		{
			name:    "unknown profession",
			yaml:    "characters:\n  - reference: 1\n    profession: PIRATA\n",
			message: `unknown profession "PIRATA"`,
		},
		{
			name:    "duplicate reference",
			yaml:    "characters:\n  - reference: 3\n  - reference: 3\n",
			message: "duplicate reference",
		},
		{
			name:    "zero reference",
			yaml:    "characters:\n  - title: X\n",
			message: "reference must be positive",
		},
		{
			name:    "unknown size",
			yaml:    "merchants:\n  - name: M\n    products:\n      - name: P\n        price: \"-1\"\n        size: ENORME\n",
			message: `unknown size "ENORME"`,
		},
		{
			name:    "periodic without frequency",
			yaml:    "merchants:\n  - name: M\n    products:\n      - name: P\n        price: \"-1\"\n        periodic: true\n",
			message: "periodic products need a frequency",
		},
		{
			name:    "unknown frequency",
			yaml:    "merchants:\n  - name: M\n    products:\n      - name: P\n        frequency: ANUAL\n",
			message: `unknown frequency "ANUAL"`,
		},
		{
			name:    "merchant without name",
			yaml:    "merchants:\n  - rules: x\n",
			message: "merchant: missing name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.ErrorIs(t, err, catalog.ErrInvalidCatalog)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestImport(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	f, err := catalog.Load(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)

	sum, err := catalog.Import(ctx, store, f)
	require.NoError(t, err)
	assert.Equal(t, catalog.Summary{Professions: 1, Characters: 1, Merchants: 2, Products: 3}, sum)

	chars, err := store.Table(service.TableCharacters).Query(ctx, service.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, chars, 1)
	assert.Equal(t, "ENFERMERA-7", chars[0].Fields.String(model.FieldCharacter))

	profID := chars[0].Fields.String(model.FieldProfession)
	prof := testutil.MustGet(t, store, service.TableProfessions, profID)
	salary, err := prof.Fields.Decimal(model.FieldSalary)
	require.NoError(t, err)
	assert.Equal(t, "1650", salary.String())

	products, err := store.Table(service.TableProducts).Query(ctx, service.QueryOptions{
		Filter: service.Fields{model.FieldName: "AGUA"},
	})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, products[0].Fields.Bool(model.FieldPeriodic))
	assert.Equal(t, string(model.FrequencyMonthly), products[0].Fields.String(model.FieldFrequency))

	// The merchant side of the link is maintained by the store.
	merchant := testutil.MustGet(t, store, service.TableMerchants, products[0].Fields.String(model.FieldMerchant))
	assert.Equal(t, []string{products[0].ID}, merchant.Fields.Links(model.FieldMerchantOffers))
}

func TestImport_Idempotent(t *testing.T) {
	store := testutil.SetupTestStore(t)
	ctx := context.Background()

	f, err := catalog.Load(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)

	_, err = catalog.Import(ctx, store, f)
	require.NoError(t, err)

	f.Merchants[0].Products[0].Price = "-1.35"
	sum, err := catalog.Import(ctx, store, f)
	require.NoError(t, err)
	assert.Equal(t, 7, sum.Updated)

	assert.Equal(t, 1, testutil.Count(t, store, service.TableProfessions))
	assert.Equal(t, 1, testutil.Count(t, store, service.TableCharacters))
	assert.Equal(t, 2, testutil.Count(t, store, service.TableMerchants))
	assert.Equal(t, 3, testutil.Count(t, store, service.TableProducts))

	bread, err := store.Table(service.TableProducts).Query(ctx, service.QueryOptions{
		Filter: service.Fields{model.FieldName: "PAN"},
	})
	require.NoError(t, err)
	require.Len(t, bread, 1)
	assert.Equal(t, "-1.35", bread[0].Fields.String(model.FieldPrice))
}

func TestImport_RejectsInvalid(t *testing.T) {
	store := testutil.SetupTestStore(t)

	_, err := catalog.Import(context.Background(), store, &catalog.File{
		Characters: []catalog.Character{{Reference: 1, Profession: "NADIE"}},
	})
	require.ErrorIs(t, err, catalog.ErrInvalidCatalog)
	assert.Equal(t, 0, testutil.Count(t, store, service.TableCharacters))
}
