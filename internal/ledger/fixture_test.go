package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
	"github.com/maestroSwift/villarbolsillo/internal/testutil"
)

const (
	// poorReference is a character whose whole income is 10.00.
	poorReference  = 2
	poorProfession = "BECARIO"
	doubleTicket   = "ENTRADA DOBLE"
)

func fixedNow() time.Time {
	return time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	store  service.RecordStore
	cat    *testutil.Catalog
	ledger *Ledger
}

// newFixture seeds the standard catalog plus a poor character and builds a
// ledger over it.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := testutil.SetupTestStore(t)
	cat := testutil.NewCatalogBuilder(t, store).
		WithStandardCatalog().
		WithProfession(poorProfession, "10", "0", "0", "0").
		WithCharacter(poorReference, "BECARIO-2", "FAMILIA PÉREZ", poorProfession).
		WithProduct(testutil.Cinema, doubleTicket, "-25", model.SizeMedium).
		Build()

	opts = append([]Option{WithClock(fixedNow)}, opts...)
	return &fixture{
		store:  store,
		cat:    cat,
		ledger: New(store, DefaultConfig(), opts...),
	}
}

// open gives the character its accounts and returns the character id.
func (f *fixture) open(t *testing.T, ref int, opts OpenOptions) string {
	t.Helper()
	id := f.cat.Character(ref)
	require.NotEmpty(t, id, "character %d not in catalog", ref)
	_, err := f.ledger.OpenAccounts(context.Background(), id, opts)
	require.NoError(t, err)
	return id
}

func (f *fixture) accounts(t *testing.T, characterID string) Accounts {
	t.Helper()
	accounts, err := f.ledger.Accounts(context.Background(), characterID)
	require.NoError(t, err)
	return accounts
}

func (f *fixture) buy(t *testing.T, characterID, product string) Result {
	t.Helper()
	id := f.cat.Product(product)
	require.NotEmpty(t, id, "product %s not in catalog", product)
	res, err := f.ledger.NewMovement(context.Background(), characterID, Request{ProductID: id})
	require.NoError(t, err)
	return res
}

func (f *fixture) movements(t *testing.T) int {
	t.Helper()
	return testutil.Count(t, f.store, service.TableMovements)
}

// requireBalanced checks every account of the character against its cache.
func (f *fixture) requireBalanced(t *testing.T, characterID string) {
	t.Helper()
	for _, acc := range f.accounts(t, characterID) {
		sum := decimal.Zero
		for _, m := range acc.Movements {
			sum = sum.Add(m.SignedAmount())
		}
		require.True(t, sum.Equal(acc.Balance()), "%s: balance %s, movements sum %s", acc.Type, acc.Balance(), sum)
		require.NotNil(t, acc.CachedBalance, "%s has no cached balance", acc.Type)
		require.True(t, acc.CachedBalance.Equal(sum), "%s: cache %s, derived %s", acc.Type, acc.CachedBalance, sum)
	}
}

type recordingProgress struct {
	totals   []int
	advanced []string
	finished int
}

func (p *recordingProgress) Start(total int)        { p.totals = append(p.totals, total) }
func (p *recordingProgress) Advance(concept string) { p.advanced = append(p.advanced, concept) }
func (p *recordingProgress) Finish()                { p.finished++ }
