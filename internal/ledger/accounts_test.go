package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
	"github.com/maestroSwift/villarbolsillo/internal/testutil"
)

func TestAccountSet_EmptyCharacter(t *testing.T) {
	f := newFixture(t)
	accounts, err := NewAccountSet(f.store).Resolve(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.Nil(t, accounts.Current())
}

func TestAccountSet_NoAccountsYet(t *testing.T) {
	f := newFixture(t)
	accounts, err := NewAccountSet(f.store).Resolve(context.Background(), f.cat.Character(testutil.StandardReference))
	require.NoError(t, err)
	assert.Empty(t, accounts)
}

func TestAccountSet_ResolvesByType(t *testing.T) {
	f := newFixture(t)
	char := f.open(t, testutil.StandardReference, OpenOptions{Savings: true, Retirement: true})

	accounts := f.accounts(t, char)
	require.Len(t, accounts, 4)
	for _, typ := range model.AccountTypes {
		acc := accounts.Get(typ)
		require.NotNil(t, acc, typ)
		assert.Equal(t, typ, acc.Type)
		assert.Equal(t, char, acc.CharacterID)
	}
	assert.Len(t, accounts.Current().Movements, 1)
	assert.Len(t, accounts.Get(model.AccountCard).Movements, 1)
	assert.Empty(t, accounts.Get(model.AccountSavings).Movements)
}

func TestAccountSet_DuplicateType(t *testing.T) {
	f := newFixture(t)
	char := f.open(t, testutil.StandardReference, OpenOptions{})
	ctx := context.Background()
	original := f.accounts(t, char).Current()

	dup, err := f.store.Table(service.TableAccounts).Create(ctx, service.Fields{
		model.FieldCharacter:     []string{char},
		model.FieldAccountType:   string(model.AccountCurrent),
		model.FieldAccountNumber: "VBCC-DUPL-00000000",
	})
	require.NoError(t, err)

	_, err = NewAccountSet(f.store).Resolve(ctx, char)
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrDuplicateAccount)
	assert.Equal(t, common.KindPolicy, common.KindOf(err))
	assert.Contains(t, err.Error(), original.ID)
	assert.Contains(t, err.Error(), dup.ID)

	// Transactions refuse to guess which account is meant.
	_, err = f.ledger.NewMovement(ctx, char, Request{ProductID: f.cat.Product("PAN")})
	assert.ErrorIs(t, err, common.ErrDuplicateAccount)
}

func TestNewMovement_WithoutAccounts(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.NewMovement(context.Background(), f.cat.Character(testutil.StandardReference), Request{
		ProductID: f.cat.Product("PAN"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMissingAccount)
}

func TestNewMovement_UnknownCharacter(t *testing.T) {
	f := newFixture(t)
	_, err := f.ledger.NewMovement(context.Background(), "recmissing0000000", Request{})
	require.Error(t, err)
	assert.Equal(t, common.KindStore, common.KindOf(err))
	assert.ErrorIs(t, err, common.ErrNotFound)
}
