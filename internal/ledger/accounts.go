// Package ledger implements the account, quota, reconciliation and routing
// rules of the household simulation on top of a service.RecordStore.
package ledger

import (
	"context"
	"fmt"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// Accounts maps each account slot to the character's account of that type.
type Accounts map[model.AccountType]*model.Account

// Get returns the account of the given type, or nil.
func (a Accounts) Get(t model.AccountType) *model.Account {
	return a[t]
}

// Current returns the CURRENT account, or nil.
func (a Accounts) Current() *model.Account {
	return a[model.AccountCurrent]
}

// AccountSet resolves a character's linked accounts by type.
type AccountSet struct {
	repo repository
}

// NewAccountSet creates an AccountSet reading from store.
func NewAccountSet(store service.RecordStore) *AccountSet {
	return &AccountSet{repo: repository{store: store}}
}

// Resolve loads the character's accounts with their movements. An empty
// character id resolves to an empty set.
func (s *AccountSet) Resolve(ctx context.Context, characterID string) (Accounts, error) {
	const op = "resolve accounts"
	accounts := Accounts{}
	if characterID == "" {
		return accounts, nil
	}

	character, err := s.repo.character(ctx, characterID)
	if err != nil {
		return nil, common.Store(op, err)
	}

	for _, id := range character.AccountIDs {
		acc, err := s.repo.account(ctx, id)
		if err != nil {
			le := common.Store(op, err)
			le.AccountID = id
			return nil, le
		}
		if existing, dup := accounts[acc.Type]; dup {
			le := common.Policy(op, common.ErrDuplicateAccount,
				fmt.Sprintf("%s: %s, %s", acc.Type, existing.ID, acc.ID))
			le.AccountID = acc.ID
			return nil, le
		}
		accounts[acc.Type] = acc
	}
	return accounts, nil
}
