package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// InitialDebtConcept labels the card debt a character starts with.
const InitialDebtConcept = "DEUDA INICIAL TARJETA"

// OpenOptions selects the optional accounts to open.
type OpenOptions struct {
	Savings    bool
	Retirement bool
}

// OpenAccounts gives a character its accounts. The first call opens CURRENT
// with the first month of salary and CARD with the profession's starting
// debt; later calls only add the optional accounts still missing.
func (l *Ledger) OpenAccounts(ctx context.Context, characterID string, opts OpenOptions) (Accounts, error) {
	const op = "open accounts"

	character, err := l.repo.character(ctx, characterID)
	if err != nil {
		return nil, common.Store(op, err)
	}
	accounts, err := l.accounts.Resolve(ctx, characterID)
	if err != nil {
		return nil, err
	}

	wanted := []model.AccountType{model.AccountCurrent, model.AccountCard}
	if opts.Savings {
		wanted = append(wanted, model.AccountSavings)
	}
	if opts.Retirement {
		wanted = append(wanted, model.AccountRetirement)
	}

	for _, t := range wanted {
		if accounts.Get(t) != nil {
			continue
		}
		acc, err := l.createAccount(ctx, character, t)
		if err != nil {
			le := common.Store(op, err)
			le.Detail = string(t)
			return nil, le
		}

		switch t {
		case model.AccountCurrent:
			err = l.postFirstSalary(ctx, character, acc)
		case model.AccountCard:
			err = l.postInitialDebt(ctx, character, acc)
		}
		if err != nil {
			le := common.Store(op, err)
			le.AccountID = acc.ID
			return nil, le
		}
		if _, err := l.refreshBalance(ctx, acc.ID); err != nil {
			common.LogError(ctx, err, "Failed to refresh balance cache", common.Fields{"account": acc.ID})
		}
		common.LogInfo(ctx, "Opened account", common.Fields{
			"account":   acc.ID,
			"number":    acc.Number,
			"type":      string(t),
			"character": characterID,
		})
	}

	return l.accounts.Resolve(ctx, characterID)
}

func (l *Ledger) createAccount(ctx context.Context, character *model.Character, t model.AccountType) (*model.Account, error) {
	number := newAccountNumber(t)
	rec, err := l.store.Table(service.TableAccounts).Create(ctx, service.Fields{
		model.FieldCharacter:     []string{character.ID},
		model.FieldAccountType:   string(t),
		model.FieldAccountNumber: number,
		model.FieldBalance:       decimal.Zero.StringFixed(2),
	})
	if err != nil {
		return nil, err
	}
	return &model.Account{ID: rec.ID, CharacterID: character.ID, Type: t, Number: number}, nil
}

// newAccountNumber derives a readable unique number from a random UUID.
func newAccountNumber(t model.AccountType) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	prefix := map[model.AccountType]string{
		model.AccountCurrent:    "CC",
		model.AccountCard:       "TC",
		model.AccountRetirement: "PJ",
		model.AccountSavings:    "PA",
	}[t]
	return fmt.Sprintf("VB%s-%s-%s", prefix, raw[:4], raw[4:12])
}

// monthlyIncomeProduct returns the character's salary product, creating it
// on first use.
func (l *Ledger) monthlyIncomeProduct(ctx context.Context, character *model.Character) (*model.Product, error) {
	key := MonthlyIncomeKey(character.Occupation)
	existing, err := l.repo.productBy(ctx, model.FieldProductKey, key)
	if err != nil || existing != nil {
		return existing, err
	}
	rec, err := l.store.Table(service.TableProducts).Create(ctx, service.Fields{
		model.FieldName:       MonthlyIncomeConcept,
		model.FieldProductKey: key,
		model.FieldPrice:      character.MonthlyIncome(),
		model.FieldPeriodic:   true,
		model.FieldFrequency:  string(model.FrequencyMonthly),
	})
	if err != nil {
		return nil, err
	}
	return productFromRecord(rec)
}

func (l *Ledger) postFirstSalary(ctx context.Context, character *model.Character, current *model.Account) error {
	product, err := l.monthlyIncomeProduct(ctx, character)
	if err != nil {
		return err
	}
	_, err = l.repo.createMovement(ctx, movementDraft{
		accountID: current.ID,
		product:   product,
		method:    model.MethodIncome,
		amount:    product.Price,
		elapsed:   1,
		date:      l.now(),
	})
	return err
}

func (l *Ledger) postInitialDebt(ctx context.Context, character *model.Character, card *model.Account) error {
	debt := character.Profession.CardDebt
	if !debt.IsPositive() {
		return nil
	}
	product, err := l.repo.productBy(ctx, model.FieldName, ProductCardPayment)
	if err != nil {
		return err
	}
	override := debt.Neg()
	_, err = l.repo.createMovement(ctx, movementDraft{
		accountID: card.ID,
		product:   product,
		concept:   InitialDebtConcept,
		method:    model.MethodCreditCard,
		amount:    decimal.Zero,
		override:  &override,
		date:      l.now(),
	})
	return err
}

// DeleteAccount removes an account that holds no movements.
func (l *Ledger) DeleteAccount(ctx context.Context, accountID string) error {
	const op = "delete account"
	acc, err := l.repo.account(ctx, accountID)
	if err != nil {
		le := common.Store(op, err)
		le.AccountID = accountID
		return le
	}
	if len(acc.MovementIDs) > 0 {
		le := common.Policy(op, common.ErrAccountNotEmpty, fmt.Sprintf("%d movements", len(acc.MovementIDs)))
		le.AccountID = accountID
		return le
	}
	if _, err := l.store.Table(service.TableAccounts).Delete(ctx, accountID); err != nil {
		le := common.Store(op, err)
		le.AccountID = accountID
		return le
	}
	common.LogInfo(ctx, "Deleted account", common.Fields{"account": accountID, "type": string(acc.Type)})
	return nil
}

// DeleteMovement removes one movement and refreshes its account's cache.
func (l *Ledger) DeleteMovement(ctx context.Context, movementID string) error {
	const op = "delete movement"
	mov, err := l.repo.movement(ctx, movementID)
	if err != nil {
		return common.Store(op, err)
	}
	if _, err := l.store.Table(service.TableMovements).Delete(ctx, movementID); err != nil {
		le := common.Store(op, err)
		le.AccountID = mov.AccountID
		return le
	}
	l.refreshTouched(ctx, []model.Movement{*mov})
	common.LogInfo(ctx, "Deleted movement", common.Fields{"movement": movementID, "account": mov.AccountID})
	return nil
}

// PurgeMovements deletes every movement of an account and returns how many
// were removed. A failure stops the purge; earlier deletions stay.
func (l *Ledger) PurgeMovements(ctx context.Context, accountID string) (int, error) {
	const op = "purge movements"
	acc, err := l.repo.account(ctx, accountID)
	if err != nil {
		le := common.Store(op, err)
		le.AccountID = accountID
		return 0, le
	}

	removed := 0
	for _, id := range acc.MovementIDs {
		if _, err := l.store.Table(service.TableMovements).Delete(ctx, id); err != nil {
			le := common.Store(op, err)
			le.AccountID = accountID
			le.Detail = fmt.Sprintf("%d of %d removed", removed, len(acc.MovementIDs))
			return removed, le
		}
		removed++
	}
	if _, err := l.refreshBalance(ctx, accountID); err != nil {
		common.LogError(ctx, err, "Failed to refresh balance cache", common.Fields{"account": accountID})
	}
	common.LogInfo(ctx, "Purged movements", common.Fields{"account": accountID, "count": removed})
	return removed, nil
}

// AdvancePeriods moves the simulation clock n periods forward for the
// character's periodic CURRENT movements of the given frequency. It returns
// the number of movements touched; the next reconciliation backfills.
func (l *Ledger) AdvancePeriods(ctx context.Context, characterID string, freq model.Frequency, n int) (int, error) {
	const op = "advance periods"
	if n <= 0 {
		return 0, common.Validation(op, common.ErrInvalidInput, "periods must be positive")
	}
	if freq != model.FrequencyWeekly && freq != model.FrequencyMonthly {
		return 0, common.Validation(op, common.ErrInvalidInput, "frequency "+string(freq))
	}

	current, err := l.currentAccount(ctx, op, characterID)
	if err != nil {
		return 0, err
	}

	touched := 0
	for _, m := range current.Movements {
		if m.Frequency != freq {
			continue
		}
		if _, err := l.store.Table(service.TableMovements).Update(ctx, m.ID, service.Fields{
			model.FieldElapsed: m.ElapsedPeriods + n,
		}); err != nil {
			le := common.Store(op, err)
			le.AccountID = current.ID
			le.Detail = fmt.Sprintf("%d movements advanced before failure", touched)
			return touched, le
		}
		touched++
	}
	common.LogInfo(ctx, "Advanced simulation clock", common.Fields{
		"character": characterID,
		"frequency": string(freq),
		"periods":   n,
		"movements": touched,
	})
	return touched, nil
}

// CloseWeek clears the same-week flag on the CURRENT account, restoring the
// full weekly quota. It returns the number of movements cleared.
func (l *Ledger) CloseWeek(ctx context.Context, characterID string) (int, error) {
	const op = "close week"
	current, err := l.currentAccount(ctx, op, characterID)
	if err != nil {
		return 0, err
	}

	cleared := 0
	for _, m := range current.Movements {
		if !m.SameWeek {
			continue
		}
		if _, err := l.store.Table(service.TableMovements).Update(ctx, m.ID, service.Fields{
			model.FieldSameWeek: false,
		}); err != nil {
			le := common.Store(op, err)
			le.AccountID = current.ID
			return cleared, le
		}
		cleared++
	}
	common.LogInfo(ctx, "Closed week", common.Fields{"character": characterID, "cleared": cleared})
	return cleared, nil
}

func (l *Ledger) currentAccount(ctx context.Context, op, characterID string) (*model.Account, error) {
	accounts, err := l.accounts.Resolve(ctx, characterID)
	if err != nil {
		return nil, err
	}
	current := accounts.Current()
	if current == nil {
		return nil, common.Policy(op, common.ErrMissingAccount, string(model.AccountCurrent))
	}
	return current, nil
}

// BalanceCheck compares an account's cached balance with its movements.
type BalanceCheck struct {
	Cached    *decimal.Decimal
	Derived   decimal.Decimal
	AccountID string
	Type      model.AccountType
}

// Drift reports whether the cache disagreed with the movements.
func (b BalanceCheck) Drift() bool {
	return b.Cached == nil || !b.Cached.Equal(b.Derived)
}

// VerifyBalances recomputes every account balance of the character, rewrites
// stale caches and reports what it found.
func (l *Ledger) VerifyBalances(ctx context.Context, characterID string) ([]BalanceCheck, error) {
	const op = "verify balances"
	accounts, err := l.accounts.Resolve(ctx, characterID)
	if err != nil {
		return nil, err
	}

	var checks []BalanceCheck
	for _, t := range model.AccountTypes {
		acc := accounts.Get(t)
		if acc == nil {
			continue
		}
		check := BalanceCheck{
			AccountID: acc.ID,
			Type:      t,
			Cached:    acc.CachedBalance,
			Derived:   acc.Balance(),
		}
		if check.Drift() {
			if _, err := l.refreshBalance(ctx, acc.ID); err != nil {
				le := common.Store(op, err)
				le.AccountID = acc.ID
				return checks, le
			}
			common.LogInfo(ctx, "Balance cache corrected", common.Fields{
				"account": acc.ID,
				"derived": check.Derived.StringFixed(2),
			})
		}
		checks = append(checks, check)
	}
	return checks, nil
}

// Statement lists an account's movements in order with the running balance.
func (l *Ledger) Statement(ctx context.Context, accountID string) ([]model.StatementLine, error) {
	acc, err := l.repo.account(ctx, accountID)
	if err != nil {
		le := common.Store("statement", err)
		le.AccountID = accountID
		return nil, le
	}

	lines := make([]model.StatementLine, 0, len(acc.Movements))
	running := decimal.Zero
	for _, m := range acc.Movements {
		running = running.Add(m.SignedAmount())
		lines = append(lines, model.StatementLine{Movement: m, RunningBalance: running})
	}
	return lines, nil
}

// RefundMovement returns a purchase to its merchant, keeping the penalty.
// Only merchant purchases without an earlier annotation qualify.
func (l *Ledger) RefundMovement(ctx context.Context, movementID string) (*model.Movement, error) {
	const op = "refund movement"
	mov, err := l.repo.movement(ctx, movementID)
	if err != nil {
		return nil, common.Store(op, err)
	}

	reason := ""
	switch {
	case mov.Override != nil:
		reason = "already refunded or a transfer leg"
	case mov.Method == model.MethodIncome:
		reason = "income"
	case !mov.Amount.IsNegative():
		reason = "not a purchase"
	case mov.ProductID == "":
		reason = "no product"
	}
	if reason != "" {
		le := common.Policy(op, common.ErrNotRefundable, reason)
		le.AccountID = mov.AccountID
		le.ProductID = mov.ProductID
		return nil, le
	}

	// IMPORTE is negative, so the override is a positive credit.
	refunded := mov.Amount.Sub(mov.Amount.Mul(l.cfg.RefundPenalty)).Neg()
	rec, err := l.store.Table(service.TableMovements).Update(ctx, movementID, service.Fields{
		model.FieldOverride: refunded,
	})
	if err != nil {
		le := common.Store(op, err)
		le.AccountID = mov.AccountID
		return nil, le
	}
	updated, err := movementFromRecord(rec)
	if err != nil {
		return nil, common.Store(op, err)
	}
	l.refreshTouched(ctx, []model.Movement{*updated})

	common.LogInfo(ctx, "Refunded movement", common.Fields{
		"movement": movementID,
		"account":  mov.AccountID,
		"credited": refunded.StringFixed(2),
	})
	return updated, nil
}
