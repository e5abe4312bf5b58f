package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// DefaultChanceMerchant is the merchant whose outcomes may overdraw CURRENT.
const DefaultChanceMerchant = "DEDO DEL DESTINO"

// Config holds the simulation rules.
type Config struct {
	Caps           model.Quota
	RefundPenalty  decimal.Decimal
	ChanceMerchant string
}

// DefaultConfig returns the standard rules: caps 2/4/8, 4% refund penalty.
func DefaultConfig() Config {
	return Config{
		Caps:           model.DefaultCaps(),
		RefundPenalty:  decimal.NewFromFloat(0.04),
		ChanceMerchant: DefaultChanceMerchant,
	}
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithProgress reports backfill work to p.
func WithProgress(p Progress) Option {
	return func(l *Ledger) {
		l.progress = p
	}
}

// WithClock overrides the time source used to date movements.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Ledger wires the account, quota, reconciliation and routing components.
type Ledger struct {
	store      service.RecordStore
	progress   Progress
	now        func() time.Time
	accounts   *AccountSet
	reconciler *Reconciler
	router     *Router
	repo       repository
	cfg        Config
	quota      QuotaTracker
}

// New creates a Ledger over store.
func New(store service.RecordStore, cfg Config, opts ...Option) *Ledger {
	if cfg.Caps == nil {
		cfg.Caps = model.DefaultCaps()
	}
	if cfg.ChanceMerchant == "" {
		cfg.ChanceMerchant = DefaultChanceMerchant
	}

	l := &Ledger{store: store, cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}

	l.repo = repository{store: store}
	l.quota = NewQuotaTracker(cfg.Caps)
	l.accounts = NewAccountSet(store)
	l.reconciler = NewReconciler(store, l.progress, l.now)
	l.router = NewRouter(store, l.quota, cfg.ChanceMerchant, l.now)
	return l
}

// Config returns the rules the ledger runs with.
func (l *Ledger) Config() Config {
	return l.cfg
}

// Result describes a completed transaction request.
type Result struct {
	Reconciliation Report
	Quota          model.Quota
	Outcome        Outcome
}

// NewMovement runs a transaction request: it reconciles pending periodic
// movements, checks the weekly quota and routes the request. Account state is
// re-read after every write phase.
func (l *Ledger) NewMovement(ctx context.Context, characterID string, req Request) (Result, error) {
	var result Result

	character, err := l.repo.character(ctx, characterID)
	if err != nil {
		return result, common.Store("new movement", err)
	}

	accounts, err := l.accounts.Resolve(ctx, characterID)
	if err != nil {
		return result, err
	}
	if accounts.Current() == nil {
		return result, common.Policy("new movement", common.ErrMissingAccount, string(model.AccountCurrent))
	}

	result.Reconciliation, err = l.reconciler.Reconcile(ctx, character, accounts.Current())
	if err != nil {
		if result.Reconciliation.Created() > 0 {
			l.refreshTouched(ctx, []model.Movement{{AccountID: accounts.Current().ID}})
		}
		return result, err
	}
	if result.Reconciliation.Created() > 0 {
		if accounts, err = l.accounts.Resolve(ctx, characterID); err != nil {
			return result, err
		}
	}

	snap := Snapshot{
		Character: character,
		Accounts:  accounts,
		Quota:     l.quota.Remaining(accounts.Current()),
	}
	result.Quota = snap.Quota

	result.Outcome, err = l.router.Route(ctx, snap, req)

	written := result.Outcome.Movements
	if result.Reconciliation.Created() > 0 {
		written = append([]model.Movement{{AccountID: accounts.Current().ID}}, written...)
	}
	touched := l.refreshTouched(ctx, written)
	if err != nil {
		return result, err
	}

	if current, ok := touched[accounts.Current().ID]; ok {
		result.Quota = l.quota.Remaining(current)
	}
	return result, nil
}

// refreshTouched reloads the accounts holding movs and rewrites their
// balance cache. Cache failures are logged, never returned.
func (l *Ledger) refreshTouched(ctx context.Context, movs []model.Movement) map[string]*model.Account {
	touched := make(map[string]*model.Account)
	for _, m := range movs {
		if _, done := touched[m.AccountID]; done || m.AccountID == "" {
			continue
		}
		acc, err := l.refreshBalance(ctx, m.AccountID)
		if err != nil {
			common.LogError(ctx, err, "Failed to refresh balance cache", common.Fields{"account": m.AccountID})
			continue
		}
		touched[m.AccountID] = acc
	}
	return touched
}

// refreshBalance rescans the account and stores the derived balance in SALDO.
func (l *Ledger) refreshBalance(ctx context.Context, accountID string) (*model.Account, error) {
	acc, err := l.repo.account(ctx, accountID)
	if err != nil {
		return nil, err
	}
	balance := acc.Balance()
	if acc.CachedBalance != nil && acc.CachedBalance.Equal(balance) {
		return acc, nil
	}
	if _, err := l.store.Table(service.TableAccounts).Update(ctx, accountID, service.Fields{
		model.FieldBalance: balance.StringFixed(2),
	}); err != nil {
		return nil, err
	}
	acc.CachedBalance = &balance
	return acc, nil
}

// Accounts resolves the character's accounts.
func (l *Ledger) Accounts(ctx context.Context, characterID string) (Accounts, error) {
	return l.accounts.Resolve(ctx, characterID)
}

// Quota returns the remaining weekly budget of the character's CURRENT account.
func (l *Ledger) Quota(ctx context.Context, characterID string) (model.Quota, error) {
	accounts, err := l.accounts.Resolve(ctx, characterID)
	if err != nil {
		return nil, err
	}
	if accounts.Current() == nil {
		return nil, common.Policy("quota", common.ErrMissingAccount, string(model.AccountCurrent))
	}
	return l.quota.Remaining(accounts.Current()), nil
}

// Reconcile backfills pending periodic movements without routing anything.
func (l *Ledger) Reconcile(ctx context.Context, characterID string) (Report, error) {
	character, err := l.repo.character(ctx, characterID)
	if err != nil {
		return Report{}, common.Store("reconcile", err)
	}
	accounts, err := l.accounts.Resolve(ctx, characterID)
	if err != nil {
		return Report{}, err
	}
	report, err := l.reconciler.Reconcile(ctx, character, accounts.Current())
	if report.Created() > 0 {
		if _, cacheErr := l.refreshBalance(ctx, accounts.Current().ID); cacheErr != nil {
			common.LogError(ctx, cacheErr, "Failed to refresh balance cache", common.Fields{"account": accounts.Current().ID})
		}
	}
	return report, err
}

// Character loads a character with its profession.
func (l *Ledger) Character(ctx context.Context, characterID string) (*model.Character, error) {
	c, err := l.repo.character(ctx, characterID)
	if err != nil {
		return nil, common.Store("load character", err)
	}
	return c, nil
}

// Products lists the catalog, optionally restricted to one merchant.
func (l *Ledger) Products(ctx context.Context, merchantID string) ([]model.Product, error) {
	opts := service.QueryOptions{Sort: []string{model.FieldName}}
	if merchantID != "" {
		opts.Filter = service.Fields{model.FieldMerchant: merchantID}
	}
	recs, err := l.store.Table(service.TableProducts).Query(ctx, opts)
	if err != nil {
		return nil, common.Store("list products", err)
	}
	products := make([]model.Product, 0, len(recs))
	for i := range recs {
		// Per-character salary products are not for sale.
		if recs[i].Fields.Has(model.FieldProductKey) && recs[i].Fields.String(model.FieldName) == MonthlyIncomeConcept {
			continue
		}
		p, err := productFromRecord(&recs[i])
		if err != nil {
			return nil, common.Store("list products", err)
		}
		products = append(products, *p)
	}
	return products, nil
}

// Merchants lists every merchant by name.
func (l *Ledger) Merchants(ctx context.Context) ([]model.Merchant, error) {
	recs, err := l.store.Table(service.TableMerchants).Query(ctx, service.QueryOptions{Sort: []string{model.FieldName}})
	if err != nil {
		return nil, common.Store("list merchants", err)
	}
	merchants := make([]model.Merchant, 0, len(recs))
	for _, rec := range recs {
		merchants = append(merchants, model.Merchant{
			ID:         rec.ID,
			Name:       rec.Fields.String(model.FieldName),
			Rules:      rec.Fields.String(model.FieldRules),
			ProductIDs: rec.Fields.Links(model.FieldMerchantOffers),
		})
	}
	return merchants, nil
}

// IsPartiallyApplied reports whether err left a transfer half written.
func IsPartiallyApplied(err error) bool {
	return errors.Is(err, common.ErrPartiallyApplied)
}
