package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// Special products that move money from CURRENT to another account.
const (
	ProductCardPayment   = "PAGO DEUDA TARJETA"
	ProductRetirementPay = "APORTACIÓN CUENTA JUBILACIÓN"
	ProductSavingsPlan   = "PLAN AHORRO"
)

// transferTargets maps each special product to the account it credits.
var transferTargets = map[string]model.AccountType{
	ProductCardPayment:   model.AccountCard,
	ProductRetirementPay: model.AccountRetirement,
	ProductSavingsPlan:   model.AccountSavings,
}

// TransferTarget reports the account a product transfers to, if any.
func TransferTarget(productName string) (model.AccountType, bool) {
	t, ok := transferTargets[normalizeName(productName)]
	return t, ok
}

// Request is a participant's choice of product and payment method. Amount is
// the contribution for retirement and savings plans and the extra over the
// minimum for card payments; simple movements ignore it.
type Request struct {
	Amount    decimal.Decimal
	ProductID string
	Method    model.PaymentMethod
}

// Snapshot is the freshly loaded state a request is routed against.
type Snapshot struct {
	Character *model.Character
	Accounts  Accounts
	Quota     model.Quota
}

// Outcome lists the movements written for a request, CURRENT leg first.
type Outcome struct {
	Product   *model.Product
	Target    model.AccountType
	Movements []model.Movement
	Amount    decimal.Decimal
	Paired    bool
}

// Router decides the movement shape for a product and writes it.
type Router struct {
	now            func() time.Time
	quota          QuotaTracker
	repo           repository
	chanceMerchant string
}

// NewRouter creates a router. Products of chanceMerchant skip the solvency check.
func NewRouter(store service.RecordStore, quota QuotaTracker, chanceMerchant string, now func() time.Time) *Router {
	if now == nil {
		now = time.Now
	}
	return &Router{
		repo:           repository{store: store},
		quota:          quota,
		chanceMerchant: normalizeName(chanceMerchant),
		now:            now,
	}
}

// plan is a validated request ready to be written.
type plan struct {
	product  *model.Product
	merchant string
	method   model.PaymentMethod
	target   model.AccountType
	amount   decimal.Decimal
	outflow  decimal.Decimal
	paired   bool
}

// Route checks quota, target account and solvency in that order and writes
// one movement, or two for a transfer. Nothing is written when a check fails.
func (r *Router) Route(ctx context.Context, snap Snapshot, req Request) (Outcome, error) {
	const op = "route movement"

	p, err := r.prepare(ctx, snap, req)
	if err != nil {
		return Outcome{}, err
	}

	current := snap.Accounts.Current()

	if err := r.quota.Check(snap.Quota, p.product.SizeClass); err != nil {
		var le *common.LedgerError
		if errors.As(err, &le) {
			le.Op = op
			le.AccountID = current.ID
			le.ProductID = p.product.ID
		}
		return Outcome{}, err
	}

	var target *model.Account
	if p.paired {
		if target = snap.Accounts.Get(p.target); target == nil {
			le := common.Policy(op, common.ErrMissingAccount, string(p.target))
			le.ProductID = p.product.ID
			return Outcome{}, le
		}
	}

	if p.outflow.IsPositive() && normalizeName(p.merchant) != r.chanceMerchant {
		balance := current.Balance()
		if p.outflow.GreaterThan(balance) {
			le := common.Policy(op, common.ErrInsolvent,
				fmt.Sprintf("needs %s, balance %s", p.outflow.StringFixed(2), balance.StringFixed(2)))
			le.AccountID = current.ID
			le.ProductID = p.product.ID
			return Outcome{}, le
		}
	}

	if !p.paired {
		return r.writeSimple(ctx, current, p)
	}
	return r.writePaired(ctx, current, target, p)
}

// prepare loads the product and validates the request.
func (r *Router) prepare(ctx context.Context, snap Snapshot, req Request) (*plan, error) {
	const op = "route movement"

	if snap.Accounts.Current() == nil {
		return nil, common.Policy(op, common.ErrMissingAccount, string(model.AccountCurrent))
	}
	if req.ProductID == "" {
		return nil, common.Validation(op, common.ErrInvalidInput, "no product chosen")
	}

	method := req.Method
	if method == "" {
		method = model.MethodDebitCard
	}
	if !method.Valid() {
		return nil, common.Validation(op, common.ErrInvalidInput, "payment method "+string(method))
	}

	product, err := r.repo.product(ctx, req.ProductID)
	if err != nil {
		le := common.Store(op, err)
		le.ProductID = req.ProductID
		return nil, le
	}
	merchant, err := r.repo.merchantName(ctx, product)
	if err != nil {
		le := common.Store(op, err)
		le.ProductID = product.ID
		return nil, le
	}

	p := &plan{product: product, merchant: merchant, method: method}

	target, paired := TransferTarget(product.Name)
	if !paired {
		if method == model.MethodIncome && product.Price.IsNegative() {
			le := common.Validation(op, common.ErrInvalidInput, "purchases cannot be paid as income")
			le.ProductID = product.ID
			return nil, le
		}
		p.amount = product.Price
		p.outflow = product.Price.Neg()
		return p, nil
	}

	p.paired = true
	p.target = target
	switch target {
	case model.AccountCard:
		if req.Amount.IsNegative() {
			le := common.Validation(op, common.ErrInvalidAmount, "extra card payment cannot be negative")
			le.ProductID = product.ID
			return nil, le
		}
		minimum := decimal.Zero
		if snap.Character != nil {
			minimum = snap.Character.Profession.MinCardPayment
		}
		p.amount = minimum.Add(req.Amount)
		if !p.amount.IsPositive() {
			le := common.Validation(op, common.ErrInvalidAmount, "card payment must be positive")
			le.ProductID = product.ID
			return nil, le
		}
	default:
		if !req.Amount.IsPositive() {
			le := common.Validation(op, common.ErrInvalidAmount, "contribution must be positive")
			le.ProductID = product.ID
			return nil, le
		}
		p.amount = req.Amount
	}
	p.outflow = p.amount
	return p, nil
}

func (r *Router) writeSimple(ctx context.Context, current *model.Account, p *plan) (Outcome, error) {
	mov, err := r.repo.createMovement(ctx, movementDraft{
		accountID: current.ID,
		product:   p.product,
		merchant:  p.merchant,
		method:    p.method,
		amount:    p.product.Price,
		sameWeek:  true,
		elapsed:   1,
		date:      r.now(),
	})
	if err != nil {
		le := common.Store("route movement", err)
		le.AccountID = current.ID
		le.ProductID = p.product.ID
		return Outcome{}, le
	}

	common.LogInfo(ctx, "Created movement", common.Fields{
		"movement": mov.ID,
		"account":  current.ID,
		"product":  p.product.ID,
		"amount":   mov.SignedAmount().StringFixed(2),
	})
	return Outcome{Product: p.product, Movements: []model.Movement{*mov}, Amount: p.amount}, nil
}

// writePaired posts the CURRENT debit and then the target credit. The store
// has no multi-record transaction, so a failed credit leaves the debit in
// place and is reported as partially applied.
func (r *Router) writePaired(ctx context.Context, current, target *model.Account, p *plan) (Outcome, error) {
	const op = "route transfer"
	debit := p.amount.Neg()
	credit := p.amount

	first, err := r.repo.createMovement(ctx, movementDraft{
		accountID: current.ID,
		product:   p.product,
		merchant:  p.merchant,
		method:    p.method,
		amount:    decimal.Zero,
		override:  &debit,
		sameWeek:  true,
		elapsed:   1,
		date:      r.now(),
	})
	if err != nil {
		le := common.Store(op, err)
		le.AccountID = current.ID
		le.ProductID = p.product.ID
		le.Leg = "debit"
		return Outcome{}, le
	}

	second, err := r.repo.createMovement(ctx, movementDraft{
		accountID: target.ID,
		product:   p.product,
		merchant:  p.merchant,
		method:    p.method,
		amount:    decimal.Zero,
		override:  &credit,
		date:      r.now(),
	})
	if err != nil {
		le := &common.LedgerError{
			Kind:      common.KindIntegrity,
			Op:        op,
			Err:       fmt.Errorf("%w: %w", common.ErrPartiallyApplied, err),
			AccountID: target.ID,
			ProductID: p.product.ID,
			Leg:       "credit",
			Detail: fmt.Sprintf("debit %s of %s written on %s, credit to %s missing",
				first.ID, p.amount.StringFixed(2), current.ID, target.ID),
		}
		common.LogError(ctx, err, "Transfer partially applied", common.Fields{
			"debit_movement": first.ID,
			"debit_account":  current.ID,
			"credit_account": target.ID,
			"product":        p.product.ID,
			"amount":         p.amount.StringFixed(2),
		})
		return Outcome{Product: p.product, Movements: []model.Movement{*first}, Paired: true, Target: p.target, Amount: p.amount}, le
	}

	common.LogInfo(ctx, "Created transfer", common.Fields{
		"debit_movement":  first.ID,
		"credit_movement": second.ID,
		"debit_account":   current.ID,
		"credit_account":  target.ID,
		"amount":          p.amount.StringFixed(2),
	})
	return Outcome{
		Product:   p.product,
		Movements: []model.Movement{*first, *second},
		Paired:    true,
		Target:    p.target,
		Amount:    p.amount,
	}, nil
}
