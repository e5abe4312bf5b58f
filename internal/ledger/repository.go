package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// repository turns store records into model projections. It never caches.
type repository struct {
	store service.RecordStore
}

func (r repository) table(name service.TableName) service.Table {
	return r.store.Table(name)
}

func (r repository) character(ctx context.Context, id string) (*model.Character, error) {
	rec, err := r.table(service.TableCharacters).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ref, err := rec.Fields.Int(model.FieldReference)
	if err != nil {
		return nil, err
	}
	c := &model.Character{
		ID:            rec.ID,
		Occupation:    rec.Fields.String(model.FieldCharacter),
		Title:         rec.Fields.String(model.FieldTitle),
		Reference:     ref,
		ParticipantID: rec.Fields.String(model.FieldParticipant),
		AccountIDs:    rec.Fields.Links(model.FieldAccount),
	}
	if professionID := rec.Fields.String(model.FieldProfession); professionID != "" {
		p, err := r.profession(ctx, professionID)
		if err != nil {
			return nil, fmt.Errorf("character %s: %w", id, err)
		}
		c.Profession = *p
	}
	return c, nil
}

func (r repository) profession(ctx context.Context, id string) (*model.Profession, error) {
	rec, err := r.table(service.TableProfessions).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return professionFromRecord(rec)
}

func professionFromRecord(rec *service.Record) (*model.Profession, error) {
	p := &model.Profession{ID: rec.ID, Name: rec.Fields.String(model.FieldName)}
	var err error
	if p.Salary, err = rec.Fields.Decimal(model.FieldSalary); err != nil {
		return nil, err
	}
	if p.SpouseSalary, err = rec.Fields.Decimal(model.FieldSpouseSalary); err != nil {
		return nil, err
	}
	if p.CardDebt, err = rec.Fields.Decimal(model.FieldCardDebt); err != nil {
		return nil, err
	}
	if p.MinCardPayment, err = rec.Fields.Decimal(model.FieldMinCardPayment); err != nil {
		return nil, err
	}
	if p.Dependents, err = rec.Fields.Int(model.FieldDependents); err != nil {
		return nil, err
	}
	return p, nil
}

// account loads an account together with its movements in link order.
func (r repository) account(ctx context.Context, id string) (*model.Account, error) {
	rec, err := r.table(service.TableAccounts).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	acc := &model.Account{
		ID:          rec.ID,
		CharacterID: rec.Fields.String(model.FieldCharacter),
		Number:      rec.Fields.String(model.FieldAccountNumber),
		Type:        model.AccountType(rec.Fields.String(model.FieldAccountType)),
		MovementIDs: rec.Fields.Links(model.FieldMovements),
	}
	if acc.CachedBalance, err = rec.Fields.OptionalDecimal(model.FieldBalance); err != nil {
		return nil, fmt.Errorf("account %s: %w", id, err)
	}

	acc.Movements = make([]model.Movement, 0, len(acc.MovementIDs))
	for _, movID := range acc.MovementIDs {
		mov, err := r.movement(ctx, movID)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", id, err)
		}
		acc.Movements = append(acc.Movements, *mov)
	}
	return acc, nil
}

func (r repository) movement(ctx context.Context, id string) (*model.Movement, error) {
	rec, err := r.table(service.TableMovements).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return movementFromRecord(rec)
}

func movementFromRecord(rec *service.Record) (*model.Movement, error) {
	f := rec.Fields
	m := &model.Movement{
		ID:        rec.ID,
		AccountID: f.String(model.FieldAccount),
		ProductID: f.String(model.FieldConcept),
		Concept:   f.String(model.FieldConceptLiteral),
		Merchant:  f.String(model.FieldMerchantLiteral),
		Method:    model.PaymentMethod(f.String(model.FieldMethod)),
		SizeClass: model.SizeClass(f.String(model.FieldSizeClass)),
		Frequency: model.Frequency(f.String(model.FieldFrequency)),
		SameWeek:  f.Bool(model.FieldSameWeek),
	}
	var err error
	if m.Amount, err = f.Decimal(model.FieldAmount); err != nil {
		return nil, fmt.Errorf("movement %s: %w", rec.ID, err)
	}
	if m.Override, err = f.OptionalDecimal(model.FieldOverride); err != nil {
		return nil, fmt.Errorf("movement %s: %w", rec.ID, err)
	}
	if m.ElapsedPeriods, err = f.Int(model.FieldElapsed); err != nil {
		return nil, fmt.Errorf("movement %s: %w", rec.ID, err)
	}
	if date := f.String(model.FieldDate); date != "" {
		if t, err := time.Parse(time.RFC3339, date); err == nil {
			m.CreatedAt = t
		}
	}
	return m, nil
}

func (r repository) product(ctx context.Context, id string) (*model.Product, error) {
	rec, err := r.table(service.TableProducts).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return productFromRecord(rec)
}

func productFromRecord(rec *service.Record) (*model.Product, error) {
	f := rec.Fields
	p := &model.Product{
		ID:         rec.ID,
		Name:       f.String(model.FieldName),
		Key:        f.String(model.FieldProductKey),
		MerchantID: f.String(model.FieldMerchant),
		SizeClass:  model.SizeClass(f.String(model.FieldSizeClass)),
		Frequency:  model.Frequency(f.String(model.FieldFrequency)),
		Periodic:   f.Bool(model.FieldPeriodic),
	}
	var err error
	if p.Price, err = f.Decimal(model.FieldPrice); err != nil {
		return nil, fmt.Errorf("product %s: %w", rec.ID, err)
	}
	if p.ExtraMonthlyCost, err = f.Decimal(model.FieldExtraMonthly); err != nil {
		return nil, fmt.Errorf("product %s: %w", rec.ID, err)
	}
	return p, nil
}

// productBy returns the first product whose field equals value, or nil.
func (r repository) productBy(ctx context.Context, field, value string) (*model.Product, error) {
	recs, err := r.table(service.TableProducts).Query(ctx, service.QueryOptions{
		Filter:     service.Fields{field: value},
		MaxRecords: 1,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return productFromRecord(&recs[0])
}

func (r repository) merchant(ctx context.Context, id string) (*model.Merchant, error) {
	rec, err := r.table(service.TableMerchants).Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.Merchant{
		ID:         rec.ID,
		Name:       rec.Fields.String(model.FieldName),
		Rules:      rec.Fields.String(model.FieldRules),
		ProductIDs: rec.Fields.Links(model.FieldMerchantOffers),
	}, nil
}

// merchantName resolves the merchant offering a product, "" when unlinked.
func (r repository) merchantName(ctx context.Context, p *model.Product) (string, error) {
	if p.MerchantID == "" {
		return "", nil
	}
	m, err := r.merchant(ctx, p.MerchantID)
	if err != nil {
		return "", err
	}
	return m.Name, nil
}

// movementDraft is the set of fields a new movement is written with.
type movementDraft struct {
	date      time.Time
	override  *decimal.Decimal
	product   *model.Product
	amount    decimal.Decimal
	accountID string
	merchant  string
	concept   string
	method    model.PaymentMethod
	frequency model.Frequency
	elapsed   int
	sameWeek  bool
}

func (d movementDraft) fields() service.Fields {
	f := service.Fields{
		model.FieldAccount:  []string{d.accountID},
		model.FieldMethod:   string(d.method),
		model.FieldAmount:   d.amount,
		model.FieldSameWeek: d.sameWeek,
		model.FieldDate:     d.date.UTC().Format(time.RFC3339),
	}
	concept := d.concept
	frequency := d.frequency
	if d.product != nil {
		f[model.FieldConcept] = []string{d.product.ID}
		if concept == "" {
			concept = d.product.Name
		}
		if d.product.SizeClass != "" {
			f[model.FieldSizeClass] = string(d.product.SizeClass)
		}
		if frequency == "" && d.product.Periodic {
			frequency = d.product.Frequency
		}
	}
	if frequency != "" {
		f[model.FieldFrequency] = string(frequency)
		f[model.FieldElapsed] = d.elapsed
	}
	if concept != "" {
		f[model.FieldConceptLiteral] = concept
	}
	if d.merchant != "" {
		f[model.FieldMerchantLiteral] = d.merchant
	}
	if d.override != nil {
		f[model.FieldOverride] = *d.override
	}
	return f
}

func (r repository) createMovement(ctx context.Context, d movementDraft) (*model.Movement, error) {
	rec, err := r.table(service.TableMovements).Create(ctx, d.fields())
	if err != nil {
		return nil, err
	}
	return movementFromRecord(rec)
}

// normalizeName is how catalog names are compared.
func normalizeName(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
