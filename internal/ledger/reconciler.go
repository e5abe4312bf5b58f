package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
	"github.com/maestroSwift/villarbolsillo/internal/service"
)

// MonthlyIncomeConcept is the concept of the salary credited every month.
const MonthlyIncomeConcept = "MENSUALIDAD"

// MonthlyIncomeKey is the composite product key of a character's salary.
func MonthlyIncomeKey(occupation string) string {
	return MonthlyIncomeConcept + "|" + occupation
}

// Progress observes backfill work. Implementations must tolerate Start being
// called with zero.
type Progress interface {
	Start(total int)
	Advance(concept string)
	Finish()
}

type noProgress struct{}

func (noProgress) Start(int)      {}
func (noProgress) Advance(string) {}
func (noProgress) Finish()        {}

// GroupReport describes one periodic concept after reconciliation.
type GroupReport struct {
	Concept    string
	Frequency  model.Frequency
	Registered int
	Expected   int
	Created    int
}

// Missing is the number of movements the group lacked before backfilling.
func (g GroupReport) Missing() int {
	if g.Expected > g.Registered {
		return g.Expected - g.Registered
	}
	return 0
}

// Report summarizes a reconciliation pass.
type Report struct {
	Groups []GroupReport
}

// Created is the total number of backfilled movements.
func (r Report) Created() int {
	total := 0
	for _, g := range r.Groups {
		total += g.Created
	}
	return total
}

type periodicGroup struct {
	concept    string
	frequency  model.Frequency
	registered int
	expected   int
}

// groupPeriodic groups periodic movements by concept and frequency, in order
// of first appearance.
func groupPeriodic(movements []model.Movement) []periodicGroup {
	type key struct {
		concept   string
		frequency model.Frequency
	}
	index := make(map[key]int)
	var groups []periodicGroup

	for i := range movements {
		m := &movements[i]
		if !m.Periodic() {
			continue
		}
		k := key{m.Concept, m.Frequency}
		pos, ok := index[k]
		if !ok {
			pos = len(groups)
			index[k] = pos
			groups = append(groups, periodicGroup{concept: m.Concept, frequency: m.Frequency})
		}
		g := &groups[pos]
		g.registered++
		if m.ElapsedPeriods > g.expected {
			g.expected = m.ElapsedPeriods
		}
	}
	return groups
}

// Reconciler backfills periodic movements missed while a participant was
// inactive.
type Reconciler struct {
	progress Progress
	now      func() time.Time
	repo     repository
}

// NewReconciler creates a reconciler writing to store.
func NewReconciler(store service.RecordStore, progress Progress, now func() time.Time) *Reconciler {
	if progress == nil {
		progress = noProgress{}
	}
	if now == nil {
		now = time.Now
	}
	return &Reconciler{repo: repository{store: store}, progress: progress, now: now}
}

// Reconcile creates one CURRENT movement per missing period of every periodic
// group. Backfilled movements carry zero elapsed periods and no same-week
// flag, so a second pass over the refreshed history creates nothing.
func (r *Reconciler) Reconcile(ctx context.Context, character *model.Character, current *model.Account) (Report, error) {
	const op = "reconcile"
	var report Report
	if current == nil {
		le := common.Policy(op, common.ErrMissingAccount, string(model.AccountCurrent))
		return report, le
	}

	groups := groupPeriodic(current.Movements)
	total := 0
	for _, g := range groups {
		if g.expected > g.registered {
			total += g.expected - g.registered
		}
	}

	r.progress.Start(total)
	defer r.progress.Finish()

	for _, g := range groups {
		gr := GroupReport{
			Concept:    g.concept,
			Frequency:  g.frequency,
			Registered: g.registered,
			Expected:   g.expected,
		}
		missing := gr.Missing()
		if missing == 0 {
			report.Groups = append(report.Groups, gr)
			continue
		}

		product, method, err := r.resolve(ctx, character, g.concept)
		if err != nil {
			report.Groups = append(report.Groups, gr)
			le := common.Store(op, err)
			le.AccountID = current.ID
			le.Detail = "concept " + g.concept
			return report, le
		}
		merchant, err := r.repo.merchantName(ctx, product)
		if err != nil {
			report.Groups = append(report.Groups, gr)
			le := common.Store(op, err)
			le.AccountID = current.ID
			le.ProductID = product.ID
			return report, le
		}

		for i := 0; i < missing; i++ {
			mov, err := r.repo.createMovement(ctx, movementDraft{
				accountID: current.ID,
				product:   product,
				concept:   g.concept,
				frequency: g.frequency,
				merchant:  merchant,
				method:    method,
				amount:    product.Price,
				date:      r.now(),
			})
			if err != nil {
				report.Groups = append(report.Groups, gr)
				le := common.Store(op, err)
				le.AccountID = current.ID
				le.ProductID = product.ID
				le.Detail = fmt.Sprintf("concept %s: %d of %d backfilled", g.concept, gr.Created, missing)
				return report, le
			}
			gr.Created++
			r.progress.Advance(g.concept)
			common.LogInfo(ctx, "Backfilled periodic movement", common.Fields{
				"movement":  mov.ID,
				"account":   current.ID,
				"concept":   g.concept,
				"frequency": string(g.frequency),
				"amount":    product.Price.StringFixed(2),
			})
		}
		report.Groups = append(report.Groups, gr)
	}

	return report, nil
}

// resolve finds the catalog product behind a periodic concept and the method
// its backfills are posted with.
func (r *Reconciler) resolve(ctx context.Context, character *model.Character, concept string) (*model.Product, model.PaymentMethod, error) {
	if concept == MonthlyIncomeConcept {
		key := MonthlyIncomeKey(character.Occupation)
		p, err := r.repo.productBy(ctx, model.FieldProductKey, key)
		if err != nil {
			return nil, "", err
		}
		if p == nil {
			return nil, "", fmt.Errorf("%w: product %s", common.ErrNotFound, key)
		}
		return p, model.MethodIncome, nil
	}

	p, err := r.repo.productBy(ctx, model.FieldName, concept)
	if err != nil {
		return nil, "", err
	}
	if p == nil {
		return nil, "", fmt.Errorf("%w: product %s", common.ErrNotFound, concept)
	}
	return p, model.MethodCheck, nil
}
