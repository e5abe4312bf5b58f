package ledger

import (
	"fmt"

	"github.com/maestroSwift/villarbolsillo/internal/common"
	"github.com/maestroSwift/villarbolsillo/internal/model"
)

// ComputeQuota derives the remaining weekly budget from movement history.
// Every movement flagged as same-week consumes one unit of its size class;
// counters are not floored.
func ComputeQuota(caps model.Quota, movements []model.Movement) model.Quota {
	remaining := caps.Clone()
	for i := range movements {
		m := &movements[i]
		if !m.SameWeek || m.SizeClass == "" {
			continue
		}
		remaining[m.SizeClass]--
	}
	return remaining
}

// QuotaTracker evaluates the weekly budget of a CURRENT account.
type QuotaTracker struct {
	caps model.Quota
}

// NewQuotaTracker creates a tracker with the given caps.
func NewQuotaTracker(caps model.Quota) QuotaTracker {
	if caps == nil {
		caps = model.DefaultCaps()
	}
	return QuotaTracker{caps: caps.Clone()}
}

// Caps returns a copy of the configured caps.
func (q QuotaTracker) Caps() model.Quota {
	return q.caps.Clone()
}

// Remaining computes the budget left on the account. A nil account has the
// full caps available.
func (q QuotaTracker) Remaining(current *model.Account) model.Quota {
	if current == nil {
		return q.caps.Clone()
	}
	return ComputeQuota(q.caps, current.Movements)
}

// Check refuses a new movement of the given class once its counter is spent.
func (q QuotaTracker) Check(remaining model.Quota, class model.SizeClass) error {
	if remaining.Allows(class) {
		return nil
	}
	return common.Policy("check quota", common.ErrQuotaExhausted,
		fmt.Sprintf("%s remaining %d", class, remaining.Remaining(class)))
}
