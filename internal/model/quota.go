package model

// Quota is the remaining weekly action budget per size class.
// It is derived from movement history and never persisted.
type Quota map[SizeClass]int

// DefaultCaps returns the starting weekly caps.
func DefaultCaps() Quota {
	return Quota{
		SizeLarge:  2,
		SizeMedium: 4,
		SizeSmall:  8,
	}
}

// Clone copies the quota.
func (q Quota) Clone() Quota {
	out := make(Quota, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// Remaining returns the counter for a size class.
func (q Quota) Remaining(class SizeClass) int {
	return q[class]
}

// Allows reports whether one more movement of the class fits in the week.
// Products without a size class never consume quota.
func (q Quota) Allows(class SizeClass) bool {
	if class == "" {
		return true
	}
	return q[class] > 0
}

// Exhausted reports whether every size class is used up.
func (q Quota) Exhausted() bool {
	for _, class := range SizeClasses {
		if q[class] > 0 {
			return false
		}
	}
	return true
}
