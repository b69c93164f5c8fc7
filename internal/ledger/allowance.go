package ledger

// Allowance tracks consumption of the yearly tax-free capital-gains
// amount. Used resets to zero at the start of each new 12-month tax
// year and only grows in between.
type Allowance struct {
	Limit float64
	Year  int
	Used  float64
}

// NewAllowance creates an allowance tracker with the given yearly limit.
func NewAllowance(limit float64) *Allowance {
	return &Allowance{Limit: limit}
}

// ResetIfNewYear zeroes Used when the month index crosses into a new
// 12-month tax year. Month indices are zero-based.
func (a *Allowance) ResetIfNewYear(month int) {
	year := month / 12
	if year != a.Year {
		a.Year = year
		a.Used = 0
	}
}

// Remaining returns the unconsumed part of the yearly allowance.
func (a *Allowance) Remaining() float64 {
	rem := a.Limit - a.Used
	if rem < 0 {
		return 0
	}
	return rem
}

// Consume uses up part of the allowance and returns the amount actually
// covered. Used never drops below zero.
func (a *Allowance) Consume(gain float64) float64 {
	if gain <= 0 {
		return 0
	}
	covered := gain
	if rem := a.Remaining(); covered > rem {
		covered = rem
	}
	a.Used += covered
	if a.Used < 0 {
		a.Used = 0
	}
	return covered
}
