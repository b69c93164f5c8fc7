package engine

// Phase is the simulation state. The engine moves from Accumulation to
// Withdrawal exactly once and never back.
type Phase int

const (
	PhaseAccumulation Phase = iota
	PhaseWithdrawal
)

// String returns a readable phase name.
func (p Phase) String() string {
	if p == PhaseWithdrawal {
		return "withdrawal"
	}
	return "accumulation"
}

// MonthRecord is the immutable end-of-month snapshot of one simulated
// month. Balances are nominal; InflationIndex converts them to real
// terms (value / index).
type MonthRecord struct {
	Month               int     `json:"month"` // 1-based
	Phase               Phase   `json:"phase"`
	Cash                float64 `json:"cash"`
	EquityValue         float64 `json:"equity_value"`
	Contribution        float64 `json:"contribution"`
	Interest            float64 `json:"interest"`
	WithdrawalRequested float64 `json:"withdrawal_requested"`
	WithdrawalPaid      float64 `json:"withdrawal_paid"`
	TaxPaid             float64 `json:"tax_paid"`
	Shortfall           float64 `json:"shortfall"`
	InflationIndex      float64 `json:"inflation_index"`
}

// Wealth returns the total nominal wealth of the record.
func (r MonthRecord) Wealth() float64 {
	return r.Cash + r.EquityValue
}

// RealWealth returns the inflation-adjusted wealth of the record.
func (r MonthRecord) RealWealth() float64 {
	if r.InflationIndex <= 0 {
		return r.Wealth()
	}
	return r.Wealth() / r.InflationIndex
}

// History is the ordered month-by-month output of one simulation run.
// Its length is fixed at run start.
type History []MonthRecord

// Final returns the last record. It panics on an empty history, which
// Simulate never produces.
func (h History) Final() MonthRecord {
	return h[len(h)-1]
}

// AtRetirementStart returns the record of the last accumulation month,
// i.e. the state the withdrawal phase starts from. For runs without an
// accumulation phase it returns the zero record.
func (h History) AtRetirementStart(params Parameters) (MonthRecord, bool) {
	idx := params.AccumulationMonths() - 1
	if idx < 0 || idx >= len(h) {
		return MonthRecord{}, false
	}
	return h[idx], true
}
