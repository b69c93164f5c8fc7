// Package report turns a simulation history into the flow summary
// consumed by CLIs and external collaborators. Sums run in decimal so
// reported currency totals do not accumulate float drift.
package report

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/your-org/wealthpath/internal/engine"
)

// Analysis summarizes the money flows of one history.
type Analysis struct {
	TotalInvested    decimal.Decimal `json:"total_invested"`
	TotalReturn      decimal.Decimal `json:"total_return"`
	TotalTax         decimal.Decimal `json:"total_tax"`
	AvgWithdrawal    decimal.Decimal `json:"avg_withdrawal"`
	TotalWithdrawals decimal.Decimal `json:"total_withdrawals"`
	HasShortfall     bool            `json:"has_shortfall"`
	ShortfallMonths  int             `json:"shortfall_months"`
}

// String renders the analysis in a log-friendly single line.
func (a Analysis) String() string {
	return fmt.Sprintf("invested=%s return=%s tax=%s withdrawals=%s avg=%s shortfallMonths=%d",
		a.TotalInvested.StringFixed(2), a.TotalReturn.StringFixed(2), a.TotalTax.StringFixed(2),
		a.TotalWithdrawals.StringFixed(2), a.AvgWithdrawal.StringFixed(2), a.ShortfallMonths)
}

// AnalyzeHistory computes invested capital, achieved withdrawals, taxes
// and shortfall counts over a full history.
func AnalyzeHistory(hist engine.History, params engine.Parameters) (Analysis, error) {
	if len(hist) == 0 {
		return Analysis{}, fmt.Errorf("empty history")
	}

	invested := decimal.NewFromFloat(params.StartCash + params.StartEquity)
	totalTax := decimal.Zero
	totalPaid := decimal.Zero
	requestMonths := 0
	shortfallMonths := 0

	for _, rec := range hist {
		invested = invested.Add(decimal.NewFromFloat(rec.Contribution))
		totalTax = totalTax.Add(decimal.NewFromFloat(rec.TaxPaid))
		totalPaid = totalPaid.Add(decimal.NewFromFloat(rec.WithdrawalPaid))
		if rec.WithdrawalRequested > 0 {
			requestMonths++
		}
		if rec.Shortfall > 0 {
			shortfallMonths++
		}
	}

	endWealth := decimal.NewFromFloat(hist.Final().Wealth())

	a := Analysis{
		TotalInvested:    invested,
		TotalTax:         totalTax,
		TotalWithdrawals: totalPaid,
		// Total return is everything taken out plus what is left, net of
		// what was put in. Taxes are already deducted from proceeds.
		TotalReturn:     endWealth.Add(totalPaid).Sub(invested),
		HasShortfall:    shortfallMonths > 0,
		ShortfallMonths: shortfallMonths,
	}
	if requestMonths > 0 {
		a.AvgWithdrawal = totalPaid.Div(decimal.NewFromInt(int64(requestMonths)))
	}
	return a, nil
}
