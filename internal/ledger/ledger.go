// Package ledger tracks equity purchase lots and resolves sales under a
// flat capital-gains tax with a yearly tax-free allowance and a partial
// exemption factor for equity funds.
package ledger

import "fmt"

// LotOrder selects which lots a sale consumes first.
type LotOrder int

const (
	// LIFO sells the most recently acquired lots first.
	LIFO LotOrder = iota
	// FIFO sells the oldest lots first.
	FIFO
)

// String returns the config spelling of the order.
func (o LotOrder) String() string {
	if o == FIFO {
		return "fifo"
	}
	return "lifo"
}

// TaxLot is a discrete equity purchase. Lots belong to exactly one
// ledger and are decremented or removed as sales consume them.
type TaxLot struct {
	Shares float64
	Price  float64 // acquisition price per share
	Month  int     // acquisition month index
}

// SaleResult describes the outcome of a single Sell call.
type SaleResult struct {
	Gross         float64 // proceeds before tax
	Net           float64 // proceeds after tax
	Tax           float64
	SharesSold    float64
	AllowanceUsed float64
	// Unmet is the portion of the requested net amount that could not be
	// raised, either because lots ran out or because a lot's post-tax
	// price per share was not positive.
	Unmet float64
}

// Ledger owns the tax lots of a single simulation run. It is not safe
// for concurrent use; every run owns its own ledger.
type Ledger struct {
	lots []TaxLot
}

const epsilon = 1e-9

// Buy appends a lot worth amount at the given price per share.
func (l *Ledger) Buy(amount, price float64, month int) {
	if amount <= epsilon || price <= 0 {
		return
	}
	l.lots = append(l.lots, TaxLot{Shares: amount / price, Price: price, Month: month})
}

// TotalShares returns the sum of shares across all lots.
func (l *Ledger) TotalShares() float64 {
	total := 0.0
	for _, lot := range l.lots {
		total += lot.Shares
	}
	return total
}

// Value returns the market value of all lots at the given price.
func (l *Ledger) Value(price float64) float64 {
	return l.TotalShares() * price
}

// Lots returns a copy of the current lots, oldest first.
func (l *Ledger) Lots() []TaxLot {
	out := make([]TaxLot, len(l.lots))
	copy(out, l.lots)
	return out
}

// String returns a short summary of the ledger state.
func (l *Ledger) String() string {
	return fmt.Sprintf("Ledger{Lots: %d, Shares: %.6f}", len(l.lots), l.TotalShares())
}

// Sell raises targetNet in after-tax proceeds by consuming lots in the
// given order. Per lot, the taxable gain per share is
// (price - acquisition price) * exemptionFactor; the remaining annual
// allowance absorbs gains first and any excess is taxed at the flat
// rate. Losses sell tax-free and never produce negative tax.
//
// Selling stops once the target is met or the lots are exhausted. A lot
// whose post-tax price per share is zero or negative aborts the sale;
// the remainder is reported in Unmet instead of looping.
func (l *Ledger) Sell(targetNet, price float64, alw *Allowance, exemptionFactor, taxRate float64, order LotOrder) SaleResult {
	var res SaleResult
	if targetNet <= epsilon {
		return res
	}
	if price <= 0 {
		res.Unmet = targetNet
		return res
	}

	remaining := targetNet
	for remaining > epsilon && len(l.lots) > 0 {
		idx := len(l.lots) - 1
		if order == FIFO {
			idx = 0
		}
		lot := &l.lots[idx]

		gainPerShare := (price - lot.Price) * exemptionFactor

		if gainPerShare <= 0 {
			// Loss or break-even lot: fully tax-free, no allowance movement.
			shares := minf(lot.Shares, remaining/price)
			l.consume(idx, shares, price, 0, &res)
			remaining -= shares * price
			continue
		}

		// Allowance-covered shares sell at full price. Re-enter the loop
		// afterwards: the lot index may have shifted and the remaining
		// allowance decides which branch handles the rest.
		if free := alw.Remaining(); free > epsilon {
			shares := minf(lot.Shares, minf(free/gainPerShare, remaining/price))
			if shares > epsilon {
				alw.Consume(shares * gainPerShare)
				res.AllowanceUsed += shares * gainPerShare
				l.consume(idx, shares, price, 0, &res)
				remaining -= shares * price
				continue
			}
		}

		netPerShare := price - gainPerShare*taxRate
		if netPerShare <= epsilon {
			// Degenerate pricing: selling more of this lot nets nothing.
			break
		}
		shares := minf(lot.Shares, remaining/netPerShare)
		taxPerShare := gainPerShare * taxRate
		l.consume(idx, shares, price, taxPerShare, &res)
		remaining -= shares * netPerShare
	}

	if remaining > epsilon {
		res.Unmet = remaining
	}
	return res
}

// consume removes shares from the lot at idx and accumulates proceeds
// into res, dropping the lot once it empties.
func (l *Ledger) consume(idx int, shares, price, taxPerShare float64, res *SaleResult) {
	lot := &l.lots[idx]
	if shares > lot.Shares {
		shares = lot.Shares
	}
	lot.Shares -= shares
	gross := shares * price
	tax := shares * taxPerShare
	res.Gross += gross
	res.Tax += tax
	res.Net += gross - tax
	res.SharesSold += shares
	if lot.Shares <= epsilon {
		l.lots = append(l.lots[:idx], l.lots[idx+1:]...)
	}
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
