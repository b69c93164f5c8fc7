package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const float64EqualityThreshold = 1e-6

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= float64EqualityThreshold
}

func TestLedger_BuyAndValue(t *testing.T) {
	l := &Ledger{}
	l.Buy(100, 1.0, 0)
	l.Buy(100, 2.0, 12)

	assert.True(t, almostEqual(l.TotalShares(), 150), "100 shares @1 plus 50 shares @2")
	assert.True(t, almostEqual(l.Value(4), 600))
	assert.Len(t, l.Lots(), 2)
}

func TestLedger_BuyIgnoresDegenerateInput(t *testing.T) {
	l := &Ledger{}
	l.Buy(0, 1.0, 0)
	l.Buy(-50, 1.0, 0)
	l.Buy(100, 0, 0)
	assert.Empty(t, l.Lots())
}

func TestLedger_SellConsumesAllowanceBeforeTaxing(t *testing.T) {
	l := &Ledger{}
	l.Buy(100, 1.0, 0) // 100 shares @1
	alw := NewAllowance(30)

	res := l.Sell(150, 2.0, alw, 1.0, 0.25, LIFO)

	// 30 shares fit under the allowance (gain 1/share), the rest nets
	// 1.75/share after tax: 90/1.75 further shares.
	require.True(t, almostEqual(res.Net, 150), "net=%f", res.Net)
	assert.True(t, almostEqual(res.AllowanceUsed, 30))
	assert.True(t, almostEqual(alw.Used, 30))
	assert.True(t, almostEqual(res.Tax, 90.0/1.75*0.25), "tax=%f", res.Tax)
	assert.True(t, almostEqual(res.SharesSold, 30+90.0/1.75))
	assert.True(t, almostEqual(res.Gross, res.Net+res.Tax))
	assert.Zero(t, res.Unmet)
	assert.True(t, almostEqual(l.TotalShares(), 100-res.SharesSold))
}

func TestLedger_SellAppliesExemptionFactor(t *testing.T) {
	l := &Ledger{}
	l.Buy(100, 1.0, 0)
	alw := NewAllowance(0)

	// Taxable gain per share is (2-1)*0.7; net per share 2 - 0.7*0.25.
	res := l.Sell(100, 2.0, alw, 0.7, 0.25, LIFO)

	netPerShare := 2.0 - 0.7*0.25
	require.True(t, almostEqual(res.Net, 100))
	assert.True(t, almostEqual(res.SharesSold, 100/netPerShare))
	assert.True(t, almostEqual(res.Tax, 100/netPerShare*0.7*0.25))
}

func TestLedger_SellOrder(t *testing.T) {
	newLedger := func() *Ledger {
		l := &Ledger{}
		l.Buy(100, 1.0, 0)  // 100 shares
		l.Buy(100, 2.0, 12) // 50 shares
		return l
	}

	tests := []struct {
		name            string
		order           LotOrder
		wantNetPerShare float64
		wantLotPrice    float64 // acquisition price of the consumed lot
	}{
		{"lifo sells newest lot", LIFO, 4.0 - 2.0*0.25, 2.0},
		{"fifo sells oldest lot", FIFO, 4.0 - 3.0*0.25, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newLedger()
			res := l.Sell(10, 4.0, NewAllowance(0), 1.0, 0.25, tt.order)

			require.True(t, almostEqual(res.Net, 10))
			assert.True(t, almostEqual(res.SharesSold, 10/tt.wantNetPerShare))

			// The untouched lot keeps its full share count.
			for _, lot := range l.Lots() {
				if lot.Price != tt.wantLotPrice {
					assert.True(t, almostEqual(lot.Shares, 100/lot.Price))
				}
			}
		})
	}
}

func TestLedger_SellLossLotIsTaxFree(t *testing.T) {
	l := &Ledger{}
	l.Buy(100, 2.0, 0) // 50 shares @2
	alw := NewAllowance(100)

	res := l.Sell(30, 1.0, alw, 1.0, 0.25, LIFO)

	require.True(t, almostEqual(res.Net, 30))
	assert.Zero(t, res.Tax)
	assert.Zero(t, res.AllowanceUsed, "losses must not touch the allowance")
	assert.Zero(t, alw.Used)
	assert.True(t, almostEqual(res.SharesSold, 30))
}

func TestLedger_SellExhaustedLotsReportUnmet(t *testing.T) {
	l := &Ledger{}
	l.Buy(50, 1.0, 0)
	alw := NewAllowance(0)

	res := l.Sell(1000, 1.0, alw, 1.0, 0.25, FIFO)

	assert.True(t, almostEqual(res.Net, 50), "everything liquidated at no gain")
	assert.True(t, almostEqual(res.Unmet, 950))
	assert.Zero(t, l.TotalShares())
}

func TestLedger_SellDegeneratePricingAborts(t *testing.T) {
	l := &Ledger{}
	l.Buy(1, 0.1, 0) // 10 shares @0.1
	alw := NewAllowance(0)

	// Tax rate above 1 drives the post-tax price per share negative;
	// the sale must abort instead of looping.
	res := l.Sell(100, 10.0, alw, 1.0, 1.2, LIFO)

	assert.Zero(t, res.SharesSold)
	assert.True(t, almostEqual(res.Unmet, 100))
	assert.True(t, almostEqual(l.TotalShares(), 10), "aborted lot stays intact")
}

func TestLedger_SellZeroPrice(t *testing.T) {
	l := &Ledger{}
	l.Buy(50, 1.0, 0)

	res := l.Sell(10, 0, NewAllowance(0), 1.0, 0.25, LIFO)
	assert.True(t, almostEqual(res.Unmet, 10))
	assert.Zero(t, res.SharesSold)
}

func TestAllowance_ResetAndMonotonicity(t *testing.T) {
	alw := NewAllowance(1000)

	alw.ResetIfNewYear(0)
	assert.Zero(t, alw.Used)

	covered := alw.Consume(400)
	assert.True(t, almostEqual(covered, 400))

	prev := alw.Used
	for month := 1; month < 12; month++ {
		alw.ResetIfNewYear(month)
		require.Equal(t, prev, alw.Used, "no reset inside a tax year (month %d)", month)
		alw.Consume(10)
		require.GreaterOrEqual(t, alw.Used, prev, "Used never decreases within a year")
		prev = alw.Used
	}

	alw.ResetIfNewYear(12)
	assert.Zero(t, alw.Used, "new tax year resets consumption")
}

func TestAllowance_ConsumeClampsAtLimit(t *testing.T) {
	alw := NewAllowance(100)

	assert.True(t, almostEqual(alw.Consume(80), 80))
	assert.True(t, almostEqual(alw.Consume(50), 20), "only the remainder is covered")
	assert.True(t, almostEqual(alw.Remaining(), 0))
	assert.Zero(t, alw.Consume(10))
	assert.Zero(t, alw.Consume(-5), "negative gains never restore allowance")
}
