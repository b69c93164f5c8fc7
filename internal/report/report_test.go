package report

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/wealthpath/internal/engine"
)

func TestAnalyzeHistoryEmpty(t *testing.T) {
	_, err := AnalyzeHistory(nil, engine.Parameters{})
	assert.Error(t, err)
}

func TestAnalyzeHistoryFlows(t *testing.T) {
	params := engine.Parameters{StartCash: 1000, StartEquity: 500}
	hist := engine.History{
		{Month: 1, Phase: engine.PhaseAccumulation, Cash: 1100, EquityValue: 650, Contribution: 250},
		{Month: 2, Phase: engine.PhaseAccumulation, Cash: 1200, EquityValue: 820, Contribution: 250},
		{Month: 3, Phase: engine.PhaseWithdrawal, Cash: 900, EquityValue: 700,
			WithdrawalRequested: 400, WithdrawalPaid: 400, TaxPaid: 25},
		{Month: 4, Phase: engine.PhaseWithdrawal, Cash: 500, EquityValue: 600,
			WithdrawalRequested: 400, WithdrawalPaid: 300, TaxPaid: 10, Shortfall: 100},
	}

	a, err := AnalyzeHistory(hist, params)
	require.NoError(t, err)

	assert.True(t, a.TotalInvested.Equal(decimal.NewFromInt(2000)), "start balances plus contributions: got %s", a.TotalInvested)
	assert.True(t, a.TotalTax.Equal(decimal.NewFromInt(35)), "got %s", a.TotalTax)
	assert.True(t, a.TotalWithdrawals.Equal(decimal.NewFromInt(700)), "got %s", a.TotalWithdrawals)
	assert.True(t, a.AvgWithdrawal.Equal(decimal.NewFromInt(350)), "700 over two request months: got %s", a.AvgWithdrawal)

	// End wealth 1100 plus 700 withdrawn minus 2000 invested.
	assert.True(t, a.TotalReturn.Equal(decimal.NewFromInt(-200)), "got %s", a.TotalReturn)

	assert.True(t, a.HasShortfall)
	assert.Equal(t, 1, a.ShortfallMonths)
}

func TestAnalyzeHistoryNoWithdrawals(t *testing.T) {
	params := engine.Parameters{StartCash: 100}
	hist := engine.History{
		{Month: 1, Phase: engine.PhaseAccumulation, Cash: 150, Contribution: 50},
	}

	a, err := AnalyzeHistory(hist, params)
	require.NoError(t, err)

	assert.True(t, a.AvgWithdrawal.IsZero(), "no request months, no average")
	assert.False(t, a.HasShortfall)
	assert.True(t, a.TotalReturn.Equal(decimal.NewFromInt(0)), "got %s", a.TotalReturn)
}

func TestAnalyzeHistorySimulated(t *testing.T) {
	params := engine.Parameters{
		StartCash:                 4000,
		StartEquity:               100,
		MonthlyCashContribution:   100,
		MonthlyEquityContribution: 150,
		CashRate:                  0.03,
		EquityRate:                0.06,
		CashTarget:                5000,
		AccumulationYears:         5,
		WithdrawalYears:           5,
		Payout:                    engine.FixedPayout(200),
	}
	hist, err := engine.Simulate(params, 0, nil)
	require.NoError(t, err)

	a, err := AnalyzeHistory(hist, params)
	require.NoError(t, err)

	// 4100 start plus 60 months of 250.
	assert.True(t, a.TotalInvested.Equal(decimal.NewFromInt(19100)), "got %s", a.TotalInvested)
	assert.True(t, a.TotalWithdrawals.Sub(decimal.NewFromInt(12000)).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"60 months of 200: got %s", a.TotalWithdrawals)
	assert.True(t, a.AvgWithdrawal.Sub(decimal.NewFromInt(200)).Abs().LessThan(decimal.NewFromFloat(0.01)),
		"got %s", a.AvgWithdrawal)
	assert.True(t, a.TotalReturn.IsPositive(), "growth should beat the flat contributions")
	assert.False(t, a.HasShortfall)
}

func TestAnalysisString(t *testing.T) {
	a := Analysis{
		TotalInvested:    decimal.NewFromInt(1000),
		TotalReturn:      decimal.NewFromFloat(123.456),
		TotalWithdrawals: decimal.NewFromInt(500),
		ShortfallMonths:  2,
	}
	s := a.String()
	assert.Contains(t, s, "invested=1000.00")
	assert.Contains(t, s, "return=123.46")
	assert.Contains(t, s, "shortfallMonths=2")
}
