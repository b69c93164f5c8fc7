// Package config handles application configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/metrics"
	"github.com/your-org/wealthpath/internal/montecarlo"
	"github.com/your-org/wealthpath/internal/optimizer"
)

// Config defines the structure for all application configuration.
type Config struct {
	Scenario   ScenarioConf   `yaml:"scenario"`
	MonteCarlo MonteCarloConf `yaml:"monte_carlo"`
	Metrics    MetricsConf    `yaml:"metrics"`
	Optimizer  OptimizerConf  `yaml:"optimizer"`
	Server     ServerConf     `yaml:"server"`

	LogLevel string `yaml:"-"` // Loaded from env or defaults
}

// ScenarioConf mirrors engine.Parameters in YAML form.
type ScenarioConf struct {
	StartCash   float64 `yaml:"start_cash"`
	StartEquity float64 `yaml:"start_equity"`

	MonthlyCashContribution   float64 `yaml:"monthly_cash_contribution"`
	MonthlyEquityContribution float64 `yaml:"monthly_equity_contribution"`
	AnnualRaise               float64 `yaml:"annual_raise"`

	CashRate        float64 `yaml:"cash_rate"`
	EquityRate      float64 `yaml:"equity_rate"`
	AnnualInflation float64 `yaml:"annual_inflation"`

	CashTarget float64 `yaml:"cash_target"`

	AccumulationYears int `yaml:"accumulation_years"`
	WithdrawalYears   int `yaml:"withdrawal_years"`

	TaxRate         float64 `yaml:"tax_rate"`
	ExemptionFactor float64 `yaml:"exemption_factor"`
	AnnualAllowance float64 `yaml:"annual_allowance"`

	Payout   PayoutSpec   `yaml:"payout"`
	LumpSum  LumpSumConf  `yaml:"lump_sum"`
	LotOrder LotOrderSpec `yaml:"lot_order"`
}

// LumpSumConf configures the periodic extra outflow.
type LumpSumConf struct {
	Amount      float64 `yaml:"amount"`
	EveryMonths int     `yaml:"every_months"`
}

// Parameters converts the scenario into the engine's immutable input.
func (s ScenarioConf) Parameters() engine.Parameters {
	return engine.Parameters{
		StartCash:                 s.StartCash,
		StartEquity:               s.StartEquity,
		MonthlyCashContribution:   s.MonthlyCashContribution,
		MonthlyEquityContribution: s.MonthlyEquityContribution,
		AnnualRaise:               s.AnnualRaise,
		CashRate:                  s.CashRate,
		EquityRate:                s.EquityRate,
		AnnualInflation:           s.AnnualInflation,
		CashTarget:                s.CashTarget,
		AccumulationYears:         s.AccumulationYears,
		WithdrawalYears:           s.WithdrawalYears,
		TaxRate:                   s.TaxRate,
		ExemptionFactor:           s.ExemptionFactor,
		AnnualAllowance:           s.AnnualAllowance,
		Payout:                    s.Payout.Payout(),
		LumpSum:                   engine.LumpSum{Amount: s.LumpSum.Amount, EveryMonths: s.LumpSum.EveryMonths},
		LotOrder:                  s.LotOrder.Order(),
	}
}

// MonteCarloConf configures the stochastic layer.
type MonteCarloConf struct {
	Iterations  int     `yaml:"iterations"`
	ChunkSize   int     `yaml:"chunk_size"`
	Workers     int     `yaml:"workers"`
	BaseSeed    int64   `yaml:"base_seed"`
	Volatility  float64 `yaml:"volatility"`
	SamplePaths int     `yaml:"sample_paths"`
}

// Options converts the section into runner options.
func (m MonteCarloConf) Options(mc metrics.Config) montecarlo.Options {
	return montecarlo.Options{
		Iterations:  m.Iterations,
		ChunkSize:   m.ChunkSize,
		Workers:     m.Workers,
		BaseSeed:    m.BaseSeed,
		Volatility:  m.Volatility,
		SamplePaths: m.SamplePaths,
		Metrics:     mc,
	}
}

// MetricsConf configures outcome classification.
type MetricsConf struct {
	SuccessThreshold      float64 `yaml:"success_threshold"`
	RuinWealthFraction    float64 `yaml:"ruin_wealth_fraction"`
	ShortfallAbsTolerance float64 `yaml:"shortfall_abs_tolerance"`
	ShortfallPctTolerance float64 `yaml:"shortfall_pct_tolerance"`
	EarlyWindowMonths     int     `yaml:"early_window_months"`
}

// Config converts the section into the metrics package config.
func (m MetricsConf) Config() metrics.Config {
	return metrics.Config{
		SuccessThreshold:      m.SuccessThreshold,
		RuinWealthFraction:    m.RuinWealthFraction,
		ShortfallAbsTolerance: m.ShortfallAbsTolerance,
		ShortfallPctTolerance: m.ShortfallPctTolerance,
		EarlyWindowMonths:     m.EarlyWindowMonths,
	}
}

// OptimizerConf configures the grid search.
type OptimizerConf struct {
	Objective    string               `yaml:"objective"` // maximize-payout | minimize-budget
	Budget       float64              `yaml:"budget"`
	TargetPayout PayoutSpec           `yaml:"target_payout"`
	Grid         optimizer.GridConfig  `yaml:"grid"`
	Score        optimizer.ScoreConfig `yaml:"score"`
}

// Strategy resolves the objective string into the closed strategy set.
func (o OptimizerConf) Strategy() (optimizer.Objective, error) {
	switch o.Objective {
	case "maximize-payout", "":
		return optimizer.MaximizePayout{Budget: o.Budget}, nil
	case "minimize-budget":
		return optimizer.MinimizeBudget{TargetPayout: o.TargetPayout.Payout()}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer objective %q", o.Objective)
	}
}

// ServerConf configures the protocol server.
type ServerConf struct {
	Addr string `yaml:"addr"`
}

// LoadConfig loads configuration from the specified YAML file path
// and environment variables.
func LoadConfig(configPath string) (*Config, error) {
	cfg := &Config{
		// Default values
		LogLevel: "info",
		Server:   ServerConf{Addr: ":8080"},
	}

	file, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(file, cfg); err != nil {
		return nil, err
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects invalid configuration before any simulation starts.
func (c *Config) Validate() error {
	if err := c.Scenario.Parameters().Validate(); err != nil {
		return fmt.Errorf("scenario: %w", err)
	}
	if c.MonteCarlo.Iterations < 0 {
		return fmt.Errorf("monte_carlo: iterations must not be negative")
	}
	if c.MonteCarlo.Volatility < 0 {
		return fmt.Errorf("monte_carlo: volatility must not be negative")
	}
	if _, err := c.Optimizer.Strategy(); err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	return nil
}
