// Package main is the entry point of the wealthpath planning CLI.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/your-org/wealthpath/internal/config"
	"github.com/your-org/wealthpath/internal/engine"
	"github.com/your-org/wealthpath/internal/montecarlo"
	"github.com/your-org/wealthpath/internal/optimizer"
	"github.com/your-org/wealthpath/internal/report"
)

func main() {
	configPath := flag.String("config", "config/scenario.yaml", "Path to the scenario configuration file")
	mode := flag.String("mode", "simulate", "Run mode: simulate, montecarlo or optimize")
	iterations := flag.Int("iterations", 0, "Override the Monte Carlo iteration count")
	volatility := flag.Float64("volatility", -1, "Override the annual equity volatility")
	seed := flag.Int64("seed", 0, "Override the base seed")
	workers := flag.Int("workers", 0, "Override the worker pool size")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	mcOpts := cfg.MonteCarlo.Options(cfg.Metrics.Config())
	if *iterations > 0 {
		mcOpts.Iterations = *iterations
	}
	if *volatility >= 0 {
		mcOpts.Volatility = *volatility
	}
	if *seed != 0 {
		mcOpts.BaseSeed = *seed
	}
	if *workers > 0 {
		mcOpts.Workers = *workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		logger.Info("Interrupt received, cancelling run...")
		cancel()
	}()

	params := cfg.Scenario.Parameters()
	logger.Info("Scenario loaded",
		zap.String("config", *configPath),
		zap.String("mode", *mode),
		zap.Int("months", params.Months()))

	switch *mode {
	case "simulate":
		err = runSimulate(params, mcOpts.Volatility, mcOpts.BaseSeed, logger)
	case "montecarlo":
		err = runMonteCarlo(ctx, params, mcOpts, logger)
	case "optimize":
		err = runOptimize(ctx, cfg, params, mcOpts, logger)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		logger.Fatal("Run failed", zap.Error(err))
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runSimulate(params engine.Parameters, volatility float64, seed int64, logger *zap.Logger) error {
	hist, err := engine.Simulate(params, volatility, &engine.Options{Seed: seed})
	if err != nil {
		return err
	}
	analysis, err := report.AnalyzeHistory(hist, params)
	if err != nil {
		return err
	}

	final := hist.Final()
	logger.Info("Simulation finished",
		zap.Int("months", len(hist)),
		zap.Float64("end_wealth", final.Wealth()),
		zap.Float64("end_wealth_real", final.RealWealth()),
		zap.String("analysis", analysis.String()))
	fmt.Printf("End wealth:       %12.2f (real %.2f)\n", final.Wealth(), final.RealWealth())
	fmt.Printf("Total invested:   %12s\n", analysis.TotalInvested.StringFixed(2))
	fmt.Printf("Total withdrawn:  %12s (avg %s/month)\n", analysis.TotalWithdrawals.StringFixed(2), analysis.AvgWithdrawal.StringFixed(2))
	fmt.Printf("Total tax paid:   %12s\n", analysis.TotalTax.StringFixed(2))
	fmt.Printf("Total return:     %12s\n", analysis.TotalReturn.StringFixed(2))
	if analysis.HasShortfall {
		fmt.Printf("Shortfall months: %d\n", analysis.ShortfallMonths)
	}
	return nil
}

func runMonteCarlo(ctx context.Context, params engine.Parameters, opts montecarlo.Options, logger *zap.Logger) error {
	opts.Progress = func(p montecarlo.Progress) {
		logger.Info("Monte Carlo progress",
			zap.Int("completed", p.Completed),
			zap.Int("total", p.Total),
			zap.Duration("eta", p.ETA))
	}

	res, err := montecarlo.Run(ctx, params, opts, logger)
	if err != nil {
		return err
	}

	s := res.Summary
	fmt.Printf("Iterations:           %d\n", s.Iterations)
	fmt.Printf("Success rate:         %6.2f%%\n", s.SuccessRate*100)
	fmt.Printf("Ruin probability:     %6.2f%%\n", s.RuinProbability*100)
	fmt.Printf("Capital preservation: %6.2f%%\n", s.CapitalPreservationRate*100)
	fmt.Printf("End wealth p5/p50/p95: %.0f / %.0f / %.0f\n", s.EndWealth.P5, s.EndWealth.P50, s.EndWealth.P95)
	fmt.Printf("Median real end wealth: %.0f\n", s.MedianRealEndWealth)
	fmt.Printf("SoRR correlation:     %+.3f (early window %.2f%% .. %+.2f%%)\n",
		s.SoRR.Correlation, s.SoRR.WorstEarlyReturn*100, s.SoRR.BestEarlyReturn*100)
	if params.CashTarget > 0 {
		fmt.Printf("Emergency fund: filled in %.1f%% of paths, mean month %.0f\n",
			s.EmergencyFillProbability*100, s.MeanFillMonth)
	}
	return nil
}

func runOptimize(ctx context.Context, cfg *config.Config, params engine.Parameters, mcOpts montecarlo.Options, logger *zap.Logger) error {
	obj, err := cfg.Optimizer.Strategy()
	if err != nil {
		return err
	}

	opt := optimizer.New(params, obj, cfg.Optimizer.Grid, cfg.Optimizer.Score, mcOpts, logger)
	opt.OnCandidate = func(done, total int, best *optimizer.Candidate) {
		fields := []zap.Field{zap.Int("done", done), zap.Int("total", total)}
		if best != nil && !best.Disqualified {
			fields = append(fields, zap.Int("best_index", best.Index), zap.Float64("best_score", best.Score))
		}
		logger.Info("Optimizer progress", fields...)
	}

	best, err := opt.Run(ctx)
	if err == optimizer.ErrNoViableCandidate {
		fmt.Println("No viable candidate: every grid point misses the success or emergency-fund targets.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("Best candidate: #%d (score %.3f)\n", best.Index, best.Score)
	fmt.Printf("  Cash contribution:   %10.2f/month\n", best.Params.MonthlyCashContribution)
	fmt.Printf("  Equity contribution: %10.2f/month\n", best.Params.MonthlyEquityContribution)
	switch best.Params.Payout.Kind() {
	case engine.PayoutPercentOfWealth:
		fmt.Printf("  Payout: %.2f%% of wealth at retirement\n", best.Params.Payout.Percent()*100)
	default:
		fmt.Printf("  Payout: %.2f/month fixed\n", best.Params.Payout.Amount())
	}
	if best.Result != nil {
		s := best.Result.Summary
		fmt.Printf("  Success %.1f%%, ruin %.1f%%, median real end wealth %.0f\n",
			s.SuccessRate*100, s.RuinProbability*100, s.MedianRealEndWealth)
	}
	return nil
}
