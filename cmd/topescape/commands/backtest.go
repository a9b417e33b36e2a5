package commands

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/quantlab/topescape/internal/backtest"
	"github.com/quantlab/topescape/internal/indexconfig"
	"github.com/quantlab/topescape/internal/pipeline"
	"github.com/quantlab/topescape/internal/report"
	"github.com/quantlab/topescape/pkg/config"
	"github.com/quantlab/topescape/pkg/logger"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Grid search factor weights against historical tops",
	Long: `Enumerates the coarse weight grid, scores each candidate by
hit/false-alarm counts around the configured market tops, and writes
the candidate log and the best weight vector.

Scoring: TP*100 - FP*1. A signal inside [peak-advance, peak-1] counts
one hit per peak; any signal day outside every window is a false alarm.

Example:
  go run ./cmd/topescape backtest
  go run ./cmd/topescape backtest --step 0.25 --workers 4
  go run ./cmd/topescape backtest --profile config/escape_index.yaml`,
	RunE: runBacktest,
}

var (
	backtestStep    float64
	backtestWorkers int
	backtestTop     int
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().Float64Var(&backtestStep, "step", 0, "grid step (default: profile grid)")
	backtestCmd.Flags().IntVar(&backtestWorkers, "workers", 0, "search workers (default: GOMAXPROCS)")
	backtestCmd.Flags().IntVar(&backtestTop, "top", 5, "candidates to print")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Escape Index Weight Search ===")

	// 1. Load config + backtest profile
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	var profile *indexconfig.Config
	if profileFile != "" {
		profile, err = loadProfile()
		if err != nil {
			return err
		}
	} else {
		// The search variant: short smoothing and tighter windows so
		// candidates differ where it matters, near the tops.
		profile = indexconfig.BacktestProfile()
	}
	if backtestStep > 0 {
		profile.Backtest.Grid = backtest.DefaultGrid(backtestStep)
	}
	if backtestWorkers > 0 {
		profile.Backtest.Workers = backtestWorkers
	}

	peaks, err := profile.Backtest.PeakDates()
	if err != nil {
		return fmt.Errorf("parse peaks: %w", err)
	}

	fmt.Printf("\n📋 Profile: %s\n", profile.Meta.ProfileID)
	fmt.Printf("🗻 Peaks: %d, advance window: %d days\n", len(peaks), profile.Backtest.AdvanceDays)
	fmt.Printf("🎯 Grid step: %.2f\n\n", profile.Backtest.Grid.Step)

	// 2. Build the feature table once; every candidate reuses it
	pipe := pipeline.New(profile, log)
	t, err := pipe.LoadTable()
	if err != nil {
		return fmt.Errorf("load sources: %w", err)
	}
	if err := pipe.BuildFeatures(t); err != nil {
		return fmt.Errorf("build features: %w", err)
	}

	// 3. Run the search
	fmt.Println("🚀 Starting grid search...")
	opt := backtest.NewOptimizer(log)
	result, err := opt.Search(context.Background(), t, backtest.SearchConfig{
		Grid:        profile.Backtest.Grid,
		Combine:     profile.Combine,
		Peaks:       peaks,
		AdvanceDays: profile.Backtest.AdvanceDays,
		Workers:     profile.Backtest.Workers,
	})
	if err != nil {
		return fmt.Errorf("grid search: %w", err)
	}

	// 4. Write artifacts
	gridOut := filepath.Join(profile.Data.OutputDir, "grid_results.csv")
	bestOut := filepath.Join(profile.Data.OutputDir, "best_weights.json")
	if err := report.WriteGridCSV(gridOut, profile.Backtest.Grid, result.Candidates); err != nil {
		return fmt.Errorf("write grid log: %w", err)
	}
	if err := report.WriteBestJSON(bestOut, profile.Backtest.Grid, result.Best); err != nil {
		return fmt.Errorf("write best weights: %w", err)
	}

	// 5. Print the leaderboard
	fmt.Printf("\n✅ Scored %d candidates in %s\n\n", len(result.Candidates), result.Elapsed)

	ranked := make([]backtest.CandidateResult, len(result.Candidates))
	copy(ranked, result.Candidates)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	n := backtestTop
	if n > len(ranked) {
		n = len(ranked)
	}
	PrintSeparator()
	fmt.Printf("  %-6s %-4s %-4s %-8s\n", "idx", "tp", "fp", "score")
	PrintSeparator()
	for _, c := range ranked[:n] {
		fmt.Printf("  %-6d %-4d %-4d %-8.1f\n", c.Index, c.Outcome.TP, c.Outcome.FP, c.Score)
	}
	PrintSeparator()

	fmt.Printf("\n🏆 Best: idx=%d score=%.1f (tp=%d fp=%d)\n",
		result.Best.Index, result.Best.Score, result.Best.Outcome.TP, result.Best.Outcome.FP)
	for i, g := range profile.Backtest.Grid.GroupNames() {
		PrintKeyValue(g, fmt.Sprintf("%.2f", result.Best.GroupWeights[i]), 12)
	}

	PrintSuccess(fmt.Sprintf("Artifacts written to %s", profile.Data.OutputDir))
	return nil
}
