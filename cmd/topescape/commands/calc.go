package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/quantlab/topescape/internal/pipeline"
	"github.com/quantlab/topescape/internal/report"
	"github.com/quantlab/topescape/internal/rolling"
	"github.com/quantlab/topescape/pkg/config"
	"github.com/quantlab/topescape/pkg/logger"
)

// calcCmd represents the calc command
var calcCmd = &cobra.Command{
	Use:   "calc",
	Short: "Compute the escape index",
	Long: `Loads the configured CSV sources, builds the factor z-scores
and writes the daily composite artifact.

Example:
  go run ./cmd/topescape calc
  go run ./cmd/topescape calc --profile config/escape_index.yaml
  go run ./cmd/topescape calc --out out/escape_index.csv`,
	RunE: runCalc,
}

var calcOut string

func init() {
	rootCmd.AddCommand(calcCmd)

	calcCmd.Flags().StringVar(&calcOut, "out", "", "output CSV path (default: <output_dir>/escape_index.csv)")
}

func runCalc(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Bull-Top Escape Index ===")

	// 1. Load config + profile
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	profile, err := loadProfile()
	if err != nil {
		return err
	}
	fmt.Printf("\n📋 Profile: %s (v%s)\n", profile.Meta.ProfileID, profile.Meta.Version)

	// 2. Run the pipeline
	pipe := pipeline.New(profile, log)
	t, res, err := pipe.Run()
	if err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	// 3. Write the artifact
	out := calcOut
	if out == "" {
		out = filepath.Join(profile.Data.OutputDir, "escape_index.csv")
	}
	if err := report.WriteIndicatorCSV(out, t, profile.Factors.Names(), res); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	// 4. Print summary
	dates := t.Dates()
	fmt.Printf("\n📅 Range: %s ~ %s (%d rows)\n",
		dates[0].Format("2006-01-02"), dates[len(dates)-1].Format("2006-01-02"), len(dates))

	signalDays := 0
	for _, s := range res.Signal {
		signalDays += s
	}
	fmt.Printf("🚨 Signal days: %d\n", signalDays)

	for i := len(dates) - 1; i >= 0; i-- {
		if rolling.IsMissing(res.Smoothed[i]) {
			continue
		}
		fmt.Printf("📈 Latest: %s  index=%.2f  level=%s\n",
			dates[i].Format("2006-01-02"), res.Smoothed[i], res.Level[i])
		break
	}

	PrintSuccess(fmt.Sprintf("Artifact written to %s", out))
	return nil
}
