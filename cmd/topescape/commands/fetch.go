package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/quantlab/topescape/internal/provider"
	"github.com/quantlab/topescape/pkg/config"
	"github.com/quantlab/topescape/pkg/logger"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch source data into the data directory",
	Long: `Fetches the index and margin-balance histories from the
public endpoints and writes them as the CSV files the calc and
backtest commands read. Search-interest and PE exports cannot be
fetched here; drop them in manually.

Example:
  go run ./cmd/topescape fetch
  go run ./cmd/topescape fetch --from 2014-01-01`,
	RunE: runFetch,
}

var fetchFrom string

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchFrom, "from", "2010-01-01", "history start (YYYY-MM-DD)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Source Data Fetch ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	profile, err := loadProfile()
	if err != nil {
		return err
	}

	from, err := time.Parse("2006-01-02", fetchFrom)
	if err != nil {
		return fmt.Errorf("invalid from date: %w", err)
	}
	now := time.Now()

	prov := provider.New(cfg.Provider, log)
	ctx := context.Background()

	indices := []struct {
		name  string
		secID string
		path  string
	}{
		{"hs300", provider.SecIDHS300, profile.Data.HS300},
		{"csiall", provider.SecIDCSIAll, profile.Data.CSIAll},
		{"shanghai", provider.SecIDShanghai, profile.Data.Shanghai},
	}

	for i, idx := range indices {
		if idx.path == "" {
			continue
		}
		bars, err := prov.FetchIndexDaily(ctx, idx.secID, from, now)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", idx.name, err)
		}
		if err := provider.WriteIndexCSV(idx.path, bars); err != nil {
			return fmt.Errorf("write %s: %w", idx.path, err)
		}
		PrintProgress("Fetch", fmt.Sprintf("%s: %d rows -> %s", idx.name, len(bars), idx.path), i+1, len(indices)+1)
	}

	if profile.Data.Margin != "" {
		rows, err := prov.FetchMarginDaily(ctx, from, now)
		if err != nil {
			PrintWarning(fmt.Sprintf("Margin fetch failed: %v (factor degrades to missing)", err))
		} else {
			if err := provider.WriteMarginCSV(profile.Data.Margin, rows); err != nil {
				return fmt.Errorf("write %s: %w", profile.Data.Margin, err)
			}
			PrintProgress("Fetch", fmt.Sprintf("margin: %d rows -> %s", len(rows), profile.Data.Margin), len(indices)+1, len(indices)+1)
		}
	}

	PrintSuccess("Fetch completed")
	return nil
}
