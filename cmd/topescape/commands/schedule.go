package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/quantlab/topescape/internal/pipeline"
	"github.com/quantlab/topescape/internal/provider"
	"github.com/quantlab/topescape/internal/scheduler"
	"github.com/quantlab/topescape/internal/scheduler/jobs"
	"github.com/quantlab/topescape/internal/store"
	"github.com/quantlab/topescape/pkg/config"
	"github.com/quantlab/topescape/pkg/database"
	"github.com/quantlab/topescape/pkg/logger"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the daily refresh scheduler",
	Long: `Starts the cron scheduler. The refresh job refetches the
source CSVs after the mainland close, recomputes the index and, when
STORE_ENABLED=true, persists the run to Postgres.

Example:
  go run ./cmd/topescape schedule
  go run ./cmd/topescape schedule --now`,
	RunE: runSchedule,
}

var scheduleNow bool

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolVar(&scheduleNow, "now", false, "run the refresh job immediately on start")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Escape Index Scheduler ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	profile, err := loadProfile()
	if err != nil {
		return err
	}

	// 2. Optional persistence
	var repo *store.Repository
	if cfg.StoreEnabled {
		db, err := database.New(cfg)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		repo = store.NewRepository(db.Pool)
		fmt.Println("💾 Persistence enabled")
	}

	// 3. Wire the refresh job
	prov := provider.New(cfg.Provider, log)
	svc := pipeline.NewService(pipeline.New(profile, log))
	job := jobs.NewRefreshJob(prov, svc, profile, repo, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(job); err != nil {
		return fmt.Errorf("add job: %w", err)
	}

	sched.Start()
	defer sched.Stop()

	fmt.Printf("⏰ %s scheduled at %q\n", job.Name(), job.Schedule())

	if scheduleNow {
		if err := sched.RunJob(job.Name()); err != nil {
			return err
		}
		fmt.Println("🚀 Refresh triggered")
	}

	// 4. Wait for shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	fmt.Printf("\n🛑 Received %s, stopping scheduler...\n", sig)
	return nil
}
