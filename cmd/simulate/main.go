// Package main replays a scripted risk path against sample strategies
// using the real engine over in-memory storage. It is a dry run of the
// evaluation semantics: no network, no database, deterministic clock.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/engine"
	"cycle-strategy-engine/internal/riskfeed"
	"cycle-strategy-engine/internal/storage/memory"
	"cycle-strategy-engine/internal/strategies"
)

// pathStep is one simulated day of the risk path.
type pathStep struct {
	day  int
	risk float64
}

// defaultPath walks risk from a high regime down through an
// accumulation zone and back up through distribution territory.
var defaultPath = []pathStep{
	{0, 72}, {1, 68}, {2, 63}, {3, 58}, {4, 52},
	{5, 47}, {6, 41}, {7, 36}, {8, 31}, {9, 27},
	{10, 24}, {11, 28}, {12, 34}, {13, 41}, {14, 49},
	{15, 56}, {16, 62}, {17, 69}, {18, 75}, {19, 81},
	{20, 86}, {21, 90},
}

func main() {
	verbose := flag.Bool("verbose", false, "Log every tick")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if !*verbose {
		logger.SetLevel(logrus.WarnLevel)
	}

	ctx := context.Background()
	store := memory.NewStrategyStore()
	svc := strategies.NewService(store, logger)

	if err := seedStrategies(ctx, svc); err != nil {
		fmt.Fprintln(os.Stderr, "seed strategies:", err)
		os.Exit(1)
	}

	feed := riskfeed.NewStatic()
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	now := &clock

	eng := engine.New(engine.Options{
		Store:  store,
		Feed:   feed,
		Logger: logger,
		Now:    func() time.Time { return *now },
	})

	base := clock
	for _, step := range defaultPath {
		clock = base.AddDate(0, 0, step.day)
		feed.Set(domain.RiskSnapshot{
			AssetID:        "BTC",
			Score:          step.risk,
			FloorPrice:     30000,
			CeilingPrice:   250000,
			ReferencePrice: 90000,
			UpdatedAt:      clock.UnixMilli(),
		})

		if err := eng.Tick(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "tick:", err)
			os.Exit(1)
		}
	}

	printResults(ctx, store)
}

// seedStrategies creates one strategy of each shape.
func seedStrategies(ctx context.Context, svc *strategies.Service) error {
	seeds := []strategies.Params{
		{
			AssetID:         "BTC",
			Mode:            domain.ModeAccumulate,
			Kind:            domain.KindFixed,
			ActiveRiskStart: 55,
			ActiveRiskEnd:   10,
			AmountPerOrder:  500,
			Frequency:       domain.FrequencyWeekly,
			Active:          true,
		},
		{
			AssetID:         "BTC",
			Mode:            domain.ModeAccumulate,
			Kind:            domain.KindScaled,
			ActiveRiskStart: 50,
			ActiveRiskEnd:   20,
			AmountPerOrder:  1000,
			LevelStep:       10,
			LevelGrowthPct:  25,
			Active:          true,
		},
		{
			AssetID:         "BTC",
			Mode:            domain.ModeDistribute,
			Kind:            domain.KindScaled,
			ActiveRiskStart: 60,
			ActiveRiskEnd:   90,
			AmountPerOrder:  2000,
			LevelStep:       10,
			LevelGrowthPct:  50,
			AssetCap:        0.5,
			Active:          true,
		},
	}

	for _, p := range seeds {
		if _, err := svc.Create(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func printResults(ctx context.Context, store *memory.StrategyStore) {
	all, err := store.LoadAll(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load strategies:", err)
		os.Exit(1)
	}

	for _, s := range all {
		fmt.Printf("\n%s %s %s  range %.0f->%.0f  active=%v\n",
			s.AssetID, s.Mode, s.Kind, s.ActiveRiskStart, s.ActiveRiskEnd, s.Active)

		if len(s.ComputedOrders) > 0 {
			fmt.Println("  plan:")
			for _, po := range s.ComputedOrders {
				fmt.Printf("    risk %5.1f  amount %10.2f\n", po.Risk, po.AmountFiat)
			}
		}

		if len(s.Executions) == 0 {
			fmt.Println("  no executions")
			continue
		}
		fmt.Println("  executions:")
		for _, e := range s.Executions {
			fmt.Printf("    %s  risk %5.1f  fiat %10.2f  asset %.6f  price %12.2f\n",
				time.UnixMilli(e.Date).UTC().Format("2006-01-02"),
				e.RiskAtExecution, e.AmountFiat, e.AssetAmount, e.PricePerUnit)
		}
		fmt.Printf("  totals: fiat %.2f  asset %.6f\n", s.ExecutedFiat(), s.ExecutedAsset())
	}
}
