package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/moznion/go-optional"
	backtestengine "github.com/rxtech-lab/argo-replay/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/argo-replay/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/splitter"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// loadSymbolsData reads every CSV matched by the glob into SymbolData
// batches. Files must be named <SYMBOL>_<interval>.csv, the layout
// cmd/download produces.
func loadSymbolsData(glob string) ([]types.SymbolData, error) {
	files, err := filepath.Glob(glob)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no data files match %s", glob)
	}

	bySymbol := make(map[string][]types.Timeframe)

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))

		sep := strings.LastIndex(name, "_")
		if sep <= 0 {
			return nil, fmt.Errorf("data file %s is not named SYMBOL_interval.csv", file)
		}

		symbol := name[:sep]

		interval, err := types.ParseInterval(name[sep+1:])
		if err != nil {
			return nil, fmt.Errorf("data file %s: %w", file, err)
		}

		candles, err := marketdata.ReadCSV(file)
		if err != nil {
			return nil, err
		}

		bySymbol[symbol] = append(bySymbol[symbol], types.Timeframe{
			Interval:     interval,
			StartIndex:   0,
			Index:        0,
			EndIndex:     len(candles) - 1,
			Exhausted:    false,
			Candlesticks: candles,
		})
	}

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	symbolsData := make([]types.SymbolData, 0, len(symbols))

	for _, symbol := range symbols {
		timeframes := bySymbol[symbol]
		sort.Slice(timeframes, func(i, j int) bool {
			return timeframes[i].Interval.Finer(timeframes[j].Interval)
		})

		symbolsData = append(symbolsData, types.SymbolData{
			Symbol:     symbol,
			Timeframes: timeframes,
		})
	}

	return symbolsData, nil
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	zapLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zapLogger.Sync()

	symbolsData, err := loadSymbolsData(cmd.String("data"))
	if err != nil {
		return err
	}

	warmup := int(cmd.Int("warmup"))

	split := splitter.New(splitter.Config{
		DaysPerSplit:       int(cmd.Int("days-per-split")),
		WarmupCandlesCount: warmup,
		BacktestingStart:   cmd.Timestamp("start"),
		CorrectEndIndex:    cmd.Bool("correct-end-index"),
		WarmupInterval:     optional.None[types.Interval](),
	}, zapLogger)

	parts, err := split.Split(symbolsData)
	if err != nil {
		return err
	}

	engineConfig := fmt.Sprintf("warmup_candles_count: %d", warmup)

	if configPath := cmd.String("config"); configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return fmt.Errorf("failed to read engine config: %w", err)
		}

		engineConfig = string(content)
	}

	replay := enginev1.NewReplayEngineV1()
	if err := replay.Initialize(engineConfig); err != nil {
		return err
	}

	bar := progressbar.Default(100, "replaying")

	onTick := func(runID string, tick int, window []types.SymbolData) error {
		_ = bar.Set(int(replay.Progress().IntPart()))

		return nil
	}

	if err := replay.Run(ctx, parts, onTick, backtestengine.LifecycleCallbacks{}); err != nil {
		return err
	}

	_ = bar.Set(100)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Replay multi-timeframe candlestick history through the engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Glob of CSV data files named SYMBOL_interval.csv",
				Required: true,
			},
			&cli.TimestampFlag{
				Name:     "start",
				Usage:    "Backtesting start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02", "2006-01-02T15:04:05"},
				},
			},
			&cli.IntFlag{
				Name:  "days-per-split",
				Usage: "Days per part; 0 disables splitting",
				Value: 0,
			},
			&cli.IntFlag{
				Name:  "warmup",
				Usage: "Warmup candles per tick window",
				Value: 0,
			},
			&cli.BoolFlag{
				Name:  "correct-end-index",
				Usage: "Align sibling timeframe end indices when one exhausts",
				Value: true,
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to an engine YAML config (overrides --warmup for the engine)",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
