package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/marketdata"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
)

// downloadAction fetches historical klines from Binance and stores them as
// one CSV file per interval, named <SYMBOL>_<interval>.csv.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	symbol := cmd.String("symbol")
	startDate := cmd.Timestamp("start")
	endDate := cmd.Timestamp("end")
	outputDir := cmd.String("output")

	var intervals []types.Interval

	for _, raw := range strings.Split(cmd.String("intervals"), ",") {
		interval, err := types.ParseInterval(strings.TrimSpace(raw))
		if err != nil {
			return err
		}

		intervals = append(intervals, interval)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	zapLogger, err := logger.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer zapLogger.Sync()

	provider := marketdata.NewBinanceProvider(zapLogger)
	bar := progressbar.Default(int64(len(intervals)), "downloading")

	for _, interval := range intervals {
		candles, err := provider.FetchCandlesticks(ctx, symbol, interval, startDate, endDate)
		if err != nil {
			return err
		}

		path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.csv", symbol, interval))
		if err := marketdata.WriteCSV(path, candles); err != nil {
			return err
		}

		_ = bar.Add(1)

		log.Printf("wrote %d %s candles to %s", len(candles), interval, path)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download historical candlestick data from Binance to CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"s"},
				Usage:    "Trading symbol (e.g., BTCUSDT)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "intervals",
				Aliases: []string{"i"},
				Usage:   "Comma-separated list of intervals (e.g., 5m,1h,1d)",
				Value:   "5m,1d",
			},
			&cli.TimestampFlag{
				Name:     "start",
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format. Defaults to now.",
				Value: time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory for CSV files",
				Value:   "data",
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
