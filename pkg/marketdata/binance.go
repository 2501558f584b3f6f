// Package marketdata fetches and stores candlestick history for the replay
// pipeline. Binance is the only provider; candles move through CSV files on
// their way into the splitter.
package marketdata

import (
	"context"
	"sort"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-replay/internal/logger"
	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// klinePageSize is the number of klines Binance returns per request.
const klinePageSize = 500

// BinanceProvider downloads historical klines from the Binance public API.
// No API key is required for kline endpoints.
type BinanceProvider struct {
	client *binance.Client
	log    *logger.Logger
}

// NewBinanceProvider creates a provider backed by the public Binance REST API.
func NewBinanceProvider(log *logger.Logger) *BinanceProvider {
	return &BinanceProvider{
		client: binance.NewClient("", ""),
		log:    log,
	}
}

// FetchCandlesticks downloads all klines for the symbol and interval within
// [start, end), paginating past the API page limit. Candles come back
// sorted ascending by open time.
func (p *BinanceProvider) FetchCandlesticks(ctx context.Context, symbol string, interval types.Interval, start, end time.Time) ([]types.Candlestick, error) {
	if !interval.Valid() {
		return nil, errors.Newf(errors.ErrCodeInvalidInterval, "unsupported interval %s", interval)
	}

	startMillis := start.UnixMilli()
	endMillis := end.UnixMilli()
	currentStart := startMillis

	var candles []types.Candlestick

	for {
		klines, err := p.client.NewKlinesService().
			Symbol(symbol).
			Interval(string(interval)).
			StartTime(currentStart).
			EndTime(endMillis).
			Limit(klinePageSize).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err,
				"failed to fetch %s %s klines from Binance", symbol, interval)
		}

		for _, kline := range klines {
			if kline == nil {
				continue
			}

			candle, err := parseKline(kline)
			if err != nil {
				return nil, err
			}

			candles = append(candles, candle)
		}

		if len(klines) < klinePageSize {
			break
		}

		// resume from the close of the last kline, +1ms to avoid duplicates
		currentStart = klines[len(klines)-1].CloseTime + 1
		if currentStart >= endMillis {
			break
		}
	}

	p.log.Debug("fetched klines",
		zap.String("symbol", symbol),
		zap.String("interval", string(interval)),
		zap.Int("count", len(candles)),
	)

	return candles, nil
}

// FetchSymbolData downloads every requested interval for the symbol and
// assembles a SymbolData with timeframes sorted ascending by granularity,
// ready for the splitter.
func (p *BinanceProvider) FetchSymbolData(ctx context.Context, symbol string, intervals []types.Interval, start, end time.Time) (types.SymbolData, error) {
	sorted := make([]types.Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Finer(sorted[j])
	})

	symbolData := types.SymbolData{
		Symbol:     symbol,
		Timeframes: make([]types.Timeframe, 0, len(sorted)),
	}

	for _, interval := range sorted {
		candles, err := p.FetchCandlesticks(ctx, symbol, interval, start, end)
		if err != nil {
			return types.SymbolData{}, err
		}

		symbolData.Timeframes = append(symbolData.Timeframes, types.Timeframe{
			Interval:     interval,
			StartIndex:   0,
			Index:        0,
			EndIndex:     len(candles) - 1,
			Exhausted:    false,
			Candlesticks: candles,
		})
	}

	return symbolData, nil
}

func parseKline(kline *binance.Kline) (types.Candlestick, error) {
	open, err := decimal.NewFromString(kline.Open)
	if err != nil {
		return types.Candlestick{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid open price", err)
	}

	high, err := decimal.NewFromString(kline.High)
	if err != nil {
		return types.Candlestick{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid high price", err)
	}

	low, err := decimal.NewFromString(kline.Low)
	if err != nil {
		return types.Candlestick{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid low price", err)
	}

	closePrice, err := decimal.NewFromString(kline.Close)
	if err != nil {
		return types.Candlestick{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid close price", err)
	}

	volume, err := decimal.NewFromString(kline.Volume)
	if err != nil {
		return types.Candlestick{}, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid volume", err)
	}

	return types.Candlestick{
		OpenTime:  time.UnixMilli(kline.OpenTime).UTC(),
		CloseTime: time.UnixMilli(kline.CloseTime + 1).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    volume,
	}, nil
}
