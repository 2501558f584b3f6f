package marketdata

import (
	"encoding/csv"
	"os"
	"time"

	"github.com/rxtech-lab/argo-replay/internal/types"
	"github.com/rxtech-lab/argo-replay/pkg/errors"
	"github.com/shopspring/decimal"
)

var csvHeader = []string{"open_time", "close_time", "open", "high", "low", "close", "volume"}

// WriteCSV stores candles at path, one row per candle with RFC3339
// timestamps, overwriting any existing file.
func WriteCSV(path string, candles []types.Candlestick) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeMarketDataWriteFailed, err, "failed to create %s", path)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write(csvHeader); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write header", err)
	}

	for _, candle := range candles {
		record := []string{
			candle.OpenTime.Format(time.RFC3339Nano),
			candle.CloseTime.Format(time.RFC3339Nano),
			candle.Open.String(),
			candle.High.String(),
			candle.Low.String(),
			candle.Close.String(),
			candle.Volume.String(),
		}

		if err := writer.Write(record); err != nil {
			return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write candle", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to flush csv", err)
	}

	return nil
}

// ReadCSV loads candles previously stored with WriteCSV.
func ReadCSV(path string) ([]types.Candlestick, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to open %s", path)
	}
	defer file.Close()

	reader := csv.NewReader(file)

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "failed to read %s", path)
	}

	if len(records) == 0 {
		return nil, errors.Newf(errors.ErrCodeMarketDataParseFailed, "%s is empty", path)
	}

	candles := make([]types.Candlestick, 0, len(records)-1)

	for _, record := range records[1:] {
		if len(record) != len(csvHeader) {
			return nil, errors.Newf(errors.ErrCodeMarketDataParseFailed,
				"%s has a row with %d columns, want %d", path, len(record), len(csvHeader))
		}

		candle, err := parseRecord(record)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid row in %s", path)
		}

		candles = append(candles, candle)
	}

	return candles, nil
}

func parseRecord(record []string) (types.Candlestick, error) {
	openTime, err := time.Parse(time.RFC3339Nano, record[0])
	if err != nil {
		return types.Candlestick{}, err
	}

	closeTime, err := time.Parse(time.RFC3339Nano, record[1])
	if err != nil {
		return types.Candlestick{}, err
	}

	prices := make([]decimal.Decimal, 5)

	for i, raw := range record[2:] {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			return types.Candlestick{}, err
		}

		prices[i] = price
	}

	return types.Candlestick{
		OpenTime:  openTime,
		CloseTime: closeTime,
		Open:      prices[0],
		High:      prices[1],
		Low:       prices[2],
		Close:     prices[3],
		Volume:    prices[4],
	}, nil
}
