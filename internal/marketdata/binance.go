// Package marketdata fetches the daily price series the risk model
// consumes: Binance daily klines back to each symbol's listing, merged
// with embedded monthly closes for the years before listing.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"cycle-strategy-engine/internal/riskmodel"
)

// DefaultBaseURL is the public Binance REST endpoint.
const DefaultBaseURL = "https://api.binance.com"

// klineBatchLimit is the maximum candles per klines request.
const klineBatchLimit = 1000

// listingDates gives the first daily candle available per symbol.
var listingDates = map[string]string{
	"BTCUSDT": "2017-08-17",
	"ETHUSDT": "2017-08-17",
	"SOLUSDT": "2020-04-10",
	"XRPUSDT": "2018-01-01",
}

// BinanceClient fetches daily close prices from the Binance klines API.
type BinanceClient struct {
	http   *resty.Client
	logger *logrus.Logger
}

// NewBinanceClient creates a client against baseURL (DefaultBaseURL when
// empty).
func NewBinanceClient(baseURL string, logger *logrus.Logger) *BinanceClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BinanceClient{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetRetryCount(3),
		logger: logger,
	}
}

// DailyCloses fetches daily close prices for symbol from start until now,
// paginating in batches of 1000 candles.
func (c *BinanceClient) DailyCloses(ctx context.Context, symbol string, start time.Time) ([]riskmodel.PricePoint, error) {
	var points []riskmodel.PricePoint
	startMs := start.UnixMilli()
	endMs := time.Now().UnixMilli()

	for startMs < endMs {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"symbol":    symbol,
				"interval":  "1d",
				"startTime": strconv.FormatInt(startMs, 10),
				"limit":     strconv.Itoa(klineBatchLimit),
			}).
			Get("/api/v3/klines")
		if err != nil {
			return nil, fmt.Errorf("fetch klines for %s: %w", symbol, err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("fetch klines for %s: status %d", symbol, resp.StatusCode())
		}

		batch, lastCloseMs, err := parseKlines(resp.Body())
		if err != nil {
			return nil, fmt.Errorf("parse klines for %s: %w", symbol, err)
		}
		if len(batch) == 0 {
			break
		}

		points = append(points, batch...)
		startMs = lastCloseMs + 1
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("no candles returned for %s", symbol)
	}

	c.logger.WithFields(logrus.Fields{
		"symbol":  symbol,
		"candles": len(points),
	}).Info("fetched daily closes")
	return dedupeDaily(points), nil
}

// FullHistory fetches the Binance series for symbol and prepends the
// embedded pre-listing closes for assetID, if any.
func (c *BinanceClient) FullHistory(ctx context.Context, assetID, symbol string) ([]riskmodel.PricePoint, error) {
	start := listingStart(symbol)

	binance, err := c.DailyCloses(ctx, symbol, start)
	if err != nil {
		return nil, err
	}

	pre := PreListingDaily(assetID)
	if len(pre) == 0 {
		return binance, nil
	}

	cutoff := binance[0].Date
	var merged []riskmodel.PricePoint
	for _, pt := range pre {
		if pt.Date.Before(cutoff) {
			merged = append(merged, pt)
		}
	}
	merged = append(merged, binance...)

	c.logger.WithFields(logrus.Fields{
		"asset":       assetID,
		"preListing":  len(merged) - len(binance),
		"binanceDays": len(binance),
	}).Info("combined price history")
	return merged, nil
}

func listingStart(symbol string) time.Time {
	date, ok := listingDates[symbol]
	if !ok {
		date = "2020-01-01"
	}
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	return t
}

// parseKlines decodes the klines response: each row is an array whose
// index 4 is the close price (string) and index 6 the close time (ms).
func parseKlines(body []byte) ([]riskmodel.PricePoint, int64, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, 0, fmt.Errorf("decode response: %w", err)
	}

	var points []riskmodel.PricePoint
	var lastCloseMs int64
	for _, row := range rows {
		if len(row) < 7 {
			return nil, 0, fmt.Errorf("kline row has %d fields", len(row))
		}

		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, 0, fmt.Errorf("decode open time: %w", err)
		}
		var closeStr string
		if err := json.Unmarshal(row[4], &closeStr); err != nil {
			return nil, 0, fmt.Errorf("decode close price: %w", err)
		}
		if err := json.Unmarshal(row[6], &lastCloseMs); err != nil {
			return nil, 0, fmt.Errorf("decode close time: %w", err)
		}

		price, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("parse close price %q: %w", closeStr, err)
		}

		points = append(points, riskmodel.PricePoint{
			Date:  time.UnixMilli(openMs).UTC().Truncate(24 * time.Hour),
			Price: price,
		})
	}
	return points, lastCloseMs, nil
}

// dedupeDaily keeps the last point per day, sorted ascending.
func dedupeDaily(points []riskmodel.PricePoint) []riskmodel.PricePoint {
	byDay := make(map[int64]riskmodel.PricePoint, len(points))
	for _, pt := range points {
		byDay[pt.Date.Unix()] = pt
	}

	out := make([]riskmodel.PricePoint, 0, len(byDay))
	for _, pt := range byDay {
		out = append(out, pt)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
