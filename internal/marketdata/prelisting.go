package marketdata

import (
	"sort"
	"time"

	"cycle-strategy-engine/internal/riskmodel"
)

// Monthly (plus a few notable intra-month) closes for the years before
// each asset listed on Binance, keyed by date. These seed the power-law
// regression with early-cycle history the exchange API cannot provide.
var preListingCloses = map[string]map[string]float64{
	"BTC": {
		"2010-07-18": 0.05, "2010-08-01": 0.07, "2010-09-01": 0.06,
		"2010-10-01": 0.06, "2010-11-01": 0.22, "2010-12-01": 0.23,
		"2011-01-01": 0.30, "2011-02-01": 0.92, "2011-03-01": 0.87,
		"2011-04-01": 1.57, "2011-05-01": 8.17, "2011-06-01": 14.00,
		"2011-06-08": 29.60, "2011-07-01": 14.46, "2011-08-01": 11.00,
		"2011-09-01": 4.78, "2011-10-01": 3.20, "2011-11-01": 2.98,
		"2011-11-18": 2.22, "2011-12-01": 3.06,
		"2012-01-01": 5.27, "2012-02-01": 4.37, "2012-03-01": 4.94,
		"2012-04-01": 5.00, "2012-05-01": 5.09, "2012-06-01": 6.14,
		"2012-07-01": 6.78, "2012-08-01": 10.18, "2012-09-01": 11.98,
		"2012-10-01": 12.34, "2012-11-01": 12.05, "2012-12-01": 13.45,
		"2013-01-01": 13.30, "2013-02-01": 22.13, "2013-03-01": 34.46,
		"2013-04-01": 93.57, "2013-04-10": 196.00, "2013-05-01": 116.99,
		"2013-06-01": 128.16, "2013-07-01": 97.10, "2013-08-01": 107.60,
		"2013-09-01": 140.00, "2013-10-01": 135.30, "2013-11-01": 210.64,
		"2013-11-29": 1163.00, "2013-12-01": 946.92,
		"2014-01-01": 771.40, "2014-02-01": 829.56, "2014-03-01": 562.98,
		"2014-04-01": 443.34, "2014-05-01": 449.47, "2014-06-01": 628.51,
		"2014-07-01": 640.68, "2014-08-01": 522.25, "2014-09-01": 386.94,
		"2014-10-01": 338.32, "2014-11-01": 325.24, "2014-12-01": 378.64,
		"2015-01-01": 314.25, "2015-01-14": 178.10, "2015-02-01": 220.16,
		"2015-03-01": 254.28, "2015-04-01": 244.23, "2015-05-01": 236.17,
		"2015-06-01": 225.21, "2015-07-01": 259.30, "2015-08-01": 284.00,
		"2015-09-01": 230.60, "2015-10-01": 237.50, "2015-11-01": 329.61,
		"2015-12-01": 377.30,
		"2016-01-01": 430.72, "2016-02-01": 371.04, "2016-03-01": 413.65,
		"2016-04-01": 416.75, "2016-05-01": 448.48, "2016-06-01": 536.35,
		"2016-07-01": 676.97, "2016-08-01": 607.38, "2016-09-01": 604.84,
		"2016-10-01": 614.95, "2016-11-01": 731.23, "2016-12-01": 770.44,
		"2017-01-01": 963.66, "2017-02-01": 970.41, "2017-03-01": 1190.45,
		"2017-04-01": 1071.79, "2017-05-01": 1402.78, "2017-06-01": 2434.55,
		"2017-07-01": 2492.60, "2017-08-01": 2875.34,
	},
	"ETH": {
		"2015-08-07": 1.20, "2015-09-01": 1.12, "2015-10-01": 0.80,
		"2015-11-01": 0.98, "2015-12-01": 0.90,
		"2016-01-01": 0.95, "2016-02-01": 4.42, "2016-03-01": 10.18,
		"2016-04-01": 8.02, "2016-05-01": 11.58, "2016-06-01": 14.48,
		"2016-07-01": 10.56, "2016-08-01": 11.78, "2016-09-01": 12.80,
		"2016-10-01": 12.26, "2016-11-01": 10.73, "2016-12-01": 8.05,
		"2017-01-01": 8.17, "2017-02-01": 10.68, "2017-03-01": 16.60,
		"2017-04-01": 50.22, "2017-05-01": 84.27, "2017-06-01": 229.34,
		"2017-07-01": 262.80, "2017-08-01": 225.69,
	},
	"XRP": {
		"2013-08-04": 0.005, "2013-09-01": 0.005, "2013-10-01": 0.005,
		"2013-11-01": 0.014, "2013-12-01": 0.023,
		"2014-01-01": 0.021, "2014-02-01": 0.020, "2014-03-01": 0.018,
		"2014-04-01": 0.013, "2014-05-01": 0.014, "2014-06-01": 0.008,
		"2014-07-01": 0.007, "2014-08-01": 0.006, "2014-09-01": 0.005,
		"2014-10-01": 0.004, "2014-11-01": 0.003, "2014-12-01": 0.003,
		"2015-01-01": 0.017, "2015-02-01": 0.014, "2015-03-01": 0.014,
		"2015-04-01": 0.013, "2015-05-01": 0.008, "2015-06-01": 0.008,
		"2015-07-01": 0.009, "2015-08-01": 0.008, "2015-09-01": 0.007,
		"2015-10-01": 0.005, "2015-11-01": 0.004, "2015-12-01": 0.006,
		"2016-01-01": 0.006, "2016-02-01": 0.007, "2016-03-01": 0.008,
		"2016-04-01": 0.007, "2016-05-01": 0.008, "2016-06-01": 0.007,
		"2016-07-01": 0.007, "2016-08-01": 0.006, "2016-09-01": 0.006,
		"2016-10-01": 0.007, "2016-11-01": 0.008, "2016-12-01": 0.007,
		"2017-01-01": 0.006, "2017-02-01": 0.006, "2017-03-01": 0.007,
		"2017-04-01": 0.033, "2017-05-01": 0.177, "2017-06-01": 0.268,
		"2017-07-01": 0.258, "2017-08-01": 0.169,
	},
}

// PreListingDaily expands the sparse pre-listing closes of an asset into
// a forward-filled daily series, sorted ascending. Returns nil when the
// asset has no embedded history.
func PreListingDaily(assetID string) []riskmodel.PricePoint {
	closes, ok := preListingCloses[assetID]
	if !ok {
		return nil
	}

	sparse := make([]riskmodel.PricePoint, 0, len(closes))
	for date, price := range closes {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			continue
		}
		sparse = append(sparse, riskmodel.PricePoint{Date: t, Price: price})
	}
	sort.Slice(sparse, func(i, j int) bool {
		return sparse[i].Date.Before(sparse[j].Date)
	})
	if len(sparse) == 0 {
		return nil
	}

	// Forward-fill to daily resolution.
	var daily []riskmodel.PricePoint
	for i := 0; i < len(sparse); i++ {
		daily = append(daily, sparse[i])
		if i == len(sparse)-1 {
			break
		}
		for d := sparse[i].Date.AddDate(0, 0, 1); d.Before(sparse[i+1].Date); d = d.AddDate(0, 0, 1) {
			daily = append(daily, riskmodel.PricePoint{Date: d, Price: sparse[i].Price})
		}
	}
	return daily
}
