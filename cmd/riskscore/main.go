// Package main computes the daily risk scores for the configured assets
// and publishes them as a JSON document, optionally archiving the full
// per-day history to ClickHouse. The document is what the engine's HTTP
// risk feed polls.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"cycle-strategy-engine/internal/config"
	"cycle-strategy-engine/internal/domain"
	"cycle-strategy-engine/internal/marketdata"
	"cycle-strategy-engine/internal/riskmodel"
	chstore "cycle-strategy-engine/internal/storage/clickhouse"
	"cycle-strategy-engine/internal/storage/migrations"
)

// scoreDocument is the published JSON shape.
type scoreDocument struct {
	UpdatedAt string                `json:"updated_at"`
	Assets    map[string]scoreEntry `json:"assets"`
}

type scoreEntry struct {
	AssetID      string  `json:"asset_id"`
	RiskScore    float64 `json:"risk_score"`
	Price        float64 `json:"price"`
	FloorPrice   float64 `json:"floor_price"`
	CeilingPrice float64 `json:"ceiling_price"`
}

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to YAML config file")
	output := flag.String("output", "risk_scores.json", "Output path for the score document")
	binanceURL := flag.String("binance-url", "", "Binance API base URL override")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.WithError(err).Fatal("load config")
	}

	ctx := context.Background()
	client := marketdata.NewBinanceClient(*binanceURL, logger)

	symbols := make(map[string]string, len(cfg.Assets))
	for _, a := range cfg.Assets {
		symbols[a.ID] = a.Symbol
	}

	paramsByAsset := make(map[string]riskmodel.Params)
	for _, p := range riskmodel.DefaultParams() {
		paramsByAsset[p.AssetID] = p
	}

	doc := scoreDocument{
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Assets:    make(map[string]scoreEntry),
	}
	var allPoints []*domain.RiskScorePoint

	for _, a := range cfg.Assets {
		params, ok := paramsByAsset[a.ID]
		if !ok {
			logger.WithField("asset", a.ID).Warn("no model parameters for asset, skipping")
			continue
		}
		if a.Symbol == "" {
			logger.WithField("asset", a.ID).Warn("no trading symbol for asset, skipping")
			continue
		}

		prices, err := client.FullHistory(ctx, a.ID, a.Symbol)
		if err != nil {
			logger.WithField("asset", a.ID).WithError(err).Error("fetch price history")
			continue
		}

		points, err := riskmodel.ComputeScores(prices, params)
		if err != nil {
			logger.WithField("asset", a.ID).WithError(err).Error("compute scores")
			continue
		}
		if len(points) == 0 {
			logger.WithField("asset", a.ID).Warn("no scores produced, history too short")
			continue
		}

		latest := points[len(points)-1]
		doc.Assets[a.ID] = scoreEntry{
			AssetID:      a.ID,
			RiskScore:    latest.RiskScore,
			Price:        latest.Price,
			FloorPrice:   latest.FloorPrice,
			CeilingPrice: latest.CeilingPrice,
		}
		allPoints = append(allPoints, points...)

		logger.WithFields(logrus.Fields{
			"asset": a.ID,
			"score": fmt.Sprintf("%.1f", latest.RiskScore),
			"days":  len(points),
		}).Info("scored asset")
	}

	if len(doc.Assets) == 0 {
		logger.Fatal("no assets scored")
	}

	if err := writeDocument(*output, doc); err != nil {
		logger.WithError(err).Fatal("write score document")
	}
	logger.WithField("path", *output).Info("score document written")

	if dsn := cfg.Storage.ClickhouseDSN; dsn != "" {
		if err := archiveHistory(ctx, dsn, allPoints); err != nil {
			logger.WithError(err).Error("archive score history")
		} else {
			logger.WithField("points", len(allPoints)).Info("score history archived")
		}
	}
}

func writeDocument(path string, doc scoreDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}

	// Write-then-rename so feed consumers never see a partial document.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	return nil
}

func archiveHistory(ctx context.Context, dsn string, points []*domain.RiskScorePoint) error {
	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	if err != nil {
		return err
	}
	defer conn.Close()

	return chstore.NewRiskHistoryStore(conn).InsertBatch(ctx, points)
}
