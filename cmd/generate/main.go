package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	schemaName       = "backtest-config.json"
	sampleConfigName = "backtest-config.yaml"
)

// sampleConfig is a runnable momentum config with every tunable spelled out.
func sampleConfig() types.BacktestConfig {
	config := types.DefaultBacktestConfig()
	config.Strategy = types.StrategyConfig{
		Type:          types.StrategyTypeMomentum,
		Fraction:      0.5,
		StopLossPct:   0.05,
		TakeProfitPct: 0.1,
	}
	config.Exchange = "binance"
	config.Symbol = "BTCUSDT"
	config.Timeframe = types.Timeframe1h
	config.Start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	config.End = time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC)
	config.InitialCapital = decimal.NewFromInt(10000)
	config.FeeRate = decimal.NewFromFloat(0.001)
	config.Deterministic = true
	config.RandomSeed = 42

	return config
}

func validatePaths(schemaPath, sampleConfigPath string) error {
	if schemaPath == "" {
		return fmt.Errorf("schema path cannot be empty")
	}

	if sampleConfigPath == "" {
		return fmt.Errorf("sample config path cannot be empty")
	}

	return nil
}

func getSchemaReference(name string) string {
	return "# yaml-language-server: $schema=" + name + "\n"
}

func generateSchemaFile(config types.BacktestConfig, schemaPath string) error {
	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(schemaPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	return nil
}

// generateSampleConfig writes config as YAML unless path already exists.
func generateSampleConfig(config types.BacktestConfig, path, schema string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	content := getSchemaReference(schema) + string(yamlBytes)
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	return nil
}

func generate(dir string) error {
	schemaPath := filepath.Join(dir, schemaName)
	sampleConfigPath := filepath.Join(dir, sampleConfigName)

	if err := validatePaths(schemaPath, sampleConfigPath); err != nil {
		return err
	}

	if err := generateSchemaFile(types.DefaultBacktestConfig(), schemaPath); err != nil {
		return err
	}

	return generateSampleConfig(sampleConfig(), sampleConfigPath, schemaName)
}

func main() {
	dir := "./config"
	if len(os.Args) > 1 {
		dir = os.Args[1]
	}

	if err := generate(dir); err != nil {
		log.Fatal(err)
	}

	log.Printf("Schema and sample config generated in %s", dir)
}
