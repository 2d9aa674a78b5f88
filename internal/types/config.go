package types

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// StrategyType names one of the compiled strategy variants.
type StrategyType string

const (
	StrategyTypeMomentum           StrategyType = "momentum"
	StrategyTypeSMACrossover       StrategyType = "sma_crossover"
	StrategyTypeRSIReversion       StrategyType = "rsi_reversion"
	StrategyTypeMACDCrossover      StrategyType = "macd_crossover"
	StrategyTypeBollingerReversion StrategyType = "bollinger_reversion"
	StrategyTypeRandomEntry        StrategyType = "random_entry"
)

// AllStrategyTypes lists every strategy the engine can build.
var AllStrategyTypes = []any{
	string(StrategyTypeMomentum),
	string(StrategyTypeSMACrossover),
	string(StrategyTypeRSIReversion),
	string(StrategyTypeMACDCrossover),
	string(StrategyTypeBollingerReversion),
	string(StrategyTypeRandomEntry),
}

// StrategyConfig identifies a strategy and carries its parameters.
// Parameters a variant does not read are ignored.
type StrategyConfig struct {
	Type StrategyType `yaml:"type" json:"type" validate:"required,oneof=momentum sma_crossover rsi_reversion macd_crossover bollinger_reversion random_entry" jsonschema:"title=Strategy Type,description=Compiled strategy variant to run,required"`
	// EngineVersion is an optional semver constraint the running engine must satisfy.
	EngineVersion string `yaml:"engine_version,omitempty" json:"engine_version,omitempty" jsonschema:"title=Engine Version,description=Semver constraint on the engine version (e.g. ~1.0)"`

	Quantity float64 `yaml:"quantity,omitempty" json:"quantity,omitempty" validate:"gte=0" jsonschema:"title=Quantity,description=Fixed order size in units. Takes precedence over fraction,minimum=0"`
	Fraction float64 `yaml:"fraction,omitempty" json:"fraction,omitempty" validate:"gte=0,lte=1" jsonschema:"title=Fraction,description=Share of available cash committed per entry (default 1),minimum=0,maximum=1"`

	Period       int     `yaml:"period,omitempty" json:"period,omitempty" validate:"gte=0" jsonschema:"title=Period,minimum=0"`
	FastPeriod   int     `yaml:"fast_period,omitempty" json:"fast_period,omitempty" validate:"gte=0" jsonschema:"title=Fast Period,minimum=0"`
	SlowPeriod   int     `yaml:"slow_period,omitempty" json:"slow_period,omitempty" validate:"gte=0" jsonschema:"title=Slow Period,minimum=0"`
	SignalPeriod int     `yaml:"signal_period,omitempty" json:"signal_period,omitempty" validate:"gte=0" jsonschema:"title=Signal Period,minimum=0"`
	StdDev       float64 `yaml:"std_dev,omitempty" json:"std_dev,omitempty" validate:"gte=0" jsonschema:"title=Standard Deviations,minimum=0"`

	LowerThreshold float64 `yaml:"lower_threshold,omitempty" json:"lower_threshold,omitempty" validate:"gte=0,lte=100"`
	UpperThreshold float64 `yaml:"upper_threshold,omitempty" json:"upper_threshold,omitempty" validate:"gte=0,lte=100"`

	StopLossPct   float64 `yaml:"stop_loss_pct,omitempty" json:"stop_loss_pct,omitempty" validate:"gte=0,lt=1" jsonschema:"title=Stop Loss,description=Stop distance from entry as a fraction of entry price,minimum=0"`
	TakeProfitPct float64 `yaml:"take_profit_pct,omitempty" json:"take_profit_pct,omitempty" validate:"gte=0" jsonschema:"title=Take Profit,description=Target distance from entry as a fraction of entry price,minimum=0"`

	EntryProbability float64 `yaml:"entry_probability,omitempty" json:"entry_probability,omitempty" validate:"gte=0,lte=1" jsonschema:"title=Entry Probability,description=Per-bar entry chance for random_entry,minimum=0,maximum=1"`
}

// BacktestConfig is everything one run needs besides the bars themselves.
type BacktestConfig struct {
	Strategy    StrategyConfig `yaml:"strategy" json:"strategy" jsonschema:"title=Strategy,required"`
	Exchange    string         `yaml:"exchange" json:"exchange" validate:"required" jsonschema:"title=Exchange,description=Exchange the bars were recorded on,required"`
	Symbol      string         `yaml:"symbol" json:"symbol" validate:"required" jsonschema:"title=Symbol,required"`
	Timeframe   Timeframe      `yaml:"timeframe" json:"timeframe" validate:"required,oneof=1m 5m 15m 30m 1h 4h 1d 1w" jsonschema:"title=Timeframe,required"`
	ProductType ProductType    `yaml:"product_type" json:"product_type" validate:"required,oneof=spot margin futures" jsonschema:"title=Product Type"`
	Start       time.Time      `yaml:"start" json:"start" validate:"required" jsonschema:"title=Start,description=Inclusive start of the bar range,required"`
	End         time.Time      `yaml:"end" json:"end" validate:"required" jsonschema:"title=End,description=Inclusive end of the bar range,required"`

	InitialCapital decimal.Decimal `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash and must be positive,required"`
	FeeRate        decimal.Decimal `yaml:"fee_rate" json:"fee_rate" jsonschema:"title=Fee Rate,description=Fee charged on each fill as a fraction of notional"`

	Deterministic bool  `yaml:"deterministic" json:"deterministic" jsonschema:"title=Deterministic"`
	RandomSeed    int64 `yaml:"random_seed" json:"random_seed" jsonschema:"title=Random Seed,description=Seed for the private random source of the run and only read when deterministic is true"`

	AllowShort          bool    `yaml:"allow_short" json:"allow_short" jsonschema:"title=Allow Short"`
	WaiveLiquidationFee bool    `yaml:"waive_liquidation_fee" json:"waive_liquidation_fee" jsonschema:"title=Waive Liquidation Fee,description=Skip the fee on the forced end-of-run close"`
	SlippageBps         float64 `yaml:"slippage_bps" json:"slippage_bps" validate:"gte=0,lte=1000" jsonschema:"title=Slippage,description=Maximum adverse slippage in basis points,minimum=0,maximum=1000"`

	MaxStrategyErrorRatio float64 `yaml:"max_strategy_error_ratio" json:"max_strategy_error_ratio" validate:"gte=0,lte=1" jsonschema:"title=Max Strategy Error Ratio,minimum=0,maximum=1"`
	ErrorRatioMinBars     int     `yaml:"error_ratio_min_bars" json:"error_ratio_min_bars" validate:"gte=0" jsonschema:"title=Error Ratio Min Bars,description=Bars processed before the error ratio is enforced mid-run,minimum=0"`
	PeriodsPerYear        int     `yaml:"periods_per_year" json:"periods_per_year" validate:"gte=0" jsonschema:"title=Periods Per Year,description=Bars per year used to annualize and 0 means 252,minimum=0"`
	MinBars               int     `yaml:"min_bars" json:"min_bars" validate:"gte=0" jsonschema:"title=Minimum Bars,description=Raise the required bar count above the strategy lookback,minimum=0"`
	HistoryWindow         int     `yaml:"history_window" json:"history_window" validate:"gte=0" jsonschema:"title=History Window,description=Bars visible to the strategy with 0 meaning the longest lookback plus a warm-up margin,minimum=0"`
}

const (
	DefaultMaxStrategyErrorRatio = 0.1
	DefaultErrorRatioMinBars     = 10
	DefaultPeriodsPerYear        = 252
)

// DefaultBacktestConfig returns a config with every tunable at its default.
// Identity, range and capital still have to be filled in.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		ProductType:           ProductTypeSpot,
		FeeRate:               decimal.Zero,
		InitialCapital:        decimal.Zero,
		MaxStrategyErrorRatio: DefaultMaxStrategyErrorRatio,
		ErrorRatioMinBars:     DefaultErrorRatioMinBars,
		PeriodsPerYear:        DefaultPeriodsPerYear,
	}
}

// UnmarshalYAML fills keys missing from the document with their defaults.
func (c *BacktestConfig) UnmarshalYAML(value *yaml.Node) error {
	type plain BacktestConfig

	config := plain(DefaultBacktestConfig())
	if err := value.Decode(&config); err != nil {
		return err
	}

	*c = BacktestConfig(config)

	return nil
}

// WithDefaults returns a copy of c with every zero tunable set to its default.
// Configs built in code or decoded from JSON go through here before Validate.
func (c BacktestConfig) WithDefaults() BacktestConfig {
	if c.ProductType == "" {
		c.ProductType = ProductTypeSpot
	}

	if c.MaxStrategyErrorRatio == 0 {
		c.MaxStrategyErrorRatio = DefaultMaxStrategyErrorRatio
	}

	if c.ErrorRatioMinBars == 0 {
		c.ErrorRatioMinBars = DefaultErrorRatioMinBars
	}

	if c.PeriodsPerYear == 0 {
		c.PeriodsPerYear = DefaultPeriodsPerYear
	}

	return c
}

// Validate checks struct rules and the cross-field invariants.
func (c BacktestConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if !c.Start.Before(c.End) {
		return fmt.Errorf("start %s must be before end %s", c.Start.Format(time.RFC3339), c.End.Format(time.RFC3339))
	}

	if !c.InitialCapital.IsPositive() {
		return fmt.Errorf("initial capital must be positive, got %s", c.InitialCapital.String())
	}

	if c.FeeRate.IsNegative() || c.FeeRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("fee rate must be in [0, 1), got %s", c.FeeRate.String())
	}

	return nil
}

// ParseBacktestConfig decodes a YAML document into a config.
func ParseBacktestConfig(data []byte) (BacktestConfig, error) {
	var config BacktestConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return BacktestConfig{}, fmt.Errorf("failed to parse backtest config: %w", err)
	}

	return config, nil
}

// LoadBacktestConfig reads and decodes a YAML config file.
func LoadBacktestConfig(path string) (BacktestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BacktestConfig{}, fmt.Errorf("failed to read backtest config %s: %w", path, err)
	}

	return ParseBacktestConfig(data)
}

// GenerateSchema generates a JSON schema for BacktestConfig.
func (c *BacktestConfig) GenerateSchema() (*jsonschema.Schema, error) {
	decimalType := reflect.TypeOf(decimal.Decimal{})

	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case decimalType:
				return &jsonschema.Schema{
					OneOf: []*jsonschema.Schema{
						{Type: "number"},
						{Type: "string", Pattern: `^-?[0-9]+(\.[0-9]+)?$`},
					},
				}
			case reflect.TypeOf(Timeframe("")):
				return &jsonschema.Schema{Type: "string", Enum: AllTimeframes}
			case reflect.TypeOf(StrategyType("")):
				return &jsonschema.Schema{Type: "string", Enum: AllStrategyTypes}
			case reflect.TypeOf(ProductType("")):
				return &jsonschema.Schema{Type: "string", Enum: []any{string(ProductTypeSpot), string(ProductTypeMargin), string(ProductTypeFutures)}}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for a single backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates the JSON schema as an indented string.
func (c *BacktestConfig) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
