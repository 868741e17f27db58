package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Arbitrage ArbitrageConfig
	Backtest  BacktestConfig
	Database  DatabaseConfig
	Collector CollectorConfig
	Providers map[string]ProviderConfig
	Links     []LinkConfig
}

// ArbitrageConfig defines the arbitrage calculation settings.
type ArbitrageConfig struct {
	MaxVolumePerTradeMWh float64 `mapstructure:"max_volume_per_trade_mwh"`
	MinNetSpreadEUR      float64 `mapstructure:"min_net_spread_eur"`
}

// BacktestConfig defines the backtest replay settings.
type BacktestConfig struct {
	Days         int     `mapstructure:"days"`
	MLTestSize   float64 `mapstructure:"ml_test_size"`
	ModelVersion string  `mapstructure:"model_version"`
}

// DatabaseConfig defines the database connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
}

// CollectorConfig defines the scheduled price collection settings.
// StreamURL, when set, enables the intraday websocket feed.
type CollectorConfig struct {
	Schedule  string   `mapstructure:"schedule"`
	Countries []string `mapstructure:"countries"`
	StreamURL string   `mapstructure:"stream_url"`
}

// ProviderConfig defines settings for one upstream price provider.
type ProviderConfig struct {
	BaseURL  string `mapstructure:"base_url"`
	APIToken string `mapstructure:"api_token"`
}

// LinkConfig defines one directed interconnection between bidding zones.
type LinkConfig struct {
	From             string  `mapstructure:"from"`
	To               string  `mapstructure:"to"`
	CapacityMW       float64 `mapstructure:"capacity_mw"`
	TransportCostEUR float64 `mapstructure:"transport_cost_eur"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("arbitrage.max_volume_per_trade_mwh", 100.0)
	viper.SetDefault("arbitrage.min_net_spread_eur", 3.0)
	viper.SetDefault("backtest.days", 30)
	viper.SetDefault("backtest.ml_test_size", 0.3)
	viper.SetDefault("collector.schedule", "5 * * * *")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
