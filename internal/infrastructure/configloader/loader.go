package configloader

import (
	"errors"
	"fmt"
	"os"

	"wallet_console/internal/domain/entity"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when CONFIG_PATH is not set.
const DefaultPath = "config/config.yml"

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port         string   `yaml:"port"`
	ReadTimeout  int      `yaml:"readTimeout"`
	WriteTimeout int      `yaml:"writeTimeout"`
	IdleTimeout  int      `yaml:"idleTimeout"`
	AllowOrigins []string `yaml:"allowOrigins"`
	EnablePprof  bool     `yaml:"enablePprof"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	Development bool   `yaml:"development"`
}

// ChainConfig describes the chain node used for balance queries.
type ChainConfig struct {
	Identifier            string   `yaml:"identifier"` // e.g., "sepolia"
	ChainID               uint64   `yaml:"chainID"`
	NativeSymbol          string   `yaml:"nativeSymbol"`
	RPCURL                string   `yaml:"rpcURL"`
	FallbackRPCURLs       []string `yaml:"fallbackRpcURLs"`
	ConnectTimeoutSeconds int      `yaml:"connectTimeoutSeconds"`
	RPCCallTimeoutSeconds int      `yaml:"rpcCallTimeoutSeconds"`
	RateLimit             float64  `yaml:"rateLimit"`
	BurstLimit            int      `yaml:"burstLimit"`
}

// WalletBridgeConfig describes the wallet bridge that supplies accounts and signatures.
type WalletBridgeConfig struct {
	RPCURL                 string `yaml:"rpcURL"`
	EventsURL              string `yaml:"eventsURL"`
	RequestTimeoutMillis   int64  `yaml:"requestTimeoutMillis"`
	ReconnectDelaySeconds  int    `yaml:"reconnectDelaySeconds"`
	ApprovalTimeoutSeconds int    `yaml:"approvalTimeoutSeconds"`
}

// AggregatorConfig holds configuration for the balance aggregator.
type AggregatorConfig struct {
	MaxConcurrentQueries int `yaml:"maxConcurrentQueries"`
}

// TransferLogConfig holds configuration for the in-memory transfer log.
type TransferLogConfig struct {
	TTLMinutes             int `yaml:"ttlMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server       ServerConfig           `yaml:"server"`
	Logging      LoggingConfig          `yaml:"logging"`
	Chain        ChainConfig            `yaml:"chain"`
	WalletBridge WalletBridgeConfig     `yaml:"walletBridge"`
	Aggregator   AggregatorConfig       `yaml:"aggregator"`
	TransferLog  TransferLogConfig      `yaml:"transferLog"`
	Metrics      MetricsConfig          `yaml:"metrics"`
	Assets       []entity.RegistryEntry `yaml:"assets"`
	AssetsFile   string                 `yaml:"assetsFile"`
}

// PathFromEnv returns CONFIG_PATH or the default path.
func PathFromEnv() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML configuration file from the given path and unmarshals it.
func Load(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		logrus.Errorf("Failed to load config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to load config data from %s: %w", path, err)
	}

	logrus.Info("Configuration loaded successfully.")
	return cfg, nil
}

// Parse unmarshals YAML, applies defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
		logrus.Infof("Server.Port not set, defaulting to %s", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = 15
	}
	if c.Server.WriteTimeout <= 0 {
		// Transfers wait for the user to approve in the wallet.
		c.Server.WriteTimeout = 180
	}
	if c.Server.IdleTimeout <= 0 {
		c.Server.IdleTimeout = 60
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Chain.Identifier == "" {
		c.Chain.Identifier = "sepolia"
		logrus.Infof("Chain.Identifier not set, defaulting to %s", c.Chain.Identifier)
	}
	if c.Chain.ConnectTimeoutSeconds <= 0 {
		c.Chain.ConnectTimeoutSeconds = 10
	}
	if c.Chain.RPCCallTimeoutSeconds <= 0 {
		c.Chain.RPCCallTimeoutSeconds = 10 // Default to 10 seconds if not specified or invalid
	}
	if c.Chain.RateLimit <= 0 {
		c.Chain.RateLimit = 20
		logrus.Infof("Chain.RateLimit not set, defaulting to %.0f requests/second", c.Chain.RateLimit)
	}
	if c.Chain.BurstLimit <= 0 {
		c.Chain.BurstLimit = 10
	}

	if c.WalletBridge.RequestTimeoutMillis <= 0 {
		c.WalletBridge.RequestTimeoutMillis = 10000 // 10 seconds
	}
	if c.WalletBridge.ApprovalTimeoutSeconds <= 0 {
		c.WalletBridge.ApprovalTimeoutSeconds = 120
	}
	if c.WalletBridge.ReconnectDelaySeconds <= 0 {
		c.WalletBridge.ReconnectDelaySeconds = 5
	}

	if c.Aggregator.MaxConcurrentQueries <= 0 {
		c.Aggregator.MaxConcurrentQueries = 8
	}

	if c.TransferLog.TTLMinutes <= 0 {
		c.TransferLog.TTLMinutes = 60 // 1 hour
		logrus.Infof("TransferLog.TTLMinutes not set, defaulting to %d minutes", c.TransferLog.TTLMinutes)
	}
	if c.TransferLog.CleanupIntervalMinutes <= 0 {
		c.TransferLog.CleanupIntervalMinutes = 10
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
}

// Validate checks the settings that have no sensible default.
func (c *Config) Validate() error {
	var errs []error
	if c.Chain.RPCURL == "" {
		errs = append(errs, errors.New("chain.rpcURL is required"))
	}
	if c.WalletBridge.RPCURL == "" {
		errs = append(errs, errors.New("walletBridge.rpcURL is required"))
	}
	for i, a := range c.Assets {
		if a.ContractAddress == "" {
			errs = append(errs, fmt.Errorf("assets[%d] (%s): contractAddress is required", i, a.DisplayName))
		}
	}
	if c.WalletBridge.EventsURL == "" {
		logrus.Warn("walletBridge.eventsURL is not set; account changes will not be followed.")
	}
	return errors.Join(errs...)
}
