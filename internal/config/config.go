// Package config loads the swap engine configuration from YAML, with a
// built-in default chain set when no file is present. The chain list feeds
// the registry once at boot and is never reloaded.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/OpenBridge-Network/swap_engine/internal/chains"
)

// Config is the full engine configuration.
type Config struct {
	Server    ServerConfig             `yaml:"server"`
	Transport TransportConfig          `yaml:"transport"`
	Retry     RetryConfig              `yaml:"retry"`
	Logging   LoggingConfig            `yaml:"logging"`
	Chains    []chains.ChainDescriptor `yaml:"chains"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port           int `yaml:"port"`
	ReadTimeoutS   int `yaml:"readTimeoutSeconds"`
	WriteTimeoutS  int `yaml:"writeTimeoutSeconds"`
	IdleTimeoutS   int `yaml:"idleTimeoutSeconds"`
	ShutdownGraceS int `yaml:"shutdownGraceSeconds"`
}

// TransportConfig holds the bridging backend settings.
type TransportConfig struct {
	BaseURL   string  `yaml:"baseUrl"`
	APIKey    string  `yaml:"apiKey"`
	TimeoutMs int64   `yaml:"timeoutMs"`
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`
}

// RetryConfig holds the engine-wide retry defaults. Per-chain timeout
// settings in the chain list override these.
type RetryConfig struct {
	MaxRetries  int   `yaml:"maxRetries"`
	BaseDelayMs int64 `yaml:"baseDelayMs"`
	MaxDelayMs  int64 `yaml:"maxDelayMs"`
	TimeoutMs   int64 `yaml:"timeoutMs"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// LoadFromPath loads and validates configuration from a YAML file.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	if len(cfg.Chains) == 0 {
		return nil, fmt.Errorf("config %s: at least one chain is required", path)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from path, falling back to the
// built-in defaults when the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return LoadFromPath(path)
		}
	}
	cfg := Default()
	return cfg, nil
}

// ApplyEnv overrides settings from the environment: PORT and
// TRANSPORT_BASE_URL / TRANSPORT_API_KEY.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("TRANSPORT_BASE_URL"); v != "" {
		c.Transport.BaseURL = v
	}
	if v := os.Getenv("TRANSPORT_API_KEY"); v != "" {
		c.Transport.APIKey = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeoutS == 0 {
		c.Server.ReadTimeoutS = 15
	}
	if c.Server.WriteTimeoutS == 0 {
		c.Server.WriteTimeoutS = 15
	}
	if c.Server.IdleTimeoutS == 0 {
		c.Server.IdleTimeoutS = 60
	}
	if c.Server.ShutdownGraceS == 0 {
		c.Server.ShutdownGraceS = 10
	}
	if c.Transport.TimeoutMs == 0 {
		c.Transport.TimeoutMs = 30_000
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = 3
	}
	if c.Retry.BaseDelayMs == 0 {
		c.Retry.BaseDelayMs = 1_000
	}
	if c.Retry.MaxDelayMs == 0 {
		c.Retry.MaxDelayMs = 30_000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Default returns the built-in configuration with the default mainnet
// chain set. Chain id 0 (Bitcoin) is a valid identifier here, not a
// sentinel.
func Default() *Config {
	cfg := &Config{
		Transport: TransportConfig{
			BaseURL:   "https://bridge.openbridge.network",
			RateLimit: 10,
			Burst:     5,
		},
		Chains: DefaultChains(),
	}
	cfg.applyDefaults()
	return cfg
}

// DefaultChains returns the built-in chain descriptors.
func DefaultChains() []chains.ChainDescriptor {
	return []chains.ChainDescriptor{
		{
			ChainID:               1,
			Name:                  "Ethereum",
			ChainType:             chains.ChainTypeEVM,
			NativeCurrency:        "ETH",
			BlockTimeSeconds:      12,
			ConfirmationsRequired: 12,
			GasDefaults: chains.GasDefaults{
				GasPrice:     "30000000000",
				MaxFeePerGas: "60000000000",
			},
			FeatureFlags: map[string]bool{
				"directSwap":     true,
				"referralSystem": true,
				"whitelist":      true,
			},
			MinimumAmounts: map[chains.Operation]string{
				chains.OpSwap:           "0.001",
				chains.OpCrossChainSwap: "0.01",
			},
			ExplorerURLTemplate: "https://etherscan.io/tx/{txHash}",
			TimeoutSettings:     chains.TimeoutSettings{MaxRetries: 3, BaseDelayMs: 1_000, MaxDelayMs: 30_000},
		},
		{
			ChainID:               56,
			Name:                  "BNB Smart Chain",
			ChainType:             chains.ChainTypeEVM,
			NativeCurrency:        "BNB",
			BlockTimeSeconds:      3,
			ConfirmationsRequired: 15,
			GasDefaults: chains.GasDefaults{
				GasPrice: "3000000000",
			},
			FeatureFlags: map[string]bool{
				"directSwap":     true,
				"referralSystem": true,
			},
			MinimumAmounts: map[chains.Operation]string{
				chains.OpSwap:           "0.01",
				chains.OpCrossChainSwap: "0.05",
			},
			ExplorerURLTemplate: "https://bscscan.com/tx/{txHash}",
			TimeoutSettings:     chains.TimeoutSettings{MaxRetries: 3, BaseDelayMs: 500, MaxDelayMs: 15_000},
		},
		{
			ChainID:               137,
			Name:                  "Polygon",
			ChainType:             chains.ChainTypeEVM,
			NativeCurrency:        "POL",
			BlockTimeSeconds:      2,
			ConfirmationsRequired: 30,
			GasDefaults: chains.GasDefaults{
				GasPrice: "50000000000",
			},
			FeatureFlags: map[string]bool{
				"directSwap": true,
			},
			MinimumAmounts: map[chains.Operation]string{
				chains.OpSwap:           "1",
				chains.OpCrossChainSwap: "5",
			},
			ExplorerURLTemplate: "https://polygonscan.com/tx/{txHash}",
			TimeoutSettings:     chains.TimeoutSettings{MaxRetries: 4, BaseDelayMs: 500, MaxDelayMs: 15_000},
		},
		{
			ChainID:               0,
			Name:                  "Bitcoin",
			ChainType:             chains.ChainTypeBitcoin,
			NativeCurrency:        "BTC",
			BlockTimeSeconds:      600,
			ConfirmationsRequired: 3,
			FeatureFlags: map[string]bool{
				"layerSwap": true,
			},
			MinimumAmounts: map[chains.Operation]string{
				chains.OpCrossChainSwap: "0.0005",
			},
			ExplorerURLTemplate: "https://mempool.space/tx/{txHash}",
			TimeoutSettings:     chains.TimeoutSettings{MaxRetries: 5, BaseDelayMs: 2_000, MaxDelayMs: 60_000},
		},
		{
			ChainID:               501,
			Name:                  "Solana",
			ChainType:             chains.ChainTypeSolana,
			NativeCurrency:        "SOL",
			BlockTimeSeconds:      0.4,
			ConfirmationsRequired: 32,
			FeatureFlags: map[string]bool{
				"layerSwap": true,
			},
			MinimumAmounts: map[chains.Operation]string{
				chains.OpCrossChainSwap: "0.01",
			},
			ExplorerURLTemplate: "https://solscan.io/tx/{txHash}",
			TimeoutSettings:     chains.TimeoutSettings{MaxRetries: 4, BaseDelayMs: 500, MaxDelayMs: 10_000},
		},
		{
			ChainID:               195,
			Name:                  "Tron",
			ChainType:             chains.ChainTypeTron,
			NativeCurrency:        "TRX",
			BlockTimeSeconds:      3,
			ConfirmationsRequired: 19,
			MinimumAmounts: map[chains.Operation]string{
				chains.OpCrossChainSwap: "10",
			},
			ExplorerURLTemplate: "https://tronscan.org/#/transaction/{txHash}",
			TimeoutSettings:     chains.TimeoutSettings{MaxRetries: 3, BaseDelayMs: 1_000, MaxDelayMs: 20_000},
		},
	}
}
