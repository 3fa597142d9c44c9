package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"content-paygate/internal/domain/model"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type JWTConfig struct {
	Secret           string        `yaml:"secret"`
	DefaultAccessTTL time.Duration `yaml:"default_access_ttl"` // used when content grants perpetual access
}

type PaymentConfig struct {
	IntentTTL      time.Duration `yaml:"intent_ttl"`      // how long an intent stays payable
	ExpiryInterval time.Duration `yaml:"expiry_interval"` // expiry worker tick
	ExpiryBatch    int           `yaml:"expiry_batch"`
}

// ChainsConfig carries one RPC endpoint per supported chain. It is passed
// explicitly into the verifier registry at startup; there is no module-level
// chain table.
type ChainsConfig struct {
	SolanaRPCURL string            `yaml:"solana_rpc_url"`
	EVMRPCURLs   map[string]string `yaml:"evm_rpc_urls"` // keyed by chain name
	RPCTimeout   time.Duration     `yaml:"rpc_timeout"`  // bound on every outbound chain call
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	JWT      JWTConfig      `yaml:"jwt"`
	Payment  PaymentConfig  `yaml:"payment"`
	Chains   ChainsConfig   `yaml:"chains"`

	Runtime RuntimeConfig `yaml:"-"`
}

// defaultEVMRPCURLs are public endpoints used when no endpoint is configured
// for a chain. Production deployments should override all of these.
var defaultEVMRPCURLs = map[string]string{
	string(model.ChainEthereum):  "https://eth.llamarpc.com",
	string(model.ChainPolygon):   "https://polygon-rpc.com",
	string(model.ChainBase):      "https://mainnet.base.org",
	string(model.ChainArbitrum):  "https://arb1.arbitrum.io/rpc",
	string(model.ChainOptimism):  "https://mainnet.optimism.io",
	string(model.ChainBNB):       "https://bsc-dataseed.binance.org",
	string(model.ChainAvalanche): "https://api.avax.network/ext/bc/C/rpc",
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.JWT.DefaultAccessTTL <= 0 {
		cfg.JWT.DefaultAccessTTL = 24 * time.Hour
	}
	if cfg.Payment.IntentTTL <= 0 {
		cfg.Payment.IntentTTL = 15 * time.Minute
	}
	if cfg.Payment.ExpiryInterval <= 0 {
		cfg.Payment.ExpiryInterval = time.Minute
	}
	if cfg.Payment.ExpiryBatch <= 0 {
		cfg.Payment.ExpiryBatch = 100
	}
	if cfg.Chains.SolanaRPCURL == "" {
		cfg.Chains.SolanaRPCURL = "https://api.mainnet-beta.solana.com"
	}
	if cfg.Chains.RPCTimeout <= 0 {
		cfg.Chains.RPCTimeout = 10 * time.Second
	}
	if cfg.Chains.EVMRPCURLs == nil {
		cfg.Chains.EVMRPCURLs = map[string]string{}
	}
	for chain, url := range defaultEVMRPCURLs {
		if cfg.Chains.EVMRPCURLs[chain] == "" {
			cfg.Chains.EVMRPCURLs[chain] = url
		}
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.JWT.Secret == "" {
		return nil, errors.New("jwt.secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
