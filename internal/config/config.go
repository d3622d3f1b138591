package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
)

type Config struct {
	RPCURL string `yaml:"rpc_url"`
	// hex private key of the executing account, empty for dry runs
	ExecutorKey string `yaml:"-"`
	ChainID     int64  `yaml:"chain_id"`
	DBPath      string `yaml:"db_path"`
	MetricsAddr string `yaml:"metrics_addr"`

	Engine arbitrage.EngineConfig `yaml:"engine"`

	Execution struct {
		GasLimit     uint64 `yaml:"gas_limit"`
		GasPriceGwei uint64 `yaml:"gas_price_gwei"`
	} `yaml:"execution"`

	Cache struct {
		Snapshots int `yaml:"snapshots"`
	} `yaml:"cache"`
}

func Default() *Config {
	c := &Config{
		ChainID: 1,
		DBPath:  "data/attempts.db",
		Engine:  arbitrage.DefaultEngineConfig(),
	}
	c.Execution.GasLimit = 200000
	c.Execution.GasPriceGwei = 30
	c.Cache.Snapshots = 1024
	return c
}

// Load reads .env (if present), then the yaml file (if path is set), then env overrides
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	c := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, c); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("RPC_URL"); v != "" {
		c.RPCURL = v
	}
	if v := os.Getenv("EXECUTOR_KEY"); v != "" {
		c.ExecutorKey = v
	}
	if v := os.Getenv("ARB_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := os.Getenv("CHAIN_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("CHAIN_ID: %w", err)
		}
		c.ChainID = id
	}
	return nil
}

func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.ChainID <= 0 {
		return fmt.Errorf("chain_id must be positive")
	}
	if c.Cache.Snapshots <= 0 {
		return fmt.Errorf("cache.snapshots must be positive")
	}
	return nil
}
