package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/orris-inc/usdtvote/internal/shared/config"
)

type Config struct {
	Server   sharedConfig.ServerConfig   `mapstructure:"server"`
	Database sharedConfig.DatabaseConfig `mapstructure:"database"`
	Logger   sharedConfig.LoggerConfig   `mapstructure:"logger"`
	Redis    sharedConfig.RedisConfig    `mapstructure:"redis"`
	Chains   sharedConfig.ChainsConfig   `mapstructure:"chains"`
	Voting   sharedConfig.VotingConfig   `mapstructure:"voting"`
	Sweeper  sharedConfig.SweeperConfig  `mapstructure:"sweeper"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables.
// configPath, when set, points at an explicit config file and skips the search paths.
func Load(env, configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("USDTVOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Defaults plus environment are enough to boot in containers.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.SetConfigName("config." + env)
		if err := v.MergeInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to merge %s config: %w", env, err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.Chains.BSC.DepositAddress == "" && c.Chains.Tron.DepositAddress == "" {
		return fmt.Errorf("at least one of chains.bsc.deposit_address or chains.tron.deposit_address must be set")
	}
	if c.Chains.BSC.DepositAddress != "" && c.Chains.BSC.RPCURL == "" {
		return fmt.Errorf("chains.bsc.rpc_url is required when a BSC deposit address is configured")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.ip_rate_limit", 60)
	v.SetDefault("server.allowed_origins", []string{})

	// Database defaults
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "usdtvote")
	v.SetDefault("database.sqlite_path", "usdtvote.db")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.connect_retries", 5)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Chain defaults (mainnet USDT contracts)
	v.SetDefault("chains.bsc.rpc_url", "https://bsc-dataseed.binance.org")
	v.SetDefault("chains.bsc.deposit_address", "")
	v.SetDefault("chains.bsc.usdt_contract", "0x55d398326f99059fF775485246999027B3197955")
	v.SetDefault("chains.bsc.required_confirmations", 3)
	v.SetDefault("chains.bsc.explorer_tx_url", "https://bscscan.com/tx/")
	v.SetDefault("chains.tron.api_url", "https://api.trongrid.io")
	v.SetDefault("chains.tron.api_key", "")
	v.SetDefault("chains.tron.deposit_address", "")
	v.SetDefault("chains.tron.usdt_contract", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t")
	v.SetDefault("chains.tron.required_confirmations", 1)
	v.SetDefault("chains.tron.explorer_tx_url", "https://tronscan.org/#/transaction/")
	v.SetDefault("chains.request_timeout", "10s")
	v.SetDefault("chains.requests_per_second", 5)
	v.SetDefault("chains.burst", 5)
	v.SetDefault("chains.shared_limit_per_minute", 0)

	// Voting defaults
	v.SetDefault("voting.vote_unit_price", "1")
	v.SetDefault("voting.amount_tolerance", "0.01")

	// Sweeper defaults
	v.SetDefault("sweeper.enabled", true)
	v.SetDefault("sweeper.interval", "30s")
	v.SetDefault("sweeper.batch_size", 200)
	v.SetDefault("sweeper.workers", 4)
	v.SetDefault("sweeper.lock_ttl", "2m")
}
