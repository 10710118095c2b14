package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// AdminToken guards the manual reconcile endpoint. Empty disables the endpoint.
	AdminToken string `mapstructure:"admin_token"`
	// IPRateLimit is the per-minute request budget per client IP on public payment routes.
	// Zero disables the limiter. Requires redis.
	IPRateLimit int `mapstructure:"ip_rate_limit"`
	// AllowedOrigins lists browser origins allowed to call the API. "*" allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	// Driver is either "mysql" or "sqlite".
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SQLitePath      string `mapstructure:"sqlite_path"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
	ConnectRetries  uint64 `mapstructure:"connect_retries"`
}

func (d *DatabaseConfig) GetDSN() string {
	if d.IsSQLite() {
		return d.SQLitePath
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

func (d *DatabaseConfig) IsSQLite() bool {
	return d.Driver == "sqlite"
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// BSCConfig configures the BSC (EVM) chain adapter.
type BSCConfig struct {
	RPCURL                string `mapstructure:"rpc_url"`
	USDTContract          string `mapstructure:"usdt_contract"`
	DepositAddress        string `mapstructure:"deposit_address"`
	RequiredConfirmations int    `mapstructure:"required_confirmations"`
	ExplorerTxURL         string `mapstructure:"explorer_tx_url"`
}

// TronConfig configures the TronGrid chain adapter.
type TronConfig struct {
	APIURL                string `mapstructure:"api_url"`
	APIKey                string `mapstructure:"api_key"`
	USDTContract          string `mapstructure:"usdt_contract"`
	DepositAddress        string `mapstructure:"deposit_address"`
	RequiredConfirmations int    `mapstructure:"required_confirmations"`
	ExplorerTxURL         string `mapstructure:"explorer_tx_url"`
}

type ChainsConfig struct {
	BSC            BSCConfig     `mapstructure:"bsc"`
	Tron           TronConfig    `mapstructure:"tron"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// RequestsPerSecond and Burst bound outbound calls per network within one process.
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
	// SharedLimitPerMinute bounds outbound calls per network across all replicas (redis).
	// Zero disables the shared budget.
	SharedLimitPerMinute int `mapstructure:"shared_limit_per_minute"`
}

type VotingConfig struct {
	// VoteUnitPrice is a decimal string, USD per vote.
	VoteUnitPrice   string `mapstructure:"vote_unit_price"`
	AmountTolerance string `mapstructure:"amount_tolerance"`
}

type SweeperConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
	// BatchSize is the listing page size; a pass still covers every pending row.
	BatchSize int           `mapstructure:"batch_size"`
	Workers   int           `mapstructure:"workers"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
}
