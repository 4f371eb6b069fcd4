package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type AppConfig struct {
	ServiceName string     `mapstructure:"service_name"`
	Env         string     `mapstructure:"env"`
	LogLevel    string     `mapstructure:"log_level"`
	MetricsPath string     `mapstructure:"metrics_path"`
	HTTP        HTTPConfig `mapstructure:"http"`
}

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

type AuthConfig struct {
	JWTSecret  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type PricingConfig struct {
	CacheTTL     time.Duration
	QuoteBaseURL string
	VsCurrency   string
}

type ChainConfig struct {
	Name             string
	EtherscanBaseURL string
	EtherscanAPIKey  string
	RPCURL           string
	ContractAddress  string
	MinConfirmations int
	ConfirmWait      time.Duration
	ConfirmPoll      time.Duration
}

type WorkersConfig struct {
	PriceInterval      time.Duration
	ChainInterval      time.Duration
	WithdrawalInterval time.Duration
}

type KafkaTopics struct {
	TradesExecuted       string
	WithdrawalsCompleted string
	WithdrawalsFailed    string
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topics  KafkaTopics
}

type Config struct {
	App     AppConfig
	DB      DBConfig
	Auth    AuthConfig
	Pricing PricingConfig
	Chain   ChainConfig
	Workers WorkersConfig
	Kafka   KafkaConfig
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("COINHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	path := os.Getenv("COINHUB_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var app AppConfig
	if err := v.Unmarshal(&app); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg := &Config{
		App: app,
		DB: DBConfig{
			Host:     envString("POSTGRES_HOST", "localhost"),
			Port:     envInt("POSTGRES_PORT", 5432),
			Name:     envString("POSTGRES_DB", "coinhub"),
			User:     envString("POSTGRES_USER", "coinhub"),
			Password: envString("POSTGRES_PASSWORD", "coinhub"),
			SSLMode:  envString("POSTGRES_SSLMODE", "disable"),
		},
		Auth: AuthConfig{
			JWTSecret:  envString("COINHUB_JWT_SECRET", v.GetString("auth.jwt_secret")),
			AccessTTL:  envDuration("COINHUB_ACCESS_TTL", v.GetDuration("auth.access_ttl")),
			RefreshTTL: envDuration("COINHUB_REFRESH_TTL", v.GetDuration("auth.refresh_ttl")),
		},
		Pricing: PricingConfig{
			CacheTTL:     envDuration("COINHUB_PRICE_CACHE_TTL", v.GetDuration("pricing.cache_ttl")),
			QuoteBaseURL: envString("COINHUB_QUOTE_BASE_URL", v.GetString("pricing.quote_base_url")),
			VsCurrency:   envString("COINHUB_QUOTE_VS_CURRENCY", v.GetString("pricing.vs_currency")),
		},
		Chain: ChainConfig{
			Name:             envString("COINHUB_CHAIN_NAME", v.GetString("chain.name")),
			EtherscanBaseURL: envString("ETHERSCAN_BASE_URL", v.GetString("chain.etherscan_base_url")),
			EtherscanAPIKey:  envString("ETHERSCAN_API_KEY", ""),
			RPCURL:           envString("WEB3_RPC_URL", v.GetString("chain.rpc_url")),
			ContractAddress:  envString("NFT_CONTRACT_ADDRESS", ""),
			MinConfirmations: envInt("COINHUB_MIN_CONFIRMATIONS", v.GetInt("chain.min_confirmations")),
			ConfirmWait:      envDuration("COINHUB_CONFIRM_WAIT", v.GetDuration("chain.confirm_wait")),
			ConfirmPoll:      envDuration("COINHUB_CONFIRM_POLL", v.GetDuration("chain.confirm_poll")),
		},
		Workers: WorkersConfig{
			PriceInterval:      envDuration("COINHUB_PRICE_INTERVAL", v.GetDuration("workers.price_interval")),
			ChainInterval:      envDuration("COINHUB_CHAIN_INTERVAL", v.GetDuration("workers.chain_interval")),
			WithdrawalInterval: envDuration("COINHUB_WITHDRAWAL_INTERVAL", v.GetDuration("workers.withdrawal_interval")),
		},
		Kafka: KafkaConfig{
			Enabled: envBool("COINHUB_KAFKA_ENABLED", v.GetBool("kafka.enabled")),
			Brokers: envCSV("KAFKA_BROKERS", v.GetStringSlice("kafka.brokers")),
			Topics: KafkaTopics{
				TradesExecuted:       envString("KAFKA_TRADES_TOPIC", v.GetString("kafka.topics.trades_executed")),
				WithdrawalsCompleted: envString("KAFKA_WITHDRAWALS_COMPLETED_TOPIC", v.GetString("kafka.topics.withdrawals_completed")),
				WithdrawalsFailed:    envString("KAFKA_WITHDRAWALS_FAILED_TOPIC", v.GetString("kafka.topics.withdrawals_failed")),
			},
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("COINHUB_JWT_SECRET is required")
	}
	if cfg.Auth.AccessTTL <= 0 || cfg.Auth.RefreshTTL <= 0 {
		return nil, fmt.Errorf("auth token TTLs must be positive")
	}
	if cfg.Chain.MinConfirmations <= 0 {
		return nil, fmt.Errorf("chain.min_confirmations must be positive")
	}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required when kafka is enabled")
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "coinhub")
	v.SetDefault("env", "dev")
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics_path", "/metrics")
	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", "5s")
	v.SetDefault("http.write_timeout", "10s")
	v.SetDefault("http.idle_timeout", "60s")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.access_ttl", "15m")
	v.SetDefault("auth.refresh_ttl", "168h")

	v.SetDefault("pricing.cache_ttl", "60s")
	v.SetDefault("pricing.quote_base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("pricing.vs_currency", "krw")

	v.SetDefault("chain.name", "ethereum-sepolia")
	v.SetDefault("chain.etherscan_base_url", "https://api-sepolia.etherscan.io/api")
	v.SetDefault("chain.rpc_url", "https://eth-sepolia.g.alchemy.com/v2/demo")
	v.SetDefault("chain.min_confirmations", 3)
	v.SetDefault("chain.confirm_wait", "2m")
	v.SetDefault("chain.confirm_poll", "5s")

	v.SetDefault("workers.price_interval", "60s")
	v.SetDefault("workers.chain_interval", "5m")
	v.SetDefault("workers.withdrawal_interval", "30s")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topics.trades_executed", "trades.executed")
	v.SetDefault("kafka.topics.withdrawals_completed", "nft.withdrawals.completed")
	v.SetDefault("kafka.topics.withdrawals_failed", "nft.withdrawals.failed")
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envCSV(key string, def []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return def
}
