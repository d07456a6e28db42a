package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/spinwin-labs/spin-reward-service/logging"
)

// Config holds all application configuration
type Config struct {
	Environment      string                 `mapstructure:"environment"`
	Server           ServerConfig           `mapstructure:"server"`
	Redis            RedisConfig            `mapstructure:"redis"`
	Kafka            KafkaConfig            `mapstructure:"kafka"`
	JWT              JWTConfig              `mapstructure:"jwt"`
	Logging          logging.Config         `mapstructure:"logging"`
	Wheel            WheelConfig            `mapstructure:"wheel"`
	Donation         DonationConfig         `mapstructure:"donation"`
	Chain            ChainConfig            `mapstructure:"chain"`
	ExternalServices ExternalServicesConfig `mapstructure:"external_services"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	EnableCORS   bool          `mapstructure:"enable_cors"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr         string `mapstructure:"addr"`
	Username     string `mapstructure:"username"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers       []string          `mapstructure:"brokers"`
	ConsumerGroup string            `mapstructure:"consumer_group"`
	Topics        map[string]string `mapstructure:"topics"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

// WheelConfig holds wheel and quota configuration
type WheelConfig struct {
	TablePath      string `mapstructure:"table_path"`
	MaxSpinsPerDay int    `mapstructure:"max_spins_per_day"`
	ServerSeed     string `mapstructure:"server_seed"`
}

// DonationConfig holds donation configuration
type DonationConfig struct {
	MinAmount decimal.Decimal `mapstructure:"min_amount"`
	Recipient string          `mapstructure:"recipient"`
}

// ChainConfig holds chain RPC and signer configuration
type ChainConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	ChainID        int64         `mapstructure:"chain_id"`
	AssetSymbol    string        `mapstructure:"asset_symbol"`
	Decimals       int32         `mapstructure:"decimals"`
	Commitment     string        `mapstructure:"commitment"`
	ConfirmTimeout time.Duration `mapstructure:"confirm_timeout"`
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	SignerKeyHex   string        `mapstructure:"signer_key_hex"`
}

// ExternalServicesConfig holds external service configurations
type ExternalServicesConfig struct {
	PayoutService ServiceConfig `mapstructure:"payout_service"`
}

// ServiceConfig holds external service configuration
type ServiceConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Load loads configuration from YAML file using Viper
func Load(filename string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(filename)
	v.SetConfigType("yaml")

	// Enable environment variable substitution
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filename, err)
	}

	var config Config
	if err := v.Unmarshal(&config, DecodeHooks()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.setDefaults()

	return &config, nil
}

// setDefaults sets default values for missing configuration
func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Redis.PoolSize == 0 {
		c.Redis.PoolSize = 10
	}
	if c.Redis.MinIdleConns == 0 {
		c.Redis.MinIdleConns = 5
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Wheel.MaxSpinsPerDay == 0 {
		c.Wheel.MaxSpinsPerDay = 3
	}
	if c.Donation.MinAmount.IsZero() {
		c.Donation.MinAmount = decimal.NewFromFloat(0.001)
	}
	if c.Chain.Decimals == 0 {
		c.Chain.Decimals = 9
	}
	if c.Chain.Commitment == "" {
		c.Chain.Commitment = "confirmed"
	}
	if c.Chain.ConfirmTimeout == 0 {
		c.Chain.ConfirmTimeout = 60 * time.Second
	}
	if c.Chain.PollInterval == 0 {
		c.Chain.PollInterval = 2 * time.Second
	}
	if c.Chain.AssetSymbol == "" {
		c.Chain.AssetSymbol = "SOL"
	}
	if c.ExternalServices.PayoutService.Timeout == 0 {
		c.ExternalServices.PayoutService.Timeout = 10 * time.Second
	}
}

// GetAddr returns Redis address
func (c *RedisConfig) GetAddr() string {
	return c.Addr
}

// IsDevelopment returns true if environment is development
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsProduction returns true if environment is production
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}
