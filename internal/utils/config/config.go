package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dwarvesf/payments-backend/internal/types/environments"
)

type AppConfig struct {
	Environment environments.Environment
	ApiServer   ApiServerConfig
	Postgres    DBConnection
	Chain       ChainConfig
	Vault       VaultConfig
	Billing     BillingConfig
	PriceOracle PriceOracleConfig
	Promoter    PromoterConfig
	Dispatcher  DispatcherConfig
}

type ApiServerConfig struct {
	Port            string
	AllowedOrigins  string
	AlertWebhookURL string
}

type DBConnection struct {
	Host string
	Port string
	User string
	Name string
	Pass string

	SSLMode string
}

// ChainConfig describes the finalized-transfer feed this service watches.
type ChainConfig struct {
	NodeAPIURL    string
	SS58Prefix    uint16
	TokenDecimals int
	PollInterval  time.Duration
	StartBlock    uint64
}

type VaultConfig struct {
	Addr         string
	KVSecretPath string
	Role         string
	Token        string
	KeyName      string
}

type BillingConfig struct {
	BaseURL        string
	RequestTimeout time.Duration
}

type PriceOracleConfig struct {
	FeedURL        string
	AssetID        string
	Currency       string
	RefreshPeriod  string
	MaxPriceAge    time.Duration
	RequestTimeout time.Duration
}

type PromoterConfig struct {
	Period        string
	BatchSize     int
	FiatPrecision int32
	// DustThreshold is in smallest on-chain units; deposits below it are
	// marked DUST and never credited. "0" disables the check.
	DustThreshold string
}

type DispatcherConfig struct {
	PollInterval   time.Duration
	BatchSize      int
	LeaseTimeout   time.Duration
	BackoffBase    time.Duration
	BackoffCap     time.Duration
	AlertThreshold int
}

func New() *AppConfig {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	// this will not override env variables if they already exist
	godotenv.Load(".env." + env)

	return &AppConfig{
		Environment: environments.Environment(env),
		ApiServer: ApiServerConfig{
			Port:            envVarOrDefault("API_PORT", "8080"),
			AllowedOrigins:  os.Getenv("ALLOWED_ORIGINS"),
			AlertWebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		},
		Postgres: DBConnection{
			Host:    os.Getenv("DB_HOST"),
			Port:    os.Getenv("DB_PORT"),
			User:    os.Getenv("DB_USER"),
			Name:    os.Getenv("DB_NAME"),
			Pass:    os.Getenv("DB_PASS"),
			SSLMode: os.Getenv("DB_SSL_MODE"),
		},
		Chain: ChainConfig{
			NodeAPIURL:    os.Getenv("CHAIN_NODE_API_URL"),
			SS58Prefix:    uint16(envVarAtoiOrDefault("CHAIN_SS58_PREFIX", 42)),
			TokenDecimals: envVarAtoiOrDefault("CHAIN_TOKEN_DECIMALS", 9),
			PollInterval:  envVarDurationOrDefault("CHAIN_POLL_INTERVAL", 6*time.Second),
			StartBlock:    uint64(envVarAtoiOrDefault("CHAIN_START_BLOCK", 0)),
		},
		Vault: VaultConfig{
			Addr:         os.Getenv("VAULT_ADDR"),
			KVSecretPath: os.Getenv("VAULT_KV_SECRET_PATH"),
			Role:         os.Getenv("VAULT_ROLE"),
			Token:        os.Getenv("VAULT_TOKEN"),
			KeyName:      envVarOrDefault("VAULT_ENCRYPTION_KEY_NAME", "mnemonic_encryption_key"),
		},
		Billing: BillingConfig{
			BaseURL:        os.Getenv("BILLING_BASE_URL"),
			RequestTimeout: envVarDurationOrDefault("BILLING_REQUEST_TIMEOUT", 10*time.Second),
		},
		PriceOracle: PriceOracleConfig{
			FeedURL:        os.Getenv("PRICE_FEED_URL"),
			AssetID:        envVarOrDefault("PRICE_ASSET_ID", "bittensor"),
			Currency:       envVarOrDefault("PRICE_CURRENCY", "usd"),
			RefreshPeriod:  envVarOrDefault("PRICE_REFRESH_PERIOD", "@every 1m"),
			MaxPriceAge:    envVarDurationOrDefault("PRICE_MAX_AGE", 5*time.Minute),
			RequestTimeout: envVarDurationOrDefault("PRICE_REQUEST_TIMEOUT", 10*time.Second),
		},
		Promoter: PromoterConfig{
			Period:        envVarOrDefault("PROMOTER_PERIOD", "@every 15s"),
			BatchSize:     envVarAtoiOrDefault("PROMOTER_BATCH_SIZE", 100),
			FiatPrecision: int32(envVarAtoiOrDefault("PROMOTER_FIAT_PRECISION", 6)),
			DustThreshold: envVarOrDefault("PROMOTER_DUST_THRESHOLD", "0"),
		},
		Dispatcher: DispatcherConfig{
			PollInterval:   envVarDurationOrDefault("DISPATCHER_POLL_INTERVAL", 5*time.Second),
			BatchSize:      envVarAtoiOrDefault("DISPATCHER_BATCH_SIZE", 100),
			LeaseTimeout:   envVarDurationOrDefault("DISPATCHER_LEASE_TIMEOUT", 5*time.Minute),
			BackoffBase:    envVarDurationOrDefault("DISPATCHER_BACKOFF_BASE", 2*time.Second),
			BackoffCap:     envVarDurationOrDefault("DISPATCHER_BACKOFF_CAP", 5*time.Minute),
			AlertThreshold: envVarAtoiOrDefault("DISPATCHER_ALERT_THRESHOLD", 10),
		},
	}
}

func envVarOrDefault(envName, defaultValue string) string {
	value := os.Getenv(envName)
	if value == "" {
		return defaultValue
	}
	return value
}

func envVarAtoiOrDefault(envName string, defaultValue int) int {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}

func envVarDurationOrDefault(envName string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(envName)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		panic(err)
	}

	return value
}
