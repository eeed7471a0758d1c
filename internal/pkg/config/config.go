package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"autosell-worker/internal/pkg/logger"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-level config
type ServerConfig struct {
	Port int `yaml:"port" validate:"gt=0,lt=65536"`
}

type LogConfig struct {
	LogLevel string `yaml:"level"`
}

// MongoDB connection config
type MongoConfig struct {
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	URI             string        `yaml:"uri" validate:"required"`
	DBName          string        `yaml:"db_name" validate:"required"`
	MaxPoolSize     uint64        `yaml:"max_pool_size"`
	MinPoolSize     uint64        `yaml:"min_pool_size"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	ConnectTimeout  time.Duration `yaml:"connect_timeout"`
}

// Redis connection config
type RedisConfig struct {
	Addr           string        `yaml:"addr" validate:"required"`
	Password       string        `yaml:"password"`
	DB             int           `yaml:"db"`
	EnableTLS      bool          `yaml:"enable_tls"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	CertContent    string        `yaml:"cert_content"`
}

// Kafka producer config. An empty Server disables event publishing.
type KafkaConfig struct {
	Server           string `yaml:"server"`
	AutosoldTopic    string `yaml:"autosold_topic"`
	SecurityProtocol string `yaml:"security_protocol"`
	SASLMechanism    string `yaml:"sasl_mechanism"`
	SASLUsername     string `yaml:"sasl_username"`
	SASLPassword     string `yaml:"sasl_password"`
	ClientID         string `yaml:"client_id"`
}

// QuoteConfig points at the DexScreener-compatible pair price API.
type QuoteConfig struct {
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	HTTPTimeout       time.Duration `yaml:"http_timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

// ChainConfig carries the RPC endpoint and vault credentials used for swaps.
type ChainConfig struct {
	RPCURL          string        `yaml:"rpc_url" validate:"required"`
	ChainID         int64         `yaml:"chain_id"`
	RouterAddress   string        `yaml:"router_address" validate:"required"`
	WETHAddress     string        `yaml:"weth_address" validate:"required"`
	VaultAddress    string        `yaml:"vault_address"`
	VaultPrivateKey string        `yaml:"vault_private_key" validate:"required"`
	GasLimit        uint64        `yaml:"gas_limit"`
	SwapTimeout     time.Duration `yaml:"swap_timeout"`
	ReceiptPoll     time.Duration `yaml:"receipt_poll"`
}

type AutosellConfig struct {
	SellThreshold        float64       `yaml:"sell_threshold" validate:"gt=0,lte=1"`
	TokensToNotLiquidate []string      `yaml:"tokens_to_not_liquidate"`
	CycleInterval        time.Duration `yaml:"cycle_interval"`
	ResyncInterval       time.Duration `yaml:"resync_interval"`
	CycleTimeout         time.Duration `yaml:"cycle_timeout"`
	PriceMaxAge          time.Duration `yaml:"price_max_age"`
	ClaimTTL             time.Duration `yaml:"claim_ttl"`
	CommitMaxElapsed     time.Duration `yaml:"commit_max_elapsed"`
}

type JobsConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	JobTimeout time.Duration `yaml:"job_timeout"`
}

type OtelConfig struct {
	ServiceName  string `yaml:"service_name"`
	CollectorURL string `yaml:"collector_url"`
}

// AppConfig is the main config struct that holds all configs
type AppConfig struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LogConfig      `yaml:"logging"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Quote    QuoteConfig    `yaml:"quote"`
	Chain    ChainConfig    `yaml:"chain"`
	Autosell AutosellConfig `yaml:"autosell"`
	Jobs     JobsConfig     `yaml:"jobs"`
	Otel     OtelConfig     `yaml:"otel"`
}

// nolint: funlen
func assignDefaultConfigValues(cfg *AppConfig) *AppConfig {

	// server config defaults
	cfg.Server.Port = GetEnvOrDefaultAsInt("PORT", orInt(cfg.Server.Port, 8080))

	// log config defaults
	cfg.Logging.LogLevel = GetEnvOrDefaultAsString("LOGGING_LEVEL", orString(cfg.Logging.LogLevel, "info"))

	// MongoDB config defaults
	cfg.Mongo.URI = GetEnvOrDefaultAsString("MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.DBName = GetEnvOrDefaultAsString("MONGO_DB_NAME", cfg.Mongo.DBName)
	cfg.Mongo.Username = GetEnvOrDefaultAsString("MONGO_USERNAME", cfg.Mongo.Username)
	cfg.Mongo.Password = GetEnvOrDefaultAsString("MONGO_PASSWORD", cfg.Mongo.Password)
	cfg.Mongo.MaxPoolSize = GetEnvOrDefaultAsUint64("MONGO_MAX_POOL_SIZE", orUint64(cfg.Mongo.MaxPoolSize, 20))
	cfg.Mongo.MinPoolSize = GetEnvOrDefaultAsUint64("MONGO_MIN_POOL_SIZE", orUint64(cfg.Mongo.MinPoolSize, 5))
	cfg.Mongo.MaxConnIdleTime = GetEnvOrDefaultAsDuration("MONGO_MAX_CONN_IDLE_TIME",
		orDuration(cfg.Mongo.MaxConnIdleTime, 30*time.Minute))
	cfg.Mongo.ConnectTimeout = GetEnvOrDefaultAsDuration("MONGO_CONNECT_TIMEOUT",
		orDuration(cfg.Mongo.ConnectTimeout, 10*time.Second))

	// Redis config defaults
	cfg.Redis.Addr = GetEnvOrDefaultAsString("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = GetEnvOrDefaultAsString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = GetEnvOrDefaultAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.EnableTLS = GetEnvOrDefaultAsBool("REDIS_ENABLE_TLS", cfg.Redis.EnableTLS)
	cfg.Redis.ConnectTimeout = GetEnvOrDefaultAsDuration("REDIS_CONNECT_TIMEOUT",
		orDuration(cfg.Redis.ConnectTimeout, 10*time.Second))
	cfg.Redis.CertContent = GetEnvOrDefaultAsString("REDIS_TLS_CERT", cfg.Redis.CertContent)

	// Kafka config defaults
	cfg.Kafka.Server = GetEnvOrDefaultAsString("KAFKA_SERVER", cfg.Kafka.Server)
	cfg.Kafka.AutosoldTopic = GetEnvOrDefaultAsString("KAFKA_AUTOSOLD_TOPIC",
		orString(cfg.Kafka.AutosoldTopic, "mortgage.autosold"))
	cfg.Kafka.SecurityProtocol = GetEnvOrDefaultAsString("KAFKA_SECURITY_PROTOCOL",
		orString(cfg.Kafka.SecurityProtocol, "PLAINTEXT"))
	cfg.Kafka.SASLMechanism = GetEnvOrDefaultAsString("KAFKA_SASL_MECHANISM", cfg.Kafka.SASLMechanism)
	cfg.Kafka.SASLUsername = GetEnvOrDefaultAsString("KAFKA_SASL_USERNAME", cfg.Kafka.SASLUsername)
	cfg.Kafka.SASLPassword = GetEnvOrDefaultAsString("KAFKA_SASL_PASSWORD", cfg.Kafka.SASLPassword)
	cfg.Kafka.ClientID = GetEnvOrDefaultAsString("KAFKA_CLIENT_ID", orString(cfg.Kafka.ClientID, "autosell-worker"))

	// Quote provider defaults
	cfg.Quote.BaseURL = GetEnvOrDefaultAsString("QUOTE_BASE_URL",
		orString(cfg.Quote.BaseURL, "https://api.dexscreener.com"))
	cfg.Quote.HTTPTimeout = GetEnvOrDefaultAsDuration("QUOTE_HTTP_TIMEOUT",
		orDuration(cfg.Quote.HTTPTimeout, 10*time.Second))
	cfg.Quote.RequestsPerMinute = GetEnvOrDefaultAsInt("QUOTE_REQUESTS_PER_MINUTE",
		orInt(cfg.Quote.RequestsPerMinute, 300))

	// Chain defaults
	cfg.Chain.RPCURL = GetEnvOrDefaultAsString("RPC_URL", cfg.Chain.RPCURL)
	cfg.Chain.ChainID = int64(GetEnvOrDefaultAsInt("CHAIN_ID", int(orInt64(cfg.Chain.ChainID, 1))))
	cfg.Chain.RouterAddress = GetEnvOrDefaultAsString("ROUTER_ADDRESS", cfg.Chain.RouterAddress)
	cfg.Chain.WETHAddress = GetEnvOrDefaultAsString("WETH_ADDRESS", cfg.Chain.WETHAddress)
	cfg.Chain.VaultAddress = GetEnvOrDefaultAsString("VAULT_ADDRESS", cfg.Chain.VaultAddress)
	cfg.Chain.VaultPrivateKey = GetEnvOrDefaultAsString("VAULT_PRIVATE_KEY", cfg.Chain.VaultPrivateKey)
	cfg.Chain.GasLimit = GetEnvOrDefaultAsUint64("SWAP_GAS_LIMIT", orUint64(cfg.Chain.GasLimit, 500000))
	cfg.Chain.SwapTimeout = GetEnvOrDefaultAsDuration("SWAP_TIMEOUT", orDuration(cfg.Chain.SwapTimeout, 3*time.Minute))
	cfg.Chain.ReceiptPoll = orDuration(cfg.Chain.ReceiptPoll, 3*time.Second)

	// Autosell defaults
	cfg.Autosell.SellThreshold = GetEnvOrDefaultAsFloat64("SELL_THRESHOLD", orFloat64(cfg.Autosell.SellThreshold, 0.8))
	if tokens := GetEnvOrDefaultAsString("TOKENS_TO_NOT_LIQUIDATE", ""); tokens != "" {
		cfg.Autosell.TokensToNotLiquidate = splitList(tokens)
	}
	cfg.Autosell.CycleInterval = GetEnvOrDefaultAsDuration("AUTOSELL_CYCLE_INTERVAL",
		orDuration(cfg.Autosell.CycleInterval, 60*time.Second))
	cfg.Autosell.ResyncInterval = GetEnvOrDefaultAsDuration("AUTOSELL_RESYNC_INTERVAL",
		orDuration(cfg.Autosell.ResyncInterval, time.Hour))
	cfg.Autosell.CycleTimeout = GetEnvOrDefaultAsDuration("AUTOSELL_CYCLE_TIMEOUT",
		orDuration(cfg.Autosell.CycleTimeout, 10*time.Minute))
	cfg.Autosell.PriceMaxAge = GetEnvOrDefaultAsDuration("AUTOSELL_PRICE_MAX_AGE",
		orDuration(cfg.Autosell.PriceMaxAge, 5*time.Minute))
	cfg.Autosell.ClaimTTL = GetEnvOrDefaultAsDuration("AUTOSELL_CLAIM_TTL",
		orDuration(cfg.Autosell.ClaimTTL, 15*time.Minute))
	cfg.Autosell.CommitMaxElapsed = GetEnvOrDefaultAsDuration("AUTOSELL_COMMIT_MAX_ELAPSED",
		orDuration(cfg.Autosell.CommitMaxElapsed, 2*time.Minute))

	cfg.Jobs.TTL = GetEnvOrDefaultAsDuration("JOB_TTL", orDuration(cfg.Jobs.TTL, 24*time.Hour))
	cfg.Jobs.JobTimeout = GetEnvOrDefaultAsDuration("JOB_TIMEOUT", orDuration(cfg.Jobs.JobTimeout, 5*time.Minute))

	cfg.Otel.ServiceName = GetEnvOrDefaultAsString("SERVICE_NAME", orString(cfg.Otel.ServiceName, "autosell-worker"))
	cfg.Otel.CollectorURL = GetEnvOrDefaultAsString("OTEL_URL", cfg.Otel.CollectorURL)

	return cfg
}

// LoadFromConfigFilePath loads and parses config file into AppConfig
func LoadFromConfigFilePath(configPath string) (*AppConfig, error) {

	// #nosec G304: configPath comes from operator-controlled env
	data, err := os.ReadFile(configPath)
	if err != nil {
		logger.Error("Failed to read config file", err, zap.String("path", configPath))
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logger.Error("Failed to unmarshal config", err)
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	defaultCfg := assignDefaultConfigValues(&cfg)

	if err := validateConfig(defaultCfg); err != nil {
		logger.Error("Config validation failed", err)
		return nil, err
	}

	logger.Info("Configuration loaded successfully", zap.String("path", configPath))

	return defaultCfg, nil
}

func validateConfig(cfg *AppConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if err := validateMongoConfig(cfg.Mongo); err != nil {
		return err
	}
	if err := validateAutosellConfig(cfg.Autosell); err != nil {
		return err
	}
	return nil
}

func validateMongoConfig(mongo MongoConfig) error {
	if mongo.MinPoolSize > mongo.MaxPoolSize {
		return fmt.Errorf(
			"mongo.min_pool_size (%d) must not exceed mongo.max_pool_size (%d)",
			mongo.MinPoolSize,
			mongo.MaxPoolSize,
		)
	}
	if mongo.MaxPoolSize > 100 {
		return fmt.Errorf("mongo.max_pool_size must be at most 100, got %d", mongo.MaxPoolSize)
	}
	return nil
}

func validateAutosellConfig(autosell AutosellConfig) error {
	if autosell.CycleInterval < time.Second {
		return fmt.Errorf("autosell.cycle_interval must be at least 1s, got %v", autosell.CycleInterval)
	}
	if autosell.ResyncInterval < autosell.CycleInterval {
		return fmt.Errorf(
			"autosell.resync_interval (%v) must not be shorter than autosell.cycle_interval (%v)",
			autosell.ResyncInterval,
			autosell.CycleInterval,
		)
	}
	if autosell.PriceMaxAge < autosell.CycleInterval {
		return fmt.Errorf(
			"autosell.price_max_age (%v) must cover at least one cycle (%v)",
			autosell.PriceMaxAge,
			autosell.CycleInterval,
		)
	}
	return nil
}

// LoadEnvFile loads .env in development and .env.production otherwise.
// A missing file is not an error; the process env still applies.
func LoadEnvFile() string {
	path := ".env.production"
	if os.Getenv("NODE_ENV") == "development" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		logger.Debug("env file not loaded", zap.String("path", path), zap.Error(err))
	}
	return path
}

// LoadFromConfig loads the env file and then the config file path.
func LoadFromConfig() (*AppConfig, error) {
	LoadEnvFile()

	configPath := GetEnvOrDefaultAsString("CONFIG_PATH", "configs/config.yaml")

	cfg, err := LoadFromConfigFilePath(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
	}

	return cfg, nil
}

// GetEnvOrDefaultAsInt returns the value of the given env variable
// as an int or the default value if not set or invalid.
func GetEnvOrDefaultAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return int(value)
}

// GetEnvOrDefaultAsString returns the value of the given env variable or the default value if not set.
func GetEnvOrDefaultAsString(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		if val != "" {
			return val
		}
	}
	return defaultVal
}

func GetEnvOrDefaultAsUint64(key string, defaultValue uint64) uint64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseUint(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvOrDefaultAsFloat64(key string, defaultValue float64) float64 {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func GetEnvOrDefaultAsBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvOrDefaultAsDuration accepts Go duration strings ("90s") or plain seconds.
func GetEnvOrDefaultAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr, exists := os.LookupEnv(key)
	if !exists || valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func orString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func orInt64(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}

func orUint64(v, def uint64) uint64 {
	if v == 0 {
		return def
	}
	return v
}

func orFloat64(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func orDuration(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}
	return v
}
