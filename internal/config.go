package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	FulfillmentModeInline = "inline"
	FulfillmentModePool   = "pool"
	FulfillmentModeQueue  = "queue"
)

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Security      SecurityConfig      `mapstructure:"security" validate:"required"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Payment       PaymentConfig       `mapstructure:"payment"`
	Supplier      SupplierConfig      `mapstructure:"supplier"`
	Fulfillment   FulfillmentConfig   `mapstructure:"fulfillment"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
}

type AppConfig struct {
	Env          string `mapstructure:"env" validate:"omitempty,oneof=development staging production"`
	MerchantName string `mapstructure:"merchant_name"`
	AdminFee     int64  `mapstructure:"admin_fee" validate:"min=0"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"min=0,max=65535"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	OpenAPIPath       string        `mapstructure:"openapi_path"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source" validate:"required"`
}

// RedisConfig is optional; an empty Addr disables the catalog cache and the queue dispatcher.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db" validate:"min=0"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type SecurityConfig struct {
	JWTAccessSecret      string        `mapstructure:"jwt_access_secret" validate:"required,min=16"`
	JWTRefreshSecret     string        `mapstructure:"jwt_refresh_secret" validate:"required,min=16"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" validate:"required,min=1h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" validate:"required,min=4,max=15"`
}

type PaymentConfig struct {
	BaseURL       string        `mapstructure:"base_url" validate:"required,url"`
	APIKey        string        `mapstructure:"api_key"`
	MerchantID    string        `mapstructure:"merchant_id"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	CallbackURL   string        `mapstructure:"callback_url" validate:"omitempty,url"`
	ExpiryMinutes int           `mapstructure:"expiry_minutes" validate:"min=0"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type SupplierConfig struct {
	BaseURL   string        `mapstructure:"base_url" validate:"required,url"`
	Username  string        `mapstructure:"username"`
	APIKey    string        `mapstructure:"api_key"`
	RefPrefix string        `mapstructure:"ref_prefix"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

type FulfillmentConfig struct {
	Mode      string `mapstructure:"mode" validate:"omitempty,oneof=inline pool queue"`
	Workers   int    `mapstructure:"workers" validate:"min=0"`
	QueueSize int    `mapstructure:"queue_size" validate:"min=0"`
	MaxRetry  int    `mapstructure:"max_retry" validate:"min=0"`
}

type SchedulerConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	CatalogSyncSpec      string `mapstructure:"catalog_sync_spec"`
	PaymentSweepSpec     string `mapstructure:"payment_sweep_spec"`
	FulfillmentSweepSpec string `mapstructure:"fulfillment_sweep_spec"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// ----------------- DEFAULTS -----------------

// ApplyDefaults fills zero values that have a sensible fallback.
func (c *Config) ApplyDefaults() {
	if c.App.Env == "" {
		c.App.Env = EnvDevelopment
	}
	if c.App.MerchantName == "" {
		c.App.MerchantName = "Vexa Cell"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.OpenAPIPath == "" {
		c.Server.OpenAPIPath = "./api/openapi.yml"
	}
	if c.Redis.CacheTTL == 0 {
		c.Redis.CacheTTL = 5 * time.Minute
	}
	if c.Payment.ExpiryMinutes == 0 {
		c.Payment.ExpiryMinutes = 30
	}
	if c.Payment.Timeout == 0 {
		c.Payment.Timeout = 30 * time.Second
	}
	if c.Supplier.RefPrefix == "" {
		c.Supplier.RefPrefix = "VXC"
	}
	if c.Supplier.Timeout == 0 {
		c.Supplier.Timeout = 30 * time.Second
	}
	if c.Fulfillment.Mode == "" {
		c.Fulfillment.Mode = FulfillmentModeInline
	}
	if c.Fulfillment.Workers == 0 {
		c.Fulfillment.Workers = 4
	}
	if c.Fulfillment.QueueSize == 0 {
		c.Fulfillment.QueueSize = 100
	}
	if c.Fulfillment.MaxRetry == 0 {
		c.Fulfillment.MaxRetry = 5
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
	if c.Observability.Logging.Format == "" {
		c.Observability.Logging.Format = "text"
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Env == EnvProduction
}

// ----------------- ENV LOADING -----------------

func LoadConfigFromEnv() *Config {
	cfg := &Config{
		App: AppConfig{
			Env:          getEnv("APP_ENV", EnvProduction),
			MerchantName: getEnv("MERCHANT_NAME", ""),
			AdminFee:     int64(getEnvAsInt("ADMIN_FEE", 0)),
		},
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			OpenAPIPath:       getEnv("OPENAPI_PATH", ""),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			CacheTTL: getEnvAsDuration("REDIS_CACHE_TTL", 5*time.Minute),
		},
		Security: SecurityConfig{
			JWTAccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
			JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 12),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
		Payment: PaymentConfig{
			BaseURL:       getEnv("PAKASIR_BASE_URL", ""),
			APIKey:        getEnv("PAKASIR_API_KEY", ""),
			MerchantID:    getEnv("PAKASIR_MERCHANT_ID", ""),
			WebhookSecret: getEnv("PAKASIR_WEBHOOK_SECRET", ""),
			CallbackURL:   getEnv("PAKASIR_CALLBACK_URL", ""),
			ExpiryMinutes: getEnvAsInt("PAKASIR_EXPIRY_MINUTES", 30),
			Timeout:       getEnvAsDuration("PAKASIR_TIMEOUT", 30*time.Second),
		},
		Supplier: SupplierConfig{
			BaseURL:   getEnv("DIGIFLAZZ_BASE_URL", ""),
			Username:  getEnv("DIGIFLAZZ_USERNAME", ""),
			APIKey:    getEnv("DIGIFLAZZ_API_KEY", ""),
			RefPrefix: getEnv("DIGIFLAZZ_REF_PREFIX", ""),
			Timeout:   getEnvAsDuration("DIGIFLAZZ_TIMEOUT", 30*time.Second),
		},
		Fulfillment: FulfillmentConfig{
			Mode:      getEnv("FULFILLMENT_MODE", FulfillmentModeInline),
			Workers:   getEnvAsInt("FULFILLMENT_WORKERS", 4),
			QueueSize: getEnvAsInt("FULFILLMENT_QUEUE_SIZE", 100),
			MaxRetry:  getEnvAsInt("FULFILLMENT_MAX_RETRY", 5),
		},
		Scheduler: SchedulerConfig{
			Enabled:              getEnv("SCHEDULER_ENABLED", "false") == "true",
			CatalogSyncSpec:      getEnv("SCHEDULER_CATALOG_SYNC_SPEC", "0 */6 * * *"),
			PaymentSweepSpec:     getEnv("SCHEDULER_PAYMENT_SWEEP_SPEC", "*/5 * * * *"),
			FulfillmentSweepSpec: getEnv("SCHEDULER_FULFILLMENT_SWEEP_SPEC", "*/2 * * * *"),
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				errs = append(errs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			errs = append(errs, err.Error())
		}
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if c.IsProduction() && c.Payment.WebhookSecret == "" {
		errs = append(errs, "payment config: webhook_secret is required in production")
	}

	if c.Fulfillment.Mode == FulfillmentModeQueue && c.Redis.Addr == "" {
		errs = append(errs, "fulfillment config: queue mode requires redis.addr")
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}
