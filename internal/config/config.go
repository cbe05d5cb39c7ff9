package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// DBConfigはDB接続の設定
type DBConfig struct {
	Driver string // postgres / sqlite
	URL    string // DATABASE_URL（あれば最優先）

	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	SQLitePath   string
	MaxOpenConns int
	MaxIdleConns int
}

// 注文まわりの設定
type OrderConfig struct {
	TaxRate          decimal.Decimal
	DeliveryFee      decimal.Decimal
	DeliveryOffset   int64 // 分
	CounterOffset    int64 // 分
	NumberPrefix     string
	NumberAttempts   int
	TransitionPolicy string // strict / permissive
}

// Configはアプリ全体の設定
type Config struct {
	Port  string // サーバーポート（8080）
	GoEnv string // dev/prod

	DB DBConfig

	JWTSecret      string        // JWT署名シークレット
	AccessTokenTTL time.Duration // アクセストークンの有効期限
	BcryptCost     int

	RequestTimeout  time.Duration // 1リクエストの上限
	ShutdownTimeout time.Duration

	RabbitMQURL    string // 空ならイベントは送らない
	EventsExchange string

	LogLevel  string
	LogFormat string

	Order OrderConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GO_ENV", "dev")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_DB", "canteen")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "canteen.db")
	v.SetDefault("DB_MAX_OPEN_CONNS", 20)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("BCRYPT_COST", 12)

	v.SetDefault("REQUEST_TIMEOUT", "10s")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("EVENTS_EXCHANGE", "canteen.orders")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ORDER_TAX_RATE", "0.05")
	v.SetDefault("ORDER_DELIVERY_FEE", "20")
	v.SetDefault("ORDER_DELIVERY_OFFSET_MINUTES", 15)
	v.SetDefault("ORDER_COUNTER_OFFSET_MINUTES", 5)
	v.SetDefault("ORDER_NUMBER_PREFIX", "ORD")
	v.SetDefault("ORDER_NUMBER_ATTEMPTS", 3)
	v.SetDefault("ORDER_TRANSITION_POLICY", "strict")
}

// Loadは .env（あれば）と環境変数から設定を読む。
// 既に設定されている環境変数は .env で上書きしない。
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViperは読み込み済みのviperから組み立てて必須チェックする。
func FromViper(v *viper.Viper) (Config, error) {
	cfg := Config{
		Port:  strings.TrimPrefix(v.GetString("PORT"), ":"),
		GoEnv: v.GetString("GO_ENV"),

		DB: DBConfig{
			Driver:       strings.ToLower(v.GetString("DB_DRIVER")),
			URL:          v.GetString("DATABASE_URL"),
			Host:         v.GetString("POSTGRES_HOST"),
			Port:         v.GetInt("POSTGRES_PORT"),
			User:         v.GetString("POSTGRES_USER"),
			Password:     v.GetString("POSTGRES_PASSWORD"),
			Name:         v.GetString("POSTGRES_DB"),
			SSLMode:      v.GetString("POSTGRES_SSLMODE"),
			SQLitePath:   v.GetString("SQLITE_PATH"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		},

		JWTSecret:      v.GetString("JWT_SECRET"),
		AccessTokenTTL: v.GetDuration("ACCESS_TOKEN_TTL"),
		BcryptCost:     v.GetInt("BCRYPT_COST"),

		RequestTimeout:  v.GetDuration("REQUEST_TIMEOUT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),

		RabbitMQURL:    v.GetString("RABBITMQ_URL"),
		EventsExchange: v.GetString("EVENTS_EXCHANGE"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFormat: v.GetString("LOG_FORMAT"),

		Order: OrderConfig{
			DeliveryOffset:   v.GetInt64("ORDER_DELIVERY_OFFSET_MINUTES"),
			CounterOffset:    v.GetInt64("ORDER_COUNTER_OFFSET_MINUTES"),
			NumberPrefix:     v.GetString("ORDER_NUMBER_PREFIX"),
			NumberAttempts:   v.GetInt("ORDER_NUMBER_ATTEMPTS"),
			TransitionPolicy: strings.ToLower(v.GetString("ORDER_TRANSITION_POLICY")),
		},
	}

	var err error
	cfg.Order.TaxRate, err = decimal.NewFromString(v.GetString("ORDER_TAX_RATE"))
	if err != nil {
		return Config{}, fmt.Errorf("ORDER_TAX_RATE must be decimal: %w", err)
	}
	cfg.Order.DeliveryFee, err = decimal.NewFromString(v.GetString("ORDER_DELIVERY_FEE"))
	if err != nil {
		return Config{}, fmt.Errorf("ORDER_DELIVERY_FEE must be decimal: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	//必須チェック
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.DB.Driver {
	case "postgres":
		if c.DB.URL == "" && c.DB.Host == "" {
			return fmt.Errorf("DATABASE_URL or POSTGRES_HOST is required")
		}
	case "sqlite":
		if c.DB.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite: %q", c.DB.Driver)
	}

	if c.Order.TaxRate.IsNegative() || c.Order.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("ORDER_TAX_RATE must be in [0, 1)")
	}
	if c.Order.DeliveryFee.IsNegative() {
		return fmt.Errorf("ORDER_DELIVERY_FEE must be >= 0")
	}
	if c.Order.DeliveryOffset < 0 || c.Order.CounterOffset < 0 {
		return fmt.Errorf("ORDER_*_OFFSET_MINUTES must be >= 0")
	}
	if c.Order.NumberPrefix == "" {
		return fmt.Errorf("ORDER_NUMBER_PREFIX is required")
	}
	if c.Order.NumberAttempts < 1 {
		return fmt.Errorf("ORDER_NUMBER_ATTEMPTS must be >= 1")
	}
	switch c.Order.TransitionPolicy {
	case "strict", "permissive":
	default:
		return fmt.Errorf("ORDER_TRANSITION_POLICY must be strict or permissive: %q", c.Order.TransitionPolicy)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be > 0")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}
