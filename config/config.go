package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds everything the server reads from the environment.
type Config struct {
	Port string `env:"PORT" envDefault:":8080"`

	MongoURI string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	MongoDB  string `env:"MONGODB_DB" envDefault:"cafe_management"`

	JwtSecret      string        `env:"JWT_SECRET" envDefault:"change-me-in-production"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"12h"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`

	CorsOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
	// TrustedProxies may report the client address in X-Forwarded-For.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	LogOutput string `env:"LOG_OUTPUT" envDefault:"stdout"` // stdout | file | both
	LogFile   string `env:"LOG_FILE" envDefault:"logs/cafehub.log"`

	UploadDir    string `env:"UPLOAD_DIR" envDefault:"static/uploads"`
	TicketSecret string `env:"TICKET_SECRET" envDefault:"change-me-ticket-secret"`

	PaymentMerchantID string `env:"PAYMENT_MERCHANT_ID"`
	PaymentRequestURL string `env:"PAYMENT_REQUEST_URL" envDefault:"https://sandbox.zarinpal.com/pg/v4/payment/request.json"`
	PaymentVerifyURL  string `env:"PAYMENT_VERIFY_URL" envDefault:"https://sandbox.zarinpal.com/pg/v4/payment/verify.json"`
	PaymentStartURL   string `env:"PAYMENT_START_URL" envDefault:"https://sandbox.zarinpal.com/pg/StartPay/"`
	PaymentMinAmount  int64  `env:"PAYMENT_MIN_AMOUNT" envDefault:"1000"`

	DefaultManagerUsername string `env:"DEFAULT_MANAGER_USERNAME" envDefault:"manager"`
	DefaultManagerPassword string `env:"DEFAULT_MANAGER_PASSWORD"`
}

// Load reads .env when present and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port != "" && cfg.Port[0] != ':' && !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	return cfg, nil
}
