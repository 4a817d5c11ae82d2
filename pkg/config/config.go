package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tuncanbit/recon/pkg/logger"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Notifier  NotifierConfig  `yaml:"notifier"`
	Billing   BillingConfig   `yaml:"billing"`
	Security  SecurityConfig  `yaml:"security"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	Logger    logger.Config   `yaml:"logger"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host"`
	Port            string `yaml:"port"`
	User            string `yaml:"user"`
	DBName          string `yaml:"name"`
	Password        string `yaml:"password"`
	SSLMode         string `yaml:"ssl_mode"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime"`
}

type WebhookConfig struct {
	// SigningSecret is the shared secret the processor signs payloads with.
	SigningSecret string `yaml:"signing_secret"`
	// ProcessingTimeout bounds a single event's reconciliation after the
	// audit entry is committed.
	ProcessingTimeout time.Duration `yaml:"processing_timeout"`
	StoreTimeout      time.Duration `yaml:"store_timeout"`
}

type NotifierConfig struct {
	BaseURL          string `yaml:"base_url"`
	Timeout          int    `yaml:"timeout"`
	MaxRetries       int    `yaml:"max_retries"`
	RetryBackoffBase int    `yaml:"retry_backoff_base"`
	APIKey           string `yaml:"api_key"`
}

type BillingConfig struct {
	// TaxRate is the single-jurisdiction rate applied when deriving
	// invoice line pre-tax/tax amounts, e.g. "0.20" for 20%.
	TaxRate string `yaml:"tax_rate"`
	// FreePlanType is the plan created when a paid subscription ends.
	FreePlanType string `yaml:"free_plan_type"`
}

type SecurityConfig struct {
	// APIKey guards the trusted-test event injection route.
	APIKey string `yaml:"api_key"`
}

type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size"`
	WriteBufferSize int           `yaml:"write_buffer_size"`
	CheckOrigin     bool          `yaml:"check_origin"`
	PingPeriod      time.Duration `yaml:"ping_period"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		return nil, err
	}

	var config Config
	configData, err := os.ReadFile("./config.yaml")
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(configData, &config); err != nil {
		return nil, err
	}

	if secret := os.Getenv("WEBHOOK_SIGNING_SECRET"); secret != "" {
		config.Webhook.SigningSecret = secret
	}
	if config.Webhook.ProcessingTimeout == 0 {
		config.Webhook.ProcessingTimeout = 30 * time.Second
	}
	if config.Webhook.StoreTimeout == 0 {
		config.Webhook.StoreTimeout = 5 * time.Second
	}
	if config.Billing.FreePlanType == "" {
		config.Billing.FreePlanType = "FREE"
	}

	return &config, nil
}
