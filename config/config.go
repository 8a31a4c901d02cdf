package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"bank-webhook-gateway/internal/model"
)

// Config holds all service configuration.
type Config struct {
	// Environment
	Environment EnvironmentConfig

	// Server
	HTTPServer HTTPServerConfig
	Logger     LoggerConfig

	// Banking provider
	Finbank FinbankConfig

	// Webhook subscription and dispatch
	Webhook WebhookConfig
}

type EnvironmentConfig struct {
	Name string
}

type HTTPServerConfig struct {
	Port int
	Mode string
}

type LoggerConfig struct {
	Level        string
	Mode         string
	Encoding     string
	ColorEnabled bool
}

// FinbankConfig selects the provider environment and carries the OAuth
// tokens issued by the out-of-process authorization flow.
type FinbankConfig struct {
	Environment    model.Environment // production, sandbox or mock
	MockURL        string            // operator-supplied, SSRF-guarded
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt int64 // epoch seconds, 0 when unknown
}

type WebhookConfig struct {
	// Registration
	Endpoint           string // public URL finbank POSTs events to
	EventTypes         []string
	FilterPaths        []string
	ManageSubscription bool   // create at startup, refresh periodically, delete at shutdown
	ExternalID         string // pre-provisioned subscription id (when not managing)
	Secret             string // pre-provisioned signing secret (when not managing)

	// Dispatch
	OperationFilter  string // all, created or updated
	DefaultEventType string // fallback for unknown resource types; empty fails closed
	RateLimitPerMin  int
}

// Load loads configuration using Viper.
// Config file name: config.yaml — searched in ./config, ., /etc/app/
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/app/")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}

	// Environment & Server
	cfg.Environment.Name = viper.GetString("environment.name")
	cfg.HTTPServer.Port = viper.GetInt("http_server.port")
	cfg.HTTPServer.Mode = viper.GetString("http_server.mode")
	cfg.Logger.Level = viper.GetString("logger.level")
	cfg.Logger.Mode = viper.GetString("logger.mode")
	cfg.Logger.Encoding = viper.GetString("logger.encoding")
	cfg.Logger.ColorEnabled = viper.GetBool("logger.color_enabled")

	// Finbank provider
	cfg.Finbank.Environment = model.Environment(viper.GetString("finbank.environment"))
	cfg.Finbank.MockURL = viper.GetString("finbank.mock_url")
	cfg.Finbank.AccessToken = viper.GetString("finbank.access_token")
	cfg.Finbank.RefreshToken = viper.GetString("finbank.refresh_token")
	cfg.Finbank.TokenExpiresAt = viper.GetInt64("finbank.token_expires_at")
	if token := viper.GetString("finbank_access_token"); token != "" {
		cfg.Finbank.AccessToken = token
	}
	if token := viper.GetString("finbank_refresh_token"); token != "" {
		cfg.Finbank.RefreshToken = token
	}
	if mockURL := viper.GetString("finbank_mock_url"); mockURL != "" {
		cfg.Finbank.MockURL = mockURL
	}

	// Webhook subscription & dispatch
	cfg.Webhook.Endpoint = viper.GetString("webhook.endpoint")
	cfg.Webhook.EventTypes = splitList(viper.GetString("webhook.event_types"))
	cfg.Webhook.FilterPaths = splitList(viper.GetString("webhook.filter_paths"))
	cfg.Webhook.ManageSubscription = viper.GetBool("webhook.manage_subscription")
	cfg.Webhook.ExternalID = viper.GetString("webhook.external_id")
	cfg.Webhook.Secret = viper.GetString("webhook.secret")
	if secret := viper.GetString("finbank_webhook_secret"); secret != "" {
		cfg.Webhook.Secret = secret
	}
	cfg.Webhook.OperationFilter = viper.GetString("webhook.operation_filter")
	cfg.Webhook.DefaultEventType = viper.GetString("webhook.default_event_type")
	cfg.Webhook.RateLimitPerMin = viper.GetInt("webhook.rate_limit_per_min")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *Config) validate() error {
	switch cfg.Finbank.Environment {
	case model.EnvironmentProduction, model.EnvironmentSandbox:
	case model.EnvironmentMock:
		if cfg.Finbank.MockURL == "" {
			return fmt.Errorf("finbank.mock_url is required when finbank.environment is mock")
		}
	default:
		return fmt.Errorf("unknown finbank.environment %q", cfg.Finbank.Environment)
	}

	switch cfg.Webhook.OperationFilter {
	case "all", "created", "updated":
	default:
		return fmt.Errorf("webhook.operation_filter must be all, created or updated, got %q", cfg.Webhook.OperationFilter)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("environment.name", "development")
	viper.SetDefault("http_server.port", 8080)
	viper.SetDefault("http_server.mode", "debug")
	viper.SetDefault("logger.level", "debug")
	viper.SetDefault("logger.mode", "debug")
	viper.SetDefault("logger.encoding", "console")
	viper.SetDefault("logger.color_enabled", true)
	viper.SetDefault("finbank.environment", "sandbox")
	viper.SetDefault("webhook.operation_filter", "all")
	viper.SetDefault("webhook.default_event_type", "transaction")
	viper.SetDefault("webhook.rate_limit_per_min", 60)
	viper.SetDefault("webhook.manage_subscription", false)
}

// splitList splits comma-separated values since viper might not parse
// arrays seamlessly from env.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
