package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/siemcore/config.yaml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8088,
			Timeout:     30 * time.Second,
			FrontendURL: "http://localhost:3000",
		},
		Security: SecurityConfig{
			AccessTokenExpireMinutes: 30,
			MaxFailedLoginAttempts:   5,
			LockoutDurationMinutes:   15,
			BindClientIP:             false,
		},
		EventBus: EventBusConfig{
			URL:            "nats://127.0.0.1:4222",
			RawLogsTopic:   "raw_logs",
			ConsumerGroup:  "log_processor",
			DurableName:    "log-processor",
			MaxReconnects:  -1,
			ReconnectWait:  2 * time.Second,
			AckWaitTimeout: 30 * time.Second,
			MaxDeliver:     5,
			MaxAckPending:  1000,
			FlushTimeout:   5 * time.Second,
		},
		Index: IndexConfig{
			Hosts:       []string{"http://127.0.0.1:9200"},
			SSLVerify:   true,
			IndexPrefix: "logs",
		},
		RateLimit: RateLimitConfig{
			RedisHost:             "127.0.0.1",
			RedisPort:             6379,
			TokenGrantPerMinute:   5,
			IngestRawPerMinute:    100,
			IngestTypedPerMinute:  1000,
			BatchPerMinute:        10,
			DefaultUserEventLimit: 1000,
			DefaultUserBatchLimit: 100,
		},
		Dedup: DedupConfig{
			Capacity:      500_000,
			Window:        time.Hour,
			SweepSchedule: "*/5 * * * *",
		},
		Enrich: EnrichConfig{
			GeoIPCacheTTL:   time.Hour,
			DNSTimeout:      2 * time.Second,
			OverallDeadline: 5 * time.Second,
		},
		Archive: ArchiveConfig{
			StorageType: "s3",
			Bucket:      "siem-archive",
		},
		Rules: RulesConfig{
			RulesDir:     "./rules",
			PlaybooksDir: "./playbooks",
		},
		Alerts: AlertDispatchConfig{
			SMTPPort:        587,
			DispatchTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the Config via defaults -> file -> environment, the last
// layer always winning.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration invalid: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{"index.hosts", "alerts.email_to"}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransform maps the environment variable names named in §6 of the
// specification to koanf's dotted config paths. Unmapped variables are
// skipped so arbitrary environment noise does not leak into Config.
func envTransform(key string) string {
	key = strings.ToLower(key)

	mappings := map[string]string{
		"collector_host": "server.host",
		"collector_port": "server.port",
		"frontend_url":   "server.frontend_url",
		"http_timeout":   "server.timeout",

		"jwt_secret_key":               "security.jwt_secret_key",
		"access_token_expire_minutes":  "security.access_token_expire_minutes",
		"max_failed_login_attempts":    "security.max_failed_login_attempts",
		"lockout_duration_minutes":     "security.lockout_duration_minutes",
		"admin_username":               "security.admin_username",
		"admin_password_hash":          "security.admin_password_hash",
		"bind_client_ip":               "security.bind_client_ip",

		"kafka_bootstrap_servers": "eventbus.url",
		"raw_logs_topic":          "eventbus.raw_logs_topic",
		"nats_durable_name":       "eventbus.durable_name",
		"nats_max_reconnects":     "eventbus.max_reconnects",

		"es_hosts":        "index.hosts",
		"es_username":      "index.username",
		"es_password":      "index.password",
		"es_ssl_verify":    "index.ssl_verify",
		"es_index_prefix":  "index.index_prefix",

		"redis_host": "ratelimit.redis_host",
		"redis_port": "ratelimit.redis_port",

		"dedup_capacity":       "dedup.capacity",
		"dedup_window":         "dedup.window",
		"dedup_sweep_schedule": "dedup.sweep_schedule",

		"maxmind_account_id":   "enrich.maxmind_account_id",
		"maxmind_license_key":  "enrich.maxmind_license_key",
		"threat_intel_url":     "enrich.threat_intel_url",
		"threat_intel_api_key": "enrich.threat_intel_api_key",

		"storage_type":      "archive.storage_type",
		"archive_bucket":    "archive.bucket",
		"archive_endpoint":  "archive.endpoint",
		"archive_region":    "archive.region",
		"archive_access_key": "archive.access_key",
		"archive_secret_key": "archive.secret_key",

		"rules_dir":     "rules.rules_dir",
		"playbooks_dir": "rules.playbooks_dir",

		"smtp_host":          "alerts.smtp_host",
		"smtp_port":          "alerts.smtp_port",
		"smtp_username":      "alerts.smtp_username",
		"smtp_password":      "alerts.smtp_password",
		"alert_email_from":   "alerts.email_from",
		"alert_email_to":     "alerts.email_to",
		"chat_webhook_url":   "alerts.chat_webhook_url",
		"im_webhook_url":     "alerts.im_webhook_url",
		"alert_dispatch_timeout": "alerts.dispatch_timeout",

		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := mappings[key]; ok {
		return mapped
	}
	return ""
}
