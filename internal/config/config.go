// Package config assembles typed settings from compiled-in defaults, an
// optional YAML file, and environment variables, in that precedence order.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration tree for the pipeline.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	EventBus  EventBusConfig  `koanf:"eventbus"`
	Index     IndexConfig     `koanf:"index"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Dedup     DedupConfig     `koanf:"dedup"`
	Enrich    EnrichConfig    `koanf:"enrich"`
	Archive   ArchiveConfig   `koanf:"archive"`
	Rules     RulesConfig     `koanf:"rules"`
	Alerts    AlertDispatchConfig `koanf:"alerts"`
	Logging   LoggingConfig   `koanf:"logging"`
}

type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	FrontendURL string        `koanf:"frontend_url"`
}

type SecurityConfig struct {
	JWTSecretKey             string        `koanf:"jwt_secret_key"`
	AccessTokenExpireMinutes int           `koanf:"access_token_expire_minutes"`
	MaxFailedLoginAttempts   int           `koanf:"max_failed_login_attempts"`
	LockoutDurationMinutes   int           `koanf:"lockout_duration_minutes"`
	AdminUsername            string        `koanf:"admin_username"`
	AdminPasswordHash        string        `koanf:"admin_password_hash"`
	BindClientIP             bool          `koanf:"bind_client_ip"`
}

type EventBusConfig struct {
	URL             string        `koanf:"url"`
	RawLogsTopic    string        `koanf:"raw_logs_topic"`
	ConsumerGroup   string        `koanf:"consumer_group"`
	DurableName     string        `koanf:"durable_name"`
	MaxReconnects   int           `koanf:"max_reconnects"`
	ReconnectWait   time.Duration `koanf:"reconnect_wait"`
	AckWaitTimeout  time.Duration `koanf:"ack_wait_timeout"`
	MaxDeliver      int           `koanf:"max_deliver"`
	MaxAckPending   int           `koanf:"max_ack_pending"`
	FlushTimeout    time.Duration `koanf:"flush_timeout"`
}

type IndexConfig struct {
	Hosts       []string `koanf:"hosts"`
	Username    string   `koanf:"username"`
	Password    string   `koanf:"password"`
	SSLVerify   bool     `koanf:"ssl_verify"`
	IndexPrefix string   `koanf:"index_prefix"`
}

type RateLimitConfig struct {
	RedisHost            string `koanf:"redis_host"`
	RedisPort            int    `koanf:"redis_port"`
	TokenGrantPerMinute   int    `koanf:"token_grant_per_minute"`
	IngestRawPerMinute    int    `koanf:"ingest_raw_per_minute"`
	IngestTypedPerMinute  int    `koanf:"ingest_typed_per_minute"`
	BatchPerMinute        int    `koanf:"batch_per_minute"`
	DefaultUserEventLimit int    `koanf:"default_user_event_limit"`
	DefaultUserBatchLimit int    `koanf:"default_user_batch_limit"`
}

type DedupConfig struct {
	Capacity      int           `koanf:"capacity"`
	Window        time.Duration `koanf:"window"`
	SweepSchedule string        `koanf:"sweep_schedule"`
}

type EnrichConfig struct {
	MaxMindAccountID  string        `koanf:"maxmind_account_id"`
	MaxMindLicenseKey string        `koanf:"maxmind_license_key"`
	GeoIPCacheTTL     time.Duration `koanf:"geoip_cache_ttl"`
	DNSTimeout        time.Duration `koanf:"dns_timeout"`
	ThreatIntelURL    string        `koanf:"threat_intel_url"`
	ThreatIntelAPIKey string        `koanf:"threat_intel_api_key"`
	OverallDeadline   time.Duration `koanf:"overall_deadline"`
}

type ArchiveConfig struct {
	StorageType string `koanf:"storage_type"` // s3 | minio
	Bucket      string `koanf:"bucket"`
	Endpoint    string `koanf:"endpoint"`
	Region      string `koanf:"region"`
	AccessKey   string `koanf:"access_key"`
	SecretKey   string `koanf:"secret_key"`
}

type RulesConfig struct {
	RulesDir     string `koanf:"rules_dir"`
	PlaybooksDir string `koanf:"playbooks_dir"`
}

// AlertDispatchConfig configures the channels the alert dispatcher may
// route to. A channel with an empty target is treated as unconfigured and
// is skipped rather than attempted.
type AlertDispatchConfig struct {
	SMTPHost     string   `koanf:"smtp_host"`
	SMTPPort     int      `koanf:"smtp_port"`
	SMTPUsername string   `koanf:"smtp_username"`
	SMTPPassword string   `koanf:"smtp_password"`
	EmailFrom    string   `koanf:"email_from"`
	EmailTo      []string `koanf:"email_to"`

	ChatWebhookURL string `koanf:"chat_webhook_url"`
	IMWebhookURL   string `koanf:"im_webhook_url"`

	DispatchTimeout time.Duration `koanf:"dispatch_timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate rejects configurations that would put the pipeline in an unsafe
// or nonsensical state.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Archive.StorageType != "" && c.Archive.StorageType != "s3" && c.Archive.StorageType != "minio" {
		return fmt.Errorf("archive.storage_type must be s3 or minio, got %q", c.Archive.StorageType)
	}
	if c.Security.MaxFailedLoginAttempts <= 0 {
		return fmt.Errorf("security.max_failed_login_attempts must be positive")
	}
	return nil
}
