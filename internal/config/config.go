package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ContentSourceDB   = "db"
	ContentSourceFile = "file"

	ImageStoreS3   = "s3"
	ImageStoreDisk = "disk"
)

type Config struct {
	Environment string
	Host        string
	Port        int

	// site
	SiteURL        string   `toml:"site_url"`
	SiteName       string   `toml:"site_name"`
	AuthorName     string   `toml:"author_name"`
	AllowedOrigins []string `toml:"allowed_origins"`
	ContentSource  string   `toml:"content_source"`
	ContentDir     string   `toml:"content_dir"`

	// logging
	LogLevel      string `toml:"log_level"`
	LogsPath      string `toml:"logs_path"`
	LogToStdout   bool   `toml:"log_to_stdout"`
	LogFormatJSON bool   `toml:"log_format_json"`
	SentryEnabled bool   `toml:"sentry_enabled"`

	// metrics
	PrometheusMetricsHost string `toml:"prometheus_metrics_host"`
	PrometheusMetricsPort string `toml:"prometheus_metrics_port"`

	// postgres
	PostgresHost    string `toml:"postgres_host"`
	PostgresPort    string `toml:"postgres_port"`
	PostgresDBName  string `toml:"postgres_db_name"`
	PostgresUser    string `toml:"postgres_user"`
	PostgresSSLMode string `toml:"postgres_ssl_mode"`

	// redis
	RedisHost                   string `toml:"redis_host"`
	RedisPort                   string `toml:"redis_port"`
	LoginRateLimitAllowedPerMin int    `toml:"login_rate_limit_allowed_per_min"`

	// images
	ImageStore      string `toml:"image_store"`
	UploadsDir      string `toml:"uploads_dir"`
	S3Region        string `toml:"s3_region"`
	S3Bucket        string `toml:"s3_bucket"`
	S3PublicBaseURL string `toml:"s3_public_base_url"`

	// events, empty url disables publishing
	RabbitMQURL string `toml:"rabbitmq_url"`

	// mail, empty host logs reset links instead of sending them
	SMTPHost     string `toml:"smtp_host"`
	SMTPPort     int    `toml:"smtp_port"`
	SMTPUsername string `toml:"smtp_username"`
	SMTPSender   string `toml:"smtp_sender"`
}

type Toml struct {
	Development *Config
	Production  *Config
}

func (t *Toml) Get(env string) (*Config, error) {
	var cfg *Config
	switch strings.ToLower(env) {
	case "dev", "development":
		cfg = t.Development
	case "prod", "production":
		cfg = t.Production
	default:
		return nil, fmt.Errorf("unknown env: %s", env)
	}
	if cfg == nil {
		return nil, fmt.Errorf("no config section for env: %s", env)
	}
	return cfg, nil
}

func Load(env, path string) (*Config, error) {
	var t Toml
	if _, err := toml.DecodeFile(path, &t); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	cfg, err := t.Get(env)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.SiteName == "" {
		c.SiteName = "Portfolio"
	}
	if c.ContentSource == "" {
		c.ContentSource = ContentSourceDB
	}
	if c.ContentDir == "" {
		c.ContentDir = "content"
	}
	if c.ImageStore == "" {
		c.ImageStore = ImageStoreDisk
	}
	if c.UploadsDir == "" {
		c.UploadsDir = "uploads"
	}
	if c.LoginRateLimitAllowedPerMin <= 0 {
		c.LoginRateLimitAllowedPerMin = 10
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 {
		errs = append(errs, errors.New("port must be set"))
	}
	if c.SiteURL == "" {
		errs = append(errs, errors.New("site_url must be set"))
	}
	switch c.ContentSource {
	case ContentSourceDB, ContentSourceFile:
	default:
		errs = append(errs, fmt.Errorf("unknown content_source: %s", c.ContentSource))
	}
	switch c.ImageStore {
	case ImageStoreDisk:
	case ImageStoreS3:
		if c.S3Bucket == "" || c.S3PublicBaseURL == "" {
			errs = append(errs, errors.New("s3 image store needs s3_bucket and s3_public_base_url"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown image_store: %s", c.ImageStore))
	}
	return errors.Join(errs...)
}

func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Environment) {
	case "prod", "production":
		return true
	}
	return false
}

// SiteBaseURL is SiteURL without a trailing slash.
func (c *Config) SiteBaseURL() string {
	return strings.TrimSuffix(c.SiteURL, "/")
}
