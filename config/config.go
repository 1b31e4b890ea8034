package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "configuration.yaml"

// Config holds application configuration. Values come from environment
// variables first, then from the optional YAML file, then from defaults.
type Config struct {
	AppName  string
	Env      string // development, staging, production
	Port     string
	GinMode  string
	LogLevel string // overrides the env default when set

	// ExposingAddress is the public base URL written into confirmation links.
	ExposingAddress string
	// Lifecycle is "confirmation" or "verification".
	Lifecycle       string

	// StorageDriver is "postgres" or "memory".
	StorageDriver string

	// Database
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBMaxConns    int32
	DBMinConns    int32
	DBMaxConnLife time.Duration
	MigrationsDir string

	// Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TokenCacheTTL time.Duration

	// Rate limit per client IP on the public subscription routes
	RateLimitMax          int
	RateLimitWindow       time.Duration
	RateLimitAllowPrivate bool

	// CORS
	CORSAllowedOrigins string // comma-separated

	// Messenger: mailgun, ses, http, queue, log
	MessengerDriver string
	// MailTransport is what the email worker delivers queued jobs with:
	// mailgun, ses or http.
	MailTransport   string
	MailFrom        string

	// Mailgun
	MailgunDomain  string
	MailgunAPIKey  string
	MailgunAPIBase string

	// SES
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpoint         string // optional, e.g. localstack
	SESConfigurationSet string

	// HTTP email API
	EmailAPIURL     string
	EmailAPIToken   string
	EmailAPITimeout time.Duration

	// RabbitMQ
	RabbitMQURL             string
	RabbitMQEmailQueue      string
	RabbitMQSubscriberQueue string
	RabbitMQEventsExchange  string

	// SQS
	SQSQueueURL string

	// Elasticsearch
	ElasticsearchAddrs string // comma-separated
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESSubscribersIndex string

	// Google Cloud Storage
	GCSBucket              string
	GCSCredentialsJSONPath string // optional; if empty, Application Default Credentials are used

	// Publisher JWT; empty disables publisher authentication
	PublisherJWTSecret string
	PublisherJWTTTL    time.Duration

	// Publication pacing, messages per second; 0 disables pacing
	PublishRatePerSecond float64

	// Branding for emails
	CompanyName    string
	CompanyAddress string
	LogoURL        string
	SupportURL     string
	UnsubscribeURL string

	// OpenTelemetry
	OTelEnabled     bool
	OTelEndpoint    string // empty exports to stdout
	OTelInsecure    bool
	OTelSampleRatio float64

	// Prometheus /metrics
	MetricsEnabled bool

	// HTTP access log toggle
	HTTPLogEnabled bool
}

// source resolves keys against the environment and the parsed config file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) (string, bool) {
	if v := os.Getenv(key); v != "" {
		return v, true
	}
	v, ok := s.file[key]
	return v, ok && v != ""
}

func (s source) getenv(key, def string) string {
	if v, ok := s.lookup(key); ok {
		return v
	}
	return def
}

func (s source) getbool(key string, def bool) bool {
	if v, ok := s.lookup(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func (s source) getint(key string, def int) int {
	if v, ok := s.lookup(key); ok {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func (s source) getfloat(key string, def float64) float64 {
	if v, ok := s.lookup(key); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			log.Printf("invalid float for %s: %v, using default %v", key, err, def)
			return def
		}
		return f
	}
	return def
}

func (s source) getdur(key string, def time.Duration) time.Duration {
	if v, ok := s.lookup(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

// readFile parses a YAML file into environment-style keys: nested keys are
// joined with "_" and upper-cased, so db.max_conns becomes DB_MAX_CONNS.
// A missing file yields no values.
func readFile(path string) (map[string]string, error) {
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	out := map[string]string{}
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := strings.ToUpper(k)
		if prefix != "" {
			key = prefix + "_" + key
		}
		switch x := v.(type) {
		case map[string]any:
			flatten(key, x, out)
		case []any:
			parts := make([]string, 0, len(x))
			for _, p := range x {
				parts = append(parts, fmt.Sprint(p))
			}
			out[key] = strings.Join(parts, ",")
		case nil:
		default:
			out[key] = fmt.Sprint(x)
		}
	}
}

// Load reads CONFIG_FILE (default configuration.yaml, optional) and the
// environment.
func Load() (*Config, error) {
	file, err := readFile(getenvOS("CONFIG_FILE", defaultConfigFile))
	if err != nil {
		return nil, err
	}
	return load(source{file: file}), nil
}

// MustLoad is Load for entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	return cfg
}

func getenvOS(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func load(s source) *Config {
	port := s.getenv("PORT", "8080")
	return &Config{
		AppName:  s.getenv("APP_NAME", "newsletter"),
		Env:      s.getenv("APP_ENV", "development"),
		Port:     port,
		GinMode:  s.getenv("GIN_MODE", "release"),
		LogLevel: s.getenv("LOG_LEVEL", ""),

		ExposingAddress: strings.TrimRight(s.getenv("APP_EXPOSING_ADDRESS", "http://localhost:"+port), "/"),
		Lifecycle:       s.getenv("APP_LIFECYCLE", "confirmation"),

		StorageDriver: s.getenv("STORAGE_DRIVER", "postgres"),

		DBHost:        s.getenv("DB_HOST", "localhost"),
		DBPort:        s.getenv("DB_PORT", "5432"),
		DBUser:        s.getenv("DB_USER", "postgres"),
		DBPassword:    s.getenv("DB_PASSWORD", "postgres"),
		DBName:        s.getenv("DB_NAME", "newsletter"),
		DBSSLMode:     s.getenv("DB_SSLMODE", "disable"),
		DBMaxConns:    int32(s.getint("DB_MAX_CONNS", 10)),
		DBMinConns:    int32(s.getint("DB_MIN_CONNS", 2)),
		DBMaxConnLife: s.getdur("DB_MAX_CONN_LIFETIME", time.Hour),
		MigrationsDir: s.getenv("MIGRATIONS_DIR", "db/migrations"),

		RedisAddr:     s.getenv("REDIS_ADDR", ""),
		RedisPassword: s.getenv("REDIS_PASSWORD", ""),
		RedisDB:       s.getint("REDIS_DB", 0),
		TokenCacheTTL: s.getdur("REDIS_TOKEN_CACHE_TTL", 10*time.Minute),

		RateLimitMax:          s.getint("RATE_LIMIT_MAX", 30),
		RateLimitWindow:       s.getdur("RATE_LIMIT_WINDOW", time.Minute),
		RateLimitAllowPrivate: s.getbool("RATE_LIMIT_ALLOW_PRIVATE", false),

		CORSAllowedOrigins: s.getenv("CORS_ALLOWED_ORIGINS", ""),

		MessengerDriver: s.getenv("MESSENGER_DRIVER", "log"),
		MailTransport:   s.getenv("MAIL_TRANSPORT", "mailgun"),
		MailFrom:        s.getenv("MAIL_FROM", "newsletter@localhost"),

		MailgunDomain:  s.getenv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:  s.getenv("MAILGUN_API_KEY", ""),
		MailgunAPIBase: s.getenv("MAILGUN_API_BASE", ""),

		AWSRegion:           s.getenv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      s.getenv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  s.getenv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpoint:         s.getenv("AWS_ENDPOINT", ""),
		SESConfigurationSet: s.getenv("SES_CONFIGURATION_SET", ""),

		EmailAPIURL:     s.getenv("EMAIL_API_URL", ""),
		EmailAPIToken:   s.getenv("EMAIL_API_TOKEN", ""),
		EmailAPITimeout: s.getdur("EMAIL_API_TIMEOUT", 10*time.Second),

		RabbitMQURL:             s.getenv("RABBITMQ_URL", ""),
		RabbitMQEmailQueue:      s.getenv("RABBITMQ_EMAIL_QUEUE", "newsletter.emails"),
		RabbitMQSubscriberQueue: s.getenv("RABBITMQ_SUBSCRIBER_QUEUE", "newsletter.subscribers"),
		RabbitMQEventsExchange:  s.getenv("RABBITMQ_EVENTS_EXCHANGE", ""),

		SQSQueueURL: s.getenv("SQS_QUEUE_URL", ""),

		ElasticsearchAddrs: s.getenv("ELASTICSEARCH_ADDRS", ""),
		ElasticsearchUser:  s.getenv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPass:  s.getenv("ELASTICSEARCH_PASSWORD", ""),
		ESSubscribersIndex: s.getenv("ES_SUBSCRIBERS_INDEX", "subscribers"),

		GCSBucket:              s.getenv("GCS_BUCKET", ""),
		GCSCredentialsJSONPath: s.getenv("GCS_CREDENTIALS_JSON", ""),

		PublisherJWTSecret: s.getenv("PUBLISHER_JWT_SECRET", ""),
		PublisherJWTTTL:    s.getdur("PUBLISHER_JWT_TTL", 24*time.Hour),

		PublishRatePerSecond: s.getfloat("PUBLISH_RATE_PER_SECOND", 0),

		CompanyName:    s.getenv("COMPANY_NAME", ""),
		CompanyAddress: s.getenv("COMPANY_ADDRESS", ""),
		LogoURL:        s.getenv("LOGO_URL", ""),
		SupportURL:     s.getenv("SUPPORT_URL", ""),
		UnsubscribeURL: s.getenv("UNSUBSCRIBE_URL", ""),

		OTelEnabled:     s.getbool("OTEL_ENABLED", false),
		OTelEndpoint:    s.getenv("OTEL_ENDPOINT", ""),
		OTelInsecure:    s.getbool("OTEL_INSECURE", false),
		OTelSampleRatio: s.getfloat("OTEL_SAMPLE_RATIO", 1),

		MetricsEnabled: s.getbool("METRICS_ENABLED", true),

		HTTPLogEnabled: s.getbool("HTTP_LOG_ENABLED", false),
	}
}

// PostgresDSN returns a DSN compatible with pgx
func (c *Config) PostgresDSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string { return splitList(c.CORSAllowedOrigins) }

// ESAddrs returns Elasticsearch addresses as a slice
func (c *Config) ESAddrs() []string { return splitList(c.ElasticsearchAddrs) }

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
