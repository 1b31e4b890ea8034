// Package container builds every component the entrypoints need from config.
package container

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"golang.org/x/time/rate"

	"github.com/oksasatya/newsletter/config"
	"github.com/oksasatya/newsletter/internal/application"
	"github.com/oksasatya/newsletter/internal/domain/subscriber"
	"github.com/oksasatya/newsletter/internal/domain/subscriptiontoken"
	"github.com/oksasatya/newsletter/internal/infrastructure/archive"
	"github.com/oksasatya/newsletter/internal/infrastructure/cache"
	"github.com/oksasatya/newsletter/internal/infrastructure/events"
	"github.com/oksasatya/newsletter/internal/infrastructure/memory"
	"github.com/oksasatya/newsletter/internal/infrastructure/messenger"
	"github.com/oksasatya/newsletter/internal/infrastructure/postgres"
	"github.com/oksasatya/newsletter/internal/metrics"
	"github.com/oksasatya/newsletter/pkg/helpers"
	"github.com/oksasatya/newsletter/pkg/mailer"
	mailtpl "github.com/oksasatya/newsletter/pkg/mailer/templates"
	"github.com/oksasatya/newsletter/pkg/sanitize"
)

// Storage drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Messenger drivers. mailgun, ses and http deliver inline; queue hands the
// message to the email worker; log only records it.
const (
	MessengerMailgun = "mailgun"
	MessengerSES     = "ses"
	MessengerHTTP    = "http"
	MessengerQueue   = "queue"
	MessengerLog     = "log"
)

// Container holds the constructed components. Optional integrations stay
// nil when they are not configured.
type Container struct {
	Config   *config.Config
	Logger   *logrus.Logger
	Registry *prometheus.Registry // nil when metrics are disabled
	Metrics  metrics.Recorder

	Pool  *pgxpool.Pool
	Redis *redis.Client
	ES    *elasticsearch.Client
	GCS   *storage.Client

	SubscriberRepo subscriber.Repository
	TokenRepo      subscriptiontoken.Repository
	Messenger      subscriber.Messenger
	Events         subscriber.EventPublisher
	Search         *events.ElasticsearchProjection

	Subscribers      *subscriber.CommandExecutor
	SubscriberReader *subscriber.QueryReader
	Tokens           *subscriptiontoken.CommandExecutor
	TokenReader      *subscriptiontoken.QueryReader

	Subscriptions *application.SubscriptionService
	Publications  *application.PublicationService
	JWT           *helpers.JWTManager

	aws     *aws.Config
	closers []func()
}

// Build wires the whole application. On error everything opened so far is
// closed again.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Metrics: metrics.Nop{}}
	if cfg.MetricsEnabled {
		c.Registry = prometheus.NewRegistry()
		c.Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		c.Metrics = metrics.NewCollector(c.Registry)
	}

	steps := []func(context.Context) error{
		c.buildStorage,
		c.buildCache,
		c.buildMessenger,
		c.buildEvents,
		c.buildDomain,
		c.buildPublication,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	if cfg.PublisherJWTSecret != "" {
		c.JWT = helpers.NewJWTManager(cfg.PublisherJWTSecret, cfg.PublisherJWTTTL, cfg.AppName)
	}
	return c, nil
}

// Close releases connections in reverse order of creation.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func (c *Container) onClose(fn func()) { c.closers = append(c.closers, fn) }

func (c *Container) buildStorage(ctx context.Context) error {
	switch strings.ToLower(c.Config.StorageDriver) {
	case DriverMemory:
		c.SubscriberRepo = memory.NewSubscriberRepository()
		c.TokenRepo = memory.NewSubscriptionTokenRepository()
	case DriverPostgres, "":
		cfg := c.Config
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		c.Pool = pool
		c.onClose(pool.Close)
		c.SubscriberRepo = postgres.NewSubscriberRepository(pool)
		c.TokenRepo = postgres.NewSubscriptionTokenRepository(pool)
	default:
		return fmt.Errorf("unknown storage driver %q", c.Config.StorageDriver)
	}
	return nil
}

func (c *Container) buildCache(ctx context.Context) error {
	cfg := c.Config
	if cfg.RedisAddr == "" {
		return nil
	}
	rdb, err := helpers.NewRedisClient(ctx, helpers.RedisOptions{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return err
	}
	c.onClose(func() { _ = rdb.Close() })
	c.Redis = rdb
	if cfg.TokenCacheTTL > 0 {
		c.TokenRepo = cache.NewTokenRepository(c.TokenRepo, rdb, cfg.TokenCacheTTL, c.Logger)
	}
	return nil
}

func (c *Container) brand() mailtpl.Brand {
	cfg := c.Config
	return mailtpl.Brand{
		AppName:        cfg.AppName,
		CompanyName:    cfg.CompanyName,
		CompanyAddress: cfg.CompanyAddress,
		LogoURL:        cfg.LogoURL,
		SupportURL:     cfg.SupportURL,
		UnsubscribeURL: cfg.UnsubscribeURL,
	}
}

func (c *Container) buildMessenger(ctx context.Context) error {
	cfg := c.Config
	switch driver := strings.ToLower(cfg.MessengerDriver); driver {
	case MessengerLog, "":
		c.Messenger = messenger.NewRecording(c.Logger)
	case MessengerQueue:
		if cfg.RabbitMQURL == "" {
			return errors.New("queue messenger requires RABBITMQ_URL")
		}
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue)
		if err != nil {
			return fmt.Errorf("connect rabbitmq: %w", err)
		}
		c.onClose(pub.Close)
		c.Messenger = messenger.NewQueue(pub, c.brand())
	default:
		sender, err := c.MailSender(ctx, driver)
		if err != nil {
			return err
		}
		c.Messenger = messenger.NewEmail(sender, c.brand())
	}
	return nil
}

// MailSender builds the mail transport named by driver.
func (c *Container) MailSender(ctx context.Context, driver string) (mailer.Sender, error) {
	cfg := c.Config
	switch strings.ToLower(driver) {
	case MessengerMailgun:
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" {
			return nil, errors.New("mailgun requires MAILGUN_DOMAIN and MAILGUN_API_KEY")
		}
		mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailFrom)
		mg.APIBase = cfg.MailgunAPIBase
		return mg, nil
	case MessengerSES:
		awsCfg, err := c.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		ses := mailer.NewSES(helpers.NewSESClient(awsCfg), cfg.MailFrom)
		ses.ConfigurationSet = cfg.SESConfigurationSet
		return ses, nil
	case MessengerHTTP:
		if cfg.EmailAPIURL == "" {
			return nil, errors.New("http mail transport requires EMAIL_API_URL")
		}
		return mailer.NewHTTPAPI(cfg.EmailAPIURL, cfg.MailFrom, cfg.EmailAPIToken, cfg.EmailAPITimeout), nil
	default:
		return nil, fmt.Errorf("unknown mail transport %q", driver)
	}
}

// AWSConfig loads the AWS config once for SES and SQS.
func (c *Container) AWSConfig(ctx context.Context) (aws.Config, error) {
	if c.aws != nil {
		return *c.aws, nil
	}
	cfg := c.Config
	awsCfg, err := helpers.LoadAWSConfig(ctx, helpers.AWSOptions{
		Region:          cfg.AWSRegion,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
		Endpoint:        cfg.AWSEndpoint,
	})
	if err != nil {
		return aws.Config{}, err
	}
	c.aws = &awsCfg
	return awsCfg, nil
}

func (c *Container) buildEvents(ctx context.Context) error {
	cfg := c.Config
	var fan events.FanOut

	if cfg.RabbitMQURL != "" && cfg.RabbitMQEventsExchange != "" {
		pub, err := helpers.NewRabbitExchangePublisher(cfg.RabbitMQURL, cfg.RabbitMQEventsExchange)
		if err != nil {
			return fmt.Errorf("connect rabbitmq events exchange: %w", err)
		}
		c.onClose(pub.Close)
		fan = append(fan, events.NewRabbitPublisher(pub))
	}

	if addrs := cfg.ESAddrs(); len(addrs) > 0 {
		es, err := helpers.NewESClient(ctx, helpers.ESOptions{
			Addrs:    addrs,
			Username: cfg.ElasticsearchUser,
			Password: cfg.ElasticsearchPass,
		})
		if err != nil {
			return err
		}
		c.ES = es
		c.Search = events.NewElasticsearchProjection(es, cfg.ESSubscribersIndex)
		fan = append(fan, c.Search)
	}

	if len(fan) > 0 {
		c.Events = fan
	}
	return nil
}

func (c *Container) buildDomain(_ context.Context) error {
	cfg := c.Config
	lifecycle, err := subscriber.ParseLifecycle(cfg.Lifecycle)
	if err != nil {
		return err
	}

	c.Subscribers = subscriber.NewCommandExecutor(c.SubscriberRepo, c.Messenger, cfg.ExposingAddress, lifecycle, c.Logger)
	c.Subscribers.Events = c.Events
	c.SubscriberReader = subscriber.NewQueryReader(c.SubscriberRepo, lifecycle)
	c.Tokens = subscriptiontoken.NewCommandExecutor(c.TokenRepo)
	c.TokenReader = subscriptiontoken.NewQueryReader(c.TokenRepo)

	c.Subscriptions = application.NewSubscriptionService(c.Subscribers, c.Tokens, c.TokenReader, c.Metrics, c.Logger)
	c.Subscriptions.Tracer = otel.Tracer(application.TracerName)
	return nil
}

func (c *Container) buildPublication(ctx context.Context) error {
	cfg := c.Config
	p := application.NewPublicationService(c.SubscriberReader, c.Messenger, c.Metrics, c.Logger)
	p.Tracer = otel.Tracer(application.TracerName)
	p.Sanitizer = sanitize.NewNewsletterSanitizer()
	if cfg.PublishRatePerSecond > 0 {
		p.Limiter = rate.NewLimiter(rate.Limit(cfg.PublishRatePerSecond), 1)
	}
	if cfg.GCSBucket != "" {
		gcs, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
		if err != nil {
			return fmt.Errorf("init GCS client: %w", err)
		}
		c.GCS = gcs
		c.onClose(func() { _ = gcs.Close() })
		p.Archive = archive.New(&archive.GCS{Client: gcs, Bucket: cfg.GCSBucket}, cfg.AppName)
	}
	c.Publications = p
	return nil
}
