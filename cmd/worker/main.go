package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/newsletter/config"
	"github.com/oksasatya/newsletter/internal/container"
	"github.com/oksasatya/newsletter/internal/infrastructure/queue"
	"github.com/oksasatya/newsletter/internal/observability"
	"github.com/oksasatya/newsletter/internal/worker"
	"github.com/oksasatya/newsletter/pkg/helpers"
)

// The worker runs every queue consumer that is configured: the SQS and
// RabbitMQ subscriber-ingestion listeners and the email-job consumer.
func main() {
	_ = godotenv.Load()

	cfg := config.MustLoad()
	logger := helpers.NewLogger(cfg.AppName+"-worker", cfg.Env)
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); cfg.LogLevel != "" && err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitOTel(ctx, logger, observability.OtelConfig{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.AppName + "-worker",
		Environment: cfg.Env,
		Endpoint:    cfg.OTelEndpoint,
		Insecure:    cfg.OTelInsecure,
		SampleRatio: cfg.OTelSampleRatio,
	})
	defer func() { _ = shutdownTracing(context.Background()) }()

	c, err := container.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}
	defer c.Close()

	g, ctx := errgroup.WithContext(ctx)
	started := 0

	if cfg.SQSQueueURL != "" {
		awsCfg, err := c.AWSConfig(ctx)
		if err != nil {
			log.Fatalf("aws config: %v", err)
		}
		l := queue.NewSQSListener(helpers.NewSQSClient(awsCfg), cfg.SQSQueueURL, c.Subscribers, logger)
		g.Go(func() error { return l.Run(ctx) })
		started++
	}

	if cfg.RabbitMQURL != "" && cfg.RabbitMQSubscriberQueue != "" {
		consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQSubscriberQueue, 16)
		if err != nil {
			log.Fatalf("rabbitmq subscriber queue: %v", err)
		}
		defer consumer.Close()
		deliveries, err := consumer.Deliveries(cfg.AppName + "-subscribers")
		if err != nil {
			log.Fatalf("consume %s: %v", cfg.RabbitMQSubscriberQueue, err)
		}
		l := queue.NewRabbitListener(c.Subscribers, logger)
		g.Go(func() error { return l.Run(ctx, deliveries) })
		started++
	}

	if cfg.RabbitMQURL != "" && cfg.MessengerDriver == container.MessengerQueue {
		sender, err := c.MailSender(ctx, cfg.MailTransport)
		if err != nil {
			log.Fatalf("mail transport: %v", err)
		}
		consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, 16)
		if err != nil {
			log.Fatalf("rabbitmq email queue: %v", err)
		}
		defer consumer.Close()
		deliveries, err := consumer.Deliveries(cfg.AppName + "-emails")
		if err != nil {
			log.Fatalf("consume %s: %v", cfg.RabbitMQEmailQueue, err)
		}
		w := worker.NewEmailWorker(sender, c.Metrics, logger)
		g.Go(func() error { return w.Run(ctx, deliveries) })
		started++
	}

	if started == 0 {
		logger.Warn("no queue configured; worker has nothing to do")
		return
	}
	logger.WithField("consumers", started).Info("worker started")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Error("worker stopped")
		return
	}
	logger.Info("worker exited properly")
}
