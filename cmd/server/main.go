package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/vipspot/contact-relay/internal/config"
	"github.com/vipspot/contact-relay/internal/contact"
	"github.com/vipspot/contact-relay/internal/events"
	"github.com/vipspot/contact-relay/internal/logger"
	"github.com/vipspot/contact-relay/internal/providers/factory"
	"github.com/vipspot/contact-relay/internal/ratelimit"
	"github.com/vipspot/contact-relay/internal/server"
	"github.com/vipspot/contact-relay/internal/store"
	"github.com/vipspot/contact-relay/internal/ticket"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "contact-relay").Logger()

	sender, err := factory.Email(cfg.Provider, logger.Component(baseLogger, "mail"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise email provider")
	}

	var publisher *events.SubmissionPublisher
	if cfg.Events.Enabled() {
		producer, err := events.NewProducer(cfg.Events.Brokers, logger.Component(baseLogger, "events"))
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create events producer")
		}
		defer func() {
			if err := producer.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close events producer")
			}
		}()
		publisher = events.NewSubmissionPublisher(producer, cfg.Events.Topic, logger.Component(baseLogger, "events"))
		log.Info().Strs("brokers", cfg.Events.Brokers).Str("topic", cfg.Events.Topic).
			Msg("submission event stream enabled")
	}

	idem := store.NewMemory(logger.Component(baseLogger, "store"))
	limiter := ratelimit.New(cfg.Guards.RateMax, cfg.Guards.RateWindow)
	tickets := ticket.NewSource()

	svc := contact.NewService(
		cfg.Guards,
		contact.NewComposer(cfg.Contact),
		sender,
		idem,
		tickets,
		publisher,
		logger.Component(baseLogger, "contact"),
	)

	srv := server.New(cfg, svc, limiter, logger.Component(baseLogger, "http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		err := idem.Run(gctx, cfg.Guards.SweepInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("relay terminated")
	}
	log.Info().Msg("relay stopped")
}

func fail(stage string, err error) {
	fmt.Fprintf(os.Stderr, "%s: %v\n", stage, err)
	os.Exit(1)
}
