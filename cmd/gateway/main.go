// cmd/gateway/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tamzrod/portenta-gateway/internal/catalog"
	"github.com/tamzrod/portenta-gateway/internal/config"
	"github.com/tamzrod/portenta-gateway/internal/gateway"
	"github.com/tamzrod/portenta-gateway/internal/link"
	"github.com/tamzrod/portenta-gateway/internal/poll"
	"github.com/tamzrod/portenta-gateway/internal/publish"
	"github.com/tamzrod/portenta-gateway/internal/state"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if len(os.Args) < 2 {
		logger.Fatal("usage: gateway <config.yaml>")
	}

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(os.Args[1])
	if err != nil {
		logger.Fatal("config load failed", zap.Error(err))
	}
	if err := config.Validate(cfg); err != nil {
		logger.Fatal("config validation failed", zap.Error(err))
	}
	config.Normalize(cfg)

	g := cfg.Gateway

	// --------------------
	// Build the core
	// --------------------

	cat, err := catalog.Build(g)
	if err != nil {
		logger.Fatal("catalog build failed", zap.Error(err))
	}

	lnk, err := link.New(link.Config{
		Endpoint: g.Device.Endpoint,
		Timeout:  time.Duration(g.Device.TimeoutMs) * time.Millisecond,
	}, logger)
	if err != nil {
		logger.Fatal("link build failed", zap.Error(err))
	}

	cache := state.New(cat)
	core := gateway.New(cat, lnk, cache, logger)

	// --------------------
	// Optional MQTT update publisher
	// --------------------

	var pub *publish.Publisher
	if g.MQTT.Broker != "" {
		pub, err = publish.New(publish.Config{
			BrokerURL:   g.MQTT.Broker,
			TopicPrefix: g.MQTT.TopicPrefix,
			ClientID:    g.MQTT.ClientID,
		}, logger)
		if err != nil {
			logger.Fatal("mqtt publisher failed", zap.Error(err))
		}
		defer pub.Close()

		for ch := range cat.All() {
			if !ch.Polled() {
				continue
			}
			if err := core.Subscribe(ch.Name, pub.Update); err != nil {
				logger.Fatal("mqtt subscription failed",
					zap.String("channel", ch.Name), zap.Error(err))
			}
		}
	}

	// --------------------
	// Run until signalled
	// --------------------

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sched := poll.New(cat, lnk, cache, core.Dispatch, logger)
	sched.Start(ctx)

	logger.Info("portenta gateway running",
		zap.String("device", g.Device.Endpoint),
		zap.Int("channels", cat.Len()))

	<-ctx.Done()

	// Stop issuing new polls, let in-flight exchanges reach their deadline.
	sched.Stop()
	logger.Info("shutdown complete")
}
