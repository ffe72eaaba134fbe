package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/acp-registry/apiserver/config"
	"github.com/acp-registry/apiserver/internal/metrics"
	"github.com/acp-registry/apiserver/internal/mq"
	"github.com/acp-registry/apiserver/internal/services"
	"github.com/acp-registry/apiserver/internal/storage"
	"github.com/acp-registry/apiserver/internal/store"
	"github.com/acp-registry/apiserver/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Runtime holds the wired moderation components and the resources they own.
type Runtime struct {
	Service  *services.ModerationService
	Registry *store.Registry
	Storage  *storage.Storage
	MQ       *mq.MQ
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
}

// Bootstrap builds storage, registry, event publishing and the moderation
// service from cfg.
func Bootstrap(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	ids, err := services.ParseIDStrategy(cfg.Registry.IDStrategy)
	if err != nil {
		return nil, err
	}

	docStorage, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := docStorage.Prepare(ctx); err != nil {
		_ = docStorage.Close()
		return nil, fmt.Errorf("prepare storage: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	registry := store.NewRegistry(docStorage, logger,
		store.WithStrictDecode(cfg.Registry.StrictDecode),
		store.WithMetrics(m),
	)

	broker, err := mq.Open(ctx, cfg)
	if err != nil {
		_ = docStorage.Close()
		return nil, err
	}

	schema := types.DefaultSchema()
	if len(cfg.Registry.SensitiveFields) > 0 {
		schema.Sensitive = cfg.Registry.SensitiveFields
	}

	opts := []services.Option{
		services.WithSchema(schema),
		services.WithIDStrategy(ids),
		services.WithMetrics(m),
		services.WithLogger(logger),
	}
	if cfg.Registry.Serialized {
		opts = append(opts, services.WithSerializedMutations())
	}
	if broker != nil {
		opts = append(opts, services.WithEvents(broker, cfg.MQ.EventsChannel))
	}

	logger.Info("registry storage ready",
		"backend", docStorage.Name(),
		"serialized", cfg.Registry.Serialized,
		"id_strategy", cfg.Registry.IDStrategy,
		"events", cfg.MQ.Backend,
	)

	return &Runtime{
		Service:  services.NewModerationService(registry, opts...),
		Registry: registry,
		Storage:  docStorage,
		MQ:       broker,
		Metrics:  m,
		Gatherer: reg,
	}, nil
}

// Close releases the broker and storage connections.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.MQ != nil {
		if err := rt.MQ.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mq: %w", err))
		}
	}
	if err := rt.Storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
