package internal

import (
	"context"
	"fmt"

	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/broker"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/core/internal/repository"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/domain"
	"github.com/moamenmohamedx/telegram-bot-forex-perlson/sdk/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// InitTelemetry inicializa el cliente de telemetría desde la configuración.
//
// Sin endpoints OTLP solo se emiten logs JSON a stdout. extra se aplica al
// final (tests).
func InitTelemetry(ctx context.Context, cfg *Config, extra ...telemetry.Option) (*telemetry.Client, error) {
	opts := []telemetry.Option{
		telemetry.WithVersion(cfg.ServiceVersion),
		telemetry.WithLogLevel(telemetry.ParseLogLevel(cfg.LogLevel)),
		telemetry.WithCommonAttributes(attribute.String("service.namespace", AppName)),
	}
	if cfg.OTLPEndpoint != "" {
		opts = append(opts, telemetry.WithOTLPEndpoint(cfg.OTLPEndpoint))
	}
	switch {
	case cfg.TracesEndpoint != "":
		opts = append(opts, telemetry.WithTracesEndpoint(cfg.TracesEndpoint))
	case cfg.OTLPEndpoint == "":
		opts = append(opts, telemetry.WithTracesDisabled())
	}
	switch {
	case cfg.MetricsEndpoint != "":
		opts = append(opts, telemetry.WithMetricsEndpoint(cfg.MetricsEndpoint))
	case cfg.OTLPEndpoint == "":
		opts = append(opts, telemetry.WithMetricsDisabled())
	}
	opts = append(opts, extra...)

	client, err := telemetry.New(ctx, cfg.ServiceName, cfg.Environment, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to init telemetry: %w", err)
	}
	return client, nil
}

// NewPaperBroker crea el broker simulado con las cotizaciones configuradas.
//
// Sin cotizaciones toda orden a mercado se rechaza; se avisa al arrancar.
func NewPaperBroker(ctx context.Context, cfg *Config, tel *telemetry.Client) *broker.Paper {
	if tel == nil {
		tel = telemetry.NewNoop(cfg.ServiceName)
	}
	if len(cfg.PaperQuotes) == 0 {
		tel.Warn(ctx, "Paper broker has no quotes, market orders will be rejected",
			attribute.String("config_key", "paper/quotes"),
		)
	} else {
		tel.Info(ctx, "Paper broker ready", attribute.Int("quotes", len(cfg.PaperQuotes)))
	}
	return broker.NewPaper(
		broker.WithQuotes(cfg.PaperQuotes),
		broker.WithPaperTelemetry(tel),
	)
}

// OpenStore abre el backend de persistencia configurado.
func OpenStore(ctx context.Context, cfg *Config, tel *telemetry.Client) (domain.RepositoryFactory, error) {
	if tel == nil {
		tel = telemetry.NewNoop(cfg.ServiceName)
	}

	switch cfg.StoreBackend {
	case StoreBackendPostgres:
		db, err := repository.OpenPostgres(ctx, cfg.PostgresConnStr())
		if err != nil {
			return nil, err
		}
		factory := repository.NewPostgresFactory(db)
		if err := factory.EnsureSchema(ctx); err != nil {
			_ = factory.Close()
			return nil, err
		}
		tel.Info(ctx, "Postgres store ready",
			attribute.String("host", cfg.PostgresHost),
			attribute.String("database", cfg.PostgresDatabase),
		)
		return factory, nil

	case StoreBackendBolt:
		ledger, err := repository.OpenBoltLedger(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		tel.Info(ctx, "Bolt store ready", attribute.String("path", cfg.BoltPath))
		return ledger, nil

	case StoreBackendMemory:
		tel.Warn(ctx, "Using in-memory store, records are lost on restart")
		return repository.NewMemory(), nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
