package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"racefeed/internal/archive"
	"racefeed/internal/config"
	"racefeed/internal/enrichment"
	"racefeed/internal/journal"
	"racefeed/internal/logging"
	"racefeed/internal/metrics"
	"racefeed/internal/notifications"
	"racefeed/internal/publish"
	"racefeed/internal/rowstore"
	"racefeed/internal/rowstore/gsheets"
	"racefeed/internal/rowstore/xlsx"
	"racefeed/internal/services"
	"racefeed/internal/services/fetch"
	"racefeed/internal/services/geocode"
	"racefeed/internal/services/llm"
	"racefeed/internal/services/woocommerce"
)

// OpenStore builds the row store selected by cfg.Sheets.Backend. m may be nil.
func OpenStore(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*rowstore.Store, error) {
	var connector rowstore.Connector
	switch strings.ToLower(strings.TrimSpace(cfg.Sheets.Backend)) {
	case "google", "":
		connector = gsheets.New(gsheets.Config{
			SpreadsheetID:      cfg.Sheets.SpreadsheetID,
			WorksheetName:      cfg.Sheets.WorksheetName,
			CredentialsFile:    cfg.Sheets.CredentialsFile,
			ServiceAccountJSON: cfg.Sheets.ServiceAccountJSON,
		})
	case "xlsx":
		connector = xlsx.New(cfg.Sheets.XLSXPath, cfg.Sheets.WorksheetName)
	default:
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "open store", fmt.Sprintf("unknown sheets backend %q", cfg.Sheets.Backend), nil)
	}
	opts := rowstore.Options{
		CacheTTL:        time.Duration(cfg.Sheets.CacheTTLSeconds) * time.Second,
		LoadAttempts:    cfg.Sheets.LoadMaxAttempts,
		LoadBaseDelay:   seconds(cfg.Sheets.LoadBaseDelaySeconds),
		UpdateAttempts:  cfg.Sheets.UpdateMaxAttempts,
		UpdateBaseDelay: seconds(cfg.Sheets.UpdateBaseDelaySeconds),
		Logger:          logger,
	}
	if m != nil {
		opts.OnRetry = m.RowstoreRetry
	}
	return rowstore.New(connector, opts), nil
}

// Runtime is a fully wired pipeline plus the resources it owns.
type Runtime struct {
	Pipeline *Pipeline
	Store    *rowstore.Store
	Journal  journal.Recorder
	Notifier notifications.Service

	closers []func() error
}

// Close releases the row store handle and the journal.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build wires every collaborator from cfg. m may be nil.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Runtime, error) {
	if cfg == nil {
		return nil, errors.New("pipeline: config is nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	rt := &Runtime{}

	store, err := OpenStore(cfg, logger, m)
	if err != nil {
		return nil, err
	}
	rt.Store = store
	rt.closers = append(rt.closers, store.Close)

	catalog, err := woocommerce.New(woocommerce.Config{
		BaseURL:           cfg.Catalog.URL,
		ConsumerKey:       cfg.Catalog.ConsumerKey,
		ConsumerSecret:    cfg.Catalog.ConsumerSecret,
		AdminUser:         cfg.Catalog.AdminUser,
		AdminPass:         cfg.Catalog.AdminPass,
		Timeout:           time.Duration(cfg.Catalog.TimeoutSeconds) * time.Second,
		MaxAttempts:       cfg.Catalog.MaxAttempts,
		BaseDelay:         seconds(cfg.Catalog.BaseDelaySeconds),
		RequestsPerSecond: cfg.Catalog.RequestsPerSecond,
	}, woocommerce.WithLogger(logger))
	if err != nil {
		_ = rt.Close()
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "catalog client", "", err)
	}

	docs, err := archive.Open(ctx, cfg.Archive)
	if err != nil {
		_ = rt.Close()
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "archive", "", err)
	}

	enrichOpts, err := enrichment.OptionsFromConfig(cfg)
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	deps := enrichment.Dependencies{
		Generator: llm.NewClient(llm.Config{
			APIKey:         cfg.Generation.APIKey,
			BaseURL:        cfg.Generation.BaseURL,
			TimeoutSeconds: cfg.Generation.TimeoutSeconds,
		}),
		Fetcher: fetch.New(fetch.Options{
			UserAgent:        cfg.Fetch.UserAgent,
			Timeout:          time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
			RetryDelays:      durations(cfg.Fetch.RetryDelays),
			MaxDocumentBytes: cfg.Fetch.MaxDocumentBytes,
			Logger:           logger,
		}),
		Media:   catalog,
		Archive: docs,
		Logger:  logger,
	}
	if resolver := geocoder(cfg.Geocoding, logger); resolver != nil {
		deps.Geocoder = resolver
	}
	enricher := enrichment.New(enrichOpts, deps)

	publisher := publish.New(catalog, func(ctx context.Context, location string) (string, string) {
		return enricher.Coordinates(ctx, location, nil)
	}, publish.Options{
		EventBaseURL:        cfg.Catalog.EventBaseURL,
		TranslationLanguage: cfg.Catalog.TranslationLanguage,
		EventCountry:        cfg.Catalog.EventCountry,
	}, logger)

	rec, err := journal.Open(ctx, cfg.Journal)
	if err != nil {
		_ = rt.Close()
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "journal", cfg.Journal.Driver, err)
	}
	rt.Journal = rec
	rt.closers = append(rt.closers, rec.Close)
	rt.Notifier = notifications.NewService(cfg)

	rt.Pipeline = New(Deps{
		Store:     store,
		Enricher:  enricher,
		Publisher: publisher,
		Journal:   rec,
		Metrics:   m,
		Notifier:  rt.Notifier,
		Logger:    logger,
		LockPath:  cfg.PassLockPath(),
	})
	return rt, nil
}

// geocoder returns nil when no API key is configured.
func geocoder(cfg config.Geocoding, logger *slog.Logger) geocode.Resolver {
	opts := []geocode.Option{
		geocode.WithCountry(cfg.CountryCode),
		geocode.WithLanguage(cfg.Language),
		geocode.WithLimit(cfg.Limit),
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, geocode.WithBaseURL(cfg.BaseURL))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, geocode.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	client, err := geocode.New(cfg.APIKey, opts...)
	if err != nil {
		logger.Warn("geocoding disabled",
			logging.Error(err),
			logging.String(logging.FieldEventType, "geocoding_disabled"),
			logging.String(logging.FieldImpact, "events published without coordinates"),
		)
		return nil
	}
	return client
}

func seconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}

func durations(values []float64) []time.Duration {
	out := make([]time.Duration, 0, len(values))
	for _, v := range values {
		out = append(out, seconds(v))
	}
	return out
}
