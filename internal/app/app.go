package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"pricewatch/internal/alerting"
	"pricewatch/internal/analytics"
	"pricewatch/internal/api"
	"pricewatch/internal/config"
	"pricewatch/internal/fetcher"
	"pricewatch/internal/pricing"
	"pricewatch/internal/scheduler"
	"pricewatch/internal/service"
	"pricewatch/internal/storage"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, errors.New("database.dsn not configured")
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

func (a *App) newFeeds() (fetcher.ProductFeed, fetcher.RateFeed) {
	products := fetcher.NewProducts(fetcher.ProductsOptions{
		BaseURL:   a.Config.Feeds.Products.URL,
		Timeout:   a.Config.Feeds.Products.RequestTimeout,
		UserAgent: a.Config.Feeds.UserAgent,
	}, a.Logger)

	rates := fetcher.NewRates(fetcher.RatesOptions{
		BaseURL:   a.Config.Feeds.Rates.URL,
		Timeout:   a.Config.Feeds.Rates.RequestTimeout,
		UserAgent: a.Config.Feeds.UserAgent,
		Codes:     a.Config.Feeds.Rates.Codes,
	}, a.Logger)

	return products, rates
}

func (a *App) newNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	cfg := a.Config.Alerting.SMTP
	return alerting.NewSMTPNotifier(alerting.SMTPOptions{
		Host:     cfg.Host,
		Port:     cfg.Port,
		From:     cfg.From,
		Username: cfg.Username,
		Password: cfg.Password,
	}, a.Logger)
}

func (a *App) newEvaluator(store *storage.Store) *alerting.Evaluator {
	notifier := a.newNotifier()
	if notifier == nil {
		return nil
	}
	return alerting.NewEvaluator(store, store, notifier, store, a.Config.Scheduler.AdvisoryLockKey, a.Logger)
}

func (a *App) newService(store *storage.Store) *service.Service {
	products, rates := a.newFeeds()
	return service.New(
		products,
		rates,
		store,
		store,
		a.newEvaluator(store),
		a.Config.Feeds.Products.ShopTitle,
		a.Config.Feeds.Products.ShopURL,
		a.Logger,
	)
}

// Serve runs the HTTP API together with the periodic ingest-and-evaluate loop.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if a.newNotifier() == nil {
		a.Logger.Warn().Msg("alerting disabled; price alerts will not be delivered")
	}

	converter := pricing.NewConverter(store)
	analyticsSvc := analytics.New(store, store, converter, a.Logger)
	svc := a.newService(store)

	server := api.NewServer(analyticsSvc, store, store, svc, a.Logger)
	httpSrv := &http.Server{
		Addr:         a.Config.API.ListenAddr,
		Handler:      api.NewRouter(server),
		ReadTimeout:  a.Config.API.ReadTimeout,
		WriteTimeout: a.Config.API.WriteTimeout,
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToBucket,
		StartupDelay: a.Config.Scheduler.StartupDelay,
	}, a.Logger)

	serveErr := make(chan error, 1)
	go func() {
		a.Logger.Info().Str("addr", httpSrv.Addr).Msg("http api listening")
		serveErr <- httpSrv.ListenAndServe()
	}()

	go func() {
		if err := sched.Run(ctx, svc.RunTick); err != nil && !errors.Is(err, context.Canceled) {
			a.Logger.Error().Err(err).Msg("scheduler stopped with error")
		}
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.Config.API.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("http shutdown failed")
	}

	a.Logger.Info().Msg("service stopped")
	return nil
}

// IngestOptions select which feeds a one-shot ingestion pulls.
type IngestOptions struct {
	Products bool
	Rates    bool
}

// Ingest pulls the selected feeds once and exits.
func (a *App) Ingest(ctx context.Context, opts IngestOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := a.newService(store)

	if opts.Products {
		if err := svc.IngestProducts(ctx, time.Now()); err != nil {
			return err
		}
	}
	if opts.Rates {
		if err := svc.IngestRates(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs one alert evaluation pass and exits.
func (a *App) Evaluate(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	evaluator := a.newEvaluator(store)
	if evaluator == nil {
		return errors.New("alerting is not enabled; configure alerting.smtp and set alerting.enabled")
	}

	stats, err := evaluator.Run(ctx, time.Now())
	if err != nil {
		return err
	}
	a.Logger.Info().
		Int("evaluated", stats.Evaluated).
		Int("notified", stats.Notified).
		Int("failed", stats.Failed).
		Msg("evaluation finished")
	return nil
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}

// ExportOptions hold parameters for exporting a product's price history.
type ExportOptions struct {
	ProductID int64
	PNGPath   string
	CSVPath   string
	MaxPoints int
}
