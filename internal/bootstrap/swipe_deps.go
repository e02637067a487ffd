package bootstrap

import (
	"context"
	"io"
	"os"
	"time"

	"swipe_server/adapter/out/persistence"
	"swipe_server/adapter/out/provider"
	"swipe_server/config"
	"swipe_server/core/agent/llm"
	"swipe_server/core/port/out"
	"swipe_server/core/service/card"
	"swipe_server/core/service/classification"
	"swipe_server/core/service/normalize"
	"swipe_server/infra/database"
	"swipe_server/pkg/logger"
	"swipe_server/pkg/metrics"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type Dependencies struct {
	Config *config.Config
	SQLDB  *sqlx.DB
	Redis  *redis.Client
	Log    zerolog.Logger

	// Adapters
	Normalizer  *normalize.Normalizer
	Gmail       *provider.GmailSource
	Sources     card.Sources
	Calendar    out.CalendarPort
	ApplyStore  out.ApplyStore
	LLMClient   *llm.Client
	Enricher    *classification.Enricher
	Pipeline    *classification.Pipeline
	CardBuilder *card.Builder

	// Services
	CardService *card.Service
}

// newZerolog returns the console logger used by adapters and the worker.
func newZerolog(w io.Writer) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{
		Config:     cfg,
		Log:        newZerolog(os.Stdout),
		Normalizer: normalize.New(time.Now),
	}
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	// Redis
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedis(cfg.RedisURL)
		if err != nil {
			if cfg.ApplyStore == config.ApplyStoreRedis {
				cleanup()
				return nil, nil, err
			}
			logger.Warn("Redis connection failed: %v", err)
		} else {
			deps.Redis = redisClient
			cleanups = append(cleanups, func() { redisClient.Close() })
			logger.Info("Redis connected")
		}
	}

	// Postgres (sqlx over pgx)
	if cfg.DatabaseURL != "" {
		sqlDB, err := database.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			if cfg.ApplyStore == config.ApplyStorePostgres {
				cleanup()
				return nil, nil, err
			}
			logger.Warn("Postgres connection failed: %v", err)
		} else {
			deps.SQLDB = sqlDB
			cleanups = append(cleanups, func() { sqlDB.Close() })
			metrics.RegisterDBStats("postgres", sqlDB.DB)
			logger.Info("Postgres connected")
		}
	}

	store, err := newApplyStore(cfg, deps)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.ApplyStore = store

	deps.Gmail = provider.NewGmailSource(&provider.GmailConfig{
		ClientID:     cfg.GmailClientID,
		ClientSecret: cfg.GmailClientSecret,
		RefreshToken: cfg.GmailRefreshToken,
		UserEmail:    cfg.GmailUserEmail,
		Query:        cfg.GmailQuery,
	}, deps.Normalizer, deps.Log)
	deps.Sources = newSources(cfg, deps.Gmail, deps.Normalizer)
	deps.Calendar = newCalendar(cfg, deps.Log)

	// Classification: heuristic always, model enrichment when a key is configured
	var completer out.LLMCompleter
	if cfg.LLMEnabled() {
		deps.LLMClient = llm.NewClientWithConfig(llm.ClientConfig{
			APIKey:      cfg.LLMAPIKey,
			Model:       cfg.LLMModel,
			BaseURL:     cfg.LLMBaseURL,
			MaxTokens:   cfg.LLMMaxTokens,
			Temperature: &cfg.LLMTemperature,
			Timeout:     cfg.LLMTimeout,
			JSONMode:    cfg.LLMJSONMode,
		})
		completer = deps.LLMClient
		logger.Info("LLM enrichment enabled (model=%s)", deps.LLMClient.Model())
	} else {
		logger.Info("LLM_API_KEY not set, classifying with heuristics only")
	}
	deps.Enricher = classification.NewEnricher(completer, classification.EnricherConfig{
		CacheTTL:    cfg.ClassifierTTL,
		CallTimeout: cfg.LLMTimeout,
	})
	deps.Pipeline = classification.NewPipeline(classification.NewHeuristicClassifier(), deps.Enricher)
	deps.CardBuilder = card.NewBuilder(deps.Pipeline, cfg.ApplicationRedirectBase)

	deps.CardService = card.NewService(deps.CardBuilder, deps.Sources, deps.ApplyStore, deps.Calendar, card.Config{
		MaxEmails:       cfg.MaxEmails,
		Workers:         cfg.BuildWorkers,
		DeckTTL:         cfg.CardCacheTTL,
		RequireFormLink: cfg.RequireFormLink,
		FormPrefixes:    cfg.ApplicationFormHosts,
	})

	return deps, cleanup, nil
}

func newApplyStore(cfg *config.Config, deps *Dependencies) (out.ApplyStore, error) {
	switch cfg.ApplyStore {
	case config.ApplyStoreRedis:
		logger.Info("Apply store: redis")
		return persistence.NewRedisApplyStore(deps.Redis), nil
	case config.ApplyStorePostgres:
		store := persistence.NewPostgresApplyStore(deps.SQLDB)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		logger.Info("Apply store: postgres")
		return store, nil
	default:
		logger.Info("Apply store: memory")
		return persistence.NewMemoryApplyStore(), nil
	}
}

// newSources picks the email inputs: per-user Gmail, then server Gmail, then the mock dataset.
func newSources(cfg *config.Config, gmail *provider.GmailSource, normalizer *normalize.Normalizer) card.Sources {
	mock := provider.NewMockSource(cfg.MockEmailPath, normalizer)
	sources := card.Sources{PerUser: gmail}

	if !gmail.Configured() {
		logger.Info("Email source: mock dataset (%s)", cfg.MockEmailPath)
		sources.Primary = mock
		return sources
	}

	logger.Info("Email source: gmail")
	sources.Primary = gmail
	if cfg.SourceFallbackToMock {
		logger.Info("Email source fallback: mock dataset (%s)", cfg.MockEmailPath)
		sources.Fallback = mock
	}
	return sources
}

// newCalendar picks the HTTP calendar, then Google Calendar, then the mock.
func newCalendar(cfg *config.Config, log zerolog.Logger) out.CalendarPort {
	switch {
	case cfg.MCPCalendarURL != "":
		logger.Info("Calendar: http (%s)", cfg.MCPCalendarURL)
		return provider.NewHTTPCalendarAdapter(cfg.MCPCalendarURL, cfg.MCPCalendarAPIKey, log)
	case cfg.GoogleCalendarEnabled && cfg.GmailConfigured():
		logger.Info("Calendar: google (%s)", cfg.GoogleCalendarID)
		return provider.NewGoogleCalendarAdapter(&provider.GoogleCalendarConfig{
			ClientID:     cfg.GmailClientID,
			ClientSecret: cfg.GmailClientSecret,
			RefreshToken: cfg.GmailRefreshToken,
			CalendarID:   cfg.GoogleCalendarID,
		})
	default:
		if cfg.GoogleCalendarEnabled {
			logger.Warn("GOOGLE_CALENDAR_ENABLED without a complete Gmail credential, using mock calendar")
		}
		logger.Info("Calendar: mock")
		return provider.NewMockCalendar(time.Now)
	}
}

// HealthCheck pings the configured backing stores.
func (d *Dependencies) HealthCheck(ctx context.Context) error {
	if d.SQLDB != nil {
		if err := d.SQLDB.PingContext(ctx); err != nil {
			return err
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}
