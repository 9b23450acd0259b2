// Package app composes fern's services from configuration: database,
// graph, event producer, duplicate finder, merge service and strength
// scorer. Hosts embed App instead of wiring the pieces themselves.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"

	"github.com/Ramsey-B/fern/config"
	"github.com/Ramsey-B/fern/internal/repositories/extractedentity"
	"github.com/Ramsey-B/fern/internal/repositories/mergesuggestion"
	"github.com/Ramsey-B/fern/pkg/database"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/graph"
	"github.com/Ramsey-B/fern/pkg/kafka"
	"github.com/Ramsey-B/fern/pkg/logging"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/strength"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

// App holds fern's wired services
type App struct {
	Config *config.Config
	Logger ectologger.Logger

	DB            database.DB
	Graph         *graph.Client
	Relationships *graph.RelationshipService
	Producer      *kafka.Producer

	Entities    *extractedentity.Repository
	Suggestions *mergesuggestion.Repository

	Finder   *matching.Finder
	Merges   *merging.Service
	Strength *strength.Scorer

	tracingShutdown func(context.Context) error
}

// New builds the application graph from configuration. Migrations run
// before any repository is handed out.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := logging.New(cfg.AppName, cfg.LogLevel, cfg.PrettyLogs)

	a := &App{
		Config: cfg,
		Logger: logger,
	}

	if cfg.TracingEnabled {
		shutdown, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
			ServiceName: cfg.AppName,
			Endpoint:    cfg.TracingEndpoint,
			Protocol:    cfg.TracingProtocol,
			Insecure:    true,
			Timeout:     10 * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to init tracing: %w", err)
		}
		a.tracingShutdown = shutdown
	}

	db, err := database.Connect(ctx, database.ConnectionConfig{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		Username:        cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}
	a.DB = db

	if err := a.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	graphClient, err := graph.NewClient(graph.Config{
		Host:     cfg.GraphDBHost,
		Port:     cfg.GraphDBPort,
		Username: cfg.GraphDBUser,
		Password: cfg.GraphDBPassword,
	}, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	a.Graph = graphClient
	a.Relationships = graph.NewRelationshipService(graphClient, logger)

	var emitter merging.Emitter
	if cfg.KafkaEventsEnabled {
		a.Producer = kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaOutputTopic,
			BatchSize:    cfg.KafkaBatchSize,
			BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
			RequiredAcks: cfg.KafkaRequiredAcks,
			Compression:  cfg.KafkaCompression,
		}, logger)
		emitter = events.NewEmitter(a.Producer, logger)
	}

	a.Entities = extractedentity.NewRepository(db, logger)
	a.Suggestions = mergesuggestion.NewRepository(db, logger)

	matcher := matching.NewMatcher(nil, cfg.MinMatchScore)
	a.Finder = matching.NewFinder(logger, a.Entities, matcher, matching.FinderConfig{
		ScanLimit:      cfg.EntityScanLimit,
		MinConfidence:  cfg.MergeConfidenceFloor,
		EnableBlocking: cfg.EnableBlocking,
	})

	a.Merges = merging.NewService(a.Suggestions, a.Entities, a.Relationships, emitter, logger, merging.Config{
		AutoApplyEnabled:   cfg.AutoApplyEnabled,
		AutoApplyThreshold: cfg.AutoApplyThreshold,
	})

	a.Strength = strength.NewScorer(a.Relationships, a.Relationships, logger, strength.Config{
		HalfLifeDays:        cfg.StrengthHalfLifeDays,
		MaxEmailPerMonth:    cfg.StrengthMaxEmailPerMonth,
		MaxCalendarPerMonth: cfg.StrengthMaxCalendarPerMonth,
		EmailWeight:         cfg.StrengthEmailWeight,
		CalendarWeight:      cfg.StrengthCalendarWeight,
		RecencyWeight:       cfg.StrengthRecencyWeight,
		SentimentWeight:     cfg.StrengthSentimentWeight,
		ScanLimit:           cfg.EntityScanLimit,
	})

	logger.WithContext(ctx).Info("Application wired")

	return a, nil
}

func (a *App) migrate() error {
	instance, ok := a.DB.(*database.DatabaseInstance)
	if !ok {
		return fmt.Errorf("unexpected database instance type")
	}

	driver, err := migratepg.WithInstance(instance.DB.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	ms := database.NewMigrationService(a.Logger, &database.MigrationConfig{
		MigrationFolderPath: a.Config.DatabaseMigrationFolderPath,
		Version:             uint(a.Config.DatabaseMigrationVersion),
		Force:               a.Config.DatabaseMigrationForce,
		AutoRollback:        a.Config.DatabaseMigrationAutoRollback,
	})

	return ms.Migrate(a.Config.DatabaseName, driver)
}

// Close releases every connection the app owns.
func (a *App) Close(ctx context.Context) error {
	var firstErr error

	if a.Producer != nil {
		if err := a.Producer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.Graph != nil {
		if err := a.Graph.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if a.tracingShutdown != nil {
		if err := a.tracingShutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
