package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Gobusters/ectoenv"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/internal/repositories/entityref"
	"github.com/Ramsey-B/clover/internal/repositories/ledgertransaction"
	"github.com/Ramsey-B/clover/internal/repositories/mailmessage"
	"github.com/Ramsey-B/clover/internal/repositories/reimbursement"
	"github.com/Ramsey-B/clover/internal/repositories/relationship"
	settingsrepo "github.com/Ramsey-B/clover/internal/repositories/settings"
	reimbservice "github.com/Ramsey-B/clover/internal/services/reimbursement"
	settingssvc "github.com/Ramsey-B/clover/internal/services/settings"
	"github.com/Ramsey-B/clover/pkg/classify"
	"github.com/Ramsey-B/clover/pkg/correlate"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/events"
	"github.com/Ramsey-B/clover/pkg/httpclient"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/mailer"
	"github.com/Ramsey-B/clover/pkg/mailsync"
	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/propagate"
	"github.com/Ramsey-B/clover/pkg/redis"
	"github.com/Ramsey-B/clover/pkg/relationships"
	"github.com/Ramsey-B/clover/pkg/routes/health"
	mailsyncroutes "github.com/Ramsey-B/clover/pkg/routes/mailsync"
	reimbroutes "github.com/Ramsey-B/clover/pkg/routes/reimbursement"
	relationshiproutes "github.com/Ramsey-B/clover/pkg/routes/relationship"
	settingsroutes "github.com/Ramsey-B/clover/pkg/routes/settings"
	"github.com/Ramsey-B/clover/pkg/startup"
	"github.com/Ramsey-B/clover/pkg/tracing"
	"github.com/Ramsey-B/clover/pkg/tracing/exporters"
)

const version = "0.1.0"

// dependency adapts a pair of start/stop funcs to the startup graph
type dependency struct {
	name      string
	dependsOn []string
	start     func(ctx context.Context) error
	stop      func(ctx context.Context) error
}

func (d *dependency) GetName() string          { return d.name }
func (d *dependency) DependsOn() []string      { return d.dependsOn }
func (d *dependency) Start(ctx context.Context) error { return d.start(ctx) }
func (d *dependency) Stop(ctx context.Context) error {
	if d.stop == nil {
		return nil
	}
	return d.stop(ctx)
}

func main() {
	godotenv.Load()

	var cfg config.Config
	if err := ectoenv.BindEnv(&cfg); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := initTracing(ctx, cfg, logger)
	defer shutdownTracing()

	var (
		db          *sqlx.DB
		redisClient *redis.Client
		producer    *kafka.Producer
	)

	st := startup.NewStartup[config.Config](logger, cfg.StartupMaxAttempts)
	st.AddDependency(&dependency{
		name: "postgres",
		start: func(ctx context.Context) error {
			var err error
			db, err = connectPostgres(cfg)
			return err
		},
		stop: func(ctx context.Context) error {
			if db != nil {
				return db.Close()
			}
			return nil
		},
	})
	st.AddDependency(&dependency{
		name:      "migrations",
		dependsOn: []string{"postgres"},
		start: func(ctx context.Context) error {
			return runMigrations(cfg, db, logger)
		},
	})
	st.AddDependency(&dependency{
		name: "redis",
		start: func(ctx context.Context) error {
			var err error
			redisClient, err = redis.NewClient(redis.Config{
				Host:     cfg.RedisHost,
				Port:     cfg.RedisPort,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			}, logger)
			return err
		},
		stop: func(ctx context.Context) error {
			if redisClient != nil {
				return redisClient.Close()
			}
			return nil
		},
	})
	st.AddDependency(&dependency{
		name: "kafka",
		start: func(ctx context.Context) error {
			producer = kafka.NewProducer(kafka.ProducerConfig{
				Brokers:      cfg.KafkaBrokers,
				Topic:        cfg.KafkaNotificationTopic,
				BatchSize:    cfg.KafkaBatchSize,
				BatchTimeout: time.Duration(cfg.KafkaBatchTimeout) * time.Millisecond,
				RequiredAcks: cfg.KafkaRequiredAcks,
				Compression:  cfg.KafkaCompression,
			}, logger)
			return nil
		},
		stop: func(ctx context.Context) error {
			if producer != nil {
				return producer.Close()
			}
			return nil
		},
	})

	if err := st.Start(ctx); err != nil {
		logger.WithError(err).Error("startup failed")
		os.Exit(1)
	}
	defer st.Stop(context.Background())

	dbInstance := database.NewDatabaseInstance(db, logger)

	relationshipRepo := relationship.NewRepository(dbInstance, logger)
	reimbRepo := reimbursement.NewRepository(dbInstance, logger)
	transactionRepo := ledgertransaction.NewRepository(dbInstance, logger)
	refRepo := entityref.NewRepository(dbInstance, logger)
	mailRepo := mailmessage.NewRepository(dbInstance, logger)
	settingsRepo := settingsrepo.NewRepository(dbInstance, logger)

	settingsCache := redis.NewCache(redisClient, "clover:", cfg.SettingsCacheTTL)
	settingsService := settingssvc.NewService(settingsRepo, settingsCache, logger)

	registry := relationships.NewRegistry(
		relationships.NewRefAdapter(models.EntityTypeReceipt, refRepo),
		relationships.NewRefAdapter(models.EntityTypeMeetingMinute, refRepo),
		relationships.NewRefAdapter(models.EntityTypeBudget, refRepo),
		relationships.NewRefAdapter(models.EntityTypeInventoryItem, refRepo),
		relationships.NewTransactionAdapter(transactionRepo),
		relationships.NewReimbursementAdapter(reimbRepo),
	)
	loader := relationships.NewLoader(relationshipRepo, registry, logger)

	sender := mailer.NewSender(mailer.Config{
		Addr:        cfg.MailSMTPAddress,
		Username:    cfg.MailUsername,
		Password:    cfg.MailPassword,
		From:        cfg.MailFromAddress,
		ReplyDomain: cfg.MailReplyDomain,
	}, logger)

	reimbService := reimbservice.NewService(reimbRepo, loader, relationships.DefaultRules, sender, mailRepo, relationshipRepo, logger)

	emitter := events.NewEmitter(producer, logger)
	propagator := propagate.NewPropagator(reimbRepo, transactionRepo, relationshipRepo, emitter, logger)

	aiClient := httpclient.NewClient(httpclient.DefaultConfig(), logger)
	aiClassifier := classify.NewOpenAIClassifier(aiClient, cfg.AIBaseURL, cfg.AIRequestTimeout, logger)
	classifier := classify.NewClassifier(aiClassifier, logger)

	associator := mailsync.NewThreadAssociator(mailRepo, relationshipRepo)
	correlator := correlate.NewCorrelator(associator, logger)
	fetcher := mailsync.NewIMAPFetcher(cfg.MailIMAPAddress, cfg.MailUsername, cfg.MailPassword, logger)
	locker := redis.NewLocker(redisClient, "clover:lock:")
	syncer := mailsync.NewSyncer(
		fetcher,
		mailRepo,
		relationshipRepo,
		correlator,
		classifier,
		propagator,
		settingsService,
		mailsync.NewRedisLocker(locker),
		uint32(cfg.MailSyncWindow),
		cfg.MailSyncLockTTL,
		logger,
	)

	if err := registerServices(logger, relationshipRepo, reimbRepo, loader, reimbService, settingsService, syncer); err != nil {
		logger.WithError(err).Error("failed to register services")
		os.Exit(1)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		AllowMethods: cfg.AllowMethods,
	}))
	e.HTTPErrorHandler = middleware.Error(logger)

	checker := health.NewChecker(db, redisClient, version)
	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	relationshiproutes.Register(api.Group("/relationships"))
	reimbroutes.Register(api.Group("/reimbursements"))
	settingsroutes.Register(api.Group("/settings"))
	mailsyncroutes.Register(api.Group("/mailsync"))

	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second
	e.Server.MaxHeaderBytes = cfg.MaxHeaderBytes

	go func() {
		logger.WithField("port", cfg.Port).Infof("starting %s on port %d", cfg.AppName, cfg.Port)
		checker.SetReady(true)
		if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("server failed")
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	checker.SetReady(false)
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("failed to shut down server cleanly")
	}
}

func newLogger(cfg config.Config) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if cfg.PrettyLogs {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func initTracing(ctx context.Context, cfg config.Config, logger ectologger.Logger) func() {
	if !cfg.TracingEnabled {
		tracing.SetTracer(otel.Tracer(cfg.AppName))
		return func() {}
	}

	exporter, err := exporters.NewOTLPExporter(ctx, exporters.OTLPConfig{
		Endpoint: cfg.OTLPEndpoint,
		Protocol: cfg.OTLPProtocol,
		Insecure: cfg.OTLPInsecure,
		Timeout:  10 * time.Second,
	})
	if err != nil {
		logger.WithError(err).Error("failed to create trace exporter, tracing disabled")
		tracing.SetTracer(otel.Tracer(cfg.AppName))
		return func() {}
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	tracing.SetTracer(tp.Tracer(cfg.AppName))

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("failed to shut down tracer provider")
		}
	}
}

func connectPostgres(cfg config.Config) (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DatabaseHost, cfg.DatabasePort, cfg.DatabaseUserName, cfg.DatabasePassword, cfg.DatabaseName, cfg.DatabaseSSLMode,
	)

	db, err := sqlx.Connect(cfg.DatabaseDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
	db.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)

	return db, nil
}

func runMigrations(cfg config.Config, db *sqlx.DB, logger ectologger.Logger) error {
	driver, err := migratepg.WithInstance(db.DB, &migratepg.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	ms := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Version:             uint(cfg.DatabaseMigrationVersion),
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})

	return ms.Migrate(cfg.DatabaseName, driver)
}

func registerServices(
	logger ectologger.Logger,
	relationshipRepo *relationship.Repository,
	reimbRepo *reimbursement.Repository,
	loader *relationships.Loader,
	reimbService *reimbservice.Service,
	settingsService *settingssvc.Service,
	syncer *mailsync.Syncer,
) error {
	// the default container id is what GetContext resolves against in the
	// route handlers
	container, err := ectoinject.NewDIDefaultContainer()
	if err != nil {
		return fmt.Errorf("failed to create DI container: %w", err)
	}

	if err := ectoinject.RegisterInstance[ectologger.Logger](container, logger); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*relationship.Repository](container, relationshipRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reimbursement.Repository](container, reimbRepo); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*relationships.Loader](container, loader); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*reimbservice.Service](container, reimbService); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*settingssvc.Service](container, settingsService); err != nil {
		return err
	}
	if err := ectoinject.RegisterInstance[*mailsync.Syncer](container, syncer); err != nil {
		return err
	}

	return nil
}
