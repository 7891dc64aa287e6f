package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	eventapp "github.com/bizhub/backend/internal/application/event"
	financeapp "github.com/bizhub/backend/internal/application/finance"
	notificationapp "github.com/bizhub/backend/internal/application/notification"
	settingapp "github.com/bizhub/backend/internal/application/setting"
	storefrontapp "github.com/bizhub/backend/internal/application/storefront"
	tradeapp "github.com/bizhub/backend/internal/application/trade"
	"github.com/bizhub/backend/internal/domain/finance"
	"github.com/bizhub/backend/internal/domain/setting"
	"github.com/bizhub/backend/internal/infrastructure/auth"
	"github.com/bizhub/backend/internal/infrastructure/cache"
	"github.com/bizhub/backend/internal/infrastructure/config"
	"github.com/bizhub/backend/internal/infrastructure/cookie"
	"github.com/bizhub/backend/internal/infrastructure/event"
	"github.com/bizhub/backend/internal/infrastructure/logger"
	"github.com/bizhub/backend/internal/infrastructure/notification"
	"github.com/bizhub/backend/internal/infrastructure/payment"
	"github.com/bizhub/backend/internal/infrastructure/persistence"
	"github.com/bizhub/backend/internal/infrastructure/queue"
	"github.com/bizhub/backend/internal/infrastructure/scheduler"
	"github.com/bizhub/backend/internal/infrastructure/telemetry"
	"github.com/bizhub/backend/internal/interfaces/http/handler"
	"github.com/bizhub/backend/internal/interfaces/http/middleware"
	"github.com/bizhub/backend/internal/interfaces/http/router"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting bizhub backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	defaultTenant, err := uuid.Parse(cfg.App.DefaultTenantID)
	if err != nil {
		log.Fatal("Invalid default tenant id", zap.String("tenant_id", cfg.App.DefaultTenantID), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter(cfg.Telemetry.ServiceName)
	businessMetrics, err := telemetry.NewBusinessMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create business metrics", zap.Error(err))
	}

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabase(ctx, &cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		if err := telemetry.RegisterDBTracing(db.DB, cfg.Telemetry.DBSlowQueryThresh, log); err != nil {
			log.Fatal("Failed to register database tracing", zap.Error(err))
		}
	}
	log.Info("Database connected successfully")

	// Redis is optional; without it the queue runs inline and settings are cached in memory
	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
		defer func() { _ = redisClient.Close() }()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	// Repositories
	productRepo := persistence.NewGormProductRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	stockRepo := persistence.NewGormStockItemRepository(db.DB)
	settingRepo := persistence.NewGormSettingRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	salesOrderRepo := persistence.NewGormSalesOrderRepository(db.DB)
	salesReturnRepo := persistence.NewGormSalesReturnRepository(db.DB)
	ecommerceOrderRepo := persistence.NewGormEcommerceOrderRepository(db.DB)
	abandonedCartRepo := persistence.NewGormAbandonedCartRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Outbox: aggregates save their events in the same transaction
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	outboxPublisher.SetMaxRetries(cfg.Event.MaxRetries)
	salesOrderRepo.SetOutboxEventSaver(outboxPublisher)
	salesReturnRepo.SetOutboxEventSaver(outboxPublisher)
	ecommerceOrderRepo.SetOutboxEventSaver(outboxPublisher)

	// Settings
	settingService := settingapp.NewService(settingRepo, settingDefaults(cfg), log)
	if redisClient != nil {
		settingService.SetCache(cache.NewRedisSettingsCache(redisClient, 5*time.Minute))
	} else {
		settingService.SetCache(cache.NewInMemorySettingsCache(time.Minute))
	}

	// Notifications and the work queue
	emailSender := notification.NewSMTPSender(settingService, cfg.SMTP.Timeout, log)
	smsSender := notification.NewSMSSender(cfg.SMS.BaseURL, settingService, cfg.SMS.Timeout, log)
	moneyFormat := notification.NewMoneyFormatter("en")

	taskRegistry := queue.NewRegistry()
	var queueClient redis.UniversalClient
	if redisClient != nil {
		queueClient = redisClient
	}
	workQueue := queue.New(cfg.Queue, queueClient, taskRegistry, log)
	notifier := notificationapp.NewNotifier(workQueue, customerRepo, moneyFormat, log)
	cartTracker := storefrontapp.NewCartTracker(workQueue, abandonedCartRepo, log)
	taskRegistry.Register(notificationapp.NewTaskHandler(emailSender, smsSender, log))
	taskRegistry.Register(cartTracker)

	// Payments
	var gateway finance.PaymentGateway
	if cfg.Payment.Provider == payment.ProviderPaystack {
		gateway = payment.NewPaystackGateway(payment.PaystackConfig{
			BaseURL:     cfg.Payment.BaseURL,
			Timeout:     cfg.Payment.Timeout,
			CallbackURL: cfg.Payment.CallbackURL,
		}, settingService, log)
	} else {
		log.Warn("No payment provider configured, payment initiation is disabled",
			zap.String("provider", cfg.Payment.Provider))
	}
	paymentService := financeapp.NewPaymentService(invoiceRepo, ecommerceOrderRepo, salesOrderRepo, gateway, log)
	paymentService.SetMetrics(businessMetrics)

	// Storefront
	cartService := storefrontapp.NewCartService(productRepo, stockRepo, settingService, cartTracker, log)
	checkoutService := storefrontapp.NewCheckoutService(
		persistence.NewGormCheckoutScope(db.DB, outboxPublisher),
		cartService,
		paymentService,
		cfg.Storefront.OrderNumPrefix,
		log,
	)
	checkoutService.SetMetrics(businessMetrics)
	orderQueries := storefrontapp.NewOrderQueryService(ecommerceOrderRepo, abandonedCartRepo)
	reconciler := storefrontapp.NewOrderReconciler(ecommerceOrderRepo, salesOrderRepo, log)
	reconciler.SetMetrics(businessMetrics)
	reminders := storefrontapp.NewReminderDispatcher(
		abandonedCartRepo,
		customerRepo,
		emailSender,
		settingService,
		cfg.Storefront.PublicBaseURL,
		log,
	)
	reminders.SetMetrics(businessMetrics)
	reminders.SetBatchLimit(cfg.Reminder.BatchSize)
	reminders.SetMoneyFormatter(moneyFormat)

	// Trade
	salesOrderService := tradeapp.NewSalesOrderService(salesOrderRepo)
	salesReturnService := tradeapp.NewSalesReturnService(salesReturnRepo, salesOrderRepo, log)
	settlement := tradeapp.NewReturnSettlementHandler(
		persistence.NewGormSettlementScope(db.DB, outboxPublisher),
		salesReturnRepo,
		notifier,
		log,
	)
	settlement.SetMetrics(businessMetrics)

	// Event handlers driven by the outbox
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(reconciler)
	eventBus.Subscribe(storefrontapp.NewOrderStatusNotificationHandler(notifier))
	eventBus.Subscribe(settlement)
	eventBus.Subscribe(tradeapp.NewReturnRejectedHandler(notifier, log))

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, event.OutboxProcessorConfig{
			BatchSize:        cfg.Event.BatchSize,
			PollInterval:     cfg.Event.PollInterval,
			CleanupEnabled:   cfg.Event.CleanupEnabled,
			CleanupRetention: cfg.Event.CleanupRetention,
			CleanupInterval:  time.Hour,
		}, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	} else {
		log.Warn("Outbox processor disabled, events are stored but not delivered")
	}

	if err := workQueue.Start(ctx); err != nil {
		log.Fatal("Failed to start work queue", zap.Error(err))
	}

	jobs := scheduler.NewScheduler(log)
	if cfg.Reminder.Enabled {
		if err := jobs.Register(scheduler.NewReminderJob(reminders, cfg.Reminder.Interval, log)); err != nil {
			log.Fatal("Failed to register reminder job", zap.Error(err))
		}
	}
	if err := jobs.Start(ctx); err != nil {
		log.Fatal("Failed to start scheduler", zap.Error(err))
	}

	// Dead letters span the outbox and, with Redis, the work queue
	var deadTasks eventapp.DeadTaskStore
	if store, ok := workQueue.(eventapp.DeadTaskStore); ok {
		deadTasks = store
	}
	deadLetters := eventapp.NewDeadLetterService(outboxRepo, deadTasks, log)

	// HTTP
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to set up request validation", zap.Error(err))
	}
	sealer, err := cookie.NewSealer(cfg.Storefront.CookieSecret)
	if err != nil {
		log.Fatal("Invalid storefront cookie secret", zap.Error(err))
	}
	cartCookies := cookie.NewCartStore(sealer, cookie.Options{
		Domain: cfg.Storefront.CookieDomain,
		Secure: cfg.Storefront.CookieSecure,
		MaxAge: cfg.Storefront.CookieMaxAge,
	}, log)

	engine, err := router.NewEngine(router.EngineConfig{
		HTTP:           cfg.HTTP,
		ServiceName:    cfg.Telemetry.ServiceName,
		TracingEnabled: tracerProvider.IsEnabled(),
		Meter:          meter,
		Logger:         log,
	})
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	var limiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow, cfg.HTTP.RateLimitBurst)
		go limiter.Run(ctx)
	}

	checks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	router.Mount(engine, router.Handlers{
		Cart:        handler.NewCartHandler(cartService, checkoutService, cartCookies),
		ShopOrders:  handler.NewShopOrderHandler(orderQueries, reconciler, reminders),
		SalesOrders: handler.NewSalesOrderHandler(salesOrderService),
		Returns:     handler.NewSalesReturnHandler(salesReturnService),
		Payments:    handler.NewPaymentHandler(paymentService),
		Settings:    handler.NewSettingHandler(settingService),
		System:      handler.NewSystemHandler(deadLetters, version, checks),
	}, router.RouteConfig{
		Tokens:        auth.NewJWTService(cfg.JWT),
		DefaultTenant: defaultTenant,
		RateLimiter:   limiter,
		Logger:        log,
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping scheduler", zap.Error(err))
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := workQueue.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping work queue", zap.Error(err))
	}
	_ = meterProvider.Shutdown(shutdownCtx)
	_ = tracerProvider.Shutdown(shutdownCtx)

	log.Info("Server exited gracefully")
}

// settingDefaults maps deployment config onto setting keys. Tenant values
// and BIZHUB_* variables take precedence.
func settingDefaults(cfg *config.Config) map[string]string {
	defaults := map[string]string{}
	put := func(key, value string) {
		if value != "" {
			defaults[key] = value
		}
	}
	if cfg.Storefront.TaxRate > 0 {
		put(setting.KeyTaxRate, strconv.FormatFloat(cfg.Storefront.TaxRate, 'f', -1, 64))
	}
	put(setting.KeyCurrency, cfg.Storefront.Currency)
	if cfg.Reminder.Delay > 0 {
		put(setting.KeyReminderDelay, strconv.FormatFloat(cfg.Reminder.Delay.Hours(), 'f', -1, 64))
	}
	put(setting.KeySMTPHost, cfg.SMTP.Host)
	if cfg.SMTP.Port > 0 {
		put(setting.KeySMTPPort, strconv.Itoa(cfg.SMTP.Port))
	}
	put(setting.KeySMTPUsername, cfg.SMTP.Username)
	put(setting.KeySMTPPassword, cfg.SMTP.Password)
	put(setting.KeySMTPFrom, cfg.SMTP.From)
	put(setting.KeySMSAPIKey, cfg.SMS.APIKey)
	put(setting.KeySMSSenderID, cfg.SMS.SenderID)
	put(setting.KeyPaymentSecretKey, cfg.Payment.SecretKey)
	return defaults
}
