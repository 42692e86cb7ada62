package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"stayledger/internal/app/commands"
	availabilityapp "stayledger/internal/app/handlers/availability"
	bookingapp "stayledger/internal/app/handlers/booking"
	quotesapp "stayledger/internal/app/handlers/quotes"
	walletapp "stayledger/internal/app/handlers/wallet"
	"stayledger/internal/app/middleware"
	appoutbox "stayledger/internal/app/outbox"
	"stayledger/internal/app/policies"
	"stayledger/internal/app/queries"
	authsvc "stayledger/internal/app/services/auth"
	"stayledger/internal/app/settlement"
	"stayledger/internal/app/uow"
	domainactor "stayledger/internal/domain/actor"
	domaincoupon "stayledger/internal/domain/coupon"
	domainledger "stayledger/internal/domain/ledger"
	domainlisting "stayledger/internal/domain/listing"
	domainquote "stayledger/internal/domain/quote"
	"stayledger/internal/domain/shared/money"
	"stayledger/internal/infra/broker/kafka"
	"stayledger/internal/infra/config"
	mongodb "stayledger/internal/infra/db/mongo"
	ginserver "stayledger/internal/infra/http/gin"
	"stayledger/internal/infra/notify"
	"stayledger/internal/infra/obs"
	infraoutbox "stayledger/internal/infra/outbox"
	"stayledger/internal/infra/payment"
	"stayledger/internal/infra/security"
	"stayledger/internal/infra/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	logger := obs.NewLogger(cfg.Env)
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := os.Getenv("LISTINGS_FIXTURES")
	if fixturesPath == "" {
		fixturesPath = filepath.Join("data", "listings.json")
	}
	if err := app.loadFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("fixtures load failed", "error", err, "path", fixturesPath)
	}
	if err := app.seedAdminAccount(ctx, cfg.AdminActorID); err != nil {
		logger.Warn("admin account seed failed", "error", err)
	}

	if app.worker != nil {
		go func() {
			if err := app.worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("outbox worker stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
		if app.producer != nil {
			_ = app.producer.Close()
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers ginserver.Handlers
	worker   *infraoutbox.Worker
	producer *kafka.Producer
	ready    func() error

	listings domainlisting.Repository
	coupons  domaincoupon.Repository
	accounts domainledger.AccountRepository
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{ready: func() error { return nil }}

	var (
		uowFactory uow.UoWFactory
		box        appoutbox.Outbox
		idStore    middleware.IdempotencyStore
		actors     domainactor.Repository
		sessions   domainactor.SessionStore
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		app.listings = mongodb.NewListingRepository(client.DB)
		app.coupons = mongodb.NewCouponRepository(client.DB)
		app.accounts = mongodb.NewAccountRepository(client.DB)
		uowFactory = mongodb.Factory{
			DB:               client.DB,
			ListingsRepo:     app.listings,
			BookingsRepo:     mongodb.NewBookingRepository(client.DB),
			AccountsRepo:     app.accounts,
			TransactionsRepo: mongodb.NewTransactionRepository(client.DB),
			CouponsRepo:      app.coupons,
		}
		store := infraoutbox.NewStore(client.DB)
		box = store
		idStore = mongodb.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		actors = mongodb.NewActorRepository(client.DB)
		sessions = mongodb.NewSessionStore(client.DB)

		if len(cfg.KafkaBrokers) > 0 {
			producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
			if err != nil {
				return nil, fmt.Errorf("kafka producer: %w", err)
			}
			app.producer = producer
			app.worker = &infraoutbox.Worker{
				Store:       store,
				Producer:    producer,
				Interval:    cfg.OutboxPollInterval,
				TopicPrefix: cfg.KafkaTopicPrefix,
				Backoff:     cfg.RetryBackoff,
			}
		} else {
			logger.Warn("no kafka brokers configured, outbox events will accumulate")
		}
	default:
		factory := memory.NewFactory()
		app.listings = factory.Listings()
		app.coupons = factory.Coupons()
		app.accounts = factory.Accounts()
		uowFactory = factory
		box = memory.NewOutbox()
		idStore = memory.NewIdempotencyStore(cfg.IdempotencyTTL)
		actors = memory.NewActorRepository()
		sessions = memory.NewSessionStore()
	}

	var payments policies.PaymentsPort
	if cfg.PaygateURL != "" {
		payments = payment.NewGateway(cfg.PaygateURL, cfg.PaygateTimeout, logger)
	} else {
		logger.Info("no payment gateway configured, using stub")
		payments = payment.NewStubGateway()
	}

	var notifier policies.NotifierPort
	if cfg.SMTPHost != "" {
		notifier = notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPPassword)
	} else {
		notifier = notify.LogNotifier{Logger: logger}
	}

	encoder := appoutbox.JSONEventEncoder{}
	engine := &settlement.Engine{
		AdminActorID: cfg.AdminActorID,
		AdminAccount: cfg.AdminPayoutAccount,
		FeePercent:   cfg.ServiceFeePercent,
		Payments:     payments,
		Outbox:       box,
		Encoder:      encoder,
		Logger:       logger,
	}
	calculator := domainquote.Calculator{FeePercent: cfg.ServiceFeePercent}

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.RequestBookingCommand{}.Key(), &bookingapp.RequestBookingHandler{
		UoWFactory:   uowFactory,
		Calculator:   calculator,
		Engine:       engine,
		CancelWindow: cfg.CancelWindow,
		Outbox:       box,
		Encoder:      encoder,
		Notifier:     notifier,
		Logger:       logger,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingCommand{}.Key(), &bookingapp.CancelBookingHandler{
		UoWFactory: uowFactory,
		Engine:     engine,
		Outbox:     box,
		Encoder:    encoder,
		Notifier:   notifier,
		Logger:     logger,
	})
	hostActions := &bookingapp.HostActionsHandler{
		UoWFactory: uowFactory,
		Outbox:     box,
		Encoder:    encoder,
		Notifier:   notifier,
		Logger:     logger,
	}
	commands.RegisterHandler(commandBus, bookingapp.ApproveBookingCommand{}.Key(),
		commands.HandlerFunc[bookingapp.ApproveBookingCommand, *bookingapp.HostActionResult](hostActions.HandleApprove))
	commands.RegisterHandler(commandBus, bookingapp.DeclineBookingCommand{}.Key(),
		commands.HandlerFunc[bookingapp.DeclineBookingCommand, *bookingapp.HostActionResult](hostActions.HandleDecline))
	commands.RegisterHandler(commandBus, walletapp.CashInCommand{}.Key(), &walletapp.CashInHandler{
		UoWFactory: uowFactory,
		Payments:   payments,
		Engine:     engine,
	})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, availabilityapp.CheckAvailabilityQuery{}.Key(), &availabilityapp.CheckAvailabilityHandler{
		UoWFactory: uowFactory,
	})
	queries.RegisterHandler(queryBus, quotesapp.GetQuoteQuery{}.Key(), &quotesapp.GetQuoteHandler{
		UoWFactory: uowFactory,
		Calculator: calculator,
	})
	listBookings := &bookingapp.ListBookingsHandler{UoWFactory: uowFactory, Outbox: box, Encoder: encoder}
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListGuestBookingsQuery, *bookingapp.ListBookingsResult](listBookings.HandleGuest))
	queries.RegisterHandler(queryBus, bookingapp.ListHostBookingsQuery{}.Key(),
		queries.HandlerFunc[bookingapp.ListHostBookingsQuery, *bookingapp.ListBookingsResult](listBookings.HandleHost))
	walletQueries := &walletapp.WalletQueryHandler{UoWFactory: uowFactory}
	queries.RegisterHandler(queryBus, walletapp.GetWalletQuery{}.Key(),
		queries.HandlerFunc[walletapp.GetWalletQuery, *walletapp.GetWalletResult](walletQueries.HandleGet))
	queries.RegisterHandler(queryBus, walletapp.ListTransactionsQuery{}.Key(),
		queries.HandlerFunc[walletapp.ListTransactionsQuery, *walletapp.ListTransactionsResult](walletQueries.HandleTransactions))

	commandBusWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Idempotency(idStore, nil),
		middleware.Transaction(uowFactory, nil),
		middleware.OutboxFlush(box),
	)
	queryBusWithMiddleware := middleware.ChainQueries(queryBus)

	authService := &authsvc.Service{
		Actors:     actors,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	app.handlers = ginserver.Handlers{
		Booking:      ginserver.BookingHandler{Commands: commandBusWithMiddleware},
		Host:         ginserver.HostHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware, Logger: logger},
		Availability: ginserver.AvailabilityHandler{Queries: queryBusWithMiddleware},
		Quote:        ginserver.QuoteHandler{Queries: queryBusWithMiddleware},
		Wallet:       ginserver.WalletHandler{Commands: commandBusWithMiddleware, Queries: queryBusWithMiddleware},
		Me:           ginserver.MeHandler{Queries: queryBusWithMiddleware, Logger: logger},
		Auth:         &ginserver.AuthHandler{Service: authService, Logger: logger},
		AuthMiddleware: ginserver.AuthMiddleware{
			Service: authService,
			Logger:  logger,
		}.Handle,
	}
	return app, nil
}

// seedAdminAccount makes sure the platform commission account exists so
// the first settlement does not have to create it mid-flight.
func (a *application) seedAdminAccount(ctx context.Context, adminID string) error {
	if adminID == "" {
		return nil
	}
	if _, err := a.accounts.ByActor(ctx, adminID); err == nil {
		return nil
	} else if !errors.Is(err, domainledger.ErrAccountNotFound) {
		return err
	}
	return a.accounts.Save(ctx, domainledger.NewAccount(adminID, domainledger.RoleAdmin, time.Now()))
}

type listingFixture struct {
	ID            string `json:"id"`
	Host          string `json:"host"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	PriceCentavos int64  `json:"price_centavos"`
	GuestCapacity int    `json:"guest_capacity"`
}

type couponFixture struct {
	ID        string `json:"id"`
	GuestID   string `json:"guest_id"`
	Percent   int    `json:"percent"`
	ValidFrom string `json:"valid_from"`
	ValidTo   string `json:"valid_to"`
}

type fixtureFile struct {
	Listings []listingFixture `json:"listings"`
	Coupons  []couponFixture  `json:"coupons"`
}

func (a *application) loadFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}
	var fixtures fixtureFile
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	for _, fx := range fixtures.Listings {
		l, err := domainlisting.New(domainlisting.CreateParams{
			ID:            domainlisting.ListingID(fx.ID),
			Host:          domainlisting.HostID(fx.Host),
			Title:         fx.Title,
			Description:   fx.Description,
			Category:      domainlisting.Category(fx.Category),
			Price:         money.PHP(fx.PriceCentavos),
			GuestCapacity: fx.GuestCapacity,
			Now:           now,
		})
		if err != nil {
			logger.Error("listing fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		if err := a.listings.Save(ctx, l); err != nil {
			logger.Error("cannot store fixture listing", "listing_id", fx.ID, "error", err)
			continue
		}
		logger.Info("listing fixture imported", "listing_id", l.ID)
	}
	for _, fx := range fixtures.Coupons {
		validFrom := parseFixtureTime(fx.ValidFrom, now)
		validTo := parseFixtureTime(fx.ValidTo, now.Add(365*24*time.Hour))
		c, err := domaincoupon.New(domaincoupon.CouponID(fx.ID), fx.GuestID, fx.Percent, validFrom, validTo, now)
		if err != nil {
			logger.Error("coupon fixture invalid", "coupon_id", fx.ID, "error", err)
			continue
		}
		if err := a.coupons.Save(ctx, c); err != nil {
			logger.Error("cannot store fixture coupon", "coupon_id", fx.ID, "error", err)
			continue
		}
		logger.Info("coupon fixture imported", "coupon_id", c.ID)
	}
	return nil
}

func parseFixtureTime(value string, fallback time.Time) time.Time {
	if value == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return fallback
}
