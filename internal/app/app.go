// Package app assembles the booking engine from configuration. Both the API
// server and the cron runner start from here.
package app

import (
	"context"
	"fmt"
	"time"

	"stationrent-backend/internal/clock"
	"stationrent-backend/internal/config"
	"stationrent-backend/internal/events"
	"stationrent-backend/internal/jobs"
	"stationrent-backend/internal/lock"
	"stationrent-backend/internal/logger"
	"stationrent-backend/internal/payment"
	"stationrent-backend/internal/repository"
	"stationrent-backend/internal/repository/memory"
	"stationrent-backend/internal/repository/postgres"
	"stationrent-backend/internal/scheduler"
	"stationrent-backend/internal/security"
	"stationrent-backend/internal/service"
)

const dbConnectTimeout = 10 * time.Second

// Repositories is the storage backend selected by database.driver.
type Repositories struct {
	Stations      repository.StationRepository
	VehicleTypes  repository.VehicleTypeRepository
	Vehicles      repository.VehicleRepository
	Bookings      repository.BookingRepository
	Payments      repository.PaymentRepository
	Users         repository.UserRepository
	Wallet        repository.WalletRepository
	Notifications repository.NotificationRepository
}

type App struct {
	Config *config.Config
	Clock  clock.Clock
	Repos  Repositories

	Booking       service.BookingService
	Availability  service.AvailabilityService
	Catalog       service.CatalogService
	Wallet        service.WalletService
	Notifications service.NotificationService
	Dispatcher    *service.Dispatcher
	Tokens        security.TokenManager

	// MockGateway is set when payment.mode is "mock".
	MockGateway *payment.MockGateway

	closers []func()
}

// New connects every configured backend and wires the services. Optional
// channels (NSQ, SendGrid, Twilio, Redis) are skipped when unconfigured.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg, Clock: clock.System()}

	if err := a.openRepositories(ctx); err != nil {
		a.Close()
		return nil, err
	}

	locker, err := a.newLocker()
	if err != nil {
		a.Close()
		return nil, err
	}

	gateway, err := a.newGateway()
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher, err := a.newPublisher()
	if err != nil {
		a.Close()
		return nil, err
	}

	var email service.EmailService
	if cfg.SendGrid.APIKey != "" {
		email = service.NewSendGridEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromName, cfg.SendGrid.FromEmail)
		logger.Info("Email notifications enabled", "from", cfg.SendGrid.FromEmail)
	}
	var sms service.SMSService
	if cfg.Twilio.AccountSID != "" {
		sms = service.NewTwilioSMSService(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.From)
		logger.Info("SMS notifications enabled", "from", cfg.Twilio.From)
	}

	r := a.Repos
	loc := cfg.Location()
	a.Dispatcher = service.NewDispatcher(r.Notifications, r.Users, email, sms, publisher, a.Clock)
	a.closers = append(a.closers, a.Dispatcher.Wait)

	a.Availability = service.NewAvailabilityService(r.Stations, r.VehicleTypes, r.Vehicles, a.Clock, loc)
	wallet := service.NewWallet(r.Wallet, a.Clock)
	a.Booking = service.NewBookingService(service.BookingDeps{
		Bookings:     r.Bookings,
		Payments:     r.Payments,
		Stations:     r.Stations,
		VehicleTypes: r.VehicleTypes,
		Vehicles:     r.Vehicles,
		Availability: a.Availability,
		Settlement:   service.NewSettlementService(r.Bookings, r.Payments, wallet, a.Clock, cfg.Booking.LateFeePercent),
		Identity:     service.NewIdentityVerifier(r.Users, a.Clock),
		Gateway:      gateway,
		Locker:       locker,
		Notifier:     a.Dispatcher,
		Clock:        a.Clock,
	}, service.BookingConfig{PaymentWindow: cfg.PaymentWindow(), Location: loc})
	a.Catalog = service.NewCatalogService(r.Stations, r.VehicleTypes, r.Vehicles, a.Clock)
	a.Wallet = service.NewWalletService(r.Wallet, a.Clock)
	a.Notifications = service.NewNotificationService(r.Notifications)
	a.Tokens = security.NewTokenManager(cfg.JWT.Secret, cfg.AccessTokenTTL())

	return a, nil
}

func (a *App) openRepositories(ctx context.Context) error {
	cfg := a.Config
	if cfg.Database.Driver == "memory" {
		logger.Warn("Using in-memory storage, data is lost on exit")
		s := memory.NewStore()
		a.Repos = Repositories{s.StationRepository, s.VehicleTypeRepository, s.VehicleRepository, s.BookingRepository, s.PaymentRepository, s.UserRepository, s.WalletRepository, s.NotificationRepository}
		return nil
	}

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port, "database", cfg.Database.Database, "user", cfg.Database.User)
	db, err := postgres.Open(ctx, cfg.GetDatabaseConnectionString(), dbConnectTimeout)
	if err != nil {
		return err
	}
	logger.Info("Database connection established")
	s := postgres.NewStore(db)
	a.closers = append(a.closers, func() { s.Close() })
	a.Repos = Repositories{s.StationRepository, s.VehicleTypeRepository, s.VehicleRepository, s.BookingRepository, s.PaymentRepository, s.UserRepository, s.WalletRepository, s.NotificationRepository}
	return nil
}

func (a *App) newLocker() (lock.Locker, error) {
	cfg := a.Config.Redis
	if cfg.Addr == "" {
		logger.Info("Using in-process vehicle lock")
		return lock.NewLocal(), nil
	}
	client, err := lock.NewRedisClient(cfg.Addr, cfg.Password, cfg.DB)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { client.Close() })
	logger.Info("Using Redis vehicle lock", "addr", cfg.Addr, "ttl", a.Config.LockTTL())
	return lock.NewRedis(client, a.Config.LockTTL()), nil
}

func (a *App) newGateway() (payment.Gateway, error) {
	cfg := a.Config.Payment
	switch cfg.Mode {
	case "stripe":
		logger.Info("Using Stripe Checkout for deposits", "currency", cfg.Currency)
		return payment.NewStripeGateway(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Currency:      cfg.Currency,
		}), nil
	case "mock":
		baseURL := cfg.MockBaseURL
		if baseURL == "" {
			baseURL = fmt.Sprintf("http://localhost:%d/mock-pay", a.Config.Server.Port)
		}
		logger.Warn("Using mock payment gateway", "url", baseURL)
		a.MockGateway = payment.NewMockGateway(cfg.MockSecret, baseURL)
		return a.MockGateway, nil
	}
	return nil, fmt.Errorf("unknown payment mode: %s", cfg.Mode)
}

// newPublisher returns nil when NSQ is not configured. The nil is an untyped
// interface so the dispatcher can test for it.
func (a *App) newPublisher() (service.EventPublisher, error) {
	cfg := a.Config.NSQ
	if cfg.Address == "" {
		return nil, nil
	}
	producer, err := events.NewProducer(cfg.Address, cfg.Topic)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, producer.Stop)
	logger.Info("Publishing booking events to NSQ", "address", cfg.Address, "topic", cfg.Topic)
	return producer, nil
}

// JobRunner builds the scheduled jobs over this application's services.
func (a *App) JobRunner() *jobs.JobRunner {
	return jobs.NewJobRunner(&jobs.Services{
		Booking:  a.Booking,
		Notifier: a.Dispatcher,
		Bookings: a.Repos.Bookings,
		Clock:    a.Clock,
	}, a.Config)
}

// InProcessScheduler returns the job scheduler the API server must run itself
// when storage is in memory, where a separate cron process cannot see its
// bookings. It returns nil for shared storage.
func (a *App) InProcessScheduler() *scheduler.Scheduler {
	if a.Config.Database.Driver != "memory" {
		return nil
	}
	return scheduler.NewScheduler(a.JobRunner())
}

// Close drains pending notifications and releases connections in reverse
// order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
