package routes

import (
	"fmt"

	"tourly/internal/bookings"
	"tourly/internal/capacity"
	"tourly/internal/notifications"
	"tourly/internal/payments"
	"tourly/internal/pricing"
	"tourly/internal/refundpolicy"
	"tourly/internal/refunds"
	"tourly/internal/shared/config"
	"tourly/internal/shared/database"
	"tourly/internal/shared/transaction"
	"tourly/internal/storage/memory"
	"tourly/internal/wallet"
	"tourly/pkg/cache"
)

// Services is the wired domain layer shared by the HTTP routes, the
// background jobs and the seed command.
type Services struct {
	Capacity       capacity.Service
	Bookings       bookings.Service
	RefundPolicies refundpolicy.Service
	Refunds        refunds.Service
	Wallet         wallet.Service
	Guard          *payments.WebhookGuard
	Jobs           *bookings.JobProcessor
}

type repositories struct {
	capacity       capacity.Repository
	bookings       bookings.Repository
	refundPolicies refundpolicy.Repository
	refunds        refunds.Repository
	wallet         wallet.Repository
	tx             transaction.Transactor
}

func newRepositories(cfg *config.Config, db *database.DB) (*repositories, error) {
	if cfg.UsesMemoryStorage() {
		store := memory.New()
		return &repositories{
			capacity:       store.Capacity(),
			bookings:       store.Bookings(),
			refundPolicies: store.RefundPolicies(),
			refunds:        store.Refunds(),
			wallet:         store.Wallets(),
			tx:             store,
		}, nil
	}

	pg := db.GetPostgreSQL()
	if pg == nil {
		return nil, fmt.Errorf("storage driver %q needs a PostgreSQL connection", cfg.StorageDriver)
	}
	return &repositories{
		capacity:       capacity.NewRepository(pg),
		bookings:       bookings.NewRepository(pg),
		refundPolicies: refundpolicy.NewRepository(pg),
		refunds:        refunds.NewRepository(pg),
		wallet:         wallet.NewRepository(pg),
		tx:             transaction.NewGormTransactor(pg),
	}, nil
}

// BuildServices wires every service against the configured storage driver.
func BuildServices(cfg *config.Config, db *database.DB, dispatcher notifications.Dispatcher) (*Services, error) {
	repos, err := newRepositories(cfg, db)
	if err != nil {
		return nil, err
	}
	loc := cfg.Location()

	var cacheService cache.Service
	if db.GetRedisClient() != nil {
		cacheService = cache.NewService(db.GetRedisClient())
	}

	capacityService := capacity.NewService(repos.capacity, repos.bookings, cacheService, capacity.Options{
		MaxAttempts: cfg.Booking.CapacityRetryAttempts,
		CacheTTL:    cfg.Redis.AvailabilityCacheTTL,
		Location:    loc,
	})
	policyService := refundpolicy.NewService(repos.refundPolicies, repos.tx)
	walletService := wallet.NewService(repos.wallet, repos.tx)

	var gateway bookings.PaymentGateway
	switch cfg.Payment.Gateway {
	case "stripe":
		gateway = payments.NewStripeGateway(cfg.Payment, cfg.Booking.HoldTTL)
	default:
		gateway = payments.NewMockGateway(cfg.PublicBaseURL, cfg.GetAPIBasePath())
	}

	bookingService := bookings.NewService(bookings.Dependencies{
		Repo:       repos.bookings,
		Capacity:   capacityService,
		Pricing:    pricing.NewEngine(pricingRule(cfg.Pricing), loc),
		Refunds:    policyService,
		Recorder:   refunds.NewRecorder(repos.refunds, nil),
		Gateway:    gateway,
		Revenue:    walletService,
		Dispatcher: dispatcher,
		Tx:         repos.tx,
	}, bookings.Options{
		HoldTTL:         cfg.Booking.HoldTTL,
		CodePrefix:      cfg.Booking.CodePrefix,
		CodeMaxAttempts: cfg.Booking.CodeMaxAttempts,
		TxRetryAttempts: cfg.Booking.TxRetryAttempts,
		Location:        loc,
	})

	return &Services{
		Capacity:       capacityService,
		Bookings:       bookingService,
		RefundPolicies: policyService,
		Refunds:        refunds.NewService(repos.refunds, bookingService, policyService, dispatcher, repos.tx, nil),
		Wallet:         walletService,
		Guard:          payments.NewWebhookGuard(db.GetRedisClient(), cfg.Redis.WebhookClaimTTL),
		Jobs: bookings.NewJobProcessor(bookingService, &bookings.JobConfig{
			HoldSweepInterval:  cfg.Jobs.HoldSweepInterval,
			CompletionInterval: cfg.Jobs.CompletionInterval,
			BatchSize:          cfg.Jobs.BatchSize,
		}),
	}, nil
}

func pricingRule(cfg config.PricingConfig) pricing.Rule {
	return pricing.Rule{
		MinDaysBeforeTour: cfg.MinDaysBeforeTour,
		Tiers: []pricing.Tier{
			{MaxDaysSinceCreated: cfg.FirstTierDays, DiscountPercent: cfg.FirstTierPercent},
			{MaxDaysSinceCreated: cfg.SecondTierDays, DiscountPercent: cfg.SecondTierPercent},
		},
	}
}
