package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"tourly/api/routes"
	"tourly/internal/capacity"
	"tourly/internal/notifications"
	"tourly/internal/shared/config"
	"tourly/internal/shared/database"
	"tourly/internal/shared/middleware"
	"tourly/internal/users"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

type Seeder struct {
	cfg      *config.Config
	db       *database.DB
	services *routes.Services
}

func main() {
	fmt.Println("🌱 Starting Tourly Database Seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	services, err := routes.BuildServices(cfg, db, notifications.NewLogDispatcher(nil))
	if err != nil {
		log.Fatalf("Failed to wire services: %v", err)
	}

	seeder := &Seeder{cfg: cfg, db: db, services: services}

	if db.GetPostgreSQL() != nil {
		fmt.Println("\n🧹 Cleaning database...")
		if err := seeder.CleanDatabase(); err != nil {
			log.Fatalf("Failed to clean database: %v", err)
		}
		fmt.Println("✅ Database cleaned successfully")
	}

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(context.Background()); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}

	fmt.Println("\n🎉 Seeding completed! Database is ready for testing.")
}

// CleanDatabase truncates the booking tables, children first.
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"refund_timeline_entries",
		"tour_booking_refunds",
		"wallet_entries",
		"guide_wallets",
		"tour_bookings",
		"tour_slots",
		"tour_operations",
		"refund_policies",
	}

	tx := s.db.PostgreSQL.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, table := range tables {
		fmt.Printf("  Truncating table: %s\n", table)
		if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}

	return tx.Commit().Error
}

// SeedAll installs the default refund policies, one published operation with
// two weeks of departures, and prints development tokens for each role.
func (s *Seeder) SeedAll(ctx context.Context) error {
	count, err := s.services.RefundPolicies.SeedDefaults(ctx)
	if err != nil {
		return fmt.Errorf("failed to seed refund policies: %w", err)
	}
	fmt.Printf("  Refund policies: %d\n", count)

	admin := users.Actor{ID: uuid.New(), Role: users.RoleAdmin}
	guide := users.Actor{ID: uuid.New(), Role: users.RoleGuide}
	customer := users.Actor{ID: uuid.New(), Role: users.RoleCustomer}

	op, err := s.services.Capacity.CreateOperation(ctx, admin, capacity.CreateOperationRequest{
		TourListingID: uuid.New(),
		GuideID:       guide.ID,
		Title:         "Old Town Walking Tour",
		BasePrice:     45,
		MaxGuests:     12,
		Publish:       true,
	})
	if err != nil {
		return fmt.Errorf("failed to seed operation: %w", err)
	}
	fmt.Printf("  Operation: %s (%s)\n", op.Title, op.ID)

	start := time.Now().In(s.cfg.Location()).AddDate(0, 0, 10)
	dates := make([]string, 0, 14)
	for i := 0; i < 14; i++ {
		dates = append(dates, start.AddDate(0, 0, i).Format("2006-01-02"))
	}
	slots, err := s.services.Capacity.AddSlots(ctx, admin, op.ID, capacity.AddSlotsRequest{Dates: dates})
	if err != nil {
		return fmt.Errorf("failed to seed slots: %w", err)
	}
	fmt.Printf("  Slots: %d starting %s\n", len(slots), dates[0])

	fmt.Println("\n🔑 Development tokens:")
	for name, actor := range map[string]users.Actor{"admin": admin, "guide": guide, "customer": customer} {
		token, err := middleware.IssueAccessToken(s.cfg.JWT.Secret, actor.ID, name+"@tourly.local", actor.Role, 24*time.Hour)
		if err != nil {
			return fmt.Errorf("failed to issue %s token: %w", name, err)
		}
		fmt.Printf("  %-8s %s\n", name, token)
	}
	return nil
}
