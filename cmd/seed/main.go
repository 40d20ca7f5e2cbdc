// seed inserts development accounts for local testing. Run via ./scripts/seed.sh.
// Idempotent: skips inserts if the dev phone number already has an account.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"goodies-auth/internal/config"
	"goodies-auth/internal/db"
	"goodies-auth/internal/security"
	"goodies-auth/internal/user/domain"
	userrepo "goodies-auth/internal/user/repository"
)

const (
	devUserID    = "dev-user-001"
	devUser2ID   = "dev-user-002"
	devPhone     = "15550000001"
	memberPhone  = "15550000002"
	devPIN       = "1234"
	devPromoCode = "WELCOME"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	users := userrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := users.GetByPhone(ctx, devPhone)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Printf("Seed already applied (%s exists). Skipping.", devPhone)
		os.Exit(0)
	}

	pinHash, err := security.NewHasher(cfg.BcryptCost).Hash([]byte(devPIN))
	if err != nil {
		log.Fatalf("hash pin: %v", err)
	}

	now := time.Now().UTC()
	seedUsers := []*domain.User{
		{
			ID:          devUserID,
			PhoneNumber: devPhone,
			Name:        "Dev User",
			PINHash:     pinHash,
			ExtraInfo:   domain.ExtraInfo{PromoCode: devPromoCode, UserType: domain.UserTypeVegan},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		{
			// No PIN: logging in requires SetPin first.
			ID:          devUser2ID,
			PhoneNumber: memberPhone,
			Name:        "Member User",
			ExtraInfo:   domain.ExtraInfo{UserType: domain.UserTypeExploring},
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	for _, u := range seedUsers {
		if err := u.Validate(); err != nil {
			log.Fatalf("seed user %s: %v", u.ID, err)
		}
		if err := users.Create(ctx, u); err != nil {
			log.Fatalf("create user %s: %v", u.ID, err)
		}
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Dev login: %s / PIN %s\n", devPhone, devPIN)
	fmt.Printf("Member login: %s (no PIN)\n", memberPhone)
}
