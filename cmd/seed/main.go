package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/rs/zerolog"

	"xpanel/internal/config"
	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/infra/api"
	pg "xpanel/internal/infra/db/postgres"
	"xpanel/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	adminEmail := flag.String("admin-email", "admin@example.com", "email of the admin account to ensure")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	logger := zerolog.Nop()
	planUC := usecase.NewPlanUseCase(pg.NewPostgresPlanRepo(pool), &logger)

	// If plans already exist, leave them alone
	plans, err := planUC.List(ctx, false)
	if err != nil {
		log.Fatalf("list plans: %v", err)
	}
	if len(plans) > 0 {
		fmt.Printf("%d plans already present. No changes.\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  - %s (days=%d, traffic=%dGB, devices=%d, price=%d)\n", p.Name, p.DurationDays, p.TrafficGB, p.DeviceLimit, p.Price)
		}
	} else {
		seed := []usecase.PlanInput{
			{Name: "Monthly", DurationDays: 30, TrafficGB: 100, DeviceLimit: 3, Price: 1999},
			{Name: "Quarterly", DurationDays: 90, TrafficGB: 300, DeviceLimit: 3, Price: 4999},
			{Name: "Yearly", DurationDays: 365, TrafficGB: 1200, DeviceLimit: 5, Price: 17999},
		}
		for _, in := range seed {
			p, err := planUC.Create(ctx, in)
			if err != nil {
				log.Fatalf("create plan %q: %v", in.Name, err)
			}
			fmt.Printf("seeded: %s (id=%d, days=%d, traffic=%dGB, price=%d)\n", p.Name, p.ID, p.DurationDays, p.TrafficGB, p.Price)
		}
	}

	// ---- Admin account ----
	accounts := pg.NewPostgresAccountRepo(pool)
	admin, err := model.NewGuestAccount(*adminEmail)
	if err != nil {
		log.Fatalf("admin email: %v", err)
	}
	admin.Role = model.RoleAdmin
	created, err := accounts.Create(ctx, repository.NoTX, admin)
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}
	if !created {
		if admin, err = accounts.FindByEmail(ctx, repository.NoTX, admin.Email); err != nil {
			log.Fatalf("load admin: %v", err)
		}
		if !admin.IsAdmin() {
			log.Fatalf("%s exists but is not an admin", admin.Email)
		}
	}

	tok, err := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL).Mint(admin.ID, admin.Email, admin.Role)
	if err != nil {
		log.Fatalf("mint token: %v", err)
	}
	fmt.Printf("admin: %s (id=%d)\n", admin.Email, admin.ID)
	fmt.Printf("bearer token (valid %s):\n%s\n", cfg.Auth.TokenTTL, tok)
	fmt.Println("Seeding complete.")
}
