//go:build integration

package postgres

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"xpanel/internal/domain/model"
	"xpanel/internal/domain/ports/repository"
	"xpanel/internal/infra/db/migrations"
)

var testPool *pgxpool.Pool

var readCommitted = pgx.TxOptions{IsoLevel: pgx.ReadCommitted}

func TestMain(m *testing.M) {
	ctx := context.Background()
	dbName := "test-db"
	dbUser := "user"
	dbPassword := "password"
	dbPort := "5432"

	// 1. Start the container
	cmd := exec.Command("docker", "run", "-d", "--rm",
		"--network", "host",
		"-e", fmt.Sprintf("POSTGRES_DB=%s", dbName),
		"-e", fmt.Sprintf("POSTGRES_USER=%s", dbUser),
		"-e", fmt.Sprintf("POSTGRES_PASSWORD=%s", dbPassword),
		"postgres:14",
	)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		log.Fatalf("could not start postgres container: %v. Is Docker running?", err)
	}
	containerID := strings.TrimSpace(out.String())[:12]

	// 2. Wait for readiness and connect
	connStr := fmt.Sprintf("postgres://%s:%s@localhost:%s/%s?sslmode=disable", dbUser, dbPassword, dbPort, dbName)
	var err error
	const maxRetries = 15
	for i := 0; i < maxRetries; i++ {
		testPool, err = pgxpool.Connect(ctx, connStr)
		if err == nil {
			if err = testPool.Ping(ctx); err == nil {
				break
			}
			testPool.Close()
		}
		log.Printf("Waiting for database to be ready... (attempt %d/%d)", i+1, maxRetries)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		// If we can't connect, still try to stop the container before failing.
		exec.Command("docker", "stop", containerID).Run()
		log.Fatalf("Unable to connect to test database after multiple retries: %v\n", err)
	}

	// 3. Apply Schema
	if err := migrations.Up(connStr); err != nil {
		exec.Command("docker", "stop", containerID).Run()
		log.Fatalf("could not apply migrations: %v", err)
	}
	log.Println("Test database is ready.")

	// 4. Run Tests and capture the exit code
	exitCode := m.Run()

	// 5. Cleanup: Close the pool and stop the container *before* exiting.
	testPool.Close()
	log.Println("Stopping test container...")
	if err := exec.Command("docker", "stop", containerID).Run(); err != nil {
		log.Printf("could not stop postgres container %s: %v", containerID, err)
	}

	os.Exit(exitCode)
}

func cleanup(t *testing.T) {
	t.Helper()
	_, err := testPool.Exec(context.Background(), `
		TRUNCATE
			withdrawals, commissions, subscriptions, redemption_codes, accounts, plans
		RESTART IDENTITY CASCADE
	`)
	if err != nil {
		t.Fatalf("Failed to clean up database: %v", err)
	}
}

// --- fixtures ---

func mustPlan(t *testing.T, name string, days int, price int64) *model.Plan {
	t.Helper()
	p, err := model.NewPlan(name, days, 100, 3, price)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	if err := NewPostgresPlanRepo(testPool).Save(context.Background(), repository.NoTX, p); err != nil {
		t.Fatalf("save plan: %v", err)
	}
	return p
}

func mustAccount(t *testing.T, email string, referredBy *int64) *model.Account {
	t.Helper()
	a, err := model.NewGuestAccount(email)
	if err != nil {
		t.Fatalf("NewGuestAccount: %v", err)
	}
	a.ReferredBy = referredBy
	ok, err := NewPostgresAccountRepo(testPool).Create(context.Background(), repository.NoTX, a)
	if err != nil || !ok {
		t.Fatalf("create account %s: ok=%v err=%v", email, ok, err)
	}
	return a
}

func mustCode(t *testing.T, code string, planID int64, expiresAt *time.Time) *model.RedemptionCode {
	t.Helper()
	c, err := model.NewRedemptionCode(code, planID, "batch", expiresAt, nil)
	if err != nil {
		t.Fatalf("NewRedemptionCode: %v", err)
	}
	ok, err := NewRedemptionCodeRepo(testPool).Insert(context.Background(), repository.NoTX, c)
	if err != nil || !ok {
		t.Fatalf("insert code %s: ok=%v err=%v", code, ok, err)
	}
	return c
}
