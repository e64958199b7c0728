//go:build integration

// Package integration runs the repositories and services against a real
// PostgreSQL instance. The scenarios here are the ones unit tests cannot
// prove: conditional updates racing each other inside the database.
//
// Run with: go test -tags integration ./tests/integration/
package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/checkout-core/internal/repository"
)

var pool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("checkout"),
		tcpostgres.WithUsername("checkout"),
		tcpostgres.WithPassword("checkout"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("connection string: %v", err)
	}

	pool, err = repository.NewPool(ctx, dsn)
	if err != nil {
		log.Fatalf("create pool: %v", err)
	}
	if err := repository.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	code := m.Run()

	pool.Close()
	if err := testcontainers.TerminateContainer(ctr); err != nil {
		log.Printf("terminate container: %v", err)
	}
	os.Exit(code)
}

// --- Shared fixtures ---

func seedProduct(t *testing.T, price decimal.Decimal) string {
	t.Helper()
	id := uuid.New().String()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (id, name, category_id, seller_id, price) VALUES ($1, $2, $3, $4, $5)`,
		id, fmt.Sprintf("product-%s", id[:8]), "cat-1", "seller-1", price)
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}

func seedOrder(t *testing.T, buyerID string, total decimal.Decimal, status string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO orders (id, buyer_id, seller_id, items, subtotal, discount, total, status)
		 VALUES ($1, $2, 'seller-1', '[]', $3, 0, $3, $4)`,
		id, buyerID, total, status)
	if err != nil {
		t.Fatalf("seed order: %v", err)
	}
	return id
}
