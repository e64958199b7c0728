// Command seed-db prepares a database for local development: it runs
// migrations, loads the product catalog, creates starting inventory rows,
// a demo coupon, and API keys for each role.
package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/checkout-core/internal/repository"
)

type productJSON struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CategoryID string          `json:"categoryId"`
	SellerID   string          `json:"sellerId"`
	Price      decimal.Decimal `json:"price"`
	Stock      int             `json:"stock"`
}

type seedKey struct {
	id        string
	key       string
	name      string
	subjectID string
	role      string
}

func main() {
	var (
		databaseURL  string
		productsFile string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or CHECKOUT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("CHECKOUT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKeys(ctx, pool, pepper); err != nil {
		return errors.Wrap(err, "seed api keys")
	}

	return nil
}

const upsertProductSQL = `
INSERT INTO products (id, name, category_id, seller_id, price)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	category_id = EXCLUDED.category_id,
	seller_id = EXCLUDED.seller_id,
	price = EXCLUDED.price`

const upsertInventorySQL = `
INSERT INTO inventories (id, variant_id, seller_id, quantity, last_updated)
VALUES (gen_random_uuid()::text, $1, $2, $3, now())
ON CONFLICT (variant_id, seller_id) DO UPDATE SET
	quantity = EXCLUDED.quantity,
	last_updated = now()`

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	var products []productJSON
	if err := json.Unmarshal(data, &products); err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		if _, err := pool.Exec(ctx, upsertProductSQL, p.ID, p.Name, p.CategoryID, p.SellerID, p.Price); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		if _, err := pool.Exec(ctx, upsertInventorySQL, p.ID, p.SellerID, p.Stock); err != nil {
			return errors.Wrapf(err, "upsert inventory for product %s", p.ID)
		}

		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	return nil
}

const upsertCouponSQL = `
INSERT INTO coupons (id, code, discount_type, discount_value, applies_to, valid_from, valid_till, active)
VALUES (gen_random_uuid()::text, $1, $2, $3, $4, $5, $6, TRUE)
ON CONFLICT (code) DO UPDATE SET
	discount_type = EXCLUDED.discount_type,
	discount_value = EXCLUDED.discount_value,
	applies_to = EXCLUDED.applies_to,
	valid_from = EXCLUDED.valid_from,
	valid_till = EXCLUDED.valid_till,
	active = TRUE`

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	validFrom := time.Now()
	validTill := validFrom.AddDate(1, 0, 0)

	coupons := []struct {
		code         string
		discountType string
		value        decimal.Decimal
		appliesTo    string
	}{
		{code: "SAVE10", discountType: "percentage", value: decimal.NewFromInt(10), appliesTo: "all"},
		{code: "WELCOME5", discountType: "flat", value: decimal.NewFromInt(5), appliesTo: "all"},
	}

	for _, c := range coupons {
		if _, err := pool.Exec(ctx, upsertCouponSQL,
			c.code, c.discountType, c.value, c.appliesTo, validFrom, validTill); err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code))
	}

	return nil
}

const upsertAPIKeySQL = `
INSERT INTO api_keys (id, key_hash, name, subject_id, role)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (key_hash) DO UPDATE SET
	name = EXCLUDED.name,
	subject_id = EXCLUDED.subject_id,
	role = EXCLUDED.role`

func seedAPIKeys(ctx context.Context, pool *pgxpool.Pool, pepper string) error {
	slog.Info("seeding API keys")

	keys := []seedKey{
		{id: "key-buyer", key: "dev-buyer-key", name: "Dev buyer key", subjectID: "buyer-1", role: "buyer"},
		{id: "key-seller", key: "dev-seller-key", name: "Dev seller key", subjectID: "seller-1", role: "seller"},
		{id: "key-admin", key: "dev-admin-key", name: "Dev admin key", subjectID: "admin-1", role: "admin"},
	}

	for _, k := range keys {
		mac := hmac.New(sha256.New, []byte(pepper))
		mac.Write([]byte(k.key))
		keyHash := hex.EncodeToString(mac.Sum(nil))

		if _, err := pool.Exec(ctx, upsertAPIKeySQL, k.id, keyHash, k.name, k.subjectID, k.role); err != nil {
			return errors.Wrapf(err, "upsert API key %s", k.id)
		}

		slog.Info("upserted API key", slog.String("id", k.id), slog.String("role", k.role))
	}

	return nil
}
