package core_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database; every test truncates it.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)

	schema, err := os.ReadFile("../../migrations/001_init.sql")
	if err != nil {
		t.Fatalf("Failed to read schema: %v", err)
	}
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		t.Fatalf("Failed to apply schema: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE orders, expenses, area_rates, product_rates, stock, drivers, customers, areas CASCADE;

		INSERT INTO areas (id, area_name) VALUES
		('00000000-0000-0000-0000-0000000000a1', 'Area A'),
		('00000000-0000-0000-0000-0000000000a2', 'Area B');

		INSERT INTO product_rates (product_type, rate_per_kg) VALUES
		('Tukdi', 20), ('Sasiya', 15), ('Tukdi D', 25), ('Sasiya D', 30);

		INSERT INTO stock (product_type, quantity_kg, low_stock_threshold) VALUES
		('Tukdi', 100, 10), ('Sasiya', 100, 10), ('Tukdi D', 100, 10), ('Sasiya D', 5, 10);

		INSERT INTO drivers (id, name, phone, vehicle_number) VALUES
		('00000000-0000-0000-0000-0000000000d1', 'Mohan', '9888800001', 'MP09 AB 1234');
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}
	return pool
}

const (
	areaA   = "00000000-0000-0000-0000-0000000000a1"
	areaB   = "00000000-0000-0000-0000-0000000000a2"
	driverM = "00000000-0000-0000-0000-0000000000d1"
)
