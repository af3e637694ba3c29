package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// InventoryService manages stock counters, product varieties, and their rates.
type InventoryService interface {
	GetStock(ctx context.Context) ([]StockItem, error)
	// AddStock increments the counter for a delivery received into the warehouse.
	AddStock(ctx context.Context, productType string, qty decimal.Decimal) (*StockItem, error)
	// CorrectStock overwrites the counter after a manual count.
	CorrectStock(ctx context.Context, productType string, qty decimal.Decimal) (*StockItem, error)

	// CreateVariety adds zeroed stock and rate rows for a new product type.
	CreateVariety(ctx context.Context, productType string) error
	// DeleteVariety is refused while any order line references the product type.
	DeleteVariety(ctx context.Context, productType string) error
	Varieties(ctx context.Context) ([]string, error)

	ListProductRates(ctx context.Context) ([]ProductRate, error)
	SetProductRate(ctx context.Context, productType string, rate decimal.Decimal) (*ProductRate, error)
	// ListAreaRates returns one entry per known variety; varieties without an override read as zero.
	ListAreaRates(ctx context.Context, areaID string) ([]AreaRate, error)
	// SetAreaRates upserts every given override for the area in one transaction.
	SetAreaRates(ctx context.Context, areaID string, rates map[string]decimal.Decimal) error
	ResolveRate(ctx context.Context, productType, areaID string) (decimal.Decimal, error)
}

type inventoryService struct {
	pool *pgxpool.Pool
}

// NewInventoryService constructs an InventoryService backed by PostgreSQL.
func NewInventoryService(pool *pgxpool.Pool) InventoryService {
	return &inventoryService{pool: pool}
}

// adjustStock applies a signed delta in one statement so concurrent writers cannot lose updates.
// Sentinel types and zero deltas are skipped; a type without a stock row is a no-op.
func adjustStock(ctx context.Context, q pgxQuerier, productType string, delta decimal.Decimal) error {
	if !TracksStock(productType) || delta.IsZero() {
		return nil
	}
	_, err := q.Exec(ctx, `
		UPDATE stock SET quantity_kg = quantity_kg + $1, last_updated = now()
		WHERE product_type = $2
	`, delta, productType)
	if err != nil {
		return fmt.Errorf("failed to adjust stock for %s by %s: %w", productType, delta.String(), err)
	}
	return nil
}

func scanStock(row pgx.Row) (*StockItem, error) {
	st := &StockItem{}
	if err := row.Scan(&st.ID, &st.ProductType, &st.Quantity, &st.LowStockThreshold, &st.LastUpdated); err != nil {
		return nil, err
	}
	st.IsLow = st.Quantity.LessThanOrEqual(st.LowStockThreshold)
	return st, nil
}

func (s *inventoryService) GetStock(ctx context.Context) ([]StockItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, product_type, quantity_kg, low_stock_threshold, last_updated
		FROM stock
		ORDER BY product_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock: %w", err)
	}
	defer rows.Close()

	var items []StockItem
	for rows.Next() {
		st, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock row: %w", err)
		}
		items = append(items, *st)
	}
	return items, rows.Err()
}

func (s *inventoryService) AddStock(ctx context.Context, productType string, qty decimal.Decimal) (*StockItem, error) {
	if !qty.IsPositive() {
		return nil, validationErr("quantity to add must be greater than zero")
	}
	return s.writeStock(ctx, `
		UPDATE stock SET quantity_kg = quantity_kg + $1, last_updated = now()
		WHERE product_type = $2
		RETURNING id::text, product_type, quantity_kg, low_stock_threshold, last_updated
	`, productType, qty)
}

func (s *inventoryService) CorrectStock(ctx context.Context, productType string, qty decimal.Decimal) (*StockItem, error) {
	if qty.IsNegative() {
		return nil, validationErr("corrected quantity cannot be negative")
	}
	return s.writeStock(ctx, `
		UPDATE stock SET quantity_kg = $1, last_updated = now()
		WHERE product_type = $2
		RETURNING id::text, product_type, quantity_kg, low_stock_threshold, last_updated
	`, productType, qty)
}

func (s *inventoryService) writeStock(ctx context.Context, sql, productType string, qty decimal.Decimal) (*StockItem, error) {
	st, err := scanStock(s.pool.QueryRow(ctx, sql, qty, productType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErr("stock for %s", productType)
		}
		return nil, fmt.Errorf("failed to update stock for %s: %w", productType, err)
	}
	return st, nil
}

func (s *inventoryService) CreateVariety(ctx context.Context, productType string) error {
	productType = strings.TrimSpace(productType)
	if productType == "" {
		return validationErr("variety name is required")
	}
	if IsManualRate(productType) {
		return validationErr("%q is reserved", productType)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stockTag, err := tx.Exec(ctx, `
		INSERT INTO stock (product_type, quantity_kg) VALUES ($1, 0)
		ON CONFLICT (product_type) DO NOTHING
	`, productType)
	if err != nil {
		return fmt.Errorf("failed to create stock row for %s: %w", productType, err)
	}
	rateTag, err := tx.Exec(ctx, `
		INSERT INTO product_rates (product_type, rate_per_kg) VALUES ($1, 0)
		ON CONFLICT (product_type) DO NOTHING
	`, productType)
	if err != nil {
		return fmt.Errorf("failed to create rate row for %s: %w", productType, err)
	}
	if stockTag.RowsAffected() == 0 && rateTag.RowsAffected() == 0 {
		return validationErr("variety %q already exists", productType)
	}
	return tx.Commit(ctx)
}

func (s *inventoryService) DeleteVariety(ctx context.Context, productType string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var lines int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE product_type = $1`, productType).Scan(&lines); err != nil {
		return fmt.Errorf("failed to count order lines for %s: %w", productType, err)
	}
	if lines > 0 {
		return refusedErr("variety %s is used by %d order line(s)", productType, lines)
	}

	var removed int64
	for _, sql := range []string{
		`DELETE FROM area_rates WHERE product_type = $1`,
		`DELETE FROM product_rates WHERE product_type = $1`,
		`DELETE FROM stock WHERE product_type = $1`,
	} {
		tag, err := tx.Exec(ctx, sql, productType)
		if err != nil {
			return fmt.Errorf("failed to delete variety %s: %w", productType, err)
		}
		removed += tag.RowsAffected()
	}
	if removed == 0 {
		return notFoundErr("variety %s", productType)
	}
	return tx.Commit(ctx)
}

func (s *inventoryService) Varieties(ctx context.Context) ([]string, error) {
	return varieties(ctx, s.pool)
}

func varieties(ctx context.Context, q pgxQuerier) ([]string, error) {
	rows, err := q.Query(ctx, `
		SELECT product_type FROM product_rates
		UNION
		SELECT product_type FROM stock
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query varieties: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan variety: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	SortVarieties(out)
	return out, nil
}

// SortVarieties orders the fixed slots first, in slot order, then the rest alphabetically.
func SortVarieties(list []string) {
	rank := func(p string) int {
		for i, slot := range ProductSlots {
			if slot == p {
				return i
			}
		}
		return len(ProductSlots)
	}
	sort.SliceStable(list, func(i, j int) bool {
		ri, rj := rank(list[i]), rank(list[j])
		if ri != rj {
			return ri < rj
		}
		return list[i] < list[j]
	})
}

func (s *inventoryService) ListProductRates(ctx context.Context) ([]ProductRate, error) {
	rows, err := s.pool.Query(ctx, `SELECT product_type, rate_per_kg, updated_at FROM product_rates`)
	if err != nil {
		return nil, fmt.Errorf("failed to query product rates: %w", err)
	}
	defer rows.Close()

	var rates []ProductRate
	for rows.Next() {
		var r ProductRate
		if err := rows.Scan(&r.ProductType, &r.Rate, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product rate: %w", err)
		}
		rates = append(rates, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	order := make([]string, len(rates))
	for i, r := range rates {
		order[i] = r.ProductType
	}
	SortVarieties(order)
	byType := make(map[string]ProductRate, len(rates))
	for _, r := range rates {
		byType[r.ProductType] = r
	}
	for i, p := range order {
		rates[i] = byType[p]
	}
	return rates, nil
}

func (s *inventoryService) SetProductRate(ctx context.Context, productType string, rate decimal.Decimal) (*ProductRate, error) {
	if err := validateAmount("rate", rate); err != nil {
		return nil, err
	}
	if IsManualRate(productType) {
		return nil, validationErr("%s is priced by hand", productType)
	}
	var r ProductRate
	err := s.pool.QueryRow(ctx, `
		INSERT INTO product_rates (product_type, rate_per_kg) VALUES ($1, $2)
		ON CONFLICT (product_type) DO UPDATE SET rate_per_kg = EXCLUDED.rate_per_kg, updated_at = now()
		RETURNING product_type, rate_per_kg, updated_at
	`, productType, rate).Scan(&r.ProductType, &r.Rate, &r.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to set rate for %s: %w", productType, err)
	}
	return &r, nil
}

func (s *inventoryService) ListAreaRates(ctx context.Context, areaID string) ([]AreaRate, error) {
	if err := checkID("area", areaID); err != nil {
		return nil, err
	}
	known, err := varieties(ctx, s.pool)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `SELECT product_type, rate_per_kg FROM area_rates WHERE area_id = $1`, areaID)
	if err != nil {
		return nil, fmt.Errorf("failed to query area rates: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]decimal.Decimal)
	for rows.Next() {
		var p string
		var r decimal.Decimal
		if err := rows.Scan(&p, &r); err != nil {
			return nil, fmt.Errorf("failed to scan area rate: %w", err)
		}
		overrides[p] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]AreaRate, 0, len(known))
	for _, p := range known {
		out = append(out, AreaRate{AreaID: areaID, ProductType: p, Rate: overrides[p]})
	}
	return out, nil
}

func (s *inventoryService) SetAreaRates(ctx context.Context, areaID string, rates map[string]decimal.Decimal) error {
	if err := checkID("area", areaID); err != nil {
		return err
	}
	for p, r := range rates {
		if err := validateAmount(p+" rate", r); err != nil {
			return err
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM areas WHERE id = $1)`, areaID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check area %s: %w", areaID, err)
	}
	if !exists {
		return notFoundErr("area %s", areaID)
	}

	batch := &pgx.Batch{}
	for p, r := range rates {
		batch.Queue(`
			INSERT INTO area_rates (area_id, product_type, rate_per_kg) VALUES ($1, $2, $3)
			ON CONFLICT (area_id, product_type) DO UPDATE SET rate_per_kg = EXCLUDED.rate_per_kg
		`, areaID, p, r)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to upsert area rates for %s: %w", areaID, err)
	}
	return tx.Commit(ctx)
}

func (s *inventoryService) ResolveRate(ctx context.Context, productType, areaID string) (decimal.Decimal, error) {
	return NewRateResolver(NewPgRateLookup(s.pool)).Resolve(ctx, productType, areaID)
}
