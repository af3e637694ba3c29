package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// RateLookup reads the two rate tables. ok is false when no row exists.
type RateLookup interface {
	AreaRate(ctx context.Context, areaID, productType string) (rate decimal.Decimal, ok bool, err error)
	ProductRate(ctx context.Context, productType string) (rate decimal.Decimal, ok bool, err error)
}

// RateResolver picks the per-kg price for a product in an area:
// a positive area override, else the global product rate, else zero.
type RateResolver struct {
	lookup RateLookup
}

func NewRateResolver(lookup RateLookup) *RateResolver {
	return &RateResolver{lookup: lookup}
}

// Resolve returns the applicable rate. Manual-rate types always resolve to zero.
// Missing rows are not errors; only lookup failures are returned.
func (r *RateResolver) Resolve(ctx context.Context, productType, areaID string) (decimal.Decimal, error) {
	if IsManualRate(productType) {
		return decimal.Zero, nil
	}
	if areaID != "" {
		rate, ok, err := r.lookup.AreaRate(ctx, areaID, productType)
		if err != nil {
			return decimal.Zero, err
		}
		if ok && rate.IsPositive() {
			return rate, nil
		}
	}
	rate, ok, err := r.lookup.ProductRate(ctx, productType)
	if err != nil {
		return decimal.Zero, err
	}
	if !ok {
		return decimal.Zero, nil
	}
	return rate, nil
}

type pgRateLookup struct {
	q pgxQuerier
}

// NewPgRateLookup reads rates through q, which may be the pool or an open transaction.
func NewPgRateLookup(q pgxQuerier) RateLookup {
	return &pgRateLookup{q: q}
}

func (l *pgRateLookup) AreaRate(ctx context.Context, areaID, productType string) (decimal.Decimal, bool, error) {
	if checkID("area", areaID) != nil {
		return decimal.Zero, false, nil
	}
	var rate decimal.Decimal
	err := l.q.QueryRow(ctx, `
		SELECT rate_per_kg FROM area_rates
		WHERE area_id = $1 AND product_type = $2
	`, areaID, productType).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to read area rate (area=%s, product=%q): %w", areaID, productType, err)
	}
	return rate, true, nil
}

func (l *pgRateLookup) ProductRate(ctx context.Context, productType string) (decimal.Decimal, bool, error) {
	var rate decimal.Decimal
	err := l.q.QueryRow(ctx, `SELECT rate_per_kg FROM product_rates WHERE product_type = $1`, productType).Scan(&rate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, false, nil
		}
		return decimal.Zero, false, fmt.Errorf("failed to read product rate %q: %w", productType, err)
	}
	return rate, true, nil
}
