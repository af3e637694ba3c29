package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// Dashboard is the landing-page snapshot.
type Dashboard struct {
	TodayOrders     int             `json:"today_orders"`     // real lines dated today
	PendingPayments decimal.Decimal `json:"pending_payments"` // sum of positive per-line pending
	CustomerCount   int             `json:"customer_count"`
	Stock           []StockItem     `json:"stock"`
	TotalStockKg    decimal.Decimal `json:"total_stock_kg"`
	LowStockCount   int             `json:"low_stock_count"`
	RecentLines     []OrderLine     `json:"recent_lines"`
}

// BusinessReport aggregates logical orders and expenses over all retained data.
// OrderCount skips placeholder-only groups.
type BusinessReport struct {
	Orders     []LogicalOrder  `json:"orders"`
	Income     decimal.Decimal `json:"income"`
	VolumeKg   decimal.Decimal `json:"volume_kg"`
	OrderCount int             `json:"order_count"`
	Expenses   decimal.Decimal `json:"expenses"`
	Profit     decimal.Decimal `json:"profit"`
}

// SummarizeReport folds grouped orders and the expense total into a BusinessReport.
func SummarizeReport(groups []LogicalOrder, expenses decimal.Decimal) *BusinessReport {
	r := &BusinessReport{Orders: groups, Expenses: expenses}
	for _, g := range groups {
		r.Income = r.Income.Add(g.TotalAmount)
		r.VolumeKg = r.VolumeKg.Add(g.TotalKg)
		if g.TotalKg.IsPositive() {
			r.OrderCount++
		}
	}
	r.Profit = r.Income.Sub(r.Expenses)
	return r
}

// ReportingService builds read-only views for the dashboard and reports page.
type ReportingService interface {
	Dashboard(ctx context.Context) (*Dashboard, error)
	BusinessReport(ctx context.Context) (*BusinessReport, error)
}

type reportingService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewReportingService constructs a ReportingService backed by PostgreSQL.
func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool, now: time.Now}
}

func (s *reportingService) Dashboard(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{}
	y, m, day := s.now().Date()
	today := time.Date(y, m, day, 0, 0, 0, 0, time.UTC)

	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE order_date = $1 AND product_type <> 'Null'),
			(SELECT COALESCE(SUM(total_amount - amount_paid), 0) FROM orders
			  WHERE total_amount > amount_paid AND product_type <> 'Null'),
			(SELECT COUNT(*) FROM customers)
	`, today).Scan(&d.TodayOrders, &d.PendingPayments, &d.CustomerCount)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard counters: %w", err)
	}

	stock, err := (&inventoryService{pool: s.pool}).GetStock(ctx)
	if err != nil {
		return nil, err
	}
	d.Stock = stock
	for _, st := range stock {
		d.TotalStockKg = d.TotalStockKg.Add(st.Quantity)
		if st.IsLow {
			d.LowStockCount++
		}
	}

	d.RecentLines, err = queryLines(ctx, s.pool, lineSelect+`
		WHERE o.product_type <> 'Null'
		ORDER BY o.created_at DESC
		LIMIT 5`)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *reportingService) BusinessReport(ctx context.Context) (*BusinessReport, error) {
	lines, err := queryLines(ctx, s.pool, lineSelect+` ORDER BY o.order_number`)
	if err != nil {
		return nil, err
	}
	var expenses decimal.Decimal
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(SUM(amount), 0) FROM expenses`).Scan(&expenses); err != nil {
		return nil, fmt.Errorf("failed to sum expenses: %w", err)
	}
	return SummarizeReport(GroupLines(lines), expenses), nil
}
