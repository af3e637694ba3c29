package core

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

// BackupData is the full snapshot written before a destructive rollover.
type BackupData struct {
	Customers []Customer
	Lines     []OrderLine
	Drivers   []Driver
	Expenses  []Expense
}

// BackupExporter serialises a snapshot to w.
type BackupExporter func(w io.Writer, data *BackupData) error

// RolloverResult reports what a year rollover removed and re-seeded.
type RolloverResult struct {
	OrdersDeleted   int64 `json:"orders_deleted"`
	ExpensesDeleted int64 `json:"expenses_deleted"`
	Seeded          int64 `json:"seeded"`
}

// RolloverService closes a trading year.
type RolloverService interface {
	Snapshot(ctx context.Context) (*BackupData, error)
	// RunYearRollover writes a backup to w, then in one transaction deletes every order line
	// and expense and seeds one placeholder line per customer. A failed backup aborts before
	// anything is deleted.
	RunYearRollover(ctx context.Context, w io.Writer, export BackupExporter) (*RolloverResult, error)
}

type rolloverService struct {
	pool   *pgxpool.Pool
	locker Locker
	logger *logrus.Logger
	now    func() time.Time
}

// NewRolloverService constructs a RolloverService. A nil locker disables cross-process locking.
func NewRolloverService(pool *pgxpool.Pool, locker Locker, logger *logrus.Logger) RolloverService {
	if locker == nil {
		locker = NoopLocker{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &rolloverService{pool: pool, locker: locker, logger: logger, now: time.Now}
}

func (s *rolloverService) Snapshot(ctx context.Context) (*BackupData, error) {
	customers, err := (&customerService{pool: s.pool}).ListCustomers(ctx, CustomerFilter{})
	if err != nil {
		return nil, err
	}
	data := &BackupData{}
	for _, c := range customers {
		data.Customers = append(data.Customers, c.Customer)
	}
	if data.Lines, err = queryLines(ctx, s.pool, lineSelect+` ORDER BY o.order_number`); err != nil {
		return nil, err
	}
	if data.Drivers, err = (&driverService{pool: s.pool}).ListDrivers(ctx); err != nil {
		return nil, err
	}
	if data.Expenses, err = listExpenses(ctx, s.pool); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *rolloverService) RunYearRollover(ctx context.Context, w io.Writer, export BackupExporter) (*RolloverResult, error) {
	if w == nil || export == nil {
		return nil, validationErr("a backup destination is required")
	}
	unlock, err := s.locker.Lock(ctx, "rollover")
	if err != nil {
		return nil, fmt.Errorf("rollover already running: %w", err)
	}
	defer unlock()

	data, err := s.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to snapshot for backup: %w", err)
	}
	if err := export(w, data); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}
	log := s.logger.WithFields(logrus.Fields{
		"module":    "rollover",
		"customers": len(data.Customers),
		"lines":     len(data.Lines),
		"expenses":  len(data.Expenses),
	})
	log.Info("backup written, starting year rollover")

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Carry forward the latest non-empty sub-area each customer was delivered to.
	rows, err := tx.Query(ctx, `
		SELECT c.id::text, COALESCE(last.sub_area, '')
		FROM customers c
		LEFT JOIN LATERAL (
			SELECT o.sub_area FROM orders o
			WHERE o.customer_id = c.id AND COALESCE(o.sub_area, '') <> ''
			ORDER BY o.order_date DESC, o.created_at DESC
			LIMIT 1
		) last ON true
		ORDER BY c.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to read customer sub-areas: %w", err)
	}
	type carry struct{ customerID, subArea string }
	var seeds []carry
	for rows.Next() {
		var c carry
		if err := rows.Scan(&c.customerID, &c.subArea); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan customer sub-area: %w", err)
		}
		seeds = append(seeds, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read customer sub-areas: %w", err)
	}

	result := &RolloverResult{}
	tag, err := tx.Exec(ctx, `DELETE FROM orders`)
	if err != nil {
		return nil, fmt.Errorf("failed to delete orders: %w", err)
	}
	result.OrdersDeleted = tag.RowsAffected()
	tag, err = tx.Exec(ctx, `DELETE FROM expenses`)
	if err != nil {
		return nil, fmt.Errorf("failed to delete expenses: %w", err)
	}
	result.ExpensesDeleted = tag.RowsAffected()

	y, m, d := s.now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	batch := &pgx.Batch{}
	for _, c := range seeds {
		batch.Queue(`
			INSERT INTO orders (customer_id, product_type, quantity_kg, rate_per_kg, total_amount, amount_paid,
			                    order_date, sub_area, status)
			VALUES ($1, $2, 0, 0, 0, 0, $3, $4, 'pending')
		`, c.customerID, ProductNull, today, nullIfEmpty(c.subArea))
	}
	br := tx.SendBatch(ctx, batch)
	for range seeds {
		if _, err := br.Exec(); err != nil {
			br.Close()
			log.WithError(err).WithField("seeded", result.Seeded).Error("placeholder seeding failed, rolling back")
			return nil, fmt.Errorf("failed to seed placeholder line: %w", err)
		}
		result.Seeded++
	}
	if err := br.Close(); err != nil {
		return nil, fmt.Errorf("failed to seed placeholder lines: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit year rollover: %w", err)
	}
	log.WithFields(logrus.Fields{
		"orders_deleted":   result.OrdersDeleted,
		"expenses_deleted": result.ExpensesDeleted,
		"seeded":           result.Seeded,
	}).Info("year rollover complete")
	return result, nil
}
