package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ExpenseService records business expenses.
type ExpenseService interface {
	AddExpense(ctx context.Context, reason string, amount decimal.Decimal) (*Expense, error)
	// ListExpenses returns expenses newest first.
	ListExpenses(ctx context.Context) ([]Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	Summary(ctx context.Context) (*ExpenseSummary, error)
}

type expenseService struct {
	pool *pgxpool.Pool
}

// NewExpenseService constructs an ExpenseService backed by PostgreSQL.
func NewExpenseService(pool *pgxpool.Pool) ExpenseService {
	return &expenseService{pool: pool}
}

func (s *expenseService) AddExpense(ctx context.Context, reason string, amount decimal.Decimal) (*Expense, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, validationErr("reason is required")
	}
	if !amount.IsPositive() {
		return nil, validationErr("amount must be greater than zero")
	}
	var e Expense
	err := s.pool.QueryRow(ctx, `
		INSERT INTO expenses (reason, amount) VALUES ($1, $2)
		RETURNING id::text, reason, amount, created_at
	`, reason, amount).Scan(&e.ID, &e.Reason, &e.Amount, &e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add expense: %w", err)
	}
	return &e, nil
}

func (s *expenseService) ListExpenses(ctx context.Context) ([]Expense, error) {
	return listExpenses(ctx, s.pool)
}

func listExpenses(ctx context.Context, q pgxQuerier) ([]Expense, error) {
	rows, err := q.Query(ctx, `SELECT id::text, reason, amount, created_at FROM expenses ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer rows.Close()

	var out []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.Reason, &e.Amount, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *expenseService) DeleteExpense(ctx context.Context, id string) error {
	if err := checkID("expense", id); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete expense %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("expense %s", id)
	}
	return nil
}

func (s *expenseService) Summary(ctx context.Context) (*ExpenseSummary, error) {
	var sum ExpenseSummary
	err := s.pool.QueryRow(ctx, `
		SELECT
			(SELECT COALESCE(SUM(total_amount), 0) FROM orders WHERE product_type <> 'Null'),
			(SELECT COALESCE(SUM(amount), 0) FROM expenses)
	`).Scan(&sum.Revenue, &sum.TotalExpenses)
	if err != nil {
		return nil, fmt.Errorf("failed to compute expense summary: %w", err)
	}
	sum.NetProfit = sum.Revenue.Sub(sum.TotalExpenses)
	return &sum, nil
}
