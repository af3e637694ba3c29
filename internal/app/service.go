package app

import (
	"context"
	"io"

	"grain-orders/internal/core"

	"github.com/shopspring/decimal"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// CreateOrder records a new logical order and tells the assigned driver, if any.
	CreateOrder(ctx context.Context, input core.CreateOrderInput) (*core.OrderResult, error)

	// EditOrder reconciles a logical order against the submitted slots. The driver is told
	// only when the assignment changed.
	EditOrder(ctx context.Context, input core.EditOrderInput) (*core.OrderResult, error)

	GetOrder(ctx context.Context, key core.LogicalOrderKey) (*core.LogicalOrder, error)

	// ListOrders returns filtered logical orders split into the current year and older history.
	ListOrders(ctx context.Context, filter core.OrderFilter) (*OrderListResult, error)

	SetOrderStatus(ctx context.Context, key core.LogicalOrderKey, status string) (int64, error)
	DeleteOrder(ctx context.Context, key core.LogicalOrderKey) (int64, error)
	DeleteOrderLine(ctx context.Context, id string) error
	SubAreas(ctx context.Context) ([]string, error)

	// PrintSlips renders the HTML slip for each key to w and marks those orders printed.
	PrintSlips(ctx context.Context, w io.Writer, keys []core.LogicalOrderKey) error

	LookupCustomer(ctx context.Context, phone string) (*core.Customer, error)
	ListCustomers(ctx context.Context, filter core.CustomerFilter) ([]core.CustomerStats, error)
	DeleteCustomer(ctx context.Context, id string) error

	ListAreas(ctx context.Context) ([]core.Area, error)
	CreateArea(ctx context.Context, name string) (*core.Area, error)
	DeleteArea(ctx context.Context, id string) error
	ListAreaRates(ctx context.Context, areaID string) ([]core.AreaRate, error)
	SetAreaRates(ctx context.Context, areaID string, rates map[string]decimal.Decimal) error

	ListProductRates(ctx context.Context) ([]core.ProductRate, error)
	SetProductRate(ctx context.Context, productType string, rate decimal.Decimal) (*core.ProductRate, error)
	ResolveRate(ctx context.Context, productType, areaID string) (decimal.Decimal, error)

	ListDrivers(ctx context.Context) ([]core.Driver, error)
	CreateDriver(ctx context.Context, input core.DriverInput) (*core.Driver, error)
	DeleteDriver(ctx context.Context, id string) error

	GetStock(ctx context.Context) ([]core.StockItem, error)
	AddStock(ctx context.Context, productType string, qty decimal.Decimal) (*core.StockItem, error)
	CorrectStock(ctx context.Context, productType string, qty decimal.Decimal) (*core.StockItem, error)
	CreateVariety(ctx context.Context, productType string) error
	DeleteVariety(ctx context.Context, productType string) error

	ListExpenses(ctx context.Context) ([]core.Expense, error)
	AddExpense(ctx context.Context, reason string, amount decimal.Decimal) (*core.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
	ExpenseSummary(ctx context.Context) (*core.ExpenseSummary, error)

	Dashboard(ctx context.Context) (*core.Dashboard, error)
	BusinessReport(ctx context.Context) (*core.BusinessReport, error)

	// Spreadsheet downloads.
	ExportOrders(ctx context.Context, w io.Writer) error
	ExportDrivers(ctx context.Context, w io.Writer) error
	ExportReport(ctx context.Context, w io.Writer) error
	ExportBackup(ctx context.Context, w io.Writer) error

	// YearRollover writes a backup workbook to backupPath (a timestamped file in the backup
	// directory when empty), then wipes orders and expenses and seeds placeholder lines.
	YearRollover(ctx context.Context, backupPath string) (*RolloverResult, error)
}
