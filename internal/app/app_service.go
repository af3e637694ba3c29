package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"grain-orders/internal/core"
	"grain-orders/internal/export"
	"grain-orders/internal/slip"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services an appService delegates to. Notifier and Logger may be nil.
type Deps struct {
	DB           Pinger
	Orders       core.OrderService
	Customers    core.CustomerService
	Drivers      core.DriverService
	Inventory    core.InventoryService
	Expenses     core.ExpenseService
	Reports      core.ReportingService
	Rollover     core.RolloverService
	Notifier     core.DispatchNotifier
	Logger       *logrus.Logger
	BusinessName string
	BackupDir    string
}

type appService struct {
	Deps
	now func() time.Time
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(deps Deps) ApplicationService {
	if deps.Notifier == nil {
		deps.Notifier = core.NoopNotifier{}
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.BackupDir == "" {
		deps.BackupDir = os.TempDir()
	}
	return &appService{Deps: deps, now: time.Now}
}

func (s *appService) Ping(ctx context.Context) error {
	return s.DB.Ping(ctx)
}

// ── Orders ────────────────────────────────────────────────────────────────────

func (s *appService) CreateOrder(ctx context.Context, input core.CreateOrderInput) (*core.OrderResult, error) {
	res, err := s.Orders.CreateOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	if input.DriverID != "" {
		s.notify(ctx, input.DriverID, res.Order)
	}
	return res, nil
}

func (s *appService) EditOrder(ctx context.Context, input core.EditOrderInput) (*core.OrderResult, error) {
	var previousDriver string
	if before, err := s.Orders.GetLogicalOrder(ctx, input.Key); err == nil {
		previousDriver = before.DriverID
	}

	res, err := s.Orders.EditOrder(ctx, input)
	if err != nil {
		return nil, err
	}
	if input.DriverID != "" && input.DriverID != previousDriver && len(res.Order.Lines) > 0 {
		s.notify(ctx, input.DriverID, res.Order)
	}
	return res, nil
}

// notify tells the driver about the order. Failures are logged, never returned.
func (s *appService) notify(ctx context.Context, driverID string, order core.LogicalOrder) {
	log := s.Logger.WithFields(logrus.Fields{
		"driver_id": driverID,
		"order":     order.Key.String(),
	})
	driver, err := s.Drivers.GetDriver(ctx, driverID)
	if err != nil {
		log.WithError(err).Warn("dispatch: driver lookup failed")
		return
	}
	if err := s.Notifier.NotifyAssignment(ctx, *driver, order); err != nil {
		log.WithError(err).Warn("dispatch: notification failed")
	}
}

func (s *appService) GetOrder(ctx context.Context, key core.LogicalOrderKey) (*core.LogicalOrder, error) {
	return s.Orders.GetLogicalOrder(ctx, key)
}

func (s *appService) ListOrders(ctx context.Context, filter core.OrderFilter) (*OrderListResult, error) {
	groups, err := s.Orders.ListLogicalOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	year := s.now().Year()
	current, past := core.SplitByYear(groups, year)
	return &OrderListResult{Current: current, Past: past, Year: year}, nil
}

func (s *appService) SetOrderStatus(ctx context.Context, key core.LogicalOrderKey, status string) (int64, error) {
	return s.Orders.SetGroupStatus(ctx, key, status)
}

func (s *appService) DeleteOrder(ctx context.Context, key core.LogicalOrderKey) (int64, error) {
	return s.Orders.DeleteLogicalOrder(ctx, key)
}

func (s *appService) DeleteOrderLine(ctx context.Context, id string) error {
	return s.Orders.DeleteLine(ctx, id)
}

func (s *appService) SubAreas(ctx context.Context) ([]string, error) {
	return s.Orders.SubAreas(ctx)
}

func (s *appService) PrintSlips(ctx context.Context, w io.Writer, keys []core.LogicalOrderKey) error {
	if len(keys) == 0 {
		return fmt.Errorf("%w: select at least one order to print", core.ErrValidation)
	}
	orders := make([]core.LogicalOrder, 0, len(keys))
	for _, k := range keys {
		o, err := s.Orders.GetLogicalOrder(ctx, k)
		if err != nil {
			return err
		}
		orders = append(orders, *o)
	}
	if err := slip.Render(w, s.BusinessName, orders); err != nil {
		return err
	}
	if _, err := s.Orders.MarkPrinted(ctx, keys); err != nil {
		s.Logger.WithError(err).WithField("orders", len(keys)).Warn("slips rendered but not marked printed")
	}
	return nil
}

// ── Customers, areas, rates ───────────────────────────────────────────────────

func (s *appService) LookupCustomer(ctx context.Context, phone string) (*core.Customer, error) {
	return s.Customers.LookupByPhone(ctx, phone)
}

func (s *appService) ListCustomers(ctx context.Context, filter core.CustomerFilter) ([]core.CustomerStats, error) {
	return s.Customers.ListCustomers(ctx, filter)
}

func (s *appService) DeleteCustomer(ctx context.Context, id string) error {
	return s.Customers.DeleteCustomer(ctx, id)
}

func (s *appService) ListAreas(ctx context.Context) ([]core.Area, error) {
	return s.Customers.ListAreas(ctx)
}

func (s *appService) CreateArea(ctx context.Context, name string) (*core.Area, error) {
	return s.Customers.CreateArea(ctx, name)
}

func (s *appService) DeleteArea(ctx context.Context, id string) error {
	return s.Customers.DeleteArea(ctx, id)
}

func (s *appService) ListAreaRates(ctx context.Context, areaID string) ([]core.AreaRate, error) {
	return s.Inventory.ListAreaRates(ctx, areaID)
}

func (s *appService) SetAreaRates(ctx context.Context, areaID string, rates map[string]decimal.Decimal) error {
	return s.Inventory.SetAreaRates(ctx, areaID, rates)
}

func (s *appService) ListProductRates(ctx context.Context) ([]core.ProductRate, error) {
	return s.Inventory.ListProductRates(ctx)
}

func (s *appService) SetProductRate(ctx context.Context, productType string, rate decimal.Decimal) (*core.ProductRate, error) {
	return s.Inventory.SetProductRate(ctx, productType, rate)
}

func (s *appService) ResolveRate(ctx context.Context, productType, areaID string) (decimal.Decimal, error) {
	return s.Inventory.ResolveRate(ctx, productType, areaID)
}

// ── Drivers ───────────────────────────────────────────────────────────────────

func (s *appService) ListDrivers(ctx context.Context) ([]core.Driver, error) {
	return s.Drivers.ListDrivers(ctx)
}

func (s *appService) CreateDriver(ctx context.Context, input core.DriverInput) (*core.Driver, error) {
	return s.Drivers.CreateDriver(ctx, input)
}

func (s *appService) DeleteDriver(ctx context.Context, id string) error {
	return s.Drivers.DeleteDriver(ctx, id)
}

// ── Stock ─────────────────────────────────────────────────────────────────────

func (s *appService) GetStock(ctx context.Context) ([]core.StockItem, error) {
	return s.Inventory.GetStock(ctx)
}

func (s *appService) AddStock(ctx context.Context, productType string, qty decimal.Decimal) (*core.StockItem, error) {
	return s.Inventory.AddStock(ctx, productType, qty)
}

func (s *appService) CorrectStock(ctx context.Context, productType string, qty decimal.Decimal) (*core.StockItem, error) {
	return s.Inventory.CorrectStock(ctx, productType, qty)
}

func (s *appService) CreateVariety(ctx context.Context, productType string) error {
	return s.Inventory.CreateVariety(ctx, productType)
}

func (s *appService) DeleteVariety(ctx context.Context, productType string) error {
	return s.Inventory.DeleteVariety(ctx, productType)
}

// ── Expenses and reports ──────────────────────────────────────────────────────

func (s *appService) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	return s.Expenses.ListExpenses(ctx)
}

func (s *appService) AddExpense(ctx context.Context, reason string, amount decimal.Decimal) (*core.Expense, error) {
	return s.Expenses.AddExpense(ctx, reason, amount)
}

func (s *appService) DeleteExpense(ctx context.Context, id string) error {
	return s.Expenses.DeleteExpense(ctx, id)
}

func (s *appService) ExpenseSummary(ctx context.Context) (*core.ExpenseSummary, error) {
	return s.Expenses.Summary(ctx)
}

func (s *appService) Dashboard(ctx context.Context) (*core.Dashboard, error) {
	return s.Reports.Dashboard(ctx)
}

func (s *appService) BusinessReport(ctx context.Context) (*core.BusinessReport, error) {
	return s.Reports.BusinessReport(ctx)
}

// ── Exports and rollover ──────────────────────────────────────────────────────

func (s *appService) ExportOrders(ctx context.Context, w io.Writer) error {
	lines, err := s.Orders.ListLines(ctx)
	if err != nil {
		return err
	}
	return export.WriteOrders(w, lines)
}

func (s *appService) ExportDrivers(ctx context.Context, w io.Writer) error {
	drivers, err := s.Drivers.ListDrivers(ctx)
	if err != nil {
		return err
	}
	return export.WriteDrivers(w, drivers)
}

func (s *appService) ExportReport(ctx context.Context, w io.Writer) error {
	report, err := s.Reports.BusinessReport(ctx)
	if err != nil {
		return err
	}
	return export.WriteReport(w, report.Orders)
}

func (s *appService) ExportBackup(ctx context.Context, w io.Writer) error {
	data, err := s.Rollover.Snapshot(ctx)
	if err != nil {
		return err
	}
	return export.WriteBackup(w, data)
}

func (s *appService) YearRollover(ctx context.Context, backupPath string) (*RolloverResult, error) {
	if backupPath == "" {
		name := fmt.Sprintf("backup-%s.xlsx", s.now().Format("20060102-150405"))
		backupPath = filepath.Join(s.BackupDir, name)
	}
	f, err := os.Create(backupPath)
	if err != nil {
		return nil, fmt.Errorf("create backup file: %w", err)
	}

	res, err := s.Rollover.RunYearRollover(ctx, f, export.WriteBackup)
	cerr := f.Close()
	if err != nil {
		return nil, err
	}
	if cerr != nil {
		// The wipe has already committed; the operator needs to know the file may be short.
		s.Logger.WithError(cerr).WithField("backup", backupPath).Error("year rollover: closing backup file failed")
	}

	s.Logger.WithFields(logrus.Fields{
		"backup":           backupPath,
		"orders_deleted":   res.OrdersDeleted,
		"expenses_deleted": res.ExpensesDeleted,
		"seeded":           res.Seeded,
	}).Info("year rollover complete")
	return &RolloverResult{RolloverResult: *res, BackupPath: backupPath}, nil
}
