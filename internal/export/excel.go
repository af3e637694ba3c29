// Package export writes the spreadsheet downloads: orders, drivers, the orders report, and the
// full pre-rollover backup.
package export

import (
	"fmt"
	"io"
	"time"

	"grain-orders/internal/core"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Sheet names.
const (
	SheetOrders    = "Orders"
	SheetDrivers   = "Drivers"
	SheetReport    = "Orders Report"
	SheetCustomers = "Customers"
	SheetExpenses  = "Expenses"
)

// Column headers, in sheet order.
var (
	OrdersHeader = []any{"Order No", "Date", "Customer", "Phone", "Address", "Area", "Sub Area", "Product",
		"Qty (KG)", "Total Amount", "Pending Amount", "Status", "Driver Name", "Driver Phone"}
	DriversHeader = []any{"Driver Name", "Phone Number", "Vehicle Number", "Joined Date"}
	ReportHeader  = []any{"Date", "Customer", "Area", "Tukdi (Guni)", "Sasiya (Guni)", "Tukdi D (Guni)",
		"Sasiya D (Guni)", "Other (Guni)", "Total Weight (Guni)", "Total Amount (₹)"}
	CustomersHeader = []any{"Name", "Phone", "Address", "Area", "Created Date"}
	ExpensesHeader  = []any{"Date", "Reason", "Amount"}
)

// ContentType is the MIME type of every workbook written here.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type sheet struct {
	name   string
	header []any
	rows   [][]any
}

// formatDate renders dates the en-IN way, dd/mm/yyyy.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02/01/2006")
}

func num(d decimal.Decimal) float64 {
	return d.InexactFloat64()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func write(w io.Writer, sheets ...sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sh := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sh.name); err != nil {
				return fmt.Errorf("rename sheet %s: %w", sh.name, err)
			}
		} else if _, err := f.NewSheet(sh.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sh.name, err)
		}

		header := sh.header
		if err := f.SetSheetRow(sh.name, "A1", &header); err != nil {
			return fmt.Errorf("write %s header: %w", sh.name, err)
		}
		for r, row := range sh.rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			row := row
			if err := f.SetSheetRow(sh.name, cell, &row); err != nil {
				return fmt.Errorf("write %s row %d: %w", sh.name, r+1, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func ordersSheet(lines []core.OrderLine, includePlaceholders bool) sheet {
	sh := sheet{name: SheetOrders, header: OrdersHeader}
	for _, l := range lines {
		if core.IsSentinel(l.ProductType) && !includePlaceholders {
			continue
		}
		status := "Paid"
		if l.Pending().IsPositive() {
			status = "Pending"
		}
		driverName := l.DriverName
		if driverName == "" {
			driverName = "Not Assigned"
		}
		sh.rows = append(sh.rows, []any{
			l.OrderNumber,
			formatDate(l.OrderDate),
			l.CustomerName,
			l.CustomerPhone,
			l.CustomerAddress,
			l.AreaName,
			orDash(l.SubArea),
			l.ProductType,
			num(l.Quantity),
			num(l.TotalAmount),
			num(l.Pending()),
			status,
			driverName,
			orDash(l.DriverPhone),
		})
	}
	return sh
}

func driversSheet(drivers []core.Driver) sheet {
	sh := sheet{name: SheetDrivers, header: DriversHeader}
	for _, d := range drivers {
		sh.rows = append(sh.rows, []any{d.Name, d.Phone, orDash(d.VehicleNumber), formatDate(d.CreatedAt)})
	}
	return sh
}

// WriteOrders writes one row per real order line.
func WriteOrders(w io.Writer, lines []core.OrderLine) error {
	return write(w, ordersSheet(lines, false))
}

func WriteDrivers(w io.Writer, drivers []core.Driver) error {
	return write(w, driversSheet(drivers))
}

// WriteReport writes one row per logical order with per-variety quantities; empty slots show "-".
func WriteReport(w io.Writer, groups []core.LogicalOrder) error {
	sh := sheet{name: SheetReport, header: ReportHeader}
	for _, g := range groups {
		row := []any{formatDate(g.Date), g.CustomerName, orDash(g.AreaName)}
		for _, p := range core.ProductSlots {
			q := g.Product(p).Quantity
			if q.IsZero() {
				row = append(row, "-")
			} else {
				row = append(row, num(q))
			}
		}
		row = append(row, num(g.TotalKg), num(g.TotalAmount))
		sh.rows = append(sh.rows, row)
	}
	return write(w, sh)
}

// WriteBackup writes the full snapshot, placeholder lines included. It satisfies core.BackupExporter.
func WriteBackup(w io.Writer, data *core.BackupData) error {
	customers := sheet{name: SheetCustomers, header: CustomersHeader}
	for _, c := range data.Customers {
		customers.rows = append(customers.rows, []any{c.Name, c.Phone, orDash(c.Address), orDash(c.AreaName), formatDate(c.CreatedAt)})
	}
	expenses := sheet{name: SheetExpenses, header: ExpensesHeader}
	for _, e := range data.Expenses {
		expenses.rows = append(expenses.rows, []any{formatDate(e.CreatedAt), e.Reason, num(e.Amount)})
	}
	return write(w, customers, ordersSheet(data.Lines, true), driversSheet(data.Drivers), expenses)
}

var _ core.BackupExporter = WriteBackup
