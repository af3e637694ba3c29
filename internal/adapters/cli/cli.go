// Package cli is the one-shot operator command line: stock and order tables, reports,
// backups, and the year rollover.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"grain-orders/internal/app"
	"grain-orders/internal/core"

	"github.com/google/uuid"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Usage lists the available commands.
const Usage = `Usage: app <command> [args]

Commands:
  stock                                   stock levels with low-stock flags
  orders [--pending]                      this year's logical orders
  report                                  income, volume, expenses, and profit
  backup <file.xlsx>                      write a full backup workbook
  year-rollover <file.xlsx> --confirm     back up, then wipe orders and expenses
  resolve-rate <product> [area]           effective per-kg rate for a product`

// Run executes a one-shot CLI command, writing its output to out.
// args is os.Args[1:]; the first element is the subcommand name.
func Run(ctx context.Context, svc app.ApplicationService, args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("no command given\n%s", Usage)
	}

	switch args[0] {
	case "stock":
		return printStock(ctx, svc, out)

	case "orders":
		filter := core.OrderFilter{}
		if len(args) > 1 && args[1] == "--pending" {
			filter.Payment = core.PaymentPending
		}
		return printOrders(ctx, svc, out, filter)

	case "report":
		return printReport(ctx, svc, out)

	case "backup":
		if len(args) < 2 {
			return fmt.Errorf("usage: app backup <file.xlsx>")
		}
		f, err := os.Create(args[1])
		if err != nil {
			return fmt.Errorf("create %s: %w", args[1], err)
		}
		if err := svc.ExportBackup(ctx, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", args[1], err)
		}
		fmt.Fprintf(out, "Backup written to %s\n", args[1])
		return nil

	case "year-rollover":
		if len(args) < 3 || args[2] != "--confirm" {
			return fmt.Errorf("year-rollover deletes every order and expense.\n" +
				"usage: app year-rollover <backup-file.xlsx> --confirm")
		}
		res, err := svc.YearRollover(ctx, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Backup:           %s\n", res.BackupPath)
		fmt.Fprintf(out, "Orders deleted:   %d\n", res.OrdersDeleted)
		fmt.Fprintf(out, "Expenses deleted: %d\n", res.ExpensesDeleted)
		fmt.Fprintf(out, "Customers seeded: %d\n", res.Seeded)
		return nil

	case "resolve-rate":
		if len(args) < 2 {
			return fmt.Errorf("usage: app resolve-rate <product> [area]")
		}
		areaID := ""
		if len(args) > 2 {
			id, err := resolveArea(ctx, svc, args[2])
			if err != nil {
				return err
			}
			areaID = id
		}
		rate, err := svc.ResolveRate(ctx, args[1], areaID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %s per kg\n", args[1], rate.StringFixed(2))
		return nil

	default:
		return fmt.Errorf("unknown command: %s\n%s", args[0], Usage)
	}
}

// resolveArea accepts an area id or a case-insensitive area name.
func resolveArea(ctx context.Context, svc app.ApplicationService, ref string) (string, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return ref, nil
	}
	areas, err := svc.ListAreas(ctx)
	if err != nil {
		return "", err
	}
	for _, a := range areas {
		if strings.EqualFold(a.Name, ref) {
			return a.ID, nil
		}
	}
	return "", fmt.Errorf("%w: area %q", core.ErrNotFound, ref)
}

func printStock(ctx context.Context, svc app.ApplicationService, out io.Writer) error {
	items, err := svc.GetStock(ctx)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(out)
	table.Header("Product", "Qty (KG)", "Threshold", "Status")
	total := decimal.Zero
	for _, it := range items {
		status := "OK"
		if it.IsLow {
			status = "LOW"
		}
		total = total.Add(it.Quantity)
		if err := table.Append([]string{it.ProductType, it.Quantity.String(), it.LowStockThreshold.String(), status}); err != nil {
			return err
		}
	}
	table.Footer("Total", total.String(), "", "")
	return table.Render()
}

func printOrders(ctx context.Context, svc app.ApplicationService, out io.Writer, filter core.OrderFilter) error {
	res, err := svc.ListOrders(ctx, filter)
	if err != nil {
		return err
	}
	header := []any{"No", "Date", "Customer", "Phone", "Area"}
	for _, p := range core.ProductSlots {
		header = append(header, p)
	}
	header = append(header, "Total", "Pending", "Status")

	table := tablewriter.NewWriter(out)
	table.Header(header...)
	for _, o := range res.Current {
		if o.IsPlaceholder() {
			continue
		}
		row := []string{
			fmt.Sprint(o.OrderNumber),
			o.Date.Format("02/01/2006"),
			o.CustomerName,
			o.CustomerPhone,
			areaLabel(o),
		}
		for _, p := range core.ProductSlots {
			q := o.Product(p).Quantity
			if q.IsZero() {
				row = append(row, "-")
			} else {
				row = append(row, q.String())
			}
		}
		pending := "Paid"
		if !o.IsPaid() {
			pending = o.Pending().StringFixed(2)
		}
		row = append(row, o.TotalAmount.StringFixed(2), pending, o.Status)
		if err := table.Append(row); err != nil {
			return err
		}
	}
	if err := table.Render(); err != nil {
		return err
	}
	if n := len(res.Past); n > 0 {
		fmt.Fprintf(out, "%d order(s) from %d and older not shown.\n", n, res.Year-1)
	}
	return nil
}

func areaLabel(o core.LogicalOrder) string {
	if o.SubArea == "" {
		return o.AreaName
	}
	return o.AreaName + ", " + o.SubArea
}

func printReport(ctx context.Context, svc app.ApplicationService, out io.Writer) error {
	r, err := svc.BusinessReport(ctx)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(out)
	table.Header("Metric", "Value")
	rows := [][]string{
		{"Orders", fmt.Sprint(r.OrderCount)},
		{"Volume (KG)", r.VolumeKg.String()},
		{"Income", r.Income.StringFixed(2)},
		{"Expenses", r.Expenses.StringFixed(2)},
		{"Net profit", r.Profit.StringFixed(2)},
	}
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}
