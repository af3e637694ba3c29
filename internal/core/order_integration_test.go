package core_test

import (
	"context"
	"errors"
	"testing"

	"grain-orders/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func stockOf(t *testing.T, pool *pgxpool.Pool, productType string) decimal.Decimal {
	t.Helper()
	var q decimal.Decimal
	if err := pool.QueryRow(context.Background(),
		`SELECT quantity_kg FROM stock WHERE product_type = $1`, productType).Scan(&q); err != nil {
		t.Fatalf("read stock %s: %v", productType, err)
	}
	return q
}

func countLines(t *testing.T, pool *pgxpool.Pool) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM orders`).Scan(&n); err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}

func raviOrder() core.CreateOrderInput {
	return core.CreateOrderInput{
		CustomerName: "Ravi",
		Phone:        "9000000001",
		Address:      "12 Mandi Road",
		AreaID:       areaA,
		Slots: []core.SlotInput{
			{ProductType: core.ProductTukdi, Quantity: dec("5"), Rate: dec("20")},
			{ProductType: core.ProductSasiya, Quantity: dec("2"), Rate: dec("15")},
			{ProductType: core.ProductTukdiD, Quantity: decimal.Zero},
			{ProductType: core.ProductSasiyaD, Quantity: decimal.Zero},
			{ProductType: core.ProductOther, Quantity: decimal.Zero},
		},
		AmountPaid:   dec("110"),
		DeliveryDate: "2025-03-01",
	}
}

func TestOrderService_CreateRaviScenario(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc := core.NewOrderService(pool, nil)

	res, err := svc.CreateOrder(ctx, raviOrder())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if res.Inserted != 2 {
		t.Errorf("expected 2 lines, got %d", res.Inserted)
	}

	order := res.Order
	if !order.TotalAmount.Equal(dec("130")) || !order.TotalPaid.Equal(dec("110")) {
		t.Errorf("expected 130/110, got %s/%s", order.TotalAmount, order.TotalPaid)
	}
	if !order.Pending().Equal(dec("20")) {
		t.Errorf("expected pending 20, got %s", order.Pending())
	}
	for _, l := range order.Lines {
		switch l.ProductType {
		case core.ProductTukdi:
			if !l.AmountPaid.Equal(dec("100")) {
				t.Errorf("Tukdi paid: expected 100, got %s", l.AmountPaid)
			}
		case core.ProductSasiya:
			if !l.AmountPaid.Equal(dec("10")) {
				t.Errorf("Sasiya paid: expected 10, got %s", l.AmountPaid)
			}
		}
		if l.Status != core.StatusPending {
			t.Errorf("new line should be pending, got %s", l.Status)
		}
	}

	if got := stockOf(t, pool, core.ProductTukdi); !got.Equal(dec("95")) {
		t.Errorf("Tukdi stock: expected 95, got %s", got)
	}
	if got := stockOf(t, pool, core.ProductSasiya); !got.Equal(dec("98")) {
		t.Errorf("Sasiya stock: expected 98, got %s", got)
	}
}

func TestOrderService_CreateUpsertsCustomerByPhone(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc := core.NewOrderService(pool, nil)

	if _, err := svc.CreateOrder(ctx, raviOrder()); err != nil {
		t.Fatalf("first order: %v", err)
	}
	second := raviOrder()
	second.CustomerName = "Ravi Kumar"
	second.Address = "New Address"
	second.AreaID = areaB
	second.DeliveryDate = "2025-03-02"
	if _, err := svc.CreateOrder(ctx, second); err != nil {
		t.Fatalf("second order: %v", err)
	}

	var n int
	var name, address, area string
	err := pool.QueryRow(ctx, `SELECT COUNT(*) OVER (), name, address, area_id::text FROM customers`).Scan(&n, &name, &address, &area)
	if err != nil {
		t.Fatalf("read customer: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected one customer, got %d", n)
	}
	if name != "Ravi" {
		t.Errorf("existing name should be kept, got %s", name)
	}
	if address != "New Address" || area != areaB {
		t.Errorf("address/area should be updated in place, got %s/%s", address, area)
	}
}

func TestOrderService_CreateResolvesRates(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc := core.NewOrderService(pool, nil)

	if _, err := pool.Exec(ctx, `INSERT INTO area_rates (area_id, product_type, rate_per_kg) VALUES ($1, 'Tukdi', 22)`, areaA); err != nil {
		t.Fatalf("seed area rate: %v", err)
	}

	in := raviOrder()
	in.Slots = []core.SlotInput{
		{ProductType: core.ProductTukdi, Quantity: dec("1")},
		{ProductType: core.ProductSasiya, Quantity: dec("1")},
		{ProductType: core.ProductOther, Quantity: dec("1"), Rate: dec("7")},
	}
	in.AmountPaid = decimal.Zero
	res, err := svc.CreateOrder(ctx, in)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	want := map[string]string{core.ProductTukdi: "22", core.ProductSasiya: "15", core.ProductOther: "7"}
	for _, l := range res.Order.Lines {
		if !l.Rate.Equal(dec(want[l.ProductType])) {
			t.Errorf("%s: expected rate %s, got %s", l.ProductType, want[l.ProductType], l.Rate)
		}
	}
}

func TestOrderService_CreateValidationWritesNothing(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc := core.NewOrderService(pool, nil)

	tests := []struct {
		name   string
		mutate func(*core.CreateOrderInput)
	}{
		{"missing name", func(in *core.CreateOrderInput) { in.CustomerName = "" }},
		{"short phone", func(in *core.CreateOrderInput) { in.Phone = "90000" }},
		{"missing area", func(in *core.CreateOrderInput) { in.AreaID = "" }},
		{"no positive line", func(in *core.CreateOrderInput) {
			for i := range in.Slots {
				in.Slots[i].Quantity = decimal.Zero
			}
		}},
		{"negative payment", func(in *core.CreateOrderInput) { in.AmountPaid = dec("-1") }},
		{"unknown area", func(in *core.CreateOrderInput) { in.AreaID = "00000000-0000-0000-0000-0000000000ff" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := raviOrder()
			tt.mutate(&in)
			if _, err := svc.CreateOrder(ctx, in); !errors.Is(err, core.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if n := countLines(t, pool); n != 0 {
				t.Errorf("expected no lines written, got %d", n)
			}
			if got := stockOf(t, pool, core.ProductTukdi); !got.Equal(dec("100")) {
				t.Errorf("stock must be untouched, got %s", got)
			}
		})
	}
}

func editInput(key core.LogicalOrderKey, tukdi, sasiya string) core.EditOrderInput {
	return core.EditOrderInput{
		Key:          key,
		CustomerName: "Ravi",
		Phone:        "9000000001",
		Address:      "12 Mandi Road",
		AreaID:       areaA,
		AmountPaid:   dec("110"),
		Slots: []core.SlotInput{
			{ProductType: core.ProductTukdi, Quantity: dec(tukdi), Rate: dec("20")},
			{ProductType: core.ProductSasiya, Quantity: dec(sasiya), Rate: dec("15")},
			{ProductType: core.ProductTukdiD, Quantity: decimal.Zero},
			{ProductType: core.ProductSasiyaD, Quantity: decimal.Zero},
			{ProductType: core.ProductOther, Quantity: decimal.Zero},
		},
	}
}

func TestOrderService_EditReconcilesStock(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc := core.NewOrderService(pool, nil)

	created, err := svc.CreateOrder(ctx, raviOrder())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	key := created.Order.Key

	t.Run("reduce Tukdi 5 to 3", func(t *testing.T) {
		res, err := svc.EditOrder(ctx, editInput(key, "3", "2"))
		if err != nil {
			t.Fatalf("EditOrder: %v", err)
		}
		if got := stockOf(t, pool, core.ProductTukdi); !got.Equal(dec("97")) {
			t.Errorf("Tukdi stock: expected 97, got %s", got)
		}
		if got := stockOf(t, pool, core.ProductSasiya); !got.Equal(dec("98")) {
			t.Errorf("Sasiya stock should be unchanged at 98, got %s", got)
		}
		if got := res.Order.Product(core.ProductTukdi).Amount; !got.Equal(dec("60")) {
			t.Errorf("Tukdi total: expected 60, got %s", got)
		}
	})

	t.Run("Sasiya to zero deletes its line", func(t *testing.T) {
		res, err := svc.EditOrder(ctx, editInput(key, "3", "0"))
		if err != nil {
			t.Fatalf("EditOrder: %v", err)
		}
		if res.Deleted != 1 {
			t.Errorf("expected one delete, got %d", res.Deleted)
		}
		if got := stockOf(t, pool, core.ProductSasiya); !got.Equal(dec("100")) {
			t.Errorf("Sasiya stock: expected 100, got %s", got)
		}
		if n := countLines(t, pool); n != 1 {
			t.Errorf("expected one remaining line, got %d", n)
		}
	})

	t.Run("missing group is not found", func(t *testing.T) {
		missing := key
		missing.Date = "1999-01-01"
		if _, err := svc.EditOrder(ctx, editInput(missing, "1", "1")); !errors.Is(err, core.ErrNotFound) {
			t.Errorf("expected not found, got %v", err)
		}
	})
}

func TestOrderService_GroupStatusAndDelete(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc := core.NewOrderService(pool, nil)

	created, err := svc.CreateOrder(ctx, raviOrder())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	key := created.Order.Key

	n, err := svc.SetGroupStatus(ctx, key, core.StatusDelivered)
	if err != nil {
		t.Fatalf("SetGroupStatus: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 lines updated, got %d", n)
	}
	order, err := svc.GetLogicalOrder(ctx, key)
	if err != nil {
		t.Fatalf("GetLogicalOrder: %v", err)
	}
	if order.Status != core.StatusDelivered {
		t.Errorf("expected delivered, got %s", order.Status)
	}

	if _, err := svc.SetGroupStatus(ctx, key, "lost"); !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error for unknown status, got %v", err)
	}

	deleted, err := svc.DeleteLogicalOrder(ctx, key)
	if err != nil {
		t.Fatalf("DeleteLogicalOrder: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 lines deleted, got %d", deleted)
	}
	if got := stockOf(t, pool, core.ProductTukdi); !got.Equal(dec("100")) {
		t.Errorf("Tukdi stock should be restored to 100, got %s", got)
	}
	if _, err := svc.GetLogicalOrder(ctx, key); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}

func TestOrderService_DeleteLineRestoresStock(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc := core.NewOrderService(pool, nil)

	created, err := svc.CreateOrder(ctx, raviOrder())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	var sasiyaID string
	for _, l := range created.Order.Lines {
		if l.ProductType == core.ProductSasiya {
			sasiyaID = l.ID
		}
	}
	if err := svc.DeleteLine(ctx, sasiyaID); err != nil {
		t.Fatalf("DeleteLine: %v", err)
	}
	if got := stockOf(t, pool, core.ProductSasiya); !got.Equal(dec("100")) {
		t.Errorf("expected 100, got %s", got)
	}
	if err := svc.DeleteLine(ctx, sasiyaID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}

func TestOrderService_StockMayGoNegative(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc := core.NewOrderService(pool, nil)

	in := raviOrder()
	in.Slots = []core.SlotInput{{ProductType: core.ProductSasiyaD, Quantity: dec("8"), Rate: dec("30")}}
	if _, err := svc.CreateOrder(ctx, in); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if got := stockOf(t, pool, core.ProductSasiyaD); !got.Equal(dec("-3")) {
		t.Errorf("expected -3, got %s", got)
	}
}

func TestOrderService_EditCollapsesRepeatedProduct(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()
	svc := core.NewOrderService(pool, nil)

	first := raviOrder()
	first.Slots = []core.SlotInput{{ProductType: core.ProductTukdi, Quantity: dec("5"), Rate: dec("20")}}
	first.AmountPaid = decimal.Zero
	second := first
	second.Slots = []core.SlotInput{{ProductType: core.ProductTukdi, Quantity: dec("3"), Rate: dec("20")}}

	if _, err := svc.CreateOrder(ctx, first); err != nil {
		t.Fatalf("first CreateOrder: %v", err)
	}
	res, err := svc.CreateOrder(ctx, second)
	if err != nil {
		t.Fatalf("second CreateOrder: %v", err)
	}
	if got := res.Order.Product(core.ProductTukdi).Quantity; !got.Equal(dec("8")) {
		t.Fatalf("expected the group to show 8, got %s", got)
	}

	edit := editInput(res.Order.Key, "8", "0")
	edit.AmountPaid = decimal.Zero
	out, err := svc.EditOrder(ctx, edit)
	if err != nil {
		t.Fatalf("EditOrder: %v", err)
	}
	if got := out.Order.Product(core.ProductTukdi).Quantity; !got.Equal(dec("8")) {
		t.Errorf("expected 8 after an unchanged edit, got %s", got)
	}
	if n := countLines(t, pool); n != 1 {
		t.Errorf("expected one Tukdi line, got %d", n)
	}
	if got := stockOf(t, pool, core.ProductTukdi); !got.Equal(dec("92")) {
		t.Errorf("Tukdi stock: expected 92, got %s", got)
	}

	edit = editInput(res.Order.Key, "0", "0")
	edit.AmountPaid = decimal.Zero
	if _, err := svc.EditOrder(ctx, edit); err != nil {
		t.Fatalf("EditOrder to zero: %v", err)
	}
	if n := countLines(t, pool); n != 0 {
		t.Errorf("expected no lines, got %d", n)
	}
	if got := stockOf(t, pool, core.ProductTukdi); !got.Equal(dec("100")) {
		t.Errorf("Tukdi stock: expected 100, got %s", got)
	}
}

// rowCheckLocker fails when the customer row is already locked by the caller's transaction.
type rowCheckLocker struct {
	pool   *pgxpool.Pool
	phone  string
	called int
	err    error
}

func (l *rowCheckLocker) Lock(ctx context.Context, _ string) (func(), error) {
	l.called++
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)
	_, l.err = tx.Exec(ctx, `SELECT id FROM customers WHERE phone = $1 FOR UPDATE NOWAIT`, l.phone)
	return func() {}, nil
}

func TestOrderService_CreateLocksBeforeCustomerRow(t *testing.T) {
	pool := setupTestDB(t)
	ctx := context.Background()

	if _, err := core.NewOrderService(pool, nil).CreateOrder(ctx, raviOrder()); err != nil {
		t.Fatalf("seed CreateOrder: %v", err)
	}

	locker := &rowCheckLocker{pool: pool, phone: "9000000001"}
	if _, err := core.NewOrderService(pool, locker).CreateOrder(ctx, raviOrder()); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if locker.called != 1 {
		t.Fatalf("expected the order lock once for a known customer, got %d", locker.called)
	}
	if locker.err != nil {
		t.Errorf("customer row was locked before the order lock: %v", locker.err)
	}
}
