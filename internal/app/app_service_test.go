package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"grain-orders/internal/core"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

// fakeOrders implements only what these tests reach; other calls panic through the nil interface.
type fakeOrders struct {
	core.OrderService
	group   *core.LogicalOrder
	printed []core.LogicalOrderKey
}

func (f *fakeOrders) CreateOrder(_ context.Context, in core.CreateOrderInput) (*core.OrderResult, error) {
	return &core.OrderResult{Order: *f.group, Inserted: len(in.Slots)}, nil
}

func (f *fakeOrders) EditOrder(_ context.Context, in core.EditOrderInput) (*core.OrderResult, error) {
	o := *f.group
	o.DriverID = in.DriverID
	return &core.OrderResult{Order: o}, nil
}

func (f *fakeOrders) GetLogicalOrder(_ context.Context, key core.LogicalOrderKey) (*core.LogicalOrder, error) {
	if f.group == nil || key != f.group.Key {
		return nil, core.ErrNotFound
	}
	o := *f.group
	return &o, nil
}

func (f *fakeOrders) MarkPrinted(_ context.Context, keys []core.LogicalOrderKey) (int64, error) {
	f.printed = append(f.printed, keys...)
	return int64(len(keys)), nil
}

func (f *fakeOrders) ListLogicalOrders(context.Context, core.OrderFilter) ([]core.LogicalOrder, error) {
	past := *f.group
	past.Date = time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	return []core.LogicalOrder{*f.group, past}, nil
}

type fakeDrivers struct {
	core.DriverService
}

func (fakeDrivers) GetDriver(_ context.Context, id string) (*core.Driver, error) {
	chat := int64(42)
	return &core.Driver{ID: id, Name: "Mohan", TelegramChatID: &chat}, nil
}

type recordingNotifier struct {
	sent []string
	err  error
}

func (n *recordingNotifier) NotifyAssignment(_ context.Context, d core.Driver, o core.LogicalOrder) error {
	n.sent = append(n.sent, d.Name+":"+o.Key.String())
	return n.err
}

func testGroup() *core.LogicalOrder {
	return &core.LogicalOrder{
		Key:          core.LogicalOrderKey{CustomerID: "c1", Date: "2025-03-01"},
		OrderNumber:  7,
		Date:         time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		CustomerName: "Ravi",
		TotalAmount:  decimal.NewFromInt(130),
		TotalPaid:    decimal.NewFromInt(110),
		Products:     []core.ProductBreakdown{{ProductType: core.ProductTukdi, Quantity: decimal.NewFromInt(5), Amount: decimal.NewFromInt(100)}},
		Lines:        []core.OrderLine{{ID: "l1", ProductType: core.ProductTukdi}},
	}
}

func newTestApp(orders *fakeOrders, n core.DispatchNotifier) (*appService, *test.Hook) {
	logger, hook := test.NewNullLogger()
	svc := NewAppService(Deps{
		Orders:       orders,
		Drivers:      fakeDrivers{},
		Notifier:     n,
		Logger:       logger,
		BusinessName: "WheatFlow",
	}).(*appService)
	svc.now = func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	return svc, hook
}

func TestCreateOrder_NotifiesAssignedDriver(t *testing.T) {
	n := &recordingNotifier{}
	svc, _ := newTestApp(&fakeOrders{group: testGroup()}, n)

	if _, err := svc.CreateOrder(context.Background(), core.CreateOrderInput{DriverID: "d1"}); err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if len(n.sent) != 1 || n.sent[0] != "Mohan:c1|2025-03-01|" {
		t.Errorf("unexpected notifications: %v", n.sent)
	}

	if _, err := svc.CreateOrder(context.Background(), core.CreateOrderInput{}); err != nil {
		t.Fatalf("CreateOrder without driver: %v", err)
	}
	if len(n.sent) != 1 {
		t.Errorf("order without a driver must not notify, got %v", n.sent)
	}
}

func TestCreateOrder_NotifyFailureIsLogged(t *testing.T) {
	n := &recordingNotifier{err: errors.New("telegram down")}
	svc, hook := newTestApp(&fakeOrders{group: testGroup()}, n)

	if _, err := svc.CreateOrder(context.Background(), core.CreateOrderInput{DriverID: "d1"}); err != nil {
		t.Fatalf("notification failure must not fail the order: %v", err)
	}
	entry := hook.LastEntry()
	if entry == nil || entry.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning, got %+v", entry)
	}
}

func TestEditOrder_NotifiesOnlyOnReassignment(t *testing.T) {
	g := testGroup()
	g.DriverID = "d1"
	n := &recordingNotifier{}
	svc, _ := newTestApp(&fakeOrders{group: g}, n)

	if _, err := svc.EditOrder(context.Background(), core.EditOrderInput{Key: g.Key, DriverID: "d1"}); err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 0 {
		t.Errorf("same driver must not be notified again, got %v", n.sent)
	}
	if _, err := svc.EditOrder(context.Background(), core.EditOrderInput{Key: g.Key, DriverID: "d2"}); err != nil {
		t.Fatal(err)
	}
	if len(n.sent) != 1 {
		t.Errorf("expected one notification for the new driver, got %v", n.sent)
	}
}

func TestPrintSlips(t *testing.T) {
	orders := &fakeOrders{group: testGroup()}
	svc, _ := newTestApp(orders, nil)

	var buf bytes.Buffer
	if err := svc.PrintSlips(context.Background(), &buf, []core.LogicalOrderKey{orders.group.Key}); err != nil {
		t.Fatalf("PrintSlips: %v", err)
	}
	if !strings.Contains(buf.String(), "WheatFlow") || !strings.Contains(buf.String(), "Ravi") {
		t.Error("slip missing business or customer name")
	}
	if len(orders.printed) != 1 {
		t.Errorf("expected the order marked printed, got %v", orders.printed)
	}

	err := svc.PrintSlips(context.Background(), &buf, nil)
	if !errors.Is(err, core.ErrValidation) {
		t.Errorf("expected validation error for empty selection, got %v", err)
	}
}

func TestListOrders_SplitsByYear(t *testing.T) {
	svc, _ := newTestApp(&fakeOrders{group: testGroup()}, nil)

	res, err := svc.ListOrders(context.Background(), core.OrderFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Year != 2025 || len(res.Current) != 1 || len(res.Past) != 1 {
		t.Errorf("unexpected split: year=%d current=%d past=%d", res.Year, len(res.Current), len(res.Past))
	}
}
