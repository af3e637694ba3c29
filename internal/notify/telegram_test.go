package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"grain-orders/internal/core"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type fakeSender struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	f.sent = append(f.sent, c.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

func sampleOrder() core.LogicalOrder {
	lines := []core.OrderLine{
		{ID: "1", OrderNumber: 41, CustomerID: "c1", CustomerName: "Ravi", CustomerPhone: "9000000001",
			CustomerAddress: "12 Mandi Road", AreaName: "Area A", SubArea: "Ward 4",
			ProductType: core.ProductTukdi, Quantity: decimal.NewFromInt(5), TotalAmount: decimal.NewFromInt(100),
			AmountPaid: decimal.NewFromInt(100), OrderDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", OrderNumber: 42, CustomerID: "c1", CustomerName: "Ravi", SubArea: "Ward 4",
			ProductType: core.ProductSasiya, Quantity: decimal.NewFromInt(2), TotalAmount: decimal.NewFromInt(30),
			AmountPaid: decimal.NewFromInt(10), OrderDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	return core.GroupLines(lines)[0]
}

func TestAssignmentMessage(t *testing.T) {
	msg := AssignmentMessage("Shree Traders", sampleOrder())

	for _, want := range []string{
		"Shree Traders: new delivery #41",
		"Date: 01/03/2025",
		"Customer: Ravi (9000000001)",
		"Address: 12 Mandi Road, Ward 4, Area A",
		"- Tukdi: 5 kg",
		"- Sasiya: 2 kg",
		"Collect: Rs 20.00",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "Tukdi D") {
		t.Errorf("empty slots should be omitted:\n%s", msg)
	}
}

func TestNotifyAssignment(t *testing.T) {
	chat := int64(555)
	fake := &fakeSender{}
	n := &TelegramNotifier{api: fake, businessName: "Shree Traders", logger: logrus.New()}

	if err := n.NotifyAssignment(context.Background(), core.Driver{ID: "d1"}, sampleOrder()); err != nil {
		t.Fatalf("driver without chat: %v", err)
	}
	if len(fake.sent) != 0 {
		t.Fatalf("expected no message without a chat id, got %d", len(fake.sent))
	}

	if err := n.NotifyAssignment(context.Background(), core.Driver{ID: "d1", TelegramChatID: &chat}, sampleOrder()); err != nil {
		t.Fatalf("NotifyAssignment: %v", err)
	}
	if len(fake.sent) != 1 || fake.sent[0].ChatID != chat {
		t.Fatalf("expected one message to chat 555, got %+v", fake.sent)
	}

	fake.err = errors.New("blocked by user")
	if err := n.NotifyAssignment(context.Background(), core.Driver{ID: "d1", TelegramChatID: &chat}, sampleOrder()); err == nil {
		t.Error("expected send error to be returned")
	}
}
