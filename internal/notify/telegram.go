// Package notify sends driver dispatch messages over Telegram.
package notify

import (
	"context"
	"fmt"
	"strings"

	"grain-orders/internal/core"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

// sender is the slice of *tgbotapi.BotAPI used here.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier messages a driver's Telegram chat when an order is assigned to them.
type TelegramNotifier struct {
	api          sender
	businessName string
	logger       *logrus.Logger
}

var _ core.DispatchNotifier = (*TelegramNotifier)(nil)

// NewTelegramNotifier logs in with token.
func NewTelegramNotifier(token, businessName string, logger *logrus.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	logger.WithField("bot", api.Self.UserName).Info("telegram dispatch enabled")
	return &TelegramNotifier{api: api, businessName: businessName, logger: logger}, nil
}

// NotifyAssignment is a no-op for drivers without a chat id.
func (n *TelegramNotifier) NotifyAssignment(ctx context.Context, driver core.Driver, order core.LogicalOrder) error {
	if driver.TelegramChatID == nil {
		return nil
	}
	msg := tgbotapi.NewMessage(*driver.TelegramChatID, AssignmentMessage(n.businessName, order))
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("telegram send to driver %s: %w", driver.ID, err)
	}
	n.logger.WithFields(logrus.Fields{
		"module": "notify",
		"driver": driver.ID,
		"order":  order.OrderNumber,
	}).Info("dispatch message sent")
	return nil
}

// AssignmentMessage renders the plain-text dispatch message for a logical order.
func AssignmentMessage(businessName string, order core.LogicalOrder) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: new delivery #%d\n", businessName, order.OrderNumber)
	fmt.Fprintf(&b, "Date: %s\n", order.Date.Format("02/01/2006"))
	fmt.Fprintf(&b, "Customer: %s (%s)\n", order.CustomerName, order.CustomerPhone)

	place := order.CustomerAddress
	for _, part := range []string{order.SubArea, order.AreaName} {
		if part == "" {
			continue
		}
		if place != "" {
			place += ", "
		}
		place += part
	}
	if place != "" {
		fmt.Fprintf(&b, "Address: %s\n", place)
	}

	for _, p := range order.Products {
		if p.Quantity.IsPositive() {
			fmt.Fprintf(&b, "- %s: %s kg\n", p.ProductType, p.Quantity.String())
		}
	}
	if order.IsPaid() {
		b.WriteString("Payment: Paid")
	} else {
		fmt.Fprintf(&b, "Collect: Rs %s", order.Pending().StringFixed(2))
	}
	return b.String()
}
