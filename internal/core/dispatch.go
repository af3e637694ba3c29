package core

import "context"

// DispatchNotifier tells a driver about a logical order assigned to them.
// Delivery is best effort; callers log failures and never fail the order.
type DispatchNotifier interface {
	NotifyAssignment(ctx context.Context, driver Driver, order LogicalOrder) error
}

// NoopNotifier drops every notification.
type NoopNotifier struct{}

func (NoopNotifier) NotifyAssignment(context.Context, Driver, LogicalOrder) error { return nil }
