package app

import (
	"context"
	"fmt"

	"grain-orders/internal/config"
	"grain-orders/internal/core"
	"grain-orders/internal/db"
	"grain-orders/internal/lock"
	"grain-orders/internal/notify"

	"github.com/sirupsen/logrus"
)

// Build connects the store and the optional Redis lock and Telegram notifier, then wires every
// core service behind an ApplicationService. The returned func releases the connections.
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (ApplicationService, func(), error) {
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	closers := []func(){pool.Close}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var locker core.Locker = core.NoopLocker{}
	if cfg.RedisAddress != "" {
		rdb, err := lock.Connect(ctx, cfg.RedisAddress)
		if err != nil {
			config.LogError(logger, "app", "Build", "redis lock", cfg.RedisAddress, err)
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, func() { _ = rdb.Close() })
		locker = lock.NewRedisLocker(rdb, logger)
		logger.WithField("addr", cfg.RedisAddress).Info("order locks held in redis")
	}

	var notifier core.DispatchNotifier = core.NoopNotifier{}
	if cfg.TelegramToken != "" {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramToken, cfg.BusinessName, logger)
		if err != nil {
			config.LogError(logger, "app", "Build", "telegram notifier", nil, err)
			cleanup()
			return nil, nil, err
		}
		notifier = tg
	}

	svc := NewAppService(Deps{
		DB:           pool,
		Orders:       core.NewOrderService(pool, locker),
		Customers:    core.NewCustomerService(pool),
		Drivers:      core.NewDriverService(pool),
		Inventory:    core.NewInventoryService(pool),
		Expenses:     core.NewExpenseService(pool),
		Reports:      core.NewReportingService(pool),
		Rollover:     core.NewRolloverService(pool, locker, logger),
		Notifier:     notifier,
		Logger:       logger,
		BusinessName: cfg.BusinessName,
		BackupDir:    cfg.BackupDir,
	})
	return svc, cleanup, nil
}
