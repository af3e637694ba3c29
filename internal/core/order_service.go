package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// OrderService creates, edits, and deletes logical orders by fanning out over their order lines.
// Every multi-row operation runs in one transaction and moves stock with atomic deltas.
type OrderService interface {
	// Entry and edit
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderResult, error)
	EditOrder(ctx context.Context, input EditOrderInput) (*OrderResult, error)

	// Group operations
	GetLogicalOrder(ctx context.Context, key LogicalOrderKey) (*LogicalOrder, error)
	ListLogicalOrders(ctx context.Context, filter OrderFilter) ([]LogicalOrder, error)
	// SetGroupStatus updates every line of the group in one statement and returns the row count.
	SetGroupStatus(ctx context.Context, key LogicalOrderKey, status string) (int64, error)
	// DeleteLogicalOrder restores stock for each real line, then deletes all lines of the group.
	DeleteLogicalOrder(ctx context.Context, key LogicalOrderKey) (int64, error)
	MarkPrinted(ctx context.Context, keys []LogicalOrderKey) (int64, error)

	// Line operations
	ListLines(ctx context.Context) ([]OrderLine, error)
	// DeleteLine removes a single line and restores its quantity to stock.
	DeleteLine(ctx context.Context, id string) error

	// SubAreas returns distinct non-empty sub-areas from orders and drivers, sorted.
	SubAreas(ctx context.Context) ([]string, error)
}

type orderService struct {
	pool   *pgxpool.Pool
	locker Locker
	now    func() time.Time
}

// NewOrderService constructs an OrderService. A nil locker disables cross-process locking.
func NewOrderService(pool *pgxpool.Pool, locker Locker) OrderService {
	if locker == nil {
		locker = NoopLocker{}
	}
	return &orderService{pool: pool, locker: locker, now: time.Now}
}

const lineSelect = `
	SELECT o.id::text, o.order_number, o.customer_id::text, o.product_type,
	       o.quantity_kg, o.rate_per_kg, o.total_amount, o.amount_paid,
	       o.order_date, o.delivery_date, o.sub_area, o.driver_id::text, o.status, o.notes,
	       o.is_printed, o.created_at, o.updated_at,
	       c.name, c.phone, c.address, c.area_id::text, a.area_name, d.name, d.phone
	FROM orders o
	JOIN customers c ON c.id = o.customer_id
	LEFT JOIN areas a ON a.id = c.area_id
	LEFT JOIN drivers d ON d.id = o.driver_id`

const groupPredicate = `
	WHERE o.customer_id = $1
	  AND COALESCE(o.delivery_date, o.order_date) = $2
	  AND COALESCE(o.sub_area, '') = $3`

func scanLine(row pgx.Row) (OrderLine, error) {
	var l OrderLine
	var subArea, driverID, notes, address, areaID, areaName, driverName, driverPhone *string
	err := row.Scan(&l.ID, &l.OrderNumber, &l.CustomerID, &l.ProductType,
		&l.Quantity, &l.Rate, &l.TotalAmount, &l.AmountPaid,
		&l.OrderDate, &l.DeliveryDate, &subArea, &driverID, &l.Status, &notes,
		&l.IsPrinted, &l.CreatedAt, &l.UpdatedAt,
		&l.CustomerName, &l.CustomerPhone, &address, &areaID, &areaName, &driverName, &driverPhone)
	if err != nil {
		return l, err
	}
	l.SubArea, l.DriverID, l.Notes = deref(subArea), deref(driverID), deref(notes)
	l.CustomerAddress, l.AreaID, l.AreaName = deref(address), deref(areaID), deref(areaName)
	l.DriverName, l.DriverPhone = deref(driverName), deref(driverPhone)
	return l, nil
}

func queryLines(ctx context.Context, q pgxQuerier, sql string, args ...any) ([]OrderLine, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []OrderLine
	for rows.Next() {
		l, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order lines: %w", err)
	}
	return lines, nil
}

// loadGroup returns the lines of one logical order; forUpdate row-locks them for the transaction.
func loadGroup(ctx context.Context, q pgxQuerier, key LogicalOrderKey, forUpdate bool) ([]OrderLine, error) {
	date, err := keyDate(key)
	if err != nil {
		return nil, err
	}
	sql := lineSelect + groupPredicate + ` ORDER BY o.order_number`
	if forUpdate {
		sql += ` FOR UPDATE OF o`
	}
	return queryLines(ctx, q, sql, key.CustomerID, date, strings.TrimSpace(key.SubArea))
}

func keyDate(key LogicalOrderKey) (time.Time, error) {
	if err := structErr(key); err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(dateLayout, key.Date)
	if err != nil {
		return time.Time{}, validationErr("date %q must be YYYY-MM-DD", key.Date)
	}
	return d, nil
}

func checkDriver(ctx context.Context, q pgxQuerier, driverID string) error {
	if driverID == "" {
		return nil
	}
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM drivers WHERE id = $1)`, driverID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check driver %s: %w", driverID, err)
	}
	if !exists {
		return validationErr("driver %s does not exist", driverID)
	}
	return nil
}

func checkArea(ctx context.Context, q pgxQuerier, areaID string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM areas WHERE id = $1)`, areaID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check area %s: %w", areaID, err)
	}
	if !exists {
		return validationErr("area %s does not exist", areaID)
	}
	return nil
}

func customerIDByPhone(ctx context.Context, q pgxQuerier, phone string) (string, error) {
	var id string
	err := q.QueryRow(ctx, `SELECT id::text FROM customers WHERE phone = $1`, phone).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up customer %s: %w", phone, err)
	}
	return id, nil
}

func (s *orderService) lock(ctx context.Context, key LogicalOrderKey) (func(), error) {
	unlock, err := s.locker.Lock(ctx, key.LockKey())
	if err != nil {
		return nil, fmt.Errorf("order %s is busy: %w", key, err)
	}
	return unlock, nil
}

// ── Entry ────────────────────────────────────────────────────────────────────

// CreateOrder validates the whole request before touching the store, then in one transaction
// upserts the customer, inserts one line per positive slot with first-line-first-paid
// allocation, and decrements stock per line.
func (s *orderService) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderResult, error) {
	if err := structErr(input); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(input.Phone)
	if err != nil {
		return nil, err
	}
	if err := validateSlots(input.Slots, true); err != nil {
		return nil, err
	}
	if err := validateAmount("amount paid", input.AmountPaid); err != nil {
		return nil, err
	}
	deliveryDate, err := parseDate(input.DeliveryDate, s.now())
	if err != nil {
		return nil, err
	}
	subArea := strings.TrimSpace(input.SubArea)
	date := deliveryDate.Format(dateLayout)

	// The order lock is taken before the transaction, as EditOrder does, so neither waits on
	// the other's customer row while holding the lock. A customer that does not exist yet
	// has no logical order to edit, so there is nothing to lock.
	knownID, err := customerIDByPhone(ctx, s.pool, phone)
	if err != nil {
		return nil, err
	}
	if knownID != "" {
		unlock, err := s.lock(ctx, LogicalOrderKey{CustomerID: knownID, Date: date, SubArea: subArea})
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := checkArea(ctx, tx, input.AreaID); err != nil {
		return nil, err
	}
	if err := checkDriver(ctx, tx, input.DriverID); err != nil {
		return nil, err
	}

	customerID, err := upsertCustomer(ctx, tx, input.CustomerName, phone, input.Address, input.AreaID)
	if err != nil {
		return nil, err
	}

	key := LogicalOrderKey{CustomerID: customerID, Date: date, SubArea: subArea}

	resolver := NewRateResolver(NewPgRateLookup(tx))
	var slots []SlotInput
	var totals []decimal.Decimal
	for _, slot := range SortSlots(input.Slots) {
		if !slot.Quantity.IsPositive() {
			continue
		}
		if !slot.Rate.IsPositive() {
			rate, err := resolver.Resolve(ctx, slot.ProductType, input.AreaID)
			if err != nil {
				return nil, err
			}
			slot.Rate = rate
		}
		slots = append(slots, slot)
		totals = append(totals, slot.Quantity.Mul(slot.Rate))
	}
	paid := AllocatePayment(totals, input.AmountPaid)

	result := &OrderResult{}
	for i, slot := range slots {
		_, err := tx.Exec(ctx, `
			INSERT INTO orders (customer_id, product_type, quantity_kg, rate_per_kg, total_amount, amount_paid,
			                    order_date, delivery_date, sub_area, driver_id, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 'pending', $11)
		`, customerID, slot.ProductType, slot.Quantity, slot.Rate, totals[i], paid[i],
			s.today(), deliveryDate, nullIfEmpty(subArea), nullIfEmpty(input.DriverID), nullIfEmpty(input.Notes))
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s line: %w", slot.ProductType, err)
		}
		result.Inserted++

		if TracksStock(slot.ProductType) {
			delta := slot.Quantity.Neg()
			if err := adjustStock(ctx, tx, slot.ProductType, delta); err != nil {
				return nil, err
			}
			result.StockChanges = append(result.StockChanges, StockDelta{ProductType: slot.ProductType, Delta: delta})
		}
	}

	order, err := s.groupIn(ctx, tx, key)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order creation: %w", err)
	}
	result.Order = *order
	return result, nil
}

// ── Edit ─────────────────────────────────────────────────────────────────────

// EditOrder reconciles the stored lines of a logical order against the edited slots.
// Customer details are overwritten unconditionally. Lines whose product type has no slot keep
// their quantities but follow the group's new sub-area, driver, and status.
func (s *orderService) EditOrder(ctx context.Context, input EditOrderInput) (*OrderResult, error) {
	if err := structErr(input); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(input.Phone)
	if err != nil {
		return nil, err
	}
	if err := validateSlots(input.Slots, false); err != nil {
		return nil, err
	}
	if err := validateAmount("amount paid", input.AmountPaid); err != nil {
		return nil, err
	}
	groupDate, err := keyDate(input.Key)
	if err != nil {
		return nil, err
	}
	subArea := strings.TrimSpace(input.SubArea)

	unlock, err := s.lock(ctx, input.Key)
	if err != nil {
		return nil, err
	}
	defer unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	existing, err := loadGroup(ctx, tx, input.Key, true)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, notFoundErr("logical order %s", input.Key)
	}
	if err := checkArea(ctx, tx, input.AreaID); err != nil {
		return nil, err
	}
	if err := checkDriver(ctx, tx, input.DriverID); err != nil {
		return nil, err
	}

	if err := updateCustomer(ctx, tx, input.Key.CustomerID, input.CustomerName, phone, input.Address, input.AreaID); err != nil {
		if isUniqueViolation(err) {
			return nil, validationErr("phone %s belongs to another customer", phone)
		}
		return nil, err
	}

	// A zero rate keeps the matched line's rate, falling back to the resolver for new lines.
	slots := SortSlots(input.Slots)
	matches := MatchSlots(existing, slots)
	resolver := NewRateResolver(NewPgRateLookup(tx))
	for i, slot := range slots {
		if slot.Quantity.IsPositive() && !slot.Rate.IsPositive() {
			if len(matches[i]) > 0 && matches[i][0].Rate.IsPositive() {
				slot.Rate = matches[i][0].Rate
			} else {
				rate, err := resolver.Resolve(ctx, slot.ProductType, input.AreaID)
				if err != nil {
					return nil, err
				}
				slot.Rate = rate
			}
		}
		slots[i] = slot
	}

	status := input.Status
	if status == "" {
		status = GroupLines(existing)[0].Status
	}

	result := &OrderResult{}
	var keepIDs []string
	deleted := make(map[string]bool)
	for _, a := range PlanEdit(existing, slots, input.AmountPaid) {
		switch a.Kind {
		case EditUpdate:
			_, err = tx.Exec(ctx, `
				UPDATE orders
				SET quantity_kg = $2, rate_per_kg = $3, total_amount = $4, amount_paid = $5, updated_at = now()
				WHERE id = $1
			`, a.LineID, a.Quantity, a.Rate, a.Total, a.Paid)
			result.Updated++
		case EditInsert:
			var id string
			err = tx.QueryRow(ctx, `
				INSERT INTO orders (customer_id, product_type, quantity_kg, rate_per_kg, total_amount, amount_paid,
				                    order_date, delivery_date, sub_area, driver_id, status)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
				RETURNING id::text
			`, input.Key.CustomerID, a.ProductType, a.Quantity, a.Rate, a.Total, a.Paid,
				existing[0].OrderDate, groupDate, nullIfEmpty(subArea), nullIfEmpty(input.DriverID), status).Scan(&id)
			keepIDs = append(keepIDs, id)
			result.Inserted++
		case EditDelete:
			_, err = tx.Exec(ctx, `DELETE FROM orders WHERE id = $1`, a.LineID)
			result.Deleted++
			deleted[a.LineID] = true
		}
		if err != nil {
			return nil, fmt.Errorf("failed to %s %s line: %w", a.Kind, a.ProductType, err)
		}
		if !a.StockDelta.IsZero() {
			if err := adjustStock(ctx, tx, a.ProductType, a.StockDelta); err != nil {
				return nil, err
			}
			result.StockChanges = append(result.StockChanges, StockDelta{ProductType: a.ProductType, Delta: a.StockDelta})
		}
	}

	for _, l := range existing {
		if !deleted[l.ID] {
			keepIDs = append(keepIDs, l.ID)
		}
	}

	if len(keepIDs) > 0 {
		_, err = tx.Exec(ctx, `
			UPDATE orders
			SET sub_area = $2, driver_id = $3, status = $4, delivery_date = $5, updated_at = now()
			WHERE id = ANY($1::uuid[])
		`, keepIDs, nullIfEmpty(subArea), nullIfEmpty(input.DriverID), status, groupDate)
		if err != nil {
			return nil, fmt.Errorf("failed to update group fields: %w", err)
		}
	}

	newKey := LogicalOrderKey{CustomerID: input.Key.CustomerID, Date: input.Key.Date, SubArea: subArea}
	order, err := s.groupIn(ctx, tx, newKey)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order edit: %w", err)
	}
	if order != nil {
		result.Order = *order
	} else {
		result.Order = LogicalOrder{Key: newKey, CustomerID: newKey.CustomerID}
	}
	return result, nil
}

// ── Group operations ─────────────────────────────────────────────────────────

func (s *orderService) today() time.Time {
	y, m, d := s.now().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (s *orderService) groupIn(ctx context.Context, q pgxQuerier, key LogicalOrderKey) (*LogicalOrder, error) {
	lines, err := loadGroup(ctx, q, key, false)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, notFoundErr("logical order %s", key)
	}
	groups := GroupLines(lines)
	return &groups[0], nil
}

func (s *orderService) GetLogicalOrder(ctx context.Context, key LogicalOrderKey) (*LogicalOrder, error) {
	return s.groupIn(ctx, s.pool, key)
}

func (s *orderService) ListLogicalOrders(ctx context.Context, filter OrderFilter) ([]LogicalOrder, error) {
	if err := structErr(filter); err != nil {
		return nil, err
	}
	lines, err := s.ListLines(ctx)
	if err != nil {
		return nil, err
	}
	return FilterGroups(GroupLines(lines), filter), nil
}

func (s *orderService) SetGroupStatus(ctx context.Context, key LogicalOrderKey, status string) (int64, error) {
	if !ValidStatus(status) {
		return 0, validationErr("status must be one of pending, delivered, cancelled")
	}
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return 0, err
	}
	defer unlock()

	lines, err := loadGroup(ctx, s.pool, key, false)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, notFoundErr("logical order %s", key)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders SET status = $1, updated_at = now()
		WHERE id = ANY($2::uuid[])
	`, status, GroupLines(lines)[0].LineIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to set status for %s: %w", key, err)
	}
	return tag.RowsAffected(), nil
}

func (s *orderService) DeleteLogicalOrder(ctx context.Context, key LogicalOrderKey) (int64, error) {
	unlock, err := s.lock(ctx, key)
	if err != nil {
		return 0, err
	}
	defer unlock()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	lines, err := loadGroup(ctx, tx, key, true)
	if err != nil {
		return 0, err
	}
	if len(lines) == 0 {
		return 0, notFoundErr("logical order %s", key)
	}

	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ID)
		if err := adjustStock(ctx, tx, l.ProductType, l.Quantity); err != nil {
			return 0, err
		}
	}
	tag, err := tx.Exec(ctx, `DELETE FROM orders WHERE id = ANY($1::uuid[])`, ids)
	if err != nil {
		return 0, fmt.Errorf("failed to delete order lines for %s: %w", key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit order delete: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *orderService) MarkPrinted(ctx context.Context, keys []LogicalOrderKey) (int64, error) {
	var total int64
	for _, key := range keys {
		date, err := keyDate(key)
		if err != nil {
			return total, err
		}
		tag, err := s.pool.Exec(ctx, `
			UPDATE orders o SET is_printed = true, updated_at = now()
		`+groupPredicate, key.CustomerID, date, strings.TrimSpace(key.SubArea))
		if err != nil {
			return total, fmt.Errorf("failed to mark %s printed: %w", key, err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}

// ── Line operations ──────────────────────────────────────────────────────────

func (s *orderService) ListLines(ctx context.Context) ([]OrderLine, error) {
	return queryLines(ctx, s.pool, lineSelect+` ORDER BY o.order_number`)
}

func (s *orderService) DeleteLine(ctx context.Context, id string) error {
	if err := checkID("order line", id); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var productType string
	var qty decimal.Decimal
	err = tx.QueryRow(ctx, `
		DELETE FROM orders WHERE id = $1
		RETURNING product_type, quantity_kg
	`, id).Scan(&productType, &qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundErr("order line %s", id)
		}
		return fmt.Errorf("failed to delete order line %s: %w", id, err)
	}
	if err := adjustStock(ctx, tx, productType, qty); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *orderService) SubAreas(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT sub_area FROM (
			SELECT TRIM(sub_area) AS sub_area FROM orders
			UNION
			SELECT TRIM(sub_area) FROM drivers
		) s
		WHERE sub_area IS NOT NULL AND sub_area <> ''
		ORDER BY sub_area
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub-areas: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var sa string
		if err := rows.Scan(&sa); err != nil {
			return nil, fmt.Errorf("failed to scan sub-area: %w", err)
		}
		out = append(out, sa)
	}
	return out, rows.Err()
}
