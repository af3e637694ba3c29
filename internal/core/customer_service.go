package core

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerService manages customers and the delivery areas they belong to.
type CustomerService interface {
	LookupByPhone(ctx context.Context, phone string) (*Customer, error)
	ListCustomers(ctx context.Context, filter CustomerFilter) ([]CustomerStats, error)
	// DeleteCustomer removes the customer and, by cascade, every order line it owns.
	DeleteCustomer(ctx context.Context, id string) error

	CreateArea(ctx context.Context, name string) (*Area, error)
	ListAreas(ctx context.Context) ([]Area, error)
	// DeleteArea is refused while any customer references the area.
	DeleteArea(ctx context.Context, id string) error
}

type customerService struct {
	pool *pgxpool.Pool
}

// NewCustomerService constructs a CustomerService backed by PostgreSQL.
func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

// upsertCustomer inserts the customer or, when the phone is known, updates address and area
// in place and keeps the stored name. phone must already be normalised.
func upsertCustomer(ctx context.Context, q pgxQuerier, name, phone, address, areaID string) (string, error) {
	var id string
	err := q.QueryRow(ctx, `
		INSERT INTO customers (name, phone, address, area_id)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (phone) DO UPDATE
		SET address = EXCLUDED.address, area_id = EXCLUDED.area_id, updated_at = now()
		RETURNING id::text
	`, strings.TrimSpace(name), phone, nullIfEmpty(address), nullIfEmpty(areaID)).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert customer %s: %w", phone, err)
	}
	return id, nil
}

// updateCustomer overwrites an existing customer's details, including the phone.
func updateCustomer(ctx context.Context, q pgxQuerier, id, name, phone, address, areaID string) error {
	tag, err := q.Exec(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, address = $4, area_id = $5, updated_at = now()
		WHERE id = $1
	`, id, strings.TrimSpace(name), phone, nullIfEmpty(address), nullIfEmpty(areaID))
	if err != nil {
		return fmt.Errorf("update customer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("customer %s", id)
	}
	return nil
}

func (s *customerService) LookupByPhone(ctx context.Context, phone string) (*Customer, error) {
	norm, err := NormalizePhone(phone)
	if err != nil {
		return nil, err
	}
	var c Customer
	var address, areaID, areaName *string
	err = s.pool.QueryRow(ctx, `
		SELECT c.id::text, c.name, c.phone, c.address, c.area_id::text, a.area_name, c.created_at, c.updated_at
		FROM customers c
		LEFT JOIN areas a ON a.id = c.area_id
		WHERE c.phone = $1
	`, norm).Scan(&c.ID, &c.Name, &c.Phone, &address, &areaID, &areaName, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErr("customer with phone %s", norm)
		}
		return nil, fmt.Errorf("lookup customer %s: %w", norm, err)
	}
	c.Address, c.AreaID, c.AreaName = deref(address), deref(areaID), deref(areaName)
	return &c, nil
}

func (s *customerService) ListCustomers(ctx context.Context, filter CustomerFilter) ([]CustomerStats, error) {
	if err := structErr(filter); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT c.id::text, c.name, c.phone, c.address, c.area_id::text, a.area_name, c.created_at, c.updated_at,
		       COALESCE(SUM(o.total_amount) FILTER (WHERE o.product_type <> 'Null'), 0),
		       COALESCE(SUM(o.quantity_kg) FILTER (WHERE o.product_type <> 'Null'), 0),
		       COUNT(o.id) FILTER (WHERE o.product_type <> 'Null'),
		       COUNT(o.id) FILTER (WHERE o.product_type <> 'Null' AND o.status = 'delivered'),
		       COALESCE(BOOL_OR(o.total_amount > o.amount_paid) FILTER (WHERE o.product_type <> 'Null'), false)
		FROM customers c
		LEFT JOIN areas a ON a.id = c.area_id
		LEFT JOIN orders o ON o.customer_id = c.id
		WHERE ($1 = '' OR c.area_id::text = $1)
		GROUP BY c.id, a.area_name
	`, filter.AreaID)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var out []CustomerStats
	for rows.Next() {
		var c CustomerStats
		var address, areaID, areaName *string
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &address, &areaID, &areaName, &c.CreatedAt, &c.UpdatedAt,
			&c.TotalAmount, &c.TotalKg, &c.OrderCount, &c.DeliveredCount, &c.HasPending); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.Address, c.AreaID, c.AreaName = deref(address), deref(areaID), deref(areaName)

		if search != "" && !strings.Contains(strings.ToLower(c.Name), search) && !strings.Contains(c.Phone, search) {
			continue
		}
		switch filter.View {
		case CustomerViewPending:
			if !c.HasPending {
				continue
			}
		case CustomerViewCompleted:
			if c.HasPending {
				continue
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	SortCustomers(out, filter.Sort, filter.Dir)
	return out, nil
}

// SortCustomers orders stats by field ("name" when empty); ties fall back to name.
func SortCustomers(list []CustomerStats, field, dir string) {
	less := func(a, b CustomerStats) int {
		switch field {
		case "area":
			return strings.Compare(a.AreaName, b.AreaName)
		case "totalAmount":
			return a.TotalAmount.Cmp(b.TotalAmount)
		case "totalKg":
			return a.TotalKg.Cmp(b.TotalKg)
		case "orderCount":
			return a.OrderCount - b.OrderCount
		}
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
	sort.SliceStable(list, func(i, j int) bool {
		c := less(list[i], list[j])
		if c == 0 {
			return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
		}
		if dir == "desc" {
			return c > 0
		}
		return c < 0
	})
}

func (s *customerService) DeleteCustomer(ctx context.Context, id string) error {
	if err := checkID("customer", id); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("customer %s", id)
	}
	return nil
}

func (s *customerService) CreateArea(ctx context.Context, name string) (*Area, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr("area name is required")
	}
	var a Area
	err := s.pool.QueryRow(ctx, `
		INSERT INTO areas (area_name) VALUES ($1)
		RETURNING id::text, area_name, created_at
	`, name).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, validationErr("area %q already exists", name)
		}
		return nil, fmt.Errorf("create area %q: %w", name, err)
	}
	return &a, nil
}

func (s *customerService) ListAreas(ctx context.Context) ([]Area, error) {
	rows, err := s.pool.Query(ctx, `SELECT id::text, area_name, created_at FROM areas ORDER BY area_name`)
	if err != nil {
		return nil, fmt.Errorf("query areas: %w", err)
	}
	defer rows.Close()

	var areas []Area
	for rows.Next() {
		var a Area
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan area: %w", err)
		}
		areas = append(areas, a)
	}
	return areas, rows.Err()
}

func (s *customerService) DeleteArea(ctx context.Context, id string) error {
	if err := checkID("area", id); err != nil {
		return err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var customers int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM customers WHERE area_id = $1`, id).Scan(&customers); err != nil {
		return fmt.Errorf("count customers in area %s: %w", id, err)
	}
	if customers > 0 {
		return refusedErr("area has %d customer(s); reassign or delete them first", customers)
	}
	// Drivers keep their row but lose the area reference.
	if _, err := tx.Exec(ctx, `UPDATE drivers SET area_id = NULL WHERE area_id = $1`, id); err != nil {
		return fmt.Errorf("detach drivers from area %s: %w", id, err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM areas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete area %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("area %s", id)
	}
	return tx.Commit(ctx)
}
