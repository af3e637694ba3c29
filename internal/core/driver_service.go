package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DriverService manages delivery drivers.
type DriverService interface {
	CreateDriver(ctx context.Context, input DriverInput) (*Driver, error)
	GetDriver(ctx context.Context, id string) (*Driver, error)
	ListDrivers(ctx context.Context) ([]Driver, error)
	// DeleteDriver removes the driver; its order lines keep a NULL driver.
	DeleteDriver(ctx context.Context, id string) error
}

type driverService struct {
	pool *pgxpool.Pool
}

// NewDriverService constructs a DriverService backed by PostgreSQL.
func NewDriverService(pool *pgxpool.Pool) DriverService {
	return &driverService{pool: pool}
}

const driverColumns = `d.id::text, d.name, d.phone, d.vehicle_number, d.address, d.area_id::text, a.area_name,
	d.sub_area, d.telegram_chat_id, d.created_at`

func scanDriver(row pgx.Row) (*Driver, error) {
	d := &Driver{}
	var vehicle, address, areaID, areaName, subArea *string
	if err := row.Scan(&d.ID, &d.Name, &d.Phone, &vehicle, &address, &areaID, &areaName,
		&subArea, &d.TelegramChatID, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.VehicleNumber, d.Address = deref(vehicle), deref(address)
	d.AreaID, d.AreaName, d.SubArea = deref(areaID), deref(areaName), deref(subArea)
	return d, nil
}

// CreateDriver inserts a driver after checking the phone is a 10-digit number.
func (s *driverService) CreateDriver(ctx context.Context, input DriverInput) (*Driver, error) {
	if err := structErr(input); err != nil {
		return nil, err
	}
	phone, err := NormalizePhone(input.Phone)
	if err != nil {
		return nil, err
	}

	var id string
	err = s.pool.QueryRow(ctx, `
		INSERT INTO drivers (name, phone, vehicle_number, address, area_id, sub_area, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text`,
		strings.TrimSpace(input.Name), phone, nullIfEmpty(input.VehicleNumber), nullIfEmpty(input.Address),
		nullIfEmpty(input.AreaID), nullIfEmpty(input.SubArea), input.TelegramChatID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create driver %q: %w", input.Name, err)
	}
	return s.GetDriver(ctx, id)
}

func (s *driverService) GetDriver(ctx context.Context, id string) (*Driver, error) {
	if err := checkID("driver", id); err != nil {
		return nil, err
	}
	d, err := scanDriver(s.pool.QueryRow(ctx, `
		SELECT `+driverColumns+`
		FROM drivers d
		LEFT JOIN areas a ON a.id = d.area_id
		WHERE d.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundErr("driver %s", id)
		}
		return nil, fmt.Errorf("get driver %s: %w", id, err)
	}
	return d, nil
}

func (s *driverService) ListDrivers(ctx context.Context) ([]Driver, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+driverColumns+`
		FROM drivers d
		LEFT JOIN areas a ON a.id = d.area_id
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		drivers = append(drivers, *d)
	}
	return drivers, rows.Err()
}

func (s *driverService) DeleteDriver(ctx context.Context, id string) error {
	if err := checkID("driver", id); err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM drivers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete driver %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("driver %s", id)
	}
	return nil
}
