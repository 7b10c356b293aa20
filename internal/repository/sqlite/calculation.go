package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/energy-advisor/internal/apperror"
	"github.com/sakif/energy-advisor/internal/model"
	"github.com/sakif/energy-advisor/internal/repository"
)

var _ repository.CalculationRepository = (*DB)(nil)

const calculationViewColumns = `
	c.id, c.created_at, c.product_slug, c.email, c.user_id,
	c.electricity_kwh, c.gas_kwh, c.home_size, c.occupants, c.ev_charging, c.smart_home,
	c.kwh_saved, c.cost_saved, c.co2_saved, p.name`

// CreateCalculation inserts an immutable calculation record. There is no
// update or delete method: once written, a calculation never changes.
func (db *DB) CreateCalculation(ctx context.Context, calc *model.Calculation) error {
	calc.ID = xid.New().String()
	calc.CreatedAt = time.Now().UTC()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO calculations (
			id, created_at, product_slug, email, user_id,
			electricity_kwh, gas_kwh, home_size, occupants, ev_charging, smart_home,
			kwh_saved, cost_saved, co2_saved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		calc.ID,
		calc.CreatedAt,
		calc.ProductSlug,
		calc.Email,
		calc.UserID,
		calc.Input.ElectricityKWh,
		calc.Input.GasKWh,
		string(calc.Input.HomeSize),
		calc.Input.Occupants,
		calc.Input.EVCharging,
		calc.Input.SmartHome,
		calc.Savings.KWhSaved,
		calc.Savings.CostSaved,
		calc.Savings.CO2Saved,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating calculation: %w", err)
	}
	return nil
}

// GetCalculationForUser filters on owner in SQL so "not yours" and "does not
// exist" are the same sql.ErrNoRows.
func (db *DB) GetCalculationForUser(ctx context.Context, id, userID string) (*model.CalculationView, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+calculationViewColumns+`
		 FROM calculations c JOIN products p ON p.slug = c.product_slug
		 WHERE c.id = ? AND c.user_id = ?`,
		id, userID,
	)

	var v model.CalculationView
	if err := scanCalculationView(row, &v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("calculation", id)
		}
		return nil, fmt.Errorf("sqlite: getting calculation %s: %w", id, err)
	}
	return &v, nil
}

// ListCalculationsByUser returns the user's calculations, newest first.
func (db *DB) ListCalculationsByUser(ctx context.Context, userID string) ([]model.CalculationView, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+calculationViewColumns+`
		 FROM calculations c JOIN products p ON p.slug = c.product_slug
		 WHERE c.user_id = ?
		 ORDER BY c.created_at DESC, c.id DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing calculations: %w", err)
	}
	defer rows.Close()

	calcs := make([]model.CalculationView, 0)
	for rows.Next() {
		var v model.CalculationView
		if err := scanCalculationView(rows, &v); err != nil {
			return nil, fmt.Errorf("sqlite: scanning calculation row: %w", err)
		}
		calcs = append(calcs, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating calculations: %w", err)
	}
	return calcs, nil
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCalculationView(s scanner, v *model.CalculationView) error {
	var homeSize string
	err := s.Scan(
		&v.ID, &v.CreatedAt, &v.ProductSlug, &v.Email, &v.UserID,
		&v.Input.ElectricityKWh, &v.Input.GasKWh, &homeSize, &v.Input.Occupants,
		&v.Input.EVCharging, &v.Input.SmartHome,
		&v.Savings.KWhSaved, &v.Savings.CostSaved, &v.Savings.CO2Saved,
		&v.ProductName,
	)
	v.Input.HomeSize = model.HomeSize(homeSize)
	return err
}
