// Package postgres stores devices and alerts in PostgreSQL through pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	alertdomain "github.com/micro-ha/mikrotik-monitor/internal/domain/alert"
	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

// Options tunes the connection pool. Zero values keep pgx defaults.
type Options struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type Repository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func New(ctx context.Context, databaseURL string, opts Options, logger zerolog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to parse connection string: %w", err)
	}
	if opts.MaxConns > 0 {
		poolConfig.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		poolConfig.MinConns = opts.MinConns
	}
	if opts.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = opts.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to initialize pool: %w", err)
	}
	repo := &Repository{pool: pool, logger: logger.With().Str("component", "storage").Logger()}
	if err := repo.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	repo.logger.Info().
		Str("host", poolConfig.ConnConfig.Host).
		Int32("max_conns", poolConfig.MaxConns).
		Msg("connected to postgres")
	return repo, nil
}

func (r *Repository) Close() error {
	r.pool.Close()
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS devices (
			id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			ip_address TEXT NOT NULL,
			username TEXT NOT NULL,
			password TEXT NOT NULL,
			port INTEGER NOT NULL DEFAULT 8728,
			use_tls BOOLEAN NOT NULL DEFAULT FALSE,
			model TEXT,
			version TEXT,
			last_connected TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			device_id BIGINT NOT NULL,
			type TEXT NOT NULL,
			severity TEXT NOT NULL,
			message TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			data JSONB,
			timestamp TIMESTAMPTZ NOT NULL DEFAULT now(),
			read BOOLEAN NOT NULL DEFAULT FALSE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_device_timestamp ON alerts(device_id, timestamp DESC)`,
	}
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: migrate failed: %w", err)
		}
	}
	return nil
}

const deviceColumns = `id, name, ip_address, username, password, port, use_tls, model, version, last_connected, created_at, updated_at`

func scanDevice(row pgx.Row) (model.Device, error) {
	var d model.Device
	err := row.Scan(&d.ID, &d.Name, &d.Host, &d.Username, &d.Password, &d.Port, &d.UseTLS,
		&d.Model, &d.Version, &d.LastConnected, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return model.Device{}, err
	}
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	if d.LastConnected != nil {
		utc := d.LastConnected.UTC()
		d.LastConnected = &utc
	}
	return d, nil
}

func (r *Repository) ListDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Device, 0)
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *Repository) GetDevice(ctx context.Context, id int64) (model.Device, error) {
	d, err := scanDevice(r.pool.QueryRow(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Device{}, fmt.Errorf("%w: %d", devicedomain.ErrDeviceNotFound, id)
	}
	return d, err
}

func (r *Repository) InsertDevice(ctx context.Context, d model.Device) (model.Device, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO devices (name, ip_address, username, password, port, use_tls, model, version, last_connected, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		d.Name, d.Host, d.Username, d.Password, d.Port, d.UseTLS,
		d.Model, d.Version, d.LastConnected, d.CreatedAt, d.UpdatedAt,
	).Scan(&d.ID)
	if err != nil {
		return model.Device{}, err
	}
	return d, nil
}

func (r *Repository) UpdateDevice(ctx context.Context, d model.Device) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE devices SET
			name = $1, ip_address = $2, username = $3, password = $4, port = $5, use_tls = $6,
			model = $7, version = $8, last_connected = $9, updated_at = $10
		WHERE id = $11`,
		d.Name, d.Host, d.Username, d.Password, d.Port, d.UseTLS,
		d.Model, d.Version, d.LastConnected, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", devicedomain.ErrDeviceNotFound, d.ID)
	}
	return nil
}

func (r *Repository) DeleteDevice(ctx context.Context, id int64) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM devices WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *Repository) TouchDevice(ctx context.Context, id int64, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `UPDATE devices SET last_connected = $1 WHERE id = $2`, at, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", devicedomain.ErrDeviceNotFound, id)
	}
	return nil
}

const alertColumns = `id, device_id, type, severity, message, description, data, timestamp, read`

func scanAlert(row pgx.Row) (model.Alert, error) {
	var (
		a        model.Alert
		typ, sev string
	)
	if err := row.Scan(&a.ID, &a.DeviceID, &typ, &sev, &a.Message, &a.Description, &a.Data, &a.CreatedAt, &a.Read); err != nil {
		return model.Alert{}, err
	}
	a.Type = model.AlertType(typ)
	a.Severity = model.Severity(sev)
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (r *Repository) ListAlerts(ctx context.Context, deviceID *int64) ([]model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	args := []any{}
	if deviceID != nil {
		query += ` WHERE device_id = $1`
		args = append(args, *deviceID)
	}
	query += ` ORDER BY timestamp DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Alert, 0)
	for rows.Next() {
		a, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *Repository) InsertAlert(ctx context.Context, a model.Alert) (model.Alert, error) {
	var data any
	if len(a.Data) > 0 {
		data = a.Data
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO alerts (device_id, type, severity, message, description, data, timestamp, read)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		a.DeviceID, string(a.Type), string(a.Severity), a.Message, a.Description, data, a.CreatedAt, a.Read,
	).Scan(&a.ID)
	if err != nil {
		return model.Alert{}, err
	}
	return a, nil
}

func (r *Repository) SetAlertRead(ctx context.Context, id int64, read bool) (model.Alert, error) {
	a, err := scanAlert(r.pool.QueryRow(ctx,
		`UPDATE alerts SET read = $1 WHERE id = $2 RETURNING `+alertColumns, read, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Alert{}, fmt.Errorf("%w: %d", alertdomain.ErrAlertNotFound, id)
	}
	return a, err
}

func (r *Repository) MarkDeviceAlertsRead(ctx context.Context, deviceID int64) error {
	_, err := r.pool.Exec(ctx, `UPDATE alerts SET read = TRUE WHERE device_id = $1 AND read = FALSE`, deviceID)
	return err
}
