package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	devicedomain "github.com/micro-ha/mikrotik-monitor/internal/domain/device"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

const deviceColumns = `id, name, ip_address, username, password, port, use_tls, model, version, last_connected, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row rowScanner) (model.Device, error) {
	var (
		d                    model.Device
		modelName, version   sql.NullString
		lastConnected        sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&d.ID, &d.Name, &d.Host, &d.Username, &d.Password, &d.Port, &d.UseTLS,
		&modelName, &version, &lastConnected, &createdAt, &updatedAt); err != nil {
		return model.Device{}, err
	}
	d.Model = strPtr(modelName)
	d.Version = strPtr(version)
	d.LastConnected = toTimePtr(lastConnected)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}

func (r *Repository) ListDevices(ctx context.Context) ([]model.Device, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+deviceColumns+` FROM devices ORDER BY id`)
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
	d, err := scanDevice(r.db.QueryRowContext(ctx, `SELECT `+deviceColumns+` FROM devices WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Device{}, fmt.Errorf("%w: %d", devicedomain.ErrDeviceNotFound, id)
	}
	return d, err
}

func (r *Repository) InsertDevice(ctx context.Context, d model.Device) (model.Device, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO devices (name, ip_address, username, password, port, use_tls, model, version, last_connected, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Name, d.Host, d.Username, d.Password, d.Port, d.UseTLS,
		fromStringPtr(d.Model), fromStringPtr(d.Version), fromTimePtr(d.LastConnected),
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	if err != nil {
		return model.Device{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Device{}, err
	}
	d.ID = id
	return d, nil
}

func (r *Repository) UpdateDevice(ctx context.Context, d model.Device) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE devices SET
			name = ?, ip_address = ?, username = ?, password = ?, port = ?, use_tls = ?,
			model = ?, version = ?, last_connected = ?, updated_at = ?
		WHERE id = ?`,
		d.Name, d.Host, d.Username, d.Password, d.Port, d.UseTLS,
		fromStringPtr(d.Model), fromStringPtr(d.Version), fromTimePtr(d.LastConnected),
		formatTime(d.UpdatedAt), d.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(res, fmt.Errorf("%w: %d", devicedomain.ErrDeviceNotFound, d.ID))
}

func (r *Repository) DeleteDevice(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM devices WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *Repository) TouchDevice(ctx context.Context, id int64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE devices SET last_connected = ? WHERE id = ?`, formatTime(at), id)
	if err != nil {
		return err
	}
	return requireAffected(res, fmt.Errorf("%w: %d", devicedomain.ErrDeviceNotFound, id))
}

func requireAffected(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return notFound
	}
	return nil
}
