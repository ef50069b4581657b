package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	alertdomain "github.com/micro-ha/mikrotik-monitor/internal/domain/alert"
	"github.com/micro-ha/mikrotik-monitor/internal/model"
)

const alertColumns = `id, device_id, type, severity, message, description, data_json, created_at, read`

func scanAlert(row rowScanner) (model.Alert, error) {
	var (
		a         model.Alert
		typ, sev  string
		data      sql.NullString
		createdAt string
	)
	if err := row.Scan(&a.ID, &a.DeviceID, &typ, &sev, &a.Message, &a.Description, &data, &createdAt, &a.Read); err != nil {
		return model.Alert{}, err
	}
	a.Type = model.AlertType(typ)
	a.Severity = model.Severity(sev)
	a.Data = decodeData(data)
	a.CreatedAt = parseTime(createdAt)
	return a, nil
}

func (r *Repository) ListAlerts(ctx context.Context, deviceID *int64) ([]model.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts`
	args := []any{}
	if deviceID != nil {
		query += ` WHERE device_id = ?`
		args = append(args, *deviceID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
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
	data, err := encodeData(a.Data)
	if err != nil {
		return model.Alert{}, err
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO alerts (device_id, type, severity, message, description, data_json, created_at, read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.DeviceID, string(a.Type), string(a.Severity), a.Message, a.Description, data, formatTime(a.CreatedAt), a.Read,
	)
	if err != nil {
		return model.Alert{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Alert{}, err
	}
	a.ID = id
	return a, nil
}

func (r *Repository) SetAlertRead(ctx context.Context, id int64, read bool) (model.Alert, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE alerts SET read = ? WHERE id = ?`, read, id)
	if err != nil {
		return model.Alert{}, err
	}
	if err := requireAffected(res, fmt.Errorf("%w: %d", alertdomain.ErrAlertNotFound, id)); err != nil {
		return model.Alert{}, err
	}
	a, err := scanAlert(r.db.QueryRowContext(ctx, `SELECT `+alertColumns+` FROM alerts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Alert{}, fmt.Errorf("%w: %d", alertdomain.ErrAlertNotFound, id)
	}
	return a, err
}

func (r *Repository) MarkDeviceAlertsRead(ctx context.Context, deviceID int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE alerts SET read = 1 WHERE device_id = ? AND read = 0`, deviceID)
	return err
}
