package storage

import (
	"context"
	"database/sql"
	"errors"
)

// GetSetting returns the value for key; ok is false when unset.
func (d *DB) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	err = d.db.QueryRowContext(ctx, "SELECT value FROM app_settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, wrap("读取配置失败", err)
	}
	return value, true, nil
}

// SetSetting upserts key.
func (d *DB) SetSetting(ctx context.Context, key, value string) error {
	_, err := d.db.ExecContext(ctx, `INSERT INTO app_settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now())
	return wrap("保存配置失败", err)
}

// AllSettings returns every stored setting.
func (d *DB) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := d.db.QueryContext(ctx, "SELECT key, value FROM app_settings ORDER BY key")
	if err != nil {
		return nil, wrap("读取配置失败", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, wrap("读取配置失败", err)
		}
		out[k] = v
	}
	return out, wrap("读取配置失败", rows.Err())
}
