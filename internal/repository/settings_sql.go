package repository

import (
	"context"
	"database/sql"
	"fmt"

	"socialcredit-api/internal/model"
)

// GetSettings assembles the singleton configuration from its field rows.
// Missing fields read as zero.
func (s *SQLStore) GetSettings(ctx context.Context) (*model.Settings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}
	defer rows.Close()

	settings := &model.Settings{}
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		settings.Apply(model.SettingsField(name), value)
	}
	return settings, rows.Err()
}

// SetSetting replaces a single configuration field.
func (s *SQLStore) SetSetting(ctx context.Context, field model.SettingsField, value int64) error {
	return s.SetSettings(ctx, map[model.SettingsField]int64{field: value})
}

// SetSettings upserts the given fields in a single transaction.
func (s *SQLStore) SetSettings(ctx context.Context, fields map[model.SettingsField]int64) error {
	for field, value := range fields {
		if !(&model.Settings{}).Apply(field, value) {
			return fmt.Errorf("%w: %s", model.ErrUnknownSetting, field)
		}
	}
	if len(fields) == 0 {
		return nil
	}

	query := s.q(s.dialect.upsertSetting())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for field, value := range fields {
			if _, err := tx.ExecContext(ctx, query, string(field), value); err != nil {
				return fmt.Errorf("failed to write setting %s: %w", field, err)
			}
		}
		return nil
	})
}
