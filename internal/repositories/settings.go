package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"vr-theatre-marketplace/internal/models"
)

// SettingsRepository reads the platform settings row
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Get retrieves the current platform settings, falling back to defaults when
// the row has not been created yet.
func (r *SettingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	settings := &models.Settings{}
	err := r.db.QueryRowContext(ctx, `
		SELECT fee_fixed_cents, fee_percent, payment_fee_fixed_cents, payment_fee_percent,
		       tax_percent, currency, app_url, updated_at
		FROM platform_settings
		WHERE id = 1`).Scan(
		&settings.FeeFixedCents,
		&settings.FeePercent,
		&settings.PaymentFeeFixedCents,
		&settings.PaymentFeePercent,
		&settings.TaxPercent,
		&settings.Currency,
		&settings.AppURL,
		&settings.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return settings, nil
}
