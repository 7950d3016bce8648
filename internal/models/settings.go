package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when settings do not name one
const DefaultCurrency = "eur"

// Settings holds the platform-wide values the checkout pipeline reads.
// Branding and SMTP fields are managed elsewhere.
type Settings struct {
	FeeFixedCents        int64           `json:"fee_fixed_cents" db:"fee_fixed_cents"`
	FeePercent           decimal.Decimal `json:"fee_percent" db:"fee_percent"`
	PaymentFeeFixedCents int64           `json:"payment_fee_fixed_cents" db:"payment_fee_fixed_cents"`
	PaymentFeePercent    decimal.Decimal `json:"payment_fee_percent" db:"payment_fee_percent"`
	TaxPercent           decimal.Decimal `json:"tax_percent" db:"tax_percent"`
	Currency             string          `json:"currency" db:"currency"`
	AppURL               string          `json:"app_url" db:"app_url"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// DefaultSettings returns settings with no fees and the default currency
func DefaultSettings() *Settings {
	return &Settings{
		FeePercent:        decimal.Zero,
		PaymentFeePercent: decimal.Zero,
		TaxPercent:        decimal.Zero,
		Currency:          DefaultCurrency,
		AppURL:            "http://localhost:8080",
	}
}

// CurrencyOrDefault returns the configured currency code
func (s *Settings) CurrencyOrDefault() string {
	if s == nil || s.Currency == "" {
		return DefaultCurrency
	}
	return s.Currency
}

// Breakdown is the result of pricing a set of lines
type Breakdown struct {
	Subtotal   int64 `json:"subtotal"`
	ServiceFee int64 `json:"service_fee"`
	PaymentFee int64 `json:"payment_fee"`
	Tax        int64 `json:"tax"`
	Total      int64 `json:"total"`
}
