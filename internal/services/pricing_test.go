package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"vr-theatre-marketplace/internal/models"
)

func exampleSettings() *models.Settings {
	return &models.Settings{
		FeeFixedCents:        100,
		FeePercent:           decimal.NewFromInt(5),
		PaymentFeeFixedCents: 0,
		PaymentFeePercent:    decimal.NewFromInt(2),
		TaxPercent:           decimal.NewFromInt(22),
		Currency:             "eur",
		AppURL:               "https://vr.example",
	}
}

func TestQuote_WorkedExample(t *testing.T) {
	lines := []models.PricedLine{
		{ContentID: "c1", TicketType: models.TicketStandard, UnitPriceCents: 1000, Quantity: 2},
		{ContentID: "c2", TicketType: models.TicketVIP, UnitPriceCents: 1500, Quantity: 1},
	}

	b := Quote(lines, exampleSettings())

	assert.Equal(t, models.Breakdown{
		Subtotal:   3500,
		ServiceFee: 275,
		PaymentFee: 76,
		Tax:        847,
		Total:      4698,
	}, b)
}

func TestQuote_Deterministic(t *testing.T) {
	lines := []models.PricedLine{{UnitPriceCents: 1299, Quantity: 3}}
	settings := exampleSettings()

	first := Quote(lines, settings)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, Quote(lines, settings))
	}
}

func TestQuote_Rounding(t *testing.T) {
	tests := []struct {
		name     string
		subtotal int64
		settings *models.Settings
		want     models.Breakdown
	}{
		{
			name:     "nil settings charge nothing",
			subtotal: 1234,
			settings: nil,
			want:     models.Breakdown{Subtotal: 1234, Total: 1234},
		},
		{
			name:     "half cent rounds up",
			subtotal: 50,
			settings: &models.Settings{FeePercent: decimal.NewFromInt(1)},
			want:     models.Breakdown{Subtotal: 50, ServiceFee: 1, Total: 51},
		},
		{
			name:     "below half rounds down",
			subtotal: 49,
			settings: &models.Settings{FeePercent: decimal.NewFromInt(1)},
			want:     models.Breakdown{Subtotal: 49, ServiceFee: 0, Total: 49},
		},
		{
			name:     "fractional percent",
			subtotal: 10000,
			settings: &models.Settings{TaxPercent: decimal.RequireFromString("7.125")},
			want:     models.Breakdown{Subtotal: 10000, Tax: 713, Total: 10713},
		},
		{
			name:     "fixed fees apply to an empty cart",
			subtotal: 0,
			settings: &models.Settings{FeeFixedCents: 100, PaymentFeeFixedCents: 30, TaxPercent: decimal.NewFromInt(10)},
			want:     models.Breakdown{ServiceFee: 100, PaymentFee: 30, Tax: 13, Total: 143},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var lines []models.PricedLine
			if tt.subtotal > 0 {
				lines = []models.PricedLine{{UnitPriceCents: tt.subtotal, Quantity: 1}}
			}
			assert.Equal(t, tt.want, Quote(lines, tt.settings))
		})
	}
}

func TestQuote_TotalReconciles(t *testing.T) {
	settings := exampleSettings()
	for qty := 1; qty <= 10; qty++ {
		for _, price := range []int64{1, 99, 1000, 2599, 123457} {
			b := Quote([]models.PricedLine{{UnitPriceCents: price, Quantity: qty}}, settings)
			assert.Equal(t, b.Subtotal+b.ServiceFee+b.PaymentFee+b.Tax, b.Total)
			assert.GreaterOrEqual(t, b.ServiceFee, int64(0))
			assert.GreaterOrEqual(t, b.Tax, int64(0))
		}
	}
}
