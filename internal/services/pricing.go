package services

import (
	"github.com/shopspring/decimal"

	"vr-theatre-marketplace/internal/models"
)

var hundred = decimal.NewFromInt(100)

// percentOf returns round(amount * percent / 100), halves rounded away from zero
func percentOf(amount int64, percent decimal.Decimal) int64 {
	if percent.IsZero() || amount == 0 {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(percent).Div(hundred).Round(0).IntPart()
}

// Quote prices a set of lines against the platform settings. Each stage is
// rounded to whole cents before the next one builds on it. Nil settings
// mean no fees and no tax.
func Quote(lines []models.PricedLine, settings *models.Settings) models.Breakdown {
	if settings == nil {
		settings = models.DefaultSettings()
	}

	var b models.Breakdown
	for _, l := range lines {
		b.Subtotal += l.Subtotal()
	}

	b.ServiceFee = percentOf(b.Subtotal, settings.FeePercent) + settings.FeeFixedCents
	b.PaymentFee = percentOf(b.Subtotal+b.ServiceFee, settings.PaymentFeePercent) + settings.PaymentFeeFixedCents
	b.Tax = percentOf(b.Subtotal+b.ServiceFee+b.PaymentFee, settings.TaxPercent)
	b.Total = b.Subtotal + b.ServiceFee + b.PaymentFee + b.Tax
	return b
}
