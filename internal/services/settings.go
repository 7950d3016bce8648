package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"vr-theatre-marketplace/internal/models"
)

var maxPercent = decimal.NewFromInt(100)

// SettingsService serves the platform settings to checkout. Reads are cached
// for ttl so a busy checkout does not hit the settings row on every request.
type SettingsService struct {
	store  SettingsStore
	ttl    time.Duration
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	cached    *models.Settings
	fetchedAt time.Time
}

// NewSettingsService creates a new settings service. ttl <= 0 disables caching.
func NewSettingsService(store SettingsStore, ttl time.Duration, logger *slog.Logger) *SettingsService {
	return &SettingsService{
		store:  store,
		ttl:    ttl,
		logger: logger.With("component", "settings"),
		now:    time.Now,
	}
}

// Get returns a copy of the current settings
func (s *SettingsService) Get(ctx context.Context) (*models.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && s.ttl > 0 && s.now().Sub(s.fetchedAt) < s.ttl {
		cp := *s.cached
		return &cp, nil
	}

	settings, err := s.store.Get(ctx)
	if err != nil {
		if s.cached != nil {
			s.logger.WarnContext(ctx, "serving stale settings", "error", err)
			cp := *s.cached
			return &cp, nil
		}
		return nil, err
	}
	if err := validateSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid platform settings: %w", err)
	}

	s.cached, s.fetchedAt = settings, s.now()
	cp := *settings
	return &cp, nil
}

// Invalidate drops the cached value
func (s *SettingsService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.mu.Unlock()
}

// validateSettings rejects values that would produce nonsense totals
func validateSettings(s *models.Settings) error {
	if s.FeeFixedCents < 0 || s.PaymentFeeFixedCents < 0 {
		return fmt.Errorf("fixed fees must not be negative")
	}
	for name, pct := range map[string]decimal.Decimal{
		"fee percent":         s.FeePercent,
		"payment fee percent": s.PaymentFeePercent,
		"tax percent":         s.TaxPercent,
	} {
		if pct.IsNegative() || pct.GreaterThan(maxPercent) {
			return fmt.Errorf("%s must be between 0 and 100", name)
		}
	}
	if s.Currency != "" && len(s.Currency) != 3 {
		return fmt.Errorf("currency must be an ISO 4217 code")
	}
	return nil
}
