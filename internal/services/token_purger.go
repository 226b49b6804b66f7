package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"investtrack/internal/logger"
	"investtrack/internal/models"
)

// TokenPurger periodically deletes expired password reset tokens.
type TokenPurger struct {
	db       *gorm.DB
	interval time.Duration
	now      func() time.Time
}

// NewTokenPurger creates a purger that runs every interval.
func NewTokenPurger(db *gorm.DB, interval time.Duration) *TokenPurger {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &TokenPurger{db: db, interval: interval, now: time.Now}
}

// PurgeExpired deletes every token past its expiry and returns how many
// were removed.
func (p *TokenPurger) PurgeExpired(ctx context.Context) (int64, error) {
	res := p.db.WithContext(ctx).Where("expires_at <= ?", p.now()).Delete(&models.Token{})
	return res.RowsAffected, res.Error
}

// Run purges on every tick until ctx is cancelled.
func (p *TokenPurger) Run(ctx context.Context) {
	log := logger.Named("token-purger")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := p.PurgeExpired(ctx)
			if err != nil {
				log.Errorw("failed to purge expired tokens", "error", err)
				continue
			}
			if n > 0 {
				log.Infow("purged expired tokens", "count", n)
			}
		}
	}
}
