package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nogoon-backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// ErrInvalidUsageEvent means a reported event carried a non-positive
// count. The whole batch is rejected without touching storage.
var ErrInvalidUsageEvent = errors.New("invalid usage event")

type UsageRepository interface {
	// RecordEvents appends one blocks_usage row per event and bumps the
	// user's total_blocks_used by the batch sum, all in one transaction.
	// Either every event commits or none does.
	RecordEvents(ctx context.Context, userID string, events []models.BlockEvent) (*models.RecordResult, error)
	// Stats computes the fixed look-back windows (today since UTC
	// midnight, week = now-7d, month = now-30d) and the top 10 blocked
	// domains, all relative to now.
	Stats(ctx context.Context, userID string, now time.Time) (*models.UsageStats, error)
}

type usageRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewUsageRepository(db *sqlx.DB, logger *zap.Logger) UsageRepository {
	return &usageRepository{db: db, logger: logger}
}

func (r *usageRepository) RecordEvents(ctx context.Context, userID string, events []models.BlockEvent) (*models.RecordResult, error) {
	var total int64
	for _, event := range events {
		if event.Count < 1 {
			return nil, fmt.Errorf("%w: non-positive count %d for domain %q", ErrInvalidUsageEvent, event.Count, event.Domain)
		}
		total += event.Count
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: beginning usage transaction for user %s: %v", ErrPersistence, userID, err)
	}
	defer tx.Rollback()

	seen := make(map[string]bool, len(events))
	domains := make([]string, 0, len(events))
	for _, event := range events {
		var domain *string
		if event.Domain != "" {
			d := event.Domain
			domain = &d
			if !seen[d] {
				seen[d] = true
				domains = append(domains, d)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO blocks_usage (user_id, domain, blocks_used) VALUES ($1, $2, $3)`,
			userID, domain, event.Count)
		if err != nil {
			return nil, fmt.Errorf("%w: recording usage for user %s: %v", ErrPersistence, userID, err)
		}
	}

	// Atomic increment; concurrent batches for the same user serialize
	// on the row instead of losing updates.
	_, err = tx.ExecContext(ctx,
		`UPDATE users SET total_blocks_used = total_blocks_used + $1, updated_at = now() WHERE user_id = $2`,
		total, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: incrementing counter for user %s: %v", ErrPersistence, userID, err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: committing usage for user %s: %v", ErrPersistence, userID, err)
	}

	return &models.RecordResult{TotalAdded: total, Domains: domains}, nil
}

func (r *usageRepository) Stats(ctx context.Context, userID string, now time.Time) (*models.UsageStats, error) {
	now = now.UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)
	monthStart := now.AddDate(0, 0, -30)

	stats := &models.UsageStats{}

	err := r.db.GetContext(ctx, &stats.TotalBlocksUsed,
		`SELECT total_blocks_used FROM users WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: loading total for user %s: %v", ErrPersistence, userID, err)
	}

	for _, window := range []struct {
		start time.Time
		dest  *int64
	}{
		{todayStart, &stats.BlocksUsedToday},
		{weekStart, &stats.BlocksUsedThisWeek},
		{monthStart, &stats.BlocksUsedThisMonth},
	} {
		err := r.db.GetContext(ctx, window.dest,
			`SELECT COALESCE(SUM(blocks_used), 0) FROM blocks_usage WHERE user_id = $1 AND created_at >= $2`,
			userID, window.start)
		if err != nil {
			return nil, fmt.Errorf("%w: summing usage for user %s: %v", ErrPersistence, userID, err)
		}
	}

	// Ranked by number of records, not by sum of blocks_used; ties break
	// on the domain name so the order is stable.
	domains := []models.DomainCount{}
	err = r.db.SelectContext(ctx, &domains,
		`SELECT domain, COUNT(id) AS blocks FROM blocks_usage
		 WHERE user_id = $1 AND domain IS NOT NULL
		 GROUP BY domain
		 ORDER BY COUNT(id) DESC, domain ASC
		 LIMIT 10`, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: ranking domains for user %s: %v", ErrPersistence, userID, err)
	}
	stats.MostBlockedDomains = domains

	return stats, nil
}
