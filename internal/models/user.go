package models

import "time"

// User is a persisted extension user, keyed by the stable Privy-issued
// user id. Email and wallet address are optional and backfilled from the
// token claims on later logins.
type User struct {
	ID              int64      `db:"id" json:"-"`
	UserID          string     `db:"user_id" json:"user_id"`
	Email           *string    `db:"email" json:"email,omitempty"`
	WalletAddress   *string    `db:"wallet_address" json:"wallet_address,omitempty"`
	TotalBlocksUsed int64      `db:"total_blocks_used" json:"total_blocks_used"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
	LastLogin       *time.Time `db:"last_login" json:"last_login,omitempty"`
}

// Identity is the canonical user identity resolved from verified token
// claims. UserID is always present; the rest depends on what the provider
// attached to the token.
type Identity struct {
	UserID        string
	Email         *string
	WalletAddress *string
}

// BlockUsage is one append-only usage fact: a batch of blocks recorded
// against a user, optionally attributed to a domain.
type BlockUsage struct {
	ID         int64     `db:"id" json:"id"`
	UserID     string    `db:"user_id" json:"user_id"`
	BlocksUsed int64     `db:"blocks_used" json:"blocks_used"`
	Domain     *string   `db:"domain" json:"domain,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// BlockEvent is a single usage event reported by the extension.
// Count defaults to 1 upstream when the extension omits it.
type BlockEvent struct {
	Domain string `json:"domain"`
	Count  int64  `json:"count"`
}

// RecordResult summarizes one accepted block-events batch.
type RecordResult struct {
	TotalAdded int64
	Domains    []string
}

// DomainCount is one entry of the most-blocked-domains ranking.
type DomainCount struct {
	Domain string `db:"domain" json:"domain"`
	Blocks int64  `db:"blocks" json:"blocks"`
}

// UsageStats aggregates a user's block counters over fixed look-back
// windows, plus the top blocked domains.
type UsageStats struct {
	TotalBlocksUsed     int64         `json:"total_blocks_used"`
	BlocksUsedToday     int64         `json:"blocks_used_today"`
	BlocksUsedThisWeek  int64         `json:"blocks_used_this_week"`
	BlocksUsedThisMonth int64         `json:"blocks_used_this_month"`
	MostBlockedDomains  []DomainCount `json:"most_blocked_domains"`
}
