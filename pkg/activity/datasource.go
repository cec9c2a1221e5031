package activity

import (
	"context"
	"time"
)

// DataSource is the read-only query capability the Engine aggregates over.
//
// Implementations translate failures to ErrDataSourceUnavailable (the query
// could not run) or ErrDataSourceMalformed (a row could not be decoded), and
// hide any storage-engine specific SQL behind these methods.
type DataSource interface {
	// RecentAccounts returns accounts whose last visit is strictly after since.
	RecentAccounts(ctx context.Context, since time.Time) ([]Account, error)

	// RegisteredSessions returns, per registered account, the newest session
	// with a session time strictly after since. Anonymous sessions are excluded.
	RegisteredSessions(ctx context.Context, since time.Time) ([]Session, error)

	// CountSince counts records in set created strictly after since.
	CountSince(ctx context.Context, set RecordSet, since time.Time) (int64, error)

	// CountDistinctGuestIPs counts distinct source IPs of anonymous sessions
	// with a session time at or after since.
	CountDistinctGuestIPs(ctx context.Context, since time.Time) (int64, error)
}
