package activity

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Engine computes the activity aggregates. It holds no state besides the
// data source and knows nothing about caching.
type Engine struct {
	source DataSource
}

// NewEngine creates a new engine over source
func NewEngine(source DataSource) *Engine {
	return &Engine{source: source}
}

// WindowStart returns the exclusive lower bound of the trailing window.
func WindowStart(now time.Time) time.Time {
	return normalizeTime(now.Add(-Window))
}

// GuestWindowStart returns the inclusive lower bound used for the guest count:
// the window start floored to a whole minute, so requests a few seconds apart
// query the same range.
func GuestWindowStart(now time.Time) time.Time {
	start := now.Add(-Window).Unix()
	start -= ((start % guestQuantum) + guestQuantum) % guestQuantum
	return time.Unix(start, 0).UTC()
}

// ActiveUsers returns every account seen in the window exactly once, ordered
// by username.
func (e *Engine) ActiveUsers(ctx context.Context, now time.Time) ([]ActiveUserRecord, error) {
	since := WindowStart(now)

	accounts, err := e.source.RecentAccounts(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent accounts: %w", err)
	}

	sessions, err := e.source.RegisteredSessions(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list registered sessions: %w", err)
	}

	byID := make(map[int64]*ActiveUserRecord, len(accounts)+len(sessions))
	for _, account := range accounts {
		if err := mergeActivity(byID, account, account.LastVisit); err != nil {
			return nil, err
		}
	}
	for _, session := range sessions {
		if err := mergeActivity(byID, session.Account, session.SessionTime); err != nil {
			return nil, err
		}
	}

	users := make([]ActiveUserRecord, 0, len(byID))
	for _, rec := range byID {
		users = append(users, *rec)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].Username != users[j].Username {
			return users[i].Username < users[j].Username
		}
		return users[i].UserID < users[j].UserID
	})

	return users, nil
}

// mergeActivity folds one sighting of account into byID, keeping the latest
// of the account's last visit, the sighting time and any earlier sighting.
func mergeActivity(byID map[int64]*ActiveUserRecord, account Account, seen time.Time) error {
	if account.UserID <= 0 {
		return fmt.Errorf("%w: invalid user id %d", ErrDataSourceMalformed, account.UserID)
	}
	if account.Username == "" {
		return fmt.Errorf("%w: empty username for user %d", ErrDataSourceMalformed, account.UserID)
	}

	latest := account.LastVisit
	if seen.After(latest) {
		latest = seen
	}
	latest = normalizeTime(latest)

	rec, ok := byID[account.UserID]
	if !ok {
		byID[account.UserID] = &ActiveUserRecord{
			UserID:       account.UserID,
			Username:     account.Username,
			Colour:       account.Colour,
			UserType:     account.Type,
			LastActivity: latest,
		}
		return nil
	}
	if latest.After(rec.LastActivity) {
		rec.LastActivity = latest
	}
	return nil
}

// Summary counts posts, topics and registrations created in the window.
// Registrations include accounts that were never activated.
func (e *Engine) Summary(ctx context.Context, now time.Time) (ActivitySummary, error) {
	since := WindowStart(now)

	var summary ActivitySummary
	counts := []struct {
		set RecordSet
		dst *int64
	}{
		{RecordPosts, &summary.NewPosts},
		{RecordTopics, &summary.NewTopics},
		{RecordUsers, &summary.NewUsers},
	}

	for _, c := range counts {
		n, err := e.source.CountSince(ctx, c.set, since)
		if err != nil {
			return ActivitySummary{}, fmt.Errorf("failed to count new %s: %w", c.set, err)
		}
		if n < 0 {
			return ActivitySummary{}, fmt.Errorf("%w: negative %s count %d", ErrDataSourceMalformed, c.set, n)
		}
		*c.dst = n
	}

	return summary, nil
}

// GuestCount counts distinct guest IPs since GuestWindowStart(now).
func (e *Engine) GuestCount(ctx context.Context, now time.Time) (int64, error) {
	n, err := e.source.CountDistinctGuestIPs(ctx, GuestWindowStart(now))
	if err != nil {
		return 0, fmt.Errorf("failed to count guests: %w", err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: negative guest count %d", ErrDataSourceMalformed, n)
	}
	return n, nil
}
