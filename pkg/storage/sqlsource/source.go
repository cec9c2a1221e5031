package sqlsource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"           // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"github.com/platinummonkey/activity24/pkg/activity"
)

// DefaultTablePrefix is the forum's default table prefix
const DefaultTablePrefix = "phpbb_"

// DefaultAnonymousUserID is the account id guest sessions are recorded under
const DefaultAnonymousUserID int64 = 1

// Config configures a Source
type Config struct {
	Dialect         Dialect
	TablePrefix     string
	AnonymousUserID int64
}

// Source implements activity.DataSource over the forum's users, sessions,
// posts and topics tables. Timestamps are stored as unix seconds.
type Source struct {
	db      *sql.DB
	dialect Dialect
	anon    int64

	recentAccountsSQL     string
	registeredSessionsSQL string
	countSQL              map[activity.RecordSet]string
	guestsSQL             string
}

var _ activity.DataSource = (*Source)(nil)

// New creates a Source. The query text is built once here.
func New(db *sql.DB, cfg Config) *Source {
	if cfg.Dialect.Name == "" {
		cfg.Dialect = Postgres
	}
	if cfg.AnonymousUserID == 0 {
		cfg.AnonymousUserID = DefaultAnonymousUserID
	}

	d := cfg.Dialect
	users := cfg.TablePrefix + "users"
	sessions := cfg.TablePrefix + "sessions"
	p1, p2 := d.Placeholder(1), d.Placeholder(2)

	return &Source{
		db:      db,
		dialect: d,
		anon:    cfg.AnonymousUserID,
		recentAccountsSQL: fmt.Sprintf(
			"SELECT user_id, username, user_colour, user_type, user_lastvisit FROM %s WHERE user_lastvisit > %s",
			users, p1),
		registeredSessionsSQL: fmt.Sprintf(
			"SELECT u.user_id, u.username, u.user_colour, u.user_type, u.user_lastvisit, MAX(s.session_time) "+
				"FROM %s s INNER JOIN %s u ON u.user_id = s.session_user_id "+
				"WHERE s.session_user_id <> %s AND s.session_time > %s "+
				"GROUP BY u.user_id, u.username, u.user_colour, u.user_type, u.user_lastvisit",
			sessions, users, p1, p2),
		countSQL: map[activity.RecordSet]string{
			activity.RecordPosts:  fmt.Sprintf("SELECT COUNT(post_id) FROM %sposts WHERE post_time > %s", cfg.TablePrefix, p1),
			activity.RecordTopics: fmt.Sprintf("SELECT COUNT(topic_id) FROM %stopics WHERE topic_time > %s", cfg.TablePrefix, p1),
			activity.RecordUsers:  fmt.Sprintf("SELECT COUNT(user_id) FROM %s WHERE user_regdate > %s", users, p1),
		},
		guestsSQL: d.CountDistinct("session_ip", sessions,
			fmt.Sprintf("session_user_id = %s AND session_time >= %s", p1, p2)),
	}
}

// Open opens and pings a database for dialect
func Open(ctx context.Context, dialect Dialect, url string, maxConns int, timeout time.Duration) (*sql.DB, error) {
	db, err := sql.Open(dialect.Name, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", dialect.Name, err)
	}

	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns / 2)
	}
	db.SetConnMaxLifetime(1 * time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s: %w", dialect.Name, err)
	}

	return db, nil
}

// DB returns the underlying connection pool
func (s *Source) DB() *sql.DB {
	return s.db
}

// RecentAccounts implements activity.DataSource
func (s *Source) RecentAccounts(ctx context.Context, since time.Time) ([]activity.Account, error) {
	rows, err := s.db.QueryContext(ctx, s.recentAccountsSQL, since.Unix())
	if err != nil {
		return nil, unavailable("query recent accounts", err)
	}
	defer rows.Close()

	accounts := make([]activity.Account, 0)
	for rows.Next() {
		var r accountRow
		if err := rows.Scan(&r.id, &r.username, &r.colour, &r.userType, &r.lastVisit); err != nil {
			return nil, malformed("scan account", err)
		}
		account, err := r.toAccount()
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate recent accounts", err)
	}

	return accounts, nil
}

// RegisteredSessions implements activity.DataSource
func (s *Source) RegisteredSessions(ctx context.Context, since time.Time) ([]activity.Session, error) {
	rows, err := s.db.QueryContext(ctx, s.registeredSessionsSQL, s.anon, since.Unix())
	if err != nil {
		return nil, unavailable("query registered sessions", err)
	}
	defer rows.Close()

	sessions := make([]activity.Session, 0)
	for rows.Next() {
		var r accountRow
		var sessionTime sql.NullInt64
		if err := rows.Scan(&r.id, &r.username, &r.colour, &r.userType, &r.lastVisit, &sessionTime); err != nil {
			return nil, malformed("scan session", err)
		}
		account, err := r.toAccount()
		if err != nil {
			return nil, err
		}
		if !sessionTime.Valid {
			return nil, fmt.Errorf("%w: null session time for user %d", activity.ErrDataSourceMalformed, account.UserID)
		}
		sessions = append(sessions, activity.Session{
			Account:     account,
			SessionTime: time.Unix(sessionTime.Int64, 0).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterate registered sessions", err)
	}

	return sessions, nil
}

// CountSince implements activity.DataSource
func (s *Source) CountSince(ctx context.Context, set activity.RecordSet, since time.Time) (int64, error) {
	query, ok := s.countSQL[set]
	if !ok {
		return 0, fmt.Errorf("unknown record set %s", set)
	}
	return s.count(ctx, "count "+set.String(), query, since.Unix())
}

// CountDistinctGuestIPs implements activity.DataSource
func (s *Source) CountDistinctGuestIPs(ctx context.Context, since time.Time) (int64, error) {
	return s.count(ctx, "count guests", s.guestsSQL, s.anon, since.Unix())
}

func (s *Source) count(ctx context.Context, op, query string, args ...interface{}) (int64, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable(op, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, unavailable(op, err)
		}
		return 0, fmt.Errorf("%w: %s returned no rows", activity.ErrDataSourceMalformed, op)
	}

	var n sql.NullInt64
	if err := rows.Scan(&n); err != nil {
		return 0, malformed(op, err)
	}
	if !n.Valid {
		return 0, fmt.Errorf("%w: %s returned null", activity.ErrDataSourceMalformed, op)
	}

	return n.Int64, nil
}

// accountRow is the raw scan target for a users row
type accountRow struct {
	id        sql.NullInt64
	username  sql.NullString
	colour    sql.NullString
	userType  sql.NullInt64
	lastVisit sql.NullInt64
}

func (r accountRow) toAccount() (activity.Account, error) {
	if !r.id.Valid || r.id.Int64 <= 0 {
		return activity.Account{}, fmt.Errorf("%w: missing or invalid user_id", activity.ErrDataSourceMalformed)
	}
	if !r.username.Valid || r.username.String == "" {
		return activity.Account{}, fmt.Errorf("%w: missing username for user %d", activity.ErrDataSourceMalformed, r.id.Int64)
	}

	account := activity.Account{
		UserID:   r.id.Int64,
		Username: r.username.String,
		Colour:   r.colour.String,
		Type:     activity.UserType(r.userType.Int64),
	}
	if r.lastVisit.Valid && r.lastVisit.Int64 > 0 {
		account.LastVisit = time.Unix(r.lastVisit.Int64, 0).UTC()
	}
	return account, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", activity.ErrDataSourceUnavailable, op, err)
}

func malformed(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", activity.ErrDataSourceMalformed, op, err)
}
