package activity

import (
	"fmt"
	"time"
)

// Window is the trailing interval every aggregate covers.
const Window = 24 * time.Hour

// guestQuantum is the granularity the guest window start is truncated to.
const guestQuantum int64 = 60

// UserType mirrors the forum's account type column.
type UserType int

const (
	UserTypeNormal UserType = iota
	UserTypeInactive
	UserTypeIgnore
	UserTypeFounder
)

func (t UserType) String() string {
	switch t {
	case UserTypeNormal:
		return "normal"
	case UserTypeInactive:
		return "inactive"
	case UserTypeIgnore:
		return "ignore"
	case UserTypeFounder:
		return "founder"
	default:
		return fmt.Sprintf("type(%d)", int(t))
	}
}

// Account is a user account row as returned by a DataSource.
type Account struct {
	UserID    int64
	Username  string
	Colour    string
	Type      UserType
	LastVisit time.Time
}

// Session is the most recent open session of a registered account.
type Session struct {
	Account     Account
	SessionTime time.Time
}

// RecordSet names a logical table counted by the activity summary.
type RecordSet int

const (
	RecordPosts RecordSet = iota
	RecordTopics
	RecordUsers
)

func (r RecordSet) String() string {
	switch r {
	case RecordPosts:
		return "posts"
	case RecordTopics:
		return "topics"
	case RecordUsers:
		return "users"
	default:
		return fmt.Sprintf("recordset(%d)", int(r))
	}
}

// ActiveUserRecord is one user seen in the trailing window.
// LastActivity is the later of the account's last visit and its newest session.
type ActiveUserRecord struct {
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	Colour       string    `json:"colour"`
	UserType     UserType  `json:"user_type"`
	LastActivity time.Time `json:"last_activity"`
}

// ActivitySummary holds the new-content counts for the trailing window.
type ActivitySummary struct {
	NewPosts  int64 `json:"new_posts"`
	NewTopics int64 `json:"new_topics"`
	NewUsers  int64 `json:"new_users"`
}

// Kind identifies one of the cached aggregates.
type Kind int

const (
	KindActiveUsers Kind = iota
	KindSummary
	KindGuests
)

// Kinds lists every aggregate in display order.
var Kinds = []Kind{KindActiveUsers, KindSummary, KindGuests}

func (k Kind) String() string {
	switch k {
	case KindActiveUsers:
		return "active_users"
	case KindSummary:
		return "summary"
	case KindGuests:
		return "guests"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// normalizeTime drops sub-second precision, the monotonic reading and the
// location so that a computed value and its cached copy compare equal.
func normalizeTime(t time.Time) time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	return time.Unix(t.Unix(), 0).UTC()
}
