package activity

import "time"

// DefaultTimeFormat is used for display titles when no formatter is supplied.
const DefaultTimeFormat = "Mon Jan 02, 2006 3:04 pm"

// DisplayRow is one entry of the "users active in the last 24 hours" list.
type DisplayRow struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Colour   string `json:"colour,omitempty"`
	// ShowProfile is false for ignored (bot and system) accounts, which are
	// rendered without a profile link.
	ShowProfile  bool      `json:"show_profile"`
	LastActivity time.Time `json:"last_activity"`
	// Title is the formatted LastActivity, used as hover text.
	Title string `json:"title"`
}

// Payload combines all three aggregates for one landing page render.
type Payload struct {
	UsersTotal int          `json:"users_total"`
	Users      []DisplayRow `json:"users"`
	NewPosts   int64        `json:"new_posts"`
	NewTopics  int64        `json:"new_topics"`
	NewUsers   int64        `json:"new_users"`
	Guests     int64        `json:"guests"`
	// GeneratedAt is the reference time the aggregates were requested for.
	GeneratedAt time.Time `json:"generated_at"`
}

// TimeFormatter renders a timestamp for display.
type TimeFormatter func(time.Time) string

// DisplayRows converts active users to display rows, preserving order.
func DisplayRows(users []ActiveUserRecord, format TimeFormatter) []DisplayRow {
	if format == nil {
		format = func(t time.Time) string { return t.UTC().Format(DefaultTimeFormat) }
	}

	rows := make([]DisplayRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, DisplayRow{
			UserID:       u.UserID,
			Username:     u.Username,
			Colour:       u.Colour,
			ShowProfile:  u.UserType != UserTypeIgnore,
			LastActivity: u.LastActivity,
			Title:        format(u.LastActivity),
		})
	}
	return rows
}

// BuildPayload assembles the combined landing payload.
func BuildPayload(now time.Time, users []ActiveUserRecord, summary ActivitySummary, guests int64, format TimeFormatter) *Payload {
	return &Payload{
		UsersTotal:  len(users),
		Users:       DisplayRows(users, format),
		NewPosts:    summary.NewPosts,
		NewTopics:   summary.NewTopics,
		NewUsers:    summary.NewUsers,
		Guests:      guests,
		GeneratedAt: normalizeTime(now),
	}
}
