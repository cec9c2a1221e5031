package activity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, time.March, 14, 15, 9, 26, 0, time.UTC)

func TestWindowStart(t *testing.T) {
	assert.Equal(t, testNow.Add(-24*time.Hour), WindowStart(testNow))

	// Sub-second precision is dropped
	assert.Equal(t, testNow.Add(-24*time.Hour), WindowStart(testNow.Add(900*time.Millisecond)))
}

func TestGuestWindowStart(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{
			name: "floors to the minute",
			now:  testNow,
			want: time.Date(2026, time.March, 13, 15, 9, 0, 0, time.UTC),
		},
		{
			name: "already on a minute boundary",
			now:  time.Date(2026, time.March, 14, 15, 9, 0, 0, time.UTC),
			want: time.Date(2026, time.March, 13, 15, 9, 0, 0, time.UTC),
		},
		{
			name: "one second before the boundary",
			now:  time.Date(2026, time.March, 14, 15, 9, 59, 0, time.UTC),
			want: time.Date(2026, time.March, 13, 15, 9, 0, 0, time.UTC),
		},
		{
			name: "before the unix epoch",
			now:  time.Unix(30, 0).Add(24 * time.Hour).Add(-2 * time.Minute),
			want: time.Unix(-120, 0).UTC(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GuestWindowStart(tt.now)
			assert.Equal(t, tt.want, got)
			assert.Zero(t, got.Unix()%60)
		})
	}
}

func TestEngine_ActiveUsers_MergesAccountsAndSessions(t *testing.T) {
	src := newFakeSource()
	src.addAccount(Account{UserID: 10, Username: "carol", Colour: "AA0000", LastVisit: testNow.Add(-2 * time.Hour)})
	src.addAccount(Account{UserID: 11, Username: "alice", LastVisit: testNow.Add(-30 * time.Hour)})
	src.addAccount(Account{UserID: 12, Username: "bob", Type: UserTypeFounder, LastVisit: testNow.Add(-5 * time.Hour)})
	src.addAccount(Account{UserID: 13, Username: "dave", LastVisit: testNow.Add(-48 * time.Hour)})

	// carol has an older session, bob a newer one, alice is only seen via session
	src.addSession(10, "10.0.0.1", testNow.Add(-3*time.Hour))
	src.addSession(12, "10.0.0.2", testNow.Add(-1*time.Hour))
	src.addSession(12, "10.0.0.2", testNow.Add(-4*time.Hour))
	src.addSession(11, "10.0.0.3", testNow.Add(-10*time.Minute))

	users, err := NewEngine(src).ActiveUsers(context.Background(), testNow)
	require.NoError(t, err)

	require.Len(t, users, 3)
	assert.Equal(t, []string{"alice", "bob", "carol"}, usernames(users))

	assert.Equal(t, ActiveUserRecord{
		UserID:       11,
		Username:     "alice",
		LastActivity: testNow.Add(-10 * time.Minute),
	}, users[0])
	assert.Equal(t, UserTypeFounder, users[1].UserType)
	assert.Equal(t, testNow.Add(-1*time.Hour), users[1].LastActivity)
	assert.Equal(t, "AA0000", users[2].Colour)
	assert.Equal(t, testNow.Add(-2*time.Hour), users[2].LastActivity)
}

func TestEngine_ActiveUsers_EachUserOnce(t *testing.T) {
	src := newFakeSource()
	src.addAccount(Account{UserID: 7, Username: "erin", LastVisit: testNow.Add(-1 * time.Hour)})
	for i := 0; i < 5; i++ {
		src.addSession(7, "10.0.0.7", testNow.Add(-time.Duration(i)*time.Minute))
	}

	users, err := NewEngine(src).ActiveUsers(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, testNow, users[0].LastActivity)
}

func TestEngine_ActiveUsers_WindowBoundary(t *testing.T) {
	src := newFakeSource()
	src.addAccount(Account{UserID: 20, Username: "edge", LastVisit: testNow.Add(-24 * time.Hour)})
	src.addAccount(Account{UserID: 21, Username: "inside", LastVisit: testNow.Add(-24*time.Hour + time.Second)})

	users, err := NewEngine(src).ActiveUsers(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, []string{"inside"}, usernames(users))
}

func TestEngine_ActiveUsers_ExcludesGuests(t *testing.T) {
	src := newFakeSource()
	src.addAccount(Account{UserID: fakeAnonymousID, Username: "Anonymous"})
	src.addSession(fakeAnonymousID, "10.1.1.1", testNow.Add(-time.Minute))

	users, err := NewEngine(src).ActiveUsers(context.Background(), testNow)
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestEngine_ActiveUsers_TiesOrderedByID(t *testing.T) {
	src := newFakeSource()
	src.addAccount(Account{UserID: 31, Username: "twin", LastVisit: testNow.Add(-time.Hour)})
	src.addAccount(Account{UserID: 30, Username: "twin", LastVisit: testNow.Add(-time.Hour)})

	users, err := NewEngine(src).ActiveUsers(context.Background(), testNow)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, int64(30), users[0].UserID)
	assert.Equal(t, int64(31), users[1].UserID)
}

func TestEngine_ActiveUsers_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		account Account
	}{
		{name: "zero id", account: Account{UserID: 0, Username: "ghost", LastVisit: testNow}},
		{name: "empty username", account: Account{UserID: 40, LastVisit: testNow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := newFakeSource()
			src.addAccount(tt.account)

			users, err := NewEngine(src).ActiveUsers(context.Background(), testNow)
			assert.Nil(t, users)
			assert.ErrorIs(t, err, ErrDataSourceMalformed)
		})
	}
}

func TestEngine_ActiveUsers_SourceErrors(t *testing.T) {
	for _, method := range []string{"RecentAccounts", "RegisteredSessions"} {
		t.Run(method, func(t *testing.T) {
			src := newFakeSource()
			src.failWith(method, ErrDataSourceUnavailable)

			_, err := NewEngine(src).ActiveUsers(context.Background(), testNow)
			assert.ErrorIs(t, err, ErrDataSourceUnavailable)
		})
	}
}

func TestEngine_Summary(t *testing.T) {
	src := newFakeSource()
	src.addRecord(RecordPosts, testNow.Add(-time.Hour))
	src.addRecord(RecordPosts, testNow.Add(-23*time.Hour))
	src.addRecord(RecordPosts, testNow.Add(-24*time.Hour))
	src.addRecord(RecordPosts, testNow.Add(-24*time.Hour+time.Second))
	src.addRecord(RecordTopics, testNow.Add(-2*time.Hour))
	src.addRecord(RecordTopics, testNow.Add(-25*time.Hour))
	src.addRecord(RecordUsers, testNow.Add(-3*time.Hour))

	summary, err := NewEngine(src).Summary(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, ActivitySummary{NewPosts: 3, NewTopics: 1, NewUsers: 1}, summary)
	assert.Equal(t, 3, src.callCount("CountSince"))
}

func TestEngine_Summary_Empty(t *testing.T) {
	summary, err := NewEngine(newFakeSource()).Summary(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, ActivitySummary{}, summary)
}

func TestEngine_Summary_Errors(t *testing.T) {
	t.Run("source failure", func(t *testing.T) {
		src := newFakeSource()
		src.failWith("CountSince", ErrDataSourceUnavailable)

		summary, err := NewEngine(src).Summary(context.Background(), testNow)
		assert.ErrorIs(t, err, ErrDataSourceUnavailable)
		assert.Equal(t, ActivitySummary{}, summary)
	})

	t.Run("negative count", func(t *testing.T) {
		src := newFakeSource()
		src.rawCounts = map[RecordSet]int64{RecordTopics: -1}

		_, err := NewEngine(src).Summary(context.Background(), testNow)
		assert.ErrorIs(t, err, ErrDataSourceMalformed)
	})
}

func TestEngine_GuestCount(t *testing.T) {
	src := newFakeSource()
	src.addSession(fakeAnonymousID, "10.0.0.1", testNow.Add(-time.Hour))
	src.addSession(fakeAnonymousID, "10.0.0.1", testNow.Add(-2*time.Hour))
	src.addSession(fakeAnonymousID, "10.0.0.1", testNow.Add(-3*time.Hour))
	src.addSession(fakeAnonymousID, "10.0.0.2", testNow.Add(-time.Minute))
	src.addSession(fakeAnonymousID, "10.0.0.3", testNow.Add(-25*time.Hour))
	src.addSession(42, "10.0.0.4", testNow.Add(-time.Minute))

	guests, err := NewEngine(src).GuestCount(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), guests)
}

func TestEngine_GuestCount_QuantizedBoundary(t *testing.T) {
	start := GuestWindowStart(testNow)

	src := newFakeSource()
	src.addSession(fakeAnonymousID, "10.0.0.1", start)
	src.addSession(fakeAnonymousID, "10.0.0.2", start.Add(-time.Second))
	// Inside the quantized range but before now-24h
	src.addSession(fakeAnonymousID, "10.0.0.3", start.Add(10*time.Second))

	guests, err := NewEngine(src).GuestCount(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, int64(2), guests)
}

func TestEngine_GuestCount_Error(t *testing.T) {
	src := newFakeSource()
	src.failWith("CountDistinctGuestIPs", ErrDataSourceUnavailable)

	_, err := NewEngine(src).GuestCount(context.Background(), testNow)
	assert.ErrorIs(t, err, ErrDataSourceUnavailable)
	assert.Contains(t, err.Error(), "failed to count guests")
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{ErrDataSourceUnavailable, "unavailable"},
		{errors.Join(errors.New("wrapped"), ErrDataSourceMalformed), "malformed"},
		{context.Canceled, "canceled"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("boom"), "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "ErrorKind(%v)", tt.err)
	}
}

func usernames(users []ActiveUserRecord) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	return names
}
