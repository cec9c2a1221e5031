package activity

import (
	"context"
	"sync"
	"time"
)

const fakeAnonymousID int64 = 1

type fakeSession struct {
	UserID int64
	IP     string
	Time   time.Time
}

// fakeSource is an in-memory forum honouring the DataSource contract. It
// counts calls per method and can be told to fail any of them.
type fakeSource struct {
	mu sync.Mutex

	accounts []Account
	sessions []fakeSession
	records  map[RecordSet][]time.Time

	// rawCounts, when set, is returned by CountSince instead of counting records
	rawCounts map[RecordSet]int64

	errs  map[string]error
	calls map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		records: make(map[RecordSet][]time.Time),
		errs:    make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeSource) addAccount(a Account) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, a)
}

func (f *fakeSource) addSession(userID int64, ip string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, fakeSession{UserID: userID, IP: ip, Time: at})
}

func (f *fakeSource) addRecord(set RecordSet, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[set] = append(f.records[set], at)
}

func (f *fakeSource) failWith(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.errs, method)
		return
	}
	f.errs[method] = err
}

func (f *fakeSource) callCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeSource) enter(method string) error {
	f.calls[method]++
	return f.errs[method]
}

func (f *fakeSource) account(id int64) (Account, bool) {
	for _, a := range f.accounts {
		if a.UserID == id {
			return a, true
		}
	}
	return Account{}, false
}

func (f *fakeSource) RecentAccounts(ctx context.Context, since time.Time) ([]Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RecentAccounts"); err != nil {
		return nil, err
	}

	var out []Account
	for _, a := range f.accounts {
		if a.LastVisit.Unix() > since.Unix() {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeSource) RegisteredSessions(ctx context.Context, since time.Time) ([]Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("RegisteredSessions"); err != nil {
		return nil, err
	}

	newest := make(map[int64]time.Time)
	var order []int64
	for _, s := range f.sessions {
		if s.UserID == fakeAnonymousID || s.Time.Unix() <= since.Unix() {
			continue
		}
		cur, seen := newest[s.UserID]
		if !seen {
			order = append(order, s.UserID)
		}
		if !seen || s.Time.After(cur) {
			newest[s.UserID] = s.Time
		}
	}

	var out []Session
	for _, id := range order {
		a, ok := f.account(id)
		if !ok {
			continue
		}
		out = append(out, Session{Account: a, SessionTime: newest[id]})
	}
	return out, nil
}

func (f *fakeSource) CountSince(ctx context.Context, set RecordSet, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CountSince"); err != nil {
		return 0, err
	}
	if n, ok := f.rawCounts[set]; ok {
		return n, nil
	}

	var n int64
	for _, at := range f.records[set] {
		if at.Unix() > since.Unix() {
			n++
		}
	}
	return n, nil
}

func (f *fakeSource) CountDistinctGuestIPs(ctx context.Context, since time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("CountDistinctGuestIPs"); err != nil {
		return 0, err
	}

	ips := make(map[string]struct{})
	for _, s := range f.sessions {
		if s.UserID == fakeAnonymousID && s.Time.Unix() >= since.Unix() {
			ips[s.IP] = struct{}{}
		}
	}
	return int64(len(ips)), nil
}
