package activity

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/anitrack/accounts"
	"github.com/onnwee/anitrack/anilist"
)

type staticResolver struct{ users map[string]anilist.UserRef }

func (s staticResolver) ResolveUser(_ context.Context, name string) (anilist.UserRef, error) {
	u, ok := s.users[strings.ToLower(name)]
	if !ok {
		return anilist.UserRef{}, anilist.ErrNotFound
	}
	return u, nil
}

type fakeSource struct {
	mu     sync.Mutex
	byUser map[int]*anilist.Activity
	fail   map[int]error
}

func (f *fakeSource) LatestActivity(_ context.Context, userID int) (*anilist.Activity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.fail[userID]; err != nil {
		return nil, err
	}
	return f.byUser[userID], nil
}

func (f *fakeSource) set(userID int, act *anilist.Activity) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUser[userID] = act
}

type captureNotifier struct {
	mu   sync.Mutex
	seen []int
}

func (c *captureNotifier) AnnounceActivity(a *anilist.Activity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = append(c.seen, a.ID)
}

func (c *captureNotifier) ids() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int(nil), c.seen...)
}

func newTestPoller(t *testing.T, users map[string]anilist.UserRef) (*Poller, *accounts.Store, *fakeSource, *captureNotifier) {
	t.Helper()
	store := accounts.NewStore(
		&accounts.FileDocStore{Path: filepath.Join(t.TempDir(), "accounts.json")},
		staticResolver{users: users},
	)
	src := &fakeSource{byUser: make(map[int]*anilist.Activity), fail: make(map[int]error)}
	sink := &captureNotifier{}
	p := NewPoller(store, src, NewLedger(), sink, time.Minute)
	return p, store, src, sink
}

func act(id int, user string) *anilist.Activity {
	return &anilist.Activity{ID: id, Status: "watched episode", Progress: "3", Title: "Some Show", MediaKind: "anime", UserName: user}
}

func TestPollerAnnouncesOnlyStrictlyNewer(t *testing.T) {
	p, store, src, sink := newTestPoller(t, map[string]anilist.UserRef{"alice": {ID: 1, Name: "Alice"}})
	if _, err := store.LinkAccount(context.Background(), "u1", "alice"); err != nil {
		t.Fatal(err)
	}

	for _, id := range []int{5, 5, 7, 3, 9} {
		src.set(1, act(id, "Alice"))
		p.RunOnce(context.Background())
	}
	got := sink.ids()
	want := []int{5, 7, 9}
	if len(got) != len(want) {
		t.Fatalf("announced %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("announced %v, want %v", got, want)
		}
	}
}

func TestPollerSkipsAccountsWithoutActivity(t *testing.T) {
	p, store, _, sink := newTestPoller(t, map[string]anilist.UserRef{"alice": {ID: 1, Name: "Alice"}})
	if _, err := store.LinkAccount(context.Background(), "u1", "alice"); err != nil {
		t.Fatal(err)
	}
	p.RunOnce(context.Background())
	if len(sink.ids()) != 0 {
		t.Errorf("announced %v for a user with no activity", sink.ids())
	}
}

func TestPollerIsolatesPerAccountFailures(t *testing.T) {
	p, store, src, sink := newTestPoller(t, map[string]anilist.UserRef{
		"alice": {ID: 1, Name: "Alice"},
		"bob":   {ID: 2, Name: "Bob"},
	})
	if _, err := store.LinkAccount(context.Background(), "u1", "alice"); err != nil {
		t.Fatal(err)
	}
	if _, err := store.LinkAccount(context.Background(), "u2", "bob"); err != nil {
		t.Fatal(err)
	}

	src.fail[1] = &anilist.ServiceError{Op: "latest activity", Status: 500, Body: "boom"}
	src.set(2, act(11, "Bob"))
	p.RunOnce(context.Background())

	got := sink.ids()
	if len(got) != 1 || got[0] != 11 {
		t.Errorf("announced %v, want [11]: one account's failure must not block others", got)
	}
}

func TestPollerRecordsLastCycle(t *testing.T) {
	p, _, _, _ := newTestPoller(t, nil)
	if !p.LastCycle().IsZero() {
		t.Error("LastCycle set before any cycle")
	}
	p.RunOnce(context.Background())
	if p.LastCycle().IsZero() {
		t.Error("LastCycle not recorded")
	}
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	p, _, _, _ := newTestPoller(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
