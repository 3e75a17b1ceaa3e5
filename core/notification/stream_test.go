package notification

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/darasa-app/darasa/core"
)

// stubRepo is an in-memory Repository honoring the strict-after-since,
// oldest-first contract of FindUnreadNotifications.
type stubRepo struct {
	mu       sync.Mutex
	notifs   []Notification
	findErrs int // fail this many FindUnreadNotifications calls
}

var errStoreDown = errors.New("store down")

func (r *stubRepo) add(userID string, createdAt time.Time) Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      TypeSystem,
		Title:     "title",
		Message:   "message",
		CreatedAt: createdAt.UTC(),
	}
	r.notifs = append(r.notifs, n)
	return n
}

func (r *stubRepo) CreateNotification(_ context.Context, notif Notification) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifs = append(r.notifs, notif)
	return notif, nil
}

func (r *stubRepo) FindUnreadNotifications(_ context.Context, userID string, since time.Time, limit int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.findErrs > 0 {
		r.findErrs--
		return nil, errStoreDown
	}

	found := make([]Notification, 0)
	for _, n := range r.notifs {
		if n.UserID != userID || n.IsRead {
			continue
		}
		if !since.IsZero() && !n.CreatedAt.After(since) {
			continue
		}
		found = append(found, n)
	}
	sort.Slice(found, func(i, j int) bool { return found[i].CreatedAt.Before(found[j].CreatedAt) })
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	return found, nil
}

func (r *stubRepo) CountUnreadNotifications(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cnt int
	for _, n := range r.notifs {
		if n.UserID == userID && !n.IsRead {
			cnt++
		}
	}
	return cnt, nil
}

func (r *stubRepo) QueryNotifications(_ context.Context, userID string, limit int) ([]Notification, error) {
	return r.FindUnreadNotifications(context.Background(), userID, time.Time{}, limit)
}

func (r *stubRepo) MarkNotificationsRead(_ context.Context, userID string, ids ...string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var cnt int
	for i := range r.notifs {
		if r.notifs[i].UserID != userID || r.notifs[i].IsRead {
			continue
		}
		if len(ids) > 0 && !contains(ids, r.notifs[i].ID) {
			continue
		}
		r.notifs[i].IsRead = true
		cnt++
	}
	return cnt, nil
}

func contains(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

type emittedEvent struct {
	event string
	data  interface{}
}

// recordingEmitter captures emitted events; failOn makes the Nth Emit call
// (1-based) fail, simulating a dropped client connection.
type recordingEmitter struct {
	mu     sync.Mutex
	events []emittedEvent
	failOn int
	notify chan emittedEvent
}

var errClientGone = errors.New("client gone")

func (em *recordingEmitter) Emit(event string, data interface{}) error {
	em.mu.Lock()
	defer em.mu.Unlock()

	if em.failOn > 0 && len(em.events)+1 >= em.failOn {
		return errClientGone
	}
	ev := emittedEvent{event: event, data: data}
	em.events = append(em.events, ev)
	if em.notify != nil {
		em.notify <- ev
	}
	return nil
}

func (em *recordingEmitter) recorded() []emittedEvent {
	em.mu.Lock()
	defer em.mu.Unlock()
	out := make([]emittedEvent, len(em.events))
	copy(out, em.events)
	return out
}

func (em *recordingEmitter) notificationIDs() []string {
	ids := make([]string, 0)
	for _, ev := range em.recorded() {
		if ev.event == EventNotification {
			ids = append(ids, ev.data.(NotificationPayload).ID)
		}
	}
	return ids
}

func newStreamService(repo Repository) *Service {
	return NewService(repo, nil, nil, &core.Config{})
}

func newTestSession(userID string, policy core.StreamConfig) *Session {
	return NewSession(Identity{UserID: userID, Role: "student"}, policy)
}

func fastPolicy() core.StreamConfig {
	return core.StreamConfig{
		PollInterval:      time.Millisecond,
		HeartbeatInterval: time.Hour,
		PageSize:          10,
		DeliverBacklog:    true,
	}
}

func TestStreamDeliversBacklogOldestFirst(t *testing.T) {
	repo := &stubRepo{}
	svc := newStreamService(repo)
	now := time.Now().UTC()
	n1 := repo.add("u1", now.Add(-3*time.Minute))
	n2 := repo.add("u1", now.Add(-2*time.Minute))
	n3 := repo.add("u1", now.Add(-time.Minute))
	repo.add("u2", now.Add(-time.Minute)) // someone else's

	policy := fastPolicy()
	policy.MaxEvents = 3
	sess := newTestSession("u1", policy)
	em := &recordingEmitter{}

	if err := svc.Stream(context.Background(), sess, em); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	wantIDs := []string{n1.ID, n2.ID, n3.ID}
	gotIDs := em.notificationIDs()
	if len(gotIDs) != len(wantIDs) {
		t.Fatalf("delivered %d notifications, want %d", len(gotIDs), len(wantIDs))
	}
	for i, id := range wantIDs {
		if gotIDs[i] != id {
			t.Errorf("notification[%d] = %s, want %s", i, gotIDs[i], id)
		}
	}

	events := em.recorded()
	if last := events[len(events)-1]; last.event != EventClose {
		t.Errorf("last event = %s, want %s", last.event, EventClose)
	}
	if sess.Delivered() != 3 {
		t.Errorf("Delivered() = %d, want 3", sess.Delivered())
	}
	if !sess.Watermark().Equal(n3.CreatedAt) {
		t.Errorf("Watermark() = %v, want %v", sess.Watermark(), n3.CreatedAt)
	}
}

func TestStreamSkipsBacklogWhenDisabled(t *testing.T) {
	repo := &stubRepo{}
	svc := newStreamService(repo)
	now := time.Now().UTC()
	old1 := repo.add("u1", now.Add(-3*time.Minute))
	old2 := repo.add("u1", now.Add(-2*time.Minute))

	policy := fastPolicy()
	policy.DeliverBacklog = false
	sess := newTestSession("u1", policy)
	em := &recordingEmitter{notify: make(chan emittedEvent, 16)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Stream(ctx, sess, em) }()

	// let a few empty polls pass, then create a fresh notification
	time.Sleep(10 * time.Millisecond)
	fresh := repo.add("u1", time.Now().UTC())

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-em.notify:
			if ev.event != EventNotification {
				continue
			}
			if got := ev.data.(NotificationPayload).ID; got != fresh.ID {
				t.Fatalf("delivered %s, want only the fresh notification %s", got, fresh.ID)
			}
		case <-deadline:
			t.Fatal("timed out waiting for the fresh notification")
		}
		break
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	for _, id := range em.notificationIDs() {
		if id == old1.ID || id == old2.ID {
			t.Errorf("backlog notification %s delivered with backlog disabled", id)
		}
	}
}

func TestStreamHonorsPageSizeAcrossPolls(t *testing.T) {
	repo := &stubRepo{}
	svc := newStreamService(repo)
	now := time.Now().UTC()
	want := make([]string, 0, 5)
	for i := 5; i > 0; i-- {
		n := repo.add("u1", now.Add(-time.Duration(i)*time.Minute))
		want = append(want, n.ID)
	}

	policy := fastPolicy()
	policy.PageSize = 2
	policy.MaxEvents = 5
	sess := newTestSession("u1", policy)
	em := &recordingEmitter{}

	if err := svc.Stream(context.Background(), sess, em); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	got := em.notificationIDs()
	if len(got) != len(want) {
		t.Fatalf("delivered %d notifications, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification[%d] = %s, want %s; pagination must not skip or repeat", i, got[i], want[i])
		}
	}
	if newest := now.Add(-time.Minute); !sess.Watermark().Equal(newest) {
		t.Errorf("Watermark() = %v, want %v (newest delivered row)", sess.Watermark(), newest)
	}
}

func TestStreamStopsWhenEmitFails(t *testing.T) {
	repo := &stubRepo{}
	svc := newStreamService(repo)
	repo.add("u1", time.Now().UTC().Add(-time.Minute))

	sess := newTestSession("u1", fastPolicy())
	em := &recordingEmitter{failOn: 1}

	if err := svc.Stream(context.Background(), sess, em); errors.Cause(err) != errClientGone {
		t.Fatalf("Stream() error = %v, want %v", err, errClientGone)
	}
	if sess.Delivered() != 0 {
		t.Errorf("Delivered() = %d, want 0", sess.Delivered())
	}
}

func TestStreamRecoversFromStoreErrors(t *testing.T) {
	repo := &stubRepo{findErrs: 1}
	svc := newStreamService(repo)
	n := repo.add("u1", time.Now().UTC().Add(-time.Minute))

	policy := fastPolicy()
	policy.MaxEvents = 1
	sess := newTestSession("u1", policy)
	em := &recordingEmitter{}

	if err := svc.Stream(context.Background(), sess, em); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	events := em.recorded()
	if len(events) < 3 {
		t.Fatalf("recorded %d events, want at least 3 (error, notification, close)", len(events))
	}
	if events[0].event != EventError {
		t.Errorf("events[0] = %s, want %s", events[0].event, EventError)
	}
	if got := events[0].data.(ErrorPayload).Code; got != 500 {
		t.Errorf("error code = %d, want 500", got)
	}
	if ids := em.notificationIDs(); len(ids) != 1 || ids[0] != n.ID {
		t.Errorf("notifications after recovery = %v, want [%s]", ids, n.ID)
	}
	if last := events[len(events)-1]; last.event != EventClose {
		t.Errorf("last event = %s, want %s", last.event, EventClose)
	}
}

func TestStreamHeartbeat(t *testing.T) {
	repo := &stubRepo{}
	svc := newStreamService(repo)

	policy := fastPolicy()
	policy.HeartbeatInterval = time.Millisecond
	sess := newTestSession("u1", policy)
	em := &recordingEmitter{}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := svc.Stream(ctx, sess, em); err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	var beats int
	for _, ev := range em.recorded() {
		switch ev.event {
		case EventHeartbeat:
			beats++
		case EventNotification:
			t.Errorf("unexpected notification event on an idle stream")
		}
	}
	if beats == 0 {
		t.Error("no heartbeat emitted on an idle stream")
	}
}

func TestStreamMaxConnDuration(t *testing.T) {
	repo := &stubRepo{}
	svc := newStreamService(repo)

	policy := fastPolicy()
	policy.MaxConnDuration = 5 * time.Millisecond
	sess := newTestSession("u1", policy)
	em := &recordingEmitter{}

	done := make(chan error, 1)
	go func() { done <- svc.Stream(context.Background(), sess, em) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Stream() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stream() did not terminate at the connection duration cap")
	}

	events := em.recorded()
	if len(events) == 0 {
		t.Fatal("no events recorded")
	}
	if last := events[len(events)-1]; last.event != EventClose {
		t.Errorf("last event = %s, want %s", last.event, EventClose)
	}
}

// Two sessions of the same user must deliver and advance independently; one
// tab catching up must not starve the other.
func TestStreamSessionsAreIndependent(t *testing.T) {
	repo := &stubRepo{}
	svc := newStreamService(repo)
	now := time.Now().UTC()
	repo.add("u1", now.Add(-2*time.Minute))
	repo.add("u1", now.Add(-time.Minute))

	policy := fastPolicy()
	policy.MaxEvents = 2

	for i := 0; i < 2; i++ {
		sess := newTestSession("u1", policy)
		em := &recordingEmitter{}
		if err := svc.Stream(context.Background(), sess, em); err != nil {
			t.Fatalf("Stream() #%d error = %v", i+1, err)
		}
		if got := len(em.notificationIDs()); got != 2 {
			t.Errorf("session #%d delivered %d notifications, want 2", i+1, got)
		}
	}
}

func TestSessionPolicyDefaults(t *testing.T) {
	sess := NewSession(Identity{UserID: "u1"}, core.StreamConfig{})

	if sess.Policy.PollInterval != defaultPollInterval {
		t.Errorf("PollInterval = %v, want %v", sess.Policy.PollInterval, defaultPollInterval)
	}
	if sess.Policy.HeartbeatInterval != defaultHeartbeatInterval {
		t.Errorf("HeartbeatInterval = %v, want %v", sess.Policy.HeartbeatInterval, defaultHeartbeatInterval)
	}
	if sess.Policy.PageSize != defaultPageSize {
		t.Errorf("PageSize = %v, want %v", sess.Policy.PageSize, defaultPageSize)
	}
	if sess.Policy.MaxEvents != 0 || sess.Policy.MaxConnDuration != 0 {
		t.Error("caps must stay unlimited unless configured")
	}
}
