package notify

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/metadata"
)

type fakeMeta struct {
	metadata.Repository
	mu     sync.Mutex
	values map[string][]byte
	getErr error
}

func newFakeMeta() *fakeMeta { return &fakeMeta{values: map[string][]byte{}} }

func (m *fakeMeta) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	return m.values[key], nil
}

func (m *fakeMeta) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped && !t.fired
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

type recorder struct {
	mu   sync.Mutex
	got  []Notification
	fail error
}

func (r *recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
	return r.fail
}

type countingPrompter struct {
	answer bool
	calls  int
}

func (p *countingPrompter) Prompt(context.Context) (bool, error) {
	p.calls++
	return p.answer, nil
}

var t0 = time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)

func newGranted(t *testing.T) (*Scheduler, *fakeClock, *recorder) {
	t.Helper()
	clock := &fakeClock{now: t0}
	rec := &recorder{}
	s := NewScheduler(newFakeMeta(), FixedPrompter(true), rec, clock, nil)
	p, err := s.RequestPermission(context.Background())
	require.NoError(t, err)
	require.Equal(t, PermissionGranted, p)
	return s, clock, rec
}

func TestSchedule_TwoFutureReminders(t *testing.T) {
	s, clock, rec := newGranted(t)
	o := models.Order{ID: 7, Title: "Birthday", Date: t0.Add(3 * time.Hour)}

	s.Schedule(context.Background(), o)
	assert.Equal(t, 2, s.Pending(7))

	clock.Advance(2 * time.Hour)
	require.Len(t, rec.got, 1)
	assert.Equal(t, "1 hour left before the order starts.", rec.got[0].Body)
	assert.Equal(t, `Order "Birthday"`, rec.got[0].Title)
	assert.Equal(t, 1, s.Pending(7))

	clock.Advance(time.Hour)
	require.Len(t, rec.got, 2)
	assert.Equal(t, "The order has started.", rec.got[1].Body)
	assert.Zero(t, s.Pending(7))
}

func TestSchedule_StartWithinTheHour(t *testing.T) {
	s, clock, rec := newGranted(t)

	s.Schedule(context.Background(), models.Order{ID: 1, Date: t0.Add(30 * time.Minute)})
	assert.Equal(t, 1, s.Pending(1), "only the start reminder is in the future")

	clock.Advance(time.Hour)
	require.Len(t, rec.got, 1)
	assert.Equal(t, "The order has started.", rec.got[0].Body)
}

func TestSchedule_PastOrderSchedulesNothing(t *testing.T) {
	s, _, _ := newGranted(t)
	s.Schedule(context.Background(), models.Order{ID: 1, Date: t0.Add(-time.Minute)})
	s.Schedule(context.Background(), models.Order{ID: 2, Date: t0})
	assert.Zero(t, s.Pending(1))
	assert.Zero(t, s.Pending(2))
}

func TestSchedule_WithoutPermissionIsNoOp(t *testing.T) {
	clock := &fakeClock{now: t0}
	s := NewScheduler(newFakeMeta(), nil, &recorder{}, clock, nil)

	s.Schedule(context.Background(), models.Order{ID: 1, Date: t0.Add(5 * time.Hour)})
	assert.Zero(t, s.Pending(1))
	assert.Empty(t, clock.timers)
}

func TestCancel(t *testing.T) {
	s, clock, rec := newGranted(t)
	ctx := context.Background()

	s.Schedule(ctx, models.Order{ID: 1, Date: t0.Add(3 * time.Hour)})
	s.Schedule(ctx, models.Order{ID: 2, Date: t0.Add(3 * time.Hour)})

	s.Cancel(1)
	s.Cancel(1)
	s.Cancel(404)
	assert.Zero(t, s.Pending(1))

	clock.Advance(4 * time.Hour)
	require.Len(t, rec.got, 2)
	for _, n := range rec.got {
		assert.Equal(t, models.ID(2), n.OrderID)
	}
}

func TestCancel_TimerAlreadyDispatched(t *testing.T) {
	s, clock, rec := newGranted(t)
	s.Schedule(context.Background(), models.Order{ID: 7, Date: t0.Add(30 * time.Minute)})
	require.Len(t, clock.timers, 1)

	// The runtime has started the callback, so Stop can no longer prevent it.
	timer := clock.timers[0]
	timer.fired = true
	s.Cancel(7)
	timer.f()

	assert.Zero(t, s.Pending(7))
	assert.Empty(t, rec.got)
}

func TestSchedule_AccumulatesWithoutCancel(t *testing.T) {
	s, _, _ := newGranted(t)
	o := models.Order{ID: 1, Date: t0.Add(3 * time.Hour)}

	s.Schedule(context.Background(), o)
	s.Schedule(context.Background(), o)
	assert.Equal(t, 4, s.Pending(1))

	s.Reschedule(context.Background(), o)
	assert.Equal(t, 2, s.Pending(1))
}

func TestPermissionRecheckedAtFireTime(t *testing.T) {
	s, clock, rec := newGranted(t)
	ctx := context.Background()

	s.Schedule(ctx, models.Order{ID: 1, Date: t0.Add(3 * time.Hour)})
	require.NoError(t, s.SetPermission(ctx, PermissionDenied))

	clock.Advance(4 * time.Hour)
	assert.Empty(t, rec.got)
}

func TestStop(t *testing.T) {
	s, clock, rec := newGranted(t)
	ctx := context.Background()
	s.Schedule(ctx, models.Order{ID: 1, Date: t0.Add(3 * time.Hour)})
	s.Schedule(ctx, models.Order{ID: 2, Date: t0.Add(5 * time.Hour)})

	s.Stop()
	clock.Advance(24 * time.Hour)
	assert.Empty(t, rec.got)
	assert.Zero(t, s.Pending(1))
}

func TestRequestPermission_PromptsOnceAndPersists(t *testing.T) {
	ctx := context.Background()
	meta := newFakeMeta()
	p := &countingPrompter{answer: false}

	s := NewScheduler(meta, p, &recorder{}, &fakeClock{now: t0}, nil)
	got, err := s.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, got)

	got, err = s.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, got)
	assert.Equal(t, 1, p.calls)

	// A new scheduler over the same metadata remembers the decision.
	p2 := &countingPrompter{answer: true}
	s2 := NewScheduler(meta, p2, &recorder{}, &fakeClock{now: t0}, nil)
	got, err = s2.RequestPermission(ctx)
	require.NoError(t, err)
	assert.Equal(t, PermissionDenied, got)
	assert.Zero(t, p2.calls)
}

func TestPermission_ReadFailureIsDefault(t *testing.T) {
	meta := newFakeMeta()
	meta.getErr = errors.New("disk gone")
	s := NewScheduler(meta, nil, &recorder{}, nil, nil)
	assert.Equal(t, PermissionDefault, s.Permission(context.Background()))
}

func TestNotifyFailureIsLoggedNotFatal(t *testing.T) {
	s, clock, rec := newGranted(t)
	rec.fail = errors.New("terminal closed")
	s.Schedule(context.Background(), models.Order{ID: 1, Date: t0.Add(30 * time.Minute)})
	assert.NotPanics(t, func() { clock.Advance(time.Hour) })
	assert.Len(t, rec.got, 1)
}

func TestWriterNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewWriterNotifier(&buf)
	require.NoError(t, n.Notify(context.Background(), Notification{
		OrderID: 1, Title: `Order "Cake"`, Body: "The order has started.", At: t0,
	}))
	assert.Equal(t, "\n[09:00] Order \"Cake\": The order has started.\n", buf.String())
}

func TestSystemClock(t *testing.T) {
	c := SystemClock()
	done := make(chan struct{})
	c.AfterFunc(time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}
