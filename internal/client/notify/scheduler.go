// Package notify schedules reminders for upcoming orders: one an hour before
// an order starts and one when it starts. Timers live in memory only; the
// order load path reschedules them after a restart.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ordersync/internal/logging"
)

type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// LeadTime is how long before the start the first reminder fires.
const LeadTime = time.Hour

type entry struct {
	timer Timer
}

type Scheduler struct {
	meta     metadata.Repository
	prompter Prompter
	notifier Notifier
	clock    Clock
	log      logging.Logger

	mu         sync.Mutex
	permission Permission
	loaded     bool
	timers     map[models.ID][]*entry
}

func NewScheduler(meta metadata.Repository, p Prompter, n Notifier, c Clock, log logging.Logger) *Scheduler {
	if c == nil {
		c = SystemClock()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Scheduler{
		meta:     meta,
		prompter: p,
		notifier: n,
		clock:    c,
		log:      log,
		timers:   make(map[models.ID][]*entry),
	}
}

// Permission returns the stored decision, PermissionDefault if the user was
// never asked.
func (s *Scheduler) Permission(ctx context.Context) Permission {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permissionLocked(ctx)
}

func (s *Scheduler) permissionLocked(ctx context.Context) Permission {
	if s.loaded {
		return s.permission
	}
	s.permission = PermissionDefault
	raw, err := s.meta.Get(ctx, metadata.KeyNotificationDecision)
	if err != nil {
		s.log.Warn(ctx, "failed to read notification permission", "error", err)
		return s.permission
	}
	switch p := Permission(raw); p {
	case PermissionGranted, PermissionDenied:
		s.permission = p
	}
	s.loaded = true
	return s.permission
}

// RequestPermission prompts the user once. A stored decision, either way,
// is returned without prompting again.
func (s *Scheduler) RequestPermission(ctx context.Context) (Permission, error) {
	if p := s.Permission(ctx); p != PermissionDefault {
		return p, nil
	}
	if s.prompter == nil {
		return PermissionDefault, nil
	}

	ok, err := s.prompter.Prompt(ctx)
	if err != nil {
		return PermissionDefault, fmt.Errorf("failed to ask for notification permission: %w", err)
	}
	p := PermissionDenied
	if ok {
		p = PermissionGranted
	}
	if err := s.SetPermission(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

// SetPermission records an explicit decision.
func (s *Scheduler) SetPermission(ctx context.Context, p Permission) error {
	s.mu.Lock()
	s.permission = p
	s.loaded = true
	s.mu.Unlock()

	if err := s.meta.Set(ctx, metadata.KeyNotificationDecision, []byte(p)); err != nil {
		return fmt.Errorf("failed to persist notification permission: %w", err)
	}
	return nil
}

// Schedule arms the reminders of o that are still in the future. It does
// nothing without permission.
func (s *Scheduler) Schedule(ctx context.Context, o models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.permissionLocked(ctx) != PermissionGranted {
		return
	}

	now := s.clock.Now()
	title := fmt.Sprintf("Order %q", o.Title)
	reminders := []Notification{
		{OrderID: o.ID, Title: title, Body: "1 hour left before the order starts.", At: o.Start().Add(-LeadTime)},
		{OrderID: o.ID, Title: title, Body: "The order has started.", At: o.Start()},
	}

	for _, n := range reminders {
		if !n.At.After(now) {
			continue
		}
		e := &entry{}
		e.timer = s.clock.AfterFunc(n.At.Sub(now), func() { s.fire(e, n) })
		s.timers[o.ID] = append(s.timers[o.ID], e)
	}
}

func (s *Scheduler) fire(e *entry, n Notification) {
	ctx := context.Background()

	s.mu.Lock()
	handles := s.timers[n.OrderID]
	found := false
	for i, h := range handles {
		if h == e {
			handles = append(handles[:i], handles[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		// Cancelled after the timer had already been dispatched.
		s.mu.Unlock()
		return
	}
	if len(handles) == 0 {
		delete(s.timers, n.OrderID)
	} else {
		s.timers[n.OrderID] = handles
	}
	granted := s.permissionLocked(ctx) == PermissionGranted
	s.mu.Unlock()

	if !granted {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.log.Error(ctx, "failed to deliver notification", "order_id", n.OrderID, "error", err)
	}
}

// Cancel stops every pending reminder of the order.
func (s *Scheduler) Cancel(id models.ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.timers[id] {
		e.timer.Stop()
	}
	delete(s.timers, id)
}

// Reschedule replaces the reminders of o.
func (s *Scheduler) Reschedule(ctx context.Context, o models.Order) {
	s.Cancel(o.ID)
	s.Schedule(ctx, o)
}

// Stop cancels everything.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, entries := range s.timers {
		for _, e := range entries {
			e.timer.Stop()
		}
		delete(s.timers, id)
	}
}

// Pending returns how many reminders are armed for the order.
func (s *Scheduler) Pending(id models.ID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers[id])
}
