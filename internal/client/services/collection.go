// Package services is the offline-first sync engine. Each collection serves
// its cached records first, refreshes them from the API when online, and
// applies the write-back policy to creates, updates and deletes.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/ordersync/internal/client/connectivity"
	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/remote"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/records"
	"github.com/dmitrijs2005/ordersync/internal/logging"
)

type Source string

const (
	SourceCache  Source = "cache"
	SourceRemote Source = "remote"
)

// View is what a load hands to the presentation layer. Err is set when the
// refresh failed and the items came from the cache instead.
type View[T any] struct {
	Items  []T
	Source Source
	Err    error
}

// RemoteCollection is implemented by *remote.Resource.
type RemoteCollection[T any] interface {
	List(ctx context.Context) ([]T, error)
	Create(ctx context.Context, item T, key string) (T, error)
	Update(ctx context.Context, id models.ID, item T) (T, error)
	Delete(ctx context.Context, id models.ID) error
}

// CredentialChecker is implemented by *remote.Client.
type CredentialChecker interface {
	HasCredential() bool
}

// MergeFunc enriches records fetched from the API with local-only fields of
// the previously cached record with the same id. prior may be empty.
type MergeFunc[T any] func(ctx context.Context, incoming []T, prior map[models.ID]T) []T

func identityMerge[T any](_ context.Context, incoming []T, _ map[models.ID]T) []T { return incoming }

// Deps are the collaborators shared by every collection.
type Deps struct {
	Net   connectivity.Observer
	Creds CredentialChecker
	Meta  metadata.Repository
	IDs   *ProvisionalIDs
	Log   logging.Logger
	Now   func() time.Time
}

// Collection implements load and write-back for one entity type.
type Collection[T models.Entity[T]] struct {
	name   string
	store  records.Store[T]
	remote RemoteCollection[T]
	deps   Deps
	merge  MergeFunc[T]
	log    logging.Logger

	// prepareLocal adjusts a record written to the cache without the API.
	prepareLocal func(ctx context.Context, item T) (T, error)
	onLoaded     func(ctx context.Context, items []T)
	onSaved      func(ctx context.Context, item T)
	onDeleted    func(ctx context.Context, id models.ID)
}

func newCollection[T models.Entity[T]](name string, store records.Store[T], rc RemoteCollection[T], deps Deps) *Collection[T] {
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Collection[T]{
		name:   name,
		store:  store,
		remote: rc,
		deps:   deps,
		merge:  identityMerge[T],
		log:    deps.Log.With("collection", name),
	}
}

func (c *Collection[T]) online() bool { return c.deps.Net != nil && c.deps.Net.Online() }

func (c *Collection[T]) hasCredential() bool {
	return c.deps.Creds != nil && c.deps.Creds.HasCredential()
}

// Cached returns the cached records without touching the network.
func (c *Collection[T]) Cached(ctx context.Context) ([]T, error) {
	return c.store.GetAll(ctx)
}

// Load emits the cached records, then, when online with a credential,
// refreshes the cache from the API and emits the result. emit may be nil.
func (c *Collection[T]) Load(ctx context.Context, emit func(View[T])) View[T] {
	cached, cacheErr := c.store.GetAll(ctx)
	if cacheErr != nil {
		c.log.Warn(ctx, "cache read failed", "error", cacheErr)
		cached = []T{}
	}

	view := View[T]{Items: cached, Source: SourceCache, Err: cacheErr}
	if emit != nil {
		emit(view)
	}

	if !c.online() || !c.hasCredential() {
		c.loaded(ctx, view.Items)
		return view
	}

	fresh, err := c.remote.List(ctx)
	if err != nil {
		c.log.Warn(ctx, "refresh failed, serving cache", "error", err)
		view.Err = err
		c.loaded(ctx, view.Items)
		if emit != nil {
			emit(view)
		}
		return view
	}

	prior := make(map[models.ID]T, len(cached))
	var provisional []T
	for _, item := range cached {
		prior[item.RecordID()] = item
		if item.RecordID().IsProvisional() {
			provisional = append(provisional, item)
		}
	}

	merged := c.merge(ctx, fresh, prior)
	c.replace(ctx, merged, provisional)

	items := append(append(make([]T, 0, len(merged)+len(provisional)), merged...), provisional...)
	view = View[T]{Items: items, Source: SourceRemote}
	c.loaded(ctx, items)
	if emit != nil {
		emit(view)
	}
	return view
}

// replace swaps the cache contents for merged and keeps provisional
// records that the API has not seen yet. Failures degrade to a log line.
func (c *Collection[T]) replace(ctx context.Context, merged, provisional []T) {
	if err := c.store.ReplaceAll(ctx, merged); err != nil {
		c.log.Warn(ctx, "failed to update cache", "error", err)
		return
	}
	for _, item := range provisional {
		if err := c.store.Put(ctx, item); err != nil {
			c.log.Warn(ctx, "failed to keep provisional record", "id", item.RecordID(), "error", err)
		}
	}
	if c.deps.Meta != nil {
		if err := metadata.SetTime(ctx, c.deps.Meta, metadata.RefreshedKey(c.name), c.deps.Now()); err != nil {
			c.log.Warn(ctx, "failed to stamp refresh", "error", err)
		}
	}
}

func (c *Collection[T]) loaded(ctx context.Context, items []T) {
	if c.onLoaded != nil {
		c.onLoaded(ctx, items)
	}
}

func (c *Collection[T]) saved(ctx context.Context, item T) {
	if c.onSaved != nil {
		c.onSaved(ctx, item)
	}
}

func (c *Collection[T]) deleted(ctx context.Context, id models.ID) {
	if c.onDeleted != nil {
		c.onDeleted(ctx, id)
	}
}

func (c *Collection[T]) mergeOne(ctx context.Context, item T, prior map[models.ID]T) T {
	out := c.merge(ctx, []T{item}, prior)
	if len(out) == 0 {
		return item
	}
	return out[0]
}

type validator interface {
	Validate() error
}

// validate runs the record's own checks, when it has any.
func validate[T any](item T) error {
	if v, ok := any(item).(validator); ok {
		return v.Validate()
	}
	return nil
}

func (c *Collection[T]) local(ctx context.Context, item T) (T, error) {
	if c.prepareLocal == nil {
		return item, nil
	}
	return c.prepareLocal(ctx, item)
}

// Create writes item through the API when online. Offline, it is stored
// under a provisional id and stays local until PushProvisional.
func (c *Collection[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T
	online, hasCred := c.online(), c.hasCredential()
	if !hasCred {
		return zero, remote.ErrUnauthorized
	}
	if err := validate(item); err != nil {
		return zero, err
	}

	if !online {
		id, err := c.deps.IDs.Next(ctx)
		if err != nil {
			return zero, err
		}
		item, err = c.local(ctx, item.WithID(id))
		if err != nil {
			return zero, err
		}
		if err := c.store.Add(ctx, item); err != nil {
			return zero, fmt.Errorf("failed to store %s offline: %w", c.name, err)
		}
		c.log.Info(ctx, "created offline", "id", id)
		c.saved(ctx, item)
		return item, nil
	}

	created, err := c.remote.Create(ctx, item.WithID(0), uuid.NewString())
	if err != nil {
		return zero, err
	}
	return c.storeAuthoritative(ctx, created, nil), nil
}

// storeAuthoritative derives local fields for a record the API returned and
// upserts it. A cache failure is logged; the API already has the record.
func (c *Collection[T]) storeAuthoritative(ctx context.Context, item T, prior map[models.ID]T) T {
	item = c.mergeOne(ctx, item, prior)
	if err := c.store.Put(ctx, item); err != nil {
		c.log.Warn(ctx, "failed to cache record", "id", item.RecordID(), "error", err)
	}
	c.saved(ctx, item)
	return item
}

// Update is rejected offline, before the credential is looked at.
// Provisional records are updated locally only.
func (c *Collection[T]) Update(ctx context.Context, item T) (T, error) {
	var zero T
	online, hasCred := c.online(), c.hasCredential()
	if !online {
		return zero, ErrOffline
	}
	if !hasCred {
		return zero, remote.ErrUnauthorized
	}
	if err := validate(item); err != nil {
		return zero, err
	}

	id := item.RecordID()
	if id.IsProvisional() {
		if _, err := c.store.Get(ctx, id); err != nil {
			return zero, err
		}
		item, err := c.local(ctx, item)
		if err != nil {
			return zero, err
		}
		if err := c.store.Put(ctx, item); err != nil {
			return zero, err
		}
		c.saved(ctx, item)
		return item, nil
	}

	updated, err := c.remote.Update(ctx, id, item)
	if err != nil {
		return zero, err
	}

	prior := map[models.ID]T{}
	if old, err := c.store.Get(ctx, id); err == nil {
		prior[id] = old
	}
	return c.storeAuthoritative(ctx, updated, prior), nil
}

// Delete is rejected offline, before the credential is looked at.
// Provisional records are deleted locally only.
func (c *Collection[T]) Delete(ctx context.Context, id models.ID) error {
	online, hasCred := c.online(), c.hasCredential()
	if !online {
		return ErrOffline
	}
	if !hasCred {
		return remote.ErrUnauthorized
	}

	if !id.IsProvisional() {
		err := c.remote.Delete(ctx, id)
		if errors.Is(err, remote.ErrNotFound) {
			c.log.Info(ctx, "record already gone on server", "id", id)
		} else if err != nil {
			return err
		}
	}

	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	c.deleted(ctx, id)
	return nil
}

var pushNamespace = uuid.MustParse("6f1c1c52-94a8-4e1c-8a0e-3c9f2b7d4e10")

// idempotencyKey is stable for a provisional record so a retried push is
// collapsed by the server.
func idempotencyKey(collection string, id models.ID) string {
	return uuid.NewSHA1(pushNamespace, []byte(collection+":"+id.String())).String()
}

// PushProvisional replays provisional records to the API. rewrite, when
// set, maps references to records pushed earlier; a record it rejects is not
// sent. It returns the old to new id mapping; failed records stay
// provisional and their errors are joined.
func (c *Collection[T]) PushProvisional(ctx context.Context, rewrite func(T) (T, error)) (map[models.ID]models.ID, error) {
	if !c.hasCredential() {
		return nil, remote.ErrUnauthorized
	}
	if !c.online() {
		return nil, ErrOffline
	}

	cached, err := c.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	moved := map[models.ID]models.ID{}
	var errs []error
	for _, item := range cached {
		oldID := item.RecordID()
		if !oldID.IsProvisional() {
			continue
		}
		if rewrite != nil {
			if item, err = rewrite(item); err != nil {
				errs = append(errs, fmt.Errorf("%s %d: %w", c.name, oldID, err))
				continue
			}
		}

		created, err := c.remote.Create(ctx, item.WithID(0), idempotencyKey(c.name, oldID))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s %d: %w", c.name, oldID, err))
			continue
		}

		if err := c.store.Delete(ctx, oldID); err != nil {
			c.log.Warn(ctx, "failed to drop provisional record", "id", oldID, "error", err)
		}
		c.deleted(ctx, oldID)
		created = c.storeAuthoritative(ctx, created, nil)
		moved[oldID] = created.RecordID()
		c.log.Info(ctx, "pushed provisional record", "old_id", oldID, "id", created.RecordID())
	}
	return moved, errors.Join(errs...)
}

// Refreshed returns when the collection was last refreshed from the API.
func (c *Collection[T]) Refreshed(ctx context.Context) (time.Time, bool) {
	if c.deps.Meta == nil {
		return time.Time{}, false
	}
	t, ok, err := metadata.GetTime(ctx, c.deps.Meta, metadata.RefreshedKey(c.name))
	if err != nil {
		return time.Time{}, false
	}
	return t, ok
}
