package services

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/dmitrijs2005/ordersync/internal/client/codec"
	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/photos"
	photorepo "github.com/dmitrijs2005/ordersync/internal/client/repositories/photos"
	"github.com/dmitrijs2005/ordersync/internal/client/storage"
	"github.com/dmitrijs2005/ordersync/internal/logging"
)

// PhotoResolver derives Product.Image from Product.Photo. It reuses the
// image of the cached product when the reference did not change, then the
// photo blob cache, and only then downloads and encodes the picture.
type PhotoResolver struct {
	blobs       photorepo.Repository
	source      photos.Source
	concurrency int
	limiter     *rate.Limiter
	flight      singleflight.Group
	log         logging.Logger
	now         func() time.Time
}

type PhotoOptions struct {
	// Concurrency bounds parallel downloads; 0 means 4.
	Concurrency int
	// PerSecond limits download starts; 0 disables the limit.
	PerSecond float64
	Burst     int
}

func NewPhotoResolver(blobs photorepo.Repository, source photos.Source, opts PhotoOptions, log logging.Logger) *PhotoResolver {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	limit := rate.Inf
	if opts.PerSecond > 0 {
		limit = rate.Limit(opts.PerSecond)
	}
	if opts.Burst <= 0 {
		opts.Burst = opts.Concurrency
	}
	if log == nil {
		log = logging.Discard()
	}
	return &PhotoResolver{
		blobs:       blobs,
		source:      source,
		concurrency: opts.Concurrency,
		limiter:     rate.NewLimiter(limit, opts.Burst),
		log:         log,
		now:         time.Now,
	}
}

// Merge is the product MergeFunc. Downloads run concurrently; a failed
// download leaves that product without an image.
func (r *PhotoResolver) Merge(ctx context.Context, incoming []models.Product, prior map[models.ID]models.Product) []models.Product {
	out := make([]models.Product, len(incoming))

	var g errgroup.Group
	g.SetLimit(r.concurrency)

	for i, p := range incoming {
		if p.Photo == "" {
			p.Image = ""
			out[i] = p
			continue
		}
		if old, ok := prior[p.ID]; ok && old.Photo == p.Photo && old.Image != "" {
			p.Image = old.Image
			out[i] = p
			continue
		}
		g.Go(func() error {
			p.Image = r.Image(ctx, p.Photo)
			out[i] = p
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// Cached returns the stored image for ref without downloading.
func (r *PhotoResolver) Cached(ctx context.Context, ref string) (string, bool) {
	blob, err := r.blobs.Get(ctx, ref)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			r.log.Warn(ctx, "photo cache read failed", "ref", ref, "error", err)
		}
		return "", false
	}
	return blob.Image, blob.Image != ""
}

// Image resolves ref to a data URI, or "" when the photo is unavailable.
func (r *PhotoResolver) Image(ctx context.Context, ref string) string {
	if img, ok := r.Cached(ctx, ref); ok {
		return img
	}

	v, _, _ := r.flight.Do(ref, func() (any, error) {
		return r.fetch(ctx, ref), nil
	})
	return v.(string)
}

func (r *PhotoResolver) fetch(ctx context.Context, ref string) string {
	if err := r.limiter.Wait(ctx); err != nil {
		r.log.Warn(ctx, "photo fetch aborted", "ref", ref, "error", err)
		return ""
	}

	data, err := r.source.Fetch(ctx, ref)
	if err != nil {
		r.log.Warn(ctx, "photo fetch failed", "ref", ref, "error", err)
		return ""
	}

	img, err := codec.Encode(data)
	if err != nil {
		r.log.Warn(ctx, "photo is not a usable image", "ref", ref, "error", err)
		return ""
	}

	if err := r.blobs.Put(ctx, models.Photo{Ref: ref, Image: img, FetchedAt: r.now().Unix()}); err != nil {
		r.log.Warn(ctx, "failed to cache photo", "ref", ref, "error", err)
	}
	return img
}
