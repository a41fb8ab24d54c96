package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dmitrijs2005/ordersync/internal/client/auth"
	"github.com/dmitrijs2005/ordersync/internal/client/config"
	"github.com/dmitrijs2005/ordersync/internal/client/connectivity"
	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/notify"
	"github.com/dmitrijs2005/ordersync/internal/client/photos"
	"github.com/dmitrijs2005/ordersync/internal/client/remote"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/metadata"
	photorepo "github.com/dmitrijs2005/ordersync/internal/client/repositories/photos"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/records"
	"github.com/dmitrijs2005/ordersync/internal/client/services"
	"github.com/dmitrijs2005/ordersync/internal/client/storage"
	"github.com/dmitrijs2005/ordersync/internal/logging"
)

// App owns every long-lived component of a client session.
type App struct {
	cfg    *config.Config
	out    io.Writer
	reader *bufio.Reader
	log    logging.Logger
	loc    *time.Location

	opener    *storage.Opener
	meta      metadata.Repository
	holder    *auth.Holder
	api       *remote.Client
	net       connectivity.Observer
	monitor   *connectivity.Monitor
	scheduler *notify.Scheduler
	engine    *services.Engine
	closers   []io.Closer

	// syncMu keeps refreshes from overlapping.
	syncMu sync.Mutex
}

// NewApp opens the local cache and wires the sync engine. A cache that
// cannot be opened is replaced by an in-memory one for the session.
func NewApp(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, log logging.Logger) (*App, error) {
	if log == nil {
		log = logging.Discard()
	}
	a := &App{cfg: cfg, out: out, reader: bufio.NewReader(in), log: log, loc: time.Local}

	a.opener = storage.NewOpener(cfg.DBPath, log)
	db, err := a.opener.OpenOrMemory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open local cache: %w", err)
	}
	a.meta = metadata.NewSQLiteRepository(db)

	a.holder = auth.NewHolder(a.initialToken(ctx))
	a.api = remote.New(cfg.ServerURL, a.holder,
		remote.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout}),
		remote.WithLogger(log),
	)

	source, err := a.photoSource(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	if cfg.Offline {
		a.net = connectivity.Static(false)
	} else {
		prober, err := a.prober()
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.monitor = connectivity.NewMonitor(prober, cfg.RequestTimeout, log)
		a.net = a.monitor
	}

	a.scheduler = notify.NewScheduler(a.meta, terminalPrompter{reader: a.reader, w: out}, notify.NewWriterNotifier(out), nil, log)

	deps := services.Deps{
		Net:   a.net,
		Creds: a.api,
		Meta:  a.meta,
		IDs:   services.NewProvisionalIDs(a.meta, nil),
		Log:   log,
	}
	resolver := services.NewPhotoResolver(photorepo.NewSQLiteRepository(db), source, services.PhotoOptions{
		Concurrency: cfg.Photos.Concurrency,
		PerSecond:   cfg.Photos.PerSecond,
		Burst:       cfg.Photos.Burst,
	}, log)

	a.engine = services.NewEngine(
		services.NewClientService(records.NewSQLiteRepository[models.Client](db, records.Clients), a.api.Clients(), deps),
		services.NewProductService(records.NewSQLiteRepository[models.Product](db, records.Products), a.api.Products(), a.api, resolver, deps),
		services.NewOrderService(records.NewSQLiteRepository[models.Order](db, records.Orders), a.api.Orders(),
			records.NewSQLiteRepository[models.Product](db, records.Products), a.scheduler, deps),
		services.NewUserService(records.NewSQLiteRepository[models.User](db, records.Users), a.api, deps),
		deps,
	)
	return a, nil
}

// initialToken prefers the configured token over the one saved at the last
// login.
func (a *App) initialToken(ctx context.Context) string {
	if a.cfg.Token != "" {
		return a.cfg.Token
	}
	b, err := a.meta.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.log.Warn(ctx, "failed to read saved token", "error", err)
		}
		return ""
	}
	return string(b)
}

func (a *App) photoSource(ctx context.Context) (photos.Source, error) {
	switch a.cfg.Photos.Source {
	case photos.KindS3:
		s, err := photos.NewS3Source(ctx, a.cfg.Photos.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to set up s3 photo source: %w", err)
		}
		return s, nil
	case photos.KindSupabase:
		return photos.NewSupabaseSource(a.cfg.Photos.Supabase), nil
	default:
		return photos.NewAPISource(a.api), nil
	}
}

func (a *App) prober() (connectivity.Prober, error) {
	if a.cfg.Probe != config.ProbeGRPC {
		return a.api, nil
	}
	p, err := connectivity.NewGRPCProber(a.cfg.HealthAddr, a.cfg.HealthService)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, p)
	return p, nil
}

// Start probes connectivity once and keeps watching it in the background
// until ctx is done.
func (a *App) Start(ctx context.Context) {
	if a.monitor == nil {
		return
	}
	a.monitor.Check(ctx)
	a.monitor.OnChange(func(m connectivity.Mode) { a.onModeChange(ctx, m) })
	go a.monitor.Run(ctx, a.cfg.OnlineCheckInterval)
}

// onModeChange reports the new mode and, once the API is reachable again,
// refreshes the cache so reads stop serving stale data.
func (a *App) onModeChange(ctx context.Context, m connectivity.Mode) {
	fmt.Fprintf(a.out, "\nSwitched to %s mode\n", m)
	if m != connectivity.ModeOnline || !a.api.HasCredential() {
		return
	}

	a.syncMu.Lock()
	defer a.syncMu.Unlock()
	if _, err := a.engine.Refresh(ctx); err != nil {
		a.log.Warn(ctx, "refresh after reconnect failed", "error", err)
		return
	}
	a.log.Info(ctx, "cache refreshed after reconnect")
}

// Close stops pending reminders and releases the cache.
func (a *App) Close() error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	errs = append(errs, a.opener.Close())
	return errors.Join(errs...)
}

func (a *App) mode() connectivity.Mode {
	if a.net.Online() {
		return connectivity.ModeOnline
	}
	return connectivity.ModeOffline
}

// status is the REPL prompt decoration.
func (a *App) status() string {
	s := string(a.mode())
	if !a.api.HasCredential() {
		s += ", signed out"
	}
	return s
}
