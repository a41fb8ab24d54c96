package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/dmitrijs2005/ordersync/internal/client/auth"
	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/notify"
	"github.com/dmitrijs2005/ordersync/internal/client/remote"
	"github.com/dmitrijs2005/ordersync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/ordersync/internal/client/services"
)

const (
	KindClients  = "clients"
	KindProducts = "products"
	KindOrders   = "orders"
)

var errUnknownKind = errors.New("unknown collection, use clients, products or orders")

// parseKind accepts singular and plural collection names.
func parseKind(s string) (string, error) {
	switch strings.ToLower(s) {
	case "client", "clients", "c":
		return KindClients, nil
	case "product", "products", "p":
		return KindProducts, nil
	case "order", "orders", "o":
		return KindOrders, nil
	}
	return "", fmt.Errorf("%w: %q", errUnknownKind, s)
}

// report prints err in user terms and returns it unchanged.
func (a *App) report(err error) error {
	if err == nil {
		return nil
	}
	var se *remote.StatusError
	switch {
	case errors.Is(err, services.ErrOffline):
		fmt.Fprintln(a.out, "This change needs a connection to the server. Try again when online.")
	case errors.Is(err, services.ErrRequiresConnection):
		fmt.Fprintln(a.out, "Uploading a photo needs a connection to the server.")
	case errors.Is(err, models.ErrInvalid):
		fmt.Fprintln(a.out, "Invalid input:", err)
	case errors.Is(err, services.ErrUnresolvedReference):
		fmt.Fprintln(a.out, "Some orders stay local until the clients and products they use are pushed:", err)
	case errors.Is(err, remote.ErrUnauthorized):
		fmt.Fprintln(a.out, "Not signed in or the session expired. Use 'login'.")
	case errors.Is(err, remote.ErrUnavailable):
		fmt.Fprintln(a.out, "The server is unavailable:", err)
	case errors.As(err, &se):
		fmt.Fprintln(a.out, "The server rejected the request:", se.Message)
	default:
		fmt.Fprintln(a.out, "Error:", err)
	}
	return err
}

func (a *App) warnStale(err error) {
	if err != nil {
		fmt.Fprintf(a.out, "Showing cached data, refresh failed: %v\n", err)
	}
}

// Login stores a bearer token read from the terminal and remembers it for
// the next session.
func (a *App) Login(ctx context.Context) error {
	token, err := GetToken(a.out)
	if err != nil {
		return a.report(err)
	}
	if token == "" {
		return a.report(errors.New("empty token"))
	}
	if exp, ok := auth.Expiry(token); ok && !time.Now().Before(exp) {
		return a.report(fmt.Errorf("token expired at %s", exp.Format(time.RFC3339)))
	}

	a.holder.Set(token)
	if err := a.meta.Set(ctx, metadata.KeyAccessToken, []byte(token)); err != nil {
		a.log.Warn(ctx, "failed to save token", "error", err)
	}

	if a.net.Online() {
		u, _, err := a.engine.Users.Load(ctx)
		if err != nil {
			return a.report(err)
		}
		fmt.Fprintf(a.out, "Signed in as %s.\n", orDash(joinName(u.FirstName, u.LastName)))
		return nil
	}
	fmt.Fprintln(a.out, "Token saved. It will be checked once the server is reachable.")
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	a.holder.Clear()
	if err := a.meta.Delete(ctx, metadata.KeyAccessToken); err != nil {
		a.log.Warn(ctx, "failed to forget token", "error", err)
	}
	fmt.Fprintln(a.out, "Signed out.")
	return nil
}

// Sync refreshes every collection from the server.
func (a *App) Sync(ctx context.Context) error {
	a.syncMu.Lock()
	rep, err := a.engine.Refresh(ctx)
	a.syncMu.Unlock()
	if rerr := renderRefresh(a.out, rep); rerr != nil {
		return rerr
	}
	if err != nil {
		return a.report(err)
	}
	return nil
}

// Push sends records created offline to the server.
func (a *App) Push(ctx context.Context) error {
	rep, err := a.engine.PushProvisional(ctx)
	fmt.Fprintf(a.out, "Pushed %d clients, %d products, %d orders.\n", rep.Clients, rep.Products, rep.Orders)
	return a.report(err)
}

func (a *App) Status(ctx context.Context) error {
	return renderStatus(a.out, a.engine.Status(ctx), a.opener.InMemory())
}

func (a *App) Profile(ctx context.Context) error {
	u, src, err := a.engine.Users.Load(ctx)
	if err != nil {
		return a.report(err)
	}
	return renderUser(a.out, u, src)
}

// Notifications asks for, grants or revokes reminder permission. mode is
// "", "on" or "off".
func (a *App) Notifications(ctx context.Context, mode string) error {
	var (
		p   notify.Permission
		err error
	)
	switch mode {
	case "":
		p, err = a.scheduler.RequestPermission(ctx)
	case "on":
		p, err = notify.PermissionGranted, a.scheduler.SetPermission(ctx, notify.PermissionGranted)
	case "off":
		p, err = notify.PermissionDenied, a.scheduler.SetPermission(ctx, notify.PermissionDenied)
	default:
		return a.report(fmt.Errorf("unknown option %q, use on or off", mode))
	}
	if err != nil {
		return a.report(err)
	}

	orders, err := a.engine.Orders.Cached(ctx)
	if err != nil {
		return a.report(err)
	}
	for _, o := range orders {
		a.scheduler.Reschedule(ctx, o)
	}
	fmt.Fprintf(a.out, "Reminders: %s\n", p)
	return nil
}

// List loads a collection, refreshing it when online, and prints the
// records matching query.
func (a *App) List(ctx context.Context, kind, query string) error {
	switch kind {
	case KindClients:
		view := a.engine.Clients.Load(ctx, nil)
		a.warnStale(view.Err)
		return renderClients(a.out, services.SearchClients(view.Items, query))

	case KindProducts:
		view := a.engine.Products.Load(ctx, nil)
		a.warnStale(view.Err)
		return renderProducts(a.out, services.SearchProducts(view.Items, query))

	case KindOrders:
		view := a.engine.Orders.Load(ctx, nil)
		a.warnStale(view.Err)
		clients, err := a.engine.Clients.Cached(ctx)
		if err != nil {
			a.log.Warn(ctx, "client names unavailable", "error", err)
		}
		products, err := a.engine.Products.Cached(ctx)
		if err != nil {
			a.log.Warn(ctx, "product titles unavailable", "error", err)
		}
		summaries := services.Describe(view.Items, clients, products)
		return renderOrders(a.out, services.SearchOrders(summaries, query), a.loc)
	}
	return a.report(errUnknownKind)
}

func (a *App) Add(ctx context.Context, kind string) error {
	switch kind {
	case KindClients:
		c, err := a.inputClient(models.Client{})
		if err != nil {
			return a.report(err)
		}
		c, err = a.engine.Clients.Create(ctx, c)
		return a.saved("Client", c.ID, err)

	case KindProducts:
		p, photo, err := a.inputProduct(models.Product{}, true)
		if err != nil {
			return a.report(err)
		}
		if photo != nil {
			p, err = a.engine.Products.CreateWithPhoto(ctx, p, *photo)
		} else {
			p, err = a.engine.Products.Create(ctx, p)
		}
		return a.saved("Product", p.ID, err)

	case KindOrders:
		o, err := a.inputOrder(models.Order{})
		if err != nil {
			return a.report(err)
		}
		o, err = a.engine.Orders.Create(ctx, o)
		return a.saved("Order", o.ID, err)
	}
	return a.report(errUnknownKind)
}

func (a *App) Edit(ctx context.Context, kind string, id models.ID) error {
	switch kind {
	case KindClients:
		cur, err := find(ctx, a.engine.Clients.Collection, id)
		if err != nil {
			return a.report(err)
		}
		c, err := a.inputClient(cur)
		if err != nil {
			return a.report(err)
		}
		c, err = a.engine.Clients.Update(ctx, c)
		return a.saved("Client", c.ID, err)

	case KindProducts:
		cur, err := find(ctx, a.engine.Products.Collection, id)
		if err != nil {
			return a.report(err)
		}
		p, _, err := a.inputProduct(cur, false)
		if err != nil {
			return a.report(err)
		}
		p, err = a.engine.Products.Update(ctx, p)
		return a.saved("Product", p.ID, err)

	case KindOrders:
		cur, err := find(ctx, a.engine.Orders.Collection, id)
		if err != nil {
			return a.report(err)
		}
		o, err := a.inputOrder(cur)
		if err != nil {
			return a.report(err)
		}
		o, err = a.engine.Orders.Update(ctx, o)
		return a.saved("Order", o.ID, err)
	}
	return a.report(errUnknownKind)
}

func (a *App) Delete(ctx context.Context, kind string, id models.ID) error {
	var err error
	switch kind {
	case KindClients:
		err = a.engine.Clients.Delete(ctx, id)
	case KindProducts:
		err = a.engine.Products.Delete(ctx, id)
	case KindOrders:
		err = a.engine.Orders.Delete(ctx, id)
	default:
		err = errUnknownKind
	}
	if err != nil {
		return a.report(err)
	}
	fmt.Fprintf(a.out, "Deleted %s %s.\n", strings.TrimSuffix(kind, "s"), id)
	return nil
}

func (a *App) saved(what string, id models.ID, err error) error {
	if err != nil {
		return a.report(err)
	}
	if id.IsProvisional() {
		fmt.Fprintf(a.out, "%s saved locally. Run 'push' when online to send it to the server.\n", what)
		return nil
	}
	fmt.Fprintf(a.out, "%s %s saved.\n", what, id)
	return nil
}

func find[T models.Entity[T]](ctx context.Context, c *services.Collection[T], id models.ID) (T, error) {
	var zero T
	items, err := c.Cached(ctx)
	if err != nil {
		return zero, err
	}
	for _, it := range items {
		if it.RecordID() == id {
			return it, nil
		}
	}
	return zero, fmt.Errorf("no record with id %s", id)
}

func (a *App) inputClient(c models.Client) (models.Client, error) {
	var err error
	if c.FirstName, err = GetWithDefault(a.reader, "First name", c.FirstName, a.out); err != nil {
		return c, err
	}
	if c.LastName, err = GetWithDefault(a.reader, "Last name", c.LastName, a.out); err != nil {
		return c, err
	}
	if c.Phone, err = GetWithDefault(a.reader, "Phone", c.Phone, a.out); err != nil {
		return c, err
	}
	return c, nil
}

// inputProduct prompts for product fields. With withPhoto a local image file
// may be attached for upload.
func (a *App) inputProduct(p models.Product, withPhoto bool) (models.Product, *remote.Upload, error) {
	var err error
	if p.Title, err = GetWithDefault(a.reader, "Title", p.Title, a.out); err != nil {
		return p, nil, err
	}
	if p.Title == "" {
		return p, nil, errors.New("title is required")
	}
	if p.Description, err = GetWithDefault(a.reader, "Description", p.Description, a.out); err != nil {
		return p, nil, err
	}
	if p.Price, err = GetMoney(a.reader, "Price", p.Price, a.out); err != nil {
		return p, nil, err
	}
	if !withPhoto {
		return p, nil, nil
	}

	path, err := GetSimpleText(a.reader, "Photo file (empty for none)", a.out)
	if err != nil || path == "" {
		return p, nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, nil, fmt.Errorf("failed to read photo: %w", err)
	}
	if mt := mimetype.Detect(data); !strings.HasPrefix(mt.String(), "image/") {
		return p, nil, fmt.Errorf("%s is %s, not an image", filepath.Base(path), mt.String())
	}
	return p, &remote.Upload{Filename: filepath.Base(path), Data: data}, nil
}

// inputOrder prompts for order fields. Lines are entered as
// "<product id> <quantity>"; an empty list keeps the current lines.
func (a *App) inputOrder(o models.Order) (models.Order, error) {
	var err error
	if o.Title, err = GetWithDefault(a.reader, "Title", o.Title, a.out); err != nil {
		return o, err
	}
	if o.Address, err = GetWithDefault(a.reader, "Address", o.Address, a.out); err != nil {
		return o, err
	}

	cur := ""
	if !o.Date.IsZero() {
		cur = o.Date.In(a.loc).Format(dateLayout)
	}
	s, err := GetWithDefault(a.reader, "Start ("+dateLayout+")", cur, a.out)
	if err != nil {
		return o, err
	}
	if o.Date, err = time.ParseInLocation(dateLayout, s, a.loc); err != nil {
		return o, fmt.Errorf("invalid start %q: %w", s, err)
	}

	cur = ""
	if o.ClientID != nil {
		cur = o.ClientID.String()
	}
	s, err = GetWithDefault(a.reader, "Client id (- for none)", cur, a.out)
	if err != nil {
		return o, err
	}
	switch s {
	case "", "-":
		o.ClientID = nil
	default:
		id, err := models.ParseID(s)
		if err != nil {
			return o, fmt.Errorf("invalid client id %q", s)
		}
		o.ClientID = &id
	}

	lines, err := GetLines(a.reader, "Products as '<product id> <quantity>'", a.out)
	if err != nil {
		return o, err
	}
	if len(lines) > 0 {
		o.Products, err = parseOrderLines(lines)
		if err != nil {
			return o, err
		}
	}
	return o.Recalculate(), nil
}

func parseOrderLines(lines []string) ([]models.OrderLine, error) {
	out := make([]models.OrderLine, 0, len(lines))
	for _, l := range lines {
		f := strings.Fields(l)
		if len(f) == 0 || len(f) > 2 {
			return nil, fmt.Errorf("invalid product line %q", l)
		}
		id, err := models.ParseID(f[0])
		if err != nil {
			return nil, fmt.Errorf("invalid product id in %q", l)
		}
		line := models.OrderLine{ProductID: id, Quantity: 1}
		if len(f) == 2 {
			q, err := strconv.ParseInt(f[1], 10, 64)
			if err != nil || q <= 0 {
				return nil, fmt.Errorf("invalid quantity in %q", l)
			}
			line.Quantity = q
		}
		out = append(out, line)
	}
	return out, nil
}
