package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/dmitrijs2005/ordersync/internal/client/connectivity"
	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/client/services"
)

const dateLayout = "2006-01-02 15:04"

var money = message.NewPrinter(language.English)

func formatMoney(v models.Money) string {
	if v.Whole() {
		return money.Sprintf("%d ₽", int64(v))
	}
	return money.Sprintf("%.2f ₽", float64(v))
}

func formatID(id models.ID) string {
	if id.IsProvisional() {
		return "local"
	}
	return id.String()
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderClients(w io.Writer, items []models.Client) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No clients.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tPHONE")
	for _, c := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", formatID(c.ID), orDash(c.FullName()), orDash(c.Phone))
	}
	return tw.Flush()
}

func renderProducts(w io.Writer, items []models.Product) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No products.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tPHOTO")
	for _, p := range items {
		photo := "-"
		switch {
		case p.Image != "":
			photo = "cached"
		case p.Photo != "":
			photo = "missing"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", formatID(p.ID), p.Title, formatMoney(p.Price), photo)
	}
	return tw.Flush()
}

// renderOrders prints one block per order with its lines indented.
func renderOrders(w io.Writer, items []services.OrderSummary, loc *time.Location) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "No orders.")
		return err
	}
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tSTART\tTITLE\tCLIENT\tTOTAL")
	for _, o := range items {
		start := "-"
		if !o.Start.IsZero() {
			start = o.Start.In(loc).Format(dateLayout)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", formatID(o.ID), start, o.Title, o.ClientName, formatMoney(o.Total))
		for _, l := range o.Lines {
			fmt.Fprintf(tw, "\t\t  %d x %s\t\t%s\n", l.Quantity, l.Title, formatMoney(l.Price.Mul(l.Quantity)))
		}
	}
	return tw.Flush()
}

func renderUser(w io.Writer, u models.User, src services.Source) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "Name:\t%s\n", orDash(joinName(u.FirstName, u.LastName)))
	fmt.Fprintf(tw, "Email:\t%s\n", orDash(u.Email))
	fmt.Fprintf(tw, "Phone:\t%s\n", orDash(u.Phone))
	fmt.Fprintf(tw, "Source:\t%s\n", src)
	return tw.Flush()
}

func renderStatus(w io.Writer, st services.Status, inMemory bool) error {
	mode := connectivity.ModeOffline
	if st.Online {
		mode = connectivity.ModeOnline
	}
	fmt.Fprintf(w, "Mode: %s\n", mode)
	if st.Credential {
		fmt.Fprintln(w, "Signed in: yes")
	} else {
		fmt.Fprintln(w, "Signed in: no (use 'login')")
	}
	if inMemory {
		fmt.Fprintln(w, "Cache: in memory, changes are lost on exit")
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "COLLECTION\tRECORDS\tLOCAL\tREFRESHED")
	for _, c := range st.Collections {
		refreshed := "never"
		if !c.RefreshedAt.IsZero() {
			refreshed = c.RefreshedAt.UTC().Format(time.RFC3339)
		}
		if c.Err != nil {
			refreshed = "error: " + c.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", c.Name, c.Records, c.Provisional, refreshed)
	}
	return tw.Flush()
}

func renderRefresh(w io.Writer, r services.RefreshReport) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "COLLECTION\tRECORDS\tSOURCE")
	line := func(name string, n int, src services.Source, err error) {
		s := string(src)
		if err != nil {
			s += " (refresh failed)"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", name, n, s)
	}
	line("clients", len(r.Clients.Items), r.Clients.Source, r.Clients.Err)
	line("products", len(r.Products.Items), r.Products.Source, r.Products.Err)
	line("orders", len(r.Orders.Items), r.Orders.Source, r.Orders.Err)
	return tw.Flush()
}

func joinName(first, last string) string {
	return models.Client{FirstName: first, LastName: last}.FullName()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
