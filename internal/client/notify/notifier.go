package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
	"github.com/dmitrijs2005/ordersync/internal/logging"
)

type Notification struct {
	OrderID models.ID
	Title   string
	Body    string
	At      time.Time
}

// Notifier delivers a notification to the user.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	log logging.Logger
}

func NewLogNotifier(log logging.Logger) *LogNotifier { return &LogNotifier{log: log} }

func (n *LogNotifier) Notify(ctx context.Context, x Notification) error {
	n.log.Info(ctx, x.Title, "order_id", x.OrderID, "body", x.Body, "at", x.At)
	return nil
}

// WriterNotifier prints notifications as lines on w, e.g. the terminal.
type WriterNotifier struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterNotifier(w io.Writer) *WriterNotifier { return &WriterNotifier{w: w} }

func (n *WriterNotifier) Notify(_ context.Context, x Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := fmt.Fprintf(n.w, "\n[%s] %s: %s\n", x.At.Format("15:04"), x.Title, x.Body)
	return err
}

// Prompter asks the user whether notifications may be shown.
type Prompter interface {
	Prompt(ctx context.Context) (bool, error)
}

// FixedPrompter answers without asking, for non-interactive runs.
type FixedPrompter bool

func (p FixedPrompter) Prompt(context.Context) (bool, error) { return bool(p), nil }
