package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/ordersync/internal/client/models"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface is the command surface the REPL drives. *App satisfies it.
type execIface interface {
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	Sync(ctx context.Context) error
	Push(ctx context.Context) error
	Status(ctx context.Context) error
	Profile(ctx context.Context) error
	Notifications(ctx context.Context, mode string) error
	List(ctx context.Context, kind, query string) error
	Add(ctx context.Context, kind string) error
	Edit(ctx context.Context, kind string, id models.ID) error
	Delete(ctx context.Context, kind string, id models.ID) error
}

const helpText = `Available commands:
  list <clients|products|orders> [search]   show cached records, refreshed when online
  add <clients|products|orders>             create a record
  edit <kind> <id>                          change a record (online only)
  delete <kind> <id>                        delete a record (online only)
  sync                                      refresh every collection
  push                                      send records created offline
  status                                    connectivity and cache summary
  profile                                   signed-in user
  notifications [on|off]                    order reminders
  login | logout
  exit | quit`

// runREPL reads commands from r and dispatches them to a until EOF, "exit"
// or "quit". Commands prompt for their fields on the same reader. Handler
// errors are already reported to the user, so the loop ignores them.
func runREPL(ctx context.Context, a execIface, statusFn func() string, r *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("orders (%s) > ", statusFn()))
		line, err := r.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help", "?":
			printlnFn(helpText)

		case "login":
			_ = a.Login(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "sync", "refresh":
			_ = a.Sync(ctx)
		case "push":
			_ = a.Push(ctx)
		case "status":
			_ = a.Status(ctx)
		case "profile", "me":
			_ = a.Profile(ctx)

		case "notifications":
			mode := ""
			if len(args) > 0 {
				mode = args[0]
			}
			_ = a.Notifications(ctx, mode)

		case "l", "list", "ls":
			if len(args) == 0 {
				printlnFn("Usage: list <clients|products|orders> [search]")
				continue
			}
			kind, err := parseKind(args[0])
			if err != nil {
				printlnFn(err)
				continue
			}
			_ = a.List(ctx, kind, strings.Join(args[1:], " "))

		case "add", "new":
			if len(args) != 1 {
				printlnFn("Usage: add <clients|products|orders>")
				continue
			}
			kind, err := parseKind(args[0])
			if err != nil {
				printlnFn(err)
				continue
			}
			_ = a.Add(ctx, kind)

		case "edit", "delete", "rm":
			if len(args) != 2 {
				printlnFn(fmt.Sprintf("Usage: %s <kind> <id>", cmd))
				continue
			}
			kind, err := parseKind(args[0])
			if err != nil {
				printlnFn(err)
				continue
			}
			id, err := models.ParseID(args[1])
			if err != nil {
				printlnFn("Invalid id:", args[1])
				continue
			}
			if cmd == "edit" {
				_ = a.Edit(ctx, kind, id)
			} else {
				_ = a.Delete(ctx, kind, id)
			}

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd, "(type 'help')")
		}
	}
}
