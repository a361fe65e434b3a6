package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/briefly/internal/client/client"
	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/client/services"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	List(ctx context.Context) error
	SwitchList(ctx context.Context, kind models.ListKind) error
	Filter(ctx context.Context, category string) error
	Search(ctx context.Context, query string) error
	Refresh(ctx context.Context) error
	Create(ctx context.Context) error
	Upload(ctx context.Context) error
	Delete(ctx context.Context, ref string) error
	Share(ctx context.Context, ref string) error

	Open(ctx context.Context, ref string) error
	Back(ctx context.Context) error
	Show(ctx context.Context) error
	Copy(ctx context.Context) error
	Download(ctx context.Context) error
	Regenerate(ctx context.Context) error
}

const (
	helpSignedOut = "Available commands: register, login, exit"
	helpSignedIn  = `Available commands:
  (l)ist [owned|shared]  show the active list or switch to another
  owned | shared         switch list
  filter <category>      all, code, documentation, research
  search [text]          filter by title or content; no text clears
  refresh                reload the active list
  create | upload        new summary from text or from a file
  delete <#|id>          delete one of your summaries
  share <#|id>           share a summary with another user
  open <#|id>            open a summary
  show | back            inside a summary: print it again, return to the list
  copy | download        inside a summary: copy the output, fetch the input file
  regenerate             inside a summary: ask for a new version
  logout | exit`
)

// runREPL starts a simple read–eval–print loop for the Briefly CLI.
//
// It reads a line from reader, parses the first token as the command and
// dispatches to methods on a; the rest of the line is the argument. Errors
// returned by handlers are printed and the loop continues. The loop exits
// on EOF or when the user types "exit" or "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		fmt.Fprintf(w, "briefly %s> ", statusFn())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			fmt.Fprintln(w)
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		cmd, arg, _ := strings.Cut(line, " ")
		arg = strings.TrimSpace(arg)
		name := strings.ToLower(cmd)

		var cmdErr error
		switch name {
		case "help", "?":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpSignedIn)
			} else {
				fmt.Fprintln(w, helpSignedOut)
			}

		case "register":
			cmdErr = a.Register(ctx)
		case "login":
			cmdErr = a.Login(ctx)
		case "logout":
			cmdErr = a.Logout(ctx)

		case "l", "list":
			if arg == "" {
				cmdErr = a.List(ctx)
				break
			}
			kind, err := models.ParseListKind(arg)
			if err != nil {
				cmdErr = client.Validation(err.Error())
				break
			}
			cmdErr = a.SwitchList(ctx, kind)
		case "owned":
			cmdErr = a.SwitchList(ctx, models.ListOwned)
		case "shared":
			cmdErr = a.SwitchList(ctx, models.ListShared)
		case "filter":
			cmdErr = a.Filter(ctx, arg)
		case "search":
			cmdErr = a.Search(ctx, arg)
		case "refresh":
			cmdErr = a.Refresh(ctx)
		case "create":
			cmdErr = a.Create(ctx)
		case "upload":
			cmdErr = a.Upload(ctx)

		case "delete", "share", "open":
			if arg == "" {
				fmt.Fprintf(w, "Usage: %s <#|id>\n", name)
				continue
			}
			switch name {
			case "delete":
				cmdErr = a.Delete(ctx, arg)
			case "share":
				cmdErr = a.Share(ctx, arg)
			default:
				cmdErr = a.Open(ctx, arg)
			}

		case "back":
			cmdErr = a.Back(ctx)
		case "show":
			cmdErr = a.Show(ctx)
		case "copy":
			cmdErr = a.Copy(ctx)
		case "download":
			cmdErr = a.Download(ctx)
		case "regenerate":
			cmdErr = a.Regenerate(ctx)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}

		if msg := describe(cmdErr); msg != "" {
			fmt.Fprintln(w, "Error:", msg)
		}
	}
}

// describe turns a command error into the line shown to the user. A load
// overtaken by a newer one is not an error from the user's point of view.
func describe(err error) string {
	switch {
	case err == nil, errors.Is(err, services.ErrSuperseded):
		return ""
	case errors.Is(err, services.ErrNotSignedIn):
		return "Please log in first."
	case errors.Is(err, client.ErrUnauthorized):
		return "Your session has expired. Please log in again."
	}
	return client.Message(err)
}
