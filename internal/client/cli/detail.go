package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/briefly/internal/client/client"
	"github.com/dmitrijs2005/briefly/internal/client/services"
)

// detail returns the open summary's controller, printing a hint when no
// summary is open.
func (a *App) detail() *services.DetailController {
	if !a.signedIn() {
		return nil
	}
	d := a.collection.Detail()
	if d == nil {
		fmt.Fprintln(a.out, "No summary is open. Use open <#|id> first.")
	}
	return d
}

// Open shows a summary from the current list.
func (a *App) Open(ctx context.Context, ref string) error {
	if !a.signedIn() {
		return nil
	}
	s, err := a.resolve(ref)
	if err != nil {
		return err
	}
	d, err := a.collection.SelectForDetail(s)
	if err != nil {
		return err
	}
	printDetail(a.out, d.Snapshot())
	return nil
}

// Show prints the open summary again.
func (a *App) Show(ctx context.Context) error {
	d := a.detail()
	if d == nil {
		return nil
	}
	printDetail(a.out, d.Snapshot())
	return nil
}

// Back closes the summary and reloads the list.
func (a *App) Back(ctx context.Context) error {
	if !a.signedIn() {
		return nil
	}
	if err := a.collection.ReturnToList(ctx); err != nil {
		return err
	}
	return a.List(ctx)
}

// Copy puts the summary output on the clipboard.
func (a *App) Copy(ctx context.Context) error {
	d := a.detail()
	if d == nil {
		return nil
	}
	ok, err := d.CopyOutputToClipboard()
	switch {
	case err != nil:
		if msg := d.Snapshot().LastError; msg != "" {
			return client.Validation(msg)
		}
		return err
	case !ok:
		fmt.Fprintln(a.out, "Nothing to copy.")
	default:
		fmt.Fprintln(a.out, "Copied to clipboard.")
	}
	return nil
}

// Download fetches the file the summary was made from.
func (a *App) Download(ctx context.Context) error {
	d := a.detail()
	if d == nil {
		return nil
	}
	fmt.Fprintln(a.out, "Downloading...")
	location, err := d.DownloadInputFile(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Saved to", location)
	return nil
}

// Regenerate asks for feedback and requests a new version of the summary.
func (a *App) Regenerate(ctx context.Context) error {
	d := a.detail()
	if d == nil {
		return nil
	}
	feedback, err := GetMultiline(a.reader, "What should change?", a.out)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Regenerating...")
	if err := a.collection.RequestRegenerate(ctx, feedback); err != nil {
		return err
	}
	if d := a.collection.Detail(); d != nil {
		printDetail(a.out, d.Snapshot())
	}
	return nil
}
