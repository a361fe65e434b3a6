package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/briefly/internal/client/client"
	"github.com/dmitrijs2005/briefly/internal/client/models"
)

// List prints the visible part of the active list.
func (a *App) List(ctx context.Context) error {
	if !a.signedIn() {
		return nil
	}
	v := a.collection.Snapshot()
	printSummaries(a.out, v)
	return nil
}

// SwitchList shows the owned or the shared list.
func (a *App) SwitchList(ctx context.Context, kind models.ListKind) error {
	if !a.signedIn() {
		return nil
	}
	if err := a.collection.SwitchActiveList(ctx, kind); err != nil {
		return err
	}
	return a.List(ctx)
}

// Filter sets the category filter.
func (a *App) Filter(ctx context.Context, category string) error {
	if !a.signedIn() {
		return nil
	}
	if category == "" {
		category = string(models.CategoryAll)
	}
	c, err := models.ParseCategory(category)
	if err != nil {
		return client.Validation(err.Error())
	}
	a.collection.SetCategoryFilter(c)
	return a.List(ctx)
}

// Search sets the search query; an empty query shows everything.
func (a *App) Search(ctx context.Context, query string) error {
	if !a.signedIn() {
		return nil
	}
	a.collection.SetSearchQuery(query)
	return a.List(ctx)
}

// Refresh reloads the active list.
func (a *App) Refresh(ctx context.Context) error {
	if !a.signedIn() {
		return nil
	}
	if err := a.collection.LoadActiveList(ctx); err != nil {
		return err
	}
	return a.List(ctx)
}

func (a *App) askType() (models.SummaryType, error) {
	answer, err := GetSimpleText(a.reader, "Summary type (code, documentation, research)", a.out)
	if err != nil {
		return "", err
	}
	t, err := models.ParseSummaryType(answer)
	if err != nil {
		return "", client.Validation("Please choose a summary type.")
	}
	return t, nil
}

// Create summarizes pasted text.
func (a *App) Create(ctx context.Context) error {
	if !a.signedIn() {
		return nil
	}
	typ, err := a.askType()
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Paste the text to summarize", a.out)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Summarizing...")
	id, err := a.collection.CreateFromText(ctx, typ, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Summary %s created.\n", id)
	return nil
}

// Upload summarizes a local file.
func (a *App) Upload(ctx context.Context) error {
	if !a.signedIn() {
		return nil
	}
	typ, err := a.askType()
	if err != nil {
		return err
	}
	path, err := GetSimpleText(a.reader, "Enter file path", a.out)
	if err != nil {
		return err
	}
	if path == "" {
		return client.Validation("Please choose a file to upload.")
	}

	f, err := os.Open(path)
	if err != nil {
		return client.Validation(fmt.Sprintf("Cannot open %s: %v", path, err))
	}
	defer f.Close()

	fmt.Fprintln(a.out, "Uploading...")
	id, err := a.collection.CreateFromFile(ctx, typ, path, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Summary %s created.\n", id)
	return nil
}

// resolve finds a summary by its 1-based position in the visible list or
// by id.
func (a *App) resolve(ref string) (models.Summary, error) {
	v := a.collection.Snapshot()
	visible := v.Visible()
	if n, err := strconv.Atoi(strings.TrimPrefix(ref, "#")); err == nil && n >= 1 && n <= len(visible) {
		return visible[n-1], nil
	}
	if i := slices.IndexFunc(v.Items, func(s models.Summary) bool { return s.ID == ref }); i >= 0 {
		return v.Items[i], nil
	}
	return models.Summary{}, client.Validation(fmt.Sprintf("No summary %q in the current list.", ref))
}

// Delete asks for confirmation and deletes a summary.
func (a *App) Delete(ctx context.Context, ref string) error {
	if !a.signedIn() {
		return nil
	}
	if a.collection.Snapshot().ActiveList != models.ListOwned {
		return client.Validation("Only your own summaries can be deleted.")
	}
	s, err := a.resolve(ref)
	if err != nil {
		return err
	}

	a.collection.RequestDelete(s.ID)
	ok, err := Confirm(a.reader, fmt.Sprintf("Delete %q?", s.Title), a.out)
	if err != nil || !ok {
		a.collection.CancelDelete()
		return err
	}
	if err := a.collection.ConfirmDelete(ctx); err != nil {
		a.collection.CancelDelete()
		return err
	}
	fmt.Fprintln(a.out, "Deleted.")
	return nil
}

// Share asks for a recipient until the share succeeds or the user gives up.
func (a *App) Share(ctx context.Context, ref string) error {
	if !a.signedIn() {
		return nil
	}
	s, err := a.resolve(ref)
	if err != nil {
		return err
	}

	a.collection.RequestShare(s)
	for {
		recipient, err := GetSimpleText(a.reader, fmt.Sprintf("Share %q with (email)", s.Title), a.out)
		if err != nil {
			a.collection.CancelShare()
			return err
		}
		msg, err := a.collection.ConfirmShare(ctx, recipient)
		if err == nil {
			fmt.Fprintln(a.out, msg)
			return nil
		}
		if !errors.Is(err, client.ErrValidation) && !errors.Is(err, client.ErrNotFound) {
			a.collection.CancelShare()
			return err
		}

		fmt.Fprintln(a.out, a.collection.Snapshot().ShareError)
		again, err := Confirm(a.reader, "Try another recipient?", a.out)
		if err != nil || !again {
			a.collection.CancelShare()
			return err
		}
	}
}
