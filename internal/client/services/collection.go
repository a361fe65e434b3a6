package services

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrijs2005/briefly/internal/client/client"
	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/logging"
)

// CollectionController owns the list of summaries and every transition
// around it: loading, filtering, deleting, sharing, creating and opening a
// summary in a DetailController.
//
// Overlapping loads are ordered by a clock: each load takes a tick, and a
// result is applied only if its tick is still the latest issued for its
// list kind and that kind is still active. Deletions completed while a
// load is in flight are remembered with the clock value at completion so
// the older load cannot bring the item back.
type CollectionController struct {
	client    client.Client
	session   SessionProvider
	clipboard Clipboard
	sink      DownloadSink
	log       logging.Logger

	mu         sync.Mutex
	view       models.CollectionView
	clock      uint64
	latest     map[models.ListKind]uint64
	inflight   int
	tombstones map[string]uint64
	detail     *DetailController
	closed     bool

	observers observers[models.CollectionView]
}

func NewCollectionController(c client.Client, session SessionProvider, clipboard Clipboard, sink DownloadSink, log logging.Logger) *CollectionController {
	return &CollectionController{
		client:     c,
		session:    session,
		clipboard:  clipboard,
		sink:       sink,
		log:        log.With("component", "collection"),
		view:       models.CollectionView{ActiveList: models.ListOwned, ActiveCategoryFilter: models.CategoryAll},
		latest:     make(map[models.ListKind]uint64),
		tombstones: make(map[string]uint64),
	}
}

// Snapshot returns a copy of the view.
func (c *CollectionController) Snapshot() models.CollectionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Clone()
}

// Visible returns the items passing the current filter and query.
func (c *CollectionController) Visible() []models.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.view.Visible()
}

// Detail returns the open detail controller, or nil on the list.
func (c *CollectionController) Detail() *DetailController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detail
}

// Subscribe registers fn to receive the view after every change.
func (c *CollectionController) Subscribe(fn func(models.CollectionView)) (cancel func()) {
	return c.observers.subscribe(fn)
}

// mutate applies fn under the lock and notifies observers. It reports
// false, without calling fn, once the controller is closed.
func (c *CollectionController) mutate(fn func(v *models.CollectionView)) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	fn(&c.view)
	snap := c.view.Clone()
	c.mu.Unlock()

	c.observers.notify(snap)
	return true
}

func (c *CollectionController) notifyLocked() func() {
	snap := c.view.Clone()
	return func() { c.observers.notify(snap) }
}

// authorized returns ctx carrying the bearer token and the signed-in
// user's id.
func (c *CollectionController) authorized(ctx context.Context) (context.Context, string, error) {
	s := c.session.Current()
	if !s.IsAuthenticated || s.UserID() == "" {
		return nil, "", ErrNotSignedIn
	}
	return client.WithAccessToken(ctx, s.Token), s.UserID(), nil
}

func (c *CollectionController) checkAuth(ctx context.Context, err error) {
	if errors.Is(err, client.ErrUnauthorized) {
		c.log.Info(ctx, "request unauthorized, signing out")
		c.session.Logout(ctx)
	}
}

// Seed installs items fetched elsewhere (the startup prefetch) as the
// owned list.
func (c *CollectionController) Seed(items []models.Summary) {
	c.mutate(func(v *models.CollectionView) {
		if v.ActiveList == models.ListOwned {
			v.Items = slices.Clone(items)
		}
	})
}

// LoadActiveList fetches the active list. When a newer load or a list
// switch overtakes it, its result is dropped and ErrSuperseded returned.
// A failed load keeps the previous items and sets LastError.
func (c *CollectionController) LoadActiveList(ctx context.Context) error {
	actx, userID, err := c.authorized(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	kind := c.view.ActiveList
	c.clock++
	tick := c.clock
	c.latest[kind] = tick
	c.inflight++
	c.view.IsLoading = true
	notify := c.notifyLocked()
	c.mu.Unlock()
	notify()

	var items []models.Summary
	switch kind {
	case models.ListShared:
		items, err = c.client.ListSharedSummaries(actx, userID)
	default:
		items, err = c.client.ListOwnedSummaries(actx, userID)
	}
	c.checkAuth(ctx, err)

	c.mu.Lock()
	c.inflight--
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.latest[kind] != tick || c.view.ActiveList != kind {
		if c.inflight == 0 {
			c.view.IsLoading = false
		}
		notify = c.notifyLocked()
		c.mu.Unlock()
		notify()
		c.log.Debug(ctx, "discarded stale list result", "list", kind, "tick", tick)
		return ErrSuperseded
	}

	c.view.IsLoading = false
	if err != nil {
		c.view.LastError = client.Message(err)
	} else {
		c.view.Items = c.withoutTombstones(items, tick)
		c.view.LastError = ""
	}
	notify = c.notifyLocked()
	c.mu.Unlock()
	notify()

	if err != nil {
		c.log.Warn(ctx, "list load failed", "list", kind, "error", err)
		return err
	}
	return nil
}

// withoutTombstones drops items deleted after the load with tick was
// issued and forgets tombstones no load can need anymore. Called with
// c.mu held.
func (c *CollectionController) withoutTombstones(items []models.Summary, tick uint64) []models.Summary {
	out := make([]models.Summary, 0, len(items))
	for _, s := range items {
		if at, ok := c.tombstones[s.ID]; ok && at >= tick {
			continue
		}
		out = append(out, s)
	}
	for id, at := range c.tombstones {
		if at < tick || c.inflight == 0 {
			delete(c.tombstones, id)
		}
	}
	return out
}

// SetCategoryFilter changes the category filter.
func (c *CollectionController) SetCategoryFilter(f models.Category) {
	c.mutate(func(v *models.CollectionView) { v.ActiveCategoryFilter = f })
}

// SetSearchQuery changes the search query.
func (c *CollectionController) SetSearchQuery(q string) {
	c.mutate(func(v *models.CollectionView) { v.SearchQuery = q })
}

// SwitchActiveList shows target, clearing the search query and loading
// it. Switching to the active list does nothing.
func (c *CollectionController) SwitchActiveList(ctx context.Context, target models.ListKind) error {
	changed := false
	if !c.mutate(func(v *models.CollectionView) {
		if v.ActiveList == target {
			return
		}
		v.ActiveList = target
		v.SearchQuery = ""
		changed = true
	}) {
		return ErrClosed
	}
	if !changed {
		return nil
	}
	return c.LoadActiveList(ctx)
}

// RequestDelete opens the delete confirmation for id.
func (c *CollectionController) RequestDelete(id string) {
	c.mutate(func(v *models.CollectionView) { v.PendingDelete = id })
}

// CancelDelete closes the delete confirmation.
func (c *CollectionController) CancelDelete() {
	c.mutate(func(v *models.CollectionView) { v.PendingDelete = "" })
}

// ConfirmDelete deletes the pending summary and, once the server agrees,
// removes it from the list. On failure the item and the confirmation stay.
// A summary the server no longer has counts as deleted.
func (c *CollectionController) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	id := c.view.PendingDelete
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if id == "" {
		return client.Validation("No summary selected for deletion.")
	}

	actx, _, err := c.authorized(ctx)
	if err != nil {
		return err
	}

	err = c.client.DeleteSummary(actx, id)
	if errors.Is(err, client.ErrNotFound) {
		c.log.Debug(ctx, "summary already gone", "id", id)
		err = nil
	}
	c.checkAuth(ctx, err)

	var closeDetail *DetailController
	if !c.mutate(func(v *models.CollectionView) {
		if err != nil {
			v.LastError = client.Message(err)
			return
		}
		v.Items = slices.DeleteFunc(slices.Clone(v.Items), func(s models.Summary) bool { return s.ID == id })
		if v.PendingDelete == id {
			v.PendingDelete = ""
		}
		if v.Selected != nil && v.Selected.ID == id {
			v.Selected = nil
			closeDetail, c.detail = c.detail, nil
		}
		if v.PendingShare != nil && v.PendingShare.ID == id {
			v.PendingShare = nil
			v.ShareError = ""
		}
		v.LastError = ""
		if c.inflight > 0 {
			c.tombstones[id] = c.clock
		}
	}) {
		return ErrClosed
	}
	if closeDetail != nil {
		closeDetail.Close()
	}

	if err != nil {
		c.log.Warn(ctx, "delete failed", "id", id, "error", err)
		return err
	}
	c.log.Info(ctx, "summary deleted", "id", id)
	return nil
}

// RequestShare opens the share dialog for s.
func (c *CollectionController) RequestShare(s models.Summary) {
	c.mutate(func(v *models.CollectionView) {
		v.PendingShare = &s
		v.ShareError = ""
	})
}

// CancelShare closes the share dialog.
func (c *CollectionController) CancelShare() {
	c.mutate(func(v *models.CollectionView) {
		v.PendingShare = nil
		v.ShareError = ""
	})
}

// ConfirmShare shares the pending summary with recipient and returns the
// server's confirmation. On failure the dialog stays open with ShareError
// set so the user can correct the recipient.
func (c *CollectionController) ConfirmShare(ctx context.Context, recipient string) (string, error) {
	recipient = strings.TrimSpace(recipient)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return "", ErrClosed
	}
	if c.view.PendingShare == nil {
		c.mu.Unlock()
		return "", client.Validation("No summary selected for sharing.")
	}
	target := *c.view.PendingShare
	if recipient == "" {
		err := client.Validation("Please enter a recipient.")
		c.view.ShareError = client.Message(err)
		notify := c.notifyLocked()
		c.mu.Unlock()
		notify()
		return "", err
	}
	c.view.ShareError = ""
	c.mu.Unlock()

	actx, _, err := c.authorized(ctx)
	if err != nil {
		return "", err
	}

	msg, err := c.client.ShareSummary(actx, target.ID, recipient)
	c.checkAuth(ctx, err)

	if !c.mutate(func(v *models.CollectionView) {
		if v.PendingShare == nil || v.PendingShare.ID != target.ID {
			return
		}
		if err != nil {
			v.ShareError = client.Message(err)
			return
		}
		v.PendingShare = nil
		v.ShareError = ""
	}) {
		return "", ErrClosed
	}

	if err != nil {
		c.log.Warn(ctx, "share failed", "id", target.ID, "error", err)
		return "", err
	}
	c.log.Info(ctx, "summary shared", "id", target.ID)
	return msg, nil
}

// SelectForDetail opens s in the detail view and returns its controller.
func (c *CollectionController) SelectForDetail(s models.Summary) (*DetailController, error) {
	d := newDetailController(c.client, c.session, c.clipboard, c.sink, c.log, s, c.refreshSelected)

	var prev *DetailController
	if !c.mutate(func(v *models.CollectionView) {
		v.Selected = &s
		prev, c.detail = c.detail, d
	}) {
		d.Close()
		return nil, ErrClosed
	}
	if prev != nil {
		prev.Close()
	}
	return d, nil
}

// ReturnToList closes the detail view and the share dialog and reloads
// the active list.
func (c *CollectionController) ReturnToList(ctx context.Context) error {
	var prev *DetailController
	if !c.mutate(func(v *models.CollectionView) {
		v.Selected = nil
		v.PendingShare = nil
		v.ShareError = ""
		prev, c.detail = c.detail, nil
	}) {
		return ErrClosed
	}
	if prev != nil {
		prev.Close()
	}
	return c.LoadActiveList(ctx)
}

// RequestRegenerate submits feedback through the open detail view. On
// success the summary is fetched again and replaces the selection.
func (c *CollectionController) RequestRegenerate(ctx context.Context, feedback string) error {
	d := c.Detail()
	if d == nil {
		return client.Validation("No summary is open.")
	}
	return d.SubmitRegenerationFeedback(ctx, feedback)
}

// refreshSelected re-fetches summary id after a regeneration. Failures
// are logged only; the user stays on the current detail view.
func (c *CollectionController) refreshSelected(ctx context.Context, id string) {
	actx, _, err := c.authorized(ctx)
	if err != nil {
		return
	}

	fresh, err := c.client.FetchSummary(actx, id)
	if err != nil {
		c.checkAuth(ctx, err)
		c.log.Warn(ctx, "refresh after regeneration failed", "id", id, "error", err)
		return
	}

	var d *DetailController
	c.mutate(func(v *models.CollectionView) {
		if v.Selected != nil && v.Selected.ID == id {
			v.Selected = fresh
			d = c.detail
		}
		if i := slices.IndexFunc(v.Items, func(s models.Summary) bool { return s.ID == id }); i >= 0 {
			v.Items = slices.Clone(v.Items)
			v.Items[i] = *fresh
		}
	})
	if d != nil {
		d.setSummary(*fresh)
	}
}

// CreateFromText requests a summary of text and returns its id. The owned
// list is reloaded when it is showing.
func (c *CollectionController) CreateFromText(ctx context.Context, typ models.SummaryType, text string) (string, error) {
	if _, err := models.ParseSummaryType(string(typ)); err != nil {
		return "", client.Validation("Please choose a summary type.")
	}
	if strings.TrimSpace(text) == "" {
		return "", client.Validation("Please enter some text to summarize.")
	}

	actx, userID, err := c.authorized(ctx)
	if err != nil {
		return "", err
	}

	res, err := c.client.CreateSummaryFromText(actx, models.TextSummaryRequest{UserID: userID, Type: typ, Text: text})
	return c.created(ctx, res, err)
}

// CreateFromFile uploads content as fileName and requests its summary.
func (c *CollectionController) CreateFromFile(ctx context.Context, typ models.SummaryType, fileName string, content io.Reader) (string, error) {
	if _, err := models.ParseSummaryType(string(typ)); err != nil {
		return "", client.Validation("Please choose a summary type.")
	}
	if fileName == "" || content == nil {
		return "", client.Validation("Please choose a file to upload.")
	}

	actx, userID, err := c.authorized(ctx)
	if err != nil {
		return "", err
	}

	res, err := c.client.CreateSummaryFromFile(actx, models.FileSummaryRequest{
		UserID:      userID,
		Type:        typ,
		FileName:    filepath.Base(fileName),
		ContentType: mime.TypeByExtension(filepath.Ext(fileName)),
		Content:     content,
	})
	return c.created(ctx, res, err)
}

func (c *CollectionController) created(ctx context.Context, res *models.CreatedSummary, err error) (string, error) {
	if err == nil && (res == nil || res.SummaryID == "") {
		c.log.Warn(ctx, "creation response without summary id", "response", res)
		err = client.Validation("The server did not return the new summary.")
	}
	if err != nil {
		c.checkAuth(ctx, err)
		c.mutate(func(v *models.CollectionView) { v.LastError = client.Message(err) })
		return "", err
	}

	c.log.Info(ctx, "summary created", "id", res.SummaryID)
	if c.Snapshot().ActiveList == models.ListOwned {
		if err := c.LoadActiveList(ctx); err != nil && !errors.Is(err, ErrSuperseded) {
			c.log.Warn(ctx, "reload after creation failed", "error", err)
		}
	}
	return res.SummaryID, nil
}

// Close disposes the controller. Results of calls still in flight are
// dropped and observers are no longer notified.
func (c *CollectionController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	d := c.detail
	c.detail = nil
	c.mu.Unlock()

	if d != nil {
		d.Close()
	}
	c.observers.clear()
}
