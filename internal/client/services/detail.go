package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/briefly/internal/client/client"
	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/dmitrijs2005/briefly/internal/logging"
)

// CopiedWindow is how long Copied stays set after a successful copy.
const CopiedWindow = 2 * time.Second

type stopper interface {
	Stop() bool
}

func realAfterFunc(d time.Duration, f func()) stopper {
	return time.AfterFunc(d, f)
}

// DetailController owns the view of one open summary.
type DetailController struct {
	client        client.Client
	session       SessionProvider
	clipboard     Clipboard
	sink          DownloadSink
	log           logging.Logger
	onRegenerated func(ctx context.Context, id string)
	afterFunc     func(time.Duration, func()) stopper

	mu        sync.Mutex
	view      models.DetailView
	copyTimer stopper
	copyGen   uint64
	closed    bool

	observers observers[models.DetailView]
}

// newDetailController is used by CollectionController.SelectForDetail;
// onRegenerated runs after a successful regeneration.
func newDetailController(c client.Client, session SessionProvider, clipboard Clipboard, sink DownloadSink, log logging.Logger,
	s models.Summary, onRegenerated func(context.Context, string)) *DetailController {
	return &DetailController{
		client:        c,
		session:       session,
		clipboard:     clipboard,
		sink:          sink,
		log:           log.With("component", "detail", "summary_id", s.ID),
		onRegenerated: onRegenerated,
		afterFunc:     realAfterFunc,
		view:          models.DetailView{Summary: s},
	}
}

// Snapshot returns a copy of the view.
func (d *DetailController) Snapshot() models.DetailView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.view
}

// Subscribe registers fn to receive the view after every change.
func (d *DetailController) Subscribe(fn func(models.DetailView)) (cancel func()) {
	return d.observers.subscribe(fn)
}

func (d *DetailController) mutate(fn func(v *models.DetailView)) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	fn(&d.view)
	snap := d.view
	d.mu.Unlock()

	d.observers.notify(snap)
	return true
}

func (d *DetailController) authorized(ctx context.Context) (context.Context, error) {
	s := d.session.Current()
	if !s.IsAuthenticated {
		return nil, ErrNotSignedIn
	}
	return client.WithAccessToken(ctx, s.Token), nil
}

func (d *DetailController) checkAuth(ctx context.Context, err error) {
	if errors.Is(err, client.ErrUnauthorized) {
		d.log.Info(ctx, "request unauthorized, signing out")
		d.session.Logout(ctx)
	}
}

func (d *DetailController) setSummary(s models.Summary) {
	d.mutate(func(v *models.DetailView) { v.Summary = s })
}

// SetFeedback stores the regeneration feedback draft.
func (d *DetailController) SetFeedback(text string) {
	d.mutate(func(v *models.DetailView) { v.Feedback = text })
}

// CopyOutputToClipboard copies the summary output and sets Copied for
// CopiedWindow. It reports false without error when there is nothing to
// copy.
func (d *DetailController) CopyOutputToClipboard() (bool, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false, ErrClosed
	}
	out := d.view.Summary.OutputData
	d.mu.Unlock()

	if out == "" {
		return false, nil
	}

	if err := d.clipboard.WriteAll(out); err != nil {
		d.mutate(func(v *models.DetailView) { v.LastError = "Could not copy to the clipboard." })
		return false, err
	}

	if !d.mutate(func(v *models.DetailView) {
		v.Copied = true
		d.copyGen++
		gen := d.copyGen
		if d.copyTimer != nil {
			d.copyTimer.Stop()
		}
		d.copyTimer = d.afterFunc(CopiedWindow, func() { d.expireCopied(gen) })
	}) {
		return false, ErrClosed
	}
	return true, nil
}

func (d *DetailController) expireCopied(gen uint64) {
	d.mutate(func(v *models.DetailView) {
		if gen == d.copyGen {
			v.Copied = false
			d.copyTimer = nil
		}
	})
}

// DownloadInputFile fetches the file the summary was built from and hands
// it to the download sink. It returns where the file ended up.
func (d *DetailController) DownloadInputFile(ctx context.Context) (string, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return "", ErrClosed
	}
	s := d.view.Summary
	d.mu.Unlock()

	if s.UploadType != models.UploadTypeUpload {
		return "", client.Validation("This summary was not created from a file.")
	}
	if s.FileID == "" {
		return "", client.Validation("No file is attached to this summary.")
	}

	actx, err := d.authorized(ctx)
	if err != nil {
		return "", err
	}

	d.mutate(func(v *models.DetailView) {
		v.IsDownloading = true
		v.LastError = ""
	})

	var location string
	blob, err := d.client.DownloadFile(actx, s.FileID)
	if err == nil {
		name := blob.Name
		if name == "" {
			name = s.FileName
		}
		location, err = d.sink.Save(ctx, name, blob.ContentType, blob.Data)
	}
	d.checkAuth(ctx, err)

	if !d.mutate(func(v *models.DetailView) {
		v.IsDownloading = false
		if err != nil {
			v.LastError = client.Message(err)
		}
	}) {
		return "", ErrClosed
	}

	if err != nil {
		d.log.Warn(ctx, "download failed", "file_id", s.FileID, "error", err)
		return "", err
	}
	d.log.Info(ctx, "input file downloaded", "file_id", s.FileID, "location", location)
	return location, nil
}

// SubmitRegenerationFeedback asks the server to regenerate the summary
// using feedback. On success the feedback is cleared and the parent
// collection refreshes the summary; on failure the feedback is kept for
// another attempt.
func (d *DetailController) SubmitRegenerationFeedback(ctx context.Context, feedback string) error {
	trimmed := strings.TrimSpace(feedback)

	var id string
	if !d.mutate(func(v *models.DetailView) {
		v.Feedback = feedback
		id = v.Summary.ID
		if trimmed == "" {
			v.LastError = "Please describe what should change."
			return
		}
		v.IsRegenerating = true
		v.LastError = ""
	}) {
		return ErrClosed
	}
	if trimmed == "" {
		return client.Validation("Please describe what should change.")
	}

	actx, err := d.authorized(ctx)
	if err == nil {
		err = d.client.RegenerateSummary(actx, id, trimmed)
		d.checkAuth(ctx, err)
	}

	if !d.mutate(func(v *models.DetailView) {
		v.IsRegenerating = false
		if err != nil {
			v.LastError = client.Message(err)
			return
		}
		v.Feedback = ""
	}) {
		return ErrClosed
	}

	if err != nil {
		d.log.Warn(ctx, "regeneration failed", "error", err)
		return err
	}
	d.log.Info(ctx, "regeneration requested")
	if d.onRegenerated != nil {
		d.onRegenerated(ctx, id)
	}
	return nil
}

// Close disposes the controller and stops the copied-flag timer.
func (d *DetailController) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	if d.copyTimer != nil {
		d.copyTimer.Stop()
		d.copyTimer = nil
	}
	d.mu.Unlock()

	d.observers.clear()
}
