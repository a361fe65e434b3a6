package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/briefly/internal/client/client"
	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCollection(fc *fakeClient) (*CollectionController, *fakeSession) {
	sess := signedInSession()
	return NewCollectionController(fc, sess, &fakeClipboard{}, &fakeSink{}, discard()), sess
}

// scriptedLists hands out one pending response per call so tests decide
// the order in which overlapping loads complete.
type scriptedLists struct {
	mu      sync.Mutex
	calls   []*pendingList
	entered chan int
}

type pendingList struct {
	items []models.Summary
	err   error
	done  chan struct{}
}

func newScriptedLists() *scriptedLists {
	return &scriptedLists{entered: make(chan int, 16)}
}

func (s *scriptedLists) fn(ctx context.Context, userID string) ([]models.Summary, error) {
	p := &pendingList{done: make(chan struct{})}
	s.mu.Lock()
	s.calls = append(s.calls, p)
	n := len(s.calls) - 1
	s.mu.Unlock()

	s.entered <- n
	<-p.done
	return p.items, p.err
}

func (s *scriptedLists) waitEntered(t *testing.T) int {
	t.Helper()
	select {
	case n := <-s.entered:
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("list call never started")
		return -1
	}
}

func (s *scriptedLists) resolve(n int, items []models.Summary, err error) {
	s.mu.Lock()
	p := s.calls[n]
	s.mu.Unlock()
	p.items, p.err = items, err
	close(p.done)
}

func loadAsync(ctx context.Context, c *CollectionController) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- c.LoadActiveList(ctx) }()
	return ch
}

func TestLoadActiveList_Owned(t *testing.T) {
	fc := &fakeClient{ListOwnedFn: func(ctx context.Context, userID string) ([]models.Summary, error) {
		assert.Equal(t, "u1", userID)
		return summaries("1", "2"), nil
	}}
	c, _ := newCollection(fc)

	require.NoError(t, c.LoadActiveList(context.Background()))

	v := c.Snapshot()
	assert.Equal(t, []string{"1", "2"}, itemIDs(v.Items))
	assert.False(t, v.IsLoading)
	assert.Empty(t, v.LastError)
	assert.Equal(t, "tok-1", fc.LastToken())
}

func TestLoadActiveList_NotSignedIn(t *testing.T) {
	fc := &fakeClient{}
	c := NewCollectionController(fc, &fakeSession{}, &fakeClipboard{}, &fakeSink{}, discard())

	require.ErrorIs(t, c.LoadActiveList(context.Background()), ErrNotSignedIn)
	assert.Zero(t, fc.Calls("ListOwned"))
}

func TestLoadActiveList_StaleResponseDiscarded(t *testing.T) {
	lists := newScriptedLists()
	c, _ := newCollection(&fakeClient{ListOwnedFn: lists.fn})
	ctx := context.Background()

	first := loadAsync(ctx, c)
	n1 := lists.waitEntered(t)
	second := loadAsync(ctx, c)
	n2 := lists.waitEntered(t)

	lists.resolve(n2, summaries("new"), nil)
	require.NoError(t, <-second)
	assert.Equal(t, []string{"new"}, itemIDs(c.Snapshot().Items))

	lists.resolve(n1, summaries("old"), nil)
	require.ErrorIs(t, <-first, ErrSuperseded)

	v := c.Snapshot()
	assert.Equal(t, []string{"new"}, itemIDs(v.Items))
	assert.False(t, v.IsLoading)
}

func TestLoadActiveList_StaleFirstStillLoadingUntilLatestArrives(t *testing.T) {
	lists := newScriptedLists()
	c, _ := newCollection(&fakeClient{ListOwnedFn: lists.fn})
	ctx := context.Background()

	first := loadAsync(ctx, c)
	n1 := lists.waitEntered(t)
	second := loadAsync(ctx, c)
	n2 := lists.waitEntered(t)

	lists.resolve(n1, summaries("old"), nil)
	require.ErrorIs(t, <-first, ErrSuperseded)
	assert.Empty(t, c.Snapshot().Items)
	assert.True(t, c.Snapshot().IsLoading)

	lists.resolve(n2, summaries("new"), nil)
	require.NoError(t, <-second)
	assert.Equal(t, []string{"new"}, itemIDs(c.Snapshot().Items))
}

func TestLoadActiveList_FailureKeepsItems(t *testing.T) {
	fail := false
	fc := &fakeClient{ListOwnedFn: func(context.Context, string) ([]models.Summary, error) {
		if fail {
			return nil, client.ErrMalformedResponse
		}
		return summaries("1"), nil
	}}
	c, sess := newCollection(fc)
	ctx := context.Background()
	require.NoError(t, c.LoadActiveList(ctx))

	fail = true
	require.ErrorIs(t, c.LoadActiveList(ctx), client.ErrMalformedResponse)

	v := c.Snapshot()
	assert.Equal(t, []string{"1"}, itemIDs(v.Items))
	assert.Equal(t, "The server sent an unexpected response.", v.LastError)
	assert.Zero(t, sess.Logouts())
}

func TestLoadActiveList_UnauthorizedLogsOut(t *testing.T) {
	fc := &fakeClient{ListOwnedFn: func(context.Context, string) ([]models.Summary, error) {
		return nil, &client.APIError{Kind: client.ErrUnauthorized, StatusCode: 401, Detail: "Invalid token"}
	}}
	c, sess := newCollection(fc)

	require.ErrorIs(t, c.LoadActiveList(context.Background()), client.ErrUnauthorized)
	assert.Equal(t, 1, sess.Logouts())
}

func TestSwitchActiveList(t *testing.T) {
	fc := &fakeClient{
		ListOwnedFn:  func(context.Context, string) ([]models.Summary, error) { return summaries("o1"), nil },
		ListSharedFn: func(context.Context, string) ([]models.Summary, error) { return summaries("s1", "s2"), nil },
	}
	c, _ := newCollection(fc)
	ctx := context.Background()

	require.NoError(t, c.SwitchActiveList(ctx, models.ListOwned))
	assert.Zero(t, fc.Calls("ListOwned"), "switching to the active list is a no-op")

	c.SetSearchQuery("s")
	c.SetCategoryFilter(models.CategoryCode)
	require.NoError(t, c.SwitchActiveList(ctx, models.ListShared))

	v := c.Snapshot()
	assert.Equal(t, models.ListShared, v.ActiveList)
	assert.Empty(t, v.SearchQuery)
	assert.Equal(t, models.CategoryCode, v.ActiveCategoryFilter, "category survives a switch")
	assert.Equal(t, []string{"s1", "s2"}, itemIDs(v.Items))
}

func TestSwitchActiveList_DiscardsInFlightLoadOfOtherKind(t *testing.T) {
	owned := newScriptedLists()
	fc := &fakeClient{
		ListOwnedFn:  owned.fn,
		ListSharedFn: func(context.Context, string) ([]models.Summary, error) { return summaries("s1"), nil },
	}
	c, _ := newCollection(fc)
	ctx := context.Background()

	pending := loadAsync(ctx, c)
	n := owned.waitEntered(t)

	require.NoError(t, c.SwitchActiveList(ctx, models.ListShared))
	owned.resolve(n, summaries("o1"), nil)
	require.ErrorIs(t, <-pending, ErrSuperseded)

	assert.Equal(t, []string{"s1"}, itemIDs(c.Snapshot().Items))
}

func TestFilterScenario(t *testing.T) {
	c, _ := newCollection(&fakeClient{})
	c.Seed([]models.Summary{
		{ID: "1", Title: "A", Type: models.SummaryTypeCode},
		{ID: "2", Title: "B", Type: models.SummaryTypeResearch},
	})

	c.SetCategoryFilter(models.CategoryResearch)
	assert.Equal(t, []string{"2"}, itemIDs(c.Visible()))

	c.SetSearchQuery("A")
	assert.Empty(t, c.Visible())

	c.SetCategoryFilter(models.CategoryAll)
	assert.Equal(t, []string{"1"}, itemIDs(c.Visible()))
}

func TestConfirmDelete_RemovesOnlyThatItem(t *testing.T) {
	var deleted string
	fc := &fakeClient{DeleteFn: func(ctx context.Context, id string) error { deleted = id; return nil }}
	c, _ := newCollection(fc)
	c.Seed(summaries("1", "2", "3", "4"))
	before := c.Snapshot().Items

	c.RequestDelete("2")
	assert.Equal(t, "2", c.Snapshot().PendingDelete)
	require.NoError(t, c.ConfirmDelete(context.Background()))

	v := c.Snapshot()
	assert.Equal(t, "2", deleted)
	assert.Empty(t, v.PendingDelete)
	assert.Equal(t, []models.Summary{before[0], before[2], before[3]}, v.Items)
}

func TestConfirmDelete_FailureKeepsItem(t *testing.T) {
	fc := &fakeClient{DeleteFn: func(context.Context, string) error {
		return &client.APIError{Kind: client.ErrServer, StatusCode: 500, Detail: "Summary not found"}
	}}
	c, _ := newCollection(fc)
	c.Seed(summaries("1", "2"))

	c.RequestDelete("2")
	require.ErrorIs(t, c.ConfirmDelete(context.Background()), client.ErrServer)

	v := c.Snapshot()
	assert.Equal(t, []string{"1", "2"}, itemIDs(v.Items))
	assert.Equal(t, "Summary not found", v.LastError)
	assert.Equal(t, "2", v.PendingDelete, "confirmation stays open for a retry")
}

func TestConfirmDelete_NotFoundCountsAsDeleted(t *testing.T) {
	fc := &fakeClient{DeleteFn: func(context.Context, string) error { return client.ErrNotFound }}
	c, _ := newCollection(fc)
	c.Seed(summaries("1", "2"))

	c.RequestDelete("1")
	require.NoError(t, c.ConfirmDelete(context.Background()))
	assert.Equal(t, []string{"2"}, itemIDs(c.Snapshot().Items))
}

func TestConfirmDelete_NothingPending(t *testing.T) {
	fc := &fakeClient{}
	c, _ := newCollection(fc)

	require.ErrorIs(t, c.ConfirmDelete(context.Background()), client.ErrValidation)
	assert.Zero(t, fc.Calls("Delete"))
}

func TestCancelDelete(t *testing.T) {
	fc := &fakeClient{}
	c, _ := newCollection(fc)
	c.Seed(summaries("1"))

	c.RequestDelete("1")
	c.CancelDelete()
	assert.Empty(t, c.Snapshot().PendingDelete)
	assert.Equal(t, []string{"1"}, itemIDs(c.Snapshot().Items))
	assert.Zero(t, fc.Calls("Delete"))
}

func TestConfirmDelete_UnauthorizedLogsOut(t *testing.T) {
	fc := &fakeClient{DeleteFn: func(context.Context, string) error { return client.ErrUnauthorized }}
	c, sess := newCollection(fc)
	c.Seed(summaries("1"))

	c.RequestDelete("1")
	require.ErrorIs(t, c.ConfirmDelete(context.Background()), client.ErrUnauthorized)
	assert.Equal(t, 1, sess.Logouts())
	assert.Equal(t, []string{"1"}, itemIDs(c.Snapshot().Items))
}

func TestDeleteDuringRefresh_DoesNotResurrect(t *testing.T) {
	lists := newScriptedLists()
	fc := &fakeClient{ListOwnedFn: lists.fn}
	c, _ := newCollection(fc)
	c.Seed(summaries("1", "2", "3"))
	ctx := context.Background()

	pending := loadAsync(ctx, c)
	n := lists.waitEntered(t)

	c.RequestDelete("2")
	require.NoError(t, c.ConfirmDelete(ctx))
	assert.Equal(t, []string{"1", "3"}, itemIDs(c.Snapshot().Items))

	// The list was read by the server before the delete landed.
	lists.resolve(n, summaries("1", "2", "3"), nil)
	require.NoError(t, <-pending)
	assert.Equal(t, []string{"1", "3"}, itemIDs(c.Snapshot().Items))

	// A load issued after the delete trusts the server again.
	c.mu.Lock()
	assert.Empty(t, c.tombstones)
	c.mu.Unlock()
	next := loadAsync(ctx, c)
	n = lists.waitEntered(t)
	lists.resolve(n, summaries("1", "3", "5"), nil)
	require.NoError(t, <-next)
	assert.Equal(t, []string{"1", "3", "5"}, itemIDs(c.Snapshot().Items))
}

func TestShare_EmptyRecipientThenSuccess(t *testing.T) {
	var gotID, gotRecipient string
	fc := &fakeClient{ShareFn: func(ctx context.Context, id, recipient string) (string, error) {
		gotID, gotRecipient = id, recipient
		return "Summary shared successfully with " + recipient, nil
	}}
	c, _ := newCollection(fc)
	ctx := context.Background()

	c.RequestShare(models.Summary{ID: "5"})

	_, err := c.ConfirmShare(ctx, "  ")
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Zero(t, fc.Calls("Share"))
	v := c.Snapshot()
	require.NotNil(t, v.PendingShare)
	assert.Equal(t, "Please enter a recipient.", v.ShareError)

	msg, err := c.ConfirmShare(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Summary shared successfully with bob@example.com", msg)
	assert.Equal(t, "5", gotID)
	assert.Equal(t, "bob@example.com", gotRecipient)

	v = c.Snapshot()
	assert.Nil(t, v.PendingShare)
	assert.Empty(t, v.ShareError)
}

func TestShare_FailureKeepsDialogOpen(t *testing.T) {
	fc := &fakeClient{ShareFn: func(context.Context, string, string) (string, error) {
		return "", &client.APIError{Kind: client.ErrNotFound, StatusCode: 404, Detail: "The recipient must be a registered user of Briefly."}
	}}
	c, _ := newCollection(fc)

	c.RequestShare(models.Summary{ID: "5"})
	_, err := c.ConfirmShare(context.Background(), "ghost@example.com")
	require.ErrorIs(t, err, client.ErrNotFound)

	v := c.Snapshot()
	require.NotNil(t, v.PendingShare)
	assert.Equal(t, "5", v.PendingShare.ID)
	assert.Equal(t, "The recipient must be a registered user of Briefly.", v.ShareError)
	assert.Empty(t, v.LastError, "share errors stay in the dialog")

	c.CancelShare()
	assert.Nil(t, c.Snapshot().PendingShare)
	assert.Empty(t, c.Snapshot().ShareError)
}

func TestShare_NothingPending(t *testing.T) {
	c, _ := newCollection(&fakeClient{})
	_, err := c.ConfirmShare(context.Background(), "bob@example.com")
	require.ErrorIs(t, err, client.ErrValidation)
}

func TestDetailLifecycle(t *testing.T) {
	fc := &fakeClient{ListOwnedFn: func(context.Context, string) ([]models.Summary, error) { return summaries("1", "2"), nil }}
	c, _ := newCollection(fc)
	ctx := context.Background()
	c.Seed(summaries("1", "2"))

	d, err := c.SelectForDetail(c.Snapshot().Items[1])
	require.NoError(t, err)
	assert.Same(t, d, c.Detail())
	assert.Equal(t, "2", c.Snapshot().Selected.ID)

	c.RequestShare(*c.Snapshot().Selected)
	require.NoError(t, c.ReturnToList(ctx))

	v := c.Snapshot()
	assert.Nil(t, v.Selected)
	assert.Nil(t, v.PendingShare)
	assert.Nil(t, c.Detail())
	assert.Equal(t, 1, fc.Calls("ListOwned"), "returning refreshes the list")

	_, err = d.CopyOutputToClipboard()
	require.ErrorIs(t, err, ErrClosed, "the old detail controller is disposed")
}

func TestConfirmDelete_OfSelectedClosesDetail(t *testing.T) {
	c, _ := newCollection(&fakeClient{})
	c.Seed(summaries("1", "2"))

	d, err := c.SelectForDetail(c.Snapshot().Items[0])
	require.NoError(t, err)

	c.RequestDelete("1")
	require.NoError(t, c.ConfirmDelete(context.Background()))
	assert.Nil(t, c.Snapshot().Selected)
	assert.Nil(t, c.Detail())
	_, err = d.DownloadInputFile(context.Background())
	require.ErrorIs(t, err, ErrClosed)
}

func TestRequestRegenerate_RefreshesSelection(t *testing.T) {
	fresh := models.Summary{ID: "2", Title: "T2", Type: models.SummaryTypeCode, OutputData: "regenerated"}
	var feedbackSent string
	fc := &fakeClient{
		RegenerateFn: func(ctx context.Context, id, feedback string) error { feedbackSent = feedback; return nil },
		FetchFn:      func(context.Context, string) (*models.Summary, error) { s := fresh; return &s, nil },
	}
	c, _ := newCollection(fc)
	c.Seed(summaries("1", "2"))
	d, err := c.SelectForDetail(c.Snapshot().Items[1])
	require.NoError(t, err)

	require.NoError(t, c.RequestRegenerate(context.Background(), "  shorter please "))
	assert.Equal(t, "shorter please", feedbackSent)

	v := c.Snapshot()
	assert.Equal(t, "regenerated", v.Selected.OutputData)
	assert.Equal(t, "regenerated", v.Items[1].OutputData)
	assert.Equal(t, "regenerated", d.Snapshot().Summary.OutputData)
	assert.Empty(t, d.Snapshot().Feedback)
}

func TestRequestRegenerate_RefetchFailureStaysOnDetail(t *testing.T) {
	fc := &fakeClient{FetchFn: func(context.Context, string) (*models.Summary, error) { return nil, client.ErrUnavailable }}
	c, sess := newCollection(fc)
	c.Seed(summaries("1"))
	_, err := c.SelectForDetail(c.Snapshot().Items[0])
	require.NoError(t, err)

	require.NoError(t, c.RequestRegenerate(context.Background(), "more detail"))

	v := c.Snapshot()
	require.NotNil(t, v.Selected)
	assert.Equal(t, "T1", v.Selected.Title)
	assert.Empty(t, v.LastError)
	assert.Zero(t, sess.Logouts())
}

func TestRequestRegenerate_NoDetail(t *testing.T) {
	c, _ := newCollection(&fakeClient{})
	require.ErrorIs(t, c.RequestRegenerate(context.Background(), "x"), client.ErrValidation)
}

func TestCreateFromText(t *testing.T) {
	var got models.TextSummaryRequest
	fc := &fakeClient{
		CreateTextFn: func(ctx context.Context, req models.TextSummaryRequest) (*models.CreatedSummary, error) {
			got = req
			return &models.CreatedSummary{SummaryID: "s9"}, nil
		},
		ListOwnedFn: func(context.Context, string) ([]models.Summary, error) { return summaries("s9"), nil },
	}
	c, _ := newCollection(fc)

	id, err := c.CreateFromText(context.Background(), models.SummaryTypeResearch, "some paper")
	require.NoError(t, err)
	assert.Equal(t, "s9", id)
	assert.Equal(t, models.TextSummaryRequest{UserID: "u1", Type: models.SummaryTypeResearch, Text: "some paper"}, got)
	assert.Equal(t, []string{"s9"}, itemIDs(c.Snapshot().Items), "owned list reloads")
}

func TestCreateFromText_SharedListNotReloaded(t *testing.T) {
	fc := &fakeClient{}
	c, _ := newCollection(fc)
	require.NoError(t, c.SwitchActiveList(context.Background(), models.ListShared))

	_, err := c.CreateFromText(context.Background(), models.SummaryTypeCode, "x")
	require.NoError(t, err)
	assert.Zero(t, fc.Calls("ListOwned"))
	assert.Equal(t, 1, fc.Calls("ListShared"))
}

func TestCreate_ValidationBeforeNetwork(t *testing.T) {
	fc := &fakeClient{}
	c, _ := newCollection(fc)
	ctx := context.Background()

	_, err := c.CreateFromText(ctx, "", "text")
	require.ErrorIs(t, err, client.ErrValidation)
	_, err = c.CreateFromText(ctx, models.SummaryTypeCode, "   ")
	require.ErrorIs(t, err, client.ErrValidation)
	_, err = c.CreateFromFile(ctx, models.SummaryTypeCode, "", strings.NewReader("x"))
	require.ErrorIs(t, err, client.ErrValidation)
	_, err = c.CreateFromFile(ctx, "poetry", "a.txt", strings.NewReader("x"))
	require.ErrorIs(t, err, client.ErrValidation)

	assert.Zero(t, fc.Calls("CreateText"))
	assert.Zero(t, fc.Calls("CreateFile"))
}

func TestCreate_ResponseWithoutIDIsValidationError(t *testing.T) {
	fc := &fakeClient{CreateTextFn: func(context.Context, models.TextSummaryRequest) (*models.CreatedSummary, error) {
		return &models.CreatedSummary{Message: "Summary created successfully"}, nil
	}}
	c, _ := newCollection(fc)

	_, err := c.CreateFromText(context.Background(), models.SummaryTypeCode, "x")
	require.ErrorIs(t, err, client.ErrValidation)
	assert.Equal(t, "The server did not return the new summary.", c.Snapshot().LastError)
	assert.Zero(t, fc.Calls("ListOwned"))
}

func TestCreateFromFile(t *testing.T) {
	var got models.FileSummaryRequest
	fc := &fakeClient{CreateFileFn: func(ctx context.Context, req models.FileSummaryRequest) (*models.CreatedSummary, error) {
		got = req
		return &models.CreatedSummary{SummaryID: "s1", FileID: "f1"}, nil
	}}
	c, _ := newCollection(fc)

	id, err := c.CreateFromFile(context.Background(), models.SummaryTypeCode, "/tmp/work/notes.json", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.Equal(t, "s1", id)
	assert.Equal(t, "notes.json", got.FileName)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, "u1", got.UserID)
}

func TestClose_DropsInFlightResult(t *testing.T) {
	lists := newScriptedLists()
	c, _ := newCollection(&fakeClient{ListOwnedFn: lists.fn})
	c.Seed(summaries("1"))

	var notified int
	c.Subscribe(func(models.CollectionView) { notified++ })

	pending := loadAsync(context.Background(), c)
	n := lists.waitEntered(t)
	before := notified

	c.Close()
	lists.resolve(n, summaries("2"), nil)
	require.ErrorIs(t, <-pending, ErrClosed)

	assert.Equal(t, []string{"1"}, itemIDs(c.Snapshot().Items))
	assert.Equal(t, before, notified)

	c.SetSearchQuery("ignored")
	assert.Empty(t, c.Snapshot().SearchQuery)
}

func TestSubscribe_ReceivesCopies(t *testing.T) {
	c, _ := newCollection(&fakeClient{})
	c.Seed(summaries("1"))

	var got models.CollectionView
	cancel := c.Subscribe(func(v models.CollectionView) { got = v })
	c.SetSearchQuery("T")
	require.Len(t, got.Items, 1)

	got.Items[0].Title = "mutated by observer"
	assert.Equal(t, "T1", c.Snapshot().Items[0].Title)

	cancel()
	c.SetSearchQuery("other")
	assert.Equal(t, "T", got.SearchQuery)
}
