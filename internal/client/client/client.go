package client

import (
	"context"

	"github.com/dmitrijs2005/briefly/internal/client/models"
)

// Client is the typed contract of the Briefly API. Every method is a single
// round trip and never retries. Authenticated methods take the bearer
// token from ctx (see WithAccessToken).
type Client interface {
	CreateUser(ctx context.Context, reg models.Registration) (*models.RegisteredUser, error)
	VerifyUser(ctx context.Context, email, password string) (*models.Credentials, error)

	ListOwnedSummaries(ctx context.Context, userID string) ([]models.Summary, error)
	ListSharedSummaries(ctx context.Context, userID string) ([]models.Summary, error)
	FetchSummary(ctx context.Context, id string) (*models.Summary, error)

	CreateSummaryFromText(ctx context.Context, req models.TextSummaryRequest) (*models.CreatedSummary, error)
	CreateSummaryFromFile(ctx context.Context, req models.FileSummaryRequest) (*models.CreatedSummary, error)
	DeleteSummary(ctx context.Context, id string) error
	ShareSummary(ctx context.Context, id, recipient string) (string, error)
	RegenerateSummary(ctx context.Context, id, feedback string) error

	DownloadFile(ctx context.Context, fileID string) (*Blob, error)
}

// Blob is a downloaded file.
type Blob struct {
	Name        string
	ContentType string
	Data        []byte
}

type accessTokenKey struct{}

// WithAccessToken returns a context whose requests carry token as a
// bearer credential. An empty token removes it.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, accessTokenKey{}, token)
}

// AccessToken returns the bearer token stored in ctx, if any.
func AccessToken(ctx context.Context) string {
	t, _ := ctx.Value(accessTokenKey{}).(string)
	return t
}
