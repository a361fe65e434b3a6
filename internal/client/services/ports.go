package services

import (
	"context"

	"github.com/dmitrijs2005/briefly/internal/client/models"
)

// SessionProvider is the read side of the session plus the logout path,
// as seen by the collection and detail controllers.
type SessionProvider interface {
	Current() models.Session
	Logout(ctx context.Context)
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	WriteAll(text string) error
}

// DownloadSink stores a downloaded file and returns where the user can
// find it: a local path or a link.
type DownloadSink interface {
	Save(ctx context.Context, name, contentType string, data []byte) (string, error)
}
