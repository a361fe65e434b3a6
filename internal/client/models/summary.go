// Package models defines the client-side data model of Briefly: the user
// session, summaries and the view state owned by the controllers.
package models

import (
	"errors"
	"io"
	"strings"
)

// SummaryType classifies what kind of input a summary was produced from.
type SummaryType string

const (
	SummaryTypeCode          SummaryType = "code"
	SummaryTypeDocumentation SummaryType = "documentation"
	SummaryTypeResearch      SummaryType = "research"
)

// UploadType tells whether the input was typed in or uploaded as a file.
type UploadType string

const (
	UploadTypeUpload UploadType = "upload"
	UploadTypeText   UploadType = "type"
)

// Category is the collection's category filter: CategoryAll or one of the
// summary types.
type Category string

const (
	CategoryAll           Category = "all"
	CategoryCode          Category = Category(SummaryTypeCode)
	CategoryDocumentation Category = Category(SummaryTypeDocumentation)
	CategoryResearch      Category = Category(SummaryTypeResearch)
)

// ListKind selects between the user's own summaries and the ones shared
// with them.
type ListKind string

const (
	ListOwned  ListKind = "owned"
	ListShared ListKind = "shared"
)

var (
	ErrUnknownSummaryType = errors.New("summary type must be one of code, documentation, research")
	ErrUnknownCategory    = errors.New("category must be one of all, code, documentation, research")
	ErrUnknownListKind    = errors.New("list must be owned or shared")
)

func ParseSummaryType(s string) (SummaryType, error) {
	switch t := SummaryType(strings.ToLower(strings.TrimSpace(s))); t {
	case SummaryTypeCode, SummaryTypeDocumentation, SummaryTypeResearch:
		return t, nil
	}
	return "", ErrUnknownSummaryType
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == CategoryAll {
		return c, nil
	}
	if _, err := ParseSummaryType(string(c)); err != nil {
		return "", ErrUnknownCategory
	}
	return c, nil
}

func ParseListKind(s string) (ListKind, error) {
	switch k := ListKind(strings.ToLower(strings.TrimSpace(s))); k {
	case ListOwned, ListShared:
		return k, nil
	}
	return "", ErrUnknownListKind
}

// Summary is a summary document as returned by the API. Owned and shared
// listings use the same shape; SharedAt and SharedBy are only set on the
// shared one. Timestamps are kept verbatim since the server emits more
// than one format.
type Summary struct {
	ID          string      `json:"id"`
	UserID      string      `json:"userId,omitempty"`
	Title       string      `json:"title"`
	Type        SummaryType `json:"type"`
	UploadType  UploadType  `json:"uploadType"`
	InitialData string      `json:"initialData,omitempty"`
	OutputData  string      `json:"outputData"`
	Content     string      `json:"content,omitempty"`
	FileName    string      `json:"fileName,omitempty"`
	FileID      string      `json:"fileId,omitempty"`
	CreatedAt   string      `json:"createdAt,omitempty"`
	SharedAt    string      `json:"sharedAt,omitempty"`
	SharedBy    string      `json:"sharedBy,omitempty"`
}

// HasInputFile reports whether the summary was built from an uploaded file
// that can be downloaded again.
func (s Summary) HasInputFile() bool {
	return s.UploadType == UploadTypeUpload && s.FileID != ""
}

// TextSummaryRequest is the payload for creating a summary from pasted text.
type TextSummaryRequest struct {
	UserID string
	Type   SummaryType
	Text   string
}

// FileSummaryRequest is the payload for creating a summary from a file.
type FileSummaryRequest struct {
	UserID      string
	Type        SummaryType
	FileName    string
	ContentType string
	Content     io.Reader
}

// CreatedSummary is the server's acknowledgment of a creation request.
// FileID is only set for uploads.
type CreatedSummary struct {
	Message   string `json:"message"`
	SummaryID string `json:"summary_id"`
	FileID    string `json:"file_id,omitempty"`
}
