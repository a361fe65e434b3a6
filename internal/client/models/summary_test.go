package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSummaryType(t *testing.T) {
	got, err := ParseSummaryType(" Research ")
	require.NoError(t, err)
	assert.Equal(t, SummaryTypeResearch, got)

	_, err = ParseSummaryType("poetry")
	require.ErrorIs(t, err, ErrUnknownSummaryType)

	_, err = ParseSummaryType("")
	require.ErrorIs(t, err, ErrUnknownSummaryType)
}

func TestParseCategory(t *testing.T) {
	for in, want := range map[string]Category{
		"all":           CategoryAll,
		"CODE":          CategoryCode,
		"documentation": CategoryDocumentation,
	} {
		got, err := ParseCategory(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseCategory("everything")
	require.ErrorIs(t, err, ErrUnknownCategory)
}

func TestParseListKind(t *testing.T) {
	got, err := ParseListKind("Shared")
	require.NoError(t, err)
	assert.Equal(t, ListShared, got)

	_, err = ParseListKind("mine")
	require.ErrorIs(t, err, ErrUnknownListKind)
}

func TestSummary_DecodesSharedEntry(t *testing.T) {
	raw := `{
		"id": "66f1",
		"title": "Auth flow",
		"type": "code",
		"outputData": "Explains login",
		"initialData": "func login() {}",
		"sharedBy": "alice@example.com",
		"uploadType": "upload",
		"sharedAt": "March 04, 2025",
		"createdAt": "2025-03-01 10:00:00",
		"fileName": "auth.go",
		"fileId": "f-1"
	}`

	var s Summary
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, "66f1", s.ID)
	assert.Equal(t, SummaryTypeCode, s.Type)
	assert.Equal(t, "alice@example.com", s.SharedBy)
	assert.Equal(t, "March 04, 2025", s.SharedAt)
	assert.True(t, s.HasInputFile())
}

func TestSummary_HasInputFile(t *testing.T) {
	assert.False(t, Summary{UploadType: UploadTypeText, FileID: "x"}.HasInputFile())
	assert.False(t, Summary{UploadType: UploadTypeUpload}.HasInputFile())
	assert.True(t, Summary{UploadType: UploadTypeUpload, FileID: "x"}.HasInputFile())
}

func TestCollectionView_CloneIsDeep(t *testing.T) {
	sel := Summary{ID: "1", Title: "orig"}
	v := CollectionView{Items: []Summary{sel}, Selected: &sel, PendingShare: &sel}

	c := v.Clone()
	c.Items[0].Title = "changed"
	c.Selected.Title = "changed"
	c.PendingShare.Title = "changed"

	assert.Equal(t, "orig", v.Items[0].Title)
	assert.Equal(t, "orig", v.Selected.Title)
	assert.Equal(t, "orig", v.PendingShare.Title)
}

func TestSession_Clone(t *testing.T) {
	s := Session{Token: "t", User: &User{ID: "u1"}, IsAuthenticated: true}
	c := s.Clone()
	c.User.ID = "other"

	assert.Equal(t, "u1", s.UserID())
	assert.Equal(t, "", Session{}.UserID())
}
