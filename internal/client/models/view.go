package models

import "slices"

// CollectionView is the list state owned by the collection controller.
// A non-nil Selected means the detail view replaces the grid.
type CollectionView struct {
	ActiveList           ListKind
	Items                []Summary
	SearchQuery          string
	ActiveCategoryFilter Category
	Selected             *Summary
	PendingDelete        string
	PendingShare         *Summary
	ShareError           string
	IsLoading            bool
	LastError            string
}

// Visible returns the items that pass the current category filter and
// search query.
func (v CollectionView) Visible() []Summary {
	return FilterSummaries(v.Items, v.ActiveCategoryFilter, v.SearchQuery)
}

// Clone returns a deep copy of v, safe to hand to observers.
func (v CollectionView) Clone() CollectionView {
	v.Items = slices.Clone(v.Items)
	v.Selected = clonePtr(v.Selected)
	v.PendingShare = clonePtr(v.PendingShare)
	return v
}

// DetailView is the state of the single-summary view.
type DetailView struct {
	Summary        Summary
	Feedback       string
	Copied         bool
	IsRegenerating bool
	IsDownloading  bool
	LastError      string
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}
