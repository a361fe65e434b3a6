package models

import "strings"

// FilterSummaries keeps the items whose type equals category (any type for
// CategoryAll) and whose title or output contains query, ignoring case.
// An empty query matches everything. Order is preserved and items is not
// modified.
func FilterSummaries(items []Summary, category Category, query string) []Summary {
	q := strings.ToLower(query)
	out := make([]Summary, 0, len(items))
	for _, s := range items {
		if category != "" && category != CategoryAll && Category(s.Type) != category {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(s.Title), q) &&
			!strings.Contains(strings.ToLower(s.OutputData), q) {
			continue
		}
		out = append(out, s)
	}
	return out
}
