package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/dmitrijs2005/briefly/internal/client/models"
	"github.com/rivo/uniseg"
)

const titleWidth = 48

// truncate shortens s to at most width terminal columns, cutting on
// grapheme boundaries and marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if uniseg.StringWidth(s) <= width {
		return s
	}

	var b strings.Builder
	used, state := 0, -1
	rest := s
	for len(rest) > 0 {
		var cluster string
		var w int
		cluster, rest, w, state = uniseg.FirstGraphemeClusterInString(rest, state)
		if used+w > width-1 {
			break
		}
		b.WriteString(cluster)
		used += w
	}
	return b.String() + "…"
}

func printSummaries(w io.Writer, v models.CollectionView) {
	visible := v.Visible()

	header := fmt.Sprintf("%s summaries", v.ActiveList)
	if v.ActiveCategoryFilter != "" && v.ActiveCategoryFilter != models.CategoryAll {
		header += fmt.Sprintf(", category %s", v.ActiveCategoryFilter)
	}
	if v.SearchQuery != "" {
		header += fmt.Sprintf(", matching %q", v.SearchQuery)
	}
	fmt.Fprintf(w, "%s: %d of %d\n", header, len(visible), len(v.Items))
	if v.LastError != "" {
		fmt.Fprintln(w, "!", v.LastError)
	}
	if len(visible) == 0 {
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if v.ActiveList == models.ListShared {
		fmt.Fprintln(tw, "#\tID\tTYPE\tTITLE\tSHARED BY\tSHARED AT")
	} else {
		fmt.Fprintln(tw, "#\tID\tTYPE\tTITLE\tCREATED")
	}
	for i, s := range visible {
		if v.ActiveList == models.ListShared {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, s.ID, s.Type, truncate(s.Title, titleWidth), s.SharedBy, s.SharedAt)
		} else {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, s.ID, s.Type, truncate(s.Title, titleWidth), s.CreatedAt)
		}
	}
	tw.Flush()
}

func printDetail(w io.Writer, v models.DetailView) {
	s := v.Summary
	fmt.Fprintf(w, "%s\n%s\n", s.Title, strings.Repeat("=", min(uniseg.StringWidth(s.Title), 72)))
	fmt.Fprintf(w, "Type: %s", s.Type)
	if s.CreatedAt != "" {
		fmt.Fprintf(w, "  Created: %s", s.CreatedAt)
	}
	if s.SharedBy != "" {
		fmt.Fprintf(w, "  Shared by: %s", s.SharedBy)
	}
	fmt.Fprintln(w)
	if s.HasInputFile() {
		fmt.Fprintf(w, "Source file: %s (use download)\n", s.FileName)
	}
	fmt.Fprintln(w)

	if strings.TrimSpace(s.OutputData) == "" {
		fmt.Fprintln(w, "(no output yet)")
	} else {
		fmt.Fprintln(w, s.OutputData)
	}
	if v.LastError != "" {
		fmt.Fprintln(w, "!", v.LastError)
	}
}
