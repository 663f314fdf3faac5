package ui

import (
	"fmt"

	"github.com/idilsaglam/tada/internal/model"
)

const maxTextWidth = 80

// Header is the title line with done/pending/total counts.
func Header(items []model.Item) string {
	d, p := Stats(items)
	t := Current()
	return fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		C(t.Title, "Todos"),
		C(t.Success, t.SymDone), d,
		C(t.Pending, t.SymUnchecked), p,
		C(t.Accent, "Total"), len(items),
	)
}

// ListLines renders the plain (non-interactive) list body. Indexes are
// 1-based positions in items, so they match `tada done <index>` even when
// grouped.
func ListLines(items []model.Item, group bool) []string {
	d, p := Stats(items)
	lines := []string{
		Header(items),
		C(Current().Muted, ProgressBar(d, d+p, 28)),
		"",
	}
	if group {
		lines = append(lines, groupLines(items)...)
	} else {
		lines = append(lines, flatLines(items, allIndexes(len(items)))...)
	}
	lines = append(lines, "")
	lines = append(lines, C(Current().Muted, "Tip: add with `tada add \"Buy milk\"`"))
	return lines
}

func Stats(items []model.Item) (done, pending int) {
	for _, it := range items {
		if it.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}

func allIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func flatLines(items []model.Item, idxs []int) []string {
	if len(idxs) == 0 {
		return []string{C(Current().Muted, "no items")}
	}
	t := Current()
	out := make([]string, 0, len(idxs))
	for _, i := range idxs {
		it := items[i]
		box, color := t.BoxUnchecked, t.Muted
		if it.Completed {
			box, color = t.BoxChecked, t.Success
		}
		out = append(out, fmt.Sprintf("%s %s %s",
			C(dim, fmt.Sprintf("%2d.", i+1)), C(color, box), Truncate(it.Text, maxTextWidth)))
	}
	return out
}

func groupLines(items []model.Item) []string {
	var pend, done []int
	for i, it := range items {
		if it.Completed {
			done = append(done, i)
		} else {
			pend = append(pend, i)
		}
	}
	t := Current()
	section := func(title string, idxs []int) []string {
		lines := []string{C(t.Accent, title)}
		if len(idxs) == 0 {
			return append(lines, C(t.Muted, "(none)"))
		}
		return append(lines, flatLines(items, idxs)...)
	}
	lines := section("Pending", pend)
	lines = append(lines, "")
	return append(lines, section("Done", done)...)
}

// Truncate shortens s to at most n runes, ending in "...".
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n || n < 4 {
		return s
	}
	return string(r[:n-3]) + "..."
}
