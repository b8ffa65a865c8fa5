// Package filter narrows and orders a snapshot of items for browsing. It is
// pure: the same snapshot and state always give the same result.
package filter

import (
	"slices"
	"strings"

	"github.com/erazemk/achados/internal/model"
)

// Sort selects the result order.
type Sort string

const (
	// SortRecent orders by creation time, newest first.
	SortRecent Sort = "recent"
	// SortRelevant keeps snapshot order. Ranking happens in server-side
	// search only.
	SortRelevant Sort = "relevant"
)

// ParseSort accepts "recent", "relevant" or empty (recent).
func ParseSort(s string) (Sort, bool) {
	switch Sort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortRecent:
		return SortRecent, true
	case SortRelevant:
		return SortRelevant, true
	}
	return "", false
}

// State is the current set of browse selections. The zero value matches
// every OPEN item, newest first.
type State struct {
	Query    string `json:"q"`
	Campus   string `json:"campus"`
	Category string `json:"category"`
	// Type is all, LOST or FOUND, in any case.
	Type string `json:"type"`
	Sort Sort   `json:"sort"`
}

// Result is the filtered view.
type Result struct {
	Items []model.Item `json:"items"`
	Count int          `json:"count"`
}

// isAny reports whether a selector value means "no restriction".
func isAny(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "all", "todos", "todas":
		return true
	}
	return false
}

// ActiveCount is the number of selections that narrow the result.
func (s State) ActiveCount() int {
	n := 0
	for _, v := range []string{s.Campus, s.Category, s.Type} {
		if !isAny(v) {
			n++
		}
	}
	if strings.TrimSpace(s.Query) != "" {
		n++
	}
	return n
}

// Clear resets the selectors, keeping the query and sort order.
func (s State) Clear() State {
	return State{Query: s.Query, Sort: s.Sort}
}

// Apply returns the OPEN items of snapshot that match every selection of s.
// snapshot is not modified.
func Apply(snapshot []model.Item, s State) Result {
	query := strings.ToLower(strings.TrimSpace(s.Query))

	items := make([]model.Item, 0, len(snapshot))
	for _, it := range snapshot {
		if it.Status != model.ItemStatusOpen {
			continue
		}
		if !matchesText(it, query) {
			continue
		}
		if !isAny(s.Campus) && it.Campus != s.Campus {
			continue
		}
		if !isAny(s.Category) && !strings.EqualFold(it.Category, strings.TrimSpace(s.Category)) {
			continue
		}
		if !isAny(s.Type) && !strings.EqualFold(string(it.Type), strings.TrimSpace(s.Type)) {
			continue
		}
		items = append(items, it)
	}

	if s.Sort != SortRelevant {
		slices.SortStableFunc(items, func(a, b model.Item) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	}

	return Result{Items: items, Count: len(items)}
}

func matchesText(it model.Item, query string) bool {
	if query == "" {
		return true
	}
	return strings.Contains(strings.ToLower(it.Title), query) ||
		strings.Contains(strings.ToLower(it.Description), query) ||
		strings.Contains(strings.ToLower(it.Building), query)
}
