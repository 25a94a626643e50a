// Package view derives display views over a snippet snapshot: filtering,
// sorting, the pinned/others split, and the tag vocabulary.
//
// Everything here is a pure, synchronous function over an in-memory slice.
// Inputs are never mutated; the functions are recomputed from the current
// snapshot and filter state on every call, holding no state of their own.
package view

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/sakif/threadlines/internal/model"
)

// Scope restricts the list to a route-level subset of the snapshot.
type Scope string

const (
	ScopeAll       Scope = "all"
	ScopeFavorites Scope = "favorites"
	ScopeFolder    Scope = "folder" // requires Filter.FolderID
)

// Sort selects the list ordering.
type Sort string

const (
	SortNewest    Sort = "newest" // createdAt descending
	SortOldest    Sort = "oldest" // createdAt ascending
	SortTitleAsc  Sort = "az"     // title ascending, locale-aware
	SortTitleDesc Sort = "za"     // title descending, locale-aware
)

// Filter is the full UI filter state. Zero values mean "no restriction":
// empty Search matches everything, empty Category means all categories,
// empty Tag means no tag selected. An empty Scope behaves as ScopeAll and
// an empty Sort as SortNewest.
type Filter struct {
	Scope    Scope
	FolderID string
	Search   string
	Category string
	Tag      string
	Sort     Sort
}

// collator performs locale-aware title comparison, the equivalent of
// localeCompare in the original UI. Loose ignores case and diacritic
// differences for ordering purposes ("apple" sorts next to "Apple").
var collator = collate.New(language.Und, collate.Loose)

// Apply returns the snippets passing the filter, sorted per f.Sort.
// The input slice is left untouched.
//
// Filtering is conjunctive: a snippet is included only if it passes the
// scope AND the search AND the category AND the tag conditions. Applying
// the same filter twice yields the same result as applying it once.
func Apply(snippets []model.Snippet, f Filter) []model.Snippet {
	result := make([]model.Snippet, 0, len(snippets))
	search := strings.ToLower(f.Search)

	for _, s := range snippets {
		if !matchesScope(s, f) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Title), search) &&
			!strings.Contains(strings.ToLower(s.Content), search) {
			continue
		}
		if f.Category != "" && s.Category != f.Category {
			continue
		}
		if f.Tag != "" && !s.HasTag(f.Tag) {
			continue
		}
		result = append(result, s)
	}

	sortSnippets(result, f.Sort)
	return result
}

func matchesScope(s model.Snippet, f Filter) bool {
	switch f.Scope {
	case ScopeFavorites:
		return s.Favorite
	case ScopeFolder:
		return s.FolderID != nil && *s.FolderID == f.FolderID
	default: // ScopeAll and ""
		return true
	}
}

// sortSnippets orders in place. Newest/oldest compare createdAt
// numerically; the title sorts use the collator. Stable, so equal keys
// keep their snapshot order.
func sortSnippets(snippets []model.Snippet, by Sort) {
	switch by {
	case SortOldest:
		sort.SliceStable(snippets, func(i, j int) bool {
			return snippets[i].CreatedAt < snippets[j].CreatedAt
		})
	case SortTitleAsc:
		sort.SliceStable(snippets, func(i, j int) bool {
			return collator.CompareString(snippets[i].Title, snippets[j].Title) < 0
		})
	case SortTitleDesc:
		sort.SliceStable(snippets, func(i, j int) bool {
			return collator.CompareString(snippets[i].Title, snippets[j].Title) > 0
		})
	default: // SortNewest and ""
		sort.SliceStable(snippets, func(i, j int) bool {
			return snippets[i].CreatedAt > snippets[j].CreatedAt
		})
	}
}

// Partition splits a filtered+sorted list into the pinned group and the
// rest, each keeping its order. Pinned renders as its own group ahead of
// the others.
func Partition(snippets []model.Snippet) (pinned, others []model.Snippet) {
	pinned = []model.Snippet{}
	others = []model.Snippet{}
	for _, s := range snippets {
		if s.Pinned {
			pinned = append(pinned, s)
		} else {
			others = append(others, s)
		}
	}
	return pinned, others
}

// TagVocabulary returns the distinct tags across the entire snapshot,
// sorted for stable output. It is derived from the unfiltered snapshot on
// purpose: the tag filter chips must offer every tag the user has, not
// just those surviving the current filter.
func TagVocabulary(snippets []model.Snippet) []string {
	seen := make(map[string]struct{})
	for _, s := range snippets {
		for _, t := range s.Tags {
			seen[t] = struct{}{}
		}
	}

	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
