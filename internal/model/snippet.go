// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data — plain values with JSON tags,
// no behaviour beyond a few small helpers.
package model

// Snippet is a single user note: titled text content plus organisational
// metadata (category, tags, color, folder membership, pin/favorite flags).
//
// TIMESTAMPS AS EPOCH MILLISECONDS:
// CreatedAt and UpdatedAt are int64 milliseconds since the Unix epoch rather
// than time.Time. The web client compares and renders raw millisecond values,
// and storing integers keeps the SQLite rows and the JSON wire format
// identical — no timezone or DATETIME parsing anywhere in the pipeline.
// Invariant: UpdatedAt >= CreatedAt for every persisted snippet.
type Snippet struct {
	ID       string   `json:"id"`
	UserID   string   `json:"userId"`
	Title    string   `json:"title"`
	Content  string   `json:"content"` // may embed fenced ``` code blocks
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
	Color    string   `json:"color,omitempty"` // palette token, "" = neutral

	// FolderID is a weak reference to a Folder owned by the same user.
	// nil means "not filed". A pointer (not a string) because JSON null is
	// meaningful here: deleting a folder writes null into its snippets.
	// The reference is deliberately not enforced by the database — a
	// dangling ID is tolerated and rendered as "not filed".
	FolderID *string `json:"folderId"`

	Pinned    bool  `json:"pinned"`
	Favorite  bool  `json:"favorite"`
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// DefaultCategory is assigned when a snippet is created without one.
const DefaultCategory = "General"

// Categories is the fixed set of snippet categories selectable in the UI.
var Categories = []string{
	"General",
	"Ideas",
	"Study",
	"Work",
	"Recipes",
	"Quotes",
	"To-Do",
	"Personal",
	"Journal",
	"Code",
	"Finance",
}

// Colors is the fixed palette of card background tokens. The tokens are
// Tailwind class names because the client applies them directly; the server
// only validates membership.
var Colors = []string{
	"bg-white",
	"bg-red-50",
	"bg-orange-50",
	"bg-amber-50",
	"bg-green-50",
	"bg-emerald-50",
	"bg-teal-50",
	"bg-cyan-50",
	"bg-sky-50",
	"bg-blue-50",
	"bg-indigo-50",
	"bg-violet-50",
	"bg-purple-50",
	"bg-fuchsia-50",
	"bg-pink-50",
	"bg-rose-50",
	"bg-stone-50",
}

// ValidCategory reports whether c is one of the fixed categories.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ValidColor reports whether c is a palette token. The empty string is
// valid — it means "no color / neutral".
func ValidColor(c string) bool {
	if c == "" {
		return true
	}
	for _, known := range Colors {
		if c == known {
			return true
		}
	}
	return false
}

// HasTag reports whether the snippet carries the given tag.
// Tag order is not meaningful; this is set membership.
func (s *Snippet) HasTag(tag string) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
