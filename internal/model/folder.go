package model

// Folder is a named collection that snippets may optionally belong to.
// Snippets point at folders via Snippet.FolderID; a folder does not know
// its members. Deleting a folder clears those references, never the
// snippets themselves.
type Folder struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	CreatedAt int64  `json:"createdAt"` // epoch milliseconds
}
