// Package session implements the live data provider: one Provider per
// signed-in session holds the current owner-scoped snapshots of the two
// collections and keeps them fresh by reacting to change-hub events.
//
// The provider is an explicit state container. Every delivery replaces the
// affected snapshot wholesale (the store is re-queried for the full result
// set — never a diff), the display ordering is re-derived on each
// delivery, and registered observers receive their own copies, so nothing
// outside the provider can mutate its state.
//
// The two collections are independent streams with no ordering guarantee
// between them. Observers must not assume the snapshots are mutually
// consistent at any instant: a just-deleted folder's ID may transiently
// appear as a snippet's folder reference until the snippet snapshot
// arrives.
package session

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/sakif/threadlines/internal/live"
	"github.com/sakif/threadlines/internal/model"
	"github.com/sakif/threadlines/internal/repository"
)

// Event is one snapshot delivery to an observer. Exactly one of Snippets
// or Folders is meaningful, selected by Collection; Loading reports the
// provider's loading state after this delivery.
type Event struct {
	Collection live.Collection `json:"collection"`
	Snippets   []model.Snippet `json:"snippets,omitempty"`
	Folders    []model.Folder  `json:"folders,omitempty"`
	Loading    bool            `json:"loading"`
}

// observerBuffer is the per-observer event channel capacity. Deliveries
// are full snapshots, so an observer that falls behind and misses one is
// healed by the next.
const observerBuffer = 16

// Provider maintains the live snapshots for one owner.
type Provider struct {
	ownerID  string
	snippets repository.SnippetRepository
	folders  repository.FolderRepository
	hub      *live.Hub
	logger   *slog.Logger

	mu             sync.Mutex
	snippetsSnap   []model.Snippet
	foldersSnap    []model.Folder
	snippetsLoaded bool
	foldersLoaded  bool
	observers      map[int]chan Event
	nextObserver   int
}

// New creates a Provider for ownerID. Call Run to start it.
func New(
	ownerID string,
	snippets repository.SnippetRepository,
	folders repository.FolderRepository,
	hub *live.Hub,
	logger *slog.Logger,
) *Provider {
	return &Provider{
		ownerID:   ownerID,
		snippets:  snippets,
		folders:   folders,
		hub:       hub,
		logger:    logger,
		observers: make(map[int]chan Event),
	}
}

// Run subscribes to the change hub, loads both initial snapshots, and then
// reloads a collection whenever the hub reports a change to it. Blocks
// until ctx is cancelled; on return the subscription is released, the
// snapshots are cleared, and observer channels are closed.
//
// The hub subscription is opened before the initial loads so a mutation
// landing between "load" and "subscribe" cannot be missed.
func (p *Provider) Run(ctx context.Context) {
	sub := p.hub.Subscribe(p.ownerID)
	defer sub.Close()
	defer p.teardown()

	p.reload(ctx, live.CollectionSnippets)
	p.reload(ctx, live.CollectionFolders)

	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-sub.C:
			if !ok {
				return
			}
			p.reload(ctx, change.Collection)
		}
	}
}

// Subscribe registers an observer. The returned cancel func must be called
// when the observer goes away; it closes the channel.
func (p *Provider) Subscribe() (<-chan Event, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextObserver
	p.nextObserver++
	ch := make(chan Event, observerBuffer)
	p.observers[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if ch, ok := p.observers[id]; ok {
			delete(p.observers, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Snapshot returns copies of the current snapshots and the loading state.
func (p *Provider) Snapshot() (snippets []model.Snippet, folders []model.Folder, loading bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copySnippets(p.snippetsSnap), copyFolders(p.foldersSnap), p.loadingLocked()
}

// Loading reports whether the provider is still waiting for a first
// delivery from either collection.
func (p *Provider) Loading() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loadingLocked()
}

func (p *Provider) loadingLocked() bool {
	return !(p.snippetsLoaded && p.foldersLoaded)
}

// reload re-queries one collection and replaces its snapshot wholesale.
//
// Error handling is asymmetric between the two collections, preserving
// the behaviour of the system this one replaces: a folders query failure
// still marks folders as loaded (so the loading state resolves and the UI
// is not stuck forever), while a snippets query failure leaves the loading
// state untouched. Both are logged, neither stops the provider.
func (p *Provider) reload(ctx context.Context, col live.Collection) {
	switch col {
	case live.CollectionSnippets:
		list, err := p.snippets.ListByOwner(ctx, p.ownerID)
		if err != nil {
			p.logger.Error("session: loading snippets snapshot",
				slog.String("ownerID", p.ownerID),
				slog.String("error", err.Error()),
			)
			return
		}
		// Display ordering is re-derived on every delivery, not trusted
		// from the store.
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].UpdatedAt > list[j].UpdatedAt
		})

		p.mu.Lock()
		p.snippetsSnap = list
		p.snippetsLoaded = true
		p.notifyLocked(col)
		p.mu.Unlock()

	case live.CollectionFolders:
		list, err := p.folders.ListFoldersByOwner(ctx, p.ownerID)
		if err != nil {
			p.logger.Error("session: loading folders snapshot",
				slog.String("ownerID", p.ownerID),
				slog.String("error", err.Error()),
			)
			p.mu.Lock()
			p.foldersLoaded = true // resolve loading so the UI doesn't hang
			p.notifyLocked(col)
			p.mu.Unlock()
			return
		}
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].CreatedAt > list[j].CreatedAt
		})

		p.mu.Lock()
		p.foldersSnap = list
		p.foldersLoaded = true
		p.notifyLocked(col)
		p.mu.Unlock()
	}
}

// notifyLocked delivers the current snapshot of col to every observer.
// Each observer gets its own copy. The send is non-blocking: with the
// buffer full the event is dropped and the observer catches up on the
// next delivery. Caller holds p.mu.
func (p *Provider) notifyLocked(col live.Collection) {
	loading := p.loadingLocked()
	for _, ch := range p.observers {
		ev := Event{Collection: col, Loading: loading}
		switch col {
		case live.CollectionSnippets:
			ev.Snippets = copySnippets(p.snippetsSnap)
		case live.CollectionFolders:
			ev.Folders = copyFolders(p.foldersSnap)
		}
		select {
		case ch <- ev:
		default:
			p.logger.Warn("session: observer buffer full, dropping delivery",
				slog.String("ownerID", p.ownerID),
				slog.String("collection", string(col)),
			)
		}
	}
}

// teardown clears the snapshots (sign-out semantics: state is discarded
// synchronously) and closes all observer channels.
func (p *Provider) teardown() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.snippetsSnap = nil
	p.foldersSnap = nil
	for id, ch := range p.observers {
		delete(p.observers, id)
		close(ch)
	}
}

func copySnippets(in []model.Snippet) []model.Snippet {
	out := make([]model.Snippet, len(in))
	copy(out, in)
	// Tags is the one reference field worth deep-copying; FolderID points
	// at a string, which nothing mutates in place.
	for i := range out {
		if out[i].Tags != nil {
			tags := make([]string, len(out[i].Tags))
			copy(tags, out[i].Tags)
			out[i].Tags = tags
		}
	}
	return out
}

func copyFolders(in []model.Folder) []model.Folder {
	out := make([]model.Folder, len(in))
	copy(out, in)
	return out
}
