package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sakif/threadlines/internal/auth"
	"github.com/sakif/threadlines/internal/live"
	"github.com/sakif/threadlines/internal/repository"
	"github.com/sakif/threadlines/internal/session"
)

// LiveHandler serves the WebSocket sync endpoint.
//
// HTTP: GET /api/live (behind RequireAuth)
//
// Each connection gets its own session.Provider: the provider loads both
// collections, watches the change hub, and the handler forwards every
// snapshot event to the socket as JSON. The client never sends messages;
// closing the socket tears the session down.
type LiveHandler struct {
	snippets repository.SnippetRepository
	folders  repository.FolderRepository
	hub      *live.Hub
	logger   *slog.Logger
}

func NewLiveHandler(
	snippets repository.SnippetRepository,
	folders repository.FolderRepository,
	hub *live.Hub,
	logger *slog.Logger,
) *LiveHandler {
	return &LiveHandler{
		snippets: snippets,
		folders:  folders,
		hub:      hub,
		logger:   logger,
	}
}

// HandleLive upgrades the request and streams session events until the
// client disconnects or the server shuts down.
func (h *LiveHandler) HandleLive(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("live: websocket accept failed", slog.String("error", err.Error()))
		return
	}
	defer c.Close(websocket.StatusInternalError, "session ended")

	// The client sends nothing; CloseRead gives us a context that cancels
	// when the peer closes or the connection drops.
	ctx := c.CloseRead(r.Context())

	provider := session.New(userID, h.snippets, h.folders, h.hub, h.logger)

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	events, cancel := provider.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		provider.Run(runCtx)
	}()

	h.logger.Info("live session opened", slog.String("userID", userID))

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("live session closed", slog.String("userID", userID))
			c.Close(websocket.StatusNormalClosure, "")
			stop()
			<-done
			return
		case ev, ok := <-events:
			if !ok {
				c.Close(websocket.StatusNormalClosure, "")
				stop()
				<-done
				return
			}
			if err := wsjson.Write(ctx, c, ev); err != nil {
				if !errors.Is(err, context.Canceled) {
					h.logger.Warn("live: write failed",
						slog.String("userID", userID),
						slog.String("error", err.Error()),
					)
				}
				stop()
				<-done
				return
			}
		}
	}
}
