package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/healthify/internal/healthify/service"
	"github.com/aussiebroadwan/healthify/internal/healthify/session"
	"github.com/aussiebroadwan/healthify/internal/healthify/store"
)

// sessionHooks reacts to session transitions: a newly signed-in user gets a
// profile row and a signed-out user's chat transcript is dropped.
type sessionHooks struct {
	store  store.Store
	chat   *service.ChatService
	logger *slog.Logger

	mu      sync.Mutex
	current string
}

func newSessionHooks(st store.Store, chat *service.ChatService, logger *slog.Logger) *sessionHooks {
	return &sessionHooks{store: st, chat: chat, logger: logger}
}

// attach subscribes the hooks to mgr and applies its current state, which
// may have been published before the subscription existed. The state is
// read under the hooks' lock so a callback already running is never
// overwritten with an older snapshot.
func (h *sessionHooks) attach(mgr *session.Manager) (unsubscribe func()) {
	unsubscribe = mgr.Subscribe(h.onChange)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.applyLocked(mgr.State())
	return unsubscribe
}

func (h *sessionHooks) onChange(st session.State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.applyLocked(st)
}

func (h *sessionHooks) applyLocked(st session.State) {
	next := ""
	if st.User != nil {
		next = st.User.ID
	}
	if next == h.current {
		return
	}

	if h.current != "" {
		h.chat.Forget(h.current)
	}
	h.current = next

	if next == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := service.EnsureProfile(ctx, h.store, next); err != nil {
		h.logger.Error("failed to create profile", "user_id", next, "error", err)
	}
}
