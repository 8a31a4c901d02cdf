package subscription

import (
	"sync/atomic"

	"bank-webhook-gateway/internal/model"
)

// Holder hands out immutable Subscription snapshots to the dispatch path
// while lifecycle operations swap the record underneath. Dispatch reads a
// snapshot per request and never mutates it, so no locking is needed
// beyond the atomic pointer.
type Holder struct {
	current atomic.Pointer[model.Subscription]
}

// NewHolder creates a Holder with an optional initial subscription.
func NewHolder(sub *model.Subscription) *Holder {
	h := &Holder{}
	if sub != nil {
		h.Store(*sub)
	}
	return h
}

// Store replaces the current subscription snapshot.
func (h *Holder) Store(sub model.Subscription) {
	h.current.Store(&sub)
}

// Current returns the active subscription snapshot, or false when no
// subscription has been registered yet.
func (h *Holder) Current() (model.Subscription, bool) {
	p := h.current.Load()
	if p == nil {
		return model.Subscription{}, false
	}
	return *p, true
}
