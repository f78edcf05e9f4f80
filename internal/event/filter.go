// Package event provides inbound message event filtering.
package event

import (
	"context"
	"log/slog"

	"github.com/neozepron/dmOverlay/internal/host"
)

// Rejection reasons returned by Accept. Used for debug logging only.
const (
	ReasonOptimistic  = "optimistic"
	ReasonNoPayload   = "no payload"
	ReasonGuildScoped = "guild scoped"
	ReasonSelfAuthor  = "self authored"
	ReasonNotFriend   = "author not a friend"
	ReasonHostError   = "host lookup failed"
)

// Filter decides whether an inbound message event warrants an overlay
// notification. It has no side effects; the daemon acts on acceptance.
type Filter struct {
	friends     host.Friends
	currentUser host.CurrentUser
	logger      *slog.Logger
}

// NewFilter creates a Filter backed by the given host capabilities.
func NewFilter(friends host.Friends, currentUser host.CurrentUser, logger *slog.Logger) *Filter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Filter{
		friends:     friends,
		currentUser: currentUser,
		logger:      logger,
	}
}

// Accept returns true when the event should produce a notification.
// The second return names the rejection reason for accepted=false.
//
// Rejected: optimistic (unacknowledged) events, events without a payload,
// guild/group scoped messages, self-authored messages, and messages whose
// author is not on the friend list. Host lookup failures reject rather
// than risk a popup for an unknown sender.
func (f *Filter) Accept(ctx context.Context, ev host.MessageEvent) (bool, string) {
	if ev.Optimistic {
		return false, ReasonOptimistic
	}
	if ev.Message == nil {
		return false, ReasonNoPayload
	}
	if !ev.Message.IsDirect() {
		return false, ReasonGuildScoped
	}

	me, err := f.currentUser.CurrentUser(ctx)
	if err != nil {
		f.logger.Debug("current user lookup failed", "error", err)
		return false, ReasonHostError
	}
	if ev.Message.AuthorID == me.ID {
		return false, ReasonSelfAuthor
	}

	isFriend, err := f.friends.IsFriend(ctx, ev.Message.AuthorID)
	if err != nil {
		f.logger.Debug("friend lookup failed", "author", ev.Message.AuthorID, "error", err)
		return false, ReasonHostError
	}
	if !isFriend {
		return false, ReasonNotFriend
	}

	return true, ""
}
