package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/neozepron/dmOverlay/internal/host"
	"github.com/neozepron/dmOverlay/internal/model"
)

type fakeFriends struct {
	friends map[string]bool
	err     error
}

func (f *fakeFriends) IsFriend(_ context.Context, userID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.friends[userID], nil
}

type fakeCurrentUser struct {
	user host.User
	err  error
}

func (f *fakeCurrentUser) CurrentUser(_ context.Context) (host.User, error) {
	return f.user, f.err
}

func dmFrom(author string) *model.Message {
	return &model.Message{
		ID:        "m1",
		ChannelID: "c1",
		AuthorID:  author,
		Username:  "friend",
		Content:   "hi",
	}
}

func TestFilterAccept(t *testing.T) {
	friends := &fakeFriends{friends: map[string]bool{"200": true}}
	me := &fakeCurrentUser{user: host.User{ID: "100", Username: "me"}}
	f := NewFilter(friends, me, nil)

	guildMsg := dmFrom("200")
	guildMsg.GuildID = "g1"

	tests := []struct {
		name       string
		ev         host.MessageEvent
		wantAccept bool
		wantReason string
	}{
		{
			name:       "friend DM accepted",
			ev:         host.MessageEvent{Message: dmFrom("200")},
			wantAccept: true,
		},
		{
			name:       "optimistic rejected",
			ev:         host.MessageEvent{Optimistic: true, Message: dmFrom("200")},
			wantReason: ReasonOptimistic,
		},
		{
			name:       "missing payload rejected",
			ev:         host.MessageEvent{},
			wantReason: ReasonNoPayload,
		},
		{
			name:       "guild scoped rejected",
			ev:         host.MessageEvent{Message: guildMsg},
			wantReason: ReasonGuildScoped,
		},
		{
			name:       "self authored rejected",
			ev:         host.MessageEvent{Message: dmFrom("100")},
			wantReason: ReasonSelfAuthor,
		},
		{
			name:       "non-friend rejected",
			ev:         host.MessageEvent{Message: dmFrom("300")},
			wantReason: ReasonNotFriend,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accepted, reason := f.Accept(context.Background(), tt.ev)
			assert.Equal(t, tt.wantAccept, accepted)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestFilterAccept_HostErrors(t *testing.T) {
	boom := errors.New("host gone")

	f := NewFilter(
		&fakeFriends{friends: map[string]bool{"200": true}},
		&fakeCurrentUser{err: boom},
		nil,
	)
	accepted, reason := f.Accept(context.Background(), host.MessageEvent{Message: dmFrom("200")})
	assert.False(t, accepted)
	assert.Equal(t, ReasonHostError, reason)

	f = NewFilter(
		&fakeFriends{err: boom},
		&fakeCurrentUser{user: host.User{ID: "100"}},
		nil,
	)
	accepted, reason = f.Accept(context.Background(), host.MessageEvent{Message: dmFrom("200")})
	assert.False(t, accepted)
	assert.Equal(t, ReasonHostError, reason)
}
