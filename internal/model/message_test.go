package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotification(t *testing.T) {
	msg := Message{
		ID:        "111",
		ChannelID: "222",
		AuthorID:  "333",
		Username:  "alice",
		Content:   "hi",
		Timestamp: time.Now(),
	}

	n, err := NewNotification(msg)
	require.NoError(t, err)
	assert.NotEmpty(t, n.LocalID)
	assert.Equal(t, "hi", n.Message.Content)
	assert.False(t, n.ReceivedAt.IsZero())
}

func TestNotificationValidate(t *testing.T) {
	tests := []struct {
		name    string
		msg     Message
		wantErr error
	}{
		{
			name:    "valid",
			msg:     Message{ID: "1", ChannelID: "2", AuthorID: "3"},
			wantErr: nil,
		},
		{
			name:    "missing channel",
			msg:     Message{ID: "1", AuthorID: "3"},
			wantErr: ErrEmptyChannelID,
		},
		{
			name:    "missing message id",
			msg:     Message{ChannelID: "2", AuthorID: "3"},
			wantErr: ErrEmptyMessageID,
		},
		{
			name:    "missing author",
			msg:     Message{ID: "1", ChannelID: "2"},
			wantErr: ErrEmptyAuthorID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Notification{LocalID: "x", Message: tt.msg}
			err := n.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestIsDirect(t *testing.T) {
	dm := Message{ChannelID: "1"}
	assert.True(t, dm.IsDirect())

	guild := Message{ChannelID: "1", GuildID: "9"}
	assert.False(t, guild.IsDirect())
}

func TestAuthorLabel(t *testing.T) {
	m := Message{Username: "alice", DisplayName: "Alice A"}
	assert.Equal(t, "Alice A", m.AuthorLabel())

	m.DisplayName = ""
	assert.Equal(t, "alice", m.AuthorLabel())
}

func TestAvatarURL(t *testing.T) {
	r := NewAvatarResolver("", 0)

	tests := []struct {
		name   string
		userID string
		hash   string
		want   string
	}{
		{
			name:   "static hash",
			userID: "80351110224678912",
			hash:   "8342729096ea3675442027381ff50dfe",
			want:   "https://cdn.discordapp.com/avatars/80351110224678912/8342729096ea3675442027381ff50dfe.png",
		},
		{
			name:   "animated hash",
			userID: "80351110224678912",
			hash:   "a_8342729096ea3675442027381ff50dfe",
			want:   "https://cdn.discordapp.com/avatars/80351110224678912/a_8342729096ea3675442027381ff50dfe.gif",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.URL(tt.userID, tt.hash))
		})
	}
}

func TestAvatarURL_DefaultDeterministic(t *testing.T) {
	r := NewAvatarResolver("https://cdn.example.net/", 6)

	first := r.URL("80351110224678912", "")
	assert.Contains(t, first, "https://cdn.example.net/embed/avatars/")
	assert.Contains(t, first, ".png")

	// Same user always resolves to the same default avatar.
	assert.Equal(t, first, r.URL("80351110224678912", ""))

	// Non-numeric ids still resolve deterministically.
	odd := r.URL("not-a-snowflake", "")
	assert.Equal(t, odd, r.URL("not-a-snowflake", ""))
}

func TestEscapeMarkupRoundTrip(t *testing.T) {
	inputs := []string{
		`<script>alert("x")</script>`,
		`a & b < c > d`,
		`quotes "double" and 'single'`,
		`plain text`,
		`<b>bold</b> &amp; nested`,
	}

	for _, in := range inputs {
		escaped := EscapeMarkup(in)
		assert.NotContains(t, escaped, "<")
		assert.NotContains(t, escaped, ">")
		assert.Equal(t, in, UnescapeMarkup(escaped))
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Now()
	tests := []struct {
		age  time.Duration
		want string
	}{
		{30 * time.Second, "now"},
		{5 * time.Minute, "5m"},
		{3 * time.Hour, "3h"},
		{49 * time.Hour, "2d"},
	}

	for _, tt := range tests {
		m := Message{Timestamp: now.Add(-tt.age)}
		assert.Equal(t, tt.want, m.RelativeTime())
	}
}
