package model

import (
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
)

// Avatar CDN defaults.
const (
	DefaultCDNBase          = "https://cdn.discordapp.com"
	DefaultAvatarCount      = 6
	animatedHashPrefix      = "a_"
	snowflakeTimestampShift = 22
)

// AvatarResolver builds deterministic avatar URLs from a user id and an
// optional avatar hash.
type AvatarResolver struct {
	Base         string // CDN base URL, no trailing slash
	DefaultCount int    // size of the default avatar set
}

// NewAvatarResolver returns a resolver with the given base, falling back to
// the stock CDN and default-set size for zero values.
func NewAvatarResolver(base string, defaultCount int) AvatarResolver {
	if base == "" {
		base = DefaultCDNBase
	}
	if defaultCount <= 0 {
		defaultCount = DefaultAvatarCount
	}
	return AvatarResolver{
		Base:         strings.TrimRight(base, "/"),
		DefaultCount: defaultCount,
	}
}

// URL returns the avatar URL for the user. A present hash maps to the
// per-user CDN path, animated hashes (a_ prefix) get the gif extension.
// An absent hash selects one of the default avatars by a hash of the
// user id.
func (r AvatarResolver) URL(userID, avatarHash string) string {
	if avatarHash != "" {
		ext := "png"
		if strings.HasPrefix(avatarHash, animatedHashPrefix) {
			ext = "gif"
		}
		return fmt.Sprintf("%s/avatars/%s/%s.%s", r.Base, userID, avatarHash, ext)
	}
	return fmt.Sprintf("%s/embed/avatars/%d.png", r.Base, r.defaultIndex(userID))
}

// defaultIndex derives a stable index into the default avatar set.
// Numeric snowflake ids use the timestamp bits, anything else falls back
// to an FNV hash so the choice stays deterministic per user.
func (r AvatarResolver) defaultIndex(userID string) int {
	if id, err := strconv.ParseUint(userID, 10, 64); err == nil {
		return int((id >> snowflakeTimestampShift) % uint64(r.DefaultCount))
	}
	h := fnv.New32a()
	h.Write([]byte(userID))
	return int(h.Sum32() % uint32(r.DefaultCount))
}
