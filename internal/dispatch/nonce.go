package dispatch

import (
	"strconv"
	"sync/atomic"
	"time"
)

// epochMillis is the host's snowflake epoch (2015-01-01T00:00:00Z).
const epochMillis = 1420070400000

const timestampShift = 22

// NonceSource generates locally-unique, strictly increasing identifiers
// derived from the current time. The host uses them for request
// de-duplication and ordering.
type NonceSource struct {
	last atomic.Uint64
	now  func() time.Time
}

// NewNonceSource returns a NonceSource using the wall clock.
func NewNonceSource() *NonceSource {
	return &NonceSource{now: time.Now}
}

// Next returns the next nonce as a decimal string.
func (s *NonceSource) Next() string {
	for {
		candidate := uint64(s.now().UnixMilli()-epochMillis) << timestampShift
		last := s.last.Load()
		if candidate <= last {
			candidate = last + 1
		}
		if s.last.CompareAndSwap(last, candidate) {
			return strconv.FormatUint(candidate, 10)
		}
	}
}
