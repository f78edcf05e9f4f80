package primer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeChannels struct {
	jumps   int
	fetches int
	probes  int

	jumpErr  error
	fetchErr error
	probeErr error
}

func (c *fakeChannels) JumpToPresent(_ context.Context, _ string) error {
	c.jumps++
	return c.jumpErr
}

func (c *fakeChannels) FetchMessages(_ context.Context, _ string, _ int) error {
	c.fetches++
	return c.fetchErr
}

func (c *fakeChannels) CachedMessageCount(_ context.Context, _ string) (int, error) {
	c.probes++
	return 3, c.probeErr
}

func TestWarm_AllSteps(t *testing.T) {
	ch := &fakeChannels{}
	p := New(ch, 30*time.Second, 50, nil)

	p.Warm(context.Background(), "c1")

	assert.Equal(t, 1, ch.jumps)
	assert.Equal(t, 1, ch.fetches)
	assert.Equal(t, 1, ch.probes)
	assert.Equal(t, 1, p.WarmCount())
}

func TestWarm_TTLSuppression(t *testing.T) {
	ch := &fakeChannels{}
	p := New(ch, 30*time.Second, 50, nil)

	now := time.Now()
	p.now = func() time.Time { return now }

	p.Warm(context.Background(), "c1")
	p.Warm(context.Background(), "c1") // within TTL, no-op
	assert.Equal(t, 1, ch.jumps)

	// A different channel is not suppressed.
	p.Warm(context.Background(), "c2")
	assert.Equal(t, 2, ch.jumps)

	// After the TTL elapses the channel warms again.
	now = now.Add(31 * time.Second)
	p.Warm(context.Background(), "c1")
	assert.Equal(t, 3, ch.jumps)
}

func TestWarm_StepFailuresDoNotAbort(t *testing.T) {
	ch := &fakeChannels{
		jumpErr:  errors.New("jump failed"),
		fetchErr: errors.New("fetch failed"),
		probeErr: errors.New("probe failed"),
	}
	p := New(ch, time.Second, 50, nil)

	// Must not panic and must run every step despite failures.
	p.Warm(context.Background(), "c1")

	assert.Equal(t, 1, ch.jumps)
	assert.Equal(t, 1, ch.fetches)
	assert.Equal(t, 1, ch.probes)
}
