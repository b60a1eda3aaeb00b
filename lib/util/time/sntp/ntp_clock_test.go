package sntp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/beevik/ntp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNTPClient struct {
	mu        sync.Mutex
	responses map[string]*ntp.Response
	queries   []string
	timeouts  []time.Duration
}

func (c *mockNTPClient) QueryWithOptions(host string, options ntp.QueryOptions) (*ntp.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, host)
	c.timeouts = append(c.timeouts, options.Timeout)
	resp, ok := c.responses[host]
	if !ok {
		return nil, errors.New("unreachable")
	}
	return resp, nil
}

func goodResponse(offset time.Duration) *ntp.Response {
	return &ntp.Response{
		Time:        time.Now(),
		ClockOffset: offset,
		RTT:         20 * time.Millisecond,
		Stratum:     2,
		Leap:        ntp.LeapNoWarning,
	}
}

func TestSyncAppliesMedianOffset(t *testing.T) {
	client := &mockNTPClient{responses: map[string]*ntp.Response{
		"a": goodResponse(1 * time.Second),
		"b": goodResponse(3 * time.Second),
		"c": goodResponse(100 * time.Millisecond),
	}}
	clock := NewNTPClock(client, []string{"a", "b", "c", "down"}, time.Second)

	_, synced := clock.Offset()
	assert.False(t, synced)

	require.NoError(t, clock.Sync())
	offset, synced := clock.Offset()
	assert.True(t, synced)
	assert.Equal(t, time.Second, offset)
	assert.Equal(t, []string{"a", "b", "c", "down"}, client.queries)
	assert.Equal(t, time.Second, client.timeouts[0])

	assert.WithinDuration(t, time.Now().Add(time.Second), clock.Now(), 200*time.Millisecond)
}

func TestSyncEvenMedian(t *testing.T) {
	client := &mockNTPClient{responses: map[string]*ntp.Response{
		"a": goodResponse(2 * time.Second),
		"b": goodResponse(4 * time.Second),
	}}
	clock := NewNTPClock(client, []string{"a", "b"}, 0)
	require.NoError(t, clock.Sync())
	offset, _ := clock.Offset()
	assert.Equal(t, 3*time.Second, offset)
	assert.Equal(t, defaultQueryTimeout, client.timeouts[0])
}

func TestSyncFallsBackToSystemTime(t *testing.T) {
	unsynced := goodResponse(time.Hour)
	unsynced.Leap = ntp.LeapNotInSync
	client := &mockNTPClient{responses: map[string]*ntp.Response{"bad": unsynced}}
	clock := NewNTPClock(client, []string{"bad", "down"}, time.Second)

	assert.ErrorIs(t, clock.Sync(), ErrNoValidResponse)
	offset, synced := clock.Offset()
	assert.False(t, synced)
	assert.Zero(t, offset)
	assert.WithinDuration(t, time.Now(), clock.Now(), 200*time.Millisecond)
}

func TestSyncKeepsPreviousOffsetOnFailure(t *testing.T) {
	client := &mockNTPClient{responses: map[string]*ntp.Response{"a": goodResponse(time.Second)}}
	clock := NewNTPClock(client, []string{"a"}, time.Second)
	require.NoError(t, clock.Sync())

	client.mu.Lock()
	delete(client.responses, "a")
	client.mu.Unlock()

	assert.Error(t, clock.Sync())
	offset, synced := clock.Offset()
	assert.True(t, synced)
	assert.Equal(t, time.Second, offset)
}

func TestValidateResponse(t *testing.T) {
	assert.NoError(t, validateResponse(goodResponse(0)))
	assert.Error(t, validateResponse(nil))

	tests := map[string]func(*ntp.Response){
		"stratum zero":   func(r *ntp.Response) { r.Stratum = 0 },
		"stratum high":   func(r *ntp.Response) { r.Stratum = 16 },
		"slow rtt":       func(r *ntp.Response) { r.RTT = 5 * time.Second },
		"huge offset":    func(r *ntp.Response) { r.ClockOffset = -time.Hour },
		"zero time":      func(r *ntp.Response) { r.Time = time.Time{} },
		"root delay":     func(r *ntp.Response) { r.RootDelay = 2 * time.Second },
		"root dispersal": func(r *ntp.Response) { r.RootDispersion = 2 * time.Second },
	}
	for name, mutate := range tests {
		resp := goodResponse(0)
		mutate(resp)
		assert.Error(t, validateResponse(resp), name)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	client := &mockNTPClient{responses: map[string]*ntp.Response{"a": goodResponse(time.Second)}}
	clock := NewNTPClock(client, []string{"a"}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		clock.Run(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, synced := clock.Offset()
		return synced
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestSystemClock(t *testing.T) {
	var c Clock = SystemClock{}
	assert.WithinDuration(t, time.Now(), c.Now(), time.Second)
}
