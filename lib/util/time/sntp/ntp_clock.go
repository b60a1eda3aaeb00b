package sntp

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/go-i2p/crypto/rand"
	"github.com/go-i2p/logger"
)

var log = logger.GetGoI2PLogger()

// ErrNoValidResponse is returned by Sync when no server produced a usable
// response.
var ErrNoValidResponse = errors.New("no valid NTP response")

const (
	defaultQueryTimeout = 5 * time.Second
	retryInterval       = 30 * time.Second
)

// NTPClient queries a single NTP server.
type NTPClient interface {
	QueryWithOptions(host string, options ntp.QueryOptions) (*ntp.Response, error)
}

// DefaultNTPClient queries servers over the network.
type DefaultNTPClient struct{}

func (c *DefaultNTPClient) QueryWithOptions(host string, options ntp.QueryOptions) (*ntp.Response, error) {
	return ntp.QueryWithOptions(host, options)
}

// NTPClock is a Clock corrected by the median offset reported by NTP
// servers. It is safe for concurrent use.
type NTPClock struct {
	client  NTPClient
	servers []string
	timeout time.Duration

	mu     sync.RWMutex
	offset time.Duration
	synced bool
}

var _ Clock = (*NTPClock)(nil)

// NewNTPClock returns a clock that queries servers with client. A nil
// client uses DefaultNTPClient; a non-positive timeout uses 5 seconds.
func NewNTPClock(client NTPClient, servers []string, timeout time.Duration) *NTPClock {
	if client == nil {
		client = &DefaultNTPClient{}
	}
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &NTPClock{
		client:  client,
		servers: slices.Clone(servers),
		timeout: timeout,
	}
}

// Now returns system time adjusted by the last synced offset.
func (c *NTPClock) Now() time.Time {
	c.mu.RLock()
	offset := c.offset
	c.mu.RUnlock()
	return time.Now().Add(offset)
}

// Offset returns the applied offset and whether any sync has succeeded.
func (c *NTPClock) Offset() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset, c.synced
}

// Sync queries every server once and applies the median offset of the valid
// responses. The previous offset is kept when none are valid.
func (c *NTPClock) Sync() error {
	offsets := make([]time.Duration, 0, len(c.servers))
	for _, server := range c.servers {
		resp, err := c.client.QueryWithOptions(server, ntp.QueryOptions{Timeout: c.timeout})
		if err != nil {
			log.WithFields(logger.Fields{
				"at":     "NTPClock.Sync",
				"server": server,
				"error":  err.Error(),
			}).Debug("NTP query failed")
			continue
		}
		if err := validateResponse(resp); err != nil {
			log.WithFields(logger.Fields{
				"at":     "NTPClock.Sync",
				"server": server,
				"reason": err.Error(),
			}).Debug("Discarding NTP response")
			continue
		}
		offsets = append(offsets, resp.ClockOffset)
	}
	if len(offsets) == 0 {
		return ErrNoValidResponse
	}

	offset := median(offsets)
	c.mu.Lock()
	c.offset = offset
	c.synced = true
	c.mu.Unlock()

	log.WithFields(logger.Fields{
		"at":        "NTPClock.Sync",
		"offset":    offset.String(),
		"responses": len(offsets),
	}).Debug("Clock offset updated")
	return nil
}

// Run syncs immediately and then every interval, plus up to half an interval
// of jitter, until ctx is done. After a failed sync it retries sooner.
func (c *NTPClock) Run(ctx context.Context, interval time.Duration) {
	for {
		wait := interval + time.Duration(rand.Int63n(int64(interval/2)+1))
		if err := c.Sync(); err != nil {
			log.WithError(err).Warn("NTP sync failed, keeping previous offset")
			wait = min(retryInterval, interval)
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func median(values []time.Duration) time.Duration {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
