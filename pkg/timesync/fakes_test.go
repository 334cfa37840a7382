package timesync_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AndrewLester/timesync/pkg/timesync"
)

type fakeClient struct {
	mu     sync.Mutex
	calls  int
	hosts  []string
	offset time.Duration
	err    error
}

func (c *fakeClient) Sync(_ context.Context, host string, port int) (*timesync.SyncResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.hosts = append(c.hosts, fmt.Sprintf("%s:%d", host, port))
	if c.err != nil {
		return nil, fmt.Errorf("%w: %w", timesync.ErrUpstreamSync, c.err)
	}
	return &timesync.SyncResult{
		Host:       host,
		Port:       port,
		Offset:     c.offset,
		Adjustment: timesync.DecideAdjustment(c.offset),
	}, nil
}

func (c *fakeClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func (c *fakeClient) SetErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

type fakeAuthority struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (a *fakeAuthority) Disable(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	return a.err
}

func (a *fakeAuthority) Calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

type recordingAdjuster struct {
	mu      sync.Mutex
	offsets []time.Duration
	err     error
}

func (a *recordingAdjuster) Adjust(offset time.Duration) (timesync.Adjustment, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.offsets = append(a.offsets, offset)
	return timesync.DecideAdjustment(offset), a.err
}
