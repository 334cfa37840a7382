package timesync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/beevik/ntp"
)

// ErrUpstreamSync wraps failures to query the upstream server or to adjust
// the local clock.
var ErrUpstreamSync = errors.New("upstream time sync failed")

// Client contacts an upstream time server and adjusts the local clock.
type Client interface {
	Sync(ctx context.Context, host string, port int) (*SyncResult, error)
}

type SyncResult struct {
	Host        string
	Port        int
	Offset      time.Duration
	RTT         time.Duration
	Stratum     uint8
	ReferenceID uint32
	ServerTime  time.Time
	Adjustment  Adjustment
	DryRun      bool
}

func (r *SyncResult) String() string {
	action := r.Adjustment.String()
	if r.DryRun {
		action += " (dry run)"
	}
	return fmt.Sprintf("synced with %s stratum %d: offset %+v rtt %v adjustment %s",
		r.Host, r.Stratum, r.Offset, r.RTT, action)
}

type QueryFunc func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

type NTPClientConfig struct {
	Timeout  time.Duration
	Adjuster ClockAdjuster

	// Query defaults to ntp.QueryWithOptions.
	Query QueryFunc
}

func (cfg *NTPClientConfig) Validate() error {
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be greater than 0")
	}
	if cfg.Adjuster == nil {
		return errors.New("clock adjuster is required")
	}
	return nil
}

// NTPClient measures the clock offset with a single SNTP exchange and hands
// it to a ClockAdjuster.
type NTPClient struct {
	log *slog.Logger
	cfg *NTPClientConfig
}

func NewNTPClient(log *slog.Logger, cfg *NTPClientConfig) (*NTPClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Query == nil {
		cfg.Query = ntp.QueryWithOptions
	}
	return &NTPClient{log: log, cfg: cfg}, nil
}

func (c *NTPClient) Sync(ctx context.Context, host string, port int) (*SyncResult, error) {
	resp, err := c.query(ctx, host, port)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %w", ErrUpstreamSync, host, err)
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: invalid response from %s: %w", ErrUpstreamSync, host, err)
	}

	res := &SyncResult{
		Host:        host,
		Port:        port,
		Offset:      resp.ClockOffset,
		RTT:         resp.RTT,
		Stratum:     resp.Stratum,
		ReferenceID: resp.ReferenceID,
		ServerTime:  resp.Time,
	}
	_, res.DryRun = c.cfg.Adjuster.(DryRunClock)

	c.log.Debug("sync: upstream response", "host", host, "offset", resp.ClockOffset, "rtt", resp.RTT, "stratum", resp.Stratum)

	res.Adjustment, err = c.cfg.Adjuster.Adjust(resp.ClockOffset)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrUpstreamSync, err)
	}
	return res, nil
}

func (c *NTPClient) query(ctx context.Context, host string, port int) (*ntp.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		resp *ntp.Response
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		resp, err := c.cfg.Query(host, ntp.QueryOptions{
			Timeout: c.cfg.Timeout,
			Port:    port,
		})
		ch <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.resp, r.err
	}
}
