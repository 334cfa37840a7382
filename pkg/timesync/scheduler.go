package timesync

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/AndrewLester/timesync/internal/metrics"
	"github.com/jonboulle/clockwork"
)

type SchedulerConfig struct {
	Clock    clockwork.Clock
	Client   Client
	Host     string
	Port     int
	Interval time.Duration
}

func (cfg *SchedulerConfig) Validate() error {
	if cfg.Clock == nil {
		return errors.New("clock is required")
	}
	if cfg.Client == nil {
		return errors.New("client is required")
	}
	if cfg.Host == "" {
		return errors.New("upstream host is required")
	}
	if cfg.Port <= 0 {
		return errors.New("upstream port must be greater than 0")
	}
	if cfg.Interval <= 0 {
		return errors.New("interval must be greater than 0")
	}
	return nil
}

// SyncStatus describes the most recent synchronization cycle.
type SyncStatus struct {
	At       time.Time
	Result   *SyncResult
	Err      error
	Cycles   uint64
	Failures uint64
}

// Scheduler synchronizes with the upstream server once at startup and then
// once per interval. A failed cycle waits for the next tick.
type Scheduler struct {
	log *slog.Logger
	cfg *SchedulerConfig

	mu   sync.Mutex
	last SyncStatus
}

func NewScheduler(log *slog.Logger, cfg *SchedulerConfig) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scheduler{log: log, cfg: cfg}, nil
}

func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("sync: starting", "host", s.cfg.Host, "port", s.cfg.Port, "interval", s.cfg.Interval)

	ticker := s.cfg.Clock.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	_, _ = s.SyncOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sync: context done, stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			_, _ = s.SyncOnce(ctx)
		}
	}
}

// SyncOnce runs a single synchronization cycle and records its outcome.
func (s *Scheduler) SyncOnce(ctx context.Context) (*SyncResult, error) {
	startedAt := s.cfg.Clock.Now()
	defer func() {
		metrics.SyncDuration.Observe(s.cfg.Clock.Since(startedAt).Seconds())
	}()

	s.log.Debug("sync: connecting to time server", "host", s.cfg.Host, "port", s.cfg.Port)
	res, err := s.cfg.Client.Sync(ctx, s.cfg.Host, s.cfg.Port)

	s.mu.Lock()
	s.last.At = startedAt
	s.last.Result = res
	s.last.Err = err
	s.last.Cycles++
	if err != nil {
		s.last.Failures++
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("sync: failed", "host", s.cfg.Host, "error", err)
		metrics.SyncTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.SyncTotal.WithLabelValues("ok").Inc()
	metrics.SyncOffset.Set(res.Offset.Seconds())
	metrics.SyncRTT.Set(res.RTT.Seconds())
	s.log.Info("sync: " + res.String())
	return res, nil
}

func (s *Scheduler) Last() SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
