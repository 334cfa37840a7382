package rpc

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AndrewLester/timesync/pkg/sntp"
	"github.com/AndrewLester/timesync/pkg/timesync"
	"github.com/lmittmann/tint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticProvider timesync.Status

func (p staticProvider) Status() timesync.Status { return timesync.Status(p) }

func TestRPC_NewStatus(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewStatus(timesync.Status{
		Upstream:   "sg.pool.ntp.org:123",
		Interval:   time.Minute,
		Responder:  sntp.StateListening,
		ListenAddr: "0.0.0.0:123",
		Requests:   sntp.Stats{Requests: 5, Responses: 3, Malformed: 1, Failed: 1},
		Sync: timesync.SyncStatus{
			At:       at,
			Result:   &timesync.SyncResult{Offset: 2 * time.Millisecond, RTT: 9 * time.Millisecond, Stratum: 2, Adjustment: timesync.AdjustSlew},
			Cycles:   4,
			Failures: 1,
		},
	})

	assert.Equal(t, Status{
		Upstream:       "sg.pool.ntp.org:123",
		Interval:       time.Minute,
		Responder:      "listening",
		ListenAddr:     "0.0.0.0:123",
		Requests:       5,
		Responses:      3,
		Malformed:      1,
		Failed:         1,
		LastSync:       at,
		LastOffset:     2 * time.Millisecond,
		LastRTT:        9 * time.Millisecond,
		LastStratum:    2,
		LastAdjustment: "slew",
		Cycles:         4,
		Failures:       1,
	}, st)

	failed := NewStatus(timesync.Status{Sync: timesync.SyncStatus{Err: errors.New("upstream time sync failed: timeout")}})
	assert.Equal(t, "upstream time sync failed: timeout", failed.LastError)
	assert.Equal(t, "idle", failed.Responder)
}

func TestRPC_StatusServer(t *testing.T) {
	t.Parallel()

	socket := filepath.Join(t.TempDir(), "timesyncd.sock")
	log := slog.New(tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug}))
	server := NewStatusServer(log, socket, staticProvider(timesync.Status{
		Upstream:  "sg.pool.ntp.org:123",
		Responder: sntp.StateResponding,
		Sync:      timesync.SyncStatus{Cycles: 7},
	}))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- server.Listen(ctx) }()

	var client *Client
	require.Eventually(t, func() bool {
		c, err := Dial(socket)
		if err != nil {
			return false
		}
		client = c
		return true
	}, 2*time.Second, 10*time.Millisecond)
	defer client.Close()

	st, err := client.FetchStatus()
	require.NoError(t, err)
	assert.Equal(t, "sg.pool.ntp.org:123", st.Upstream)
	assert.Equal(t, "responding", st.Responder)
	assert.Equal(t, uint64(7), st.Cycles)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("rpc server did not stop")
	}
	_, err = os.Stat(socket)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
