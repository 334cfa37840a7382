package timesync_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/AndrewLester/timesync/internal/config"
	"github.com/AndrewLester/timesync/pkg/sntp"
	"github.com/AndrewLester/timesync/pkg/timesync"
	"github.com/beevik/ntp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfig(port int) *config.Config {
	cfg := config.Default()
	cfg.ListenHost = "127.0.0.1"
	cfg.UDPPort = port
	return cfg
}

func TestTimesync_ServiceConfig_Validate(t *testing.T) {
	t.Parallel()

	_, err := timesync.NewService(log, &timesync.ServiceConfig{Config: config.Default(), Client: &fakeClient{}})
	require.Error(t, err)
	_, err = timesync.NewService(log, &timesync.ServiceConfig{Clock: clockwork.NewFakeClock(), Client: &fakeClient{}})
	require.Error(t, err)
	_, err = timesync.NewService(log, &timesync.ServiceConfig{Clock: clockwork.NewFakeClock(), Config: config.Default()})
	require.Error(t, err)
}

func TestTimesync_Service_PortConflictKeepsSyncSchedule(t *testing.T) {
	t.Parallel()

	held, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer held.Close()

	clk := clockwork.NewFakeClock()
	client := &fakeClient{}
	authority := &fakeAuthority{}
	cfg := newTestConfig(held.LocalAddr().(*net.UDPAddr).Port)

	svc, err := timesync.NewService(log, &timesync.ServiceConfig{
		Clock:         clk,
		Config:        cfg,
		Client:        client,
		TimeAuthority: authority,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	svc.Start(ctx)
	assert.Equal(t, 1, authority.Calls())
	assert.Equal(t, 1, client.Calls())

	status := svc.Status()
	assert.Equal(t, sntp.StateIdle, status.Responder)
	assert.Empty(t, status.ListenAddr)
	assert.Equal(t, "sg.pool.ntp.org:123", status.Upstream)

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.NoError(t, clk.BlockUntilContext(ctx, 1))
	require.Eventually(t, func() bool { return client.Calls() == 2 }, 2*time.Second, 5*time.Millisecond)
	clk.Advance(cfg.PoolInterval)
	require.Eventually(t, func() bool { return client.Calls() == 3 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("service did not stop")
	}
}

func TestTimesync_Service_Responder(t *testing.T) {
	t.Parallel()

	svc, err := timesync.NewService(log, &timesync.ServiceConfig{
		Clock:  clockwork.NewRealClock(),
		Config: newTestConfig(0),
		Client: &fakeClient{},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()
	svc.Start(ctx)

	require.Eventually(t, func() bool {
		return svc.Status().Responder == sntp.StateListening
	}, 2*time.Second, 5*time.Millisecond)

	addr, err := net.ResolveUDPAddr("udp", svc.Status().ListenAddr)
	require.NoError(t, err)

	resp, err := ntp.QueryWithOptions("127.0.0.1", ntp.QueryOptions{Timeout: 2 * time.Second, Port: addr.Port})
	require.NoError(t, err)
	require.NoError(t, resp.Validate())
	assert.Equal(t, uint8(2), resp.Stratum)

	require.Eventually(t, func() bool {
		return svc.Status().Requests.Responses == 1
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, svc.Close())
	assert.Equal(t, sntp.StateStopped, svc.Status().Responder)
}

func TestTimesync_Service_StartOptions(t *testing.T) {
	t.Parallel()

	t.Run("authority failure is not fatal", func(t *testing.T) {
		t.Parallel()

		authority := &fakeAuthority{err: errors.New("Access denied")}
		client := &fakeClient{}
		cfg := newTestConfig(0)
		cfg.EnableTimeSyncService = false

		svc, err := timesync.NewService(log, &timesync.ServiceConfig{
			Clock:         clockwork.NewFakeClock(),
			Config:        cfg,
			Client:        client,
			TimeAuthority: authority,
		})
		require.NoError(t, err)

		svc.Start(t.Context())
		assert.Equal(t, 1, authority.Calls())
		assert.Equal(t, 1, client.Calls())
		assert.Equal(t, sntp.StateIdle, svc.Status().Responder)
		require.NoError(t, svc.Close())
	})

	t.Run("authority left alone when configured", func(t *testing.T) {
		t.Parallel()

		authority := &fakeAuthority{}
		cfg := newTestConfig(0)
		cfg.DisableSystemTimeService = false
		cfg.EnableTimeSyncService = false

		svc, err := timesync.NewService(log, &timesync.ServiceConfig{
			Clock:         clockwork.NewFakeClock(),
			Config:        cfg,
			Client:        &fakeClient{},
			TimeAuthority: authority,
		})
		require.NoError(t, err)

		svc.Start(t.Context())
		assert.Equal(t, 0, authority.Calls())
	})
}
