package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AndrewLester/timesync/internal/rpc"
	"github.com/beevik/ntp"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_KeepsLowestRTTSample(t *testing.T) {
	t.Parallel()

	var model tea.Model = newQueryModel("192.0.2.1", 123, time.Second)
	rtts := []time.Duration{40, 12, 25, 90, 18}
	for i, rtt := range rtts {
		var cmd tea.Cmd
		model, cmd = model.Update(querySampleMessage{resp: &ntp.Response{
			ClockOffset: time.Duration(i+1) * time.Millisecond,
			RTT:         rtt * time.Millisecond,
			Stratum:     2,
		}})
		require.NotNil(t, cmd)
	}

	m := model.(queryCommandModel)
	require.NoError(t, m.GetError())
	assert.Equal(t, 5, m.samples)
	assert.Equal(t, 12*time.Millisecond, m.best.RTT)
	assert.Equal(t, "+0.002000 +/- 0.006000 192.0.2.1 stratum 2", m.result)
	assert.Empty(t, m.View())
}

func TestQuery_AllSamplesFailed(t *testing.T) {
	t.Parallel()

	timeout := errors.New("i/o timeout")
	var model tea.Model = newQueryModel("192.0.2.1", 123, time.Second)
	for i := 0; i < querySamples; i++ {
		model, _ = model.Update(querySampleMessage{err: timeout})
	}

	m := model.(queryCommandModel)
	require.ErrorIs(t, m.GetError(), timeout)
	assert.Empty(t, m.result)
}

func TestQuery_ProgressView(t *testing.T) {
	t.Parallel()

	var model tea.Model = newQueryModel("192.0.2.1", 123, time.Second)
	model, _ = model.Update(querySampleMessage{err: errors.New("i/o timeout")})
	view := model.View()
	assert.True(t, strings.Contains(view, "Query"), view)
	assert.True(t, strings.Contains(view, "q: exit"), view)
}

func TestStatus_Rows(t *testing.T) {
	t.Parallel()

	rows := statusRows(rpc.Status{
		Upstream:       "sg.pool.ntp.org:123",
		Interval:       time.Minute,
		Responder:      "listening",
		LastSync:       time.Now().Add(-3 * time.Second),
		LastOffset:     1500 * time.Microsecond,
		LastRTT:        20 * time.Millisecond,
		LastAdjustment: "slew",
		Cycles:         3,
		Failures:       1,
		Requests:       4,
		Responses:      3,
		Malformed:      1,
	})

	values := map[string]string{}
	for _, row := range rows {
		values[row[0]] = row[1]
	}
	assert.Equal(t, "sg.pool.ntp.org:123", values["Upstream"])
	assert.Equal(t, "1m0s", values["Interval"])
	assert.Equal(t, "1.5", values["Offset (ms)"])
	assert.Equal(t, "20", values["RTT (ms)"])
	assert.Equal(t, "3 / 1", values["Cycles / failed"])
	assert.Equal(t, "-", values["Listen"])
	assert.Equal(t, "4 (3 answered, 1 malformed, 0 failed)", values["Requests"])
	assert.Contains(t, values["Last sync"], "ago")

	never := statusRows(rpc.Status{})
	assert.Equal(t, "never", never[2][1])
	assert.Equal(t, "-", never[3][1])
}
