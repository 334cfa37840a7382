package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AndrewLester/timesync/internal/rpc"
	"github.com/AndrewLester/timesync/internal/sugar"
	"github.com/AndrewLester/timesync/internal/ui"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const fetchStatusPeriod = time.Second * 5

func handleStatusUI(socket string) error {
	client, err := rpc.Dial(socket)
	if err != nil {
		return err
	}
	defer client.Close()

	m := statusUIModel{client: client, table: setupTable()}
	_, err = sugar.RunProgramWithErrors(m)
	return err
}

type statusUIModel struct {
	client *rpc.Client
	table  table.Model

	status           rpc.Status
	daemonKillStatus string
	err              error
}

type fetchStatusMessage rpc.Status
type statusErrorMessage struct{ err error }
type tickMsg time.Time

func fetchStatusCommand(m statusUIModel) tea.Cmd {
	return func() tea.Msg {
		status, err := m.client.FetchStatus()
		if err != nil {
			return statusErrorMessage{fmt.Errorf("failed to get status from daemon: %w", err)}
		}
		return fetchStatusMessage(status)
	}
}

func stopDaemonCommand() tea.Cmd {
	return func() tea.Msg {
		if err := killDaemon(); err != nil {
			return statusErrorMessage{err}
		}
		return tea.Quit()
	}
}

func tickCommand(duration time.Duration) tea.Cmd {
	return tea.Tick(duration, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m statusUIModel) Init() tea.Cmd {
	return fetchStatusCommand(m)
}

func (m statusUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "stop", "s":
			m.daemonKillStatus = "Stopping " + daemonName
			return m, stopDaemonCommand()
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	case fetchStatusMessage:
		m.status = rpc.Status(msg)
		m.table.SetRows(statusRows(m.status))
		return m, tickCommand(fetchStatusPeriod)
	case statusErrorMessage:
		m.err = msg.err
		return m, tea.Quit
	case tickMsg:
		return m, fetchStatusCommand(m)
	default:
		return m, nil
	}
}

func (m statusUIModel) View() (s string) {
	if m.err != nil {
		return
	}

	s += ui.Title("timesyncd") + "\n"
	s += ui.TableBase(m.table.View()) + "\n\n"
	if m.status.LastError != "" {
		s += ui.Error(m.status.LastError) + "\n\n"
	}
	if m.daemonKillStatus != "" {
		s += m.daemonKillStatus + "\n"
	} else {
		s += ui.Help("q: exit, s: stop daemon") + "\n"
	}
	return
}

func (m statusUIModel) GetError() error {
	return m.err
}

func statusRows(st rpc.Status) []table.Row {
	lastSync := "never"
	if !st.LastSync.IsZero() {
		lastSync = fmt.Sprintf("%s ago", time.Since(st.LastSync).Truncate(time.Second))
	}
	offset, rtt := "-", "-"
	if st.LastAdjustment != "" {
		offset = strconv.FormatFloat(float64(st.LastOffset)/float64(time.Millisecond), 'G', 5, 64)
		rtt = strconv.FormatFloat(float64(st.LastRTT)/float64(time.Millisecond), 'G', 5, 64)
	}
	listen := st.ListenAddr
	if listen == "" {
		listen = "-"
	}

	return []table.Row{
		{"Upstream", st.Upstream},
		{"Interval", st.Interval.String()},
		{"Last sync", lastSync},
		{"Offset (ms)", offset},
		{"RTT (ms)", rtt},
		{"Adjustment", st.LastAdjustment},
		{"Cycles / failed", fmt.Sprintf("%d / %d", st.Cycles, st.Failures)},
		{"Responder", st.Responder},
		{"Listen", listen},
		{"Requests", fmt.Sprintf("%d (%d answered, %d malformed, %d failed)", st.Requests, st.Responses, st.Malformed, st.Failed)},
	}
}

func setupTable() table.Model {
	columns := []table.Column{
		{Title: "Field", Width: 18},
		{Title: "Value", Width: 50},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ui.TableGray).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("218")).
		Background(lipgloss.Color("70")).
		Bold(false)
	t.SetStyles(s)

	return t
}
