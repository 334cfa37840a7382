package main

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/AndrewLester/timesync/internal/config"
	"github.com/AndrewLester/timesync/internal/sugar"
	"github.com/AndrewLester/timesync/internal/ui"
	"github.com/beevik/ntp"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	padding  = 10
	maxWidth = 80
)

// Number of exchanges per query. The one with the lowest round trip wins.
const querySamples = 5

func handleQueryCommand(server string, timeout time.Duration) error {
	host, port, err := (&config.Config{Server: server}).Upstream()
	if err != nil {
		return err
	}

	m := newQueryModel(host, port, timeout)
	m.query = ntp.QueryWithOptions

	resultModel, err := sugar.RunProgramWithErrors(m)
	if err != nil {
		return err
	}
	fmt.Println(resultModel.(queryCommandModel).result)
	return nil
}

type queryCommandModel struct {
	progress progress.Model
	query    func(host string, opt ntp.QueryOptions) (*ntp.Response, error)

	host    string
	port    int
	timeout time.Duration

	samples int
	best    *ntp.Response
	lastErr error

	result string
	err    error
}

type querySampleMessage struct {
	resp *ntp.Response
	err  error
}

func newQueryModel(host string, port int, timeout time.Duration) queryCommandModel {
	return queryCommandModel{
		progress: progress.New(progress.WithScaledGradient("#68b1b1", "#6ea4ff")),
		host:     host,
		port:     port,
		timeout:  timeout,
	}
}

func querySampleCommand(m queryCommandModel) tea.Cmd {
	return func() tea.Msg {
		resp, err := m.query(m.host, ntp.QueryOptions{Timeout: m.timeout, Port: m.port})
		if err == nil {
			err = resp.Validate()
		}
		return querySampleMessage{resp: resp, err: err}
	}
}

func (m queryCommandModel) Init() tea.Cmd {
	return querySampleCommand(m)
}

func (m queryCommandModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.err = errors.New("query canceled")
			return m, tea.Quit
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.progress.Width = msg.Width - padding*2 - 4
		if m.progress.Width > maxWidth {
			m.progress.Width = maxWidth
		}
		return m, nil
	case querySampleMessage:
		m.samples++
		if msg.err != nil {
			m.lastErr = msg.err
		} else if m.best == nil || msg.resp.RTT < m.best.RTT {
			m.best = msg.resp
		}

		if m.samples < querySamples {
			return m, querySampleCommand(m)
		}
		if m.best == nil {
			m.err = fmt.Errorf("no usable response from %s: %w", m.host, m.lastErr)
			return m, tea.Quit
		}
		m.result = formatQueryResult(m.host, m.best)
		return m, tea.Quit
	default:
		return m, nil
	}
}

func (m queryCommandModel) View() (s string) {
	if m.err != nil || m.result != "" {
		return
	}

	s += ui.Title("timesyncd - Query") + "\n\n"
	s += m.progress.ViewAs(float64(m.samples)/querySamples) + "\n\n"
	s += ui.Help("q: exit") + "\n"
	return
}

func (m queryCommandModel) GetError() error {
	return m.err
}

func formatQueryResult(host string, resp *ntp.Response) string {
	s := fmt.Sprintf("%+.6f +/- %.6f %s", resp.ClockOffset.Seconds(), (resp.RTT / 2).Seconds(), host)
	if ip := net.ParseIP(host); ip == nil {
		if addr, err := net.ResolveIPAddr("ip", host); err == nil {
			s += " " + addr.String()
		}
	}
	return fmt.Sprintf("%s stratum %d", s, resp.Stratum)
}
