package sugar

import (
	"bytes"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type quitModel struct{ err error }

func (m quitModel) Init() tea.Cmd                       { return tea.Quit }
func (m quitModel) Update(tea.Msg) (tea.Model, tea.Cmd) { return m, nil }
func (m quitModel) View() string                        { return "" }
func (m quitModel) GetError() error                     { return m.err }

func TestSugar_RunProgramWithErrors(t *testing.T) {
	t.Parallel()

	opts := func() []tea.ProgramOption {
		return []tea.ProgramOption{tea.WithInput(nil), tea.WithOutput(&bytes.Buffer{})}
	}

	_, err := RunProgramWithErrors(quitModel{}, opts()...)
	require.NoError(t, err)

	boom := errors.New("daemon unreachable")
	model, err := RunProgramWithErrors(quitModel{err: boom}, opts()...)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, quitModel{err: boom}, model)
}
