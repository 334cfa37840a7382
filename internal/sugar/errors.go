package sugar

import (
	tea "github.com/charmbracelet/bubbletea"
)

// ErrorModel is a model that can finish with an error of its own, such as a
// failed query or an unreachable daemon.
type ErrorModel interface {
	tea.Model
	GetError() error
}

// RunProgramWithErrors runs model to completion and returns the model's own
// error. Bubble Tea errors take precedence.
func RunProgramWithErrors(model ErrorModel, opts ...tea.ProgramOption) (tea.Model, error) {
	resultModel, teaErr := tea.NewProgram(model, opts...).Run()
	if teaErr != nil {
		return resultModel, teaErr
	}
	if errorModel, ok := resultModel.(ErrorModel); ok {
		return resultModel, errorModel.GetError()
	}
	return resultModel, nil
}
