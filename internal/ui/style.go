package ui

import "github.com/charmbracelet/lipgloss"

var (
	TableGray = lipgloss.Color("240")

	Title = lipgloss.NewStyle().Inline(true).Bold(true).Foreground(lipgloss.Color("252")).Render
	Help  = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("241")).Render
	Error = lipgloss.NewStyle().Inline(true).Foreground(lipgloss.Color("203")).Render

	TableBase = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(TableGray).
			Render
)
