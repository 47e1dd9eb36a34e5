package main

import "github.com/charmbracelet/lipgloss"

// Semantic colors shared across commands.
var (
	styleTitle   = lipgloss.NewStyle().Bold(true)
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")).Bold(true)
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")).Bold(true)
	styleWarning = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")).Bold(true)
	styleMuted   = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f8c99"))
)
