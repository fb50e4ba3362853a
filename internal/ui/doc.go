// Package ui holds the lipgloss styles used for CLI output.
//
// Styles degrade to plain text when the output is not a terminal, so command output
// stays readable in pipes and tests.
package ui
