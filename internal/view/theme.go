package view

import "github.com/charmbracelet/lipgloss"

// Theme is the palette used by the terminal views. Colors are ANSI 256 codes.
type Theme struct {
	Title       lipgloss.Color
	Header      lipgloss.Color
	DayText     lipgloss.Color
	PhotoDay    lipgloss.Color
	FaintText   lipgloss.Color
	Label       lipgloss.Color
	BorderColor lipgloss.Color
}

// DefaultTheme targets dark terminals.
var DefaultTheme = Theme{
	Title:       lipgloss.Color("213"),
	Header:      lipgloss.Color("245"),
	DayText:     lipgloss.Color("252"),
	PhotoDay:    lipgloss.Color("42"),
	FaintText:   lipgloss.Color("240"),
	Label:       lipgloss.Color("111"),
	BorderColor: lipgloss.Color("238"),
}
