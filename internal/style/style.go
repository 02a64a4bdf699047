package style

import (
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

var (
	colorPink      = lipgloss.Color("205")
	colorDarkGray  = lipgloss.Color("240")
	colorLightGray = lipgloss.Color("229")
	colorBlue      = lipgloss.Color("57")
	colorCyan      = lipgloss.Color("212")
	colorGreen     = lipgloss.Color("42")
	colorRed       = lipgloss.Color("196")
)

var (
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	SuccessStyle = lipgloss.NewStyle().Foreground(colorGreen)
)

var (
	BaseStyle          = lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(colorDarkGray)
	HighlightFontStyle = lipgloss.NewStyle().Foreground(colorCyan)
	DocStyle           = lipgloss.NewStyle().Margin(1, 2)
	TitleStyle         = lipgloss.NewStyle().Bold(true).Foreground(colorPink)
	LabelStyle         = lipgloss.NewStyle().Foreground(colorDarkGray)
	MessageStyle       = lipgloss.NewStyle().Foreground(colorLightGray)
	HelpStyle          = lipgloss.NewStyle().Faint(true)
)

// NewSpinner creates a spinner with a consistent style.
func NewSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(colorPink)
	return s
}

// NewTableStyles returns the default table styles with our selection colors.
func NewTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Selected = styles.Selected.Foreground(colorLightGray).Background(colorBlue).Bold(false)
	return styles
}

func NewProgressBar() progress.Model {
	return progress.New(progress.WithDefaultGradient(), progress.WithWidth(40))
}

// File picker styles
var (
	CursorStyle     = lipgloss.NewStyle().Foreground(colorCyan).SetString("> ")
	SelectedStyle   = lipgloss.NewStyle().Foreground(colorGreen).SetString("[x] ")
	DeselectedStyle = lipgloss.NewStyle().Foreground(colorDarkGray).SetString("[ ] ")
	DirStyle        = lipgloss.NewStyle().Foreground(colorPink)
	HeaderStyle     = lipgloss.NewStyle().Bold(true)
)
