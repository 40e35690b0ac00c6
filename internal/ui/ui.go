package ui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	Green     = lipgloss.Color("42")
	Amber     = lipgloss.Color("214")
	Red       = lipgloss.Color("196")
	Blue      = lipgloss.Color("39")
	Cyan      = lipgloss.Color("51")
	White     = lipgloss.Color("255")
	LightGray = lipgloss.Color("245")
)

var (
	successStyle = lipgloss.NewStyle().Foreground(Green).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(Cyan)
	debugStyle   = lipgloss.NewStyle().Foreground(LightGray)
	warnStyle    = lipgloss.NewStyle().Foreground(Amber).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(Red).Bold(true)
)

func Success(format string, a ...any) {
	fmt.Println(successStyle.Render(fmt.Sprintf(format, a...)))
}

func Info(format string, a ...any) {
	fmt.Println(infoStyle.Render(fmt.Sprintf(format, a...)))
}

func Debug(format string, a ...any) {
	fmt.Println(debugStyle.Render(fmt.Sprintf(format, a...)))
}

func Warn(format string, a ...any) {
	fmt.Println(warnStyle.Render(fmt.Sprintf(format, a...)))
}

func Error(format string, a ...any) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf(format, a...)))
}

var sectionStyle = lipgloss.NewStyle().Foreground(White).Bold(true).Underline(true)

// Section prints a titled block of lines.
func Section(title string, textLines []string) {
	fmt.Println(sectionStyle.Render(title))
	for _, line := range textLines {
		fmt.Println("  " + line)
	}
}

// Table prints rows under a styled header row.
func Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(LightGray)).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Foreground(Cyan).Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, row := range rows {
		t.Row(row...)
	}
	fmt.Println(t)
}

// PrefixedUI prepends a fixed prefix to every line, used when output for
// several targets is interleaved on the same terminal.
type PrefixedUI struct {
	Prefix string
}

func (p *PrefixedUI) Success(format string, a ...any) {
	fmt.Println(p.Prefix + successStyle.Render(fmt.Sprintf(format, a...)))
}

func (p *PrefixedUI) Info(format string, a ...any) {
	fmt.Println(p.Prefix + infoStyle.Render(fmt.Sprintf(format, a...)))
}

func (p *PrefixedUI) Warn(format string, a ...any) {
	fmt.Println(p.Prefix + warnStyle.Render(fmt.Sprintf(format, a...)))
}

func (p *PrefixedUI) Error(format string, a ...any) {
	fmt.Fprintln(os.Stderr, p.Prefix+errorStyle.Render(fmt.Sprintf(format, a...)))
}
