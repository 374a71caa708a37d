package output

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status icons.
const (
	IconSuccess = "✓"
	IconError   = "✗"
	IconWarning = "!"
	IconSkipped = "-"
	IconPending = "•"
)

// Styles holds the lipgloss styles used by the renderer.
type Styles struct {
	Header    lipgloss.Style
	Subheader lipgloss.Style
	Bold      lipgloss.Style
	Success   lipgloss.Style
	Error     lipgloss.Style
	Warning   lipgloss.Style
	Info      lipgloss.Style
	Muted     lipgloss.Style
	Metric    lipgloss.Style
	Key       lipgloss.Style
}

// NewStyles creates the styles for a lipgloss renderer.
func NewStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1),
		Subheader: r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:      r.NewStyle().Bold(true),
		Success:   r.NewStyle().Foreground(lipgloss.Color("10")),
		Error:     r.NewStyle().Foreground(lipgloss.Color("9")),
		Warning:   r.NewStyle().Foreground(lipgloss.Color("11")),
		Info:      r.NewStyle().Foreground(lipgloss.Color("12")),
		Muted:     r.NewStyle().Foreground(lipgloss.Color("8")),
		Metric:    r.NewStyle().Foreground(lipgloss.Color("13")),
		Key:       r.NewStyle().Foreground(lipgloss.Color("8")).Width(14),
	}
}

// StatusIcon maps a status string to its icon.
func StatusIcon(status string) string {
	switch strings.ToLower(status) {
	case "success", "completed", "passed", "dropped", "loaded":
		return IconSuccess
	case "failed", "error":
		return IconError
	case "warning":
		return IconWarning
	case "skipped", "cancelled":
		return IconSkipped
	default:
		return IconPending
	}
}

func (r *Renderer) statusStyle(status string) lipgloss.Style {
	switch StatusIcon(status) {
	case IconSuccess:
		return r.styles.Success
	case IconError:
		return r.styles.Error
	case IconWarning:
		return r.styles.Warning
	default:
		return r.styles.Muted
	}
}

var titleCaser = cases.Title(language.English)

// StatusLabel returns a status in title case, e.g. "Completed".
func StatusLabel(status string) string {
	return titleCaser.String(strings.ToLower(status))
}
