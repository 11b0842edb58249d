// Package termview prints a grouped conference listing for terminals.
package termview

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"confcal/internal/listing"
	"confcal/internal/model"
)

var (
	yearStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginTop(1)
	monthStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	dateStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	cfpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	emptyStyle = lipgloss.NewStyle().Italic(true)
)

// EmptyMessage is shown when nothing survives filtering.
const EmptyMessage = "Oh shoot! We don't have any conferences yet."

// Render writes l to w. title is printed above the listing when non-empty.
func Render(w io.Writer, title string, l listing.Listing) error {
	var b strings.Builder

	if title != "" {
		b.WriteString(lipgloss.NewStyle().Bold(true).Render(title))
		b.WriteString("\n")
	}

	if l.Empty() {
		b.WriteString(emptyStyle.Render(EmptyMessage))
		b.WriteString("\n")
		_, err := io.WriteString(w, b.String())
		return err
	}

	for _, y := range l.Years {
		b.WriteString(yearStyle.Render(y.Key))
		b.WriteString("\n")
		for _, m := range y.Months {
			b.WriteString(monthStyle.Render(m.Name))
			b.WriteString("\n")
			for _, c := range m.Conferences {
				b.WriteString(line(c, l.ShowCFP))
				b.WriteString("\n")
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func line(c model.Conference, showCFP bool) string {
	name := c.Name
	if name == "" {
		name = c.URL
	}

	parts := []string{"  " + dateStyle.Render(dateRange(c)), name}
	if loc := c.Location(); loc != "" {
		parts = append(parts, "· "+loc)
	}
	if showCFP && c.CFPEndDate != "" {
		parts = append(parts, cfpStyle.Render(fmt.Sprintf("(CFP until %s)", c.CFPEndDate)))
	}
	return strings.Join(parts, " ")
}

func dateRange(c model.Conference) string {
	if c.EndDate == "" || c.EndDate == c.StartDate {
		return c.StartDate
	}
	return c.StartDate + " – " + c.EndDate
}
