package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Bushidonj/kanban-board/internal/kanban"
)

const columnWidth = 28

var (
	columnStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(columnWidth).
			Padding(0, 1)
	columnTitleStyle = lipgloss.NewStyle().Bold(true)
	countStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	emptyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	idStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	dueStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))
)

func priorityStyle(p kanban.Priority) lipgloss.Style {
	switch p {
	case kanban.PriorityUrgente:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	case kanban.PriorityMedia:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	}
}

// renderBoard lays the ten columns out in rows of three.
func renderBoard(cards []kanban.Card, hideEmpty bool) string {
	byStatus := make(map[kanban.Status][]kanban.Card)
	for _, c := range cards {
		byStatus[c.Status] = append(byStatus[c.Status], c)
	}

	var rendered []string
	for _, col := range kanban.Columns() {
		colCards := byStatus[col.ID]
		if hideEmpty && len(colCards) == 0 {
			continue
		}
		rendered = append(rendered, renderColumn(col, colCards))
	}

	var rows []string
	for len(rendered) > 0 {
		n := min(3, len(rendered))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, rendered[:n]...))
		rendered = rendered[n:]
	}
	return strings.Join(rows, "\n") + "\n"
}

func renderColumn(col kanban.Column, cards []kanban.Card) string {
	var b strings.Builder
	b.WriteString(columnTitleStyle.Render(col.Title))
	b.WriteString(countStyle.Render(fmt.Sprintf(" (%d)", len(cards))))

	if len(cards) == 0 {
		b.WriteString("\n" + emptyStyle.Render("empty"))
	}
	for _, card := range cards {
		b.WriteString("\n" + renderCard(card))
	}
	return columnStyle.Render(b.String())
}

func renderCard(card kanban.Card) string {
	marker := priorityStyle(card.Priority).Render("●")
	line := fmt.Sprintf("%s %s", marker, truncate(card.Title, columnWidth-6))
	detail := idStyle.Render(shortID(card.ID))
	if card.Deadline != "" {
		detail += " " + dueStyle.Render(kanban.FormatLocalDate(card.Deadline))
	}
	return line + "\n  " + detail
}

func renderSearchHit(card kanban.Card) string {
	marker := priorityStyle(card.Priority).Render("●")
	return fmt.Sprintf("%s %s  %s %s",
		marker,
		card.Title,
		idStyle.Render(shortID(card.ID)),
		countStyle.Render(string(card.Status)),
	)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
