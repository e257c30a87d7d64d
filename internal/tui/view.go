package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mosaicterm/mosaic/internal/layout"
)

var (
	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("245"))

	activeTabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Bold(true).
			Foreground(lipgloss.Color("255")).
			Background(lipgloss.Color("62"))

	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240"))

	activePaneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "starting..."
	}

	tab := m.ws.CurrentTab()
	contentHeight := m.height - 2 // tab bar and status line
	if contentHeight < 1 {
		contentHeight = 1
	}

	var b strings.Builder
	b.WriteString(m.renderTabBar())
	b.WriteString("\n")
	b.WriteString(m.renderNode(tab.Root, m.width, contentHeight, tab.Active))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.status))
	return b.String()
}

func (m *Model) renderTabBar() string {
	current := m.ws.CurrentTab().ID
	var parts []string
	for i, tab := range m.ws.Tabs() {
		label := fmt.Sprintf("%d:%d panes", i+1, layout.CountPanes(tab.Root))
		if tab.ID == current {
			parts = append(parts, activeTabStyle.Render(label))
		} else {
			parts = append(parts, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// renderNode draws the tree into a w x h cell, splitting space equally
// among siblings.
func (m *Model) renderNode(node layout.Node, w, h int, active layout.PaneID) string {
	switch n := node.(type) {
	case *layout.Pane:
		return m.renderPane(n, w, h, n.ID == active)

	case *layout.SplitNode:
		count := len(n.Children)
		if count == 0 {
			return ""
		}
		var parts []string
		if n.Dir == layout.Horizontal {
			each := w / count
			for i, child := range n.Children {
				cw := each
				if i == count-1 {
					cw = w - each*(count-1)
				}
				parts = append(parts, m.renderNode(child, cw, h, active))
			}
			return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
		}
		each := h / count
		for i, child := range n.Children {
			ch := each
			if i == count-1 {
				ch = h - each*(count-1)
			}
			parts = append(parts, m.renderNode(child, w, ch, active))
		}
		return lipgloss.JoinVertical(lipgloss.Left, parts...)
	}
	return ""
}

func (m *Model) renderPane(pane *layout.Pane, w, h int, active bool) string {
	style := paneStyle
	if active {
		style = activePaneStyle
	}
	innerW, innerH := w-2, h-2
	if innerW < 1 {
		innerW = 1
	}
	if innerH < 1 {
		innerH = 1
	}
	content := ""
	if view, ok := m.views[pane.ID]; ok {
		content = view.viewport.View()
	}
	return style.Width(innerW).Height(innerH).Render(content)
}

// syncSizes recomputes every pane's cell in the current tab, resizes the
// viewports, and pushes the new dimensions down to the sessions.
func (m *Model) syncSizes() {
	if m.width == 0 || m.height == 0 {
		return
	}
	contentHeight := m.height - 2
	if contentHeight < 1 {
		contentHeight = 1
	}
	m.sizeNode(m.ws.CurrentTab().Root, m.width, contentHeight)
}

func (m *Model) sizeNode(node layout.Node, w, h int) {
	switch n := node.(type) {
	case *layout.Pane:
		innerW, innerH := w-2, h-2
		if innerW < 1 {
			innerW = 1
		}
		if innerH < 1 {
			innerH = 1
		}
		if view, ok := m.views[n.ID]; ok {
			view.setSize(innerW, innerH)
		}
		m.registry.ResizeSession(n.ID, innerH, innerW)

	case *layout.SplitNode:
		count := len(n.Children)
		if count == 0 {
			return
		}
		if n.Dir == layout.Horizontal {
			each := w / count
			for i, child := range n.Children {
				cw := each
				if i == count-1 {
					cw = w - each*(count-1)
				}
				m.sizeNode(child, cw, h)
			}
			return
		}
		each := h / count
		for i, child := range n.Children {
			ch := each
			if i == count-1 {
				ch = h - each*(count-1)
			}
			m.sizeNode(child, w, ch)
		}
	}
}
