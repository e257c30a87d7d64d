package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mosaicterm/mosaic/internal/layout"
)

// paneOutputMsg carries session output into the update loop.
type paneOutputMsg struct {
	pane layout.PaneID
	data []byte
}

// paneNoticeMsg carries a non-fatal session error into the update loop.
type paneNoticeMsg struct {
	pane layout.PaneID
	text string
}

// paneExitedMsg reports that the pane's shell exited.
type paneExitedMsg struct {
	pane layout.PaneID
}

// surface adapts the registry's display callbacks into bubbletea messages.
// The registry invokes it from session goroutines; program.Send is the
// thread-safe bridge into the single-threaded update loop.
type surface struct {
	pane layout.PaneID
	send func(tea.Msg)
}

func (s *surface) Output(data []byte) {
	s.send(paneOutputMsg{pane: s.pane, data: data})
}

func (s *surface) Message(text string) {
	s.send(paneNoticeMsg{pane: s.pane, text: text})
}

func (s *surface) Exited() {
	s.send(paneExitedMsg{pane: s.pane})
}
