// Package tui is the interactive front end: a bubbletea program that
// renders the workspace's tabs and pane trees and bridges keyboard input
// to the pane sessions. Session output reaches the update loop through
// the display-surface adapter in surface.go.
package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mosaicterm/mosaic/internal/dispatch"
	"github.com/mosaicterm/mosaic/internal/layout"
	"github.com/mosaicterm/mosaic/internal/logging"
	"github.com/mosaicterm/mosaic/internal/session"
	"github.com/mosaicterm/mosaic/internal/workspace"
)

// Config holds what the TUI needs to run.
type Config struct {
	Workspace  *workspace.Workspace
	Registry   *session.Registry
	Logger     *logging.Logger
	Scrollback int

	// Dispatcher and Startup, when both set, run a command sequence
	// against the first pane once the UI is up.
	Dispatcher *dispatch.Runner
	Startup    []string
}

// statusMsg replaces the status line text. Background goroutines reach
// the update loop with it through program.Send.
type statusMsg string

// Model is the bubbletea model for the whole workspace UI.
type Model struct {
	ws       *workspace.Workspace
	registry *session.Registry
	logger   *logging.Logger

	program    *tea.Program
	views      map[layout.PaneID]*paneView
	scrollback int
	dispatcher *dispatch.Runner
	startup    []string

	width  int
	height int

	// prefixArmed is set after the leader key until the next keypress.
	prefixArmed bool
	// pendingClose holds the pane awaiting close confirmation.
	pendingClose *layout.PaneID
	status       string
}

func newModel(cfg Config) *Model {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	return &Model{
		ws:         cfg.Workspace,
		registry:   cfg.Registry,
		logger:     logger.WithComponent("tui"),
		views:      make(map[layout.PaneID]*paneView),
		scrollback: cfg.Scrollback,
		dispatcher: cfg.Dispatcher,
		startup:    cfg.Startup,
	}
}

func (m *Model) send(msg tea.Msg) {
	if m.program != nil {
		m.program.Send(msg)
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	m.mountTab(m.ws.CurrentTab())
	return m.startupCmd()
}

// startupCmd runs the startup sequence against the first pane. The
// shell connects asynchronously and input sent before the handle exists
// is dropped, so the command holds off until the session is ready.
func (m *Model) startupCmd() tea.Cmd {
	if m.dispatcher == nil || len(m.startup) == 0 {
		return nil
	}
	seq := dispatch.Sequence{Pane: m.ws.ActivePane(), Steps: m.startup}
	return func() tea.Msg {
		deadline := time.Now().Add(startupReadyTimeout)
		for !m.registry.Ready(seq.Pane) {
			if reason, failed := m.registry.Failure(seq.Pane); failed {
				return statusMsg("startup sequence failed: " + reason)
			}
			if time.Now().After(deadline) {
				return statusMsg("startup sequence failed: session never became ready")
			}
			time.Sleep(10 * time.Millisecond)
		}
		if err := m.dispatcher.Run(context.Background(), seq); err != nil {
			return statusMsg(fmt.Sprintf("startup sequence failed: %v", err))
		}
		return nil
	}
}

const startupReadyTimeout = 10 * time.Second

// mountTab makes sure every pane in the tab has a session and a view.
func (m *Model) mountTab(tab *workspace.Tab) {
	for _, pane := range layout.FindAllPanes(tab.Root) {
		m.mountPane(pane)
	}
}

func (m *Model) mountPane(pane *layout.Pane) {
	if _, ok := m.views[pane.ID]; ok {
		return
	}
	m.views[pane.ID] = newPaneView(m.scrollback)
	m.registry.Acquire(pane.ID, pane.StartupDir)
	m.registry.AttachDisplay(pane.ID, &surface{pane: pane.ID, send: m.send})
}

func (m *Model) dropView(id layout.PaneID) {
	delete(m.views, id)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.syncSizes()
		return m, nil

	case paneOutputMsg:
		if view, ok := m.views[msg.pane]; ok {
			view.appendOutput(msg.data)
		}
		return m, nil

	case paneNoticeMsg:
		if view, ok := m.views[msg.pane]; ok {
			view.appendNotice(msg.text)
		}
		return m, nil

	case paneExitedMsg:
		if view, ok := m.views[msg.pane]; ok {
			view.markExited()
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

const leaderKey = "ctrl+a"

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.pendingClose != nil {
		target := *m.pendingClose
		m.pendingClose = nil
		m.status = ""
		if key == "y" {
			m.closePane(target)
		}
		return m, nil
	}

	if !m.prefixArmed {
		if key == leaderKey {
			m.prefixArmed = true
			return m, nil
		}
		m.registry.WriteInput(m.ws.ActivePane(), keyBytes(msg))
		return m, nil
	}

	m.prefixArmed = false
	switch key {
	case "q":
		m.registry.ReleaseAll()
		return m, tea.Quit
	case "s":
		m.split(layout.Horizontal)
	case "v":
		m.split(layout.Vertical)
	case "c":
		m.ws.NewTab("")
		m.mountTab(m.ws.CurrentTab())
		m.syncSizes()
	case "x":
		m.requestClose(m.ws.ActivePane())
	case "X":
		m.closeTab()
	case "n":
		m.ws.NextTab()
		m.mountTab(m.ws.CurrentTab())
		m.syncSizes()
	case "p":
		m.ws.PrevTab()
		m.mountTab(m.ws.CurrentTab())
		m.syncSizes()
	case "o":
		m.ws.FocusNext()
	case "O":
		m.ws.FocusPrev()
	case leaderKey:
		// Double leader sends the leader through to the shell.
		m.registry.WriteInput(m.ws.ActivePane(), []byte{0x01})
	}
	return m, nil
}

func (m *Model) split(dir layout.Direction) {
	target := m.ws.ActivePane()
	created, ok := m.ws.SplitPane(target, dir)
	if !ok {
		m.status = "split refused"
		return
	}
	if pane := layout.FindPane(m.ws.CurrentTab().Root, created); pane != nil {
		m.mountPane(pane)
	}
	m.syncSizes()
}

func (m *Model) requestClose(target layout.PaneID) {
	if m.ws.NeedsConfirm(target) {
		m.pendingClose = &target
		m.status = fmt.Sprintf("pane %d is busy; press y to close", target)
		return
	}
	m.closePane(target)
}

func (m *Model) closePane(target layout.PaneID) {
	if !m.ws.ClosePane(target) {
		m.status = "cannot close the last pane"
		return
	}
	m.dropView(target)
	m.syncSizes()
}

func (m *Model) closeTab() {
	tab := m.ws.CurrentTab()
	panes := layout.FindAllPanes(tab.Root)
	if !m.ws.CloseTab(tab.ID) {
		m.status = "cannot close the last tab"
		return
	}
	for _, pane := range panes {
		m.dropView(pane.ID)
	}
	m.mountTab(m.ws.CurrentTab())
	m.syncSizes()
}
