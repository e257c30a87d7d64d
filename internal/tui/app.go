package tui

import tea "github.com/charmbracelet/bubbletea"

// App wraps the bubbletea program.
type App struct {
	model *Model
}

// New creates the TUI application.
func New(cfg Config) *App {
	return &App{model: newModel(cfg)}
}

// Run blocks until the user quits or the program fails.
func (a *App) Run() error {
	program := tea.NewProgram(a.model, tea.WithAltScreen())
	a.model.program = program
	_, err := program.Run()
	return err
}

// Notify puts text on the status line. Safe to call from any goroutine;
// dropped if the program is not running yet.
func (a *App) Notify(text string) {
	a.model.send(statusMsg(text))
}
