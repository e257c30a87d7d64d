package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
)

// paneView holds one pane's scrollback and its viewport. Output is kept
// as lines; the tail beyond the scrollback limit is dropped.
type paneView struct {
	viewport   viewport.Model
	lines      []string
	partial    string
	scrollback int
	exited     bool
	notice     string
}

func newPaneView(scrollback int) *paneView {
	if scrollback <= 0 {
		scrollback = 1000
	}
	vp := viewport.New(0, 0)
	return &paneView{
		viewport:   vp,
		scrollback: scrollback,
	}
}

// appendOutput folds raw output into the line buffer. Carriage returns are
// dropped; an unterminated final line stays pending until its newline
// arrives.
func (p *paneView) appendOutput(data []byte) {
	text := p.partial + strings.ReplaceAll(string(data), "\r", "")
	parts := strings.Split(text, "\n")
	p.partial = parts[len(parts)-1]
	p.lines = append(p.lines, parts[:len(parts)-1]...)
	if over := len(p.lines) - p.scrollback; over > 0 {
		p.lines = p.lines[over:]
	}
	p.refresh()
}

func (p *paneView) appendNotice(text string) {
	p.notice = text
	p.refresh()
}

func (p *paneView) markExited() {
	p.exited = true
	p.refresh()
}

func (p *paneView) setSize(width, height int) {
	p.viewport.Width = width
	p.viewport.Height = height
	p.refresh()
}

func (p *paneView) refresh() {
	atBottom := p.viewport.AtBottom()
	content := strings.Join(p.visibleLines(), "\n")
	p.viewport.SetContent(content)
	if atBottom {
		p.viewport.GotoBottom()
	}
}

func (p *paneView) visibleLines() []string {
	lines := p.lines
	if p.partial != "" {
		lines = append(append([]string(nil), lines...), p.partial)
	}
	if p.notice != "" {
		lines = append(append([]string(nil), lines...), p.notice)
	}
	if p.exited {
		lines = append(append([]string(nil), lines...), "[session exited]")
	}
	return lines
}
