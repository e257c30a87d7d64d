package tui

import tea "github.com/charmbracelet/bubbletea"

// specialKeys maps non-rune keys to the byte sequences a terminal would
// produce for them.
var specialKeys = map[tea.KeyType][]byte{
	tea.KeyEnter:     {'\r'},
	tea.KeyTab:       {'\t'},
	tea.KeyShiftTab:  {0x1b, '[', 'Z'},
	tea.KeyBackspace: {0x7f},
	tea.KeyDelete:    {0x1b, '[', '3', '~'},
	tea.KeySpace:     {' '},
	tea.KeyEsc:       {0x1b},
	tea.KeyUp:        {0x1b, '[', 'A'},
	tea.KeyDown:      {0x1b, '[', 'B'},
	tea.KeyRight:     {0x1b, '[', 'C'},
	tea.KeyLeft:      {0x1b, '[', 'D'},
	tea.KeyHome:      {0x1b, '[', 'H'},
	tea.KeyEnd:       {0x1b, '[', 'F'},
	tea.KeyPgUp:      {0x1b, '[', '5', '~'},
	tea.KeyPgDown:    {0x1b, '[', '6', '~'},
	tea.KeyCtrlC:     {0x03},
	tea.KeyCtrlD:     {0x04},
	tea.KeyCtrlL:     {0x0c},
	tea.KeyCtrlR:     {0x12},
	tea.KeyCtrlU:     {0x15},
	tea.KeyCtrlW:     {0x17},
	tea.KeyCtrlZ:     {0x1a},
}

// keyBytes converts a key press into the bytes to feed the shell.
func keyBytes(msg tea.KeyMsg) []byte {
	if seq, ok := specialKeys[msg.Type]; ok {
		return seq
	}
	if msg.Type == tea.KeyRunes {
		return []byte(string(msg.Runes))
	}
	return nil
}
