package input

import (
	"unicode"

	"github.com/gdamore/tcell/v2"
)

// FromTcell 终端按键映射：↑/W 上，↓/S 下，空格 开始，R 重连，Q/Esc/Ctrl-C 退出
func FromTcell(ev *tcell.EventKey) Key {
	switch ev.Key() {
	case tcell.KeyUp:
		return KeyUp
	case tcell.KeyDown:
		return KeyDown
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return KeyQuit
	case tcell.KeyRune:
	default:
		return KeyNone
	}
	switch unicode.ToLower(ev.Rune()) {
	case 'w':
		return KeyUp
	case 's':
		return KeyDown
	case ' ':
		return KeyAction
	case 'r':
		return KeyReconnect
	case 'q':
		return KeyQuit
	}
	return KeyNone
}
