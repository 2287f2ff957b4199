package cli

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"unicode"

	"golang.org/x/term"
)

// ANSI escape codes
const (
	clearLine   = "\033[2K"
	clearScreen = "\033[H\033[2J"
	moveUp      = "\033[%dA"
	reset       = "\033[0m"
	yellow      = "\033[33m"
	red         = "\033[31m"
	blue        = "\033[34m"
	green       = "\033[32m"
	cyan        = "\033[36m"
	bold        = "\033[1m"
)

// Keys that have no printable rune
const (
	keyCtrlC rune = 0x03
	keyEsc   rune = 0x1b
	keyLeft  rune = 0xF702
	keyRight rune = 0xF703
)

const defaultWidth = 80

// readKey reads one keypress, lower-cased, decoding the arrow key escape
// sequences ESC [ C and ESC [ D
func readKey(r *bufio.Reader) (rune, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if rune(b) != keyEsc {
		return unicode.ToLower(rune(b)), nil
	}
	if next, err := r.ReadByte(); err != nil || next != '[' {
		return keyEsc, nil
	}
	code, err := r.ReadByte()
	if err != nil {
		return keyEsc, nil
	}
	switch code {
	case 'C':
		return keyRight, nil
	case 'D':
		return keyLeft, nil
	default:
		return keyEsc, nil
	}
}

// makeRaw switches in to raw mode when it is a terminal. The returned
// restore func may be called more than once.
func makeRaw(in io.Reader) (bool, func()) {
	f, ok := in.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false, func() {}
	}
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		return false, func() {}
	}
	var once sync.Once
	return true, func() {
		once.Do(func() { _ = term.Restore(int(f.Fd()), state) })
	}
}

// terminalWidth returns the column count of out, or 80 when out is not a terminal
func terminalWidth(out io.Writer) int {
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return defaultWidth
}

// lineWriter writes "\n" as "\r\n" while the terminal is raw, because raw
// mode also turns off output processing
type lineWriter struct {
	mu  sync.Mutex
	w   io.Writer
	raw atomic.Bool
}

func newLineWriter(w io.Writer) *lineWriter {
	return &lineWriter{w: w}
}

func (l *lineWriter) SetRaw(raw bool) {
	l.raw.Store(raw)
}

func (l *lineWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.raw.Load() {
		return l.w.Write(p)
	}
	if _, err := l.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}
