package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// TerminalView renders a page as lines of text.
type TerminalView struct {
	mu       sync.Mutex
	out      io.Writer
	location Page
	failed   bool
}

func NewTerminalView(out io.Writer) *TerminalView {
	return &TerminalView{out: out}
}

func (v *TerminalView) ClearMessages() {
	v.mu.Lock()
	v.failed = false
	v.mu.Unlock()
}

func (v *TerminalView) SetFieldError(field, text string) {
	v.mu.Lock()
	v.failed = true
	v.mu.Unlock()
	v.printf("  %s: %s\n", field, text)
}

func (v *TerminalView) SetMessage(kind MessageKind, text string) {
	mark := "✔"
	if kind == MessageError {
		mark = "✖"
	}
	v.mu.Lock()
	v.failed = kind == MessageError
	v.mu.Unlock()
	v.printf("%s %s\n", mark, text)
}

func (v *TerminalView) SetBusy(busy bool, label string) {
	if busy {
		v.printf("%s\n", label)
	}
}

func (v *TerminalView) ResetForm(map[string]string) {}

func (v *TerminalView) Alert(text string) {
	v.printf("! %s\n", text)
}

func (v *TerminalView) Navigate(page Page) {
	v.mu.Lock()
	v.location = page
	v.mu.Unlock()
	v.printf("→ %s\n", page)
}

// Failed reports whether the screen shows an error since the last clear.
func (v *TerminalView) Failed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.failed
}

// Location is the last page navigated to, empty if none.
func (v *TerminalView) Location() Page {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.location
}

func (v *TerminalView) printf(format string, args ...any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, format, args...)
}

// Prompter reads form input from a terminal.
type Prompter struct {
	in     io.Reader
	reader *bufio.Reader
	out    io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: in, reader: bufio.NewReader(in), out: out}
}

func (p *Prompter) ReadLine(label string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", label)
	line, err := p.reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadPassword echoes the input only when field is visible or stdin is not a terminal.
func (p *Prompter) ReadPassword(label string, field *PasswordField) (string, error) {
	f, ok := p.in.(*os.File)
	if field.Visible() || !ok || !term.IsTerminal(int(f.Fd())) {
		return p.ReadLine(label)
	}

	fmt.Fprintf(p.out, "%s: ", label)
	b, err := term.ReadPassword(int(f.Fd()))
	fmt.Fprintln(p.out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
