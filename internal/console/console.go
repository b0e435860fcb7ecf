// Package console is the line-oriented terminal the game is played in.
// With color on, menus are styled with lipgloss and prose is rendered as
// markdown through glamour; with color off everything is plain text.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/atmb4u/gamegirl/internal/story"
)

// ErrQuit is returned by Ask when the player types q or input ends.
var ErrQuit = errors.New("player quit")

const defaultWidth = 80

// Console reads player input and prints the game. Input is read on its own
// goroutine so a read can be abandoned when the context ends; call Close
// when done.
type Console struct {
	scanner  *bufio.Scanner
	lines    chan string
	readErr  error
	start    sync.Once
	stop     sync.Once
	done     chan struct{}
	out      io.Writer
	color    bool
	width    int
	styles   styles
	renderer *glamour.TermRenderer
}

type Option func(*Console)

// WithColor turns styled output on or off.
func WithColor(on bool) Option {
	return func(c *Console) { c.color = on }
}

// WithWidth sets the wrap width for prose.
func WithWidth(n int) Option {
	return func(c *Console) {
		if n > 0 {
			c.width = n
		}
	}
}

func New(in io.Reader, out io.Writer, opts ...Option) *Console {
	c := &Console{out: out, width: defaultWidth, lines: make(chan string), done: make(chan struct{})}
	for _, opt := range opts {
		opt(c)
	}
	c.scanner = bufio.NewScanner(in)
	c.scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	c.styles = newStyles(c.width)
	if c.color {
		if r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(c.width-4),
		); err == nil {
			c.renderer = r
		}
	}
	return c
}

// ReadLine prints prompt and returns the next line with surrounding space
// trimmed. End of input is ErrQuit; a done ctx returns ctx.Err().
func (c *Console) ReadLine(ctx context.Context, prompt string) (string, error) {
	if prompt != "" {
		fmt.Fprint(c.out, c.style(c.styles.prompt, prompt))
	}
	c.start.Do(func() { go c.read() })
	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", ctx.Err()
	case line, ok := <-c.lines:
		if !ok {
			if c.readErr != nil {
				return "", fmt.Errorf("read input: %w", c.readErr)
			}
			fmt.Fprintln(c.out)
			return "", ErrQuit
		}
		return strings.TrimSpace(line), nil
	}
}

// Ask is ReadLine where a lone q (any case) quits.
func (c *Console) Ask(ctx context.Context, prompt string) (string, error) {
	line, err := c.ReadLine(ctx, prompt)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(line, "q") {
		return "", ErrQuit
	}
	return line, nil
}

// Close stops the input goroutine once its pending read returns.
func (c *Console) Close() {
	c.stop.Do(func() { close(c.done) })
}

func (c *Console) read() {
	defer close(c.lines)
	for c.scanner.Scan() {
		select {
		case c.lines <- c.scanner.Text():
		case <-c.done:
			return
		}
	}
	c.readErr = c.scanner.Err()
}

func (c *Console) Banner(title, subtitle string) {
	if !c.color {
		fmt.Fprintln(c.out, title)
		if subtitle != "" {
			fmt.Fprintln(c.out, subtitle)
		}
		return
	}
	body := c.styles.title.Render(title)
	if subtitle != "" {
		body += "\n" + c.styles.muted.Render(subtitle)
	}
	fmt.Fprintln(c.out, c.styles.banner.Render(body))
}

// Section prints a heading followed by body text.
func (c *Console) Section(title, body string) {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.style(c.styles.heading, title))
	if body != "" {
		fmt.Fprintln(c.out, body)
	}
}

// Choices prints up to three numbered options and a fourth free-form entry.
func (c *Console) Choices(title string, choices []story.Choice, custom string) {
	fmt.Fprintln(c.out)
	if title != "" {
		fmt.Fprintln(c.out, c.style(c.styles.heading, title))
	}
	for i, ch := range choices {
		if i == 3 {
			break
		}
		num := c.style(c.styles.number, fmt.Sprintf("%d.", i+1))
		line := ch.Label()
		if ch.ChoiceType != "" {
			line += " " + c.style(c.styles.muted, "("+ch.ChoiceType+")")
		}
		fmt.Fprintf(c.out, "%s %s\n", num, line)
	}
	if custom != "" {
		fmt.Fprintf(c.out, "%s %s\n", c.style(c.styles.number, "4."), custom)
	}
}

// Prose prints story text, rendered as markdown when color is on.
func (c *Console) Prose(text string) {
	if c.renderer != nil {
		if out, err := c.renderer.Render(text); err == nil {
			fmt.Fprint(c.out, out)
			return
		}
	}
	fmt.Fprintln(c.out, text)
}

func (c *Console) Println(a ...any) {
	fmt.Fprintln(c.out, a...)
}

func (c *Console) Printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

func (c *Console) Error(err error) {
	fmt.Fprintln(c.out, c.style(c.styles.err, "error: "+err.Error()))
}

func (c *Console) style(s lipgloss.Style, text string) string {
	if !c.color {
		return text
	}
	return s.Render(text)
}
