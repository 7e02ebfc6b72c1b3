package console

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/psantana5/subproc/internal/process"
)

var spinnerFrames = []string{"|", "/", "-", "\\"}

// Console draws a progress spinner and per-run outcome lines. Tick is safe to
// call from many goroutines at once. When the output is not a terminal the
// spinner is not drawn and no colors are used.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	tty     bool
	frame   int
	label   string
	drawn   bool
	running map[string]time.Time

	green  *color.Color
	red    *color.Color
	yellow *color.Color
}

// New creates a console writing to out.
func New(out *os.File) *Console {
	tty := isatty.IsTerminal(out.Fd()) || isatty.IsCygwinTerminal(out.Fd())
	return newConsole(out, tty)
}

// NewWriter creates a console on an arbitrary writer, which is never treated
// as a terminal.
func NewWriter(out io.Writer) *Console {
	return newConsole(out, false)
}

func newConsole(out io.Writer, tty bool) *Console {
	c := &Console{
		out:     out,
		tty:     tty,
		running: make(map[string]time.Time),
		green:   color.New(color.FgGreen),
		red:     color.New(color.FgRed, color.Bold),
		yellow:  color.New(color.FgYellow),
	}
	for _, col := range []*color.Color{c.green, c.red, c.yellow} {
		if tty {
			col.EnableColor()
		} else {
			col.DisableColor()
		}
	}
	return c
}

// Started records that a run named name is in progress.
func (c *Console) Started(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running[name] = time.Now()
	c.label = c.describeRunning()
}

// Tick advances the spinner.
func (c *Console) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frame = (c.frame + 1) % len(spinnerFrames)
	if !c.tty {
		return
	}
	fmt.Fprintf(c.out, "\r\033[K%s %s", spinnerFrames[c.frame], c.label)
	c.drawn = true
}

// Finished prints the outcome of a run and removes it from the spinner.
func (c *Console) Finished(name string, status process.Status, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.running, name)
	c.label = c.describeRunning()
	c.clearLine()

	outcome := c.colorFor(status).Sprint(status.String())
	fmt.Fprintf(c.out, "%s ... %s in %.1fs\n", name, outcome, elapsed.Seconds())
}

// Failed prints a run that ended with an error instead of a Status.
func (c *Console) Failed(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.running, name)
	c.label = c.describeRunning()
	c.clearLine()
	fmt.Fprintf(c.out, "%s ... %s: %v\n", name, c.red.Sprint("error"), err)
}

// Clear erases the spinner line, if drawn.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLine()
}

func (c *Console) clearLine() {
	if c.tty && c.drawn {
		fmt.Fprint(c.out, "\r\033[K")
		c.drawn = false
	}
}

func (c *Console) colorFor(status process.Status) *color.Color {
	switch status.Kind {
	case process.KindSuccess:
		return c.green
	case process.KindTimeout:
		return c.yellow
	default:
		return c.red
	}
}

func (c *Console) describeRunning() string {
	if len(c.running) > 3 {
		return fmt.Sprintf("%d running", len(c.running))
	}
	names := make([]string, 0, len(c.running))
	for name := range c.running {
		names = append(names, name)
	}
	slices.Sort(names)
	return strings.Join(names, ", ")
}
